package server

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"strings"

	"github.com/Masterminds/sprig/v3"

	"github.com/Its-donkey/Boostalk/internal/waitlist"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

//go:embed assets/*
var embeddedAssets embed.FS

// loadTemplates parses the page templates from dir, or from the copies built
// into the binary when dir is empty. Keys are logical page names.
func loadTemplates(dir string) (map[string]*template.Template, error) {
	var source fs.FS
	if strings.TrimSpace(dir) == "" {
		sub, err := fs.Sub(embeddedTemplates, "templates")
		if err != nil {
			return nil, err
		}
		source = sub
	} else {
		source = os.DirFS(dir)
	}

	funcs := sprig.HtmlFuncMap()
	funcs["buttonLabel"] = buttonLabel
	funcs["statusClass"] = statusClass

	homeTmpl, err := template.New("home").Funcs(funcs).ParseFS(source, "base.tmpl", "home.tmpl", "waitlist_form.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse home templates: %w", err)
	}

	return map[string]*template.Template{
		"home": homeTmpl,
	}, nil
}

func buttonLabel(state waitlist.State) string {
	if state.Sending() {
		return "Sending..."
	}
	return "Join Now"
}

func statusClass(status waitlist.Status) string {
	return "waitlist--" + string(status)
}
