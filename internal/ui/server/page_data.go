package server

import (
	"fmt"
	"net/http"
	"strings"
)

// absoluteURL builds an absolute URL for path from the request's host and scheme.
func absoluteURL(r *http.Request, path string) string {
	clean := strings.TrimSpace(path)
	if !strings.HasPrefix(clean, "/") {
		clean = "/" + clean
	}
	if r == nil || strings.TrimSpace(r.Host) == "" {
		return ""
	}
	scheme := "https"
	if proto := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto"))); proto != "" {
		scheme = proto
	} else if r.TLS == nil {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s%s", scheme, r.Host, clean)
}

func (s *server) pageTitle() string {
	return s.siteName + " - " + s.content.Hero.Headline
}

// buildBasePageData constructs the fields shared by every page.
func (s *server) buildBasePageData(r *http.Request) basePageData {
	return basePageData{
		PageTitle:       s.pageTitle(),
		StylesheetPath:  s.stylesPath,
		ScriptPath:      s.scriptPath,
		CurrentYear:     s.now().Year(),
		SiteName:        s.siteName,
		MetaDescription: s.content.Hero.Description,
		CanonicalURL:    absoluteURL(r, "/"),
		OGType:          "website",
	}
}
