package server

import (
	"io/fs"
	"net/http"
	"path/filepath"
	"time"

	"github.com/Its-donkey/Boostalk/internal/countdown"
	"github.com/Its-donkey/Boostalk/internal/waitlist"
)

func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	view := waitlistView{State: waitlist.State{Status: waitlist.StatusIdle}}
	if _, form, ok := s.sessionForm(r); ok {
		view.State = form.State()
		view.StatusURL = "/waitlist/status"
	}
	s.renderHome(w, r, http.StatusOK, view)
}

// renderHome writes the landing page with the given waitlist view.
func (s *server) renderHome(w http.ResponseWriter, r *http.Request, status int, view waitlistView) {
	view.FormAction = "/waitlist#waitlist"
	snapshot := countdown.At(s.launchAt, s.now())

	data := homePageData{
		basePageData: s.buildBasePageData(r),
		Content:      s.content,
		Countdown: countdownView{
			Display:   snapshot.Display,
			Label:     s.launchLabel,
			Target:    s.launchAt.Format(time.RFC3339),
			Expired:   snapshot.Expired,
			StreamURL: "/countdown/stream",
		},
		Waitlist: view,
	}

	tmpl := s.templates["home"]
	if tmpl == nil {
		http.Error(w, "template missing", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "home", data); err != nil {
		s.logger.Error("http", "render home page", err, nil)
	}
}

func (s *server) assetHandler(name, contentType string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		if s.assetsDir != "" {
			http.ServeFile(w, r, filepath.Join(s.assetsDir, name))
			return
		}
		assets, err := fs.Sub(embeddedAssets, "assets")
		if err != nil {
			http.Error(w, "assets unavailable", http.StatusInternalServerError)
			return
		}
		http.ServeFileFS(w, r, assets, name)
	})
}
