package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Its-donkey/Boostalk/internal/metrics"
	"github.com/Its-donkey/Boostalk/internal/waitlist"
	"github.com/Its-donkey/Boostalk/logging"
)

const statusKeepAlive = 15 * time.Second

// sessionForm returns the visitor's form if their cookie names a live session.
func (s *server) sessionForm(r *http.Request) (string, *waitlist.Form, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", nil, false
	}
	form, ok := s.sessions.Get(cookie.Value)
	if !ok {
		return "", nil, false
	}
	return cookie.Value, form, true
}

// ensureSessionForm returns the visitor's form, starting a session (and
// setting its cookie) when there is none.
func (s *server) ensureSessionForm(w http.ResponseWriter, r *http.Request) *waitlist.Form {
	var current string
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		current = cookie.Value
	}
	id, form := s.sessions.GetOrCreate(current)
	if id != current {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   r.TLS != nil,
		})
	}
	return form
}

// submitEmail runs one submission for the visitor's form. The submission is
// detached from the request so a client hanging up does not abort the vendor call.
func (s *server) submitEmail(r *http.Request, form *waitlist.Form, email string) error {
	err := form.SubmitEmail(context.WithoutCancel(r.Context()), email)
	switch {
	case errors.Is(err, waitlist.ErrInvalidEmail):
		metrics.WaitlistRejected.WithLabelValues("invalid_email").Inc()
	case errors.Is(err, waitlist.ErrSubmissionInFlight):
		metrics.WaitlistRejected.WithLabelValues("in_flight").Inc()
	case errors.Is(err, waitlist.ErrAlreadySubmitted):
		metrics.WaitlistRejected.WithLabelValues("already_submitted").Inc()
	}
	return err
}

// settle waits for the submission verdict, bounded by the settle timeout.
func (s *server) settle(r *http.Request, form *waitlist.Form) waitlist.State {
	ctx, cancel := context.WithTimeout(r.Context(), s.settleTimeout)
	defer cancel()
	return form.WaitSettled(ctx)
}

func formEmail(r *http.Request) string {
	email := r.PostForm.Get("email")
	if email == "" {
		email = r.PostForm.Get("EMAIL")
	}
	return strings.TrimSpace(email)
}

func (s *server) handleWaitlist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	form := s.ensureSessionForm(w, r)
	log := s.logger.WithRequestID(logging.RequestIDFromContext(r.Context())).WithCategory("waitlist")
	email := formEmail(r)

	err := s.submitEmail(r, form, email)
	switch {
	case err == nil:
	case errors.Is(err, waitlist.ErrAlreadySubmitted):
		http.Redirect(w, r, "/#waitlist", http.StatusSeeOther)
		return
	case errors.Is(err, waitlist.ErrInvalidEmail):
		view := waitlistView{State: form.State(), Notice: waitlist.InvalidEmailNotice, StatusURL: "/waitlist/status"}
		s.renderHome(w, r, http.StatusUnprocessableEntity, view)
		return
	case errors.Is(err, waitlist.ErrSubmissionInFlight):
		s.renderHome(w, r, http.StatusConflict, waitlistView{State: form.State(), StatusURL: "/waitlist/status"})
		return
	default:
		log.Error("waitlist submission could not start", err)
		view := waitlistView{State: form.State(), Notice: waitlist.FallbackErrorMessage}
		s.renderHome(w, r, http.StatusServiceUnavailable, view)
		return
	}

	state := s.settle(r, form)
	log.WithField("status", string(state.Status)).Info("waitlist form submitted")
	http.Redirect(w, r, "/#waitlist", http.StatusSeeOther)
}

// handleWaitlistStatus streams the visitor's form state as JSON server-sent
// events until the form succeeds or the client goes away.
func (s *server) handleWaitlistStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	_, form, ok := s.sessionForm(r)
	if !ok {
		http.Error(w, "no waitlist session", http.StatusNotFound)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	keepAlive := time.NewTicker(statusKeepAlive)
	defer keepAlive.Stop()

	for {
		state, changed := form.Changes()
		payload, err := json.Marshal(state)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		if state.Submitted {
			fmt.Fprint(w, "event: done\ndata: {}\n\n")
			flusher.Flush()
			return
		}
		flusher.Flush()

	wait:
		for {
			select {
			case <-r.Context().Done():
				return
			case <-keepAlive.C:
				fmt.Fprint(w, ": keep-alive\n\n")
				flusher.Flush()
			case <-changed:
				break wait
			}
		}
	}
}
