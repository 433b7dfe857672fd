package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Its-donkey/Boostalk/internal/countdown"
	"github.com/Its-donkey/Boostalk/internal/waitlist"
)

const maxJSONBody = 4 * 1024

var validate = validator.New()

type waitlistRequest struct {
	Email string `json:"email" validate:"required,contains=@"`
}

type waitlistResponse struct {
	Status    waitlist.Status `json:"status"`
	Message   string          `json:"message,omitempty"`
	Submitted bool            `json:"submitted"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// bindAndValidate decodes a JSON body into target, trims the email, and runs
// the struct's validate tags.
func bindAndValidate(r *http.Request, target *waitlistRequest) error {
	if r.Body == nil {
		return fmt.Errorf("request body is empty")
	}
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	target.Email = strings.TrimSpace(target.Email)
	if err := validate.Struct(target); err != nil {
		return fmt.Errorf("%w: %v", waitlist.ErrInvalidEmail, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: http.StatusText(status), Message: message})
}

func responseFor(state waitlist.State) waitlistResponse {
	resp := waitlistResponse{Status: state.Status, Submitted: state.Submitted}
	switch {
	case state.Submitted:
		resp.Message = waitlist.ConfirmationMessage
	case state.Status == waitlist.StatusError:
		resp.Message = state.ErrorMessage
	}
	return resp
}

func (s *server) handleAPIWaitlist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req waitlistRequest
	if err := bindAndValidate(r, &req); err != nil {
		if errors.Is(err, waitlist.ErrInvalidEmail) {
			writeJSON(w, http.StatusUnprocessableEntity, waitlistResponse{
				Status:  waitlist.StatusIdle,
				Message: waitlist.InvalidEmailNotice,
			})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	form := s.ensureSessionForm(w, r)
	err := s.submitEmail(r, form, req.Email)
	switch {
	case err == nil:
	case errors.Is(err, waitlist.ErrAlreadySubmitted):
		writeJSON(w, http.StatusOK, responseFor(form.State()))
		return
	case errors.Is(err, waitlist.ErrInvalidEmail):
		writeJSON(w, http.StatusUnprocessableEntity, waitlistResponse{
			Status:  form.State().Status,
			Message: waitlist.InvalidEmailNotice,
		})
		return
	case errors.Is(err, waitlist.ErrSubmissionInFlight):
		writeJSON(w, http.StatusConflict, responseFor(form.State()))
		return
	default:
		writeError(w, http.StatusServiceUnavailable, waitlist.FallbackErrorMessage)
		return
	}

	state := s.settle(r, form)
	status := http.StatusOK
	if state.Sending() {
		status = http.StatusAccepted
	}
	writeJSON(w, status, responseFor(state))
}

func (s *server) handleAPICountdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, countdown.At(s.launchAt, s.now()))
}
