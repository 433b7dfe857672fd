// Package waitlist holds the per-visitor waitlist form and its submission state machine:
//
//	idle -> sending -> success (terminal)
//	                -> error -> sending (retry) ...
package waitlist

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/Its-donkey/Boostalk/logging"
)

// ErrNoSubscriber is returned by Submit when the form was built without a Subscriber.
var ErrNoSubscriber = errors.New("waitlist: subscription service not configured")

// State is a point-in-time copy of the form.
type State struct {
	Email        string `json:"email"`
	Status       Status `json:"status"`
	Submitted    bool   `json:"submitted"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Sending reports whether a submission is in flight.
func (s State) Sending() bool { return s.Status == StatusSending }

// CanSubmit reports whether the submit control should be enabled.
func (s State) CanSubmit() bool { return !s.Submitted && s.Status != StatusSending }

// ShowForm reports whether the form (rather than the confirmation) is visible.
func (s State) ShowForm() bool { return !s.Submitted }

// Confirmation returns the confirmation text once submitted, "" otherwise.
func (s State) Confirmation() string {
	if s.Submitted {
		return ConfirmationMessage
	}
	return ""
}

// FormOptions configures a Form.
type FormOptions struct {
	Subscriber Subscriber
	Logger     *logging.Logger
	// OnTransition runs after every status change, outside the form lock.
	OnTransition func(from, to Status)
}

// Form is the waitlist form state for one visitor. All methods are safe for
// concurrent use; status updates from the subscriber are applied in arrival
// order and the last one wins.
type Form struct {
	subscriber   Subscriber
	logger       *logging.Logger
	onTransition func(from, to Status)

	mu      sync.Mutex
	state   State
	attempt uint64
	changed chan struct{}
}

// NewForm returns an idle, empty form.
func NewForm(opts FormOptions) *Form {
	return &Form{
		subscriber:   opts.Subscriber,
		logger:       opts.Logger,
		onTransition: opts.OnTransition,
		state:        State{Status: StatusIdle},
		changed:      make(chan struct{}),
	}
}

// State returns a copy of the current state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Changes returns the current state and a channel that is closed on the next change.
func (f *Form) Changes() (State, <-chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.changed
}

// SetEmail replaces the email field. Edits are rejected once the form has succeeded.
func (f *Form) SetEmail(email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.Submitted {
		return ErrAlreadySubmitted
	}
	if f.state.Email != email {
		f.state.Email = email
		f.notifyLocked()
	}
	return nil
}

// Submit validates the email and hands it to the subscriber. Local validation
// failures return ErrInvalidEmail and leave the state untouched. While a
// submission is sending, further calls return ErrSubmissionInFlight without
// contacting the subscriber.
//
// ctx is passed to the subscriber and should outlive the caller's request if
// the submission is meant to complete in the background.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	return f.submitLocked(ctx)
}

// SubmitEmail sets the email and submits it as one step. The email is only
// replaced when a submission could start, so a refused call leaves the state
// of a sending or submitted form as it was.
func (f *Form) SubmitEmail(ctx context.Context, email string) error {
	f.mu.Lock()
	if !f.state.Submitted && f.state.Status != StatusSending && f.state.Email != email {
		f.state.Email = email
		f.notifyLocked()
	}
	return f.submitLocked(ctx)
}

// submitLocked is called with mu held and releases it.
func (f *Form) submitLocked(ctx context.Context) error {
	switch {
	case f.state.Submitted:
		f.mu.Unlock()
		return ErrAlreadySubmitted
	case f.state.Status == StatusSending:
		f.mu.Unlock()
		return ErrSubmissionInFlight
	case f.subscriber == nil:
		f.mu.Unlock()
		return ErrNoSubscriber
	}
	if err := ValidateEmail(f.state.Email); err != nil {
		f.mu.Unlock()
		return err
	}

	prev := f.state.Status
	f.attempt++
	attempt := f.attempt
	email := f.state.Email
	f.state.Status = StatusSending
	f.state.ErrorMessage = ""
	f.notifyLocked()
	f.mu.Unlock()

	f.logger.Info("waitlist", "submission started", map[string]any{
		"email":   MaskEmail(email),
		"attempt": attempt,
	})
	f.transitioned(prev, StatusSending)

	updates := f.subscriber.Subscribe(ctx, email)
	if updates == nil {
		f.apply(attempt, Update{Status: StatusError})
		return nil
	}
	go f.consume(attempt, updates)
	return nil
}

// WaitSettled blocks until the form is no longer sending or ctx is done, and
// returns the state at that point.
func (f *Form) WaitSettled(ctx context.Context) State {
	for {
		state, changed := f.Changes()
		if state.Status != StatusSending {
			return state
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return f.State()
		}
	}
}

func (f *Form) consume(attempt uint64, updates <-chan Update) {
	sawTerminal := false
	for update := range updates {
		if update.Status.Terminal() {
			sawTerminal = true
		}
		f.apply(attempt, update)
	}
	if !sawTerminal {
		// The service went away without a verdict; surface it so the visitor can retry.
		f.apply(attempt, Update{Status: StatusError})
	}
}

// apply folds one update into the state. Updates for superseded attempts and
// anything after success are ignored, which makes the success transition
// happen exactly once however often it is reported.
func (f *Form) apply(attempt uint64, update Update) {
	f.mu.Lock()
	if attempt != f.attempt || f.state.Submitted {
		f.mu.Unlock()
		return
	}
	prev := f.state.Status
	switch update.Status {
	case StatusSuccess:
		f.state.Submitted = true
		f.state.Email = ""
		f.state.Status = StatusSuccess
		f.state.ErrorMessage = ""
	case StatusError:
		message := strings.TrimSpace(update.Message)
		if message == "" {
			message = FallbackErrorMessage
		}
		if prev == StatusError && f.state.ErrorMessage == message {
			f.mu.Unlock()
			return
		}
		f.state.Status = StatusError
		f.state.ErrorMessage = message
	default:
		f.mu.Unlock()
		return
	}
	f.notifyLocked()
	state := f.state
	f.mu.Unlock()

	switch state.Status {
	case StatusSuccess:
		f.logger.Info("waitlist", "joined waitlist", map[string]any{"attempt": attempt})
	case StatusError:
		f.logger.Warn("waitlist", "submission rejected", map[string]any{
			"attempt": attempt,
			"message": state.ErrorMessage,
		})
	}
	if prev != state.Status {
		f.transitioned(prev, state.Status)
	}
}

func (f *Form) notifyLocked() {
	close(f.changed)
	f.changed = make(chan struct{})
}

func (f *Form) transitioned(from, to Status) {
	if f.onTransition != nil {
		f.onTransition(from, to)
	}
}

// MaskEmail hides the local part of an address for logs: "user@example.com" -> "u***@example.com".
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
