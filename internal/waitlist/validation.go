package waitlist

import (
	"errors"
	"strings"
)

const (
	// InvalidEmailNotice is shown when local validation rejects the address.
	InvalidEmailNotice = "Please enter a valid email address."
	// FallbackErrorMessage is shown when the service reports an error without a message.
	FallbackErrorMessage = "An error occurred. Please try again."
	// ConfirmationMessage replaces the form after a successful submission.
	ConfirmationMessage = "🎉 Thank you! You're on the waitlist."
)

var (
	// ErrInvalidEmail means the address is empty or has no "@".
	ErrInvalidEmail = errors.New(InvalidEmailNotice)
	// ErrSubmissionInFlight means a submission is already sending.
	ErrSubmissionInFlight = errors.New("waitlist: submission already in progress")
	// ErrAlreadySubmitted means the form has already succeeded.
	ErrAlreadySubmitted = errors.New("waitlist: already on the waitlist")
)

// ValidateEmail applies the minimal local check: non-empty and containing "@".
// Anything stricter is left to the subscription service.
func ValidateEmail(email string) error {
	if email == "" || !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	return nil
}
