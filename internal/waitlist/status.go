package waitlist

import "context"

// Status is the submission status reported by the subscription service.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSending Status = "sending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Terminal reports whether no further updates are expected for a submission.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// Update is one status report from the subscription service. Message is only
// meaningful alongside StatusError or StatusSuccess.
type Update struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Subscriber forwards an email address to the external subscription service.
// The returned channel carries status updates and is closed by the
// implementation once it has nothing more to report.
type Subscriber interface {
	Subscribe(ctx context.Context, email string) <-chan Update
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc func(ctx context.Context, email string) <-chan Update

// Subscribe calls f.
func (f SubscriberFunc) Subscribe(ctx context.Context, email string) <-chan Update {
	return f(ctx, email)
}
