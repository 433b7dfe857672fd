// Package mailchimp submits waitlist addresses to a Mailchimp hosted signup form.
package mailchimp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Its-donkey/Boostalk/internal/metrics"
	"github.com/Its-donkey/Boostalk/internal/waitlist"
	"github.com/Its-donkey/Boostalk/logging"
)

const (
	defaultTimeout          = 10 * time.Second
	defaultBreakerThreshold = 5
	defaultBreakerTimeout   = 30 * time.Second
	maxResponseBytes        = 64 * 1024
)

// Options configures a Client.
type Options struct {
	FormURL    string
	HTTPClient *http.Client
	// Timeout bounds each request when HTTPClient is nil (default 10s).
	Timeout time.Duration
	Logger  *logging.Logger
	// BreakerThreshold is the number of consecutive transport failures that
	// opens the breaker (default 5).
	BreakerThreshold uint32
	// BreakerTimeout is how long the breaker stays open (default 30s).
	BreakerTimeout time.Duration
}

// Client implements waitlist.Subscriber against the Mailchimp JSONP endpoint.
type Client struct {
	endpoint *url.URL
	http     *http.Client
	logger   *logging.Logger
	breaker  *gobreaker.CircuitBreaker
	seq      atomic.Uint64
}

var _ waitlist.Subscriber = (*Client)(nil)

// New validates the form URL and builds a client.
func New(opts Options) (*Client, error) {
	endpoint, err := JSONPEndpoint(opts.FormURL)
	if err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.BreakerThreshold == 0 {
		opts.BreakerThreshold = defaultBreakerThreshold
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = defaultBreakerTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	c := &Client{
		endpoint: endpoint,
		http:     httpClient,
		logger:   opts.Logger,
	}
	threshold := opts.BreakerThreshold
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "mailchimp",
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.MailchimpBreakerState.Set(float64(to))
			c.logger.Warn("mailchimp", "circuit breaker state changed", map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})
	return c, nil
}

// Endpoint returns the JSONP endpoint requests are sent to.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// Subscribe reports sending immediately, then exactly one terminal update, then
// closes the channel.
func (c *Client) Subscribe(ctx context.Context, email string) <-chan waitlist.Update {
	updates := make(chan waitlist.Update, 2)
	updates <- waitlist.Update{Status: waitlist.StatusSending}
	go func() {
		defer close(updates)
		updates <- c.submit(ctx, email)
	}()
	return updates
}

func (c *Client) submit(ctx context.Context, email string) waitlist.Update {
	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, email)
	})
	metrics.MailchimpLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		outcome := "transport"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "breaker_open"
		}
		metrics.MailchimpRequests.WithLabelValues(outcome).Inc()
		c.logger.Error("mailchimp", "subscription request failed", err, map[string]any{
			"email":   waitlist.MaskEmail(email),
			"outcome": outcome,
		})
		return waitlist.Update{Status: waitlist.StatusError, Message: waitlist.FallbackErrorMessage}
	}

	resp := result.(response)
	message := cleanMessage(resp.Msg)
	switch resp.Result {
	case "success":
		metrics.MailchimpRequests.WithLabelValues("success").Inc()
		c.logger.Debug("mailchimp", "address accepted", map[string]any{"email": waitlist.MaskEmail(email)})
		return waitlist.Update{Status: waitlist.StatusSuccess, Message: message}
	default:
		metrics.MailchimpRequests.WithLabelValues("error").Inc()
		if message == "" {
			message = waitlist.FallbackErrorMessage
		}
		c.logger.Info("mailchimp", "address refused", map[string]any{
			"email":   waitlist.MaskEmail(email),
			"result":  resp.Result,
			"message": message,
		})
		return waitlist.Update{Status: waitlist.StatusError, Message: message}
	}
}

// fetch performs one JSONP request. Only transport-level problems are returned
// as errors; a refusal from Mailchimp is a valid response.
func (c *Client) fetch(ctx context.Context, email string) (response, error) {
	callback := "boostalk_cb_" + strconv.FormatUint(c.seq.Add(1), 10)
	target := *c.endpoint
	query := target.Query()
	query.Set("EMAIL", email)
	query.Set("c", callback)
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/javascript, application/json")
	req.Header.Set("User-Agent", "Boostalk-Waitlist/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("request mailchimp: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return response{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return response{}, fmt.Errorf("read response: %w", err)
	}
	return unwrapJSONP(body)
}
