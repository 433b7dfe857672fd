// Package metrics exposes Prometheus collectors for the landing site.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Form-level transitions, labelled by the status entered.
	WaitlistTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boostalk_waitlist_transitions_total",
		Help: "Waitlist form status transitions grouped by the status entered",
	}, []string{"status"})
	// Submissions refused before reaching the subscription service.
	WaitlistRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boostalk_waitlist_rejected_total",
		Help: "Waitlist submissions rejected locally grouped by reason",
	}, []string{"reason"})
	MailchimpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boostalk_mailchimp_requests_total",
		Help: "Requests to the Mailchimp form endpoint grouped by outcome (success, error, transport, breaker_open)",
	}, []string{"outcome"})
	MailchimpLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "boostalk_mailchimp_request_duration_seconds",
		Help:    "Latency of requests to the Mailchimp form endpoint",
		Buckets: prometheus.DefBuckets,
	})
	MailchimpBreakerState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "boostalk_mailchimp_breaker_state",
		Help: "Mailchimp circuit breaker state (0 closed, 1 half-open, 2 open)",
	})
	CountdownStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "boostalk_countdown_streams_active",
		Help: "Countdown event streams currently mounted",
	})
	WaitlistSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "boostalk_waitlist_sessions",
		Help: "Visitor sessions currently holding waitlist form state",
	})
	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boostalk_rate_limited_total",
		Help: "Requests refused by the per-IP rate limiter grouped by route",
	}, []string{"route"})
)

func init() {
	prometheus.MustRegister(WaitlistTransitions)
	prometheus.MustRegister(WaitlistRejected)
	prometheus.MustRegister(MailchimpRequests)
	prometheus.MustRegister(MailchimpLatency)
	prometheus.MustRegister(MailchimpBreakerState)
	prometheus.MustRegister(CountdownStreams)
	prometheus.MustRegister(WaitlistSessions)
	prometheus.MustRegister(RateLimited)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
