// Package server renders the Boostalk landing page and serves the waitlist
// and countdown endpoints behind it.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/Its-donkey/Boostalk/internal/countdown"
	"github.com/Its-donkey/Boostalk/internal/metrics"
	"github.com/Its-donkey/Boostalk/internal/ratelimit"
	"github.com/Its-donkey/Boostalk/internal/ui/model"
	"github.com/Its-donkey/Boostalk/internal/ui/state"
	"github.com/Its-donkey/Boostalk/internal/waitlist"
	"github.com/Its-donkey/Boostalk/logging"
)

const (
	sessionCookieName    = "boostalk_session"
	defaultSettleTimeout = 1500 * time.Millisecond
	sessionSweepInterval = time.Minute
)

// Options configures the landing page HTTP server.
type Options struct {
	Listen       string
	TemplatesDir string
	AssetsDir    string
	SiteName     string
	Logger       *logging.Logger
	Templates    map[string]*template.Template

	LaunchAt    time.Time
	LaunchLabel string

	// Subscriber receives waitlist submissions. Required.
	Subscriber    waitlist.Subscriber
	Sessions      *state.Store
	SessionTTL    time.Duration
	SettleTimeout time.Duration
	SubmitLimit   ratelimit.Config

	CountdownInterval time.Duration
	TickerFactory     countdown.TickerFactory
	Now               func() time.Time
}

type server struct {
	assetsDir         string
	stylesPath        string
	scriptPath        string
	templates         map[string]*template.Template
	siteName          string
	content           model.LandingContent
	logger            *logging.Logger
	now               func() time.Time
	launchAt          time.Time
	launchLabel       string
	countdownInterval time.Duration
	tickerFactory     countdown.TickerFactory
	subscriber        waitlist.Subscriber
	sessions          *state.Store
	settleTimeout     time.Duration
	limiter           *ratelimit.IPRateLimiter
}

type basePageData struct {
	PageTitle       string
	StylesheetPath  string
	ScriptPath      string
	CurrentYear     int
	SiteName        string
	MetaDescription string
	CanonicalURL    string
	OGType          string
}

type countdownView struct {
	Display   string
	Label     string
	Target    string
	Expired   bool
	StreamURL string
}

type waitlistView struct {
	State      waitlist.State
	Notice     string
	FormAction string
	StatusURL  string
}

type homePageData struct {
	basePageData
	Content   model.LandingContent
	Countdown countdownView
	Waitlist  waitlistView
}

// Run starts the HTTP server and blocks until ctx is cancelled or the listener fails.
func Run(ctx context.Context, opts Options) error {
	if opts.Listen == "" {
		opts.Listen = "127.0.0.1:8080"
	}
	srv, err := newServer(opts)
	if err != nil {
		return err
	}
	defer srv.limiter.Stop()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go srv.sessions.Run(sweepCtx, sessionSweepInterval)

	httpServer := &http.Server{
		Addr:              opts.Listen,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          srv.logger.StdLogger(logging.WARN, "http"),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	srv.logger.Info("general", "serving landing page", map[string]any{
		"url":    "http://" + opts.Listen,
		"launch": srv.launchAt.Format(time.RFC3339),
	})

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
}

func newServer(opts Options) (*server, error) {
	if opts.Subscriber == nil {
		return nil, errors.New("waitlist subscriber is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.New("boostalk", logging.INFO)
	}

	tmpl := opts.Templates
	if tmpl == nil {
		loaded, err := loadTemplates(opts.TemplatesDir)
		if err != nil {
			return nil, fmt.Errorf("load templates: %w", err)
		}
		tmpl = loaded
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	siteName := strings.TrimSpace(opts.SiteName)
	if siteName == "" {
		siteName = "Boostalk"
	}
	label := opts.LaunchLabel
	if label == "" {
		label = "Countdown to launch – July 20"
	}
	settle := opts.SettleTimeout
	if settle <= 0 {
		settle = defaultSettleTimeout
	}
	limit := opts.SubmitLimit
	if limit.Rate <= 0 {
		limit = ratelimit.DefaultSubmitConfig()
	}

	srv := &server{
		assetsDir:         strings.TrimSpace(opts.AssetsDir),
		stylesPath:        "/styles.css",
		scriptPath:        "/app.js",
		templates:         tmpl,
		siteName:          siteName,
		content:           model.DefaultContent(),
		logger:            logger,
		now:               now,
		launchAt:          opts.LaunchAt,
		launchLabel:       label,
		countdownInterval: opts.CountdownInterval,
		tickerFactory:     opts.TickerFactory,
		subscriber:        opts.Subscriber,
		settleTimeout:     settle,
		limiter:           ratelimit.New(limit),
	}

	sessions := opts.Sessions
	if sessions == nil {
		sessions = state.NewStore(state.StoreOptions{
			TTL:     opts.SessionTTL,
			NewForm: srv.newForm,
			Logger:  logger,
		})
	}
	srv.sessions = sessions
	return srv, nil
}

func (s *server) newForm() *waitlist.Form {
	return waitlist.NewForm(waitlist.FormOptions{
		Subscriber: s.subscriber,
		Logger:     s.logger,
		OnTransition: func(_, to waitlist.Status) {
			metrics.WaitlistTransitions.WithLabelValues(string(to)).Inc()
		},
	})
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome)
	mux.Handle("/waitlist", s.limiter.Middleware("waitlist", http.HandlerFunc(s.handleWaitlist)))
	mux.HandleFunc("/waitlist/status", s.handleWaitlistStatus)
	mux.HandleFunc("/countdown/stream", s.handleCountdownStream)
	mux.Handle("/api/waitlist", s.limiter.Middleware("api_waitlist", http.HandlerFunc(s.handleAPIWaitlist)))
	mux.HandleFunc("/api/countdown", s.handleAPICountdown)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/styles.css", s.assetHandler("styles.css", "text/css; charset=utf-8"))
	mux.Handle("/app.js", s.assetHandler("app.js", "application/javascript"))
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	httpLogger := logging.NewHTTPLogger(s.logger, "/healthz", "/metrics", "/countdown/stream", "/waitlist/status")
	return httpLogger.Middleware(mux)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}
