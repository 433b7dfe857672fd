// Package state keeps per-visitor waitlist form state for the server-rendered site.
package state

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Its-donkey/Boostalk/internal/metrics"
	"github.com/Its-donkey/Boostalk/internal/waitlist"
	"github.com/Its-donkey/Boostalk/logging"
)

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 30 * time.Minute

// StoreOptions configures a Store.
type StoreOptions struct {
	TTL     time.Duration
	NewForm func() *waitlist.Form
	Now     func() time.Time
	Logger  *logging.Logger
}

type session struct {
	form     *waitlist.Form
	lastSeen time.Time
}

// Store maps session IDs to waitlist forms. IDs are only ever minted by the
// store, so a client cannot choose the key its state lives under.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	newForm  func() *waitlist.Form
	now      func() time.Time
	logger   *logging.Logger
}

// NewStore constructs an empty store.
func NewStore(opts StoreOptions) *Store {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewForm == nil {
		opts.NewForm = func() *waitlist.Form { return waitlist.NewForm(waitlist.FormOptions{}) }
	}
	return &Store{
		sessions: make(map[string]*session),
		ttl:      opts.TTL,
		newForm:  opts.NewForm,
		now:      opts.Now,
		logger:   opts.Logger,
	}
}

// Get returns the form for id and refreshes its expiry.
func (s *Store) Get(id string) (*waitlist.Form, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess.form, true
}

// GetOrCreate returns the form for id, or a fresh form under a new ID when id
// is unknown. The returned ID is the one the caller should hand back to the client.
func (s *Store) GetOrCreate(id string) (string, *waitlist.Form) {
	if form, ok := s.Get(id); ok {
		return id, form
	}

	form := s.newForm()
	newID := uuid.NewString()

	s.mu.Lock()
	s.sessions[newID] = &session{form: form, lastSeen: s.now()}
	count := len(s.sessions)
	s.mu.Unlock()

	metrics.WaitlistSessions.Set(float64(count))
	return newID, form
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than the TTL. Forms with a submission
// still sending are kept until it settles.
func (s *Store) Sweep() int {
	s.mu.Lock()
	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) <= s.ttl || sess.form.State().Sending() {
			continue
		}
		delete(s.sessions, id)
		removed++
	}
	count := len(s.sessions)
	s.mu.Unlock()

	metrics.WaitlistSessions.Set(float64(count))
	if removed > 0 {
		s.logger.Debug("waitlist", "expired visitor sessions", map[string]any{
			"removed":   removed,
			"remaining": count,
		})
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
