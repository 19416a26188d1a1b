package ui

import (
	"context"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cymbal-labs/searchdemo/internal/metrics"
	"github.com/cymbal-labs/searchdemo/internal/state"
)

// Session is one client: a store plus the components bound to it.
type Session struct {
	ID    string
	Store *state.Store
	Query *QueryInput
	Form  *ParameterForm

	mu       sync.Mutex
	lastSeen time.Time
}

// NewSession wires a fresh store to a query input and a parameter form.
func NewSession(id string, searcher Searcher, policy state.ResponsePolicy, logger *logging.Logger) *Session {
	store := state.NewStore(policy)
	return &Session{
		ID:       id,
		Store:    store,
		Query:    NewQueryInput(store),
		Form:     NewParameterForm(store, searcher, logger),
		lastSeen: time.Now(),
	}
}

// View renders the session's current response.
func (s *Session) View() ResultView {
	return Render(s.Store.Response())
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// SessionOptions configures a Sessions registry.
type SessionOptions struct {
	Searcher    Searcher
	Policy      state.ResponsePolicy
	IdleTimeout time.Duration
	Logger      *logging.Logger
	Clock       func() time.Time
}

// Sessions keeps one Session per browser tab.
type Sessions struct {
	opts SessionOptions

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessions returns an empty registry.
func NewSessions(opts SessionOptions) *Sessions {
	return &Sessions{opts: opts, sessions: make(map[string]*Session)}
}

// Create starts a session under a new random id.
func (r *Sessions) Create() *Session {
	return r.GetOrCreate(uuid.New().String())
}

// Get returns the session for id and marks it as seen.
func (r *Sessions) Get(id string) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if ok {
		s.touch(r.now())
	}
	return s, ok
}

// GetOrCreate returns the session for id, creating it if needed. An empty or
// malformed id gets a new random one.
func (r *Sessions) GetOrCreate(id string) *Session {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.New().String()
	}

	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		s = NewSession(id, r.opts.Searcher, r.opts.Policy, r.opts.Logger)
		r.sessions[id] = s
	}
	count := len(r.sessions)
	r.mu.Unlock()

	s.touch(r.now())
	if !ok {
		metrics.SetActiveSessions(count)
		if r.opts.Logger != nil {
			r.opts.Logger.Debug("session created", zap.String("tab", id))
		}
	}
	return s
}

// Len returns the number of live sessions.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than the idle timeout. Sessions with a
// search in flight or with observers attached are kept.
func (r *Sessions) Sweep() int {
	if r.opts.IdleTimeout <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.opts.IdleTimeout)

	r.mu.Lock()
	evicted := 0
	for id, s := range r.sessions {
		if s.idleSince().After(cutoff) || s.Form.Busy() || s.Store.Observers() > 0 {
			continue
		}
		delete(r.sessions, id)
		evicted++
	}
	count := len(r.sessions)
	r.mu.Unlock()

	if evicted > 0 {
		metrics.SetActiveSessions(count)
		if r.opts.Logger != nil {
			r.opts.Logger.Debug("idle sessions evicted", zap.Int("evicted", evicted), zap.Int("remaining", count))
		}
	}
	return evicted
}

// Run sweeps periodically until ctx is done.
func (r *Sessions) Run(ctx context.Context) {
	if r.opts.IdleTimeout <= 0 {
		return
	}

	interval := r.opts.IdleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Sessions) now() time.Time {
	if r.opts.Clock != nil {
		return r.opts.Clock()
	}
	return time.Now()
}
