package reconciler

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tair/fundwatch/internal/funds/domain"
)

// Session pairs a reconciler with the mutex that serializes access to it.
// state mirrors the reconciler's state after each Do so it can be read while
// a call holds the lock.
type Session struct {
	mu         sync.Mutex
	reconciler *Reconciler
	lastUsed   time.Time
	state      atomic.Int32
}

// Do runs fn with the session locked
func (s *Session) Do(fn func(r *Reconciler)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.state.Store(int32(s.reconciler.State())) }()
	fn(s.reconciler)
}

// State returns the state as of the last completed Do, without locking
func (s *Session) State() State {
	return State(s.state.Load())
}

// Registry hands out one session per user key and forgets sessions that have
// been idle longer than ttl.
type Registry struct {
	durable  Durable
	local    Local
	strategy Strategy
	ttl      time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[domain.UserKey]*Session
}

// NewRegistry creates an empty registry
func NewRegistry(durable Durable, local Local, strategy Strategy, ttl time.Duration) *Registry {
	return &Registry{
		durable:  durable,
		local:    local,
		strategy: strategy,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[domain.UserKey]*Session),
	}
}

// Strategy returns the configured reconcile strategy
func (g *Registry) Strategy() Strategy {
	return g.strategy
}

// Get returns user's session, starting a new one if none is live
func (g *Registry) Get(user domain.UserKey) *Session {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.evictLocked(now)

	s, ok := g.sessions[user]
	if !ok {
		s = &Session{reconciler: New(user, g.durable, g.local, g.strategy)}
		g.sessions[user] = s
	}
	s.lastUsed = now
	return s
}

// Counts returns the number of live sessions per state. It never waits on a
// session, so a session busy with store I/O is counted in its previous state.
func (g *Registry) Counts() map[State]int {
	g.mu.Lock()
	defer g.mu.Unlock()

	counts := map[State]int{StateUnknown: 0, StateDurableActive: 0, StateLocalFallback: 0}
	for _, s := range g.sessions {
		counts[s.State()]++
	}
	return counts
}

func (g *Registry) evictLocked(now time.Time) {
	for user, s := range g.sessions {
		if now.Sub(s.lastUsed) > g.ttl {
			delete(g.sessions, user)
		}
	}
}
