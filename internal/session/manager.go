package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pdfchat/backend/internal/backend"
	"github.com/pdfchat/backend/internal/notify"
	"github.com/rs/zerolog/log"
)

// DefaultMaxSessions limits concurrent chat sessions to bound memory.
const DefaultMaxSessions = 500

// SessionKeepAliveWindow is how long a recently used session is protected from cleanup.
const SessionKeepAliveWindow = 5 * time.Minute

// ErrTooManySessions is returned when every slot is held by a busy or recently used session.
var ErrTooManySessions = errors.New("too many active chat sessions")

// Session pairs a controller with the toast queue it notifies.
type Session struct {
	*Controller
	Toasts *notify.Queue
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	MaxSessions      int
	MaxPendingToasts int
	Controller       Options
}

// Manager owns the chat sessions of all connected browsers.
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	client   backend.Client
	opts     ManagerOptions
}

// NewManager creates a session manager backed by client.
func NewManager(client backend.Client, opts ManagerOptions) *Manager {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	return &Manager{
		sessions: make(map[string]*Session),
		client:   client,
		opts:     opts,
	}
}

// Create starts a new session and loads its document list. A listing failure
// is reported through the session's toasts, not returned.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	if err := m.cleanupOldSessionsIfNeeded(); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	toasts := notify.NewQueue(m.opts.MaxPendingToasts)
	s := &Session{
		Controller: NewController(id, m.client, toasts, m.opts.Controller),
		Toasts:     toasts,
	}
	s.Initialize(ctx)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	log.Info().Str("session", shortID(id)).Int("documents", len(s.Documents())).Msg("session created")
	return s, nil
}

// Get returns a session by ID and marks it as used.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if ok {
		s.Touch()
	}
	return s, ok
}

// Delete tears a session down. In-flight requests finish against the orphaned
// controller and are discarded with it.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	log.Info().Str("session", shortID(id)).Msg("session closed")
	return true
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// cleanupOldSessionsIfNeeded evicts the least recently used idle sessions when
// at capacity.
func (m *Manager) cleanupOldSessionsIfNeeded() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) < m.opts.MaxSessions {
		return nil
	}

	keepAliveCutoff := time.Now().Add(-SessionKeepAliveWindow)
	var candidates []*Session
	for _, s := range m.sessions {
		if s.Busy() || s.LastAccessed().After(keepAliveCutoff) {
			continue
		}
		candidates = append(candidates, s)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].LastAccessed().Before(candidates[j].LastAccessed())
	})

	toFree := len(m.sessions) - m.opts.MaxSessions + 1
	if len(candidates) < toFree {
		return ErrTooManySessions
	}
	for _, s := range candidates[:toFree] {
		delete(m.sessions, s.ID())
		log.Info().Str("session", shortID(s.ID())).Msg("evicted idle session to free a slot")
	}
	return nil
}

// CleanupOldSessions removes sessions idle for longer than maxAge. Sessions
// with a request in flight are kept.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, s := range m.sessions {
		if s.Busy() {
			continue
		}
		last := s.LastAccessed()
		if last.Before(cutoff) {
			delete(m.sessions, id)
			removed++
			log.Info().Str("session", shortID(id)).
				Dur("idle", time.Since(last).Round(time.Second)).
				Msg("cleaned up aged session")
		}
	}
	return removed
}
