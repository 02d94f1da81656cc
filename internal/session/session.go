// Package session holds the per-user working state of the dashboards: the
// caller, the table last shown for each dataset, filter choices and any edit
// transaction in progress.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wastewater-dashboards/surveillance-review/internal/identity"
	"github.com/wastewater-dashboards/surveillance-review/internal/tabular"
)

// Pending is an edit transaction parked in a session between requests.
type Pending interface {
	TransactionID() string
}

// Session is safe for concurrent use, although the dashboards drive each one
// from a single browser tab.
type Session struct {
	ID string

	mu        sync.Mutex
	identity  identity.Identity
	lastSeen  time.Time
	snapshots map[string]*tabular.Table
	pending   map[string]Pending
	filters   map[string][]string
}

func newSession(id string, who identity.Identity, now time.Time) *Session {
	return &Session{
		ID:        id,
		identity:  who,
		lastSeen:  now,
		snapshots: make(map[string]*tabular.Table),
		pending:   make(map[string]Pending),
		filters:   make(map[string][]string),
	}
}

// Identity returns the caller bound to the session.
func (s *Session) Identity() identity.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Snapshot returns the table most recently displayed for dataset.
func (s *Session) Snapshot(dataset string) (*tabular.Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.snapshots[dataset]
	return t, ok
}

// SetSnapshot records a freshly displayed table. Any transaction opened
// against the previous display of the same dataset is discarded since its row
// indices no longer refer to what the user sees.
func (s *Session) SetSnapshot(dataset string, t *tabular.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[dataset] = t
	delete(s.pending, dataset)
}

// Pending returns the open transaction for dataset, if any.
func (s *Session) Pending(dataset string) (Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[dataset]
	return p, ok
}

func (s *Session) SetPending(dataset string, p Pending) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[dataset] = p
}

func (s *Session) ClearPending(dataset string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, dataset)
}

// Filters returns the saved selection for a named filter on a page.
func (s *Session) Filters(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.filters[name]...)
}

func (s *Session) SetFilters(name string, values []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(values) == 0 {
		delete(s.filters, name)
		return
	}
	s.filters[name] = append([]string(nil), values...)
}

func (s *Session) touch(who identity.Identity, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = who
	s.lastSeen = now
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Manager owns every live session and expires idle ones.
type Manager struct {
	idle time.Duration
	log  logrus.FieldLogger
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns a manager that forgets sessions unused for idle.
func NewManager(idle time.Duration, log logrus.FieldLogger) *Manager {
	return &Manager{
		idle:     idle,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Open returns the session for id, creating a new one with a fresh id when id
// is empty or unknown. The caller identity is refreshed on every request.
func (m *Manager) Open(id string, who identity.Identity) *Session {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok && id != "" {
		s.touch(who, now)
		return s
	}
	s := newSession(uuid.NewString(), who, now)
	m.sessions[s.ID] = s
	m.log.WithFields(logrus.Fields{"session": s.ID, "user": who.User}).Debug("session started")
	return s
}

// Get looks up a session without creating one.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than the configured window and
// returns how many were removed.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.idle)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.log.WithField("removed", removed).Debug("expired idle sessions")
	}
	return removed
}

// Run sweeps on every tick until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
