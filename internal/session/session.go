package session

import (
	"log/slog"
	"sync"
	"time"
)

// LastTurn is the per-session memory the follow-up resolver reads: last
// intent, last scope, and the product lists that make ordinal and "why"
// references resolvable. History depth is 1 — the last successful turn is
// sufficient.
type LastTurn struct {
	Intent         string
	Bank           string
	Category       string
	ProductList    []string // ordered names produced by the last LIST/COUNT
	Explained      string   // product of the last EXPLAIN
	Recommended    string   // product named by the last RECOMMEND
	Compared       []string // banks or products of the last COMPARE
	Utterance      string
	ResponseDigest string
	At             time.Time
}

type entry struct {
	mu       sync.Mutex
	last     *LastTurn
	lastSeen time.Time
}

// Manager owns conversation state. Sessions are allocated on first utterance
// and released on explicit reset or expiry; within a session, Lock serializes
// turns so the LastTurn commit happens-before the next utterance's read.
type Manager struct {
	ttl time.Duration

	mu       sync.Mutex
	sessions map[string]*entry

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		ttl:       ttl,
		sessions:  make(map[string]*entry),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Lock serializes processing for one session. The returned func releases the
// session; callers must invoke it on every exit path.
func (m *Manager) Lock(sessionID string) func() {
	e := m.entryFor(sessionID)
	e.mu.Lock()
	return e.mu.Unlock
}

// Last returns a copy of the session's last turn, or nil when the session is
// new or was reset.
func (m *Manager) Last(sessionID string) *LastTurn {
	m.mu.Lock()
	e, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok || e.last == nil {
		return nil
	}

	cp := *e.last
	cp.ProductList = append([]string(nil), e.last.ProductList...)
	cp.Compared = append([]string(nil), e.last.Compared...)
	return &cp
}

// Commit replaces the session's last turn. Called by the router only after a
// non-clarify decision.
func (m *Manager) Commit(sessionID string, turn LastTurn) {
	turn.At = time.Now()
	e := m.entryFor(sessionID)

	m.mu.Lock()
	e.last = &turn
	e.lastSeen = turn.At
	m.mu.Unlock()
}

// SetProductList replaces the committed turn's product list after a LIST or
// COUNT handler has produced the ordered names. No-op when nothing committed.
func (m *Manager) SetProductList(sessionID string, names []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[sessionID]
	if !ok || e.last == nil {
		return
	}
	e.last.ProductList = append([]string(nil), names...)
}

// SetRecommended records the product named by the last RECOMMEND answer, so
// a bare "why?" can be anchored to it. No-op when nothing committed.
func (m *Manager) SetRecommended(sessionID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[sessionID]
	if !ok || e.last == nil {
		return
	}
	e.last.Recommended = name
}

// Reset clears a session ("new conversation").
func (m *Manager) Reset(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}

// Touch marks the session active without committing, so CLARIFY turns still
// defer expiry.
func (m *Manager) Touch(sessionID string) {
	e := m.entryFor(sessionID)
	m.mu.Lock()
	e.lastSeen = time.Now()
	m.mu.Unlock()
}

func (m *Manager) entryFor(sessionID string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[sessionID]
	if !ok {
		e = &entry{lastSeen: time.Now()}
		m.sessions[sessionID] = e
	}
	return e
}

// Run sweeps expired sessions until Stop is called or the interval channel
// closes.
func (m *Manager) Run(interval time.Duration) {
	defer close(m.stoppedCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			if n := m.sweep(); n > 0 {
				slog.Info("expired sessions released", "count", n)
			}
		}
	}
}

func (m *Manager) Stop() {
	close(m.stopCh)
	<-m.stoppedCh
}

func (m *Manager) sweep() int {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	var n int
	for id, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}
