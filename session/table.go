package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chitieu/finbot/metrics"
)

// Session is one open conversation.
type Session struct {
	ID        string
	OwnerID   string
	History   *History
	CreatedAt time.Time
}

// Table maps session ids to open sessions.
type Table struct {
	mu           sync.RWMutex
	sessions     map[string]*Session
	maxExchanges int
}

// NewTable creates an empty table whose sessions keep maxExchanges exchanges.
func NewTable(maxExchanges int) *Table {
	return &Table{
		sessions:     make(map[string]*Session),
		maxExchanges: maxExchanges,
	}
}

// Open starts a session for an owner.
func (t *Table) Open(ownerID string) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		History:   NewHistory(t.maxExchanges),
		CreatedAt: time.Now(),
	}

	t.mu.Lock()
	t.sessions[s.ID] = s
	t.mu.Unlock()

	metrics.ActiveSessions.Inc()
	return s
}

// Close evicts a session. Closing an unknown id is a no-op.
func (t *Table) Close(id string) {
	t.mu.Lock()
	_, ok := t.sessions[id]
	delete(t.sessions, id)
	t.mu.Unlock()

	if ok {
		metrics.ActiveSessions.Dec()
	}
}

// Len returns the number of open sessions.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}
