// Package session keeps per-connection chat state.
package session

import (
	"sync"

	"github.com/chitieu/finbot/core"
)

// DefaultMaxExchanges is the history cap used when none is configured.
const DefaultMaxExchanges = 10

// History is a bounded, FIFO list of (user, assistant) exchanges. It is
// safe for concurrent use.
type History struct {
	mu           sync.Mutex
	maxExchanges int
	turns        []core.ChatTurn
}

// NewHistory creates a history holding at most maxExchanges exchanges.
func NewHistory(maxExchanges int) *History {
	if maxExchanges <= 0 {
		maxExchanges = DefaultMaxExchanges
	}
	return &History{
		maxExchanges: maxExchanges,
		turns:        make([]core.ChatTurn, 0, 2*maxExchanges),
	}
}

// Append records one exchange, evicting the oldest ones beyond the cap.
func (h *History) Append(user, assistant string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns,
		core.ChatTurn{Role: core.RoleUser, Text: user},
		core.ChatTurn{Role: core.RoleAssistant, Text: assistant},
	)
	if excess := len(h.turns) - 2*h.maxExchanges; excess > 0 {
		h.turns = append(h.turns[:0:0], h.turns[excess:]...)
	}
}

// Turns returns a copy of the history, oldest first.
func (h *History) Turns() []core.ChatTurn {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]core.ChatTurn(nil), h.turns...)
}

// Len returns the number of stored exchanges.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns) / 2
}

// Reset clears the history.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = h.turns[:0]
}
