package syncstatus

import (
	"time"

	"github.com/vietddude/draftsync/internal/core/domain"
)

// State is an alias for domain.ConnectionState for internal use.
type State = domain.ConnectionState

// Transition represents a change of derived connection state.
type Transition struct {
	From      State
	To        State
	Reason    string
	Timestamp time.Time
}

// NewTransition creates a new transition record.
func NewTransition(from, to State, reason string) Transition {
	return Transition{
		From:      from,
		To:        to,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// Changed reports whether the transition moved to a different state.
func (t Transition) Changed() bool {
	return t.From != t.To
}

// StateDescription returns a human-readable description of a state.
func StateDescription(s State) string {
	switch s {
	case domain.StateConnected:
		return "Connected - picks sync automatically"
	case domain.StateReconnecting:
		return "Reconnecting - recent sync failed, retrying"
	case domain.StateDisconnected:
		return "Disconnected - draft room unreachable"
	case domain.StateManual:
		return "Manual - enter picks by hand"
	default:
		return "Unknown state"
	}
}
