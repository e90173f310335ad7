package domain

import "time"

// Event represents a notification emitted by the sync pipeline.
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	LeagueID  LeagueID      `json:"league_id"`
	Count     int           `json:"count,omitempty"`
	Elapsed   time.Duration `json:"elapsed,omitempty"`
	EmittedAt time.Time     `json:"emitted_at"`
}

type EventType string

const (
	EventTypeCaughtUp           EventType = "caught-up"
	EventTypeSyncTimeoutWarning EventType = "sync-timeout-warning"
)
