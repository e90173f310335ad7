package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/draftsync/internal/core/domain"
)

// Emitter defines the interface for emitting sync events
type Emitter interface {
	// Emit sends a single event
	Emit(ctx context.Context, event *domain.Event) error

	// Close releases the emitter's resources
	Close() error
}

// New creates an event with a fresh id.
func New(eventType domain.EventType, leagueID domain.LeagueID) *domain.Event {
	return &domain.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		LeagueID:  leagueID,
		EmittedAt: time.Now(),
	}
}

// CaughtUp creates a caught-up event for count picks applied in one pass.
func CaughtUp(leagueID domain.LeagueID, count int) *domain.Event {
	e := New(domain.EventTypeCaughtUp, leagueID)
	e.Count = count
	return e
}

// TimeoutWarning creates a soft timeout warning for a call running for elapsed.
func TimeoutWarning(leagueID domain.LeagueID, elapsed time.Duration) *domain.Event {
	e := New(domain.EventTypeSyncTimeoutWarning, leagueID)
	e.Elapsed = elapsed
	return e
}

// LogEmitter writes events to the structured log.
type LogEmitter struct {
	log *slog.Logger
}

func NewLogEmitter() *LogEmitter {
	return &LogEmitter{log: slog.Default().With("component", "events")}
}

func (e *LogEmitter) Emit(ctx context.Context, event *domain.Event) error {
	switch event.Type {
	case domain.EventTypeSyncTimeoutWarning:
		e.log.Warn("Sync exceeded soft timeout",
			"league", event.LeagueID,
			"elapsed", event.Elapsed,
			"id", event.ID,
		)
	default:
		e.log.Info("Sync event",
			"type", event.Type,
			"league", event.LeagueID,
			"count", event.Count,
			"id", event.ID,
		)
	}
	return nil
}

func (e *LogEmitter) Close() error {
	return nil
}
