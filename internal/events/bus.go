package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/vietddude/draftsync/internal/core/domain"
)

// Bus fans events out to in-process subscribers and downstream emitters.
// Subscribers that fall behind lose events rather than block the sync loop.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan *domain.Event
	nextID int
	sinks  []Emitter
	log    *slog.Logger
}

func NewBus(sinks ...Emitter) *Bus {
	return &Bus{
		subs:  make(map[int]chan *domain.Event),
		sinks: sinks,
		log:   slog.Default().With("component", "events"),
	}
}

// Subscribe returns a channel receiving every emitted event and a function
// that unsubscribes and closes it.
func (b *Bus) Subscribe(buffer int) (<-chan *domain.Event, func()) {
	ch := make(chan *domain.Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
}

// Emit delivers event to every subscriber and sink. Sink errors are joined.
func (b *Bus) Emit(ctx context.Context, event *domain.Event) error {
	b.mu.RLock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.log.Warn("Dropping event for slow subscriber", "type", event.Type, "league", event.LeagueID)
		}
	}
	sinks := b.sinks
	b.mu.RUnlock()

	var errs []error
	for _, s := range sinks {
		if err := s.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and subscriber channel.
func (b *Bus) Close() error {
	b.mu.Lock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	sinks := b.sinks
	b.sinks = nil
	b.mu.Unlock()

	var errs []error
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
