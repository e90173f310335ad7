package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vietddude/draftsync/internal/core/domain"
)

// Publisher emits sync events on a per-league pub/sub channel.
type Publisher struct {
	client *Client
}

// NewPublisher creates an event publisher on top of client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Emit publishes the event as JSON on draftsync:events:<league>.
func (p *Publisher) Emit(ctx context.Context, event *domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.client.rdb.Publish(ctx, eventChannel(event.LeagueID), data).Err(); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}

// Close is a no-op; the underlying client is owned by the caller.
func (p *Publisher) Close() error {
	return nil
}
