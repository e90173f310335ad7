package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/draftsync/internal/core/domain"
)

// SyncRequest identifies what to reconcile.
type SyncRequest struct {
	RoomID            string
	LeagueID          domain.LeagueID
	LastSyncTimestamp *time.Time
}

// SyncResult is the feed's answer: picks in draft order plus the live auction view.
type SyncResult struct {
	Picks       []domain.Pick
	AuctionInfo domain.AuctionInfo
}

// Adapter talks to the external draft room.
type Adapter interface {
	// Sync returns picks made since LastSyncTimestamp, in feed order.
	Sync(ctx context.Context, req SyncRequest) (*SyncResult, error)
}

// StructuredError is a failure the draft room reported with a code.
type StructuredError struct {
	Code    domain.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

func (e *StructuredError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HTTPStatusError is a non-2xx response without a structured body.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

// AdapterFunc adapts a function to the Adapter interface.
type AdapterFunc func(ctx context.Context, req SyncRequest) (*SyncResult, error)

func (f AdapterFunc) Sync(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	return f(ctx, req)
}
