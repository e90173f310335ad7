package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/vietddude/draftsync/internal/core/domain"
)

// maxResponseBytes caps how much of a draft-room response is read.
const maxResponseBytes = 4 << 20

// HTTPAdapter implements Adapter for a JSON draft-room endpoint.
type HTTPAdapter struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	mu           sync.RWMutex
	successCount int
	failureCount int
	lastLatency  time.Duration
}

// Stats is a snapshot of adapter call counters.
type Stats struct {
	SuccessCount int
	FailureCount int
	LastLatency  time.Duration
}

// NewHTTPAdapter creates a new HTTP draft-room adapter.
func NewHTTPAdapter(baseURL, apiKey string, timeout time.Duration) *HTTPAdapter {
	return &HTTPAdapter{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type wirePick struct {
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Positions  []string  `json:"positions"`
	Price      int       `json:"price"`
	DraftedBy  string    `json:"drafted_by"`
	DraftedAt  time.Time `json:"drafted_at"`
}

type wireAuction struct {
	NominatedPlayerID string `json:"nominated_player_id"`
	CurrentBid        int    `json:"current_bid"`
	HighBidder        string `json:"high_bidder"`
	IsActive          bool   `json:"is_active"`
}

type wireResponse struct {
	Picks   []wirePick   `json:"picks"`
	Auction wireAuction  `json:"auction"`
	Error   *wireFailure `json:"error,omitempty"`
}

type wireFailure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Sync fetches picks from the draft room.
func (a *HTTPAdapter) Sync(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	start := time.Now()

	endpoint, err := url.JoinPath(a.baseURL, "rooms", req.RoomID, "sync")
	if err != nil {
		a.recordFailure()
		return nil, &StructuredError{Code: domain.CodeValidationError, Message: err.Error()}
	}

	q := url.Values{}
	q.Set("league_id", string(req.LeagueID))
	if req.LastSyncTimestamp != nil {
		q.Set("since", req.LastSyncTimestamp.UTC().Format(time.RFC3339Nano))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		a.recordFailure()
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if a.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		a.recordFailure()
		return nil, fmt.Errorf("network request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		a.recordFailure()
		return nil, fmt.Errorf("read response (connection dropped): %w", err)
	}
	if len(body) > maxResponseBytes {
		a.recordFailure()
		return nil, &StructuredError{
			Code:    domain.CodeParseError,
			Message: fmt.Sprintf("response exceeds %d bytes", maxResponseBytes),
		}
	}

	var decoded wireResponse
	decodeErr := json.Unmarshal(body, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		a.recordFailure()
		if decodeErr == nil && decoded.Error != nil && decoded.Error.Code != "" {
			return nil, &StructuredError{
				Code:    domain.ErrorCode(decoded.Error.Code),
				Message: decoded.Error.Message,
			}
		}
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}

	if decodeErr != nil {
		a.recordFailure()
		return nil, &StructuredError{Code: domain.CodeParseError, Message: decodeErr.Error()}
	}
	if decoded.Error != nil && decoded.Error.Code != "" {
		a.recordFailure()
		return nil, &StructuredError{
			Code:    domain.ErrorCode(decoded.Error.Code),
			Message: decoded.Error.Message,
		}
	}

	result := &SyncResult{
		Picks: make([]domain.Pick, 0, len(decoded.Picks)),
		AuctionInfo: domain.AuctionInfo{
			NominatedPlayerID: decoded.Auction.NominatedPlayerID,
			CurrentBid:        decoded.Auction.CurrentBid,
			HighBidder:        decoded.Auction.HighBidder,
			IsActive:          decoded.Auction.IsActive,
			ObservedAt:        time.Now(),
		},
	}
	for _, p := range decoded.Picks {
		result.Picks = append(result.Picks, domain.Pick{
			PlayerID:   p.PlayerID,
			PlayerName: p.PlayerName,
			Positions:  p.Positions,
			Price:      p.Price,
			DraftedBy:  p.DraftedBy,
			DraftedAt:  p.DraftedAt,
		})
	}

	a.recordSuccess(time.Since(start))
	return result, nil
}

// Stats returns call counters.
func (a *HTTPAdapter) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Stats{
		SuccessCount: a.successCount,
		FailureCount: a.failureCount,
		LastLatency:  a.lastLatency,
	}
}

func (a *HTTPAdapter) recordSuccess(latency time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.successCount++
	a.lastLatency = latency
}

func (a *HTTPAdapter) recordFailure() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failureCount++
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
