package domain

import "time"

// AuctionInfo is the draft room's view of the live auction at sync time.
type AuctionInfo struct {
	NominatedPlayerID string    `json:"nominated_player_id,omitempty"`
	CurrentBid        int       `json:"current_bid,omitempty"`
	HighBidder        string    `json:"high_bidder,omitempty"`
	IsActive          bool      `json:"is_active"`
	ObservedAt        time.Time `json:"observed_at"`
}
