package domain

import "time"

// FailureType classifies the most recent sync failure.
type FailureType string

const (
	FailureTypeNone       FailureType = "none"
	FailureTypeTransient  FailureType = "transient"
	FailureTypePersistent FailureType = "persistent"
)

// ConnectionState is the displayed connection state derived from a SyncStatus.
type ConnectionState string

const (
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
	StateDisconnected ConnectionState = "disconnected"
	StateManual       ConnectionState = "manual"
)

// ManualModeThreshold is the number of consecutive transient failures after which
// automatic reconciliation hands over to manual entry.
const ManualModeThreshold = 3

// SyncStatus records the health of a league's feed synchronization.
type SyncStatus struct {
	LeagueID             LeagueID    `json:"league_id"`
	IsConnected          bool        `json:"is_connected"`
	IsSyncing            bool        `json:"is_syncing"`
	IsManualMode         bool        `json:"is_manual_mode"`
	FailureCount         int         `json:"failure_count"`
	FailureType          FailureType `json:"failure_type"`
	ErrorCode            ErrorCode   `json:"error_code,omitempty"`
	Error                *string     `json:"error"`
	LastSync             *time.Time  `json:"last_sync"`
	LastFailureTimestamp *time.Time  `json:"last_failure_timestamp"`
}

// NewSyncStatus returns the default status used on first access.
func NewSyncStatus(leagueID LeagueID) *SyncStatus {
	return &SyncStatus{
		LeagueID:    leagueID,
		FailureType: FailureTypeNone,
	}
}

// DeriveConnectionState maps the three inputs onto a displayed state.
// Priority: manual > connected > reconnecting > disconnected.
func DeriveConnectionState(isManualMode, isConnected bool, failureCount int) ConnectionState {
	switch {
	case isManualMode:
		return StateManual
	case isConnected && failureCount == 0:
		return StateConnected
	case failureCount >= 1 && failureCount < ManualModeThreshold:
		return StateReconnecting
	default:
		return StateDisconnected
	}
}

// ConnectionState derives the displayed state of s.
func (s *SyncStatus) ConnectionState() ConnectionState {
	return DeriveConnectionState(s.IsManualMode, s.IsConnected, s.FailureCount)
}

// Clone returns a deep copy so callers can't mutate repository state.
func (s *SyncStatus) Clone() *SyncStatus {
	c := *s
	if s.Error != nil {
		msg := *s.Error
		c.Error = &msg
	}
	if s.LastSync != nil {
		t := *s.LastSync
		c.LastSync = &t
	}
	if s.LastFailureTimestamp != nil {
		t := *s.LastFailureTimestamp
		c.LastFailureTimestamp = &t
	}
	return &c
}
