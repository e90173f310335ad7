// Package health exposes league sync health over HTTP and gRPC, plus the
// operator API for on-demand sync, manual mode and manual pick entry.
package health

import (
	"time"

	"github.com/vietddude/draftsync/internal/core/domain"
)

// SystemStatus represents the overall health state of the system or a league.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// LeagueHealth contains the sync health of a single league.
type LeagueHealth struct {
	LeagueID     domain.LeagueID        `json:"league_id"`
	Status       SystemStatus           `json:"status"`
	State        domain.ConnectionState `json:"state"`
	FailureCount int                    `json:"failure_count"`
	ErrorCode    domain.ErrorCode       `json:"error_code,omitempty"`
	Parked       bool                   `json:"parked"`
	LastSync     *time.Time             `json:"last_sync"`
}

// FeedHealth summarizes calls made to the draft-room feed.
type FeedHealth struct {
	SuccessCount  int   `json:"success_count"`
	FailureCount  int   `json:"failure_count"`
	LastLatencyMs int64 `json:"last_latency_ms"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus                     `json:"system_status"`
	Leagues      map[domain.LeagueID]LeagueHealth `json:"leagues"`
	Feed         *FeedHealth                      `json:"feed,omitempty"`
}

// statusFor maps a connection state onto a health status.
func statusFor(state domain.ConnectionState) SystemStatus {
	switch state {
	case domain.StateConnected:
		return StatusHealthy
	case domain.StateReconnecting, domain.StateManual:
		return StatusDegraded
	default:
		return StatusCritical
	}
}

// Aggregate returns the worst status in report.
func Aggregate(report map[domain.LeagueID]LeagueHealth) SystemStatus {
	status := StatusHealthy
	for _, l := range report {
		if l.Status == StatusCritical {
			return StatusCritical
		}
		if l.Status == StatusDegraded {
			status = StatusDegraded
		}
	}
	return status
}
