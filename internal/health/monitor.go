package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/draftsync/internal/core/domain"
)

// StatusReader reads a league's sync status.
type StatusReader interface {
	Get(ctx context.Context, leagueID domain.LeagueID) (*domain.SyncStatus, error)
}

// LeagueRegistry lists the registered leagues and their loop state.
type LeagueRegistry interface {
	Leagues() []domain.League
	IsParked(leagueID domain.LeagueID) bool
}

// Monitor aggregates per-league health from the status tracker.
type Monitor struct {
	statuses StatusReader
	leagues  LeagueRegistry
	ttl      time.Duration

	feedStats func() FeedHealth

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport map[domain.LeagueID]LeagueHealth
}

// NewMonitor creates a new health monitor. Reports are cached for ttl.
func NewMonitor(statuses StatusReader, leagues LeagueRegistry, ttl time.Duration) *Monitor {
	return &Monitor{
		statuses:   statuses,
		leagues:    leagues,
		ttl:        ttl,
		lastReport: make(map[domain.LeagueID]LeagueHealth),
	}
}

// SetFeedStats registers the source of feed call counters for detailed reports.
func (m *Monitor) SetFeedStats(fn func() FeedHealth) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedStats = fn
}

// FeedStats returns the current feed counters, or nil when no feed is wired.
func (m *Monitor) FeedStats() *FeedHealth {
	m.mu.Lock()
	fn := m.feedStats
	m.mu.Unlock()
	if fn == nil {
		return nil
	}
	st := fn()
	return &st
}

// CheckHealth performs a health check for all leagues.
func (m *Monitor) CheckHealth(ctx context.Context) map[domain.LeagueID]LeagueHealth {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ttl > 0 && time.Since(m.lastCheck) < m.ttl && len(m.lastReport) > 0 {
		return m.lastReport
	}

	report := make(map[domain.LeagueID]LeagueHealth)
	for _, league := range m.leagues.Leagues() {
		h := LeagueHealth{
			LeagueID: league.ID,
			Parked:   m.leagues.IsParked(league.ID),
		}

		status, err := m.statuses.Get(ctx, league.ID)
		if err != nil || status == nil {
			// Can't read the status store; report the league but don't guess its state.
			h.State = domain.StateDisconnected
			h.Status = StatusDegraded
			report[league.ID] = h
			continue
		}

		h.State = status.ConnectionState()
		h.Status = statusFor(h.State)
		h.FailureCount = status.FailureCount
		h.ErrorCode = status.ErrorCode
		h.LastSync = status.LastSync
		report[league.ID] = h
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
