package control

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/draftsync/internal/core/domain"
	"github.com/vietddude/draftsync/internal/reconcile/orchestrator"
)

const (
	healthCacheTTL     = 2 * time.Second
	prepareConcurrency = 4
)

func (s *Service) known(leagueID domain.LeagueID) error {
	if _, ok := s.leagues[leagueID]; !ok {
		return fmt.Errorf("%w: %s", orchestrator.ErrUnknownLeague, leagueID)
	}
	return nil
}

// Status returns the league's sync status.
func (s *Service) Status(ctx context.Context, leagueID domain.LeagueID) (*domain.SyncStatus, error) {
	if err := s.known(leagueID); err != nil {
		return nil, err
	}
	return s.tracker.Get(ctx, leagueID)
}

// Ledger returns the league's ledger.
func (s *Service) Ledger(ctx context.Context, leagueID domain.LeagueID) (*domain.Ledger, error) {
	if err := s.known(leagueID); err != nil {
		return nil, err
	}
	return s.ledgers.Get(ctx, leagueID)
}

// Inflation returns the stored inflation state. When none exists locally it
// falls back to the shared mirror, then computes it.
func (s *Service) Inflation(ctx context.Context, leagueID domain.LeagueID) (*domain.InflationState, error) {
	if err := s.known(leagueID); err != nil {
		return nil, err
	}
	state, err := s.inflation.Get(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if state != nil {
		return state, nil
	}
	// Another instance may already have published a state for this league.
	if s.mirror != nil {
		mirrored, err := s.mirror.GetInflation(ctx, leagueID)
		if err != nil {
			s.log.Warn("Failed to read inflation mirror", "league", leagueID, "error", err)
		} else if mirrored != nil {
			return mirrored, nil
		}
	}
	return s.recomputer.Recompute(ctx, leagueID)
}

// AuctionInfo returns the latest auction snapshot, nil before the first sync.
func (s *Service) AuctionInfo(leagueID domain.LeagueID) (*domain.AuctionInfo, error) {
	if err := s.known(leagueID); err != nil {
		return nil, err
	}
	return s.orch.AuctionInfo(leagueID), nil
}

// SyncNow runs an on-demand sync cycle.
func (s *Service) SyncNow(ctx context.Context, leagueID domain.LeagueID) (*orchestrator.Result, error) {
	return s.orch.SyncNow(ctx, leagueID)
}

// SetManualMode toggles manual entry. Disabling hands the league back to the
// feed and wakes its loop immediately.
func (s *Service) SetManualMode(ctx context.Context, leagueID domain.LeagueID, enabled bool) (*domain.SyncStatus, error) {
	if err := s.known(leagueID); err != nil {
		return nil, err
	}
	if enabled {
		return s.tracker.EnableManualMode(ctx, leagueID)
	}
	status, err := s.tracker.DisableManualMode(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if err := s.orch.Resume(leagueID); err != nil {
		return nil, err
	}
	return status, nil
}

// AddManualPick records a pick entered by an operator.
func (s *Service) AddManualPick(ctx context.Context, leagueID domain.LeagueID, pick domain.Pick) (*domain.DraftedPlayer, error) {
	if err := s.known(leagueID); err != nil {
		return nil, err
	}
	return s.ledgers.AddManualPick(ctx, leagueID, pick)
}

// Subscribe returns a channel of emitted events and its cancel func.
func (s *Service) Subscribe(buffer int) (<-chan *domain.Event, func()) {
	return s.bus.Subscribe(buffer)
}
