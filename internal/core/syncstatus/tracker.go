// Package syncstatus tracks the feed connection health of each league.
//
// # Purpose
//
// Every league carries one SyncStatus record: whether the last sync succeeded,
// how many consecutive failures have happened, what kind of failure it was and
// whether a human has taken over pick entry (manual mode).
//
// # State Machine
//
// The displayed state is derived, never stored:
//
//	manual        isManualMode (wins over everything)
//	connected     isConnected and failureCount == 0
//	reconnecting  1 <= failureCount < 3
//	disconnected  failureCount >= 3, or never connected
//
// Transitions are driven by exactly one event at a time:
//
//	RecordSuccess  failures cleared, connected, lastSync = now
//	RecordFailure  failureCount + 1, maybe escalate to manual
//	MarkDisconnected  no feed configured, streak unchanged
//	Enable/DisableManualMode  explicit operator toggles
//
// A success never clears manual mode. Only DisableManualMode (or Reset) does.
//
// # Isolation
//
// Each operation is a single atomic read-modify-write of one league's entry in
// the repository; no operation reads or writes another league.
package syncstatus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vietddude/draftsync/internal/core/domain"
	"github.com/vietddude/draftsync/internal/infra/storage"
	"github.com/vietddude/draftsync/internal/reconcile/classifier"
)

// ManualModePolicy decides whether a failure escalates to manual mode.
type ManualModePolicy interface {
	ShouldEnableManualMode(cl domain.ErrorClassification, failureCount int) bool
}

// Tracker records per-league sync status transitions.
type Tracker struct {
	repo   storage.SyncStatusRepository
	policy ManualModePolicy
	now    func() time.Time

	mu            sync.RWMutex
	stateCallback func(domain.LeagueID, Transition)
}

// NewTracker creates a tracker backed by repo. A nil policy uses the default classifier.
func NewTracker(repo storage.SyncStatusRepository, policy ManualModePolicy) *Tracker {
	if policy == nil {
		policy = classifier.Default
	}
	return &Tracker{
		repo:   repo,
		policy: policy,
		now:    time.Now,
	}
}

// SetStateChangeCallback registers fn, called whenever the derived state changes.
func (t *Tracker) SetStateChangeCallback(fn func(leagueID domain.LeagueID, tr Transition)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stateCallback = fn
}

// Get returns the league's status, creating the default on first access.
func (t *Tracker) Get(ctx context.Context, leagueID domain.LeagueID) (*domain.SyncStatus, error) {
	status, err := t.repo.Get(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync status: %w", err)
	}
	if status != nil {
		return status, nil
	}
	status, err = t.repo.Update(ctx, leagueID, func(*domain.SyncStatus) error { return nil })
	if err != nil {
		return nil, fmt.Errorf("failed to create sync status: %w", err)
	}
	return status, nil
}

// List returns all known statuses.
func (t *Tracker) List(ctx context.Context) ([]*domain.SyncStatus, error) {
	return t.repo.List(ctx)
}

// MarkSyncing flags whether a sync cycle is in flight.
func (t *Tracker) MarkSyncing(ctx context.Context, leagueID domain.LeagueID, syncing bool) error {
	_, err := t.apply(ctx, leagueID, "syncing flag", func(s *domain.SyncStatus) {
		s.IsSyncing = syncing
	})
	return err
}

// RecordSuccess clears failure state and marks the league connected.
// Manual mode is left as is.
func (t *Tracker) RecordSuccess(ctx context.Context, leagueID domain.LeagueID) (*domain.SyncStatus, error) {
	now := t.now()
	return t.apply(ctx, leagueID, "sync succeeded", func(s *domain.SyncStatus) {
		s.FailureCount = 0
		s.FailureType = domain.FailureTypeNone
		s.ErrorCode = domain.CodeNone
		s.Error = nil
		s.IsConnected = true
		s.IsSyncing = false
		s.LastSync = &now
	})
}

// RecordFailure counts one failure and escalates to manual mode when the policy says so.
func (t *Tracker) RecordFailure(
	ctx context.Context,
	leagueID domain.LeagueID,
	cl domain.ErrorClassification,
	message string,
) (*domain.SyncStatus, error) {
	now := t.now()
	reason := fmt.Sprintf("sync failed: %s", cl.Code)
	return t.apply(ctx, leagueID, reason, func(s *domain.SyncStatus) {
		s.FailureCount++
		s.FailureType = cl.Type
		s.ErrorCode = cl.Code
		msg := message
		s.Error = &msg
		s.IsConnected = false
		s.IsSyncing = false
		s.LastFailureTimestamp = &now
		if t.policy.ShouldEnableManualMode(cl, s.FailureCount) {
			s.IsManualMode = true
		}
	})
}

// MarkDisconnected records that the league cannot be synced at all, e.g. it has
// no draft room configured. The failure streak is left untouched.
func (t *Tracker) MarkDisconnected(ctx context.Context, leagueID domain.LeagueID, message string) (*domain.SyncStatus, error) {
	return t.apply(ctx, leagueID, "not configured", func(s *domain.SyncStatus) {
		s.IsConnected = false
		s.IsSyncing = false
		msg := message
		s.Error = &msg
	})
}

// EnableManualMode switches the league to manual entry.
func (t *Tracker) EnableManualMode(ctx context.Context, leagueID domain.LeagueID) (*domain.SyncStatus, error) {
	return t.apply(ctx, leagueID, "manual mode enabled", func(s *domain.SyncStatus) {
		s.IsManualMode = true
	})
}

// DisableManualMode hands the league back to automatic sync.
func (t *Tracker) DisableManualMode(ctx context.Context, leagueID domain.LeagueID) (*domain.SyncStatus, error) {
	return t.apply(ctx, leagueID, "manual mode disabled", func(s *domain.SyncStatus) {
		s.IsManualMode = false
	})
}

// Reset clears failures and manual mode for one league. lastSync is kept.
func (t *Tracker) Reset(ctx context.Context, leagueID domain.LeagueID) (*domain.SyncStatus, error) {
	return t.apply(ctx, leagueID, "status reset", func(s *domain.SyncStatus) {
		s.FailureCount = 0
		s.FailureType = domain.FailureTypeNone
		s.ErrorCode = domain.CodeNone
		s.Error = nil
		s.IsManualMode = false
		s.IsSyncing = false
		s.LastFailureTimestamp = nil
	})
}

// Remove deletes the league's status. Used on league removal only.
func (t *Tracker) Remove(ctx context.Context, leagueID domain.LeagueID) error {
	if err := t.repo.Delete(ctx, leagueID); err != nil {
		return fmt.Errorf("failed to delete sync status: %w", err)
	}
	return nil
}

func (t *Tracker) apply(
	ctx context.Context,
	leagueID domain.LeagueID,
	reason string,
	mutate func(*domain.SyncStatus),
) (*domain.SyncStatus, error) {
	var from State
	updated, err := t.repo.Update(ctx, leagueID, func(s *domain.SyncStatus) error {
		from = s.ConnectionState()
		mutate(s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update sync status: %w", err)
	}

	transition := NewTransition(from, updated.ConnectionState(), reason)
	if transition.Changed() {
		t.mu.RLock()
		cb := t.stateCallback
		t.mu.RUnlock()
		if cb != nil {
			cb(leagueID, transition)
		}
	}
	return updated, nil
}
