package storage

import (
	"context"
	"errors"

	"github.com/vietddude/draftsync/internal/core/domain"
)

var (
	// ErrLedgerNotFound is returned when a league has no initialized ledger.
	ErrLedgerNotFound = errors.New("ledger not found")

	// ErrLedgerExists is returned when initializing a ledger twice.
	ErrLedgerExists = errors.New("ledger already exists")
)

// SyncStatusRepository stores per-league sync status.
type SyncStatusRepository interface {
	// Get retrieves the status for a league. Returns nil, nil when absent.
	Get(ctx context.Context, leagueID domain.LeagueID) (*domain.SyncStatus, error)

	// Update atomically applies fn to the league's status, creating the default
	// status first when absent. Only the given league's entry is touched.
	Update(
		ctx context.Context,
		leagueID domain.LeagueID,
		fn func(status *domain.SyncStatus) error,
	) (*domain.SyncStatus, error)

	// Delete removes the status of a league (league removal only).
	Delete(ctx context.Context, leagueID domain.LeagueID) error

	// List returns every stored status.
	List(ctx context.Context) ([]*domain.SyncStatus, error)
}

// LedgerRepository stores append-only draft ledgers.
type LedgerRepository interface {
	// Create stores a new, empty ledger.
	Create(ctx context.Context, ledger *domain.Ledger) error

	// Get retrieves a copy of the ledger for a league.
	Get(ctx context.Context, leagueID domain.LeagueID) (*domain.Ledger, error)

	// Append adds entries to the end of the ledger and sets the remaining budget
	// in one atomic operation.
	Append(
		ctx context.Context,
		leagueID domain.LeagueID,
		entries []domain.DraftedPlayer,
		remainingBudget int,
	) error

	// Delete removes a ledger (league removal only).
	Delete(ctx context.Context, leagueID domain.LeagueID) error
}

// ProjectionRepository provides read-only projection snapshots.
type ProjectionRepository interface {
	// List returns every projection for a league.
	List(ctx context.Context, leagueID domain.LeagueID) ([]domain.Projection, error)

	// Save replaces the projection set of a league.
	Save(ctx context.Context, leagueID domain.LeagueID, projections []domain.Projection) error
}

// InflationStore holds the most recent inflation computation per league.
type InflationStore interface {
	Put(ctx context.Context, state *domain.InflationState) error
	Get(ctx context.Context, leagueID domain.LeagueID) (*domain.InflationState, error)
}
