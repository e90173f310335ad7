package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vietddude/draftsync/internal/core/domain"
)

type statusRow struct {
	LeagueID      string         `db:"league_id"`
	IsConnected   bool           `db:"is_connected"`
	IsSyncing     bool           `db:"is_syncing"`
	IsManualMode  bool           `db:"is_manual_mode"`
	FailureCount  int            `db:"failure_count"`
	FailureType   string         `db:"failure_type"`
	ErrorCode     string         `db:"error_code"`
	Error         sql.NullString `db:"error"`
	LastSync      sql.NullTime   `db:"last_sync"`
	LastFailureAt sql.NullTime   `db:"last_failure_at"`
}

func (r statusRow) toDomain() *domain.SyncStatus {
	s := &domain.SyncStatus{
		LeagueID:     domain.LeagueID(r.LeagueID),
		IsConnected:  r.IsConnected,
		IsSyncing:    r.IsSyncing,
		IsManualMode: r.IsManualMode,
		FailureCount: r.FailureCount,
		FailureType:  domain.FailureType(r.FailureType),
		ErrorCode:    domain.ErrorCode(r.ErrorCode),
	}
	if r.Error.Valid {
		msg := r.Error.String
		s.Error = &msg
	}
	if r.LastSync.Valid {
		t := r.LastSync.Time
		s.LastSync = &t
	}
	if r.LastFailureAt.Valid {
		t := r.LastFailureAt.Time
		s.LastFailureTimestamp = &t
	}
	return s
}

const selectStatus = `
	SELECT league_id, is_connected, is_syncing, is_manual_mode, failure_count,
	       failure_type, error_code, error, last_sync, last_failure_at
	FROM sync_status`

// SyncStatusRepo implements storage.SyncStatusRepository using PostgreSQL.
type SyncStatusRepo struct {
	db *DB
}

// NewSyncStatusRepo creates a new PostgreSQL sync status repository.
func NewSyncStatusRepo(db *DB) *SyncStatusRepo {
	return &SyncStatusRepo{db: db}
}

// Get retrieves the status of a league.
func (r *SyncStatusRepo) Get(ctx context.Context, leagueID domain.LeagueID) (*domain.SyncStatus, error) {
	var row statusRow
	err := r.db.GetContext(ctx, &row, selectStatus+` WHERE league_id = $1`, string(leagueID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync status: %w", err)
	}
	return row.toDomain(), nil
}

// Update applies fn under a row lock in one transaction.
func (r *SyncStatusRepo) Update(
	ctx context.Context,
	leagueID domain.LeagueID,
	fn func(status *domain.SyncStatus) error,
) (*domain.SyncStatus, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Make sure the row exists so FOR UPDATE has something to lock
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sync_status (league_id) VALUES ($1) ON CONFLICT (league_id) DO NOTHING`,
		string(leagueID),
	); err != nil {
		return nil, fmt.Errorf("failed to create sync status: %w", err)
	}

	var row statusRow
	if err := tx.GetContext(ctx, &row, selectStatus+` WHERE league_id = $1 FOR UPDATE`, string(leagueID)); err != nil {
		return nil, fmt.Errorf("failed to lock sync status: %w", err)
	}

	status := row.toDomain()
	if err := fn(status); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sync_status SET
			is_connected = $2, is_syncing = $3, is_manual_mode = $4, failure_count = $5,
			failure_type = $6, error_code = $7, error = $8, last_sync = $9, last_failure_at = $10
		WHERE league_id = $1`,
		string(leagueID),
		status.IsConnected,
		status.IsSyncing,
		status.IsManualMode,
		status.FailureCount,
		string(status.FailureType),
		string(status.ErrorCode),
		status.Error,
		status.LastSync,
		status.LastFailureTimestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update sync status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sync status: %w", err)
	}
	return status, nil
}

// Delete removes the status of a league.
func (r *SyncStatusRepo) Delete(ctx context.Context, leagueID domain.LeagueID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_status WHERE league_id = $1`, string(leagueID)); err != nil {
		return fmt.Errorf("failed to delete sync status: %w", err)
	}
	return nil
}

// List returns every stored status ordered by league.
func (r *SyncStatusRepo) List(ctx context.Context) ([]*domain.SyncStatus, error) {
	var rows []statusRow
	if err := r.db.SelectContext(ctx, &rows, selectStatus+` ORDER BY league_id`); err != nil {
		return nil, fmt.Errorf("failed to list sync status: %w", err)
	}
	out := make([]*domain.SyncStatus, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
