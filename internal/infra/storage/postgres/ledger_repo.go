package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/vietddude/draftsync/internal/core/domain"
	"github.com/vietddude/draftsync/internal/infra/storage"
)

type ledgerRow struct {
	LeagueID        string         `db:"league_id"`
	InitialBudget   int            `db:"initial_budget"`
	RemainingBudget int            `db:"remaining_budget"`
	RosterSlots     pq.StringArray `db:"roster_slots"`
}

type draftedRow struct {
	PlayerID       string         `db:"player_id"`
	PlayerName     string         `db:"player_name"`
	Positions      pq.StringArray `db:"positions"`
	PurchasePrice  int            `db:"purchase_price"`
	ProjectedValue float64        `db:"projected_value"`
	Variance       float64        `db:"variance"`
	DraftedBy      string         `db:"drafted_by"`
	DraftedAt      time.Time      `db:"drafted_at"`
	Source         string         `db:"source"`
}

const uniqueViolation = "23505"

// LedgerRepo implements storage.LedgerRepository using PostgreSQL.
type LedgerRepo struct {
	db *DB
}

// NewLedgerRepo creates a new PostgreSQL ledger repository.
func NewLedgerRepo(db *DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

// Create stores a new, empty ledger.
func (r *LedgerRepo) Create(ctx context.Context, ledger *domain.Ledger) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ledgers (league_id, initial_budget, remaining_budget, roster_slots)
		VALUES ($1, $2, $3, $4)`,
		string(ledger.LeagueID),
		ledger.InitialBudget,
		ledger.RemainingBudget,
		pq.Array(ledger.RosterSlots),
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", storage.ErrLedgerExists, ledger.LeagueID)
	}
	if err != nil {
		return fmt.Errorf("failed to create ledger: %w", err)
	}
	return nil
}

// Get retrieves the ledger with entries in append order.
func (r *LedgerRepo) Get(ctx context.Context, leagueID domain.LeagueID) (*domain.Ledger, error) {
	var head ledgerRow
	err := r.db.GetContext(ctx, &head, `
		SELECT league_id, initial_budget, remaining_budget, roster_slots
		FROM ledgers WHERE league_id = $1`,
		string(leagueID),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrLedgerNotFound, leagueID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}

	var rows []draftedRow
	err = r.db.SelectContext(ctx, &rows, `
		SELECT player_id, player_name, positions, purchase_price, projected_value,
		       variance, drafted_by, drafted_at, source
		FROM drafted_players WHERE league_id = $1 ORDER BY id`,
		string(leagueID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get drafted players: %w", err)
	}

	ledger := &domain.Ledger{
		LeagueID:        domain.LeagueID(head.LeagueID),
		InitialBudget:   head.InitialBudget,
		RemainingBudget: head.RemainingBudget,
		RosterSlots:     []string(head.RosterSlots),
		DraftedPlayers:  make([]domain.DraftedPlayer, 0, len(rows)),
	}
	for _, row := range rows {
		ledger.DraftedPlayers = append(ledger.DraftedPlayers, domain.DraftedPlayer{
			PlayerID:       row.PlayerID,
			PlayerName:     row.PlayerName,
			Positions:      []string(row.Positions),
			PurchasePrice:  row.PurchasePrice,
			ProjectedValue: row.ProjectedValue,
			Variance:       row.Variance,
			DraftedBy:      row.DraftedBy,
			DraftedAt:      row.DraftedAt,
			Source:         domain.PickSource(row.Source),
		})
	}
	return ledger, nil
}

// Append inserts entries and sets the remaining budget in one transaction.
func (r *LedgerRepo) Append(
	ctx context.Context,
	leagueID domain.LeagueID,
	entries []domain.DraftedPlayer,
	remainingBudget int,
) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE ledgers SET remaining_budget = $2 WHERE league_id = $1`,
		string(leagueID), remainingBudget,
	)
	if err != nil {
		return fmt.Errorf("failed to update budget: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", storage.ErrLedgerNotFound, leagueID)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO drafted_players (
			league_id, player_id, player_name, positions, purchase_price,
			projected_value, variance, drafted_by, drafted_at, source
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			string(leagueID),
			e.PlayerID,
			e.PlayerName,
			pq.Array(e.Positions),
			e.PurchasePrice,
			e.ProjectedValue,
			e.Variance,
			e.DraftedBy,
			e.DraftedAt,
			string(e.Source),
		); err != nil {
			return fmt.Errorf("failed to insert drafted player %s: %w", e.PlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit append: %w", err)
	}
	return nil
}

// Delete removes a ledger and its entries.
func (r *LedgerRepo) Delete(ctx context.Context, leagueID domain.LeagueID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM ledgers WHERE league_id = $1`, string(leagueID)); err != nil {
		return fmt.Errorf("failed to delete ledger: %w", err)
	}
	return nil
}
