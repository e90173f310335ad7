package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/vietddude/draftsync/internal/core/domain"
)

type projectionRow struct {
	PlayerID       string         `db:"player_id"`
	PlayerName     string         `db:"player_name"`
	ProjectedValue float64        `db:"projected_value"`
	Positions      pq.StringArray `db:"positions"`
	Tier           int            `db:"tier"`
}

// ProjectionRepo implements storage.ProjectionRepository using PostgreSQL.
type ProjectionRepo struct {
	db *DB
}

// NewProjectionRepo creates a new PostgreSQL projection repository.
func NewProjectionRepo(db *DB) *ProjectionRepo {
	return &ProjectionRepo{db: db}
}

// List returns every projection of a league.
func (r *ProjectionRepo) List(ctx context.Context, leagueID domain.LeagueID) ([]domain.Projection, error) {
	var rows []projectionRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT player_id, player_name, projected_value, positions, tier
		FROM projections WHERE league_id = $1 ORDER BY player_id`,
		string(leagueID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projections: %w", err)
	}

	out := make([]domain.Projection, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Projection{
			PlayerID:       row.PlayerID,
			PlayerName:     row.PlayerName,
			ProjectedValue: row.ProjectedValue,
			Positions:      []string(row.Positions),
			Tier:           row.Tier,
		})
	}
	return out, nil
}

// Save replaces the projection set of a league.
func (r *ProjectionRepo) Save(ctx context.Context, leagueID domain.LeagueID, projections []domain.Projection) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM projections WHERE league_id = $1`, string(leagueID)); err != nil {
		return fmt.Errorf("failed to clear projections: %w", err)
	}

	for _, p := range projections {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projections (league_id, player_id, player_name, projected_value, positions, tier)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			string(leagueID), p.PlayerID, p.PlayerName, p.ProjectedValue, pq.Array(p.Positions), p.Tier,
		)
		if err != nil {
			return fmt.Errorf("failed to insert projection %s: %w", p.PlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit projections: %w", err)
	}
	return nil
}

// InflationStore implements storage.InflationStore using a JSONB column.
type InflationStore struct {
	db *DB
}

// NewInflationStore creates a new PostgreSQL inflation store.
func NewInflationStore(db *DB) *InflationStore {
	return &InflationStore{db: db}
}

// Put replaces the stored state of the league.
func (s *InflationStore) Put(ctx context.Context, state *domain.InflationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal inflation state: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO inflation_states (league_id, state, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (league_id) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`,
		string(state.LeagueID), data,
	)
	if err != nil {
		return fmt.Errorf("failed to save inflation state: %w", err)
	}
	return nil
}

// Get returns the stored state, or nil when none was computed yet.
func (s *InflationStore) Get(ctx context.Context, leagueID domain.LeagueID) (*domain.InflationState, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data, `SELECT state FROM inflation_states WHERE league_id = $1`, string(leagueID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inflation state: %w", err)
	}

	var state domain.InflationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inflation state: %w", err)
	}
	return &state, nil
}
