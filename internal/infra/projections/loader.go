package projections

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/draftsync/internal/core/domain"
)

// Saver stores a league's projection set.
type Saver interface {
	Save(ctx context.Context, leagueID domain.LeagueID, projections []domain.Projection) error
}

type file struct {
	Players []domain.Projection `yaml:"players"`
}

// LoadFile reads a projection file of the form:
//
//	players:
//	  - player_id: "p1"
//	    player_name: "Bobby Witt Jr."
//	    projected_value: 42
//	    positions: ["SS"]
//	    tier: 1
func LoadFile(path string) ([]domain.Projection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read projections file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates projection YAML.
func Parse(data []byte) ([]domain.Projection, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse projections: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Players))
	for i, p := range f.Players {
		if p.PlayerID == "" {
			return nil, fmt.Errorf("projection %d: missing player_id", i)
		}
		if _, dup := seen[p.PlayerID]; dup {
			return nil, fmt.Errorf("projection %d: duplicate player_id %q", i, p.PlayerID)
		}
		if p.ProjectedValue < 0 {
			return nil, fmt.Errorf("projection %q: negative projected_value", p.PlayerID)
		}
		seen[p.PlayerID] = struct{}{}
	}
	return f.Players, nil
}

// Seed loads path and replaces the league's projections in repo.
func Seed(ctx context.Context, repo Saver, leagueID domain.LeagueID, path string) (int, error) {
	players, err := LoadFile(path)
	if err != nil {
		return 0, err
	}
	if err := repo.Save(ctx, leagueID, players); err != nil {
		return 0, fmt.Errorf("failed to save projections: %w", err)
	}
	return len(players), nil
}
