package domain

import "time"

// InflationState is the derived market signal for a league. It is always
// recomputed as a whole; nothing merges into a previous state.
type InflationState struct {
	LeagueID         LeagueID           `json:"league_id"`
	OverallRate      float64            `json:"overall_rate"`
	PositionRates    map[string]float64 `json:"position_rates"`
	TierRates        map[int]float64    `json:"tier_rates"`
	AdjustedValues   map[string]float64 `json:"adjusted_values"`
	BudgetDepleted   float64            `json:"budget_depleted"`
	PlayersRemaining int                `json:"players_remaining"`
	LastUpdated      *time.Time         `json:"last_updated"`
}
