package domain

// Projection is a read-only valuation of one player for a league.
type Projection struct {
	PlayerID       string   `json:"player_id"   yaml:"player_id"`
	PlayerName     string   `json:"player_name" yaml:"player_name"`
	ProjectedValue float64  `json:"projected_value" yaml:"projected_value"`
	Positions      []string `json:"positions"   yaml:"positions"`
	Tier           int      `json:"tier"        yaml:"tier"`
}
