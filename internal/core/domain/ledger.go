package domain

import "time"

// PickSource records how a pick reached the ledger.
type PickSource string

const (
	SourceFeed   PickSource = "feed"
	SourceManual PickSource = "manual"
)

// Pick is a purchase reported by the draft room or entered by hand.
type Pick struct {
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Positions  []string  `json:"positions"`
	Price      int       `json:"price"`
	DraftedBy  string    `json:"drafted_by"`
	DraftedAt  time.Time `json:"drafted_at"`
}

// DraftedPlayer is an immutable ledger entry.
type DraftedPlayer struct {
	PlayerID       string     `json:"player_id"`
	PlayerName     string     `json:"player_name"`
	Positions      []string   `json:"positions"`
	PurchasePrice  int        `json:"purchase_price"`
	ProjectedValue float64    `json:"projected_value"`
	Variance       float64    `json:"variance"`
	DraftedBy      string     `json:"drafted_by"`
	DraftedAt      time.Time  `json:"drafted_at"`
	Source         PickSource `json:"source"`
}

// Ledger is the append-only draft record of one league.
type Ledger struct {
	LeagueID        LeagueID        `json:"league_id"`
	InitialBudget   int             `json:"initial_budget"`
	RemainingBudget int             `json:"remaining_budget"`
	RosterSlots     []string        `json:"roster_slots"`
	DraftedPlayers  []DraftedPlayer `json:"drafted_players"`
}

// MoneySpent returns the total paid for drafted players.
func (l *Ledger) MoneySpent() int {
	return l.InitialBudget - l.RemainingBudget
}

// LastDraftedAt returns the timestamp of the latest entry, or the zero time.
func (l *Ledger) LastDraftedAt() time.Time {
	if len(l.DraftedPlayers) == 0 {
		return time.Time{}
	}
	return l.DraftedPlayers[len(l.DraftedPlayers)-1].DraftedAt
}

// Clone returns a deep copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	c := *l
	c.RosterSlots = append([]string(nil), l.RosterSlots...)
	c.DraftedPlayers = make([]DraftedPlayer, len(l.DraftedPlayers))
	for i, p := range l.DraftedPlayers {
		p.Positions = append([]string(nil), p.Positions...)
		c.DraftedPlayers[i] = p
	}
	return &c
}
