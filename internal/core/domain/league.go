package domain

// LeagueID identifies a fantasy league. Every piece of sync and ledger state is keyed by it.
type LeagueID string

// League describes a league the service keeps in sync with a draft room.
type League struct {
	ID            LeagueID
	RoomID        string
	InitialBudget int
	RosterSlots   []string
}

// HasFeed reports whether the league is configured against a draft room.
func (l League) HasFeed() bool {
	return l.RoomID != ""
}
