// Package inflation turns a draft ledger and a projection set into market
// inflation signals.
//
// Compute is a pure function: it performs no I/O, keeps no state between calls
// and always returns a fresh InflationState. All aggregation is a single pass
// over the drafted players (O(n·k) for k eligible positions) followed by a
// single pass over the projections.
//
// Rates share one formula over a bucket of drafted players:
//
//	rate = (Σ price − Σ projected) / Σ projected,  0 when Σ projected = 0
//
// Overall uses every drafted player with a projection. Position buckets receive
// price/k and projected/k from a player eligible at k canonical positions. Tier
// buckets receive the whole player.
package inflation

import (
	"math"
	"sort"
	"time"

	"github.com/vietddude/draftsync/internal/core/domain"
)

type bucket struct {
	actual    float64
	projected float64
}

func (b bucket) rate() float64 {
	if b.projected == 0 {
		return 0
	}
	return (b.actual - b.projected) / b.projected
}

func (b bucket) populated() bool {
	return b.projected > 0
}

// Compute derives the inflation state for a ledger. Drafted players missing
// from projections do not contribute to any rate.
func Compute(ledger *domain.Ledger, projections []domain.Projection, now time.Time) *domain.InflationState {
	byID := make(map[string]*domain.Projection, len(projections))
	for i := range projections {
		byID[projections[i].PlayerID] = &projections[i]
	}

	var overall bucket
	positions := make(map[string]*bucket, len(Positions))
	for _, p := range Positions {
		positions[p] = &bucket{}
	}
	tiers := make(map[int]*bucket)
	for i := range projections {
		if _, ok := tiers[projections[i].Tier]; !ok {
			tiers[projections[i].Tier] = &bucket{}
		}
	}

	drafted := make(map[string]struct{}, len(ledger.DraftedPlayers))
	for i := range ledger.DraftedPlayers {
		entry := &ledger.DraftedPlayers[i]
		drafted[entry.PlayerID] = struct{}{}

		proj, ok := byID[entry.PlayerID]
		if !ok {
			continue
		}
		price := float64(entry.PurchasePrice)
		value := proj.ProjectedValue

		overall.actual += price
		overall.projected += value

		tiers[proj.Tier].actual += price
		tiers[proj.Tier].projected += value

		raw := proj.Positions
		if len(raw) == 0 {
			raw = entry.Positions
		}
		elig := eligible(raw)
		if len(elig) == 0 {
			continue
		}
		k := float64(len(elig))
		for _, pos := range elig {
			positions[pos].actual += price / k
			positions[pos].projected += value / k
		}
	}

	state := &domain.InflationState{
		LeagueID:         ledger.LeagueID,
		PositionRates:    make(map[string]float64, len(Positions)),
		TierRates:        make(map[int]float64, len(tiers)),
		AdjustedValues:   make(map[string]float64),
		BudgetDepleted:   budgetDepleted(ledger),
		PlayersRemaining: max(0, len(ledger.RosterSlots)-len(ledger.DraftedPlayers)),
		LastUpdated:      &now,
	}

	if len(ledger.DraftedPlayers) == 0 {
		state.OverallRate = baselineRate(ledger, projections)
	} else {
		state.OverallRate = overall.rate()
	}
	for pos, b := range positions {
		state.PositionRates[pos] = b.rate()
	}
	for tier, b := range tiers {
		state.TierRates[tier] = b.rate()
	}

	for i := range projections {
		p := &projections[i]
		if _, ok := drafted[p.PlayerID]; ok {
			continue
		}
		r := playerRate(p, state.OverallRate, positions, tiers)
		state.AdjustedValues[p.PlayerID] = roundHalfUp(math.Max(0, p.ProjectedValue*(1+r)))
	}

	return state
}

// playerRate blends the player's tier rate (or overall when the tier has no
// drafted players) with the mean of its populated position rates.
func playerRate(p *domain.Projection, overall float64, positions map[string]*bucket, tiers map[int]*bucket) float64 {
	base := overall
	if b := tiers[p.Tier]; b != nil && b.populated() {
		base = b.rate()
	}

	var sum float64
	var n int
	for _, pos := range eligible(p.Positions) {
		if b := positions[pos]; b.populated() {
			sum += b.rate()
			n++
		}
	}
	pos := base
	if n > 0 {
		pos = sum / float64(n)
	}
	return (base + pos) / 2
}

// baselineRate estimates inflation before any pick: the gap between the
// league budget and the value of the best players that fill every roster slot.
func baselineRate(ledger *domain.Ledger, projections []domain.Projection) float64 {
	slots := len(ledger.RosterSlots)
	if slots == 0 {
		return 0
	}
	values := make([]float64, 0, len(projections))
	for i := range projections {
		if projections[i].ProjectedValue > 0 {
			values = append(values, projections[i].ProjectedValue)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))
	if len(values) > slots {
		values = values[:slots]
	}

	var expected float64
	for _, v := range values {
		expected += v
	}
	if expected == 0 {
		return 0
	}
	return (float64(ledger.InitialBudget) - expected) / expected
}

func budgetDepleted(ledger *domain.Ledger) float64 {
	if ledger.InitialBudget <= 0 {
		return 0
	}
	d := float64(ledger.MoneySpent()) / float64(ledger.InitialBudget)
	return math.Min(1, math.Max(0, d))
}

func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
