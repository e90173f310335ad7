// Package ledger owns writes to per-league draft ledgers: feed picks are
// deduplicated and appended, manual picks are validated and rejected when
// the player is already drafted. Writes for one league are serialized.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/draftsync/internal/core/domain"
	"github.com/vietddude/draftsync/internal/infra/storage"
)

var (
	// ErrInvalidPick is returned for a pick without player id or with a negative price.
	ErrInvalidPick = errors.New("invalid pick")

	// ErrDuplicatePick is returned when a manual pick names an already drafted player.
	ErrDuplicatePick = errors.New("player already drafted")
)

// ChangeListener is notified after entries were appended to a league's ledger.
type ChangeListener func(leagueID domain.LeagueID)

// Manager owns all writes to draft ledgers.
type Manager struct {
	repo        storage.LedgerRepository
	projections storage.ProjectionRepository
	now         func() time.Time
	log         *slog.Logger

	locks sync.Map // domain.LeagueID -> *sync.Mutex

	mu        sync.RWMutex
	listeners []ChangeListener
}

// NewManager creates a ledger manager.
func NewManager(repo storage.LedgerRepository, projections storage.ProjectionRepository) *Manager {
	return &Manager{
		repo:        repo,
		projections: projections,
		now:         time.Now,
		log:         slog.Default().With("component", "ledger"),
	}
}

// OnChange registers a listener for appended entries.
func (m *Manager) OnChange(fn ChangeListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Initialize creates an empty ledger for the league. It is a no-op when one exists.
func (m *Manager) Initialize(ctx context.Context, league domain.League) (*domain.Ledger, error) {
	existing, err := m.repo.Get(ctx, league.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, storage.ErrLedgerNotFound) {
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}

	l := &domain.Ledger{
		LeagueID:        league.ID,
		InitialBudget:   league.InitialBudget,
		RemainingBudget: league.InitialBudget,
		RosterSlots:     append([]string(nil), league.RosterSlots...),
	}
	if err := m.repo.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to create ledger: %w", err)
	}
	return l, nil
}

// Get returns a copy of the league's ledger.
func (m *Manager) Get(ctx context.Context, leagueID domain.LeagueID) (*domain.Ledger, error) {
	return m.repo.Get(ctx, leagueID)
}

// Apply appends picks in the given order, skipping players already on the
// ledger or repeated within the batch. Invalid picks are skipped with a warning.
// It returns the entries actually appended.
func (m *Manager) Apply(
	ctx context.Context,
	leagueID domain.LeagueID,
	picks []domain.Pick,
	source domain.PickSource,
) ([]domain.DraftedPlayer, error) {
	unlock := m.lock(leagueID)
	defer unlock()

	return m.apply(ctx, leagueID, picks, source, false)
}

// AddManualPick appends a single hand-entered pick. Unlike Apply it reports
// invalid and duplicate picks as errors.
func (m *Manager) AddManualPick(
	ctx context.Context,
	leagueID domain.LeagueID,
	pick domain.Pick,
) (*domain.DraftedPlayer, error) {
	if err := validate(pick); err != nil {
		return nil, err
	}

	unlock := m.lock(leagueID)
	defer unlock()

	applied, err := m.apply(ctx, leagueID, []domain.Pick{pick}, domain.SourceManual, true)
	if err != nil {
		return nil, err
	}
	if len(applied) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePick, pick.PlayerID)
	}
	return &applied[0], nil
}

func (m *Manager) apply(
	ctx context.Context,
	leagueID domain.LeagueID,
	picks []domain.Pick,
	source domain.PickSource,
	strict bool,
) ([]domain.DraftedPlayer, error) {
	if len(picks) == 0 {
		return nil, nil
	}

	current, err := m.repo.Get(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}

	values, err := m.projectedValues(ctx, leagueID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(current.DraftedPlayers)+len(picks))
	for _, p := range current.DraftedPlayers {
		seen[p.PlayerID] = struct{}{}
	}

	last := current.LastDraftedAt()
	remaining := current.RemainingBudget
	var entries []domain.DraftedPlayer

	for _, pick := range picks {
		if err := validate(pick); err != nil {
			if strict {
				return nil, err
			}
			m.log.Warn("Skipping invalid pick", "league", leagueID, "player", pick.PlayerID, "error", err)
			continue
		}
		if _, dup := seen[pick.PlayerID]; dup {
			continue
		}
		seen[pick.PlayerID] = struct{}{}

		draftedAt := pick.DraftedAt
		if draftedAt.IsZero() {
			draftedAt = m.now()
		}
		// Keep draftedAt non-decreasing without reordering entries
		if draftedAt.Before(last) {
			draftedAt = last
		}
		last = draftedAt

		projected := values[pick.PlayerID]
		entries = append(entries, domain.DraftedPlayer{
			PlayerID:       pick.PlayerID,
			PlayerName:     pick.PlayerName,
			Positions:      append([]string(nil), pick.Positions...),
			PurchasePrice:  pick.Price,
			ProjectedValue: projected,
			Variance:       float64(pick.Price) - projected,
			DraftedBy:      pick.DraftedBy,
			DraftedAt:      draftedAt,
			Source:         source,
		})
		remaining -= pick.Price
	}

	if len(entries) == 0 {
		return nil, nil
	}

	if err := m.repo.Append(ctx, leagueID, entries, remaining); err != nil {
		return nil, fmt.Errorf("failed to append picks: %w", err)
	}

	m.notify(leagueID)
	return entries, nil
}

func (m *Manager) projectedValues(ctx context.Context, leagueID domain.LeagueID) (map[string]float64, error) {
	if m.projections == nil {
		return map[string]float64{}, nil
	}
	projections, err := m.projections.List(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projections: %w", err)
	}
	values := make(map[string]float64, len(projections))
	for _, p := range projections {
		values[p.PlayerID] = p.ProjectedValue
	}
	return values, nil
}

func (m *Manager) notify(leagueID domain.LeagueID) {
	m.mu.RLock()
	listeners := append([]ChangeListener(nil), m.listeners...)
	m.mu.RUnlock()
	for _, fn := range listeners {
		fn(leagueID)
	}
}

func (m *Manager) lock(leagueID domain.LeagueID) func() {
	v, _ := m.locks.LoadOrStore(leagueID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func validate(p domain.Pick) error {
	if p.PlayerID == "" {
		return fmt.Errorf("%w: missing player id", ErrInvalidPick)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: negative price %d for %s", ErrInvalidPick, p.Price, p.PlayerID)
	}
	return nil
}
