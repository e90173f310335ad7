package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vietddude/draftsync/internal/core/domain"
	"github.com/vietddude/draftsync/internal/infra/storage"
)

type MemoryStorage struct {
	statuses    map[domain.LeagueID]*domain.SyncStatus
	ledgers     map[domain.LeagueID]*domain.Ledger
	projections map[domain.LeagueID][]domain.Projection
	inflation   map[domain.LeagueID]*domain.InflationState
	mu          sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		statuses:    make(map[domain.LeagueID]*domain.SyncStatus),
		ledgers:     make(map[domain.LeagueID]*domain.Ledger),
		projections: make(map[domain.LeagueID][]domain.Projection),
		inflation:   make(map[domain.LeagueID]*domain.InflationState),
	}
}

// -----------------------------------------------------------------------------
// Sync Status Repository
// -----------------------------------------------------------------------------

type SyncStatusRepo struct {
	store *MemoryStorage
}

func NewSyncStatusRepo(store *MemoryStorage) *SyncStatusRepo {
	return &SyncStatusRepo{store: store}
}

func (r *SyncStatusRepo) Get(ctx context.Context, leagueID domain.LeagueID) (*domain.SyncStatus, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if s, ok := r.store.statuses[leagueID]; ok {
		return s.Clone(), nil
	}
	return nil, nil
}

func (r *SyncStatusRepo) Update(
	ctx context.Context,
	leagueID domain.LeagueID,
	fn func(*domain.SyncStatus) error,
) (*domain.SyncStatus, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.statuses[leagueID]
	if !ok {
		current = domain.NewSyncStatus(leagueID)
	}
	// Work on a copy so a failing fn leaves the stored status untouched
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.LeagueID = leagueID
	r.store.statuses[leagueID] = next
	return next.Clone(), nil
}

func (r *SyncStatusRepo) Delete(ctx context.Context, leagueID domain.LeagueID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.statuses, leagueID)
	return nil
}

func (r *SyncStatusRepo) List(ctx context.Context) ([]*domain.SyncStatus, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]*domain.SyncStatus, 0, len(r.store.statuses))
	for _, s := range r.store.statuses {
		out = append(out, s.Clone())
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// Ledger Repository
// -----------------------------------------------------------------------------

type LedgerRepo struct {
	store *MemoryStorage
}

func NewLedgerRepo(store *MemoryStorage) *LedgerRepo {
	return &LedgerRepo{store: store}
}

func (r *LedgerRepo) Create(ctx context.Context, ledger *domain.Ledger) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.ledgers[ledger.LeagueID]; ok {
		return fmt.Errorf("%w: %s", storage.ErrLedgerExists, ledger.LeagueID)
	}
	r.store.ledgers[ledger.LeagueID] = ledger.Clone()
	return nil
}

func (r *LedgerRepo) Get(ctx context.Context, leagueID domain.LeagueID) (*domain.Ledger, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	l, ok := r.store.ledgers[leagueID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrLedgerNotFound, leagueID)
	}
	return l.Clone(), nil
}

func (r *LedgerRepo) Append(
	ctx context.Context,
	leagueID domain.LeagueID,
	entries []domain.DraftedPlayer,
	remainingBudget int,
) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	l, ok := r.store.ledgers[leagueID]
	if !ok {
		return fmt.Errorf("%w: %s", storage.ErrLedgerNotFound, leagueID)
	}
	for _, e := range entries {
		e.Positions = append([]string(nil), e.Positions...)
		l.DraftedPlayers = append(l.DraftedPlayers, e)
	}
	l.RemainingBudget = remainingBudget
	return nil
}

func (r *LedgerRepo) Delete(ctx context.Context, leagueID domain.LeagueID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.ledgers, leagueID)
	return nil
}

// -----------------------------------------------------------------------------
// Projection Repository
// -----------------------------------------------------------------------------

type ProjectionRepo struct {
	store *MemoryStorage
}

func NewProjectionRepo(store *MemoryStorage) *ProjectionRepo {
	return &ProjectionRepo{store: store}
}

func (r *ProjectionRepo) List(ctx context.Context, leagueID domain.LeagueID) ([]domain.Projection, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	src := r.store.projections[leagueID]
	out := make([]domain.Projection, len(src))
	copy(out, src)
	return out, nil
}

func (r *ProjectionRepo) Save(ctx context.Context, leagueID domain.LeagueID, projections []domain.Projection) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := make([]domain.Projection, len(projections))
	copy(cp, projections)
	r.store.projections[leagueID] = cp
	return nil
}

// -----------------------------------------------------------------------------
// Inflation Store
// -----------------------------------------------------------------------------

type InflationStore struct {
	store *MemoryStorage
}

func NewInflationStore(store *MemoryStorage) *InflationStore {
	return &InflationStore{store: store}
}

func (s *InflationStore) Put(ctx context.Context, state *domain.InflationState) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.inflation[state.LeagueID] = state
	return nil
}

func (s *InflationStore) Get(ctx context.Context, leagueID domain.LeagueID) (*domain.InflationState, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	return s.store.inflation[leagueID], nil
}
