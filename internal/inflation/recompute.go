package inflation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/draftsync/internal/core/domain"
	"github.com/vietddude/draftsync/internal/infra/storage"
	"github.com/vietddude/draftsync/internal/metrics"
)

// DefaultDebounce is the coalescing window used when none is configured.
const DefaultDebounce = 50 * time.Millisecond

// LedgerSource reads ledgers for recomputation.
type LedgerSource interface {
	Get(ctx context.Context, leagueID domain.LeagueID) (*domain.Ledger, error)
}

// Mirror receives every computed state after it was stored, e.g. a shared cache.
type Mirror interface {
	PutInflation(ctx context.Context, state *domain.InflationState) error
}

// Recomputer coalesces ledger change notifications and recomputes each dirty
// league once per debounce window on a single worker goroutine.
type Recomputer struct {
	ledgers     LedgerSource
	projections storage.ProjectionRepository
	store       storage.InflationStore
	mirror      Mirror
	window      time.Duration
	now         func() time.Time
	log         *slog.Logger

	mu      sync.Mutex
	pending map[domain.LeagueID]struct{}
	wake    chan struct{}
}

// NewRecomputer creates a recomputer. A non-positive window uses DefaultDebounce.
func NewRecomputer(
	ledgers LedgerSource,
	projections storage.ProjectionRepository,
	store storage.InflationStore,
	window time.Duration,
) *Recomputer {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Recomputer{
		ledgers:     ledgers,
		projections: projections,
		store:       store,
		window:      window,
		now:         time.Now,
		log:         slog.Default().With("component", "inflation"),
		pending:     make(map[domain.LeagueID]struct{}),
		wake:        make(chan struct{}, 1),
	}
}

// SetMirror sets an optional secondary destination for computed states.
func (r *Recomputer) SetMirror(m Mirror) {
	r.mirror = m
}

// Notify marks a league dirty. It never blocks.
func (r *Recomputer) Notify(leagueID domain.LeagueID) {
	r.mu.Lock()
	if _, ok := r.pending[leagueID]; ok {
		metrics.RecomputesCoalescedTotal.Inc()
	}
	r.pending[leagueID] = struct{}{}
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run drains notifications until ctx is cancelled.
func (r *Recomputer) Run(ctx context.Context) {
	timer := time.NewTimer(r.window)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.wake:
		}

		// Collect everything that arrives during the window
		timer.Reset(r.window)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		for _, leagueID := range r.drain() {
			if _, err := r.Recompute(ctx, leagueID); err != nil {
				r.log.Error("Inflation recompute failed", "league", leagueID, "error", err)
			}
		}
	}
}

func (r *Recomputer) drain() []domain.LeagueID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]domain.LeagueID, 0, len(r.pending))
	for id := range r.pending {
		ids = append(ids, id)
	}
	clear(r.pending)
	return ids
}

// Recompute computes and stores the league's state immediately.
func (r *Recomputer) Recompute(ctx context.Context, leagueID domain.LeagueID) (*domain.InflationState, error) {
	start := time.Now()

	ledger, err := r.ledgers.Get(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}
	projections, err := r.projections.List(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projections: %w", err)
	}

	state := Compute(ledger, projections, r.now())
	metrics.RecomputeDuration.WithLabelValues(string(leagueID)).Observe(time.Since(start).Seconds())
	metrics.OverallInflation.WithLabelValues(string(leagueID)).Set(state.OverallRate)

	if err := r.store.Put(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to store inflation state: %w", err)
	}
	if r.mirror != nil {
		if err := r.mirror.PutInflation(ctx, state); err != nil {
			r.log.Warn("Failed to mirror inflation state", "league", leagueID, "error", err)
		}
	}

	r.log.Debug("Inflation recomputed",
		"league", leagueID,
		"overall", state.OverallRate,
		"drafted", len(ledger.DraftedPlayers),
		"duration", time.Since(start),
	)
	return state, nil
}
