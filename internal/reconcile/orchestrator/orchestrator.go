// Package orchestrator drives feed reconciliation for every league.
//
// Each league runs one loop goroutine that owns its timer. A cycle calls the
// feed, appends new picks to the ledger and records the outcome in the sync
// status tracker. The loop reschedules itself from the outcome:
//
//	success            next cycle after Interval
//	retryable failure  next cycle after the classified retry delay
//	otherwise          parked until Resume
//
// Cycles for one league never overlap: timer-driven and on-demand cycles go
// through the same single-flight group keyed by league id, and concurrent
// callers share one outcome. An optional Locker extends this across instances.
//
// Every timer is bound to the orchestrator's context; Stop cancels it once.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vietddude/draftsync/internal/core/domain"
	"github.com/vietddude/draftsync/internal/events"
	"github.com/vietddude/draftsync/internal/infra/feed"
)

// ErrUnknownLeague is returned for a league that was never added.
var ErrUnknownLeague = errors.New("league not registered")

// StatusTracker records sync outcomes per league.
type StatusTracker interface {
	Get(ctx context.Context, leagueID domain.LeagueID) (*domain.SyncStatus, error)
	MarkSyncing(ctx context.Context, leagueID domain.LeagueID, syncing bool) error
	RecordSuccess(ctx context.Context, leagueID domain.LeagueID) (*domain.SyncStatus, error)
	RecordFailure(
		ctx context.Context,
		leagueID domain.LeagueID,
		cl domain.ErrorClassification,
		message string,
	) (*domain.SyncStatus, error)
	MarkDisconnected(ctx context.Context, leagueID domain.LeagueID, message string) (*domain.SyncStatus, error)
}

// PickApplier appends reconciled picks to a league's ledger.
type PickApplier interface {
	Apply(
		ctx context.Context,
		leagueID domain.LeagueID,
		picks []domain.Pick,
		source domain.PickSource,
	) ([]domain.DraftedPlayer, error)
}

// Classifier maps a failure to its classification.
type Classifier interface {
	Classify(err error, failureCount int) domain.ErrorClassification
}

// Locker guards a league's cycle across service instances. Acquire returns
// an owner token; Release only drops the lock while that token still holds it.
type Locker interface {
	AcquireSyncLock(ctx context.Context, leagueID domain.LeagueID, ttl time.Duration) (string, bool, error)
	ReleaseSyncLock(ctx context.Context, leagueID domain.LeagueID, token string) error
}

// Dependencies bundles the collaborators of an Orchestrator.
type Dependencies struct {
	Feed       feed.Adapter
	Tracker    StatusTracker
	Ledger     PickApplier
	Classifier Classifier
	Emitter    events.Emitter
	Locker     Locker // optional
}

// Result is the outcome of one sync cycle.
type Result struct {
	LeagueID       domain.LeagueID
	Applied        int
	Status         *domain.SyncStatus
	Classification *domain.ErrorClassification
	Skipped        bool // another instance holds the sync lock
	Next           time.Duration
	Parked         bool
}

type leagueLoop struct {
	league   domain.League
	schedule chan time.Duration
	parked   atomic.Bool
	auction  atomic.Pointer[domain.AuctionInfo]
}

// Orchestrator runs the per-league sync loops.
type Orchestrator struct {
	cfg  Config
	deps Dependencies
	log  *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu      sync.RWMutex
	started bool
	leagues map[domain.LeagueID]*leagueLoop

	flight singleflight.Group
}

// New creates an orchestrator. Leagues are registered with Add.
func New(cfg Config, deps Dependencies) *Orchestrator {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:     cfg,
		deps:    deps,
		log:     slog.Default().With("component", "orchestrator"),
		ctx:     ctx,
		cancel:  cancel,
		leagues: make(map[domain.LeagueID]*leagueLoop),
	}
}

// Add registers a league. Its loop starts with Start, or immediately when
// the orchestrator is already running.
func (o *Orchestrator) Add(league domain.League) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.leagues[league.ID]; ok {
		return
	}
	l := &leagueLoop{
		league:   league,
		schedule: make(chan time.Duration, 1),
	}
	o.leagues[league.ID] = l
	if o.started {
		o.spawn(l)
	}
}

// Start launches one loop per registered league. The first cycle runs immediately.
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		return fmt.Errorf("orchestrator already running")
	}
	o.started = true
	for _, l := range o.leagues {
		o.spawn(l)
	}
	o.log.Info("Sync orchestrator started", "leagues", len(o.leagues), "interval", o.cfg.Interval)
	return nil
}

// Stop cancels every loop and pending timer and waits for in-flight cycles.
// It is safe to call more than once.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		o.cancel()
		o.wg.Wait()
		o.log.Info("Sync orchestrator stopped")
	})
}

// SyncNow runs a cycle for the league right away, joining one already in flight.
// A human-triggered sync also reschedules a parked loop from its outcome.
func (o *Orchestrator) SyncNow(ctx context.Context, leagueID domain.LeagueID) (*Result, error) {
	l, err := o.lookup(leagueID)
	if err != nil {
		return nil, err
	}

	ch := o.flight.DoChan(string(leagueID), func() (any, error) {
		return o.cycle(l)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		result := res.Val.(*Result)
		o.reschedule(l, result)
		return result, nil
	}
}

// Resume wakes a parked loop for an immediate cycle.
func (o *Orchestrator) Resume(leagueID domain.LeagueID) error {
	l, err := o.lookup(leagueID)
	if err != nil {
		return err
	}
	o.send(l, 0)
	return nil
}

// IsParked reports whether automatic sync is suspended for the league.
func (o *Orchestrator) IsParked(leagueID domain.LeagueID) bool {
	l, err := o.lookup(leagueID)
	if err != nil {
		return false
	}
	return l.parked.Load()
}

// AuctionInfo returns the latest auction snapshot seen by the feed, or nil.
func (o *Orchestrator) AuctionInfo(leagueID domain.LeagueID) *domain.AuctionInfo {
	l, err := o.lookup(leagueID)
	if err != nil {
		return nil
	}
	if info := l.auction.Load(); info != nil {
		c := *info
		return &c
	}
	return nil
}

// Leagues returns the registered leagues.
func (o *Orchestrator) Leagues() []domain.League {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]domain.League, 0, len(o.leagues))
	for _, l := range o.leagues {
		out = append(out, l.league)
	}
	return out
}

func (o *Orchestrator) lookup(leagueID domain.LeagueID) (*leagueLoop, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	l, ok := o.leagues[leagueID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLeague, leagueID)
	}
	return l, nil
}

func (o *Orchestrator) spawn(l *leagueLoop) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(l)
	}()
}

func (o *Orchestrator) run(l *leagueLoop) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-o.ctx.Done():
			return
		case <-timer.C:
			v, err, _ := o.flight.Do(string(l.league.ID), func() (any, error) {
				return o.cycle(l)
			})
			if err != nil {
				if o.ctx.Err() != nil {
					return
				}
				o.log.Error("Sync cycle failed", "league", l.league.ID, "error", err)
				o.arm(timer, l, o.cfg.Interval)
				continue
			}
			result := v.(*Result)
			if result.Parked {
				o.arm(timer, l, -1)
			} else {
				o.arm(timer, l, result.Next)
			}
		case d := <-l.schedule:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			o.arm(timer, l, d)
		}
	}
}

// arm resets the timer to d, or parks the loop when d is negative.
func (o *Orchestrator) arm(timer *time.Timer, l *leagueLoop, d time.Duration) {
	if d < 0 {
		if !l.parked.Swap(true) {
			o.log.Warn("Automatic sync parked until resumed", "league", l.league.ID)
		}
		return
	}
	l.parked.Store(false)
	timer.Reset(d)
}

func (o *Orchestrator) reschedule(l *leagueLoop, result *Result) {
	if result.Parked {
		o.send(l, -1)
		return
	}
	o.send(l, result.Next)
}

// send replaces any pending schedule request with d.
func (o *Orchestrator) send(l *leagueLoop, d time.Duration) {
	for {
		select {
		case l.schedule <- d:
			return
		default:
		}
		select {
		case <-l.schedule:
		default:
		}
	}
}
