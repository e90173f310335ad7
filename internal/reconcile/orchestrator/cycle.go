package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/draftsync/internal/core/domain"
	"github.com/vietddude/draftsync/internal/events"
	"github.com/vietddude/draftsync/internal/infra/feed"
	"github.com/vietddude/draftsync/internal/metrics"
)

// Config holds orchestrator timing.
type Config struct {
	Interval         time.Duration
	SoftTimeout      time.Duration
	CatchUpThreshold int
	LockTTL          time.Duration
}

// DefaultConfig returns the default timing.
func DefaultConfig() Config {
	return Config{
		Interval:         10 * time.Second,
		SoftTimeout:      15 * time.Second,
		CatchUpThreshold: 3,
		LockTTL:          45 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.SoftTimeout <= 0 {
		c.SoftTimeout = d.SoftTimeout
	}
	if c.CatchUpThreshold <= 0 {
		c.CatchUpThreshold = d.CatchUpThreshold
	}
	if c.LockTTL <= 0 {
		c.LockTTL = d.LockTTL
	}
	return c
}

const notConfiguredMessage = "no draft room configured for league"

// cycle runs one reconciliation pass. Feed failures are part of the Result;
// the returned error is reserved for failures of the service's own storage.
func (o *Orchestrator) cycle(l *leagueLoop) (*Result, error) {
	ctx := o.ctx
	leagueID := l.league.ID
	metrics.SyncAttemptsTotal.WithLabelValues(string(leagueID)).Inc()

	if !l.league.HasFeed() {
		status, err := o.deps.Tracker.MarkDisconnected(ctx, leagueID, notConfiguredMessage)
		if err != nil {
			return nil, err
		}
		return &Result{LeagueID: leagueID, Status: status, Parked: true}, nil
	}

	if o.deps.Locker != nil {
		token, ok, err := o.deps.Locker.AcquireSyncLock(ctx, leagueID, o.cfg.LockTTL)
		if err != nil {
			o.log.Warn("Sync lock unavailable, continuing unlocked", "league", leagueID, "error", err)
		} else if !ok {
			o.log.Debug("Sync lock held elsewhere, skipping cycle", "league", leagueID)
			return &Result{LeagueID: leagueID, Skipped: true, Next: o.cfg.Interval}, nil
		} else {
			defer func() {
				if err := o.deps.Locker.ReleaseSyncLock(context.Background(), leagueID, token); err != nil {
					o.log.Warn("Failed to release sync lock", "league", leagueID, "error", err)
				}
			}()
		}
	}

	status, err := o.deps.Tracker.Get(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if err := o.deps.Tracker.MarkSyncing(ctx, leagueID, true); err != nil {
		return nil, err
	}
	// The syncing flag is cleared by RecordSuccess or RecordFailure; any other
	// exit (shutdown, storage error) clears it here.
	settled := false
	defer func() {
		if settled {
			return
		}
		if err := o.deps.Tracker.MarkSyncing(context.Background(), leagueID, false); err != nil {
			o.log.Warn("Failed to clear syncing flag", "league", leagueID, "error", err)
		}
	}()

	res, err := o.call(ctx, l, status.LastSync)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		result, err := o.fail(ctx, leagueID, status.FailureCount, err)
		settled = err == nil
		return result, err
	}

	info := res.AuctionInfo
	l.auction.Store(&info)

	applied, err := o.deps.Ledger.Apply(ctx, leagueID, res.Picks, domain.SourceFeed)
	if err != nil {
		// Not a feed failure: never classified or counted toward manual mode.
		return nil, fmt.Errorf("apply picks: %w", err)
	}
	if n := len(applied); n > 0 {
		metrics.PicksAppliedTotal.WithLabelValues(string(leagueID), string(domain.SourceFeed)).Add(float64(n))
		o.log.Info("Applied picks from feed", "league", leagueID, "count", n)
	}
	if len(applied) >= o.cfg.CatchUpThreshold {
		metrics.CatchUpEventsTotal.WithLabelValues(string(leagueID)).Inc()
		o.emit(events.CaughtUp(leagueID, len(applied)))
	}

	status, err = o.deps.Tracker.RecordSuccess(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	settled = true
	return &Result{
		LeagueID: leagueID,
		Applied:  len(applied),
		Status:   status,
		Next:     o.cfg.Interval,
	}, nil
}

// call invokes the feed, warning once if it outlives the soft timeout.
// The call itself is never cancelled by the soft timeout.
func (o *Orchestrator) call(ctx context.Context, l *leagueLoop, since *time.Time) (*feed.SyncResult, error) {
	leagueID := l.league.ID
	start := time.Now()

	warn := time.AfterFunc(o.cfg.SoftTimeout, func() {
		if ctx.Err() != nil {
			return
		}
		elapsed := time.Since(start)
		metrics.SyncTimeoutWarningsTotal.WithLabelValues(string(leagueID)).Inc()
		o.emit(events.TimeoutWarning(leagueID, elapsed))
	})
	defer warn.Stop()

	res, err := o.deps.Feed.Sync(ctx, feed.SyncRequest{
		RoomID:            l.league.RoomID,
		LeagueID:          leagueID,
		LastSyncTimestamp: since,
	})
	metrics.SyncDuration.WithLabelValues(string(leagueID)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &feed.SyncResult{}
	}
	return res, nil
}

func (o *Orchestrator) fail(ctx context.Context, leagueID domain.LeagueID, failureCount int, cause error) (*Result, error) {
	cl := o.deps.Classifier.Classify(cause, failureCount)
	metrics.SyncFailuresTotal.WithLabelValues(string(leagueID), string(cl.Code), string(cl.Type)).Inc()

	status, err := o.deps.Tracker.RecordFailure(ctx, leagueID, cl, cause.Error())
	if err != nil {
		return nil, errors.Join(cause, err)
	}

	o.log.Warn("Sync failed",
		"league", leagueID,
		"code", cl.Code,
		"type", cl.Type,
		"failures", status.FailureCount,
		"retry", cl.ShouldRetry,
		"retry_in", cl.RetryDelay,
		"error", cause,
	)

	result := &Result{
		LeagueID:       leagueID,
		Status:         status,
		Classification: &cl,
	}
	if cl.ShouldRetry {
		result.Next = cl.RetryDelay
	} else {
		result.Parked = true
	}
	return result, nil
}

func (o *Orchestrator) emit(e *domain.Event) {
	if o.deps.Emitter == nil {
		return
	}
	if err := o.deps.Emitter.Emit(o.ctx, e); err != nil {
		o.log.Warn("Failed to emit event", "type", e.Type, "league", e.LeagueID, "error", err)
	}
}
