package control

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/draftsync/internal/core/config"
	"github.com/vietddude/draftsync/internal/core/domain"
	"github.com/vietddude/draftsync/internal/core/ledger"
	"github.com/vietddude/draftsync/internal/infra/feed"
	"github.com/vietddude/draftsync/internal/reconcile/orchestrator"
)

const testProjections = `
players:
  - player_id: p1
    projected_value: 30
    positions: [SS]
    tier: 1
  - player_id: p2
    projected_value: 20
    positions: [C]
    tier: 2
  - player_id: p3
    projected_value: 10
    positions: [OF]
    tier: 3
`

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	path := filepath.Join(t.TempDir(), "projections.yaml")
	if err := os.WriteFile(path, []byte(testProjections), 0o600); err != nil {
		t.Fatal(err)
	}
	return &config.AppConfig{
		Sync: config.SyncConfig{
			Interval:            time.Hour,
			SoftTimeout:         time.Second,
			CatchUpThreshold:    3,
			Debounce:            5 * time.Millisecond,
			RetryBase:           5 * time.Second,
			RetryMax:            20 * time.Second,
			ManualModeThreshold: 3,
			LockTTL:             time.Second,
		},
		Leagues: []config.LeagueConfig{
			{ID: "l1", RoomID: "room-1", InitialBudget: 260, RosterSlots: []string{"C", "SS", "OF"}, ProjectionsFile: path},
			{ID: "l2", InitialBudget: 260, RosterSlots: []string{"C"}},
		},
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestService_EndToEnd(t *testing.T) {
	var calls atomic.Int32
	adapter := feed.AdapterFunc(func(ctx context.Context, req feed.SyncRequest) (*feed.SyncResult, error) {
		calls.Add(1)
		return &feed.SyncResult{
			Picks: []domain.Pick{
				{PlayerID: "p1", Positions: []string{"SS"}, Price: 36, DraftedBy: "team-a"},
			},
			AuctionInfo: domain.AuctionInfo{NominatedPlayerID: "p2", CurrentBid: 5, IsActive: true},
		}, nil
	})

	ctx := context.Background()
	svc, err := NewService(ctx, testConfig(t), Options{Feed: adapter})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer svc.Stop(ctx)

	if _, err := svc.SyncNow(ctx, "l1"); err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}

	l, err := svc.Ledger(ctx, "l1")
	if err != nil {
		t.Fatalf("Ledger failed: %v", err)
	}
	if len(l.DraftedPlayers) != 1 || l.RemainingBudget != 224 {
		t.Errorf("unexpected ledger %+v", l)
	}

	status, _ := svc.Status(ctx, "l1")
	if status.ConnectionState() != domain.StateConnected {
		t.Errorf("expected connected, got %s", status.ConnectionState())
	}
	if info, _ := svc.AuctionInfo("l1"); info == nil || info.NominatedPlayerID != "p2" {
		t.Errorf("unexpected auction snapshot %+v", info)
	}

	// $36 for a $30 projection
	eventually(t, func() bool {
		state, err := svc.Inflation(ctx, "l1")
		return err == nil && state != nil && state.OverallRate == 0.2
	})
}

func TestService_ManualLeague(t *testing.T) {
	ctx := context.Background()
	svc, err := NewService(ctx, testConfig(t), Options{Feed: feed.AdapterFunc(
		func(ctx context.Context, req feed.SyncRequest) (*feed.SyncResult, error) {
			return &feed.SyncResult{}, nil
		})})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer svc.Stop(ctx)

	res, err := svc.SyncNow(ctx, "l2")
	if err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}
	if !res.Parked {
		t.Error("expected league without room to park")
	}

	entry, err := svc.AddManualPick(ctx, "l2", domain.Pick{PlayerID: "p2", Price: 12, Positions: []string{"C"}})
	if err != nil {
		t.Fatalf("AddManualPick failed: %v", err)
	}
	if entry.Source != domain.SourceManual {
		t.Errorf("expected manual source, got %s", entry.Source)
	}
	if _, err := svc.AddManualPick(ctx, "l2", domain.Pick{PlayerID: "p2", Price: 12}); !errors.Is(err, ledger.ErrDuplicatePick) {
		t.Errorf("expected ErrDuplicatePick, got %v", err)
	}

	st, err := svc.SetManualMode(ctx, "l2", true)
	if err != nil || !st.IsManualMode {
		t.Fatalf("enable manual mode: %+v %v", st, err)
	}
	st, err = svc.SetManualMode(ctx, "l2", false)
	if err != nil || st.IsManualMode {
		t.Fatalf("disable manual mode: %+v %v", st, err)
	}
}

func TestService_UnknownLeague(t *testing.T) {
	ctx := context.Background()
	svc, err := NewService(ctx, testConfig(t), Options{})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	if _, err := svc.Status(ctx, "nope"); !errors.Is(err, orchestrator.ErrUnknownLeague) {
		t.Errorf("expected ErrUnknownLeague, got %v", err)
	}
	if _, err := svc.AddManualPick(ctx, "nope", domain.Pick{PlayerID: "x"}); !errors.Is(err, orchestrator.ErrUnknownLeague) {
		t.Errorf("expected ErrUnknownLeague, got %v", err)
	}
}

func TestService_NoFeedConfigured(t *testing.T) {
	ctx := context.Background()
	svc, err := NewService(ctx, testConfig(t), Options{})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if svc.leagues["l1"].HasFeed() {
		t.Error("expected league room to be dropped without a feed endpoint")
	}
	if err := svc.Stop(ctx); err != nil {
		t.Errorf("Stop before Start failed: %v", err)
	}
	if err := svc.Stop(ctx); err != nil {
		t.Errorf("second Stop failed: %v", err)
	}
}

type stubMirror struct {
	state *domain.InflationState
	err   error
	calls atomic.Int32
}

func (m *stubMirror) GetInflation(ctx context.Context, leagueID domain.LeagueID) (*domain.InflationState, error) {
	m.calls.Add(1)
	return m.state, m.err
}

func TestService_InflationFallsBackToMirror(t *testing.T) {
	ctx := context.Background()
	svc, err := NewService(ctx, testConfig(t), Options{})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	t.Cleanup(func() { svc.Stop(ctx) })
	if err := svc.prepare(ctx, svc.leagues["l2"]); err != nil {
		t.Fatalf("prepare failed: %v", err)
	}

	mirror := &stubMirror{state: &domain.InflationState{LeagueID: "l2", OverallRate: 1.25}}
	svc.mirror = mirror

	state, err := svc.Inflation(ctx, "l2")
	if err != nil {
		t.Fatalf("Inflation failed: %v", err)
	}
	if state.OverallRate != 1.25 || mirror.calls.Load() != 1 {
		t.Errorf("expected mirrored state, got %+v (calls %d)", state, mirror.calls.Load())
	}

	// A broken mirror still yields a locally computed state
	mirror.state, mirror.err = nil, errors.New("redis down")
	state, err = svc.Inflation(ctx, "l2")
	if err != nil {
		t.Fatalf("Inflation with failing mirror: %v", err)
	}
	if state == nil || state.LeagueID != "l2" {
		t.Errorf("expected recomputed state, got %+v", state)
	}
}
