package inflation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/draftsync/internal/core/domain"
	"github.com/vietddude/draftsync/internal/infra/storage/memory"
)

type countingLedgers struct {
	mu    sync.Mutex
	calls map[domain.LeagueID]int
}

func (c *countingLedgers) Get(ctx context.Context, leagueID domain.LeagueID) (*domain.Ledger, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[leagueID]++
	return &domain.Ledger{LeagueID: leagueID, InitialBudget: 260, RemainingBudget: 260}, nil
}

func (c *countingLedgers) count(leagueID domain.LeagueID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[leagueID]
}

type recordingMirror struct {
	mu     sync.Mutex
	states []*domain.InflationState
}

func (m *recordingMirror) PutInflation(ctx context.Context, state *domain.InflationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, state)
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestRecomputer_CoalescesBurst(t *testing.T) {
	store := memory.NewMemoryStorage()
	ledgers := &countingLedgers{calls: make(map[domain.LeagueID]int)}
	inflation := memory.NewInflationStore(store)
	r := NewRecomputer(ledgers, memory.NewProjectionRepo(store), inflation, 20*time.Millisecond)
	mirror := &recordingMirror{}
	r.SetMirror(mirror)

	for i := 0; i < 5; i++ {
		r.Notify("a")
	}
	r.Notify("b")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	waitFor(t, func() bool {
		a, _ := inflation.Get(ctx, "a")
		b, _ := inflation.Get(ctx, "b")
		return a != nil && b != nil
	})
	time.Sleep(60 * time.Millisecond)

	if got := ledgers.count("a"); got != 1 {
		t.Errorf("expected one recompute for a, got %d", got)
	}
	if got := ledgers.count("b"); got != 1 {
		t.Errorf("expected one recompute for b, got %d", got)
	}

	mirror.mu.Lock()
	mirrored := len(mirror.states)
	mirror.mu.Unlock()
	if mirrored != 2 {
		t.Errorf("expected 2 mirrored states, got %d", mirrored)
	}
}

func TestRecomputer_LaterNotifyRecomputesAgain(t *testing.T) {
	store := memory.NewMemoryStorage()
	ledgers := &countingLedgers{calls: make(map[domain.LeagueID]int)}
	r := NewRecomputer(ledgers, memory.NewProjectionRepo(store), memory.NewInflationStore(store), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	r.Notify("a")
	waitFor(t, func() bool { return ledgers.count("a") == 1 })

	r.Notify("a")
	waitFor(t, func() bool { return ledgers.count("a") == 2 })
}

func TestRecomputer_StopsOnCancel(t *testing.T) {
	store := memory.NewMemoryStorage()
	r := NewRecomputer(&countingLedgers{calls: map[domain.LeagueID]int{}},
		memory.NewProjectionRepo(store), memory.NewInflationStore(store), 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
