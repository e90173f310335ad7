package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vietddude/draftsync/internal/core/domain"
	"github.com/vietddude/draftsync/internal/core/ledger"
	"github.com/vietddude/draftsync/internal/reconcile/orchestrator"
)

// =============================================================================
// Stubs
// =============================================================================

type stubStatuses struct {
	statuses map[domain.LeagueID]*domain.SyncStatus
	err      error
}

func (s *stubStatuses) Get(ctx context.Context, id domain.LeagueID) (*domain.SyncStatus, error) {
	if s.err != nil {
		return nil, s.err
	}
	if st, ok := s.statuses[id]; ok {
		return st, nil
	}
	return domain.NewSyncStatus(id), nil
}

type stubRegistry struct {
	ids    []domain.LeagueID
	parked map[domain.LeagueID]bool
}

func (s *stubRegistry) Leagues() []domain.League {
	out := make([]domain.League, len(s.ids))
	for i, id := range s.ids {
		out[i] = domain.League{ID: id}
	}
	return out
}

func (s *stubRegistry) IsParked(id domain.LeagueID) bool { return s.parked[id] }

type stubService struct {
	status     *domain.SyncStatus
	manualSet  *bool
	picked     *domain.Pick
	pickErr    error
	syncResult *orchestrator.Result
}

func (s *stubService) known(id domain.LeagueID) error {
	if id != "l1" {
		return fmt.Errorf("%w: %s", orchestrator.ErrUnknownLeague, id)
	}
	return nil
}

func (s *stubService) Status(ctx context.Context, id domain.LeagueID) (*domain.SyncStatus, error) {
	if err := s.known(id); err != nil {
		return nil, err
	}
	return s.status, nil
}

func (s *stubService) Ledger(ctx context.Context, id domain.LeagueID) (*domain.Ledger, error) {
	if err := s.known(id); err != nil {
		return nil, err
	}
	return &domain.Ledger{LeagueID: id, InitialBudget: 260, RemainingBudget: 218}, nil
}

func (s *stubService) Inflation(ctx context.Context, id domain.LeagueID) (*domain.InflationState, error) {
	return nil, s.known(id)
}

func (s *stubService) AuctionInfo(id domain.LeagueID) (*domain.AuctionInfo, error) {
	if err := s.known(id); err != nil {
		return nil, err
	}
	return &domain.AuctionInfo{NominatedPlayerID: "p9", CurrentBid: 12, IsActive: true}, nil
}

func (s *stubService) SyncNow(ctx context.Context, id domain.LeagueID) (*orchestrator.Result, error) {
	if err := s.known(id); err != nil {
		return nil, err
	}
	return s.syncResult, nil
}

func (s *stubService) SetManualMode(ctx context.Context, id domain.LeagueID, enabled bool) (*domain.SyncStatus, error) {
	if err := s.known(id); err != nil {
		return nil, err
	}
	s.manualSet = &enabled
	st := domain.NewSyncStatus(id)
	st.IsManualMode = enabled
	return st, nil
}

func (s *stubService) AddManualPick(ctx context.Context, id domain.LeagueID, pick domain.Pick) (*domain.DraftedPlayer, error) {
	if err := s.known(id); err != nil {
		return nil, err
	}
	if s.pickErr != nil {
		return nil, s.pickErr
	}
	s.picked = &pick
	return &domain.DraftedPlayer{PlayerID: pick.PlayerID, PurchasePrice: pick.Price, Source: domain.SourceManual}, nil
}

func connected(id domain.LeagueID) *domain.SyncStatus {
	st := domain.NewSyncStatus(id)
	st.IsConnected = true
	return st
}

func newTestServer(statuses *stubStatuses, svc LeagueService, ids ...domain.LeagueID) http.Handler {
	monitor := NewMonitor(statuses, &stubRegistry{ids: ids}, 0)
	return NewServer(monitor, svc, 0).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// =============================================================================
// Monitor
// =============================================================================

func TestMonitor_StateMapping(t *testing.T) {
	reconnecting := domain.NewSyncStatus("b")
	reconnecting.FailureCount = 1
	manual := domain.NewSyncStatus("c")
	manual.IsManualMode = true

	statuses := &stubStatuses{statuses: map[domain.LeagueID]*domain.SyncStatus{
		"a": connected("a"),
		"b": reconnecting,
		"c": manual,
	}}
	registry := &stubRegistry{ids: []domain.LeagueID{"a", "b", "c", "d"}, parked: map[domain.LeagueID]bool{"c": true}}
	report := NewMonitor(statuses, registry, 0).CheckHealth(context.Background())

	want := map[domain.LeagueID]SystemStatus{
		"a": StatusHealthy,
		"b": StatusDegraded,
		"c": StatusDegraded,
		"d": StatusCritical, // never connected
	}
	for id, status := range want {
		if report[id].Status != status {
			t.Errorf("league %s: expected %s, got %s (%+v)", id, status, report[id].Status, report[id])
		}
	}
	if !report["c"].Parked {
		t.Error("expected league c to be reported parked")
	}
	if Aggregate(report) != StatusCritical {
		t.Errorf("expected critical aggregate, got %s", Aggregate(report))
	}
}

func TestMonitor_StoreError(t *testing.T) {
	statuses := &stubStatuses{err: errors.New("db down")}
	report := NewMonitor(statuses, &stubRegistry{ids: []domain.LeagueID{"a"}}, 0).CheckHealth(context.Background())
	if report["a"].Status != StatusDegraded {
		t.Errorf("expected degraded on store error, got %s", report["a"].Status)
	}
}

func TestMonitor_Caches(t *testing.T) {
	statuses := &stubStatuses{statuses: map[domain.LeagueID]*domain.SyncStatus{"a": connected("a")}}
	m := NewMonitor(statuses, &stubRegistry{ids: []domain.LeagueID{"a"}}, time.Minute)

	m.CheckHealth(context.Background())
	statuses.err = errors.New("db down")
	if got := m.CheckHealth(context.Background())["a"].Status; got != StatusHealthy {
		t.Errorf("expected cached healthy report, got %s", got)
	}
}

// =============================================================================
// HTTP
// =============================================================================

func TestServer_Health(t *testing.T) {
	statuses := &stubStatuses{statuses: map[domain.LeagueID]*domain.SyncStatus{"a": connected("a")}}
	h := newTestServer(statuses, nil, "a")

	rec := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("expected 200 healthy, got %d %s", rec.Code, rec.Body.String())
	}

	h = newTestServer(statuses, nil, "a", "b")
	rec = do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 with a disconnected league, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/health/detailed", "")
	var report HealthReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode detailed: %v", err)
	}
	if len(report.Leagues) != 2 || report.SystemStatus != StatusCritical {
		t.Errorf("unexpected detailed report %+v", report)
	}
}

func TestServer_DetailedFeedStats(t *testing.T) {
	statuses := &stubStatuses{statuses: map[domain.LeagueID]*domain.SyncStatus{"a": connected("a")}}
	monitor := NewMonitor(statuses, &stubRegistry{ids: []domain.LeagueID{"a"}}, 0)
	h := NewServer(monitor, nil, 0).Handler()

	rec := do(t, h, http.MethodGet, "/health/detailed", "")
	if strings.Contains(rec.Body.String(), `"feed"`) {
		t.Errorf("expected no feed section without a feed, got %s", rec.Body.String())
	}

	monitor.SetFeedStats(func() FeedHealth {
		return FeedHealth{SuccessCount: 7, FailureCount: 2, LastLatencyMs: 120}
	})
	rec = do(t, h, http.MethodGet, "/health/detailed", "")
	var report HealthReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode detailed: %v", err)
	}
	if report.Feed == nil || report.Feed.SuccessCount != 7 || report.Feed.FailureCount != 2 || report.Feed.LastLatencyMs != 120 {
		t.Errorf("unexpected feed stats %+v", report.Feed)
	}
}

func TestServer_APIWithoutService(t *testing.T) {
	h := newTestServer(&stubStatuses{}, nil)
	if rec := do(t, h, http.MethodGet, "/api/leagues/l1/status", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected api routes to be absent, got %d", rec.Code)
	}
}

func TestServer_Reads(t *testing.T) {
	svc := &stubService{status: connected("l1")}
	h := newTestServer(&stubStatuses{}, svc)

	tests := []struct {
		name string
		path string
		code int
		want string
	}{
		{"status", "/api/leagues/l1/status", http.StatusOK, `"connection_state":"connected"`},
		{"ledger", "/api/leagues/l1/ledger", http.StatusOK, `"remaining_budget":218`},
		{"auction", "/api/leagues/l1/auction", http.StatusOK, `"nominated_player_id":"p9"`},
		{"inflation not computed", "/api/leagues/l1/inflation", http.StatusNotFound, "not computed"},
		{"unknown league", "/api/leagues/zz/status", http.StatusNotFound, "not registered"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.path, "")
			if rec.Code != tt.code {
				t.Errorf("expected %d, got %d (%s)", tt.code, rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("expected body containing %s, got %s", tt.want, rec.Body.String())
			}
		})
	}
}

func TestServer_SyncNow(t *testing.T) {
	svc := &stubService{syncResult: &orchestrator.Result{LeagueID: "l1", Applied: 4, Next: 10 * time.Second}}
	h := newTestServer(&stubStatuses{}, svc)

	rec := do(t, h, http.MethodPost, "/api/leagues/l1/sync", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp syncResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Applied != 4 || resp.NextSyncIn != "10s" {
		t.Errorf("unexpected sync response %+v", resp)
	}

	if rec := do(t, h, http.MethodGet, "/api/leagues/l1/sync", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET sync, got %d", rec.Code)
	}
}

func TestServer_ManualMode(t *testing.T) {
	svc := &stubService{}
	h := newTestServer(&stubStatuses{}, svc)

	if rec := do(t, h, http.MethodPost, "/api/leagues/l1/manual-mode", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing flag, got %d", rec.Code)
	}

	rec := do(t, h, http.MethodPost, "/api/leagues/l1/manual-mode", `{"enabled": false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.manualSet == nil || *svc.manualSet {
		t.Errorf("expected manual mode disabled, got %v", svc.manualSet)
	}
}

func TestServer_ManualPick(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		pickErr error
		code    int
	}{
		{"created", `{"player_id":"p1","price":25,"positions":["SS"]}`, nil, http.StatusCreated},
		{"malformed", `{"player_id":`, nil, http.StatusBadRequest},
		{"invalid", `{"price":-1}`, fmt.Errorf("%w: missing player id", ledger.ErrInvalidPick), http.StatusBadRequest},
		{"duplicate", `{"player_id":"p1","price":25}`, fmt.Errorf("%w: p1", ledger.ErrDuplicatePick), http.StatusConflict},
		{"storage failure", `{"player_id":"p1","price":25}`, errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{pickErr: tt.pickErr}
			rec := do(t, newTestServer(&stubStatuses{}, svc), http.MethodPost, "/api/leagues/l1/picks", tt.body)
			if rec.Code != tt.code {
				t.Errorf("expected %d, got %d (%s)", tt.code, rec.Code, rec.Body.String())
			}
		})
	}
}

// =============================================================================
// gRPC
// =============================================================================

func TestGRPCServer_LeagueStatus(t *testing.T) {
	s, err := NewGRPCServer(0)
	if err != nil {
		t.Fatalf("NewGRPCServer: %v", err)
	}
	defer s.listener.Close()

	ctx := context.Background()
	if got, _ := s.Check(ctx, ""); got != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("expected overall SERVING, got %s", got)
	}
	if _, err := s.Check(ctx, ServiceName("l1")); err == nil {
		t.Error("expected unknown service before first state")
	}

	tests := []struct {
		state domain.ConnectionState
		want  grpc_health_v1.HealthCheckResponse_ServingStatus
	}{
		{domain.StateConnected, grpc_health_v1.HealthCheckResponse_SERVING},
		{domain.StateReconnecting, grpc_health_v1.HealthCheckResponse_SERVING},
		{domain.StateManual, grpc_health_v1.HealthCheckResponse_NOT_SERVING},
		{domain.StateDisconnected, grpc_health_v1.HealthCheckResponse_NOT_SERVING},
	}
	for _, tt := range tests {
		s.SetLeagueState("l1", tt.state)
		if got, err := s.Check(ctx, ServiceName("l1")); err != nil || got != tt.want {
			t.Errorf("state %s: expected %s, got %s (%v)", tt.state, tt.want, got, err)
		}
	}
}
