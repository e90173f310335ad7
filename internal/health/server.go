package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/draftsync/internal/core/domain"
	"github.com/vietddude/draftsync/internal/core/ledger"
	"github.com/vietddude/draftsync/internal/infra/storage"
	"github.com/vietddude/draftsync/internal/reconcile/orchestrator"
)

// LeagueService is the operator surface behind the /api routes.
type LeagueService interface {
	Status(ctx context.Context, leagueID domain.LeagueID) (*domain.SyncStatus, error)
	Ledger(ctx context.Context, leagueID domain.LeagueID) (*domain.Ledger, error)
	Inflation(ctx context.Context, leagueID domain.LeagueID) (*domain.InflationState, error)
	AuctionInfo(leagueID domain.LeagueID) (*domain.AuctionInfo, error)
	SyncNow(ctx context.Context, leagueID domain.LeagueID) (*orchestrator.Result, error)
	SetManualMode(ctx context.Context, leagueID domain.LeagueID, enabled bool) (*domain.SyncStatus, error)
	AddManualPick(ctx context.Context, leagueID domain.LeagueID, pick domain.Pick) (*domain.DraftedPlayer, error)
}

// Server provides HTTP endpoints for health monitoring and league operations.
type Server struct {
	monitor *Monitor
	svc     LeagueService
	server  *http.Server
	log     *slog.Logger
}

// NewServer creates a new health server. A nil svc serves health and metrics only.
func NewServer(monitor *Monitor, svc LeagueService, port int) *Server {
	s := &Server{
		monitor: monitor,
		svc:     svc,
		log:     slog.Default().With("component", "http"),
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.Handle("/metrics", promhttp.Handler())

	if s.svc != nil {
		mux.HandleFunc("GET /api/leagues/{id}/status", s.handleStatus)
		mux.HandleFunc("GET /api/leagues/{id}/ledger", s.handleLedger)
		mux.HandleFunc("GET /api/leagues/{id}/inflation", s.handleInflation)
		mux.HandleFunc("GET /api/leagues/{id}/auction", s.handleAuction)
		mux.HandleFunc("POST /api/leagues/{id}/sync", s.handleSyncNow)
		mux.HandleFunc("POST /api/leagues/{id}/manual-mode", s.handleManualMode)
		mux.HandleFunc("POST /api/leagues/{id}/picks", s.handleManualPick)
	}
	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := Aggregate(s.monitor.CheckHealth(r.Context()))

	code := http.StatusOK
	if status == StatusCritical {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": string(status)})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	report := s.monitor.CheckHealth(r.Context())
	writeJSON(w, http.StatusOK, HealthReport{
		SystemStatus: Aggregate(report),
		Leagues:      report,
		Feed:         s.monitor.FeedStats(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.Status(r.Context(), leagueID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*domain.SyncStatus
		State domain.ConnectionState `json:"connection_state"`
	}{status, status.ConnectionState()})
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	l, err := s.svc.Ledger(r.Context(), leagueID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleInflation(w http.ResponseWriter, r *http.Request) {
	state, err := s.svc.Inflation(r.Context(), leagueID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if state == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "inflation not computed yet"})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleAuction(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.AuctionInfo(leagueID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if info == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no auction snapshot yet"})
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type syncResponse struct {
	Applied        int                         `json:"applied"`
	Skipped        bool                        `json:"skipped"`
	Parked         bool                        `json:"parked"`
	NextSyncIn     string                      `json:"next_sync_in,omitempty"`
	Classification *domain.ErrorClassification `json:"classification,omitempty"`
	Status         *domain.SyncStatus          `json:"status,omitempty"`
}

func (s *Server) handleSyncNow(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.SyncNow(r.Context(), leagueID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := syncResponse{
		Applied:        res.Applied,
		Skipped:        res.Skipped,
		Parked:         res.Parked,
		Classification: res.Classification,
		Status:         res.Status,
	}
	if !res.Parked && res.Next > 0 {
		resp.NextSyncIn = res.Next.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleManualMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Enabled == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": `body must be {"enabled": bool}`})
		return
	}
	status, err := s.svc.SetManualMode(r.Context(), leagueID(r), *body.Enabled)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleManualPick(w http.ResponseWriter, r *http.Request) {
	var pick domain.Pick
	if err := json.NewDecoder(r.Body).Decode(&pick); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pick body"})
		return
	}
	entry, err := s.svc.AddManualPick(r.Context(), leagueID(r), pick)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, orchestrator.ErrUnknownLeague), errors.Is(err, storage.ErrLedgerNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidPick):
		code = http.StatusBadRequest
	case errors.Is(err, ledger.ErrDuplicatePick):
		code = http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	}
	if code == http.StatusInternalServerError {
		s.log.Error("Request failed", "error", err)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func leagueID(r *http.Request) domain.LeagueID {
	return domain.LeagueID(r.PathValue("id"))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
