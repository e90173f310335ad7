// Package control wires the draft sync components together and owns their lifecycle.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/draftsync/internal/core/config"
	"github.com/vietddude/draftsync/internal/core/domain"
	"github.com/vietddude/draftsync/internal/core/ledger"
	"github.com/vietddude/draftsync/internal/core/syncstatus"
	"github.com/vietddude/draftsync/internal/events"
	"github.com/vietddude/draftsync/internal/health"
	"github.com/vietddude/draftsync/internal/inflation"
	"github.com/vietddude/draftsync/internal/infra/feed"
	"github.com/vietddude/draftsync/internal/infra/projections"
	redisclient "github.com/vietddude/draftsync/internal/infra/redis"
	"github.com/vietddude/draftsync/internal/infra/storage"
	"github.com/vietddude/draftsync/internal/infra/storage/memory"
	"github.com/vietddude/draftsync/internal/infra/storage/postgres"
	"github.com/vietddude/draftsync/internal/metrics"
	"github.com/vietddude/draftsync/internal/reconcile/classifier"
	"github.com/vietddude/draftsync/internal/reconcile/orchestrator"
)

// Options override wiring for embedding and tests. The zero value builds
// everything from config.
type Options struct {
	Feed feed.Adapter // replaces the HTTP feed adapter
}

// inflationMirror reads inflation published by any instance.
type inflationMirror interface {
	GetInflation(ctx context.Context, leagueID domain.LeagueID) (*domain.InflationState, error)
}

// Service is the main application struct that manages the sync lifecycle.
type Service struct {
	cfg *config.AppConfig
	log *slog.Logger

	leagues map[domain.LeagueID]domain.League

	tracker     *syncstatus.Tracker
	ledgers     *ledger.Manager
	projections storage.ProjectionRepository
	inflation   storage.InflationStore
	recomputer  *inflation.Recomputer
	orch        *orchestrator.Orchestrator
	bus         *events.Bus

	healthMon    *health.Monitor
	healthServer *health.Server
	grpcServer   *health.GRPCServer

	db          *postgres.DB
	redisClient *redisclient.Client
	mirror      inflationMirror // nil without Redis

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewService creates a Service with all dependencies initialized.
func NewService(ctx context.Context, cfg *config.AppConfig, opts Options) (*Service, error) {
	s := &Service{
		cfg:     cfg,
		log:     slog.Default().With("component", "service"),
		leagues: make(map[domain.LeagueID]domain.League, len(cfg.Leagues)),
	}

	// 1. Storage
	var (
		statusRepo storage.SyncStatusRepository
		ledgerRepo storage.LedgerRepository
	)
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		s.db = db
		statusRepo = postgres.NewSyncStatusRepo(db)
		ledgerRepo = postgres.NewLedgerRepo(db)
		s.projections = postgres.NewProjectionRepo(db)
		s.inflation = postgres.NewInflationStore(db)
		s.log.Info("Using PostgreSQL storage")
	} else {
		store := memory.NewMemoryStorage()
		statusRepo = memory.NewSyncStatusRepo(store)
		ledgerRepo = memory.NewLedgerRepo(store)
		s.projections = memory.NewProjectionRepo(store)
		s.inflation = memory.NewInflationStore(store)
		s.log.Info("Using Memory storage")
	}

	// 2. Redis (optional): cross-instance lock, inflation mirror, event fan-out
	sinks := []events.Emitter{events.NewLogEmitter()}
	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			s.log.Warn("Failed to connect to Redis, running single-instance", "error", err)
		} else {
			s.redisClient = client
			sinks = append(sinks, redisclient.NewPublisher(client))
		}
	}
	s.bus = events.NewBus(sinks...)

	// 3. Core components
	cl := classifier.New(classifier.Backoff{
		InitialDelay: cfg.Sync.RetryBase,
		MaxDelay:     cfg.Sync.RetryMax,
		Multiplier:   2,
	}, cfg.Sync.ManualModeThreshold)

	s.tracker = syncstatus.NewTracker(statusRepo, cl)
	s.ledgers = ledger.NewManager(ledgerRepo, s.projections)
	s.recomputer = inflation.NewRecomputer(s.ledgers, s.projections, s.inflation, cfg.Sync.Debounce)
	if s.redisClient != nil {
		s.recomputer.SetMirror(s.redisClient)
		s.mirror = s.redisClient
	}
	s.ledgers.OnChange(func(leagueID domain.LeagueID) {
		s.recomputer.Notify(leagueID)
	})

	adapter := opts.Feed
	if adapter == nil && cfg.Feed.BaseURL != "" {
		adapter = feed.NewHTTPAdapter(cfg.Feed.BaseURL, cfg.Feed.APIKey, cfg.Feed.Timeout)
	}

	deps := orchestrator.Dependencies{
		Feed:       adapter,
		Tracker:    s.tracker,
		Ledger:     s.ledgers,
		Classifier: cl,
		Emitter:    s.bus,
	}
	if s.redisClient != nil {
		deps.Locker = s.redisClient
	}
	s.orch = orchestrator.New(orchestrator.Config{
		Interval:         cfg.Sync.Interval,
		SoftTimeout:      cfg.Sync.SoftTimeout,
		CatchUpThreshold: cfg.Sync.CatchUpThreshold,
		LockTTL:          cfg.Sync.LockTTL,
	}, deps)

	// 4. Leagues
	for _, lc := range cfg.Leagues {
		league := lc.League()
		if league.HasFeed() && adapter == nil {
			s.log.Warn("No feed base_url configured, league runs in manual entry only", "league", league.ID)
			league.RoomID = ""
		}
		s.leagues[league.ID] = league
	}

	// 5. Health surfaces
	s.healthMon = health.NewMonitor(s.tracker, s.orch, healthCacheTTL)
	if ha, ok := adapter.(*feed.HTTPAdapter); ok {
		s.healthMon.SetFeedStats(func() health.FeedHealth {
			st := ha.Stats()
			return health.FeedHealth{
				SuccessCount:  st.SuccessCount,
				FailureCount:  st.FailureCount,
				LastLatencyMs: st.LastLatency.Milliseconds(),
			}
		})
	}
	s.healthServer = health.NewServer(s.healthMon, s, cfg.Server.Port)
	if cfg.Server.GRPCPort > 0 {
		grpcServer, err := health.NewGRPCServer(cfg.Server.GRPCPort)
		if err != nil {
			s.closeBackends()
			return nil, err
		}
		s.grpcServer = grpcServer
	}

	s.tracker.SetStateChangeCallback(s.onStateChange)
	return s, nil
}

func (s *Service) onStateChange(leagueID domain.LeagueID, tr syncstatus.Transition) {
	s.log.Info("League connection state changed",
		"league", leagueID, "from", tr.From, "to", tr.To, "reason", tr.Reason,
		"description", syncstatus.StateDescription(tr.To))
	metrics.SetConnectionState(string(leagueID), string(tr.To))
	if s.grpcServer != nil {
		s.grpcServer.SetLeagueState(leagueID, tr.To)
	}
}

// Start prepares every league and launches the background components.
func (s *Service) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prepareConcurrency)
	for _, league := range s.leagues {
		g.Go(func() error {
			if err := s.prepare(gctx, league); err != nil {
				return fmt.Errorf("league %s: %w", league.ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, league := range s.leagues {
		s.orch.Add(league)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.recomputer.Run(runCtx)
	}()

	if s.db != nil {
		s.db.StartMetricsCollector(runCtx)
	}

	go func() {
		if err := s.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Health server failed", "error", err)
		}
	}()

	if s.grpcServer != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.grpcServer.Serve(runCtx); err != nil {
				s.log.Error("gRPC health server failed", "error", err)
			}
		}()
	}

	for id := range s.leagues {
		s.recomputer.Notify(id)
	}

	s.log.Info("Starting sync loops", "leagues", len(s.leagues))
	return s.orch.Start()
}

// prepare creates the ledger, seeds projections and publishes the initial state.
func (s *Service) prepare(ctx context.Context, league domain.League) error {
	if _, err := s.ledgers.Initialize(ctx, league); err != nil {
		return err
	}

	for _, lc := range s.cfg.Leagues {
		if lc.ID != league.ID || lc.ProjectionsFile == "" {
			continue
		}
		n, err := projections.Seed(ctx, s.projections, league.ID, lc.ProjectionsFile)
		if err != nil {
			return err
		}
		s.log.Info("Loaded projections", "league", league.ID, "count", n)
	}

	status, err := s.tracker.Get(ctx, league.ID)
	if err != nil {
		return err
	}
	state := status.ConnectionState()
	metrics.SetConnectionState(string(league.ID), string(state))
	if s.grpcServer != nil {
		s.grpcServer.SetLeagueState(league.ID, state)
	}
	return nil
}

// Stop stops all components. It is safe to call more than once.
func (s *Service) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.log.Info("Stopping service...")

		s.orch.Stop()
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()

		if cerr := s.bus.Close(); cerr != nil {
			s.log.Warn("Failed to close event sinks", "error", cerr)
		}
		err = s.healthServer.Stop(ctx)
		s.closeBackends()
	})
	return err
}

func (s *Service) closeBackends() {
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn("Failed to close database", "error", err)
		}
	}
}
