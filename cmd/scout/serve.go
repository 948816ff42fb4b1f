package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"airdrop-scout/internal/cache/memory"
	"airdrop-scout/internal/observability"
	"airdrop-scout/internal/pipeline"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ops HTTP server and keep watched addresses warm in the cache",
		RunE:  runServe,
	}
	cmd.Flags().String("http-addr", ":9090", "ops HTTP address (health, status, metrics)")
	cmd.Flags().String("projects", "", "JSON file of projects to seed at startup")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if path, _ := cmd.Flags().GetString("projects"); path != "" {
		if _, err := seedProjects(ctx, a.projects, path, logger); err != nil {
			return err
		}
	}

	server := &Server{
		engine:        a.engine,
		memCache:      a.memCache,
		watch:         cfg.Watch.Addresses,
		watchInterval: cfg.Watch.Interval,
		sweepInterval: cfg.Cache.SweepInterval,
		logger:        logger.With().Str("component", "server").Logger(),
	}

	done := make(chan struct{})
	defer close(done)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
			cancel()
		case <-done:
			return
		}

		select {
		case sig := <-sigCh:
			logger.Error().Str("signal", sig.String()).Msg("second signal, forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Error().Msg("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = server.Run(ctx, cfg.HTTP.Addr)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server: %w", err)
	}
	logger.Info().Msg("shutdown complete")
	return nil
}

// Evaluator is the part of the engine the server drives.
type Evaluator interface {
	Evaluate(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Server runs the ops HTTP endpoints, the cache warmer and the cache sweeper.
type Server struct {
	engine        Evaluator
	memCache      *memory.Store
	watch         []string
	watchInterval time.Duration
	sweepInterval time.Duration
	logger        zerolog.Logger

	// State
	mu          sync.Mutex
	started     time.Time
	lastWarmRun time.Time
	warmRunning bool
	warmRuns    int
	warmErrors  int
	swept       int
}

// Run serves HTTP on addr and runs background loops until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.mu.Lock()
	s.started = time.Now()
	s.mu.Unlock()

	observability.SetWatchedAddresses(len(s.watch))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var wg sync.WaitGroup
	if len(s.watch) > 0 && s.watchInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runWarmScheduler(ctx)
		}()
	}
	if s.memCache != nil && s.sweepInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runSweeper(ctx)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("http shutdown")
	}
	wg.Wait()
	return runErr
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	return mux
}

// runWarmScheduler re-evaluates watched addresses every watchInterval,
// starting immediately.
func (s *Server) runWarmScheduler(ctx context.Context) {
	s.logger.Info().Dur("interval", s.watchInterval).Int("addresses", len(s.watch)).Msg("starting cache warmer")

	s.warm(ctx)

	ticker := time.NewTicker(s.watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.warm(ctx)
		}
	}
}

// warm refreshes every watched address. One failing address does not stop
// the others.
func (s *Server) warm(ctx context.Context) {
	s.mu.Lock()
	if s.warmRunning {
		s.mu.Unlock()
		s.logger.Debug().Msg("warm run already in progress, skipping")
		return
	}
	s.warmRunning = true
	s.mu.Unlock()

	start := time.Now()
	failed := 0
	for _, addr := range s.watch {
		if ctx.Err() != nil {
			break
		}
		res, err := s.engine.Evaluate(ctx, pipeline.Request{Address: addr, Refresh: true})
		if err != nil {
			failed++
			s.logger.Warn().Err(err).Str("address", addr).Msg("warm evaluation failed")
			continue
		}
		s.logger.Debug().
			Str("address", res.Address).
			Int("opportunities", len(res.Opportunities.All)).
			Msg("address warmed")
	}

	status := "success"
	if failed > 0 {
		status = "error"
	}
	observability.RecordPipelineRun("warm", status, time.Since(start).Seconds())

	s.mu.Lock()
	s.warmRunning = false
	s.lastWarmRun = time.Now()
	s.warmRuns++
	s.warmErrors += failed
	s.mu.Unlock()
}

// runSweeper evicts expired memory cache entries.
func (s *Server) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := s.memCache.Sweep()
			s.mu.Lock()
			s.swept += n
			s.mu.Unlock()
			if n > 0 {
				s.logger.Debug().Int("evicted", n).Int("remaining", s.memCache.Len()).Msg("cache swept")
			}
		}
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status           string    `json:"status"`
	Uptime           string    `json:"uptime"`
	Started          time.Time `json:"started"`
	WatchedAddresses int       `json:"watched_addresses"`
	LastWarmRun      time.Time `json:"last_warm_run,omitempty"`
	WarmRuns         int       `json:"warm_runs"`
	WarmErrors       int       `json:"warm_errors"`
	WarmRunning      bool      `json:"warm_running"`
	CacheEntries     *int      `json:"cache_entries,omitempty"`
	CacheSwept       int       `json:"cache_swept"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:           "running",
		Uptime:           time.Since(s.started).Round(time.Second).String(),
		Started:          s.started,
		WatchedAddresses: len(s.watch),
		LastWarmRun:      s.lastWarmRun,
		WarmRuns:         s.warmRuns,
		WarmErrors:       s.warmErrors,
		WarmRunning:      s.warmRunning,
		CacheSwept:       s.swept,
	}
	s.mu.Unlock()

	if s.memCache != nil {
		n := s.memCache.Len()
		resp.CacheEntries = &n
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
