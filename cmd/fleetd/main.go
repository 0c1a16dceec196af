// Command fleetd runs the fleetpulse registry and collector.
//
// fleetd keeps the roster of service instances, polls every registered
// instance's GET /status endpoint, and serves fleet-wide rollups for
// dashboards.
//
// # Configuration File
//
// Create a YAML file with fleetd settings:
//
//	listen_addr: ":8090"
//	metrics_addr: ":9091"
//	admin_token: "admin:secret"
//	poll_interval: 30s
//	staleness_window: 90s
//	postgres:
//	  host: "db.internal"
//	  port: 5432
//	  user: "fleet"
//	  password: "secret"
//	  database: "fleetpulse"
//
// Omitting the postgres section keeps registrations in memory.
//
// # Endpoints
//
// Public (CORS enabled for dashboards):
//   - POST /register - Instance self-registration
//   - GET /instances - List registered instances
//   - GET /instances/{id} - One instance
//   - GET /fleet/statuses - Latest report per instance
//   - GET /fleet/summary - Version/uptime rollup
//   - GET /status - fleetd's own self-report
//   - GET /livez - Health check
//
// Admin (basic auth when admin_token set):
//   - DELETE /admin/unregister/{id} - Remove an instance
//
// # Usage
//
//	go run ./cmd/fleetd --config=fleetd.yaml
//	go run ./cmd/fleetd --addr=:8090 --admin-token="admin:secret"
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fleetpulse/fleetpulse/buildinfo"
	"github.com/fleetpulse/fleetpulse/cmd/common"
	"github.com/fleetpulse/fleetpulse/fleet"
	"github.com/fleetpulse/fleetpulse/metrics"
	"github.com/fleetpulse/fleetpulse/status"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Path to YAML config file")
		addr         = flag.String("addr", "", "HTTP listen address")
		metricsAddr  = flag.String("metrics-addr", "", "Metrics listen address (empty disables)")
		adminToken   = flag.String("admin-token", "", "Basic auth token for admin operations (user:pass)")
		pollInterval = flag.Duration("poll-interval", 0, "Interval between fleet sweeps")
	)
	flag.Parse()

	cfg, err := common.LoadFleetdConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *adminToken != "" {
		cfg.AdminToken = *adminToken
	}
	if *pollInterval != 0 {
		cfg.PollInterval = common.Duration(*pollInterval)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *common.FleetdConfig) error {
	log := common.NewLogger("fleetd")

	store, cleanup, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	registry, err := fleet.NewRegistry(&fleet.RegistryConfig{
		AdminToken: cfg.AdminToken,
		Store:      store,
	})
	if err != nil {
		return fmt.Errorf("creating registry: %w", err)
	}

	metricsSrv, err := metrics.New("fleetpulse", cfg.MetricsAddr)
	if err != nil {
		return fmt.Errorf("creating metrics server: %w", err)
	}

	collector := fleet.NewCollector(&fleet.CollectorConfig{
		PollInterval:    cfg.PollInterval.Std(),
		StalenessWindow: cfg.StalenessWindow.Std(),
		PollTimeout:     cfg.PollTimeout.Std(),
		Log:             log,
		MetricsRegistry: metricsSrv.Registry(),
	}, registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go collector.Run(ctx)

	reporter := status.NewReporter("fleetd", buildinfo.ResolveVersion())
	router := newRouter(log, registry, collector, reporter)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	if cfg.MetricsAddr != "" {
		go func() {
			log.With("metricsAddress", cfg.MetricsAddr).Info("Starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Metrics server failed", "err", err)
			}
		}()
	}

	go func() {
		log.Info("fleetd listening", "listenAddress", cfg.ListenAddr)
		if cfg.AdminToken == "" {
			log.Warn("No admin token configured, /admin/* routes are unprotected")
		}
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", "err", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down fleetd")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if cfg.MetricsAddr != "" {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("Graceful metrics server shutdown failed", "err", err)
		}
	}
	return server.Shutdown(shutdownCtx)
}

func newRouter(log *slog.Logger, registry *fleet.Registry, collector *fleet.Collector, reporter *status.Reporter) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(func(next http.Handler) http.Handler {
		return httplogger.LoggingMiddlewareSlog(log, next)
	})
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	registry.RegisterPublicRoutes(r)
	registry.RegisterAdminRoutes(r)
	collector.RegisterRoutes(r)
	status.NewHandler(reporter).RegisterRoutes(r)

	r.Get("/livez", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"alive"}`))
	})

	return r
}

func openStore(cfg *common.FleetdConfig, log *slog.Logger) (fleet.RegistryStore, func(), error) {
	if cfg.Postgres == nil {
		log.Info("Using in-memory registry store")
		return fleet.NewInMemoryStore(), func() {}, nil
	}

	store, err := fleet.NewPostgresStore(cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	log.Info("Using postgres registry store", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	return store, func() {
		if err := store.Close(); err != nil {
			log.Error("Closing postgres store failed", "err", err)
		}
	}, nil
}
