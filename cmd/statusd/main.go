// Command statusd runs a single fleetpulse service instance.
//
// It serves the service self-report at GET /status together with the
// operational endpoints (/livez, /readyz, /drain, /undrain), and
// optionally a Prometheus metrics listener. When a registry URL is
// configured the instance self-registers with fleetd at startup so the
// collector starts polling it.
//
// # Configuration File
//
// Create a YAML file with instance settings:
//
//	service_name: "my-cool-api"
//	listen_addr: ":8080"
//	metrics_addr: ":9090"
//	registry_url: "http://fleetd.internal:8090"
//	advertise_url: "http://my-host:8080"
//	drain_duration: 15s
//	graceful_shutdown_duration: 10s
//
// # Usage
//
//	go run ./cmd/statusd --config=statusd.yaml
//	go run ./cmd/statusd --name=my-cool-api --addr=:8080
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleetpulse/fleetpulse/buildinfo"
	"github.com/fleetpulse/fleetpulse/cmd/common"
	"github.com/fleetpulse/fleetpulse/fleet"
	"github.com/fleetpulse/fleetpulse/httpserver"
	"github.com/fleetpulse/fleetpulse/status"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Path to YAML config file")
		serviceName  = flag.String("name", "", "Service name reported in /status")
		addr         = flag.String("addr", "", "HTTP listen address")
		metricsAddr  = flag.String("metrics-addr", "", "Metrics listen address (empty disables)")
		enablePprof  = flag.Bool("pprof", false, "Enable the pprof API")
		registryURL  = flag.String("registry", "", "fleetd registry URL for self-registration")
		advertiseURL = flag.String("advertise", "", "Endpoint to advertise to the registry")
	)
	flag.Parse()

	cfg, err := common.LoadStatusdConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *serviceName != "" {
		cfg.ServiceName = *serviceName
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *enablePprof {
		cfg.EnablePprof = true
	}
	if *registryURL != "" {
		cfg.RegistryURL = *registryURL
	}
	if *advertiseURL != "" {
		cfg.AdvertiseURL = *advertiseURL
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *common.StatusdConfig) error {
	log := common.NewLogger(cfg.ServiceName)
	version := buildinfo.ResolveVersion()

	// The process snapshot: resolved here, once, before serving begins.
	reporter := status.NewReporter(cfg.ServiceName, version)

	srv, err := httpserver.New(&httpserver.Config{
		ListenAddr:               cfg.ListenAddr,
		MetricsAddr:              cfg.MetricsAddr,
		EnablePprof:              cfg.EnablePprof,
		Log:                      log,
		Reporter:                 reporter,
		DrainDuration:            cfg.DrainDuration.Std(),
		GracefulShutdownDuration: cfg.GracefulShutdownDuration.Std(),
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	srv.RunInBackground()
	log.Info("statusd started", "version", version, "listenAddress", cfg.ListenAddr)

	if cfg.RegistryURL != "" {
		if err := selfRegister(cfg, log); err != nil {
			// Registration failure keeps the instance serving; the fleet
			// view is degraded, the service is not.
			log.Error("Self-registration with fleet registry failed", "err", err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down")
	srv.Shutdown()
	return nil
}

func selfRegister(cfg *common.StatusdConfig, log *slog.Logger) error {
	endpoint := cfg.AdvertiseURL
	if endpoint == "" {
		endpoint = fmt.Sprintf("http://%s", cfg.ListenAddr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := fleet.RegisterInstance(ctx, cfg.RegistryURL, &fleet.RegistrationRequest{
		Name:     cfg.ServiceName,
		Endpoint: endpoint,
	})
	if err != nil {
		return err
	}

	log.Info("Registered with fleet registry", "instanceID", resp.ID, "registry", cfg.RegistryURL)
	return nil
}
