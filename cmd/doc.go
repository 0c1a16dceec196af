// Package cmd provides CLI commands for fleetpulse services.
//
// # Commands
//
// statusd: Runs a single service instance exposing its self-report.
// Serves GET /status plus the operational endpoints, and optionally
// self-registers with a fleetd registry.
//
//	go run ./cmd/statusd --name=my-cool-api --addr=:8080
//	go run ./cmd/statusd --config=statusd.yaml --registry=http://localhost:8090
//
// fleetd: Runs the fleet registry and collector. Keeps the instance
// roster, polls every instance's status endpoint, and serves the
// fleet-wide rollups dashboards consume.
//
//	go run ./cmd/fleetd --addr=:8090 --admin-token=admin:secret
//	go run ./cmd/fleetd --config=fleetd.yaml
//
// # Configuration
//
// Both commands support YAML configuration files via the --config flag.
// Command-line flags override config file values.
//
// # Version Reporting
//
// The version served in status reports is injected at build time:
//
//	go build -ldflags "-X github.com/fleetpulse/fleetpulse/buildinfo.Version=2.3.17" ./cmd/...
package cmd
