// Package common provides shared helpers for fleetpulse CLI commands.
//
// This package contains the YAML configuration types and loaders used by
// the standalone service binaries (statusd, fleetd) to reduce code
// duplication. Flags override file values; file values override
// defaults.
package common

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fleetpulse/fleetpulse/fleet"
)

// Duration wraps time.Duration so YAML configs can use "10s" notation.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// StatusdConfig configures a statusd instance.
type StatusdConfig struct {
	ServiceName              string   `yaml:"service_name"`
	ListenAddr               string   `yaml:"listen_addr"`
	MetricsAddr              string   `yaml:"metrics_addr"`
	EnablePprof              bool     `yaml:"enable_pprof"`
	RegistryURL              string   `yaml:"registry_url"`
	AdvertiseURL             string   `yaml:"advertise_url"`
	DrainDuration            Duration `yaml:"drain_duration"`
	GracefulShutdownDuration Duration `yaml:"graceful_shutdown_duration"`
}

// DefaultStatusdConfig returns the statusd defaults.
func DefaultStatusdConfig() *StatusdConfig {
	return &StatusdConfig{
		ServiceName:              "statusd",
		ListenAddr:               ":8080",
		DrainDuration:            Duration(15 * time.Second),
		GracefulShutdownDuration: Duration(10 * time.Second),
	}
}

// LoadStatusdConfig reads a YAML config file over the defaults.
func LoadStatusdConfig(path string) (*StatusdConfig, error) {
	cfg := DefaultStatusdConfig()
	if path == "" {
		return cfg, nil
	}
	if err := loadYAML(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FleetdConfig configures the fleetd registry and collector.
type FleetdConfig struct {
	ListenAddr      string                `yaml:"listen_addr"`
	MetricsAddr     string                `yaml:"metrics_addr"`
	AdminToken      string                `yaml:"admin_token"`
	PollInterval    Duration              `yaml:"poll_interval"`
	StalenessWindow Duration              `yaml:"staleness_window"`
	PollTimeout     Duration              `yaml:"poll_timeout"`
	Postgres        *fleet.PostgresConfig `yaml:"postgres"`
}

// DefaultFleetdConfig returns the fleetd defaults.
func DefaultFleetdConfig() *FleetdConfig {
	return &FleetdConfig{
		ListenAddr:   ":8090",
		PollInterval: Duration(30 * time.Second),
		PollTimeout:  Duration(10 * time.Second),
	}
}

// LoadFleetdConfig reads a YAML config file over the defaults.
func LoadFleetdConfig(path string) (*FleetdConfig, error) {
	cfg := DefaultFleetdConfig()
	if path == "" {
		return cfg, nil
	}
	if err := loadYAML(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}

// NewLogger creates the structured logger used by the commands.
func NewLogger(service string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", service)
}
