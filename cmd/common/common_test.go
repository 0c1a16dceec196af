package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadStatusdConfig(t *testing.T) {
	path := writeConfig(t, `
service_name: "my-cool-api"
listen_addr: ":9999"
registry_url: "http://fleetd.internal:8090"
drain_duration: 5s
`)

	cfg, err := LoadStatusdConfig(path)
	require.NoError(t, err)
	require.Equal(t, "my-cool-api", cfg.ServiceName)
	require.Equal(t, ":9999", cfg.ListenAddr)
	require.Equal(t, "http://fleetd.internal:8090", cfg.RegistryURL)
	require.Equal(t, 5*time.Second, cfg.DrainDuration.Std())

	// Defaults survive for fields the file omits.
	require.Equal(t, 10*time.Second, cfg.GracefulShutdownDuration.Std())
}

func TestLoadStatusdConfigDefaults(t *testing.T) {
	cfg, err := LoadStatusdConfig("")
	require.NoError(t, err)
	require.Equal(t, "statusd", cfg.ServiceName)
	require.Equal(t, ":8080", cfg.ListenAddr)
}

func TestLoadFleetdConfig(t *testing.T) {
	path := writeConfig(t, `
listen_addr: ":8090"
admin_token: "admin:secret"
poll_interval: 1m
staleness_window: 3m
postgres:
  host: "db.internal"
  port: 5432
  user: "fleet"
  password: "secret"
  database: "fleetpulse"
`)

	cfg, err := LoadFleetdConfig(path)
	require.NoError(t, err)
	require.Equal(t, "admin:secret", cfg.AdminToken)
	require.Equal(t, time.Minute, cfg.PollInterval.Std())
	require.Equal(t, 3*time.Minute, cfg.StalenessWindow.Std())
	require.NotNil(t, cfg.Postgres)
	require.Equal(t, "db.internal", cfg.Postgres.Host)
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "poll_interval: nonsense\n")

	_, err := LoadFleetdConfig(path)
	require.Error(t, err)
}
