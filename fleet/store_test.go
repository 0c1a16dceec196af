package fleet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_SaveLoadDelete(t *testing.T) {
	store := NewInMemoryStore()

	inst := &Instance{
		ID:           "inst-1",
		Name:         "orders-api",
		Endpoint:     "http://localhost:9001",
		RegisteredAt: time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveInstance(inst))

	loaded, err := store.LoadAllInstances()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, inst, loaded["inst-1"])

	require.NoError(t, store.DeleteInstance("inst-1"))

	loaded, err = store.LoadAllInstances()
	require.NoError(t, err)
	require.Empty(t, loaded)
}

func TestPostgresConfig_ConnectionString(t *testing.T) {
	cfg := &PostgresConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "fleet",
		Password: "secret",
		Database: "fleetpulse",
	}
	require.Equal(t,
		"host=db.internal port=5432 user=fleet password=secret dbname=fleetpulse sslmode=disable",
		cfg.ConnectionString())

	cfg.SSLMode = "require"
	require.Equal(t,
		"host=db.internal port=5432 user=fleet password=secret dbname=fleetpulse sslmode=require",
		cfg.ConnectionString())
}
