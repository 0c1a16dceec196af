package fleet

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/fleetpulse/fleetpulse/testutil"
)

func setupTestCollector(t *testing.T) (*Registry, *Collector) {
	t.Helper()

	registry, err := NewRegistry(&RegistryConfig{Store: NewInMemoryStore()})
	require.NoError(t, err)

	collector := NewCollector(&CollectorConfig{
		PollInterval:    time.Minute,
		StalenessWindow: time.Hour,
		PollTimeout:     2 * time.Second,
		Log:             slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, registry)

	return registry, collector
}

func TestCollector_SweepCachesReports(t *testing.T) {
	registry, collector := setupTestCollector(t)

	srv := testutil.ServeStatus(t, testutil.NewTestReport(
		testutil.WithName("orders-api"),
		testutil.WithVersion("2.3.17"),
	))

	_, err := registry.Register(&RegistrationRequest{Name: "orders-api", Endpoint: srv.URL})
	require.NoError(t, err)

	collector.sweep(context.Background())

	statuses := collector.Statuses()
	require.Len(t, statuses, 1)
	require.False(t, statuses[0].Stale)
	require.NotNil(t, statuses[0].Report)
	require.Equal(t, "orders-api", statuses[0].Report.Name)
	require.Equal(t, "2.3.17", statuses[0].Report.Version)
	require.Empty(t, statuses[0].LastError)
}

func TestCollector_UnreachableInstanceIsStaleNotOmitted(t *testing.T) {
	registry, collector := setupTestCollector(t)

	srv := testutil.ServeStatusError(t)
	_, err := registry.Register(&RegistrationRequest{Name: "broken-api", Endpoint: srv.URL})
	require.NoError(t, err)

	collector.sweep(context.Background())

	statuses := collector.Statuses()
	require.Len(t, statuses, 1)
	require.True(t, statuses[0].Stale)
	require.Nil(t, statuses[0].Report)
	require.NotEmpty(t, statuses[0].LastError)
}

func TestCollector_SummaryCountsVersions(t *testing.T) {
	registry, collector := setupTestCollector(t)

	oldStart := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	newStart := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	srvOld := testutil.ServeStatus(t, testutil.NewTestReport(
		testutil.WithVersion("2.3.16"), testutil.WithStartTime(oldStart)))
	srvNew1 := testutil.ServeStatus(t, testutil.NewTestReport(
		testutil.WithVersion("2.3.17"), testutil.WithStartTime(newStart)))
	srvNew2 := testutil.ServeStatus(t, testutil.NewTestReport(
		testutil.WithVersion("2.3.17"), testutil.WithStartTime(newStart)))
	srvDown := testutil.ServeStatusError(t)

	for i, srv := range []*httptest.Server{srvOld, srvNew1, srvNew2, srvDown} {
		_, err := registry.Register(&RegistrationRequest{
			ID:       string(rune('a' + i)),
			Name:     "svc",
			Endpoint: srv.URL,
		})
		require.NoError(t, err)
	}

	collector.sweep(context.Background())

	summary := collector.Summary()
	require.Equal(t, 4, summary.Total)
	require.Equal(t, 3, summary.Reachable)
	require.Equal(t, 1, summary.Stale)
	require.Equal(t, map[string]int{"2.3.16": 1, "2.3.17": 2}, summary.Versions)
	require.NotNil(t, summary.OldestStart)
	require.Equal(t, oldStart, *summary.OldestStart)
}

func TestCollector_UnregisterDropsObservation(t *testing.T) {
	registry, collector := setupTestCollector(t)

	srv := testutil.ServeStatus(t, testutil.NewTestReport())
	inst, err := registry.Register(&RegistrationRequest{Name: "svc", Endpoint: srv.URL})
	require.NoError(t, err)

	collector.sweep(context.Background())
	require.Len(t, collector.Statuses(), 1)

	require.NoError(t, registry.Unregister(inst.ID))
	collector.sweep(context.Background())

	require.Empty(t, collector.Statuses())
	collector.mu.RLock()
	defer collector.mu.RUnlock()
	require.Empty(t, collector.observations)
}

func TestCollector_FleetEndpoints(t *testing.T) {
	registry, collector := setupTestCollector(t)

	srv := testutil.ServeStatus(t, testutil.NewTestReport(testutil.WithVersion("2.3.17")))
	_, err := registry.Register(&RegistrationRequest{Name: "svc", Endpoint: srv.URL})
	require.NoError(t, err)
	collector.sweep(context.Background())

	r := chi.NewRouter()
	collector.RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/fleet/summary", nil))
	require.Equal(t, 200, w.Code)

	var summary Summary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
	require.Equal(t, 1, summary.Total)
	require.Equal(t, 1, summary.Versions["2.3.17"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/fleet/statuses", nil))
	require.Equal(t, 200, w.Code)

	var statuses []*InstanceStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&statuses))
	require.Len(t, statuses, 1)
}

func TestCollector_RegistrationTriggersSweepRequest(t *testing.T) {
	registry, collector := setupTestCollector(t)

	srv := testutil.ServeStatus(t, testutil.NewTestReport())
	_, err := registry.Register(&RegistrationRequest{Name: "svc", Endpoint: srv.URL})
	require.NoError(t, err)

	select {
	case <-collector.sweepReqCh:
	default:
		t.Fatal("expected a pending sweep request after registration")
	}
}
