package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func setupTestHandler(t *testing.T) (*Reporter, chi.Router) {
	t.Helper()

	start := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	reporter := newReporter("my-cool-api", "2.3.17", start, func() (string, error) {
		return "node-42", nil
	})

	r := chi.NewRouter()
	NewHandler(reporter).RegisterRoutes(r)
	return reporter, r
}

func TestStatusEndpoint(t *testing.T) {
	_, router := setupTestHandler(t)

	req := httptest.NewRequest("GET", "/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var report Report
	require.NoError(t, json.NewDecoder(w.Body).Decode(&report))
	require.Equal(t, "my-cool-api", report.Name)
	require.Equal(t, "2.3.17", report.Version)
	require.Equal(t, "node-42", report.Host)
	require.Equal(t, time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC), report.StartTime)
}

func TestStatusEndpointRepeatedCallsIdenticalBody(t *testing.T) {
	_, router := setupTestHandler(t)

	var reference []byte
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest("GET", "/status", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		if reference == nil {
			reference = w.Body.Bytes()
			continue
		}
		require.Equal(t, reference, w.Body.Bytes())
	}
}
