// Package testutil provides generators and fake servers shared by
// fleetpulse tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fleetpulse/fleetpulse/status"
)

// ReportOption is a function that modifies a status report.
type ReportOption func(*status.Report)

// WithName sets the service name.
func WithName(name string) ReportOption {
	return func(r *status.Report) {
		r.Name = name
	}
}

// WithVersion sets the reported version.
func WithVersion(version string) ReportOption {
	return func(r *status.Report) {
		r.Version = version
	}
}

// WithStartTime sets the reported start instant.
func WithStartTime(start time.Time) ReportOption {
	return func(r *status.Report) {
		r.StartTime = start
	}
}

// WithHost sets the reported host identifier.
func WithHost(host string) ReportOption {
	return func(r *status.Report) {
		r.Host = host
	}
}

// NewTestReport creates a status report with default values that can be
// customized using options.
func NewTestReport(options ...ReportOption) status.Report {
	report := status.Report{
		Name:      "test-svc",
		Version:   "1.0.0",
		StartTime: time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC),
		Host:      "test-host",
	}
	for _, option := range options {
		option(&report)
	}
	return report
}

// ServeStatus starts a test server answering GET /status with the given
// report. The server is closed with the test.
func ServeStatus(t *testing.T, report status.Report) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(report)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// ServeStatusError starts a test server whose /status endpoint always
// fails, for exercising poll error paths.
func ServeStatusError(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	return srv
}
