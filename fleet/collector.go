package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fleetpulse/fleetpulse/status"
)

// CollectorConfig configures the fleet status collector.
type CollectorConfig struct {
	// PollInterval is the time between sweeps over the fleet.
	PollInterval time.Duration

	// StalenessWindow is how old an observation may be before the
	// instance is reported stale. Zero defaults to 3x PollInterval.
	StalenessWindow time.Duration

	// PollTimeout bounds a single status request.
	PollTimeout time.Duration

	// Log is the structured logger for collector operations.
	Log *slog.Logger

	// MetricsRegistry receives the collector's metrics. Nil disables
	// metric export.
	MetricsRegistry prometheus.Registerer
}

// observation is the latest poll result for one instance.
type observation struct {
	report      *status.Report
	observedAt  time.Time
	lastError   string
	lastAttempt time.Time
}

// Collector polls registered instances' status endpoints and caches the
// latest report per instance.
type Collector struct {
	cfg        *CollectorConfig
	registry   *Registry
	httpClient *http.Client
	log        *slog.Logger

	mu           sync.RWMutex
	observations map[string]*observation
	sweepReqCh   chan struct{}

	pollsTotal      prometheus.Counter
	pollErrorsTotal prometheus.Counter
	instancesGauge  *prometheus.GaugeVec
}

// NewCollector creates a collector for the given registry.
func NewCollector(cfg *CollectorConfig, registry *Registry) *Collector {
	if cfg.StalenessWindow == 0 {
		cfg.StalenessWindow = 3 * cfg.PollInterval
	}
	if cfg.PollTimeout == 0 {
		cfg.PollTimeout = 10 * time.Second
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	reg := cfg.MetricsRegistry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	c := &Collector{
		cfg:          cfg,
		registry:     registry,
		httpClient:   &http.Client{Timeout: cfg.PollTimeout},
		log:          cfg.Log,
		observations: make(map[string]*observation),
		sweepReqCh:   make(chan struct{}, 1),

		pollsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fleetpulse_fleet_polls_total",
			Help: "Status polls attempted against fleet instances.",
		}),
		pollErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fleetpulse_fleet_poll_errors_total",
			Help: "Status polls that failed.",
		}),
		instancesGauge: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fleetpulse_fleet_instances",
			Help: "Registered fleet instances by freshness state.",
		}, []string{"state"}),
	}

	registry.SetChangeListener(c.RequestSweep)
	return c
}

// RequestSweep triggers an immediate sweep without waiting for the next
// tick. Non-blocking; a pending request is enough.
func (c *Collector) RequestSweep() {
	select {
	case c.sweepReqCh <- struct{}{}:
	default:
	}
}

// Run polls the fleet until the context is cancelled. A sweep runs
// immediately, then on every tick and on every sweep request.
func (c *Collector) Run(ctx context.Context) {
	c.sweep(ctx)

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep(ctx)
		case <-c.sweepReqCh:
			ticker.Reset(c.cfg.PollInterval)
			c.sweep(ctx)
		}
	}
}

// sweep polls every registered instance once and prunes observations of
// instances that are no longer registered.
func (c *Collector) sweep(ctx context.Context) {
	instances := c.registry.List()

	known := make(map[string]bool, len(instances))
	for _, inst := range instances {
		known[inst.ID] = true

		report, err := c.pollInstance(ctx, inst)
		now := time.Now().UTC()

		c.mu.Lock()
		obs := c.observations[inst.ID]
		if obs == nil {
			obs = &observation{}
			c.observations[inst.ID] = obs
		}
		obs.lastAttempt = now
		if err != nil {
			obs.lastError = err.Error()
			c.mu.Unlock()

			c.pollErrorsTotal.Inc()
			c.log.Warn("Status poll failed", "instance", inst.ID, "endpoint", inst.Endpoint, "err", err)
			continue
		}
		obs.report = report
		obs.observedAt = now
		obs.lastError = ""
		c.mu.Unlock()
	}

	c.mu.Lock()
	for id := range c.observations {
		if !known[id] {
			delete(c.observations, id)
		}
	}
	c.mu.Unlock()

	c.updateGauges()
}

func (c *Collector) pollInstance(ctx context.Context, inst *Instance) (*status.Report, error) {
	c.pollsTotal.Inc()

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, inst.Endpoint+"/status", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status endpoint returned %d: %s", resp.StatusCode, body)
	}

	var report status.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("decoding status report: %w", err)
	}
	return &report, nil
}

// Statuses returns the latest observation for every registered
// instance. Instances that never answered a poll appear with a nil
// report and are stale, not omitted.
func (c *Collector) Statuses() []*InstanceStatus {
	instances := c.registry.List()
	cutoff := time.Now().Add(-c.cfg.StalenessWindow)

	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*InstanceStatus, 0, len(instances))
	for _, inst := range instances {
		st := &InstanceStatus{Instance: inst, Stale: true}
		if obs := c.observations[inst.ID]; obs != nil {
			st.LastError = obs.lastError
			if obs.report != nil {
				report := *obs.report
				observedAt := obs.observedAt
				st.Report = &report
				st.ObservedAt = &observedAt
				st.Stale = obs.observedAt.Before(cutoff)
			}
		}
		result = append(result, st)
	}
	return result
}

// Summary rolls the per-instance statuses up into the fleet-wide view.
func (c *Collector) Summary() *Summary {
	statuses := c.Statuses()

	summary := &Summary{
		Total:       len(statuses),
		Versions:    make(map[string]int),
		GeneratedAt: time.Now().UTC(),
	}

	for _, st := range statuses {
		if st.Stale {
			summary.Stale++
			continue
		}
		summary.Reachable++
		summary.Versions[st.Report.Version]++
		if summary.OldestStart == nil || st.Report.StartTime.Before(*summary.OldestStart) {
			start := st.Report.StartTime
			summary.OldestStart = &start
		}
	}
	return summary
}

// RegisterRoutes mounts the fleet views.
func (c *Collector) RegisterRoutes(r chi.Router) {
	r.Get("/fleet/statuses", c.handleStatuses)
	r.Get("/fleet/summary", c.handleSummary)
}

func (c *Collector) handleStatuses(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c.Statuses())
}

func (c *Collector) handleSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c.Summary())
}

func (c *Collector) updateGauges() {
	var reachable, stale float64
	for _, st := range c.Statuses() {
		if st.Stale {
			stale++
		} else {
			reachable++
		}
	}
	c.instancesGauge.WithLabelValues("reachable").Set(reachable)
	c.instancesGauge.WithLabelValues("stale").Set(stale)
}
