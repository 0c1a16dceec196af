package fleet

import (
	"time"

	"github.com/fleetpulse/fleetpulse/status"
)

// Instance is a registered service instance.
type Instance struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Endpoint     string    `json:"endpoint"`
	RegisteredAt time.Time `json:"registered_at"`
}

// RegistrationRequest registers an instance with the fleet registry.
// ID is optional; the registry assigns one when absent.
type RegistrationRequest struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
}

// RegistrationResponse confirms a registration.
type RegistrationResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// InstanceListResponse lists registered instances.
type InstanceListResponse struct {
	Instances []*Instance `json:"instances"`
}

// InstanceStatus pairs an instance with its latest observed report.
// Report is nil when no poll has ever succeeded.
type InstanceStatus struct {
	Instance   *Instance      `json:"instance"`
	Report     *status.Report `json:"report,omitempty"`
	ObservedAt *time.Time     `json:"observed_at,omitempty"`
	Stale      bool           `json:"stale"`
	LastError  string         `json:"last_error,omitempty"`
}

// Summary is the fleet-wide rollup dashboards consume.
type Summary struct {
	Total       int            `json:"total"`
	Reachable   int            `json:"reachable"`
	Stale       int            `json:"stale"`
	Versions    map[string]int `json:"versions"`
	OldestStart *time.Time     `json:"oldest_start,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
}
