package status

import (
	"os"
	"time"
)

// Report is the immutable four-field snapshot describing a running
// service instance. All fields are fixed at process start and never
// mutated; repeated reads within one process lifetime are identical.
type Report struct {
	// Name identifies the service, fixed at deploy time.
	Name string `json:"name"`

	// Version is the build version in MAJOR.MINOR.BUILD form.
	Version string `json:"version"`

	// StartTime is the instant the process completed startup, not the
	// time of any particular request.
	StartTime time.Time `json:"startTime"`

	// Host identifies the machine or container running the process.
	// Empty when host resolution failed at startup.
	Host string `json:"host"`
}

// Reporter holds the process-wide report. Construct one during startup,
// before serving requests; afterwards it is read-only.
type Reporter struct {
	report Report
}

// NewReporter captures the process snapshot: the start instant is taken
// now, the host is resolved from the operating system. Host resolution
// failure falls back to the empty placeholder rather than erroring.
func NewReporter(name, version string) *Reporter {
	return newReporter(name, version, time.Now().UTC(), os.Hostname)
}

// newReporter allows tests to pin the start instant and host resolution.
func newReporter(name, version string, start time.Time, hostname func() (string, error)) *Reporter {
	host, err := hostname()
	if err != nil {
		host = ""
	}
	return &Reporter{report: Report{
		Name:      name,
		Version:   version,
		StartTime: start,
		Host:      host,
	}}
}

// Report returns the startup snapshot. Pure read, no side effects,
// identical across calls and callers.
func (r *Reporter) Report() Report {
	return r.report
}
