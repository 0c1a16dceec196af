// Package status implements the service self-report: an immutable
// snapshot of {name, version, start time, host} resolved once at process
// startup and served verbatim on every request.
//
// The snapshot is written exactly once, before any request handling
// begins, so any number of concurrent readers may read it without
// synchronization. Fleet dashboards aggregate these reports across many
// instances to track version rollout and uptime.
package status
