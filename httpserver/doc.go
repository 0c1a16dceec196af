// Package httpserver provides the HTTP shell shared by fleetpulse
// binaries: a chi router with request-ID, real-IP and recoverer
// middleware, structured request logging, the operational endpoints
// (/livez, /readyz, /drain, /undrain), the service status report at
// /status, optional pprof, and a Prometheus metrics server on a
// separate listener.
package httpserver
