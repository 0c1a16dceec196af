// Package buildinfo carries build-time metadata for fleetpulse binaries.
//
// Version and BuildTime are injected at build time:
//
//	go build -ldflags "-X github.com/fleetpulse/fleetpulse/buildinfo.Version=2.3.17 \
//	    -X github.com/fleetpulse/fleetpulse/buildinfo.BuildTime=2026-08-25T12:00:00Z" ./cmd/...
//
// Binaries installed with `go install` fall back to the module version
// recorded by the toolchain.
package buildinfo

import "runtime/debug"

// Build metadata, overridden via -ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// ResolveVersion returns the version to report for this process.
// The ldflags-injected Version wins; otherwise the module version from
// the embedded build info is used when available.
func ResolveVersion() string {
	if Version != "dev" {
		return Version
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		if v := bi.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return Version
}
