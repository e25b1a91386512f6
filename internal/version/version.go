// Package version identifies the build of the soc-traffic binaries.
//
// Release builds stamp the variables with ldflags:
//
//	go build -ldflags "-X <module>/internal/version.Version=1.2.0 \
//	    -X <module>/internal/version.GitCommit=$(git rev-parse --short HEAD) \
//	    -X <module>/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

import "runtime/debug"

// Name is shared by every binary and appears in log lines and /health.
const Name = "soc-traffic"

const unknown = "unknown"

var (
	Version   = "0.1.0"
	BuildTime = unknown
	GitCommit = unknown
)

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Commit returns GitCommit, or the VCS revision recorded by the Go
// toolchain when the binary was built without ldflags.
func Commit() string {
	if GitCommit != unknown {
		return GitCommit
	}
	info, ok := readBuildInfo()
	if !ok {
		return unknown
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return unknown
}

// Full returns the version with commit and build time when they are known.
func Full() string {
	commit := Commit()
	switch {
	case commit != unknown && BuildTime != unknown:
		return Version + " (commit: " + commit + ", built: " + BuildTime + ")"
	case commit != unknown:
		return Version + " (commit: " + commit + ")"
	}
	return Version
}
