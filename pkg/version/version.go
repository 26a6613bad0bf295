// Package version exposes build metadata stamped in via -ldflags.
package version

import "runtime"

var (
	// Version is the release version, "dev" for local builds.
	Version = "dev"

	// GitCommit is the short commit hash of the build.
	GitCommit = "unknown"

	// BuildDate is the build timestamp.
	BuildDate = "unknown"

	// GoVersion is the toolchain that produced the binary.
	GoVersion = runtime.Version()
)
