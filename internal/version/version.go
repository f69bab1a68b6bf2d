// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package version holds build information for clive.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/aplane-algo/clive/internal/version.Version=1.0.0"
var (
	// Version is the semantic version, e.g. "0.4.0" or "0.4.0-dev".
	Version = "dev"

	// GitCommit is the short commit hash.
	GitCommit = "unknown"

	// BuildTime is the build timestamp in RFC3339 format.
	BuildTime = "unknown"
)

// String formats the version for "clive version".
func String() string {
	commit := GitCommit
	if commit == "unknown" {
		commit = vcsRevision()
	}
	return fmt.Sprintf("%s (commit: %s, built: %s, %s, %s/%s)",
		Version, commit, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// vcsRevision falls back to the revision recorded by the go tool.
func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return "unknown"
}
