// Package version holds scanguard build metadata, set with
// -ldflags "-X github.com/kailas-cloud/scanguard/internal/version.Version=...".
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String formats the build metadata for binary, e.g. "scanctl version v1.2.0 (commit abc123, built 2026-10-01)".
func String(binary string) string {
	return fmt.Sprintf("%s version %s (commit %s, built %s)", binary, Version, Commit, Date)
}

// UserAgent is the User-Agent scanguard sends to the detector.
func UserAgent() string {
	return "scanguard/" + Version
}
