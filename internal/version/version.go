// Package version holds build identification stamped in at link time via
// -ldflags "-X github.com/banshee-data/packwave/internal/version.Version=...".
package version

import "fmt"

var (
	// Version is the current application version.
	Version = "dev"
	// GitSHA is the git commit SHA.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String returns a single-line version description for CLI output and logs.
func String() string {
	return fmt.Sprintf("packwave %s (%s, built %s)", Version, GitSHA, BuildTime)
}
