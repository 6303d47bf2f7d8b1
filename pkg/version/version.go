// Package version holds build-time version information, set via ldflags.
package version

var (
	// Version is the semantic version of the build.
	Version = "dev"
	// CommitSHA is the git commit the binary was built from.
	CommitSHA = "unknown"
)
