// Package version holds build metadata injected via ldflags:
//
//	go build -ldflags "-X github.com/kailas-cloud/mixdex/internal/version.Version=v1.2.0"
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the build as "mixdex <version> (<commit>, <date>)".
func String() string {
	return fmt.Sprintf("mixdex %s (%s, %s)", Version, Commit, Date)
}
