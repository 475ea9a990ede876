// Package version holds build metadata injected at link time.
package version

import "runtime"

// Set via ldflags at build time:
//
//	go build -ldflags "-X github.com/latticedocs/lattice/version.GitRelease=..."
var (
	GitRelease    = "dev"
	GitCommit     = "unknown"
	GitCommitDate = "unknown"
)

// GoInfo reports the Go runtime used for the build.
var GoInfo = runtime.Version() + " " + runtime.GOOS + "/" + runtime.GOARCH
