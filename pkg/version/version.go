// Package version carries build metadata stamped in by the linker:
//
//	go build -ldflags "-X github.com/palworldkit/palcon/pkg/version.Version=v1.2.3"
package version

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)
