// Package version holds build metadata. The values are meant to be
// replaced at link time, e.g.
//
//	go build -ldflags "-X autumn/pkg/version.Version=0.3.0" ./cmd/autumn
package version

var (
	Version   = "0.3.0-dev"
	BuildDate = "unknown"
	GitCommit = "none"
)

// String returns the one-line form printed by `autumn version`.
func String() string {
	return "autumn " + Version + " (" + GitCommit + ", built " + BuildDate + ")"
}
