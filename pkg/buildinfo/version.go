// Package buildinfo provides build-time version information.
//
// Release builds set the variables via ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/uvbrew/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/matzehuels/uvbrew/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/uvbrew/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Binaries installed with `go install` carry no ldflags; for those the module
// version and VCS stamp embedded by the toolchain are used instead.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

const devVersion = "dev"

var (
	// Version is the semantic version (e.g., "v1.2.3").
	Version = devVersion

	// Commit is the git commit SHA.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Resolve returns version, commit and date, falling back to the toolchain's
// embedded build info when Version was not set at link time.
func Resolve() (version, commit, date string) {
	version, commit, date = Version, Commit, Date
	if version != devVersion {
		return
	}
	info, ok := readBuildInfo()
	if !ok {
		return
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		version = v
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			commit = s.Value
		case "vcs.time":
			date = s.Value
		}
	}
	return
}

// Short returns the version line shown by `uvbrew --version`.
func Short() string {
	version, commit, date := Resolve()
	if version == devVersion {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

// UserAgent returns the User-Agent header sent to package indexes.
func UserAgent() string {
	version, _, _ := Resolve()
	return "uvbrew/" + version
}

// Template returns the version template string for cobra.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\n", Short())
}
