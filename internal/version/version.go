package version

import (
	"fmt"
	"runtime/debug"
)

// devVersion marks a build without injected metadata.
const devVersion = "dev"

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = devVersion
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

//nolint:gochecknoinits // Build info is only available at runtime.
func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	fillFromBuildInfo(info)
}

// fillFromBuildInfo uses module and VCS data recorded by the Go toolchain
// for values that were not injected with ldflags.
func fillFromBuildInfo(info *debug.BuildInfo) {
	if Version == devVersion && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == "none" && setting.Value != "" {
				Commit = shortRevision(setting.Value)
			}
		case "vcs.time":
			if BuildTime == "unknown" && setting.Value != "" {
				BuildTime = setting.Value
			}
		}
	}
}

func shortRevision(revision string) string {
	const length = 7

	if len(revision) > length {
		return revision[:length]
	}

	return revision
}

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("pkgbuild-sync %s (commit %s, built %s)", Version, Commit, BuildTime)
}

// UserAgent returns the value sent in the User-Agent header of outgoing HTTP requests.
func UserAgent() string {
	return "pkgbuild-sync/" + Version
}
