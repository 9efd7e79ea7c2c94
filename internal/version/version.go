// Package version reports build information for both binaries.
//
// Values can be stamped at link time:
//
//	go build -ldflags "-X github.com/rickgao/groupchat/internal/version.Version=1.0.0 \
//	                   -X github.com/rickgao/groupchat/internal/version.Commit=$(git rev-parse --short HEAD)" ./cmd/...
//
// Unstamped builds fall back to the VCS data the Go toolchain embeds.
package version

import (
	"runtime/debug"
	"sync"
)

// Set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var fillOnce sync.Once

// Info returns the version, commit and build time, filling unset values from
// the embedded build info.
func Info() (version, commit, buildTime string) {
	fillOnce.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			Version = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if Commit == "unknown" && s.Value != "" {
					Commit = shortRevision(s.Value)
				}
			case "vcs.time":
				if BuildTime == "unknown" && s.Value != "" {
					BuildTime = s.Value
				}
			}
		}
	})
	return Version, Commit, BuildTime
}

// String returns a formatted version string.
func String() string {
	v, c, b := Info()
	return v + " (" + c + ") built " + b
}

func shortRevision(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}
