// Package version reports build information set at link time.
package version

import (
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/NERVsystems/osmbuildings/pkg/version.Version=..."
var (
	Version   = "0.1.0"
	Commit    = ""
	BuildDate = ""
)

// Info returns version details as a flat map
func Info() map[string]string {
	commit := Commit
	if commit == "" {
		commit = vcsRevision()
	}
	if commit == "" {
		commit = "unknown"
	}
	date := BuildDate
	if date == "" {
		date = "unknown"
	}

	return map[string]string{
		"version":    Version,
		"go_version": runtime.Version(),
		"commit":     commit,
		"build_date": date,
	}
}

// String returns the version with the commit when known
func String() string {
	info := Info()
	if info["commit"] == "unknown" {
		return info["version"]
	}
	return info["version"] + " (" + info["commit"] + ")"
}

func vcsRevision() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return ""
}
