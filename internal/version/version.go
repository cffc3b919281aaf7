// Package version reports build identity. Release builds stamp the
// variables with -ldflags; development builds fall back to the module's
// embedded VCS metadata.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Release is the release tag, "dev" when not stamped
	Release = "dev"

	// Commit is the VCS revision, empty when not stamped
	Commit = ""

	// BuildTime is the build timestamp, empty when not stamped
	BuildTime = ""
)

// Info describes the running build
type Info struct {
	Release   string
	Commit    string
	BuildTime string
	Go        string
}

// Get assembles build info, filling unstamped fields from
// debug.ReadBuildInfo when available
func Get() Info {
	info := Info{
		Release:   Release,
		Commit:    Commit,
		BuildTime: BuildTime,
		Go:        runtime.Version(),
	}
	if info.Commit != "" && info.BuildTime != "" {
		return info
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = setting.Value
			}
		case "vcs.time":
			if info.BuildTime == "" {
				info.BuildTime = setting.Value
			}
		}
	}
	return info
}

// String renders the build info on one line
func (i Info) String() string {
	commit := i.Commit
	if commit == "" {
		commit = "unknown"
	}
	built := i.BuildTime
	if built == "" {
		built = "unknown"
	}
	return fmt.Sprintf("identra %s (commit %s, built %s, %s)", i.Release, commit, built, i.Go)
}

// String renders the current build's info on one line
func String() string {
	return Get().String()
}
