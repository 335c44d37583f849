// Package build reports the version of the running binary. Version, Commit
// and Date are set at link time:
//
//	go build -ldflags "-X github.com/amp-labs/statecrawler/build.Version=v1.2.0"
package build

import (
	"fmt"
	"runtime/debug"
	"strings"
)

//nolint:gochecknoglobals
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Info describes the running binary.
type Info struct {
	Version      string            `json:"version"`
	Commit       string            `json:"commit,omitempty"`
	Date         string            `json:"date,omitempty"`
	GoVersion    string            `json:"goVersion,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Current returns the link-time values, completed from the build info the
// Go toolchain embeds.
func Current() Info {
	info := Info{Version: Version, Commit: Commit, Date: Date}

	if bi, ok := debug.ReadBuildInfo(); ok {
		complete(&info, bi)
	}

	return info
}

func complete(info *Info, bi *debug.BuildInfo) {
	info.GoVersion = bi.GoVersion

	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = setting.Value
			}
		case "vcs.time":
			if info.Date == "" {
				info.Date = setting.Value
			}
		}
	}

	if len(bi.Deps) > 0 {
		info.Dependencies = make(map[string]string, len(bi.Deps))

		for _, dep := range bi.Deps {
			info.Dependencies[dep.Path] = dep.Version
		}
	}
}

// ShortCommit returns the first 7 characters of the commit.
func (i Info) ShortCommit() string {
	if len(i.Commit) > 7 { //nolint:mnd
		return i.Commit[:7]
	}

	return i.Commit
}

func (i Info) String() string {
	details := make([]string, 0, 3) //nolint:mnd

	for _, detail := range []string{i.ShortCommit(), i.Date, i.GoVersion} {
		if detail != "" {
			details = append(details, detail)
		}
	}

	if len(details) == 0 {
		return "statecrawler " + i.Version
	}

	return fmt.Sprintf("statecrawler %s (%s)", i.Version, strings.Join(details, ", "))
}
