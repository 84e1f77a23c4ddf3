// Package buildinfo provides build-time properties injected via ldflags,
// falling back to the VCS stamp the Go toolchain embeds.
package buildinfo

import "runtime/debug"

// Properties holds build-time properties.
type Properties struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
}

// Package-level variables for ldflags injection (unexported).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// Get returns the current build properties.
func Get() Properties {
	p := Properties{
		Version:   version,
		BuildTime: buildTime,
		GitCommit: gitCommit,
		GoVersion: "unknown",
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return p
	}
	p.GoVersion = info.GoVersion
	if p.Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		p.Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if p.GitCommit == "unknown" {
				p.GitCommit = s.Value
			}
		case "vcs.time":
			if p.BuildTime == "unknown" {
				p.BuildTime = s.Value
			}
		}
	}
	return p
}
