package main

import (
	"runtime/debug"

	"github.com/vempat/vempat/cmd"
)

// Version is stamped by release builds: -ldflags "-X main.Version=v1.2.3".
var Version = "dev"

func main() {
	cmd.SetVersion(buildVersion(Version, debug.ReadBuildInfo))
	cmd.Execute()
}

// buildVersion prefers a stamped version, then the module version recorded
// by `go install pkg@version`, then the VCS revision of a local build.
func buildVersion(stamped string, read func() (*debug.BuildInfo, bool)) string {
	if stamped != "" && stamped != "dev" {
		return stamped
	}
	info, ok := read()
	if !ok || info == nil {
		return stamped
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}

	vcs := make(map[string]string)
	for _, s := range info.Settings {
		vcs[s.Key] = s.Value
	}
	rev := vcs["vcs.revision"]
	if rev == "" {
		return stamped
	}
	v := "devel+" + rev[:min(len(rev), 12)]
	if vcs["vcs.modified"] == "true" {
		v += "+dirty"
	}
	return v
}
