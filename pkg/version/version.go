package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version indicates what release of perfect-hash the binary belongs to.
// When not set at link time it is read from the module build info.
var Version string

// GitCommit indicates which git commit the binary was built from.
var GitCommit string

const satModule = "github.com/go-air/gini"

// Info describes the running binary.
type Info struct {
	Version   string
	GitCommit string
	Go        string
	SAT       string
}

// Get fills the link-time fields from the build info where they are empty.
func Get() Info {
	info := Info{Version: Version, GitCommit: GitCommit, Go: runtime.Version()}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	return fill(info, bi)
}

func fill(info Info, bi *debug.BuildInfo) Info {
	if info.Version == "" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" && info.GitCommit == "" {
			info.GitCommit = s.Value
		}
	}
	for _, d := range bi.Deps {
		if d.Path == satModule {
			info.SAT = d.Version
		}
	}
	return info
}

// String returns a pretty string of the build details.
func String() string {
	info := Get()
	return fmt.Sprintf("perfect-hash version: %s\n git commit: %s\n go: %s\n gini: %s\n", info.Version, info.GitCommit, info.Go, info.SAT)
}
