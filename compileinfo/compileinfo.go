// Package compileinfo reports which build of a tool produced a given output.
// Extraction runs are often compared months apart, so each binary announces
// its commit and build toolchain on startup (see compileinfoprint).
package compileinfo

import (
	"fmt"
	"os"
	"runtime/debug"
)

type CompileInfo struct {
	Package    string
	GoVersion  string
	Commit     string
	CommitTime string
	Modified   bool
}

func (c CompileInfo) String() string {
	dirty := ""
	if c.Modified {
		dirty = " The working tree had uncommitted changes."
	}

	return fmt.Sprintf("%s built with %s from commit %s (%s).%s", c.Package, c.GoVersion, c.Commit, c.CommitTime, dirty)
}

// Get reads the build metadata stamped into the running binary. Binaries
// built outside a checkout yield zero values for the VCS fields.
func Get() CompileInfo {
	out := CompileInfo{}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}

	out.GoVersion = info.GoVersion
	out.Package = info.Path
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.CommitTime = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}

	return out
}

func PrintToStdErr() {
	fmt.Fprintln(os.Stderr, Get())
}
