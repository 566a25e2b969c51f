// Package version reports which askit build is running. Release builds stamp
// Version, Commit and Date with -ldflags "-X"; `go install` builds fall back
// to the module version recorded in the binary.
package version

import (
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the line printed by `askit version`.
func String() string {
	return "askit " + resolved() + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}

// resolved prefers the stamped version, then the module version.
func resolved() string {
	if Version != "dev" {
		return Version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return Version
	}
	return info.Main.Version
}
