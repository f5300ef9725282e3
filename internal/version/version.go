// Package version reports the build version of linkgraph.
package version

import "runtime/debug"

// Version is set at build time via ldflags
var Version = ""

// String returns the version.
// Priority: ldflags > debug.ReadBuildInfo > "(devel)"
func String() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}
