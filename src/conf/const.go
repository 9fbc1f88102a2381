// Package conf contains the constants that are used across packages for configuring
// versions, limits and the dump format, as well as the cli configuration file.
package conf

import (
	"fmt"
	"time"
)

const (
	// SIGNATURE is an artifact to put at the beginning of a dumped program so that we can detect binary data.
	SIGNATURE = "\x1bNodepat"
	// VERSION is the version of the nodepat application.
	VERSION = "Nodepat 0.1.0"
	// VERSIONMAJORN is the major version.
	VERSIONMAJORN = 0
	// VERSIONMINORN is the minor version.
	VERSIONMINORN = 1
	// VERSIONPATCHN is the patch version.
	VERSIONPATCHN = 0
	// FORMAT dump/undump format incase it ever changes.
	FORMAT = 0
	// INITIALSTACKSIZE stack capacity the vm allocates for every execution.
	INITIALSTACKSIZE = 16
	// MAXDEPTH max nesting of sub patterns inside sequences and records.
	MAXDEPTH = 256
	// DEFAULTNAMESPACE is the namespace that single segment constants are looked up in first.
	DEFAULTNAMESPACE = "ast"
	// PATHSEP separates the segments of a constant path.
	PATHSEP = "::"
)

// FullVersion returns the version and copyright.
func FullVersion() string {
	return fmt.Sprintf("%v Copyright (C) %v", VERSION, time.Now().Year())
}
