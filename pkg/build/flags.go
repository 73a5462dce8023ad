// SPDX-License-Identifier: MIT

// Package build exposes version metadata stamped into the binary at
// link time, for example:
//
//	go build -ldflags "-X chordscope/pkg/build.buildName=chordscope \
//	    -X chordscope/pkg/build.buildVersion=0.3.0"
//
// Binaries built without the flags keep the "unknown" placeholders.
package build

import "fmt"

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Stamp targets for -X. The struct below is what the rest of the
// program reads.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:    "unknown",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "unknown",
	}
)

// Initialize copies the stamped values into the flags struct. It errors
// when any value is missing so release builds fail loudly; callers may
// treat that as non-fatal for development builds.
func Initialize() error {
	if buildName == "" {
		return fmt.Errorf("build name is not stamped")
	}
	if buildTime == "" {
		return fmt.Errorf("build time is not stamped")
	}
	if buildCommit == "" {
		return fmt.Errorf("build commit is not stamped")
	}
	if buildVersion == "" {
		return fmt.Errorf("build version is not stamped")
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// GetBuildFlags returns the build metadata, placeholders included when
// Initialize has not run or failed.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
