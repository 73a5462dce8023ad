// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"strings"
	"testing"
)

// The stamp variables are package globals, so every test snapshots and
// restores them around its own mutations.
func TestMain(m *testing.M) {
	origName, origTime := buildName, buildTime
	origCommit, origVersion := buildCommit, buildVersion
	origFlags := *buildFlags

	code := m.Run()

	buildName, buildTime = origName, origTime
	buildCommit, buildVersion = origCommit, origVersion
	*buildFlags = origFlags

	os.Exit(code)
}

func stamp(name, time, commit, version string) {
	buildName, buildTime = name, time
	buildCommit, buildVersion = commit, version
	buildFlags = &ldFlags{
		Name:    "unknown",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "unknown",
	}
}

func TestInitializeRequiresEveryStamp(t *testing.T) {
	tests := []struct {
		name    string
		prepare func()
		missing string
	}{
		{"no name", func() { stamp("", "2026-08-30T12:00:00Z", "1f2e3d4", "0.3.0") }, "name"},
		{"no time", func() { stamp("chordscope", "", "1f2e3d4", "0.3.0") }, "time"},
		{"no commit", func() { stamp("chordscope", "2026-08-30T12:00:00Z", "", "0.3.0") }, "commit"},
		{"no version", func() { stamp("chordscope", "2026-08-30T12:00:00Z", "1f2e3d4", "") }, "version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepare()
			err := Initialize()
			if err == nil {
				t.Fatal("expected error for missing stamp, got nil")
			}
			if !strings.Contains(err.Error(), tt.missing) {
				t.Errorf("error %q does not name the missing %q stamp", err, tt.missing)
			}
			if buildFlags.Name != "unknown" {
				t.Error("a failed Initialize must leave the placeholders untouched")
			}
		})
	}
}

func TestInitializeCopiesStamps(t *testing.T) {
	stamp("chordscope", "2026-08-30T12:00:00Z", "1f2e3d4", "0.3.0")

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	got := GetBuildFlags()
	if got.Name != "chordscope" || got.Version != "0.3.0" {
		t.Errorf("flags = %+v, want stamped name and version", got)
	}
	if got.Time != "2026-08-30T12:00:00Z" || got.Commit != "1f2e3d4" {
		t.Errorf("flags = %+v, want stamped time and commit", got)
	}
}

func TestGetBuildFlagsWithoutInitialize(t *testing.T) {
	stamp("", "", "", "")

	got := GetBuildFlags()
	if got.Name != "unknown" || got.Version != "unknown" {
		t.Errorf("flags = %+v, want the unknown placeholders", got)
	}
}
