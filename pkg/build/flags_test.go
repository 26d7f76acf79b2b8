// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"testing"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
	origInfo    Info
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	origInfo = *buildInfo

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	*buildInfo = origInfo

	os.Exit(exitCode)
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantErrMsg  string
		wantVersion string
	}{
		{
			"Development build",
			"", "", "", "",
			"build flags not set: buildName, buildTime, buildCommit, buildVersion",
			"dev",
		},
		{
			"Missing BuildCommit",
			"capture", "2026-03-01", "", "v1.0.0",
			"build flags not set: buildCommit",
			"v1.0.0",
		},
		{
			"Success Case",
			"capture", "2026-03-01", "abcdef123", "v1.0.0",
			"",
			"v1.0.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buildInfo = defaultInfo()
			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			err := Initialize()

			if tt.wantErrMsg != "" {
				if err == nil || err.Error() != tt.wantErrMsg {
					t.Errorf("Initialize() error = %v, want %v", err, tt.wantErrMsg)
				}
			} else if err != nil {
				t.Errorf("Initialize() unexpected error: %v", err)
			}

			if got := Get().Version; got != tt.wantVersion {
				t.Errorf("Version = %v, want %v", got, tt.wantVersion)
			}
			if Get().Name == "" {
				t.Error("Name must never be empty")
			}
		})
	}
}

func TestInfoString(t *testing.T) {
	info := Info{Name: "capture", Version: "v1.0.0", Commit: "abcdef123", Time: "2026-03-01"}
	want := "capture v1.0.0 (commit abcdef123, built 2026-03-01)"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
