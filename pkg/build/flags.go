// SPDX-License-Identifier: MIT
//
// Package build carries the metadata linked into the binary with -ldflags:
//
//	go build -ldflags "-X capture/pkg/build.buildVersion=0.2.0 -X capture/pkg/build.buildCommit=$(git rev-parse --short HEAD)"
//
// Development builds without ldflags report "dev" and "unknown".
package build

import (
	"fmt"
	"strings"
)

// Info is the build metadata of the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Package-level variables for build information, populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = defaultInfo()
)

func defaultInfo() *Info {
	return &Info{
		Name:        "capture",
		Description: "Capture, record and meter audio input devices",
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
}

// Initialize copies the ldflags variables into the build info. Flags that
// were not set keep their development defaults; the returned error lists
// them so release builds can refuse to start.
func Initialize() error {
	var missing []string
	set := func(dst *string, val, flag string) {
		if val == "" {
			missing = append(missing, flag)
			return
		}
		*dst = val
	}
	set(&buildInfo.Name, buildName, "buildName")
	set(&buildInfo.Time, buildTime, "buildTime")
	set(&buildInfo.Commit, buildCommit, "buildCommit")
	set(&buildInfo.Version, buildVersion, "buildVersion")

	if len(missing) > 0 {
		return fmt.Errorf("build flags not set: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Get returns the current build information.
func Get() Info {
	return *buildInfo
}

// String formats the info for --version output.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}
