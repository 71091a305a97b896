// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
)

// set with -ldflags by the magefile
var (
	commitHash string
	buildDate  string
)

// Version is a SemVer 2.0.0 build version. Suffix marks a pre-release and is
// empty for releases.
type Version struct {
	Major  int
	Minor  int
	Patch  int
	Suffix string
}

func (v Version) IsRelease() bool {
	return v.Suffix == ""
}

func (v Version) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.IsRelease() {
		return sb.String()
	}
	sb.WriteString("-" + v.Suffix)
	if commitHash != "" {
		sb.WriteString("+" + strings.ToLower(commitHash))
	}
	return sb.String()
}

// Dependencies lists the modules compiled into the binary as path=version,
// sorted by path.
func Dependencies() []string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	deps := make([]string, 0, len(bi.Deps))
	for _, dep := range bi.Deps {
		version := dep.Version
		if dep.Replace != nil {
			version = dep.Replace.Version
		}
		deps = append(deps, fmt.Sprintf("%s=%q", dep.Path, version))
	}
	sort.Strings(deps)
	return deps
}

// BuildVersionString is the output of "ledger-api version".
func BuildVersionString() string {
	date := buildDate
	if date == "" {
		date = "unknown"
	}
	commit := commitHash
	if commit == "" {
		commit = "unknown"
	}

	lines := []string{
		fmt.Sprintf("ledger-api v%s %s/%s", CurrentVersion, runtime.GOOS, runtime.GOARCH),
		"",
		"Build Date: " + date,
		"Commit: " + commit,
		"Built with: " + runtime.Version(),
	}
	if deps := Dependencies(); len(deps) > 0 {
		lines = append(lines, "", "Dependencies:", "")
		lines = append(lines, deps...)
	}
	return strings.Join(lines, "\n")
}
