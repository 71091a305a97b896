//go:build mage

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

package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "ledger-api"
	modulePath = "github.com/stashmock/ledger-api"
	coverFile  = "coverage.out"
)

// goexe can be overridden with GOEXE=xxx mage ...
var goexe = "go"

func init() {
	if exe := os.Getenv("GOEXE"); exe != "" {
		goexe = exe
	}
}

var Default = Build

// Build compiles the ledger-api binary with version information.
func Build() error {
	fmt.Println("Building", binaryName)
	args := append([]string{"build", "-o", binaryName, "-ldflags", ldflags()}, goFlags()...)
	return sh.RunV(goexe, append(args, ".")...)
}

// Install puts the binary in $GOPATH/bin.
func Install() error {
	args := append([]string{"install", "-ldflags", ldflags()}, goFlags()...)
	return sh.RunV(goexe, append(args, ".")...)
}

// Clean removes build and coverage output.
func Clean() {
	for _, f := range []string{binaryName, coverFile} {
		if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			fmt.Printf("could not remove %s: %v\n", f, err)
		}
	}
}

// Check runs the formatters, vet and the race enabled test suite.
func Check() {
	mg.Deps(Fmt, Vet)
	mg.Deps(TestRace)
}

// Test runs every ginkgo suite.
func Test() error {
	return goTest()
}

// TestRace runs the suites with the race detector.
func TestRace() error {
	return goTest("-race")
}

// Cover writes a coverage profile and opens the HTML report.
func Cover() error {
	if err := goTest("-coverprofile="+coverFile, "-covermode=atomic"); err != nil {
		return err
	}
	return sh.Run(goexe, "tool", "cover", "-html="+coverFile)
}

// Vet runs go vet over the module.
func Vet() error {
	if err := sh.Run(goexe, "vet", "./..."); err != nil {
		return fmt.Errorf("go vet: %w", err)
	}
	return nil
}

// Fmt fails when any package directory holds files gofmt would change.
func Fmt() error {
	dirs, err := packageDirs()
	if err != nil {
		return err
	}

	// gofmt -l exits zero even when it lists files
	out, err := sh.Output("gofmt", append([]string{"-l"}, dirs...)...)
	if err != nil {
		return err
	}
	if out != "" {
		fmt.Println("not gofmt'ed:")
		fmt.Println(out)
		return errors.New("improperly formatted go files")
	}
	return nil
}

// Migrate builds the binary and applies the schema to DATABASE_URL.
func Migrate() error {
	mg.Deps(Build)
	if os.Getenv("DATABASE_URL") == "" {
		return errors.New("DATABASE_URL is not set")
	}
	return sh.RunV("./"+binaryName, "migrate")
}

func goTest(extra ...string) error {
	args := append([]string{"test"}, extra...)
	args = append(args, goFlags()...)
	args = append(args, "./...")
	if mg.Verbose() {
		args = append(args, "-v")
		return sh.RunV(goexe, args...)
	}
	out, err := sh.Output(goexe, args...)
	if err != nil {
		fmt.Fprintln(os.Stderr, out)
	}
	return err
}

func ldflags() string {
	hash, _ := sh.Output("git", "rev-parse", "--short", "HEAD")
	return fmt.Sprintf("-X %[1]s/common.commitHash=%[2]s -X %[1]s/common.buildDate=%[3]s",
		modulePath, hash, time.Now().UTC().Format(time.RFC3339))
}

// goFlags adds -tags from GOTAGS and the windows build mode.
func goFlags() []string {
	var flags []string
	if tags := os.Getenv("GOTAGS"); tags != "" {
		flags = append(flags, "-tags", tags)
	}
	if runtime.GOOS == "windows" {
		flags = append(flags, "-buildmode", "exe")
	}
	return flags
}

func packageDirs() ([]string, error) {
	out, err := sh.Output(goexe, "list", "-f", "{{.Dir}}", "./...")
	if err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimSpace(out), "\n"), nil
}
