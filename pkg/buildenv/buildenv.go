// Copyright 2026 The TSI Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package buildenv computes the exact environment-variable set for a
// build or install step, given the isolation policy and the package's
// role in the bootstrap sequence (spec.md §4.5).
package buildenv

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/PanterSoft/tsi/pkg/config"
)

// Stage distinguishes the build step from the install step: CPPFLAGS
// and LDFLAGS are only set for Build (spec.md §4.5, §9 open question —
// preserved as specified).
type Stage int

const (
	Build Stage = iota
	Install
)

// BootstrapPackages is the fixed, ordered set of packages required to
// self-host a toolchain (spec.md §4.5, glossary).
var BootstrapPackages = []string{
	"m4", "ncurses", "bash", "coreutils", "diffutils", "gawk", "grep",
	"sed", "make", "patch", "tar", "gzip", "xz", "binutils", "gcc",
}

// IsBootstrapPackage reports whether name is in BootstrapPackages.
func IsBootstrapPackage(name string) bool {
	for _, n := range BootstrapPackages {
		if n == name {
			return true
		}
	}
	return false
}

// Synthesizer computes environments for build/install steps.
type Synthesizer struct {
	// StrictIsolation is the global strict-isolation policy flag
	// (threaded through as a value, not a process-wide global, per
	// spec.md §9's design notes).
	StrictIsolation bool

	// LookPath is overridable for tests; defaults to exec.LookPath.
	LookPath func(file string) (string, error)
}

// New returns a Synthesizer with the given strict-isolation policy.
func New(strictIsolation bool) *Synthesizer {
	return &Synthesizer{StrictIsolation: strictIsolation, LookPath: exec.LookPath}
}

func (s *Synthesizer) lookPath(file string) (string, error) {
	if s.LookPath != nil {
		return s.LookPath(file)
	}
	return exec.LookPath(file)
}

// cCompilerDir locates the first of gcc, clang, cc reachable on PATH
// and returns its containing directory (spec.md §4.5).
func (s *Synthesizer) cCompilerDir() string {
	for _, name := range []string{"gcc", "clang", "cc"} {
		if p, err := s.lookPath(name); err == nil {
			return filepath.Dir(p)
		}
	}
	return ""
}

// mainInstallDir implements spec.md §4.5 "Derivation of the main
// install directory": truncate after the first "/install" path segment
// if present, else return installDir unchanged.
func mainInstallDir(installDir string) string {
	const marker = "/install/"
	if i := strings.Index(installDir, marker); i >= 0 {
		return installDir[:i+len("/install")]
	}
	return installDir
}

// Synthesize computes the environment-variable set to prepend to every
// command of the given stage for pkg, building against prefix.
func (s *Synthesizer) Synthesize(prefix string, pkg *config.Package, stage Stage) map[string]string {
	main := mainInstallDir(prefix)
	env := map[string]string{
		"PATH":            s.synthesizePath(main, pkg),
		"PKG_CONFIG_PATH": filepath.Join(main, "lib", "pkgconfig"),
		"LD_LIBRARY_PATH": filepath.Join(main, "lib"),
	}

	if stage == Build {
		env["CPPFLAGS"] = "-I" + filepath.Join(main, "include")
		env["LDFLAGS"] = "-L" + filepath.Join(main, "lib")
	}

	if s.usesSelfInstalledBash(main, pkg) {
		env["SHELL"] = filepath.Join(main, "bin", "bash")
	}

	for k, v := range pkg.EnvMap() {
		env[k] = v
	}

	return env
}

func (s *Synthesizer) usesSelfInstalledBash(main string, pkg *config.Package) bool {
	if IsBootstrapPackage(pkg.Name) || !s.StrictIsolation {
		return false
	}
	_, err := os.Stat(filepath.Join(main, "bin", "bash"))
	return err == nil
}

// synthesizePath implements the three PATH policies of spec.md §4.5.
func (s *Synthesizer) synthesizePath(main string, pkg *config.Package) string {
	prefixBin := filepath.Join(main, "bin")

	if IsBootstrapPackage(pkg.Name) {
		return joinPath(prefixBin, s.cCompilerDir(), "/bin")
	}

	if s.StrictIsolation {
		if _, err := os.Stat(filepath.Join(prefixBin, "bash")); err == nil {
			return prefixBin
		}
		return joinPath(prefixBin, "/bin")
	}

	return joinPath(prefixBin, s.cCompilerDir(), "/bin")
}

// joinPath joins nonempty path components with ":", omitting anything
// missing (spec.md §4.5 Normal policy: "omitting missing components").
// The compiler dir component is "" when none was found on PATH.
func joinPath(components ...string) string {
	var parts []string
	for _, c := range components {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, ":")
}
