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

package build

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/PanterSoft/tsi/internal/log"
	"github.com/PanterSoft/tsi/internal/shellquote"
	"github.com/PanterSoft/tsi/pkg/config"
	"github.com/PanterSoft/tsi/pkg/presenter"
)

// Sentinel error kinds from spec.md §7.
var (
	ErrUnknownBuildSystem = errors.New("unknown build system")
	ErrPatchFailed        = errors.New("patch failed")
	ErrBuildStepFailed    = errors.New("build step failed")
)

// Driver runs a Package's build-system-specific sequence against a
// source directory and a synthesized environment, streaming output
// through a Presenter. Implemented per build system (autotools, cmake,
// make, meson, custom); see NewDriver.
type Driver interface {
	// Build runs the configure/compile steps.
	Build(ctx context.Context, rc RunContext) error
	// Install runs the install step.
	Install(ctx context.Context, rc RunContext) error
}

// RunContext carries everything a Driver needs for one invocation.
type RunContext struct {
	Pkg        *config.Package
	SourceDir  string
	BuildDir   string // used by cmake/meson, which build out-of-tree
	InstallDir string
	Env        map[string]string
	Presenter  presenter.Presenter
}

// NewDriver returns the Driver implementing pkg's effective build
// system, or ErrUnknownBuildSystem.
func NewDriver(pkg *config.Package) (Driver, error) {
	switch pkg.EffectiveBuildSystem() {
	case config.BuildSystemAutotools:
		return autotoolsDriver{}, nil
	case config.BuildSystemCMake:
		return cmakeDriver{}, nil
	case config.BuildSystemMake:
		return makeDriver{}, nil
	case config.BuildSystemMeson:
		return mesonDriver{}, nil
	case config.BuildSystemCustom:
		return customDriver{}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownBuildSystem, "%s: %q", pkg.Name, pkg.EffectiveBuildSystem())
	}
}

// ApplyPatches applies every path in pkg.Patches to sourceDir via
// `patch -p1` semantics, in order, before the first build step.
// Failures are fatal (spec.md §4.6 "Patches").
func ApplyPatches(ctx context.Context, pkg *config.Package, sourceDir string, env map[string]string, pres presenter.Presenter) error {
	for _, patchPath := range pkg.Patches {
		f, err := os.Open(patchPath)
		if err != nil {
			return errors.Wrapf(ErrPatchFailed, "%s: opening %s: %v", pkg.Name, patchPath, err)
		}

		cmd := exec.CommandContext(ctx, "patch", "-p1")
		cmd.Dir = sourceDir
		cmd.Env = envSlice(env)
		cmd.Stdin = f

		result, err := runStep(ctx, cmd, pres)
		f.Close()
		if err != nil {
			return errors.Wrapf(ErrPatchFailed, "%s: applying %s: %v", pkg.Name, patchPath, err)
		}
		if !result.Success() {
			return errors.Wrapf(ErrPatchFailed, "%s: patch -p1 failed applying %s", pkg.Name, patchPath)
		}
	}
	return nil
}

func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env)+len(os.Environ()))
	out = append(out, os.Environ()...)
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

// runIn executes name with args in dir under env, streaming output
// through pres, and wraps a non-success result as ErrBuildStepFailed
// with the retained tail for context.
func runIn(ctx context.Context, step, pkgName, dir string, env map[string]string, pres presenter.Presenter, name string, args ...string) error {
	log.FromContext(ctx).Developer("running build step", "package", pkgName, "step", step, "command", shellquote.Join(append([]string{name}, args...)))

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = envSlice(env)
	// Resolve a bare command name against the step's own PATH, not the
	// host's, so the synthesized PATH policy decides which tool runs.
	if p, ok := env["PATH"]; ok && !strings.Contains(name, "/") {
		for _, d := range filepath.SplitList(p) {
			candidate := filepath.Join(d, name)
			if st, err := os.Stat(candidate); err == nil && !st.IsDir() && st.Mode()&0o111 != 0 {
				cmd.Path, cmd.Err = candidate, nil
				break
			}
		}
	}

	result, err := runStep(ctx, cmd, pres)
	if err != nil {
		return errors.Wrapf(err, "%s: running %s for step %q", pkgName, name, step)
	}
	if !result.Success() {
		if result.Signaled {
			return errors.Wrapf(ErrBuildStepFailed, "%s: step %q (%s) terminated by signal %d; tail:\n%s",
				pkgName, step, name, result.Signal, joinTail(result.Tail))
		}
		return errors.Wrapf(ErrBuildStepFailed, "%s: step %q (%s) exited %d; tail:\n%s",
			pkgName, step, name, result.ExitCode, joinTail(result.Tail))
	}
	return nil
}

// runInOptional is like runIn but never returns an error — used for
// steps spec.md marks "non-fatal on failure" (autoreconf).
func runInOptional(ctx context.Context, dir string, env map[string]string, pres presenter.Presenter, name string, args ...string) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = envSlice(env)
	_, _ = runStep(ctx, cmd, pres)
}

func joinTail(lines []string) string {
	var out string
	for _, l := range lines {
		out += l + "\n"
	}
	return out
}

func mkdirAll(path string) error {
	return os.MkdirAll(path, 0o755)
}

// autotoolsDriver implements spec.md §4.6 "autotools".
type autotoolsDriver struct{}

func (autotoolsDriver) Build(ctx context.Context, rc RunContext) error {
	if _, err := os.Stat(rc.SourceDir + "/configure"); err != nil {
		runInOptional(ctx, rc.SourceDir, rc.Env, rc.Presenter, "autoreconf", "-fiv")
	}

	configureArgs := append([]string{"--prefix=" + rc.InstallDir}, rc.Pkg.ConfigureArgs...)
	if err := runIn(ctx, "configure", rc.Pkg.Name, rc.SourceDir, rc.Env, rc.Presenter, "./configure", configureArgs...); err != nil {
		return err
	}

	makeArgs := append([]string{}, rc.Pkg.MakeArgs...)
	if cflags, ok := rc.Env["CFLAGS"]; ok {
		makeArgs = append(makeArgs, fmt.Sprintf("CFLAGS=%s", cflags))
	}
	return runIn(ctx, "make", rc.Pkg.Name, rc.SourceDir, rc.Env, rc.Presenter, "make", makeArgs...)
}

func (autotoolsDriver) Install(ctx context.Context, rc RunContext) error {
	return runIn(ctx, "make install", rc.Pkg.Name, rc.SourceDir, rc.Env, rc.Presenter, "make", "install")
}

// cmakeDriver implements spec.md §4.6 "cmake".
type cmakeDriver struct{}

func (cmakeDriver) Build(ctx context.Context, rc RunContext) error {
	if err := mkdirAll(rc.BuildDir); err != nil {
		return err
	}

	setupArgs := append([]string{
		"-S", rc.SourceDir,
		"-B", rc.BuildDir,
		"-DCMAKE_INSTALL_PREFIX=" + rc.InstallDir,
	}, rc.Pkg.CMakeArgs...)
	if err := runIn(ctx, "cmake setup", rc.Pkg.Name, rc.SourceDir, rc.Env, rc.Presenter, "cmake", setupArgs...); err != nil {
		return err
	}

	buildArgs := append([]string{"--build", rc.BuildDir}, rc.Pkg.MakeArgs...)
	return runIn(ctx, "cmake build", rc.Pkg.Name, rc.SourceDir, rc.Env, rc.Presenter, "cmake", buildArgs...)
}

func (cmakeDriver) Install(ctx context.Context, rc RunContext) error {
	return runIn(ctx, "cmake install", rc.Pkg.Name, rc.SourceDir, rc.Env, rc.Presenter, "cmake", "--install", rc.BuildDir)
}

// makeDriver implements spec.md §4.6 "make": a bare Makefile with no
// configure step.
type makeDriver struct{}

func (makeDriver) Build(ctx context.Context, rc RunContext) error {
	return runIn(ctx, "make", rc.Pkg.Name, rc.SourceDir, rc.Env, rc.Presenter, "make", rc.Pkg.MakeArgs...)
}

func (makeDriver) Install(ctx context.Context, rc RunContext) error {
	return runIn(ctx, "make install", rc.Pkg.Name, rc.SourceDir, rc.Env, rc.Presenter, "make", "install", "PREFIX="+rc.InstallDir)
}

// mesonDriver implements spec.md §4.6 "meson".
type mesonDriver struct{}

func (mesonDriver) Build(ctx context.Context, rc RunContext) error {
	// meson has no dedicated args field of its own (configure_args is
	// autotools-specific, spec.md §3), so the setup invocation is the
	// literal "meson setup <bld> <src> --prefix=<install_dir>" of
	// spec.md §4.6 with no extra flags appended.
	if err := runIn(ctx, "meson setup", rc.Pkg.Name, rc.SourceDir, rc.Env, rc.Presenter, "meson", "setup", rc.BuildDir, rc.SourceDir, "--prefix="+rc.InstallDir); err != nil {
		return err
	}
	return runIn(ctx, "meson compile", rc.Pkg.Name, rc.SourceDir, rc.Env, rc.Presenter, "meson", "compile", "-C", rc.BuildDir)
}

func (mesonDriver) Install(ctx context.Context, rc RunContext) error {
	return runIn(ctx, "meson install", rc.Pkg.Name, rc.SourceDir, rc.Env, rc.Presenter, "meson", "install", "-C", rc.BuildDir)
}
