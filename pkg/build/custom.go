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
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/PanterSoft/tsi/pkg/presenter"
)

// customDriver implements spec.md §4.6 "custom": build_commands are
// interpreted as POSIX shell (pipes and redirections included) rather
// than exec'd as bare argv vectors, so a pure-Go interpreter is used
// instead of shelling out to an external /bin/sh (spec.md §9).
type customDriver struct{}

func (customDriver) Build(ctx context.Context, rc RunContext) error {
	env := withInstallDir(rc.Env, rc.InstallDir)

	for _, raw := range rc.Pkg.BuildCommands {
		cmd := strings.ReplaceAll(raw, "$TSI_INSTALL_DIR", rc.InstallDir)

		if err := runShellLine(ctx, cmd, rc.SourceDir, env, rc.Presenter); err != nil {
			return errors.Wrapf(ErrBuildStepFailed, "%s: custom command %q: %v", rc.Pkg.Name, raw, err)
		}
	}
	return nil
}

// Install performs a best-effort copy of bin/, lib/, include/, share/
// from the source tree into the install prefix; errors are tolerated
// (spec.md §4.6 "custom" install step).
func (customDriver) Install(_ context.Context, rc RunContext) error {
	for _, sub := range []string{"bin", "lib", "include", "share"} {
		src := filepath.Join(rc.SourceDir, sub)
		if st, err := os.Stat(src); err != nil || !st.IsDir() {
			continue
		}
		_ = copyTreeBestEffort(src, filepath.Join(rc.InstallDir, sub))
	}
	return nil
}

func withInstallDir(env map[string]string, installDir string) map[string]string {
	out := make(map[string]string, len(env)+1)
	for k, v := range env {
		out[k] = v
	}
	out["TSI_INSTALL_DIR"] = installDir
	return out
}

// runShellLine parses and interprets one shell line in dir under env,
// applying the same line-buffered output capture (LF or CR, 50-line
// tail) as a real child process (spec.md §4.6 "Output capture" applies
// uniformly regardless of how the step is executed).
func runShellLine(ctx context.Context, line, dir string, env map[string]string, pres presenter.Presenter) error {
	file, err := syntax.NewParser().Parse(strings.NewReader(line), "")
	if err != nil {
		return err
	}

	pr, pw := io.Pipe()
	ring := presenter.NewRingBuffer(50)
	tee := presenter.Tee(pres, ring)

	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 64*1024), 1<<20)
		scanner.Split(scanLinesLFOrCR)
		for scanner.Scan() {
			tee.OnLine(scanner.Text())
		}
	}()

	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(envSlice(env)...)),
		interp.StdIO(nil, pw, pw),
	)
	if err != nil {
		pw.Close()
		<-scanDone
		return err
	}

	runErr := runner.Run(ctx, file)
	pw.Close()
	<-scanDone

	if runErr != nil {
		return errors.Errorf("%v; tail:\n%s", runErr, joinTail(ring.Lines()))
	}
	return nil
}

func copyTreeBestEffort(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // best-effort: skip unreadable entries
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return nil
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			_ = os.MkdirAll(target, 0o755)
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			if link, err := os.Readlink(path); err == nil {
				_ = os.MkdirAll(filepath.Dir(target), 0o755)
				_ = os.Symlink(link, target)
			}
			return nil
		}

		_ = os.MkdirAll(filepath.Dir(target), 0o755)
		in, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer in.Close()
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
		if err != nil {
			return nil
		}
		defer out.Close()
		_, _ = io.Copy(out, in)
		return nil
	})
}
