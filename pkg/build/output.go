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

// Package build implements the Build Driver: per-build-system command
// sequences, patch application, and line-buffered output capture
// (spec.md §4.6).
package build

import (
	"bufio"
	"context"
	"os/exec"
	"syscall"

	"github.com/PanterSoft/tsi/pkg/presenter"
)

// StepResult describes the outcome of one child-process invocation.
type StepResult struct {
	ExitCode int
	Signal   int  // >0 if the child was terminated by a signal
	Signaled bool
	Tail     []string // the retained output tail, for error context
}

// Success reports whether the step completed with exit code 0 and was
// not signaled.
func (r StepResult) Success() bool { return !r.Signaled && r.ExitCode == 0 }

// runStep runs cmd to completion, reading its combined stdout/stderr
// line by line. Each complete line (terminated by LF or CR) is handed
// to pres for live display and retained in a bounded 50-line ring
// buffer used as error context on failure (spec.md §4.6 "Output
// capture").
func runStep(ctx context.Context, cmd *exec.Cmd, pres presenter.Presenter) (StepResult, error) {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return StepResult{}, err
	}
	cmd.Stderr = cmd.Stdout // merge stderr into stdout, per spec.md §4.6

	ring := presenter.NewRingBuffer(50)
	tee := presenter.Tee(pres, ring)

	if err := cmd.Start(); err != nil {
		return StepResult{}, err
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	scanner.Split(scanLinesLFOrCR)
	for scanner.Scan() {
		tee.OnLine(scanner.Text())
	}

	waitErr := cmd.Wait()

	result := StepResult{Tail: ring.Lines()}
	if waitErr == nil {
		result.ExitCode = 0
		return result, nil
	}

	exitErr, ok := waitErr.(*exec.ExitError)
	if !ok {
		return result, waitErr
	}

	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if ok && status.Signaled() {
		result.Signaled = true
		result.Signal = int(status.Signal())
		return result, nil
	}

	result.ExitCode = exitErr.ExitCode()
	return result, nil
}

// scanLinesLFOrCR is a bufio.SplitFunc that terminates lines on either
// LF or CR, matching spec.md §4.6's "terminated by LF or CR" wording
// (some build tools emit carriage-return-terminated progress lines).
func scanLinesLFOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
