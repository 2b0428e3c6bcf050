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

package fetch

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// downloader is a resolved download tool: a path to an executable plus
// whether it is a BusyBox build (which lacks several GNU-only wget
// flags).
type downloader struct {
	path      string
	tool      string // "wget" or "curl"
	isBusyBox bool
}

var busyBoxCache sync.Map // path -> bool

// isBusyBoxWget inspects `wget --help` output for the literal
// "BusyBox", caching the result per binary path (spec.md §4.4).
func isBusyBoxWget(ctx context.Context, path string) bool {
	if v, ok := busyBoxCache.Load(path); ok {
		return v.(bool)
	}

	out, _ := exec.CommandContext(ctx, path, "--help").CombinedOutput()
	if len(out) == 0 {
		out, _ = exec.CommandContext(ctx, path, "--version").CombinedOutput()
	}
	isBB := strings.Contains(string(out), "BusyBox")
	busyBoxCache.Store(path, isBB)
	return isBB
}

// selectDownloader implements spec.md §4.4's preference order: a
// self-installed wget under the prefix's bin, then system wget, then
// curl, then ErrNoDownloader.
func (f *Fetcher) selectDownloader(ctx context.Context) (*downloader, error) {
	if f.PrefixBin != "" {
		p := filepath.Join(f.PrefixBin, "wget")
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return &downloader{path: p, tool: "wget", isBusyBox: isBusyBoxWget(ctx, p)}, nil
		}
	}

	if p, err := exec.LookPath("wget"); err == nil {
		return &downloader{path: p, tool: "wget", isBusyBox: isBusyBoxWget(ctx, p)}, nil
	}

	if p, err := exec.LookPath("curl"); err == nil {
		return &downloader{path: p, tool: "curl", isBusyBox: false}, nil
	}

	return nil, ErrNoDownloader
}

// download fetches url into destFile using the resolved downloader,
// returning ErrDownloadFailed if the tool exits nonzero or produces an
// empty file.
func (f *Fetcher) download(ctx context.Context, url, destFile string) error {
	dl, err := f.selectDownloader(ctx)
	if err != nil {
		return err
	}

	var args []string
	switch dl.tool {
	case "wget":
		args = []string{"-O", destFile}
		if !f.IsTTY {
			args = append(args, "-q")
		} else if !dl.isBusyBox {
			args = append(args, "--show-progress")
		}
		args = append(args, url)
	case "curl":
		args = []string{"-L", "-o", destFile}
		if f.IsTTY {
			args = append(args, "--progress-bar")
		} else {
			args = append(args, "-s")
		}
		args = append(args, url)
	}

	cmd := exec.CommandContext(ctx, dl.path, args...)
	if err := cmd.Run(); err != nil {
		return newDownloadFailed(url, err)
	}

	st, err := os.Stat(destFile)
	if err != nil || st.Size() == 0 {
		return newDownloadFailed(url, err)
	}
	return nil
}

func newDownloadFailed(url string, err error) error {
	if err == nil {
		return errors.Wrapf(ErrDownloadFailed, "%s: downloaded file is empty", url)
	}
	return errors.Wrapf(ErrDownloadFailed, "%s: %v", url, err)
}
