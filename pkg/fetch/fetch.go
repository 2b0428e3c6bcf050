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

// Package fetch materializes a Package's source tree into a cache
// directory: git clone/checkout, tarball/zip download + extraction
// with format auto-detection, and local recursive copy (spec.md §4.4).
package fetch

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/PanterSoft/tsi/pkg/config"
)

// Sentinel error kinds from spec.md §7.
var (
	ErrNoSource          = errors.New("no source")
	ErrUnknownSourceType = errors.New("unknown source type")
	ErrDownloadFailed    = errors.New("download failed")
	ErrCloneFailed       = errors.New("clone failed")
	ErrExtractFailed     = errors.New("extract failed")
	ErrNoDownloader      = errors.New("no downloader available")
)

// Fetcher materializes Package sources into a cache directory.
type Fetcher struct {
	// CacheRoot is the directory under which per-package source trees
	// are cached.
	CacheRoot string
	// PrefixBin is the prefix's bin directory, consulted first when
	// selecting a downloader (spec.md §4.4: "a self-installed copy of
	// wget... if present").
	PrefixBin string
	// IsTTY controls whether a progress display is attempted for
	// downloads.
	IsTTY bool
}

// New returns a Fetcher caching under cacheRoot.
func New(cacheRoot, prefixBin string, isTTY bool) *Fetcher {
	return &Fetcher{CacheRoot: cacheRoot, PrefixBin: prefixBin, IsTTY: isTTY}
}

// destDir computes the cache directory layout of spec.md §4.4: versioned
// packages get "<cache_root>/<name>-<version>", unversioned (or
// "latest") packages get "<cache_root>/<name>".
func (f *Fetcher) destDir(p *config.Package) string {
	v := p.EffectiveVersion()
	if v == config.VersionLatest {
		return filepath.Join(f.CacheRoot, p.Name)
	}
	return filepath.Join(f.CacheRoot, p.Name+"-"+v)
}

// Fetch materializes p's source tree, returning its absolute path. If
// the target directory already exists and force is false, it is
// returned unchanged without touching the network (spec.md §4.4
// "Idempotence"). If force is true, any existing directory is removed
// first.
func (f *Fetcher) Fetch(ctx context.Context, p *config.Package, force bool) (string, error) {
	dest := f.destDir(p)

	if _, err := os.Stat(dest); err == nil {
		if !force {
			return dest, nil
		}
		if err := os.RemoveAll(dest); err != nil {
			return "", errors.Wrapf(err, "removing existing source dir for force re-fetch of %s", p.Name)
		}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", err
	}

	switch p.Source.Type {
	case config.SourceGit:
		if err := f.fetchGit(ctx, p, dest); err != nil {
			return "", err
		}
	case config.SourceTarball, config.SourceZip:
		if err := f.fetchArchive(ctx, p, dest); err != nil {
			return "", err
		}
	case config.SourceLocal:
		if err := f.fetchLocal(p, dest); err != nil {
			return "", err
		}
	case "":
		return "", errors.Wrapf(ErrNoSource, "%s", p.Name)
	default:
		return "", errors.Wrapf(ErrUnknownSourceType, "%s: %q", p.Name, p.Source.Type)
	}

	return dest, nil
}
