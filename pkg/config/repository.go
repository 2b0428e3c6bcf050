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

package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chainguard-dev/clog"
)

// Repository is an in-memory index of Package records loaded from a
// directory of recipe files (spec.md §3 "Repository", §4.2
// "Repository Index").
type Repository struct {
	packages []Package
}

// NewRepository returns an empty Repository. Use Load to populate it
// from a directory, or Add to build one up programmatically (tests).
func NewRepository() *Repository {
	return &Repository{}
}

// Load reads every non-dotfile ending in ".json" directly under dir
// and appends the resulting Packages to the repository. A missing or
// unreadable directory yields an empty repository, not an error
// (spec.md §4.2 "Failure model"); individual file failures are logged
// via ctx's logger and skipped.
func (r *Repository) Load(ctx context.Context, dir string) error {
	log := clog.FromContext(ctx)

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warn("repository directory unavailable, using empty repository", "dir", dir, "error", err)
		return nil
	}

	for _, ent := range entries {
		name := ent.Name()
		if ent.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("skipping unreadable manifest", "path", path, "error", err)
			continue
		}

		pkgs, err := ParseManifest(data)
		if err != nil {
			log.Warn("skipping malformed manifest", "path", path, "error", err)
			continue
		}

		r.packages = append(r.packages, pkgs...)
	}

	return nil
}

// Add appends p to the repository, rejecting it if a package with the
// same name already exists (spec.md §4.2: "rejects if a package with
// the same name already exists").
func (r *Repository) Add(p Package) bool {
	for _, existing := range r.packages {
		if existing.Name == p.Name {
			return false
		}
	}
	r.packages = append(r.packages, p)
	return true
}

// Get returns the record with the lexicographically greatest Version
// among records sharing name, treating an empty Version as
// VersionLatest (spec.md §3). Returns nil if name is unknown.
//
// Note: this is a textual, not semantic, comparison, so "9" sorts
// after "10". spec.md §9 flags this as an open question to confirm
// with maintainers rather than guess; this implementation matches the
// letter of §3 until that's resolved.
func (r *Repository) Get(name string) *Package {
	var best *Package
	for i := range r.packages {
		p := &r.packages[i]
		if p.Name != name {
			continue
		}
		if best == nil || p.EffectiveVersion() > best.EffectiveVersion() {
			best = p
		}
	}
	return best
}

// GetVersion returns the record for (name, version). version of "" or
// "latest" is equivalent to Get(name); otherwise an exact string match
// against EffectiveVersion is required.
func (r *Repository) GetVersion(name, version string) *Package {
	if version == "" || version == VersionLatest {
		return r.Get(name)
	}
	for i := range r.packages {
		p := &r.packages[i]
		if p.Name == name && p.EffectiveVersion() == version {
			return p
		}
	}
	return nil
}

// ListVersions returns every version string known for name, duplicates
// preserved, in load order.
func (r *Repository) ListVersions(name string) []string {
	var out []string
	for _, p := range r.packages {
		if p.Name == name {
			out = append(out, p.EffectiveVersion())
		}
	}
	return out
}

// ListPackages returns the set of distinct package names, sorted for
// deterministic output.
func (r *Repository) ListPackages() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range r.packages {
		if !seen[p.Name] {
			seen[p.Name] = true
			out = append(out, p.Name)
		}
	}
	sort.Strings(out)
	return out
}

// All returns every Package record in load order. Callers must not
// mutate the returned slice's backing array.
func (r *Repository) All() []Package {
	return r.packages
}

// Save writes the repository back out as one manifest file per package
// under dir, named "<name>-<version>.json" (or "<name>.json" for the
// latest-sentinel case), overwriting any existing files of those
// names. This is the inverse of Load, and exists so that
// Load-then-Save-then-reload round-trips to the same logical set
// (spec.md §8 "Repository properties").
func (r *Repository) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, p := range r.packages {
		raw := packageToRaw(p)
		data, err := json.MarshalIndent(raw, "", "  ")
		if err != nil {
			return err
		}

		fname := p.Name + ".json"
		if v := p.EffectiveVersion(); v != VersionLatest {
			fname = p.Name + "-" + v + ".json"
		}
		if err := os.WriteFile(filepath.Join(dir, fname), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func packageToRaw(p Package) rawManifest {
	strp := func(s string) *string { return &s }

	toPtrs := func(ss []string) []*string {
		if ss == nil {
			return nil
		}
		out := make([]*string, len(ss))
		for i, s := range ss {
			out[i] = strp(s)
		}
		return out
	}

	var versionPtr *string
	if p.Version != "" {
		versionPtr = strp(p.Version)
	}

	return rawManifest{
		Name:              p.Name,
		Version:           versionPtr,
		Description:       p.Description,
		BuildSystem:       string(p.BuildSystem),
		SourceType:        string(p.Source.Type),
		SourceURL:         p.Source.URL,
		SourceBranch:      p.Source.Branch,
		SourceTag:         p.Source.Tag,
		SourceCommit:      p.Source.Commit,
		Dependencies:      toPtrs(p.Dependencies),
		BuildDependencies: toPtrs(p.BuildDependencies),
		ConfigureArgs:     toPtrs(p.ConfigureArgs),
		CMakeArgs:         toPtrs(p.CMakeArgs),
		MakeArgs:          toPtrs(p.MakeArgs),
		Patches:           toPtrs(p.Patches),
		BuildCommands:     toPtrs(p.BuildCommands),
		Env:               p.EnvMap(),
	}
}
