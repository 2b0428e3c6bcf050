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
	"encoding/json"

	"github.com/pkg/errors"
)

// MaxManifestSize is the per-file size ceiling of spec.md §4.1: larger
// files are skipped by the Repository loader.
const MaxManifestSize = 1 << 20 // 1 MiB

// ErrMalformedManifest is the sentinel for spec.md §7's
// "MalformedManifest" error kind: a JSON error, or a missing name.
// Loading a directory recovers from this locally by skipping the file.
var ErrMalformedManifest = errors.New("malformed manifest")

// rawManifest mirrors the flat, recognized-keys wire format of spec.md
// §6 ("Recipe file (JSON)"). One JSON parser, one schema: both the
// single- and multi-version forms decode through this struct, and the
// multi-version case is distinguished by a non-nil Versions field
// rather than by substring search on the raw bytes.
type rawManifest struct {
	Name        string   `json:"name"`
	Version     *string  `json:"version"`
	Description string   `json:"description"`
	BuildSystem string   `json:"build_system"`

	SourceType   string `json:"source_type"`
	SourceURL    string `json:"source_url"`
	SourceBranch string `json:"source_branch"`
	SourceTag    string `json:"source_tag"`
	SourceCommit string `json:"source_commit"`

	Dependencies      []*string `json:"dependencies"`
	BuildDependencies []*string `json:"build_dependencies"`
	ConfigureArgs     []*string `json:"configure_args"`
	CMakeArgs         []*string `json:"cmake_args"`
	MakeArgs          []*string `json:"make_args"`
	Patches           []*string `json:"patches"`
	BuildCommands     []*string `json:"build_commands"`

	Env map[string]string `json:"env"`

	// Versions, when present (even as an empty array), marks this file
	// as the multi-version form. Each element is package-shaped minus
	// name, per spec.md §3.
	Versions *[]rawManifest `json:"versions"`
}

// filterNulls drops null entries from a JSON string array, per spec.md
// §4.1: "Arrays of strings must not contain null; nulls are filtered
// out."
func filterNulls(in []*string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

func (m *rawManifest) toPackage(nameOverride string) (Package, error) {
	name := m.Name
	if nameOverride != "" {
		name = nameOverride
	}
	if name == "" {
		return Package{}, errors.Wrap(ErrMalformedManifest, "missing name")
	}

	version := ""
	if m.Version != nil {
		version = *m.Version
	}

	p := Package{
		Name:        name,
		Version:     version,
		Description: m.Description,
		BuildSystem: BuildSystem(m.BuildSystem),
		Source: Source{
			Type:   SourceType(m.SourceType),
			URL:    m.SourceURL,
			Branch: m.SourceBranch,
			Tag:    m.SourceTag,
			Commit: m.SourceCommit,
		},
		Dependencies:      filterNulls(m.Dependencies),
		BuildDependencies: filterNulls(m.BuildDependencies),
		ConfigureArgs:     filterNulls(m.ConfigureArgs),
		CMakeArgs:         filterNulls(m.CMakeArgs),
		MakeArgs:          filterNulls(m.MakeArgs),
		Patches:           filterNulls(m.Patches),
		BuildCommands:     filterNulls(m.BuildCommands),
		RawEnv:            m.Env,
	}
	return p, nil
}

// ParseManifest parses one recipe file's JSON bytes into one or more
// Package records. A JSON syntax error or a missing name anywhere at
// the top level is ErrMalformedManifest. For the multi-version form, a
// version entry that is null or fails Package.Validate (for example an
// unknown or missing source type) is skipped rather than aborting the
// whole file. A version entry with a wrongly typed field (a string
// where an array is expected, say) or one that is not a JSON object is
// not skipped: it makes the whole file ErrMalformedManifest.
func ParseManifest(data []byte) ([]Package, error) {
	if len(data) > MaxManifestSize {
		return nil, errors.Wrapf(ErrMalformedManifest, "manifest exceeds %d byte size ceiling", MaxManifestSize)
	}

	if err := Validate(data); err != nil {
		return nil, err
	}

	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(ErrMalformedManifest, err.Error())
	}

	if raw.Versions == nil {
		p, err := raw.toPackage("")
		if err != nil {
			return nil, err
		}
		if err := p.Validate(); err != nil {
			return nil, errors.Wrap(ErrMalformedManifest, err.Error())
		}
		return []Package{p}, nil
	}

	if raw.Name == "" {
		return nil, errors.Wrap(ErrMalformedManifest, "multi-version manifest missing top-level name")
	}

	pkgs := make([]Package, 0, len(*raw.Versions))
	for _, v := range *raw.Versions {
		p, err := v.toPackage(raw.Name)
		if err != nil {
			// One bad version entry doesn't invalidate the others.
			continue
		}
		if err := p.Validate(); err != nil {
			continue
		}
		pkgs = append(pkgs, p)
	}
	return pkgs, nil
}
