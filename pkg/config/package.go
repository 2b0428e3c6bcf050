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

// Package config holds the recipe data model (Package, Source) and the
// Repository in-memory index built from a directory of recipe files.
package config

import "fmt"

// BuildSystem identifies which driver sequence a Build Driver runs for a
// Package (spec.md §3, §4.6).
type BuildSystem string

const (
	BuildSystemAutotools BuildSystem = "autotools"
	BuildSystemCMake     BuildSystem = "cmake"
	BuildSystemMake      BuildSystem = "make"
	BuildSystemMeson     BuildSystem = "meson"
	BuildSystemCustom    BuildSystem = "custom"
)

// SourceType identifies how a Package's source is materialized.
type SourceType string

const (
	SourceGit     SourceType = "git"
	SourceTarball SourceType = "tarball"
	SourceZip     SourceType = "zip"
	SourceLocal   SourceType = "local"
)

// VersionLatest is the sentinel meaning "absence of an explicit
// version" per spec.md §3.
const VersionLatest = "latest"

// Source describes where a Package's source tree comes from.
type Source struct {
	Type   SourceType `json:"type"`
	URL    string     `json:"url,omitempty"`
	Branch string     `json:"branch,omitempty"`
	Tag    string     `json:"tag,omitempty"`
	Commit string     `json:"commit,omitempty"`
}

// Package is one build recipe: the name, version, build system, source
// location, dependency lists, driver arguments, environment overrides,
// patches and (for the custom build system) an explicit command
// sequence. See spec.md §3 "Package (recipe)".
type Package struct {
	Name        string `json:"name"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`

	BuildSystem BuildSystem `json:"build_system,omitempty"`
	Source      Source      `json:"source"`

	Dependencies      []string `json:"dependencies,omitempty"`
	BuildDependencies []string `json:"build_dependencies,omitempty"`

	ConfigureArgs []string `json:"configure_args,omitempty"`
	CMakeArgs     []string `json:"cmake_args,omitempty"`
	MakeArgs      []string `json:"make_args,omitempty"`

	Env []EnvEntry `json:"-"`
	// RawEnv backs Env across JSON round-trips: JSON objects do not
	// preserve key order, but spec.md never relies on Env order, only
	// on "applied last, overriding any synthesized variable," so a map
	// is sufficient on the wire.
	RawEnv map[string]string `json:"env,omitempty"`

	Patches       []string `json:"patches,omitempty"`
	BuildCommands []string `json:"build_commands,omitempty"`
}

// EnvEntry is a single environment-variable override.
type EnvEntry struct {
	Name  string
	Value string
}

// EffectiveVersion returns Version, substituting VersionLatest when
// Version is empty (spec.md §3: "absence is equivalent to the sentinel
// latest").
func (p *Package) EffectiveVersion() string {
	if p.Version == "" {
		return VersionLatest
	}
	return p.Version
}

// EffectiveBuildSystem returns BuildSystem, defaulting to autotools
// when unset (spec.md §3).
func (p *Package) EffectiveBuildSystem() BuildSystem {
	if p.BuildSystem == "" {
		return BuildSystemAutotools
	}
	return p.BuildSystem
}

// Validate checks the invariants spec.md §3 lists for a Package. It
// does not check dependency resolvability; that is the Resolver's job.
func (p *Package) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("package: name is required")
	}
	switch p.Source.Type {
	case SourceGit:
		if p.Source.Branch != "" && p.Source.Tag != "" {
			return fmt.Errorf("package %s: source.branch and source.tag are mutually exclusive at clone time", p.Name)
		}
	case SourceTarball, SourceZip:
		if p.Source.URL == "" {
			return fmt.Errorf("package %s: source.url is required for source.type=%s", p.Name, p.Source.Type)
		}
	case SourceLocal:
		if p.Source.URL == "" {
			return fmt.Errorf("package %s: source.url (local path) is required for source.type=local", p.Name)
		}
	case "":
		return fmt.Errorf("package %s: source.type is required", p.Name)
	default:
		return fmt.Errorf("package %s: unknown source.type %q", p.Name, p.Source.Type)
	}
	return nil
}

// HasDependency reports whether spec appears, by exact string equality,
// in either Dependencies or BuildDependencies (spec.md §4.1
// package_has_dependency).
func (p *Package) HasDependency(spec string) bool {
	for _, d := range p.Dependencies {
		if d == spec {
			return true
		}
	}
	for _, d := range p.BuildDependencies {
		if d == spec {
			return true
		}
	}
	return false
}

// EnvMap returns the package's environment overrides as a map,
// preferring RawEnv (the on-the-wire form) and falling back to Env
// (populated when a Package is built programmatically rather than
// parsed).
func (p *Package) EnvMap() map[string]string {
	if len(p.RawEnv) > 0 {
		return p.RawEnv
	}
	if len(p.Env) == 0 {
		return nil
	}
	m := make(map[string]string, len(p.Env))
	for _, e := range p.Env {
		m[e.Name] = e.Value
	}
	return m
}
