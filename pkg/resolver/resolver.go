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

package resolver

import (
	"github.com/pkg/errors"

	"github.com/PanterSoft/tsi/pkg/config"
)

// Sentinel error kinds from spec.md §7. Use errors.Is to match; the
// concrete error additionally carries the offending name via %w-free
// formatting so the message stays human-readable.
var (
	ErrUnknownPackage      = errors.New("unknown package")
	ErrCircularDependency  = errors.New("circular dependency")
)

// Resolver resolves a target package spec against a Repository into a
// dependency-first install order, grounded on the recursive-DFS
// algorithm of spec.md §4.3. A Resolver holds no state between calls:
// the cycle-detection "visited" stack the original tool keeps on a
// long-lived resolver instance is instead threaded through each
// Resolve call as a local stack, per spec.md §9's design notes.
type Resolver struct {
	Repo *config.Repository
}

// New returns a Resolver backed by repo.
func New(repo *config.Repository) *Resolver {
	return &Resolver{Repo: repo}
}

// Resolve returns the ordered transitive closure of package names that
// must be installed for targetSpec, excluding anything already present
// in installed (matched by name only — the version fragment of an
// installed entry is informational). The target itself is always the
// last element, even when every one of its dependencies is already
// installed. See spec.md §4.3 and §8 for the full property list this
// must satisfy.
func (r *Resolver) Resolve(targetSpec string, installed []string) ([]string, error) {
	installedNames := make(map[string]bool, len(installed))
	for _, spec := range installed {
		name, _ := ParseSpec(spec)
		installedNames[name] = true
	}

	var stack []string
	return r.resolve(targetSpec, installedNames, &stack)
}

func (r *Resolver) resolve(targetSpec string, installed map[string]bool, stack *[]string) ([]string, error) {
	name, version := ParseSpec(targetSpec)

	for _, s := range *stack {
		if s == name {
			return nil, errors.Wrapf(ErrCircularDependency, "%s", name)
		}
	}

	if installed[name] {
		return nil, nil
	}

	pkg := r.lookup(name, version)
	if pkg == nil {
		return nil, errors.Wrapf(ErrUnknownPackage, "%s", name)
	}

	*stack = append(*stack, name)
	defer func() { *stack = (*stack)[:len(*stack)-1] }()

	var acc []string
	present := map[string]bool{}

	appendDeps := func(deps []string) error {
		for _, dep := range deps {
			depName, _ := ParseSpec(dep)
			if depName == name {
				continue // self-reference is filtered, not an error
			}
			if present[depName] {
				continue
			}

			sub, err := r.resolve(dep, installed, stack)
			if err != nil {
				return err
			}
			if len(sub) == 0 && r.lookup(depName, "") == nil && !installed[depName] {
				return errors.Wrapf(ErrUnknownPackage, "%s", depName)
			}
			for _, s := range sub {
				if !present[s] {
					present[s] = true
					acc = append(acc, s)
				}
			}
		}
		return nil
	}

	if err := appendDeps(pkg.Dependencies); err != nil {
		return nil, err
	}
	if err := appendDeps(pkg.BuildDependencies); err != nil {
		return nil, err
	}

	acc = append(acc, name)
	return acc, nil
}

func (r *Resolver) lookup(name, version string) *config.Package {
	if version == "" {
		return r.Repo.Get(name)
	}
	return r.Repo.GetVersion(name, version)
}
