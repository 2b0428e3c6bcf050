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

import "github.com/pkg/errors"

// BuildOrder returns a topologically sorted permutation of names such
// that every package appears after those it depends on, via Kahn's
// algorithm over the subgraph induced by names (edges only count when
// both endpoints are in the input). Ties are broken by input order, so
// the result is stable (spec.md §4.3).
func (r *Resolver) BuildOrder(names []string) ([]string, error) {
	inSet := make(map[string]bool, len(names))
	for _, n := range names {
		inSet[n] = true
	}

	// inDegree[a] = number of distinct in-set packages a depends on.
	inDegree := make(map[string]int, len(names))
	dependents := make(map[string][]string) // dep -> packages waiting on it
	for _, n := range names {
		inDegree[n] = 0
	}

	for _, n := range names {
		pkg := r.lookup(n, "")
		if pkg == nil {
			continue
		}
		deps := make(map[string]bool)
		for _, d := range append(append([]string{}, pkg.Dependencies...), pkg.BuildDependencies...) {
			depName, _ := ParseSpec(d)
			if depName == n || !inSet[depName] || deps[depName] {
				continue
			}
			deps[depName] = true
			inDegree[n]++
			dependents[depName] = append(dependents[depName], n)
		}
	}

	// Initial queue: input order, stable, among zero in-degree nodes.
	queue := make([]string, 0, len(names))
	queued := make(map[string]bool, len(names))
	for _, n := range names {
		if inDegree[n] == 0 && !queued[n] {
			queue = append(queue, n)
			queued[n] = true
		}
	}

	order := make([]string, 0, len(names))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)

		for _, dependent := range dependents[n] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 && !queued[dependent] {
				queue = append(queue, dependent)
				queued[dependent] = true
			}
		}
	}

	if len(order) != len(names) {
		return nil, errors.Wrap(ErrCircularDependency, "build order: progress halted before all packages were ordered")
	}
	return order, nil
}
