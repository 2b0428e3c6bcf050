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

// Package resolver implements dependency resolution over a
// config.Repository: computing the transitive install closure for a
// target package and a topological build order for a flat set of
// packages (spec.md §4.3).
package resolver

import "strings"

// ParseSpec splits a dependency spec on the first "@". The fragment
// before is the name; the fragment after is the version, or "" if
// there was no "@" (spec.md §4.3 "Parsing helper").
func ParseSpec(spec string) (name, version string) {
	if i := strings.IndexByte(spec, '@'); i >= 0 {
		return spec[:i], spec[i+1:]
	}
	return spec, ""
}
