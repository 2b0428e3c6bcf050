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

// Package shellquote builds human-readable, shell-safe command lines
// for logging. It is not used to construct the argument vectors the
// core actually execs — those are always built and spawned as argv
// slices, never through a shell (spec.md §9) — only to render them for
// a log line or error message.
package shellquote

import "strings"

// Quote wraps s in single quotes if it contains any character a POSIX
// shell would otherwise treat specially, escaping embedded single
// quotes. Plain words are returned unchanged.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"$`\\|&;()<>*?[]{}~!#") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Join renders argv as a single space-separated, shell-quoted line
// suitable for a log message.
func Join(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = Quote(a)
	}
	return strings.Join(quoted, " ")
}
