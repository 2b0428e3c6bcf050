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

package tsicfg

import (
	"context"
	"os"
	"path/filepath"

	"github.com/chainguard-dev/clog"
)

// Path returns the tsi.cfg path under prefix.
func Path(prefix string) string {
	return filepath.Join(prefix, "tsi.cfg")
}

// Load reads <prefix>/tsi.cfg, creating it with defaults if absent. It
// never overwrites an existing file, even one a user has hand-edited
// into an unusual shape (spec.md §6: "never overwritten thereafter").
// Failure to create the default file degrades to a logged warning and
// the zero-value Config, per spec.md §7's policy on informational
// local errors.
func Load(ctx context.Context, prefix string) Config {
	path := Path(prefix)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(prefix, 0o755); mkErr != nil {
			clog.FromContext(ctx).Warnf("tsicfg: creating prefix %s: %v", prefix, mkErr)
			return Config{}
		}
		if writeErr := os.WriteFile(path, DefaultContents(), 0o644); writeErr != nil {
			clog.FromContext(ctx).Warnf("tsicfg: writing default %s: %v", path, writeErr)
		}
		cfg, _ := Parse(DefaultContents())
		return cfg
	}
	if err != nil {
		clog.FromContext(ctx).Warnf("tsicfg: reading %s: %v", path, err)
		return Config{}
	}

	cfg, err := Parse(data)
	if err != nil {
		clog.FromContext(ctx).Warnf("tsicfg: parsing %s: %v", path, err)
		return Config{}
	}
	return cfg
}
