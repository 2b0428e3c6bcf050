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

// Package tsicfg loads and writes <prefix>/tsi.cfg, the line-oriented
// key=value configuration file described in spec.md §6.
package tsicfg

import (
	"strings"

	"github.com/joho/godotenv"
)

// Config is the set of recognized tsi.cfg keys.
type Config struct {
	// StrictIsolation selects the strict-isolation PATH policy for
	// non-bootstrap packages (spec.md §4.5, §6).
	StrictIsolation bool
}

const defaultContents = `# tsi.cfg - created automatically; edits are preserved across upgrades.
strict_isolation=false
`

var truthy = map[string]bool{
	"true": true, "1": true, "yes": true,
	"false": false, "0": false, "no": false,
}

// Parse parses the contents of a tsi.cfg file. Lines beginning with
// "#" or ";" are comments; godotenv only recognizes "#", so ";" lines
// are stripped before handing the remainder to it (spec.md §6).
func Parse(data []byte) (Config, error) {
	var stripped []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), ";") {
			continue
		}
		stripped = append(stripped, line)
	}

	values, err := godotenv.Unmarshal(strings.Join(stripped, "\n"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{StrictIsolation: false}
	if raw, ok := values["strict_isolation"]; ok {
		if b, ok := truthy[strings.ToLower(strings.TrimSpace(raw))]; ok {
			cfg.StrictIsolation = b
		}
	}
	return cfg, nil
}

// DefaultContents returns the file content written for a fresh tsi.cfg
// (spec.md §6: "created with defaults on first run if absent").
func DefaultContents() []byte {
	return []byte(defaultContents)
}
