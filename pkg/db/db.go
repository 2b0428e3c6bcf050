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

// Package db implements the Installed-Package Database: a persistent,
// append-mostly JSON array of installed-package rows under the install
// prefix (spec.md §4.7), plus the advisory file lock the orchestrator
// holds for the duration of an install (spec.md §5).
package db

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/chainguard-dev/clog"
	"github.com/pkg/errors"
)

// ErrLockContended is returned by Lock when another process already
// holds the advisory lock.
var ErrLockContended = errors.New("lock contended")

// Row is one installed package (spec.md §6 "Installed database file").
type Row struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	InstallPath string   `json:"install_path"`
	InstalledAt int64    `json:"installed_at"`
	Dependencies []string `json:"dependencies"`
}

// DB is the in-memory view of the installed-package database file. The
// zero value is not usable; construct with New.
type DB struct {
	path string
	rows []Row
}

// New returns a DB backed by <prefix>/installed.json, unloaded until
// Load is called.
func New(prefix string) *DB {
	return &DB{path: filepath.Join(prefix, "installed.json")}
}

// Load reads the backing file, tolerating a missing file (empty DB) and
// recovering from a corrupt one by starting fresh and logging a warning
// rather than failing (spec.md §7, DatabaseCorrupt: "best-effort: start
// fresh, log warning").
func (d *DB) Load(ctx context.Context) error {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			d.rows = nil
			return nil
		}
		return err
	}

	var rows []Row
	if err := json.Unmarshal(data, &rows); err != nil {
		clog.FromContext(ctx).Warnf("db: %s is corrupt, starting fresh: %v", d.path, err)
		d.rows = nil
		return nil
	}

	d.rows = rows
	return nil
}

// Save writes the current rows back to the backing file as a JSON
// array, sorted by name for stable diffs.
func (d *DB) Save() error {
	sorted := append([]Row(nil), d.rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	data, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(d.path, data, 0o644)
}

// IsInstalled reports whether name has a row.
func (d *DB) IsInstalled(name string) bool {
	return d.Get(name) != nil
}

// Get returns the row for name, or nil.
func (d *DB) Get(name string) *Row {
	for i := range d.rows {
		if d.rows[i].Name == name {
			return &d.rows[i]
		}
	}
	return nil
}

// List returns every row, ordered by name.
func (d *DB) List() []Row {
	out := append([]Row(nil), d.rows...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Add inserts row, replacing any existing row with the same name
// (spec.md §4.7 "inserts or replaces the row with that name").
func (d *DB) Add(row Row) {
	for i := range d.rows {
		if d.rows[i].Name == row.Name {
			d.rows[i] = row
			return
		}
	}
	d.rows = append(d.rows, row)
}

// Remove deletes the row for name, if present.
func (d *DB) Remove(name string) {
	for i := range d.rows {
		if d.rows[i].Name == name {
			d.rows = append(d.rows[:i], d.rows[i+1:]...)
			return
		}
	}
}
