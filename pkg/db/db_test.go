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

package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBLoadMissingFileIsEmpty(t *testing.T) {
	d := New(t.TempDir())
	require.NoError(t, d.Load(context.Background()))
	assert.Empty(t, d.List())
}

func TestDBLoadCorruptFileStartsFreshWithoutError(t *testing.T) {
	prefix := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(prefix, "installed.json"), []byte("not json"), 0o644))

	d := New(prefix)
	require.NoError(t, d.Load(context.Background()))
	assert.Empty(t, d.List())
}

func TestDBAddGetRemove(t *testing.T) {
	d := New(t.TempDir())
	require.NoError(t, d.Load(context.Background()))

	row := Row{Name: "make", Version: "4.4", InstallPath: "/opt/tsi/install", InstalledAt: 100, Dependencies: []string{"gcc"}}
	d.Add(row)

	assert.True(t, d.IsInstalled("make"))
	got := d.Get("make")
	require.NotNil(t, got)
	assert.Equal(t, row, *got)

	// Add again with the same name replaces, doesn't duplicate.
	updated := row
	updated.Version = "4.4.1"
	d.Add(updated)
	assert.Len(t, d.List(), 1)
	assert.Equal(t, "4.4.1", d.Get("make").Version)

	d.Remove("make")
	assert.False(t, d.IsInstalled("make"))
	assert.Nil(t, d.Get("make"))
}

func TestDBListIsSortedByName(t *testing.T) {
	d := New(t.TempDir())
	d.Add(Row{Name: "zlib"})
	d.Add(Row{Name: "binutils"})
	d.Add(Row{Name: "make"})

	var names []string
	for _, r := range d.List() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"binutils", "make", "zlib"}, names)
}

func TestDBSaveLoadRoundTrips(t *testing.T) {
	ctx := context.Background()
	prefix := t.TempDir()

	d := New(prefix)
	require.NoError(t, d.Load(ctx))
	d.Add(Row{Name: "make", Version: "4.4", InstallPath: filepath.Join(prefix, "install"), InstalledAt: 42, Dependencies: []string{"gcc", "m4"}})
	require.NoError(t, d.Save())

	reloaded := New(prefix)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, d.List(), reloaded.List())
}

func TestPrefixLockContention(t *testing.T) {
	prefix := t.TempDir()

	first, err := Lock(prefix)
	require.NoError(t, err)
	defer first.Unlock()

	_, err = Lock(prefix)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLockContended)
}

func TestPrefixLockReleasedOnUnlock(t *testing.T) {
	prefix := t.TempDir()

	first, err := Lock(prefix)
	require.NoError(t, err)
	require.NoError(t, first.Unlock())

	second, err := Lock(prefix)
	require.NoError(t, err)
	require.NoError(t, second.Unlock())
}
