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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryAddAndGet(t *testing.T) {
	repo := NewRepository()
	p := Package{Name: "zlib", Version: "1.3", Source: Source{Type: SourceLocal, URL: "."}}

	require.True(t, repo.Add(p))
	assert.Equal(t, p, *repo.Get("zlib"))

	// a second Add with the same name fails.
	assert.False(t, repo.Add(Package{Name: "zlib", Source: Source{Type: SourceLocal, URL: "."}}))
}

func TestRepositoryGetPicksLexicographicallyGreatestVersion(t *testing.T) {
	// Add rejects a second record with an existing name, so both
	// versions come from one multi-version manifest instead.
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo.json"), []byte(`{
		"name": "foo",
		"versions": [
			{"version": "9", "source_type": "local", "source_url": "."},
			{"version": "10", "source_type": "local", "source_url": "."}
		]
	}`), 0o644))
	repo := NewRepository()
	require.NoError(t, repo.Load(context.Background(), dir))

	// Lexicographic comparison: "9" > "10" as strings. This is the
	// documented open question (spec.md §9), not a bug in this test.
	got := repo.Get("foo")
	require.NotNil(t, got)
	assert.Equal(t, "9", got.Version)
}

func TestRepositoryLoadSkipsMalformedAndUsesEmptyOnMissingDir(t *testing.T) {
	ctx := context.Background()

	repo := NewRepository()
	require.NoError(t, repo.Load(ctx, filepath.Join(t.TempDir(), "does-not-exist")))
	assert.Empty(t, repo.ListPackages())

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.json"), []byte(`{"name":"good","source_type":"local","source_url":"."}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`not json`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.json"), []byte(`{"name":"hidden","source_type":"local","source_url":"."}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte(`irrelevant`), 0o644))

	repo = NewRepository()
	require.NoError(t, repo.Load(ctx, dir))
	assert.Equal(t, []string{"good"}, repo.ListPackages())
}

func TestRepositoryLoadSaveReloadRoundTrips(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "make.json"), []byte(`{
		"name": "make",
		"version": "4.4",
		"source_type": "tarball",
		"source_url": "https://example.invalid/make-4.4.tar.gz",
		"dependencies": ["gcc"],
		"configure_args": ["--without-guile"],
		"env": {"CFLAGS": "-O2"}
	}`), 0o644))

	original := NewRepository()
	require.NoError(t, original.Load(ctx, dir))

	saveDir := t.TempDir()
	require.NoError(t, original.Save(saveDir))

	reloaded := NewRepository()
	require.NoError(t, reloaded.Load(ctx, saveDir))

	assert.ElementsMatch(t, original.ListPackages(), reloaded.ListPackages())

	want := original.Get("make")
	got := reloaded.Get("make")
	require.NotNil(t, got)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Version, got.Version)
	assert.Equal(t, want.Dependencies, got.Dependencies)
	assert.Equal(t, want.ConfigureArgs, got.ConfigureArgs)
	assert.Equal(t, want.EnvMap(), got.EnvMap())
}
