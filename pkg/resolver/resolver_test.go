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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PanterSoft/tsi/pkg/config"
)

func repoWith(t *testing.T, pkgs ...config.Package) *config.Repository {
	t.Helper()
	repo := config.NewRepository()
	for _, p := range pkgs {
		require.True(t, repo.Add(p), "add %s", p.Name)
	}
	return repo
}

func TestResolveTrivialChain(t *testing.T) {
	repo := repoWith(t,
		config.Package{Name: "a", Dependencies: []string{"b"}, Source: config.Source{Type: config.SourceLocal, URL: "."}},
		config.Package{Name: "b", Dependencies: []string{"c"}, Source: config.Source{Type: config.SourceLocal, URL: "."}},
		config.Package{Name: "c", Source: config.Source{Type: config.SourceLocal, URL: "."}},
	)

	got, err := New(repo).Resolve("a", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, got)

	ordered, err := New(repo).BuildOrder([]string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ordered)
}

func TestResolveVersionPinnedDependency(t *testing.T) {
	repo := repoWith(t,
		config.Package{Name: "x", Version: "1.0", Dependencies: []string{"y@2"}, Source: config.Source{Type: config.SourceLocal, URL: "."}},
		config.Package{Name: "y", Version: "2", Source: config.Source{Type: config.SourceLocal, URL: "."}},
	)

	got, err := New(repo).Resolve("x", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "x"}, got)

	got, err = New(repo).Resolve("x@1.0", []string{"y@2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, got)
}

func TestResolveCircularDependency(t *testing.T) {
	repo := repoWith(t,
		config.Package{Name: "p", Dependencies: []string{"q"}, Source: config.Source{Type: config.SourceLocal, URL: "."}},
		config.Package{Name: "q", Dependencies: []string{"p"}, Source: config.Source{Type: config.SourceLocal, URL: "."}},
	)

	_, err := New(repo).Resolve("p", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircularDependency)
}

func TestResolveSelfReferenceIgnored(t *testing.T) {
	repo := repoWith(t,
		config.Package{Name: "r", Dependencies: []string{"r"}, Source: config.Source{Type: config.SourceLocal, URL: "."}},
	)

	got, err := New(repo).Resolve("r", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"r"}, got)
}

func TestResolveUnknownPackage(t *testing.T) {
	repo := config.NewRepository()
	_, err := New(repo).Resolve("nope", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownPackage)
}

func TestResolveAlreadyInstalledReturnsEmpty(t *testing.T) {
	repo := repoWith(t,
		config.Package{Name: "a", Source: config.Source{Type: config.SourceLocal, URL: "."}},
	)

	got, err := New(repo).Resolve("a", []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolveNamesAppearAtMostOnce(t *testing.T) {
	// diamond: a depends on b and c, both depend on d.
	repo := repoWith(t,
		config.Package{Name: "a", Dependencies: []string{"b", "c"}, Source: config.Source{Type: config.SourceLocal, URL: "."}},
		config.Package{Name: "b", Dependencies: []string{"d"}, Source: config.Source{Type: config.SourceLocal, URL: "."}},
		config.Package{Name: "c", Dependencies: []string{"d"}, Source: config.Source{Type: config.SourceLocal, URL: "."}},
		config.Package{Name: "d", Source: config.Source{Type: config.SourceLocal, URL: "."}},
	)

	got, err := New(repo).Resolve("a", nil)
	require.NoError(t, err)

	seen := map[string]int{}
	for _, n := range got {
		seen[n]++
	}
	for name, count := range seen {
		assert.Equal(t, 1, count, "name %s appeared %d times", name, count)
	}
	assert.Equal(t, "a", got[len(got)-1])
}

func TestBuildOrderIsPermutationAndDetectsCycles(t *testing.T) {
	repo := repoWith(t,
		config.Package{Name: "p", Dependencies: []string{"q"}, Source: config.Source{Type: config.SourceLocal, URL: "."}},
		config.Package{Name: "q", Dependencies: []string{"p"}, Source: config.Source{Type: config.SourceLocal, URL: "."}},
	)

	_, err := New(repo).BuildOrder([]string{"p", "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircularDependency)
}

func TestParseSpec(t *testing.T) {
	name, version := ParseSpec("foo@1.2.3")
	assert.Equal(t, "foo", name)
	assert.Equal(t, "1.2.3", version)

	name, version = ParseSpec("bar")
	assert.Equal(t, "bar", name)
	assert.Equal(t, "", version)
}
