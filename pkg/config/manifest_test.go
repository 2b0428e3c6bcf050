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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifestSingleVersion(t *testing.T) {
	data := []byte(`{
		"name": "make",
		"version": "4.4",
		"source_type": "tarball",
		"source_url": "https://example.invalid/make-4.4.tar.gz",
		"dependencies": ["gcc", null, "binutils"],
		"env": {"CFLAGS": "-O2"}
	}`)

	pkgs, err := ParseManifest(data)
	require.NoError(t, err)
	require.Len(t, pkgs, 1)

	p := pkgs[0]
	assert.Equal(t, "make", p.Name)
	assert.Equal(t, "4.4", p.Version)
	assert.Equal(t, []string{"gcc", "binutils"}, p.Dependencies)
	assert.Equal(t, "-O2", p.EnvMap()["CFLAGS"])
}

func TestParseManifestMissingNameIsMalformed(t *testing.T) {
	_, err := ParseManifest([]byte(`{"source_type": "local", "source_url": "."}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedManifest)
}

func TestParseManifestOversizeIsMalformed(t *testing.T) {
	huge := make([]byte, MaxManifestSize+1)
	_, err := ParseManifest(huge)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedManifest)
}

func TestParseManifestMultiVersionSkipsBadEntries(t *testing.T) {
	data := []byte(`{
		"name": "gcc",
		"versions": [
			{"version": "12", "source_type": "local", "source_url": "."},
			{"version": "13", "source_type": "bogus-type"},
			{"version": "14", "source_type": "local", "source_url": "."}
		]
	}`)

	pkgs, err := ParseManifest(data)
	require.NoError(t, err)
	require.Len(t, pkgs, 2)
	assert.Equal(t, "gcc", pkgs[0].Name)
	assert.Equal(t, "12", pkgs[0].Version)
	assert.Equal(t, "14", pkgs[1].Version)
}

func TestParseManifestMultiVersionRequiresTopLevelName(t *testing.T) {
	data := []byte(`{"versions": [{"version": "1", "source_type": "local", "source_url": "."}]}`)
	_, err := ParseManifest(data)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedManifest)
}

func TestParseManifestRejectsArrayFieldTypedAsString(t *testing.T) {
	data := []byte(`{
		"name": "make",
		"source_type": "local",
		"source_url": ".",
		"dependencies": "gcc"
	}`)
	_, err := ParseManifest(data)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedManifest)
}
