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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToStrictIsolationFalse(t *testing.T) {
	cfg, err := Parse(DefaultContents())
	require.NoError(t, err)
	assert.False(t, cfg.StrictIsolation)
}

func TestParseHandlesSemicolonAndHashComments(t *testing.T) {
	data := []byte("; this is a semicolon comment\n# this is a hash comment\nstrict_isolation=true\n")
	cfg, err := Parse(data)
	require.NoError(t, err)
	assert.True(t, cfg.StrictIsolation)
}

func TestParseBooleanVariants(t *testing.T) {
	for _, v := range []string{"true", "1", "yes", "TRUE", "Yes"} {
		cfg, err := Parse([]byte("strict_isolation=" + v + "\n"))
		require.NoError(t, err)
		assert.True(t, cfg.StrictIsolation, "value %q should parse truthy", v)
	}
	for _, v := range []string{"false", "0", "no"} {
		cfg, err := Parse([]byte("strict_isolation=" + v + "\n"))
		require.NoError(t, err)
		assert.False(t, cfg.StrictIsolation, "value %q should parse falsy", v)
	}
}

func TestLoadCreatesDefaultFileWhenAbsent(t *testing.T) {
	prefix := t.TempDir()
	cfg := Load(context.Background(), prefix)
	assert.False(t, cfg.StrictIsolation)

	data, err := os.ReadFile(Path(prefix))
	require.NoError(t, err)
	assert.Equal(t, DefaultContents(), data)
}

func TestLoadNeverOverwritesExistingFile(t *testing.T) {
	prefix := t.TempDir()
	require.NoError(t, os.MkdirAll(prefix, 0o755))
	custom := []byte("strict_isolation=true\n")
	require.NoError(t, os.WriteFile(filepath.Join(prefix, "tsi.cfg"), custom, 0o644))

	cfg := Load(context.Background(), prefix)
	assert.True(t, cfg.StrictIsolation)

	data, err := os.ReadFile(Path(prefix))
	require.NoError(t, err)
	assert.Equal(t, custom, data)
}
