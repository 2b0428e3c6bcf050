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

package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PanterSoft/tsi/pkg/config"
	"github.com/PanterSoft/tsi/pkg/presenter"
)

func TestCustomDriverBuildWithEmptyCommandsSucceedsWithoutInvokingAnything(t *testing.T) {
	rc := RunContext{
		Pkg:        &config.Package{Name: "noop", BuildSystem: config.BuildSystemCustom},
		SourceDir:  t.TempDir(),
		InstallDir: t.TempDir(),
		Env:        map[string]string{},
		Presenter:  presenter.Discard,
	}
	require.NoError(t, customDriver{}.Build(context.Background(), rc))
}

func TestCustomDriverBuildSubstitutesInstallDirAndCapturesOutput(t *testing.T) {
	installDir := t.TempDir()
	sourceDir := t.TempDir()

	var lines []string
	rc := RunContext{
		Pkg: &config.Package{
			Name:        "widget",
			BuildSystem: config.BuildSystemCustom,
			BuildCommands: []string{
				"mkdir -p $TSI_INSTALL_DIR/bin",
				"echo hello > $TSI_INSTALL_DIR/bin/marker",
				"echo building",
			},
		},
		SourceDir:  sourceDir,
		InstallDir: installDir,
		Env:        map[string]string{},
		Presenter:  presenter.Func(func(line string) { lines = append(lines, line) }),
	}

	require.NoError(t, customDriver{}.Build(context.Background(), rc))

	data, err := os.ReadFile(filepath.Join(installDir, "bin", "marker"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
	assert.Contains(t, lines, "building")
}

func TestCustomDriverBuildFailureWrapsErrBuildStepFailed(t *testing.T) {
	rc := RunContext{
		Pkg: &config.Package{
			Name:          "broken",
			BuildSystem:   config.BuildSystemCustom,
			BuildCommands: []string{"exit 7"},
		},
		SourceDir:  t.TempDir(),
		InstallDir: t.TempDir(),
		Env:        map[string]string{},
		Presenter:  presenter.Discard,
	}

	err := customDriver{}.Build(context.Background(), rc)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBuildStepFailed)
}

func TestCustomDriverInstallCopiesKnownSubdirsBestEffort(t *testing.T) {
	sourceDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(sourceDir, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "bin", "tool"), []byte("#!/bin/sh\n"), 0o755))

	installDir := t.TempDir()
	rc := RunContext{
		Pkg:        &config.Package{Name: "widget", BuildSystem: config.BuildSystemCustom},
		SourceDir:  sourceDir,
		InstallDir: installDir,
		Presenter:  presenter.Discard,
	}

	require.NoError(t, customDriver{}.Install(context.Background(), rc))

	data, err := os.ReadFile(filepath.Join(installDir, "bin", "tool"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n", string(data))
}

func TestCustomDriverInstallToleratesMissingSubdirs(t *testing.T) {
	rc := RunContext{
		Pkg:        &config.Package{Name: "widget", BuildSystem: config.BuildSystemCustom},
		SourceDir:  t.TempDir(),
		InstallDir: t.TempDir(),
		Presenter:  presenter.Discard,
	}
	assert.NoError(t, customDriver{}.Install(context.Background(), rc))
}
