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

package buildenv

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PanterSoft/tsi/pkg/config"
)

func noCompilerOnPath(string) (string, error) {
	return "", errors.New("not found")
}

func compilerAt(dir string) func(string) (string, error) {
	return func(name string) (string, error) {
		if name == "gcc" {
			return filepath.Join(dir, "gcc"), nil
		}
		return "", errors.New("not found")
	}
}

func TestSynthesizeBootstrapPackagePath(t *testing.T) {
	prefix := t.TempDir()
	s := &Synthesizer{StrictIsolation: false, LookPath: compilerAt("/usr/bin")}
	pkg := &config.Package{Name: "gcc"}

	env := s.Synthesize(filepath.Join(prefix, "install"), pkg, Build)
	assert.Equal(t, filepath.Join(prefix, "install", "bin")+":/usr/bin:/bin", env["PATH"])
}

func TestSynthesizeStrictIsolationPathAndShell(t *testing.T) {
	prefix := t.TempDir()
	install := filepath.Join(prefix, "install")
	require.NoError(t, os.MkdirAll(filepath.Join(install, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(install, "bin", "bash"), []byte("#!/bin/sh\n"), 0o755))

	s := &Synthesizer{StrictIsolation: true, LookPath: noCompilerOnPath}
	pkg := &config.Package{Name: "make"}

	env := s.Synthesize(install, pkg, Build)
	assert.Equal(t, filepath.Join(install, "bin"), env["PATH"])
	assert.Equal(t, filepath.Join(install, "bin", "bash"), env["SHELL"])
}

func TestSynthesizeStrictIsolationWithoutSelfInstalledBash(t *testing.T) {
	install := filepath.Join(t.TempDir(), "install")
	s := &Synthesizer{StrictIsolation: true, LookPath: noCompilerOnPath}
	pkg := &config.Package{Name: "make"}

	env := s.Synthesize(install, pkg, Build)
	assert.Equal(t, filepath.Join(install, "bin")+":/bin", env["PATH"])
	assert.NotContains(t, env, "SHELL")
}

func TestSynthesizeBuildVsInstallFlags(t *testing.T) {
	install := filepath.Join(t.TempDir(), "install")
	s := &Synthesizer{StrictIsolation: false, LookPath: noCompilerOnPath}
	pkg := &config.Package{Name: "zlib"}

	build := s.Synthesize(install, pkg, Build)
	assert.Contains(t, build["CPPFLAGS"], filepath.Join(install, "include"))
	assert.Contains(t, build["LDFLAGS"], filepath.Join(install, "lib"))

	installEnv := s.Synthesize(install, pkg, Install)
	assert.NotContains(t, installEnv, "CPPFLAGS")
	assert.NotContains(t, installEnv, "LDFLAGS")
}

func TestSynthesizeMainInstallDirTruncatesAfterInstallSegment(t *testing.T) {
	s := &Synthesizer{StrictIsolation: false, LookPath: noCompilerOnPath}
	pkg := &config.Package{Name: "zlib"}

	env := s.Synthesize("/opt/tsi/install/pkgs/zlib-1.3", pkg, Build)
	assert.Equal(t, "/opt/tsi/install/lib/pkgconfig", env["PKG_CONFIG_PATH"])
}

func TestSynthesizePackageEnvOverridesApplyLast(t *testing.T) {
	install := filepath.Join(t.TempDir(), "install")
	s := &Synthesizer{StrictIsolation: false, LookPath: noCompilerOnPath}
	pkg := &config.Package{
		Name: "zlib",
		Env:  []config.EnvEntry{{Name: "PKG_CONFIG_PATH", Value: "/custom/pkgconfig"}},
	}

	env := s.Synthesize(install, pkg, Build)
	assert.Equal(t, "/custom/pkgconfig", env["PKG_CONFIG_PATH"])
}

func TestIsBootstrapPackage(t *testing.T) {
	assert.True(t, IsBootstrapPackage("gcc"))
	assert.True(t, IsBootstrapPackage("make"))
	assert.False(t, IsBootstrapPackage("zlib"))
}
