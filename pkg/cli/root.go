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

// Package cli wires the out-of-core command surface (argument parsing,
// flags, default presenter/logger construction) around the orchestrate
// package. Argument parsing itself is an external collaborator per
// spec.md §1's non-goals; this package is ambient glue, not core logic.
package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// ErrUsage marks an error as an invalid-arguments failure at the CLI
// boundary rather than a pipeline failure, so main can map it to exit
// code 2 instead of 1 (spec.md §6 "Exit codes").
var ErrUsage = errors.New("invalid arguments")

// requireExactArgs is cobra.ExactArgs wrapped so a mismatch is
// classified as ErrUsage rather than an opaque cobra error.
func requireExactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return errors.Wrap(ErrUsage, err.Error())
		}
		return nil
	}
}

// New returns the root tsi command with install/remove/list wired in.
func New() *cobra.Command {
	root := &cobra.Command{
		Use:           "tsi",
		Short:         "tsi builds and installs packages from source",
		Long:          `tsi resolves, fetches, builds and installs packages from source recipes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("prefix", "", "install prefix (overrides TSI_PREFIX / auto-detection)")
	root.PersistentFlags().String("repo-dir", "./recipes", "directory of recipe (.json) files")
	root.PersistentFlags().String("cache-dir", "./tsi-cache", "directory used to cache fetched sources")
	root.PersistentFlags().Bool("trace", false, "emit an OpenTelemetry trace to stdout")

	root.AddCommand(installCmd())
	root.AddCommand(removeCmd())
	root.AddCommand(listCmd())
	root.AddCommand(schemaCmd())

	return root
}
