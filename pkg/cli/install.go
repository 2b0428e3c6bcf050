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

package cli

import (
	"fmt"
	"os"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/PanterSoft/tsi/pkg/config"
	"github.com/PanterSoft/tsi/pkg/orchestrate"
	"github.com/PanterSoft/tsi/pkg/presenter"
	"github.com/PanterSoft/tsi/pkg/tsicfg"
)

func installCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "install",
		Short:   "Resolve, fetch, build and install a package",
		Example: `  tsi install make@4.4`,
		Args:    requireExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := clog.FromContext(ctx)

			o, err := newOrchestrator(cmd)
			if err != nil {
				return err
			}

			result, err := o.Install(ctx, args[0])
			if err != nil {
				log.Errorf("install %s: stage %s: %v", args[0], result.Stage, err)
				return err
			}

			fmt.Printf("installed: %v\n", result.Installed)
			return nil
		},
	}
	return cmd
}

// newOrchestrator builds an Orchestrator from the root command's
// persistent flags, wiring a console presenter, the tsi.cfg
// strict-isolation policy, and (when --trace is set) a stdouttrace
// exporter. No logger is wired here: the orchestrator logs through the
// clog logger carried in the command's context. This matches the teacher's
// `pkg/cli/build.go` trace-flag pattern.
func newOrchestrator(cmd *cobra.Command) (*orchestrate.Orchestrator, error) {
	prefix := resolvePrefix(cmd)

	repoDir, _ := cmd.Flags().GetString("repo-dir")
	cacheDir, _ := cmd.Flags().GetString("cache-dir")
	trace, _ := cmd.Flags().GetBool("trace")

	repo := config.NewRepository()
	if err := repo.Load(cmd.Context(), repoDir); err != nil {
		return nil, fmt.Errorf("loading repository %s: %w", repoDir, err)
	}

	cfg := tsicfg.Load(cmd.Context(), prefix)

	opts := []orchestrate.Option{
		WithConsolePresenter(),
	}
	if trace {
		exporter, err := stdouttrace.New()
		if err != nil {
			return nil, fmt.Errorf("creating stdout trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		otel.SetTracerProvider(tp)
		opts = append(opts, orchestrate.WithTracer(tp.Tracer("tsi")))
	}

	return orchestrate.New(repo, prefix, cacheDir, cfg.StrictIsolation, opts...), nil
}

// WithConsolePresenter wires a Presenter that writes each build/install
// line to stdout, the simplest possible default presenter wiring
// demonstration referenced by SPEC_FULL's Ambient Stack "CLI glue".
func WithConsolePresenter() orchestrate.Option {
	return orchestrate.WithPresenter(presenter.Func(func(line string) {
		fmt.Println(line)
	}))
}

// resolvePrefix returns the --prefix flag when it is set, else the
// TSI_PREFIX environment variable (spec.md §6), else "/opt/tsi".
func resolvePrefix(cmd *cobra.Command) string {
	prefix, _ := cmd.Flags().GetString("prefix")
	if prefix == "" {
		prefix = os.Getenv("TSI_PREFIX")
	}
	if prefix == "" {
		prefix = "/opt/tsi"
	}
	return prefix
}
