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

// Command tsi is a thin cobra entrypoint over the core resolve/fetch/
// build/install pipeline.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"

	"github.com/PanterSoft/tsi/pkg/cli"
)

func main() {
	logger := clog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx := clog.WithLogger(context.Background(), logger)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := cli.New()
	root.SetContext(ctx)

	if err := root.Execute(); err != nil {
		clog.FromContext(ctx).Errorf("tsi: %v", err)
		if errors.Is(err, cli.ErrUsage) {
			os.Exit(2) // invalid arguments at the CLI boundary, spec.md §6
		}
		os.Exit(1) // any failure inside the pipeline
	}
}
