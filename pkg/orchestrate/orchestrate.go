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

// Package orchestrate wires the Resolver, Source Fetcher, Environment
// Synthesizer, Build Driver and Installed-Package Database into the
// end-to-end, single-threaded pipeline of spec.md §4.6 "State machine
// (per package install)" and §5 "Concurrency & resource model".
package orchestrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/PanterSoft/tsi/internal/log"
	"github.com/PanterSoft/tsi/pkg/build"
	"github.com/PanterSoft/tsi/pkg/buildenv"
	"github.com/PanterSoft/tsi/pkg/config"
	"github.com/PanterSoft/tsi/pkg/db"
	"github.com/PanterSoft/tsi/pkg/fetch"
	"github.com/PanterSoft/tsi/pkg/presenter"
	"github.com/PanterSoft/tsi/pkg/resolver"
)

// State is a stage of the per-package state machine (spec.md §4.6).
type State int

const (
	StateFetch State = iota
	StateBuild
	StateInstall
	StateRecord
	StateDone
	StateFail
)

func (s State) String() string {
	switch s {
	case StateFetch:
		return "FETCH"
	case StateBuild:
		return "BUILD"
	case StateInstall:
		return "INSTALL"
	case StateRecord:
		return "RECORD"
	case StateDone:
		return "DONE"
	case StateFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTracer installs an OpenTelemetry tracer used to wrap each
// pipeline stage in a span. The default is otel's global no-op tracer,
// so omitting this option costs nothing (spec.md's §1 Ambient Stack
// "Tracing" note).
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithPresenter sets the Presenter every build/install step streams
// output through. Defaults to presenter.Discard.
func WithPresenter(p presenter.Presenter) Option {
	return func(o *Orchestrator) { o.presenter = p }
}

// Orchestrator drives the fetch→build→install→record pipeline for a
// single target package and its dependency closure, strictly serially
// (spec.md §5: "single-threaded and sequential... No parallelism
// across packages").
type Orchestrator struct {
	Repo            *config.Repository
	Prefix          string
	CacheRoot       string
	StrictIsolation bool
	IsTTY           bool

	tracer    trace.Tracer
	presenter presenter.Presenter
}

// New constructs an Orchestrator rooted at prefix, using cacheRoot for
// fetched sources.
func New(repo *config.Repository, prefix, cacheRoot string, strictIsolation bool, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		Repo:            repo,
		Prefix:          prefix,
		CacheRoot:       cacheRoot,
		StrictIsolation: strictIsolation,
		tracer:          otel.Tracer("github.com/PanterSoft/tsi/pkg/orchestrate"),
		presenter:       presenter.Discard,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Result reports the terminal state and, on failure, which stage and
// package it occurred at.
type Result struct {
	Installed []string
	State     State
	Package   string
	Stage     State
	Err       error
}

// Install resolves targetSpec's dependency closure against the
// currently installed set, computes a build order, and processes each
// package through FETCH→BUILD→INSTALL→RECORD in turn, aborting the
// remaining packages on the first failure (spec.md §4.6, no automatic
// rollback).
func (o *Orchestrator) Install(ctx context.Context, targetSpec string) (Result, error) {
	logger := log.FromContext(ctx)

	lock, err := db.Lock(o.Prefix)
	if err != nil {
		return Result{State: StateFail, Err: err}, errors.Wrap(err, "orchestrate: acquiring prefix lock")
	}
	defer lock.Unlock()

	installedDB := db.New(o.Prefix)
	if err := installedDB.Load(ctx); err != nil {
		return Result{State: StateFail, Err: err}, errors.Wrap(err, "orchestrate: loading installed database")
	}

	installedNames := make([]string, 0, len(installedDB.List()))
	for _, row := range installedDB.List() {
		installedNames = append(installedNames, row.Name)
	}

	res := resolver.New(o.Repo)
	closure, err := res.Resolve(targetSpec, installedNames)
	if err != nil {
		return Result{State: StateFail, Err: err}, errors.Wrapf(err, "orchestrate: resolving %s", targetSpec)
	}

	order, err := res.BuildOrder(closure)
	if err != nil {
		return Result{State: StateFail, Err: err}, errors.Wrapf(err, "orchestrate: ordering build for %s", targetSpec)
	}

	synth := buildenv.New(o.StrictIsolation)
	fetcher := fetch.New(o.CacheRoot, filepath.Join(o.Prefix, "bin"), o.IsTTY)

	for _, name := range order {
		pkg := o.Repo.Get(name)
		if pkg == nil {
			err := errors.Wrapf(resolver.ErrUnknownPackage, "%s", name)
			return Result{Installed: order, State: StateFail, Package: name, Err: err}, err
		}

		stage, err := o.installOne(ctx, logger, synth, fetcher, installedDB, pkg)
		if err != nil {
			o.writeFailureLog(ctx, pkg, stage, err)
			return Result{Installed: order, State: StateFail, Package: name, Stage: stage, Err: err}, err
		}
	}

	return Result{Installed: order, State: StateDone}, nil
}

func (o *Orchestrator) installOne(ctx context.Context, logger log.Logger, synth *buildenv.Synthesizer, fetcher *fetch.Fetcher, installedDB *db.DB, pkg *config.Package) (State, error) {
	ctx, span := o.tracer.Start(ctx, "install_package", trace.WithAttributes(
		attribute.String("package.name", pkg.Name),
		attribute.String("package.version", pkg.EffectiveVersion()),
	))
	defer span.End()

	logger.Info("installing package", "name", pkg.Name, "version", pkg.EffectiveVersion())

	sourceDir, err := o.fetchStage(ctx, fetcher, pkg)
	if err != nil {
		return StateFetch, err
	}

	installDir := filepath.Join(o.Prefix, "install", pkg.Name, pkg.EffectiveVersion())
	buildDir := filepath.Join(o.CacheRoot, "build", pkg.Name)

	if err := o.buildStage(ctx, synth, pkg, sourceDir, buildDir, installDir); err != nil {
		return StateBuild, err
	}

	if err := o.installStage(ctx, synth, pkg, sourceDir, buildDir, installDir); err != nil {
		return StateInstall, err
	}

	o.recordStage(installedDB, pkg, installDir)
	if err := installedDB.Save(); err != nil {
		return StateRecord, err
	}

	logger.Info("package installed", "name", pkg.Name, "install_dir", installDir)
	return StateDone, nil
}

func (o *Orchestrator) fetchStage(ctx context.Context, fetcher *fetch.Fetcher, pkg *config.Package) (string, error) {
	_, span := o.tracer.Start(ctx, "fetch")
	defer span.End()
	return fetcher.Fetch(ctx, pkg, false)
}

func (o *Orchestrator) buildStage(ctx context.Context, synth *buildenv.Synthesizer, pkg *config.Package, sourceDir, buildDir, installDir string) error {
	_, span := o.tracer.Start(ctx, "build")
	defer span.End()

	env := synth.Synthesize(installDir, pkg, buildenv.Build)

	if err := build.ApplyPatches(ctx, pkg, sourceDir, env, o.presenter); err != nil {
		return err
	}

	driver, err := build.NewDriver(pkg)
	if err != nil {
		return err
	}

	return driver.Build(ctx, build.RunContext{
		Pkg:        pkg,
		SourceDir:  sourceDir,
		BuildDir:   buildDir,
		InstallDir: installDir,
		Env:        env,
		Presenter:  o.presenter,
	})
}

func (o *Orchestrator) installStage(ctx context.Context, synth *buildenv.Synthesizer, pkg *config.Package, sourceDir, buildDir, installDir string) error {
	_, span := o.tracer.Start(ctx, "install")
	defer span.End()

	env := synth.Synthesize(installDir, pkg, buildenv.Install)

	driver, err := build.NewDriver(pkg)
	if err != nil {
		return err
	}

	return driver.Install(ctx, build.RunContext{
		Pkg:        pkg,
		SourceDir:  sourceDir,
		BuildDir:   buildDir,
		InstallDir: installDir,
		Env:        env,
		Presenter:  o.presenter,
	})
}

func (o *Orchestrator) recordStage(installedDB *db.DB, pkg *config.Package, installDir string) {
	deps := append([]string{}, pkg.Dependencies...)
	installedDB.Add(db.Row{
		Name:         pkg.Name,
		Version:      pkg.EffectiveVersion(),
		InstallPath:  installDir,
		InstalledAt:  installedAt(),
		Dependencies: deps,
	})
}

// Remove uninstalls name: best-effort removal of its recorded install
// path followed by dropping its database row. This is the underlying
// operation behind a `remove` CLI subcommand, whose argument parsing is
// out of the core's scope but whose behavior the Installed-Package
// Database already models (spec.md §4.7 "remove(name)").
func (o *Orchestrator) Remove(ctx context.Context, name string) error {
	logger := log.FromContext(ctx)

	lock, err := db.Lock(o.Prefix)
	if err != nil {
		return errors.Wrap(err, "orchestrate: acquiring prefix lock")
	}
	defer lock.Unlock()

	installedDB := db.New(o.Prefix)
	if err := installedDB.Load(ctx); err != nil {
		return errors.Wrap(err, "orchestrate: loading installed database")
	}

	row := installedDB.Get(name)
	if row == nil {
		return errors.Errorf("orchestrate: %s is not installed", name)
	}

	if err := os.RemoveAll(row.InstallPath); err != nil {
		logger.Warning("remove: best-effort cleanup of install path failed", "name", name, "path", row.InstallPath, "err", err)
	}

	installedDB.Remove(name)
	logger.Info("package removed", "name", name)
	return installedDB.Save()
}

// writeFailureLog writes the retained output tail and stage metadata to
// a per-package log file under the prefix, an ambient diagnostic
// convenience (not a new core behavior) described in SPEC_FULL's
// supplemented features.
func (o *Orchestrator) writeFailureLog(ctx context.Context, pkg *config.Package, stage State, cause error) {
	logger := log.FromContext(ctx)

	dir := filepath.Join(o.Prefix, "var", "log", "tsi")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warning("failed to create build log directory", "dir", dir, "err", err)
		return
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%d.log", pkg.Name, installedAt()))
	content := fmt.Sprintf("package: %s\nversion: %s\nstage: %s\nerror: %v\n", pkg.Name, pkg.EffectiveVersion(), stage, cause)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		logger.Warning("failed to write build log", "path", path, "err", err)
		return
	}

	logger.Error("package install failed", "name", pkg.Name, "stage", stage.String(), "log", path, "err", cause)
}

func installedAt() int64 {
	return time.Now().Unix()
}
