// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package common holds what the sub commands share: the wiring of the pipeline from the settings
// and the flags selecting a date range.
package common

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/hpc-reporting/sacct-mempercore/app/config"
	"github.com/hpc-reporting/sacct-mempercore/app/domain"
	"github.com/hpc-reporting/sacct-mempercore/app/instr"
	"github.com/hpc-reporting/sacct-mempercore/app/normalize"
	"github.com/hpc-reporting/sacct-mempercore/app/publish"
	"github.com/hpc-reporting/sacct-mempercore/app/sacct"
	"github.com/hpc-reporting/sacct-mempercore/app/store"
	"github.com/hpc-reporting/sacct-mempercore/app/types"
	ptypes "github.com/hpc-reporting/sacct-mempercore/pkg/types"
)

// Env is built once per invocation, before the selected command runs.
type Env struct {
	Settings *config.Settings
	Store    *store.ParquetStore
	Archive  *store.RawArchive
	Cache    *domain.WeekCache
	Loader   *domain.Loader
	Metrics  *instr.PrometheusMetrics
	Clock    ptypes.TimeProvider
	Stdout   io.Writer
}

// Init wires the pipeline described by settings. The runner executes the accounting command.
func (e *Env) Init(settings *config.Settings, runner types.CommandRunner, clock ptypes.TimeProvider) error {
	metrics, err := instr.NewPrometheusMetrics(
		instr.WithPromMetrics(sacct.MetricCollectors()...),
		instr.WithPromMetrics(normalize.MetricCollectors()...),
		instr.WithPromMetrics(store.MetricCollectors()...),
		instr.WithPromMetrics(domain.MetricCollectors()...),
		instr.WithPromMetrics(publish.MetricCollectors()...),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create metrics")
	}

	weekStore, err := store.NewParquetStore(settings.Cache)
	if err != nil {
		return errors.Wrap(err, "failed to open the cache")
	}

	fetcher := sacct.NewFetcher(runner,
		sacct.WithBinary(settings.Sacct.Binary),
		sacct.WithExtraArgs(settings.Sacct.ExtraArgs...),
	)

	archive := store.NewRawArchive(settings.Cache.Directory, settings.Cache.CompressionLevel)
	opts := []domain.WeekCacheOpt{
		domain.WithLocation(settings.Sacct.Location()),
		domain.WithClock(clock),
	}
	if settings.Cache.KeepRaw {
		opts = append(opts, domain.WithRawArchive(archive))
	}
	cache := domain.NewWeekCache(weekStore, fetcher, opts...)

	e.Settings = settings
	e.Store = weekStore
	e.Archive = archive
	e.Cache = cache
	e.Loader = domain.NewLoader(cache, settings.Sacct.Location())
	e.Metrics = metrics
	e.Clock = clock
	if e.Stdout == nil {
		e.Stdout = os.Stdout
	}
	return nil
}

// WriteMetrics exports the counters of this run, if a textfile is configured.
func (e *Env) WriteMetrics() error {
	if e.Metrics == nil || e.Settings == nil {
		return nil
	}
	return e.Metrics.WriteTextfile(e.Settings.Metrics.Textfile)
}
