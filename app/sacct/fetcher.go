// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package sacct runs the Slurm accounting command for one week window and returns its raw output.
package sacct

import (
	"context"
	"strconv"

	"github.com/go-obvious/timestamp"
	"github.com/rs/zerolog/log"

	"github.com/hpc-reporting/sacct-mempercore/app/partition"
	"github.com/hpc-reporting/sacct-mempercore/app/types"
)

const (
	// DefaultBinary is looked up on PATH.
	DefaultBinary = "sacct"

	// Format selects the columns the normalizer expects, wide enough that nothing is truncated.
	Format = "JobID%20,Start%20,User%20,Account%20,CPUTimeRAW,MaxRSS%20,AllocCPUS%20"
)

// Fetcher requests accounting records for a window. Windows spanning more than a week are refused
// so a single query never asks the accounting database for too much at once.
type Fetcher struct {
	runner    types.CommandRunner
	binary    string
	extraArgs []string
}

type FetcherOpt = func(f *Fetcher)

// WithBinary overrides the accounting command.
func WithBinary(binary string) FetcherOpt {
	return func(f *Fetcher) {
		if binary != "" {
			f.binary = binary
		}
	}
}

// WithExtraArgs appends arguments such as `--clusters` to every invocation.
func WithExtraArgs(args ...string) FetcherOpt {
	return func(f *Fetcher) {
		f.extraArgs = append(f.extraArgs, args...)
	}
}

// NewFetcher creates a fetcher. A nil runner runs the command locally.
func NewFetcher(runner types.CommandRunner, opts ...FetcherOpt) *Fetcher {
	if runner == nil {
		runner = ExecRunner{}
	}
	f := &Fetcher{
		runner: runner,
		binary: DefaultBinary,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Args builds the command line for window, without the binary.
func (f *Fetcher) Args(window types.WeekWindow) []string {
	args := []string{
		"--allusers",
		"--format=" + Format,
		"--parsable2",
		"--starttime", window.Start.Format(types.SacctTimeFormat),
		"--endtime", window.End.Format(types.SacctTimeFormat),
	}
	return append(args, f.extraArgs...)
}

// Fetch runs the accounting command for window and returns its stdout. It returns nil when the
// window is refused, the command fails or nothing was printed; the reason is logged.
func (f *Fetcher) Fetch(ctx context.Context, window types.WeekWindow) []byte {
	logger := log.Ctx(ctx).With().
		Str("start", window.Start.Format(types.SacctTimeFormat)).
		Str("end", window.End.Format(types.SacctTimeFormat)).
		Logger()

	days := window.SpanDays()
	if days > partition.MaxWindowDays {
		sacctRefusedTotal.WithLabelValues(types.ErrRangeTooLarge.Code()).Inc()
		logger.Error().Err(types.ErrRangeTooLarge).Int("days", days).Msg("refusing accounting request")
		return nil
	}
	if days <= 0 {
		sacctRefusedTotal.WithLabelValues(types.ErrInvalidRange.Code()).Inc()
		logger.Warn().Err(types.ErrInvalidRange).Int("days", days).Msg("no data range specified")
		return nil
	}

	args := f.Args(window)
	sacctInvocationTotal.WithLabelValues().Inc()

	startedAt := timestamp.Milli()
	stdout, stderr, err := f.runner.Run(ctx, f.binary, args...)
	elapsed := timestamp.Milli() - startedAt

	code := exitCode(err)
	logger.Debug().
		Str("binary", f.binary).
		Strs("args", args).
		Int("exit_code", code).
		Int64("elapsed_ms", elapsed).
		Int("stdout_bytes", len(stdout)).
		Bytes("stderr", stderr).
		Msg("accounting command finished")

	if err != nil || len(stdout) == 0 {
		sacctFailureTotal.WithLabelValues(strconv.Itoa(code)).Inc()
		logger.Error().
			Err(types.ErrFetchFailure).
			AnErr("cause", err).
			Int("exit_code", code).
			Bytes("stderr", stderr).
			Msg("accounting command failed")
		return nil
	}

	sacctOutputBytesTotal.WithLabelValues().Add(float64(len(stdout)))
	return stdout
}
