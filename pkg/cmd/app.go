// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package cmd assembles the command line application.
package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/hpc-reporting/sacct-mempercore/app/build"
	"github.com/hpc-reporting/sacct-mempercore/app/config"
	"github.com/hpc-reporting/sacct-mempercore/app/logging"
	"github.com/hpc-reporting/sacct-mempercore/app/types"
	cachecmd "github.com/hpc-reporting/sacct-mempercore/pkg/cmd/cache"
	"github.com/hpc-reporting/sacct-mempercore/pkg/cmd/common"
	fetchcmd "github.com/hpc-reporting/sacct-mempercore/pkg/cmd/fetch"
	reportcmd "github.com/hpc-reporting/sacct-mempercore/pkg/cmd/report"
	ptypes "github.com/hpc-reporting/sacct-mempercore/pkg/types"
)

const (
	flagConfig      = "config"
	flagLogLevel    = "log-level"
	flagMetricsFile = "metrics-file"
	flagCacheDir    = "cache-dir"
)

// NewApp returns the application. The runner executes sacct and command output is written to stdout.
func NewApp(runner types.CommandRunner, clock ptypes.TimeProvider, stdout io.Writer) *cli.App {
	env := &common.Env{Stdout: stdout}

	app := &cli.App{
		Name:                 build.AppName,
		Version:              fmt.Sprintf("%s/%s-%s", build.GetVersion(), runtime.GOOS, runtime.GOARCH),
		Compiled:             time.Now(),
		Copyright:            build.Copyright,
		Usage:                build.Usage,
		EnableBashCompletion: true,
		Writer:               stdout,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "configuration file, may be repeated; later files override earlier ones",
				EnvVars: []string{"MEMPERCORE_CONFIG"},
			},
			&cli.StringFlag{Name: flagLogLevel, Aliases: []string{"l"}, Usage: "override the configured log level"},
			&cli.StringFlag{Name: flagMetricsFile, Usage: "override the configured metrics textfile"},
			&cli.StringFlag{Name: flagCacheDir, Usage: "override the configured cache directory"},
		},
		Before: func(c *cli.Context) error {
			settings, err := config.NewSettings(c.StringSlice(flagConfig)...)
			if err != nil {
				return err
			}
			if c.IsSet(flagLogLevel) {
				settings.Logging.Level = c.String(flagLogLevel)
			}
			if c.IsSet(flagMetricsFile) {
				settings.Metrics.Textfile = c.String(flagMetricsFile)
			}
			if c.IsSet(flagCacheDir) {
				settings.Cache.Directory = filepath.Clean(c.String(flagCacheDir))
			}

			if _, err := logging.NewLogger(
				logging.WithLevel(settings.Logging.Level),
				logging.WithConsole(settings.Logging.Console),
			); err != nil {
				return errors.Wrap(err, "failed to create logger")
			}
			c.Context = logging.BindDefaultLoggerToContext(c.Context)

			return env.Init(settings, runner, clock)
		},
		After: func(_ *cli.Context) error {
			return env.WriteMetrics()
		},
	}

	app.Commands = append(app.Commands,
		fetchcmd.NewCommand(env),
		reportcmd.NewCommand(env),
		reportcmd.NewSummaryCommand(env),
		cachecmd.NewCommand(env),
	)
	return app
}
