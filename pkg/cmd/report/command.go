// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package report renders the memory-per-core charts and summary of a period.
package report

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/hpc-reporting/sacct-mempercore/app/report"
	"github.com/hpc-reporting/sacct-mempercore/pkg/cmd/common"
)

const (
	flagPrefix = "prefix"
	flagOutput = "output"
	flagFormat = "format"
)

func NewCommand(env *common.Env) *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "plot the cumulative core-hours over memory per core, overall and per account",
		Flags: append(common.RangeFlags(),
			&cli.StringFlag{Name: flagPrefix, Aliases: []string{"p"}, Usage: "prefix of the chart files, defaults to the period"},
			&cli.StringFlag{Name: flagOutput, Aliases: []string{"o"}, Usage: "directory of the chart files, overrides the configuration"},
		),
		Action: func(c *cli.Context) error {
			period, err := env.ResolvePeriod(c)
			if err != nil {
				return err
			}
			merged, err := env.Load(c, period)
			if err != nil {
				return err
			}

			settings := env.Settings.Report
			if c.IsSet(flagOutput) {
				settings.OutputDirectory = c.String(flagOutput)
			}
			prefix := period.Name
			if c.IsSet(flagPrefix) {
				prefix = c.String(flagPrefix)
			}

			files, err := report.NewRenderer(settings).RenderRange(c.Context, prefix, merged)
			if err != nil {
				return err
			}
			for _, file := range files {
				fmt.Fprintln(env.Stdout, file)
			}
			log.Ctx(c.Context).Info().
				Int("charts", len(files)).
				Int("records", len(merged.Records)).
				Int("duplicates", merged.Duplicates).
				Msg("report written")
			return nil
		},
	}
}

func NewSummaryCommand(env *common.Env) *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "print per account core-hours below the reference memory per core lines",
		Flags: append(common.RangeFlags(),
			&cli.StringFlag{
				Name:  flagFormat,
				Usage: fmt.Sprintf("output format, %s or %s", report.FormatTable, report.FormatCSV),
				Value: report.FormatTable,
			},
		),
		Action: func(c *cli.Context) error {
			period, err := env.ResolvePeriod(c)
			if err != nil {
				return err
			}
			merged, err := env.Load(c, period)
			if err != nil {
				return err
			}
			return report.WriteSummary(env.Stdout, report.Summarize(merged.Records), c.String(flagFormat))
		},
	}
}
