// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package fetch fills the week cache without rendering anything.
package fetch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/hpc-reporting/sacct-mempercore/app/instr"
	"github.com/hpc-reporting/sacct-mempercore/app/types"
	"github.com/hpc-reporting/sacct-mempercore/pkg/cmd/common"
)

func NewCommand(env *common.Env) *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "query the accounting database one week at a time and cache the result",
		Flags: common.RangeFlags(),
		Action: func(c *cli.Context) error {
			period, err := env.ResolvePeriod(c)
			if err != nil {
				return err
			}
			return Run(c, env, period)
		},
	}
}

// Run loads every week of period into the cache and prints one line per week.
func Run(c *cli.Context, env *common.Env, period common.Period) error {
	ctx := c.Context
	force := c.Bool(common.FlagForce)

	windows := env.Weeks(c, period)
	if len(windows) == 0 {
		log.Ctx(ctx).Warn().Str("period", period.Name).Msg("nothing to fetch")
		return nil
	}

	total := 0
	for _, window := range windows {
		if err := ctx.Err(); err != nil {
			return err
		}
		var table types.Table
		err := instr.RunSpan(ctx, "fetch_week", func(ctx context.Context, _ *instr.Span) error {
			var err error
			table, err = env.Cache.Get(ctx, window, force)
			return err
		})
		if err != nil {
			return err
		}
		total += len(table)
		fmt.Fprintf(env.Stdout, "%-8s %s  %d\n", window.Key(), window, len(table))
	}
	log.Ctx(ctx).Info().
		Int("weeks", len(windows)).
		Int("records", total).
		Msg("cache filled")
	return nil
}
