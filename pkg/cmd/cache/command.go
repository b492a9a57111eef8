// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package cache inspects and maintains the week cache directory.
package cache

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/hpc-reporting/sacct-mempercore/app/lock"
	"github.com/hpc-reporting/sacct-mempercore/app/publish"
	"github.com/hpc-reporting/sacct-mempercore/app/store"
	"github.com/hpc-reporting/sacct-mempercore/app/types"
	"github.com/hpc-reporting/sacct-mempercore/pkg/cmd/common"
)

const flagBefore = "before"

func NewCommand(env *common.Env) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "inspect and maintain the week cache",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "list the cached weeks",
				Action: func(c *cli.Context) error { return list(c, env) },
			},
			{
				Name:      "show",
				Usage:     "print the records of a cached week as JSON",
				ArgsUsage: "YEAR-WEEK",
				Action: func(c *cli.Context) error {
					key, err := keyArg(c)
					if err != nil {
						return err
					}
					table, err := env.Store.Read(c.Context, key)
					if err != nil {
						return err
					}
					return store.WriteJSON(env.Stdout, table)
				},
			},
			{
				Name:      "raw",
				Usage:     "print the archived accounting output of a week",
				ArgsUsage: "YEAR-WEEK",
				Action: func(c *cli.Context) error {
					key, err := keyArg(c)
					if err != nil {
						return err
					}
					raw, err := env.Archive.Read(key)
					if err != nil {
						return err
					}
					_, err = env.Stdout.Write(raw)
					return err
				},
			},
			{
				Name:  "prune",
				Usage: "remove the weeks before the given one",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagBefore, Usage: "first week to keep, as YEAR-WEEK", Required: true},
				},
				Action: func(c *cli.Context) error { return prune(c, env) },
			},
			{
				Name:   "push",
				Usage:  "upload the cached weeks to the configured object store",
				Action: func(c *cli.Context) error { return push(c, env) },
			},
		},
	}
}

func keyArg(c *cli.Context) (types.WeekKey, error) {
	if c.NArg() != 1 {
		return types.WeekKey{}, fmt.Errorf("expected one YEAR-WEEK argument, got %d", c.NArg())
	}
	return types.ParseWeekKey(c.Args().First())
}

func list(c *cli.Context, env *common.Env) error {
	keys, err := env.Store.List()
	if err != nil {
		return err
	}
	for _, key := range keys {
		table, err := env.Store.Read(c.Context, key)
		if err != nil {
			log.Ctx(c.Context).Warn().Err(err).Str("week", key.String()).Msg("unreadable cache file")
			continue
		}
		raw := ""
		if env.Archive.Exists(key) {
			raw = "raw"
		}
		fmt.Fprintf(env.Stdout, "%-8s %8s job steps %12s core-hours %s\n",
			key, humanize.Comma(int64(len(table))), humanize.CommafWithDigits(table.TotalCoreHours(), 1), raw)
	}
	return nil
}

func prune(c *cli.Context, env *common.Env) error {
	before, err := types.ParseWeekKey(c.String(flagBefore))
	if err != nil {
		return err
	}

	removed := 0
	err = lock.LockDir(c.Context, env.Store.Dir(), func() error {
		keys, err := env.Store.List()
		if err != nil {
			return err
		}
		for _, key := range keys {
			if !key.Before(before) {
				continue
			}
			if err := errors.Join(env.Store.Remove(key), env.Archive.Remove(key)); err != nil {
				return err
			}
			removed++
			log.Ctx(c.Context).Debug().Str("week", key.String()).Msg("removed cached week")
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Stdout, "removed %d weeks\n", removed)
	return nil
}

func push(c *cli.Context, env *common.Env) error {
	if !env.Settings.Remote.Enabled() {
		return publish.ErrDisabled
	}
	publisher, err := publish.NewPublisher(env.Settings.Remote)
	if err != nil {
		return err
	}

	keys, err := env.Store.List()
	if err != nil {
		return err
	}
	files := make([]string, 0, len(keys))
	for _, key := range keys {
		files = append(files, env.Store.Path(key))
	}

	pushed, err := publisher.Push(c.Context, files)
	fmt.Fprintf(env.Stdout, "uploaded %d of %d weeks\n", pushed, len(files))
	return err
}
