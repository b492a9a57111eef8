// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package domain

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hpc-reporting/sacct-mempercore/app/instr"
	"github.com/hpc-reporting/sacct-mempercore/app/partition"
	"github.com/hpc-reporting/sacct-mempercore/app/types"
)

// Loader reads a date range week by week through the cache and merges the result.
type Loader struct {
	cache *WeekCache
	loc   *time.Location
}

func NewLoader(cache *WeekCache, loc *time.Location) *Loader {
	if loc == nil {
		loc = time.Local
	}
	return &Loader{cache: cache, loc: loc}
}

// ReadRange parses the ISO-8601 bounds and reads them. Invalid bounds are logged and give an empty table.
func (l *Loader) ReadRange(ctx context.Context, startISO, endISO string, force bool) (types.MergedTable, error) {
	r, err := partition.ParseRange(startISO, endISO, l.loc)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).
			Str("start", startISO).
			Str("end", endISO).
			Msg("not a valid input range")
		return types.MergedTable{Records: types.Table{}}, nil
	}
	return l.Read(ctx, r, force)
}

// Read fetches or loads every week window of r in order and merges them. The period of the
// result is the length of r.
func (l *Loader) Read(ctx context.Context, r types.DateRange, force bool) (types.MergedTable, error) {
	windows := partition.Weeks(ctx, r)
	log.Ctx(ctx).Info().
		Time("start", r.Start).
		Time("end", r.End).
		Int("windows", len(windows)).
		Msg("reading accounting data")

	tables := make([]types.Table, 0, len(windows))
	for _, window := range windows {
		if err := ctx.Err(); err != nil {
			return types.MergedTable{}, err
		}

		err := instr.RunSpan(ctx, "week_cache_get", func(ctx context.Context, _ *instr.Span) error {
			table, err := l.cache.Get(ctx, window, force)
			if err != nil {
				return err
			}
			tables = append(tables, table)
			return nil
		})
		if err != nil {
			return types.MergedTable{}, err
		}
	}

	log.Ctx(ctx).Info().Int("weeks", len(tables)).Msg("merging weeks")
	return Merge(ctx, tables, r.Duration()), nil
}
