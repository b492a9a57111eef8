// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package domain holds the week cache and the merge of cached weeks into one sorted table.
package domain

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hpc-reporting/sacct-mempercore/app/normalize"
	"github.com/hpc-reporting/sacct-mempercore/app/types"
	ptypes "github.com/hpc-reporting/sacct-mempercore/pkg/types"
	"github.com/hpc-reporting/sacct-mempercore/pkg/utils"
)

// Results of a week cache lookup, used as metric label.
const (
	ResultHit    = "hit"
	ResultMiss   = "miss"
	ResultForced = "forced"
)

// Fetcher returns the raw accounting output of a window, or nil when there is none.
type Fetcher interface {
	Fetch(ctx context.Context, window types.WeekWindow) []byte
}

// RawArchive keeps the raw output of a fetched week.
type RawArchive interface {
	Write(ctx context.Context, key types.WeekKey, raw []byte) error
}

// WeekCache returns the normalized table of a week window, from the store when the week was seen
// before and from the accounting command otherwise.
type WeekCache struct {
	store   types.WeekStore
	fetcher Fetcher
	archive RawArchive
	loc     *time.Location
	clock   ptypes.TimeProvider
}

type WeekCacheOpt = func(c *WeekCache)

// WithRawArchive keeps the raw output of every fetch.
func WithRawArchive(archive RawArchive) WeekCacheOpt {
	return func(c *WeekCache) {
		c.archive = archive
	}
}

// WithLocation sets the zone accounting timestamps are read in.
func WithLocation(loc *time.Location) WeekCacheOpt {
	return func(c *WeekCache) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(clock ptypes.TimeProvider) WeekCacheOpt {
	return func(c *WeekCache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func NewWeekCache(store types.WeekStore, fetcher Fetcher, opts ...WeekCacheOpt) *WeekCache {
	c := &WeekCache{
		store:   store,
		fetcher: fetcher,
		loc:     time.Local,
		clock:   &utils.Clock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the table for window. Unless force is set a cached week is returned as is and the
// accounting command is not run. Otherwise the week is fetched, normalized and written to the cache,
// replacing any previous entry. A failed fetch yields an empty table and leaves the cache untouched.
// Only cache I/O errors are returned.
func (c *WeekCache) Get(ctx context.Context, window types.WeekWindow, force bool) (types.Table, error) {
	key := window.Key()
	logger := log.Ctx(ctx).With().Str("week", key.String()).Stringer("window", window).Logger()

	if !force && c.store.Exists(key) {
		weekCacheRequestTotal.WithLabelValues(ResultHit).Inc()
		logger.Info().Msg("reading week from cache")
		table, err := c.store.Read(ctx, key)
		if err != nil {
			logger.Error().Err(err).Str("code", types.ErrorCode(err)).Msg("failed to read cached week")
			return nil, err
		}
		c.checkWindow(ctx, key, window)
		return table, nil
	}

	result := ResultMiss
	if force {
		result = ResultForced
	}
	weekCacheRequestTotal.WithLabelValues(result).Inc()

	if now := c.clock.GetCurrentTime(); window.End.After(now) {
		logger.Warn().Time("now", now).Msg("window extends into the future, the cached week will be incomplete")
	}

	logger.Info().Str("result", result).Msg("fetching week from the accounting database")
	raw := c.fetcher.Fetch(ctx, window)
	if raw == nil {
		weekCacheUncachedTotal.WithLabelValues(types.ErrFetchFailure.Code()).Inc()
		logger.Warn().Msg("no accounting output, week not cached")
		return types.Table{}, nil
	}

	if c.archive != nil {
		if err := c.archive.Write(ctx, key, raw); err != nil {
			logger.Error().Err(err).Msg("failed to archive accounting output")
			return nil, err
		}
	}

	records, err := normalize.Parse(ctx, raw, c.loc)
	if err != nil {
		weekCacheUncachedTotal.WithLabelValues(types.ErrorCode(err)).Inc()
		logger.Error().Err(err).Str("code", types.ErrorCode(err)).Msg("unusable accounting output, week not cached")
		return types.Table{}, nil
	}
	table := normalize.Normalize(ctx, records)

	if err := c.store.Write(ctx, key, window, table); err != nil {
		logger.Error().Err(err).Str("code", types.ErrorCode(err)).Msg("failed to cache week")
		return nil, err
	}
	return table, nil
}

// checkWindow warns when the cached entry for key was fetched for a window that does not cover
// window. This happens when an ISO week straddles the end of the requested period, for example
// the last days of a year cached under the same key as the first days of the next.
func (c *WeekCache) checkWindow(ctx context.Context, key types.WeekKey, window types.WeekWindow) {
	logger := log.Ctx(ctx).With().Str("week", key.String()).Stringer("window", window).Logger()

	stored, err := c.store.Window(ctx, key)
	if err != nil {
		logger.Debug().Err(err).Msg("cached week has no usable window")
		return
	}
	if !stored.Covers(window.DateRange) {
		weekCacheWindowMismatchTotal.WithLabelValues().Inc()
		logger.Warn().
			Stringer("cached_window", stored).
			Msg("cached week does not cover the requested window, use --force to fetch it again")
	}
}
