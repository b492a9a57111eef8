// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package domain_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpc-reporting/sacct-mempercore/app/config"
	"github.com/hpc-reporting/sacct-mempercore/app/domain"
	"github.com/hpc-reporting/sacct-mempercore/app/store"
	"github.com/hpc-reporting/sacct-mempercore/app/types"
)

func newLoader(t *testing.T, fetcher domain.Fetcher) (*domain.Loader, *store.ParquetStore) {
	t.Helper()
	s, err := store.NewParquetStore(config.Cache{Directory: filepath.Join(t.TempDir(), "cache")})
	require.NoError(t, err)
	cache := domain.NewWeekCache(s, fetcher, domain.WithClock(pastClock), domain.WithLocation(time.UTC))
	return domain.NewLoader(cache, time.UTC), s
}

func TestUnit_Loader_ReadRangeUsesCache(t *testing.T) {
	ctx := context.Background()
	// the same job is reported in every week, as a long running job would be
	fetcher := &fakeFetcher{output: sacctWeek("17031184", "8G", "1G")}
	loader, s := newLoader(t, fetcher)

	merged, err := loader.ReadRange(ctx, "2026-01-01", "2026-01-31", false)
	require.NoError(t, err)

	// 2026-01-01 is a Thursday: Jan 1-4, then four Monday-Sunday weeks up to Feb 1 clipped to Jan 31
	assert.Equal(t, 5, fetcher.calls())
	assert.Equal(t, 30*24*time.Hour, merged.Period)
	assert.Equal(t, []string{"17031184.1", "17031184.0"}, merged.Records.JobIDs())
	assert.Equal(t, 8, merged.Duplicates)

	keys, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []types.WeekKey{
		{Year: 2026, Week: 1}, {Year: 2026, Week: 2}, {Year: 2026, Week: 3}, {Year: 2026, Week: 4}, {Year: 2026, Week: 5},
	}, keys)

	// second read is served from the cache
	again, err := loader.ReadRange(ctx, "2026-01-01", "2026-01-31", false)
	require.NoError(t, err)
	assert.Equal(t, 5, fetcher.calls())
	assert.Equal(t, merged.Records, again.Records)

	// force goes back to the accounting database
	_, err = loader.ReadRange(ctx, "2026-01-01", "2026-01-31", true)
	require.NoError(t, err)
	assert.Equal(t, 10, fetcher.calls())
}

func TestUnit_Loader_InvalidAndEmptyRanges(t *testing.T) {
	ctx := context.Background()
	fetcher := &fakeFetcher{output: sacctWeek("1", "1G")}
	loader, _ := newLoader(t, fetcher)

	merged, err := loader.ReadRange(ctx, "not-a-date", "2026-01-31", false)
	require.NoError(t, err)
	assert.Empty(t, merged.Records)

	merged, err = loader.ReadRange(ctx, "2026-01-31", "2026-01-01", false)
	require.NoError(t, err)
	assert.Empty(t, merged.Records)
	assert.Zero(t, fetcher.calls())
}

func TestUnit_Loader_StopsOnCancel(t *testing.T) {
	fetcher := &fakeFetcher{output: sacctWeek("1", "1G")}
	loader, _ := newLoader(t, fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := loader.ReadRange(ctx, "2026-01-01", "2026-01-31", false)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fetcher.calls())
}
