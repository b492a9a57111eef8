// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package domain_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/hpc-reporting/sacct-mempercore/app/domain"
	"github.com/hpc-reporting/sacct-mempercore/app/types"
	"github.com/hpc-reporting/sacct-mempercore/app/types/mocks"
	clockmocks "github.com/hpc-reporting/sacct-mempercore/pkg/types/mocks"
)

var pastClock = clockmocks.NewMockClock(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))

func TestUnit_WeekCache_HitNeverFetches(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockWeekStore(ctrl)
	fetcher := &fakeFetcher{output: sacctWeek("1", "1G")}

	window := utcWindow(2026, time.January, 12, 7)
	cached := types.Table{{JobID: "99.0", MaxRSS: "1G", MemoryBytes: 1e9, AllocCPUs: 1, MemPerCoreGB: 1}}

	store.EXPECT().Exists(types.WeekKey{Year: 2026, Week: 3}).Return(true)
	store.EXPECT().Read(gomock.Any(), types.WeekKey{Year: 2026, Week: 3}).Return(cached, nil)
	store.EXPECT().Window(gomock.Any(), types.WeekKey{Year: 2026, Week: 3}).Return(window, nil)

	cache := domain.NewWeekCache(store, fetcher, domain.WithClock(pastClock))
	table, err := cache.Get(context.Background(), window, false)
	require.NoError(t, err)
	assert.Equal(t, cached, table)
	assert.Zero(t, fetcher.calls())
}

func TestUnit_WeekCache_MissFetchesAndWrites(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockWeekStore(ctrl)
	fetcher := &fakeFetcher{output: sacctWeek("17031184", "4G", "2G")}

	window := utcWindow(2026, time.January, 12, 7)
	key := window.Key()

	var written types.Table
	store.EXPECT().Exists(key).Return(false)
	store.EXPECT().Write(gomock.Any(), key, window, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ types.WeekKey, _ types.WeekWindow, table types.Table) error {
			written = table
			return nil
		})

	cache := domain.NewWeekCache(store, fetcher, domain.WithClock(pastClock), domain.WithLocation(time.UTC))
	table, err := cache.Get(context.Background(), window, false)
	require.NoError(t, err)

	// the allocation row has no MaxRSS and is not cached
	assert.Equal(t, []string{"17031184.0", "17031184.1"}, table.JobIDs())
	assert.Equal(t, table, written)
	assert.InDelta(t, 2.0, table[0].MemPerCoreGB, 1e-12)
	assert.Equal(t, []types.WeekWindow{window}, fetcher.windows)
}

func TestUnit_WeekCache_ForceRefetches(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockWeekStore(ctrl)
	fetcher := &fakeFetcher{output: sacctWeek("5", "1G")}

	window := utcWindow(2026, time.January, 12, 7)

	// Exists is not consulted when forced
	store.EXPECT().Write(gomock.Any(), window.Key(), window, gomock.Any()).Return(nil).Times(2)

	cache := domain.NewWeekCache(store, fetcher, domain.WithClock(pastClock))
	for i := 0; i < 2; i++ {
		table, err := cache.Get(context.Background(), window, true)
		require.NoError(t, err)
		assert.Len(t, table, 1)
	}
	assert.Equal(t, 2, fetcher.calls())
}

func TestUnit_WeekCache_FailedFetchIsNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockWeekStore(ctrl)
	fetcher := &fakeFetcher{}

	window := utcWindow(2026, time.January, 12, 7)
	store.EXPECT().Exists(window.Key()).Return(false)

	cache := domain.NewWeekCache(store, fetcher, domain.WithClock(pastClock))
	table, err := cache.Get(context.Background(), window, false)
	require.NoError(t, err)
	assert.NotNil(t, table)
	assert.Empty(t, table)
}

func TestUnit_WeekCache_MalformedOutputIsNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockWeekStore(ctrl)
	fetcher := &fakeFetcher{output: func(types.WeekWindow) []byte { return []byte("JobID|MaxRSS\n1|1K\n") }}

	window := utcWindow(2026, time.January, 12, 7)
	store.EXPECT().Exists(window.Key()).Return(false)

	table, err := domain.NewWeekCache(store, fetcher, domain.WithClock(pastClock)).Get(context.Background(), window, false)
	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestUnit_WeekCache_HeaderOnlyIsCachedEmpty(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockWeekStore(ctrl)
	fetcher := &fakeFetcher{output: func(types.WeekWindow) []byte { return []byte(header) }}

	window := utcWindow(2026, time.January, 12, 7)
	store.EXPECT().Exists(window.Key()).Return(false)
	store.EXPECT().Write(gomock.Any(), window.Key(), window, types.Table{}).Return(nil)

	table, err := domain.NewWeekCache(store, fetcher, domain.WithClock(pastClock)).Get(context.Background(), window, false)
	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestUnit_WeekCache_StoreErrorsAreReturned(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockWeekStore(ctrl)
	fetcher := &fakeFetcher{output: sacctWeek("5", "1G")}
	window := utcWindow(2026, time.January, 12, 7)

	store.EXPECT().Exists(window.Key()).Return(true)
	store.EXPECT().Read(gomock.Any(), window.Key()).Return(nil, errors.Join(types.ErrCacheRead, errors.New("corrupt")))

	cache := domain.NewWeekCache(store, fetcher, domain.WithClock(pastClock))
	_, err := cache.Get(context.Background(), window, false)
	require.ErrorIs(t, err, types.ErrCacheRead)

	store.EXPECT().Write(gomock.Any(), window.Key(), window, gomock.Any()).Return(types.ErrCacheWrite)
	_, err = cache.Get(context.Background(), window, true)
	require.ErrorIs(t, err, types.ErrCacheWrite)
}

func TestUnit_WeekCache_WarnsWhenCachedWindowDiffers(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockWeekStore(ctrl)
	fetcher := &fakeFetcher{output: sacctWeek("1", "1G")}

	// 2026-12-28..31 and 2027-01-01..03 are both ISO week 2026-53
	december := utcWindow(2026, time.December, 28, 4)
	january := utcWindow(2027, time.January, 1, 3)
	require.Equal(t, december.Key(), january.Key())

	cached := types.Table{{JobID: "99.0", MaxRSS: "1G", MemoryBytes: 1e9, AllocCPUs: 1, MemPerCoreGB: 1}}
	store.EXPECT().Exists(january.Key()).Return(true).Times(2)
	store.EXPECT().Read(gomock.Any(), january.Key()).Return(cached, nil).Times(2)
	store.EXPECT().Window(gomock.Any(), january.Key()).Return(december, nil)
	store.EXPECT().Window(gomock.Any(), january.Key()).Return(types.WeekWindow{}, types.ErrCacheRead)

	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())
	cache := domain.NewWeekCache(store, fetcher, domain.WithClock(pastClock))

	table, err := cache.Get(ctx, january, false)
	require.NoError(t, err)
	assert.Equal(t, cached, table, "the cached entry is still returned")
	assert.Zero(t, fetcher.calls())
	assert.Contains(t, buf.String(), "cached week does not cover the requested window")
	assert.Contains(t, buf.String(), `"level":"warn"`)

	// a file without window metadata is served without a warning
	buf.Reset()
	_, err = cache.Get(ctx, january, false)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "does not cover")
}

func TestUnit_WeekCache_NoWarningWhenCachedWindowCovers(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockWeekStore(ctrl)
	window := utcWindow(2026, time.January, 14, 2)

	store.EXPECT().Exists(window.Key()).Return(true)
	store.EXPECT().Read(gomock.Any(), window.Key()).Return(types.Table{}, nil)
	store.EXPECT().Window(gomock.Any(), window.Key()).Return(utcWindow(2026, time.January, 12, 7), nil)

	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())
	_, err := domain.NewWeekCache(store, &fakeFetcher{}, domain.WithClock(pastClock)).Get(ctx, window, false)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "does not cover")
}

type memoryArchive map[types.WeekKey][]byte

func (m memoryArchive) Write(_ context.Context, key types.WeekKey, raw []byte) error {
	m[key] = raw
	return nil
}

func TestUnit_WeekCache_RawArchive(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockWeekStore(ctrl)
	fetcher := &fakeFetcher{output: sacctWeek("5", "1G")}
	window := utcWindow(2026, time.January, 12, 7)

	store.EXPECT().Exists(window.Key()).Return(false)
	store.EXPECT().Write(gomock.Any(), window.Key(), window, gomock.Any()).Return(nil)

	archive := memoryArchive{}
	cache := domain.NewWeekCache(store, fetcher, domain.WithClock(pastClock), domain.WithRawArchive(archive))
	_, err := cache.Get(context.Background(), window, false)
	require.NoError(t, err)
	assert.Equal(t, sacctWeek("5", "1G")(window), archive[window.Key()])
}
