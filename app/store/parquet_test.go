// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpc-reporting/sacct-mempercore/app/config"
	"github.com/hpc-reporting/sacct-mempercore/app/store"
	"github.com/hpc-reporting/sacct-mempercore/app/types"
)

func ptr[T any](v T) *T { return &v }

func newStore(t *testing.T) *store.ParquetStore {
	t.Helper()
	s, err := store.NewParquetStore(config.Cache{Directory: filepath.Join(t.TempDir(), "cache")})
	require.NoError(t, err)
	return s
}

func week3() (types.WeekKey, types.WeekWindow) {
	window := types.NewWeekWindow(
		time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 18, 23, 59, 59, 0, time.UTC),
	)
	return window.Key(), window
}

func sampleTable() types.Table {
	start := time.Date(2026, 1, 12, 9, 30, 0, 0, time.UTC).UnixMicro()
	return types.Table{
		{
			JobID:        "17031931.batch",
			Start:        ptr(start),
			Account:      ptr("nn9999k"),
			User:         ptr("bob"),
			CPUTimeRaw:   ptr[int64](7200),
			CoreHours:    ptr(2.0),
			MaxRSS:       "46908K",
			MemoryBytes:  46_908_000,
			AllocCPUs:    1,
			MemPerCoreGB: 0.046908,
		},
		{
			// job steps have no account or user
			JobID:        "17031931.0",
			Start:        ptr(start),
			CPUTimeRaw:   ptr[int64](28800),
			CoreHours:    ptr(8.0),
			MaxRSS:       "40052K",
			MemoryBytes:  40_052_000,
			AllocCPUs:    4,
			MemPerCoreGB: 0.010013,
		},
		{
			JobID:        "17032495.0",
			Account:      ptr(""),
			MaxRSS:       "1381848K",
			MemoryBytes:  1_381_848_000,
			AllocCPUs:    4,
			MemPerCoreGB: 0.345462,
		},
	}
}

func TestUnit_Store_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	key, window := week3()
	require.Equal(t, types.WeekKey{Year: 2026, Week: 3}, key)

	assert.False(t, s.Exists(key))
	require.NoError(t, s.Write(ctx, key, window, sampleTable()))
	assert.True(t, s.Exists(key))
	assert.Equal(t, filepath.Join(s.Dir(), "2026-3.parquet"), s.Path(key))

	got, err := s.Read(ctx, key)
	require.NoError(t, err)
	if diff := cmp.Diff(sampleTable(), got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	// rows must not share pointer columns
	got[0].Account = ptr("changed")
	assert.Nil(t, got[1].Account)
	assert.Equal(t, "", *got[2].Account)

	// nothing but the week file is left behind
	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2026-3.parquet", entries[0].Name())
}

func TestUnit_Store_EmptyTable(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	key, window := week3()

	require.NoError(t, s.Write(ctx, key, window, types.Table{}))
	assert.True(t, s.Exists(key))

	got, err := s.Read(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUnit_Store_Overwrite(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	key, window := week3()

	require.NoError(t, s.Write(ctx, key, window, sampleTable()))
	require.NoError(t, s.Write(ctx, key, window, sampleTable()[:1]))

	got, err := s.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{"17031931.batch"}, got.JobIDs())
}

func TestUnit_Store_ReadErrors(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	key, _ := week3()

	_, err := s.Read(ctx, key)
	require.ErrorIs(t, err, types.ErrCacheRead)

	require.NoError(t, os.WriteFile(s.Path(key), []byte("not parquet"), 0o600))
	_, err = s.Read(ctx, key)
	require.ErrorIs(t, err, types.ErrCacheRead)
	assert.Equal(t, "err-cache-read", types.ErrorCode(err))
}

func TestUnit_Store_ListAndRemove(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	keys := []types.WeekKey{{Year: 2026, Week: 3}, {Year: 2025, Week: 52}, {Year: 2026, Week: 10}, {Year: 2026, Week: 1}}
	for _, key := range keys {
		_, window := week3()
		require.NoError(t, s.Write(ctx, key, window, types.Table{}))
	}
	// unrelated files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.parquet"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "2026-4.sacct.br"), nil, 0o600))

	listed, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []types.WeekKey{
		{Year: 2025, Week: 52},
		{Year: 2026, Week: 1},
		{Year: 2026, Week: 3},
		{Year: 2026, Week: 10},
	}, listed)

	require.NoError(t, s.Remove(types.WeekKey{Year: 2026, Week: 1}))
	require.NoError(t, s.Remove(types.WeekKey{Year: 2030, Week: 1}), "removing a missing week is not an error")

	listed, err = s.List()
	require.NoError(t, err)
	assert.Len(t, listed, 3)
	assert.False(t, s.Exists(types.WeekKey{Year: 2026, Week: 1}))
}

func TestUnit_Store_WriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, store.WriteJSON(&buf, sampleTable()))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 3)
	assert.Equal(t, "17031931.batch", decoded[0]["job_id"])
	assert.Equal(t, "nn9999k", decoded[0]["account"])
	assert.Nil(t, decoded[1]["account"])
	assert.InDelta(t, 0.345462, decoded[2]["mem_per_core_gb"], 1e-12)

	buf.Reset()
	require.NoError(t, store.WriteJSON(&buf, nil))
	assert.Equal(t, "[]", buf.String())
}

func TestUnit_Store_Window(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	december := types.NewWeekWindow(
		time.Date(2026, 12, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC),
	)
	january := types.NewWeekWindow(
		time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2027, 1, 3, 23, 59, 59, 0, time.UTC),
	)
	key := december.Key()
	require.Equal(t, key, january.Key())

	_, err := s.Window(ctx, key)
	require.ErrorIs(t, err, types.ErrCacheRead)

	require.NoError(t, s.Write(ctx, key, december, sampleTable()))

	stored, err := s.Window(ctx, key)
	require.NoError(t, err)
	assert.True(t, stored.Start.Equal(december.Start))
	assert.True(t, stored.End.Equal(december.End))
	assert.True(t, stored.Covers(december.DateRange))
	assert.False(t, stored.Covers(january.DateRange))
}
