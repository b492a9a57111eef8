// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package store keeps normalized accounting tables on disk, one parquet file per ISO week.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/brotli"
	"github.com/rs/zerolog/log"

	"github.com/hpc-reporting/sacct-mempercore/app/build"
	"github.com/hpc-reporting/sacct-mempercore/app/config"
	"github.com/hpc-reporting/sacct-mempercore/app/lock"
	"github.com/hpc-reporting/sacct-mempercore/app/types"
)

const (
	directoryMode = 0o755
	fileExtension = ".parquet"
)

// Keys of the parquet footer metadata written with every week.
const (
	MetaWeek        = "week"
	MetaWindowStart = "window_start"
	MetaWindowEnd   = "window_end"
	MetaRows        = "rows"
	MetaVersion     = "version"
)

// ParquetStore writes each week to `{dir}/{year}-{week}.parquet`.
type ParquetStore struct {
	dirPath          string
	compressionLevel int
}

// ensure ParquetStore implements WeekStore
var _ types.WeekStore = (*ParquetStore)(nil)

// NewParquetStore initializes a ParquetStore, creating the cache directory if needed.
func NewParquetStore(settings config.Cache) (*ParquetStore, error) {
	if settings.Directory == "" {
		settings.Directory = config.DefaultCacheDirectory
	}
	if settings.CompressionLevel <= 0 {
		settings.CompressionLevel = config.DefaultCompressionLevel
	}
	if err := os.MkdirAll(settings.Directory, directoryMode); err != nil {
		return nil, errors.Join(types.ErrCacheWrite, fmt.Errorf("failed to create directory: %w", err))
	}
	return &ParquetStore{
		dirPath:          settings.Directory,
		compressionLevel: settings.CompressionLevel,
	}, nil
}

// Dir returns the cache directory.
func (p *ParquetStore) Dir() string {
	return p.dirPath
}

// Path returns the file holding key.
func (p *ParquetStore) Path(key types.WeekKey) string {
	return filepath.Join(p.dirPath, key.String()+fileExtension)
}

func (p *ParquetStore) Exists(key types.WeekKey) bool {
	info, err := os.Stat(p.Path(key))
	return err == nil && info.Mode().IsRegular()
}

// Write replaces the file for key with table. Rows are written to a temporary file that is renamed
// over the previous entry, holding a lock on the entry for the duration.
func (p *ParquetStore) Write(ctx context.Context, key types.WeekKey, window types.WeekWindow, table types.Table) error {
	path := p.Path(key)
	err := lock.LockFile(ctx, path, func() error {
		return p.writeFile(path, key, window, table)
	})
	cacheFileWriteTotal.WithLabelValues(strconv.FormatBool(err != nil)).Inc()
	if err != nil {
		return errors.Join(types.ErrCacheWrite, err)
	}

	log.Ctx(ctx).Debug().
		Str("file", path).
		Int("rows", len(table)).
		Msg("wrote week to cache")
	return nil
}

func (p *ParquetStore) writeFile(path string, key types.WeekKey, window types.WeekWindow, table types.Table) error {
	// a fresh name per write, so a crashed writer never leaves a file that looks complete
	tmpPath := filepath.Join(p.dirPath, "."+uuid.NewString()+fileExtension+".tmp")

	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary parquet file: %w", err)
	}
	cleanup := func() {
		_ = file.Close()
		_ = os.Remove(tmpPath)
	}

	writer := parquet.NewGenericWriter[types.NormalizedRecord](
		file,
		parquet.SchemaOf(new(types.NormalizedRecord)),
		parquet.Compression(&brotli.Codec{
			Quality: p.compressionLevel,
			LGWin:   brotli.DefaultLGWin,
		}),
		parquet.KeyValueMetadata(MetaWeek, key.String()),
		parquet.KeyValueMetadata(MetaWindowStart, window.Start.Format(time.RFC3339)),
		parquet.KeyValueMetadata(MetaWindowEnd, window.End.Format(time.RFC3339)),
		parquet.KeyValueMetadata(MetaRows, strconv.Itoa(len(table))),
		parquet.KeyValueMetadata(MetaVersion, build.GetVersion()),
	)

	if _, err := writer.Write(table); err != nil {
		cleanup()
		return fmt.Errorf("failed to write rows: %w", err)
	}

	// Close the writer to flush data
	if err := writer.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}

	if err := file.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync parquet file: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close parquet file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename parquet file: %w", err)
	}
	return nil
}

// Read returns every row stored for key, in the order they were written.
func (p *ParquetStore) Read(ctx context.Context, key types.WeekKey) (types.Table, error) {
	table, err := p.readFile(ctx, key)
	cacheFileReadTotal.WithLabelValues(strconv.FormatBool(err != nil)).Inc()
	if err != nil {
		return nil, errors.Join(types.ErrCacheRead, err)
	}
	return table, nil
}

func (p *ParquetStore) readFile(ctx context.Context, key types.WeekKey) (types.Table, error) {
	path := p.Path(key)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat parquet file: %w", err)
	}

	meta, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet footer: %w", err)
	}
	p.checkMetadata(ctx, path, key, meta)

	reader := parquet.NewGenericReader[types.NormalizedRecord](file)
	defer reader.Close()

	// each row gets its own slot; reusing a buffer would share the pointer columns between rows
	table := make(types.Table, reader.NumRows())
	read := 0
	for read < len(table) {
		n, err := reader.Read(table[read:])
		read += n
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading from parquet file: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return table[:read], nil
}

// checkMetadata warns when a file does not hold the week its name says it does.
func (p *ParquetStore) checkMetadata(ctx context.Context, path string, key types.WeekKey, meta *parquet.File) {
	if week, ok := meta.Lookup(MetaWeek); ok && week != key.String() {
		log.Ctx(ctx).Warn().
			Str("file", path).
			Str("stored_week", week).
			Msg("cache file holds a different week than its name")
	}
}

// Window returns the window recorded when key was written.
func (p *ParquetStore) Window(ctx context.Context, key types.WeekKey) (types.WeekWindow, error) {
	path := p.Path(key)
	file, err := os.Open(path)
	if err != nil {
		return types.WeekWindow{}, errors.Join(types.ErrCacheRead, fmt.Errorf("failed to open parquet file: %w", err))
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return types.WeekWindow{}, errors.Join(types.ErrCacheRead, fmt.Errorf("failed to stat parquet file: %w", err))
	}
	meta, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return types.WeekWindow{}, errors.Join(types.ErrCacheRead, fmt.Errorf("failed to open parquet footer: %w", err))
	}

	start, err := lookupTime(meta, MetaWindowStart)
	if err != nil {
		return types.WeekWindow{}, errors.Join(types.ErrCacheRead, fmt.Errorf("%s: %w", path, err))
	}
	end, err := lookupTime(meta, MetaWindowEnd)
	if err != nil {
		return types.WeekWindow{}, errors.Join(types.ErrCacheRead, fmt.Errorf("%s: %w", path, err))
	}
	return types.NewWeekWindow(start, end), nil
}

func lookupTime(meta *parquet.File, name string) (time.Time, error) {
	value, ok := meta.Lookup(name)
	if !ok {
		return time.Time{}, fmt.Errorf("no %s metadata", name)
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s metadata: %w", name, err)
	}
	return t, nil
}

// List returns the cached keys in chronological order. Files that are not named after a week are ignored.
func (p *ParquetStore) List() ([]types.WeekKey, error) {
	entries, err := os.ReadDir(p.dirPath)
	if err != nil {
		return nil, errors.Join(types.ErrCacheRead, fmt.Errorf("failed to read the directory: %w", err))
	}

	keys := make([]types.WeekKey, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || !strings.HasSuffix(name, fileExtension) {
			continue
		}
		key, err := types.ParseWeekKey(strings.TrimSuffix(name, fileExtension))
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}

	slices.SortFunc(keys, func(a, b types.WeekKey) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		}
		return 0
	})
	return keys, nil
}

// Remove deletes the file for key.
func (p *ParquetStore) Remove(key types.WeekKey) error {
	path := p.Path(key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Join(types.ErrCacheWrite, fmt.Errorf("failed to remove %s: %w", path, err))
	}
	return nil
}
