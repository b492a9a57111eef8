// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/hpc-reporting/sacct-mempercore/app/compress"
	"github.com/hpc-reporting/sacct-mempercore/app/lock"
	"github.com/hpc-reporting/sacct-mempercore/app/types"
)

const rawExtension = ".sacct" + compress.Extension

// RawArchive keeps the unparsed accounting output of each week next to the cache, so a week can
// be audited or re-normalized without querying the accounting database again.
type RawArchive struct {
	dirPath          string
	compressionLevel int
}

func NewRawArchive(dirPath string, compressionLevel int) *RawArchive {
	return &RawArchive{dirPath: dirPath, compressionLevel: compressionLevel}
}

// Path returns the archive file for key.
func (a *RawArchive) Path(key types.WeekKey) string {
	return filepath.Join(a.dirPath, key.String()+rawExtension)
}

func (a *RawArchive) Exists(key types.WeekKey) bool {
	_, err := os.Stat(a.Path(key))
	return err == nil
}

// Write replaces the archived output for key.
func (a *RawArchive) Write(ctx context.Context, key types.WeekKey, raw []byte) error {
	path := a.Path(key)
	err := lock.LockFile(ctx, path, func() error {
		return compress.WriteFile(path, raw, a.compressionLevel)
	})
	if err != nil {
		return errors.Join(types.ErrCacheWrite, err)
	}
	log.Ctx(ctx).Debug().Str("file", path).Int("bytes", len(raw)).Msg("archived accounting output")
	return nil
}

// Read returns the archived output for key.
func (a *RawArchive) Read(key types.WeekKey) ([]byte, error) {
	raw, err := compress.ReadFile(a.Path(key))
	if err != nil {
		return nil, errors.Join(types.ErrCacheRead, err)
	}
	return raw, nil
}

// Remove deletes the archived output for key, if any.
func (a *RawArchive) Remove(key types.WeekKey) error {
	path := a.Path(key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Join(types.ErrCacheWrite, fmt.Errorf("failed to remove %s: %w", path, err))
	}
	return nil
}
