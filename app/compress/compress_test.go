// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package compress_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpc-reporting/sacct-mempercore/app/compress"
)

func TestUnit_Compress_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2026-3.sacct"+compress.Extension)

	data := []byte(strings.Repeat("17031931.batch|2026-01-12T09:30:00|||7200|46908K|1\n", 200))
	require.NoError(t, compress.WriteFile(path, data, 8))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Less(t, info.Size(), int64(len(data)), "file should be compressed")

	got, err := compress.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// only the final file is left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUnit_Compress_Overwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.br")
	require.NoError(t, compress.WriteFile(path, []byte("first"), 1))
	require.NoError(t, compress.WriteFile(path, []byte("second"), 1))

	got, err := compress.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestUnit_Compress_Errors(t *testing.T) {
	_, err := compress.ReadFile(filepath.Join(t.TempDir(), "missing.br"))
	require.Error(t, err)

	err = compress.WriteFile(filepath.Join(t.TempDir(), "no", "such", "dir.br"), []byte("x"), 1)
	require.Error(t, err)
}
