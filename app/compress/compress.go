// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package compress reads and writes brotli compressed files.
package compress

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/andybalholm/brotli"
	"github.com/google/uuid"
)

// Extension is appended to the names of compressed files.
const Extension = ".br"

// WriteFile compresses data into path. The data goes to a temporary file in the same directory
// first, which is renamed over path once complete, so readers never see a partial file.
// It is a pure function and does not handle locking.
func WriteFile(path string, data []byte, level int) error {
	tmpPath := filepath.Join(filepath.Dir(path), "."+uuid.NewString()+".tmp")
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	compressor := brotli.NewWriterLevel(file, level)
	if _, err := io.Copy(compressor, bytes.NewReader(data)); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to compress data: %w", err)
	}

	// Close the compressor to flush data
	if err := compressor.Close(); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close compressor: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// ReadFile decompresses the whole of path.
func ReadFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(brotli.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", path, err)
	}
	return data, nil
}
