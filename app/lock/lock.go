// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package lock guards cache files against torn writes with advisory file locks.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// RetryDelay is how often a contended lock is polled.
const RetryDelay = 50 * time.Millisecond

// ErrNotAcquired is returned when the context ends before the lock could be taken.
var ErrNotAcquired = errors.New("lock not acquired")

// LockFile acquires a lock for the specified file, executes fn, then releases the lock.
// The lock file is created next to the target as `${filePath}.lock`.
func LockFile(ctx context.Context, filePath string, fn func() error) error {
	return withLock(ctx, FileLockPath(filePath), fn)
}

// LockDir acquires a lock for the specified directory, executes fn, then releases the lock.
// The lock file is created within the target directory as `.dir.lock`.
func LockDir(ctx context.Context, dirPath string, fn func() error) error {
	return withLock(ctx, DirLockPath(dirPath), fn)
}

func FileLockPath(filePath string) string {
	return filepath.Join(filepath.Dir(filePath), filepath.Base(filePath)+".lock")
}

func DirLockPath(dirPath string) string {
	return filepath.Join(dirPath, ".dir.lock")
}

func withLock(ctx context.Context, lockPath string, fn func() error) error {
	fileLock := flock.New(lockPath)

	locked, err := fileLock.TryLockContext(ctx, RetryDelay)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNotAcquired, lockPath, err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", ErrNotAcquired, lockPath)
	}
	defer func() {
		_ = fileLock.Unlock()
		_ = os.Remove(lockPath)
	}()

	return fn()
}
