// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//coverage:ignore
package types

//go:generate mockgen -destination=./mocks/mock_store.go -package=mocks github.com/hpc-reporting/sacct-mempercore/app/types WeekStore,CommandRunner

import (
	"context"
)

// WeekStore persists one normalized table per ISO week.
type WeekStore interface {
	// Exists reports whether an entry is stored for key.
	Exists(key WeekKey) bool

	// Read returns the table stored for key.
	Read(ctx context.Context, key WeekKey) (Table, error)

	// Window returns the window the entry for key was fetched for.
	Window(ctx context.Context, key WeekKey) (WeekWindow, error)

	// Write replaces the entry for key.
	Write(ctx context.Context, key WeekKey, window WeekWindow, table Table) error

	// List returns the stored keys in chronological order.
	List() ([]WeekKey, error)

	// Remove deletes the entry for key. Removing a missing entry is not an error.
	Remove(key WeekKey) error
}

// CommandRunner runs an external program to completion and captures its output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)
}
