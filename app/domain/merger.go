// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package domain

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hpc-reporting/sacct-mempercore/app/types"
)

// Merge concatenates tables in order, keeps the first record of every job id and sorts the result
// by memory per core, ascending. Records with equal memory per core keep their relative order.
func Merge(ctx context.Context, tables []types.Table, period time.Duration) types.MergedTable {
	total := 0
	for _, table := range tables {
		total += len(table)
	}

	seen := make(map[string]struct{}, total)
	records := make(types.Table, 0, total)
	for _, table := range tables {
		for _, row := range table {
			if _, ok := seen[row.JobID]; ok {
				continue
			}
			seen[row.JobID] = struct{}{}
			records = append(records, row)
		}
	}

	duplicates := total - len(records)
	if duplicates > 0 {
		duplicateJobTotal.WithLabelValues().Add(float64(duplicates))
		log.Ctx(ctx).Warn().
			Err(types.ErrDuplicateJob).
			Int("duplicates", duplicates).
			Msg("found duplicate jobs, only keeping the first")
	}

	slices.SortStableFunc(records, func(a, b types.NormalizedRecord) int {
		return cmp.Compare(a.MemPerCoreGB, b.MemPerCoreGB)
	})
	mergedRecordTotal.WithLabelValues().Add(float64(len(records)))

	return types.MergedTable{
		Records:    records,
		Period:     period,
		Duplicates: duplicates,
	}
}
