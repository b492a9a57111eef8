// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package normalize turns raw accounting output into records with core-hours and memory per core.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ccoveille/go-safecast"
	"github.com/rs/zerolog/log"

	"github.com/hpc-reporting/sacct-mempercore/app/types"
)

const (
	secondsPerHour = 3600.0
	bytesPerGB     = 1.0e-9
)

// Reasons a record is dropped by Normalize.
const (
	DropNoMaxRSS    = "no_maxrss"
	DropBadMaxRSS   = "bad_maxrss"
	DropNoAllocCPUs = "no_alloc_cpus"
)

var multipliers = map[byte]float64{
	'K': 1e3,
	'M': 1e6,
	'G': 1e9,
}

// MemoryBytes converts a MaxRSS reading such as "46908K" into bytes. K, M and G are decimal
// multipliers; a bare number is bytes. Fractions are truncated. A nil reading stays nil.
func MemoryBytes(maxRSS *string) (*int64, error) {
	if maxRSS == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*maxRSS)
	if v == "" {
		return nil, nil
	}

	mult := 1.0
	if m, ok := multipliers[v[len(v)-1]]; ok {
		mult = m
		v = v[:len(v)-1]
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, errors.Join(types.ErrMalformedOutput, fmt.Errorf("MaxRSS %q: %w", *maxRSS, err))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errors.Join(types.ErrMalformedOutput, fmt.Errorf("MaxRSS %q is not finite", *maxRSS))
	}

	n, err := safecast.ToInt64(math.Trunc(f * mult))
	if err != nil {
		return nil, errors.Join(types.ErrMalformedOutput, fmt.Errorf("MaxRSS %q: %w", *maxRSS, err))
	}
	return &n, nil
}

// Normalize derives core-hours and memory per core for each record and drops the records that
// have no memory per core, such as job allocations which carry no MaxRSS of their own.
// Input order is preserved.
func Normalize(ctx context.Context, records []types.JobRecord) types.Table {
	table := make(types.Table, 0, len(records))
	dropped := map[string]int{}

	for _, rec := range records {
		memory, err := MemoryBytes(rec.MaxRSS)
		switch {
		case err != nil:
			dropped[DropBadMaxRSS]++
			log.Ctx(ctx).Warn().Err(err).Str("job_id", rec.JobID).Msg("dropping record")
			continue
		case memory == nil:
			dropped[DropNoMaxRSS]++
			continue
		case rec.AllocCPUs == nil || *rec.AllocCPUs == 0:
			dropped[DropNoAllocCPUs]++
			continue
		}

		row := types.NormalizedRecord{
			JobID:        rec.JobID,
			Account:      rec.Account,
			User:         rec.User,
			CPUTimeRaw:   rec.CPUTimeRaw,
			MaxRSS:       *rec.MaxRSS,
			MemoryBytes:  *memory,
			AllocCPUs:    *rec.AllocCPUs,
			MemPerCoreGB: float64(*memory) / float64(*rec.AllocCPUs) * bytesPerGB,
		}
		if rec.Start != nil {
			us := rec.Start.UnixMicro()
			row.Start = &us
		}
		if rec.CPUTimeRaw != nil {
			coreHours := float64(*rec.CPUTimeRaw) / secondsPerHour
			row.CoreHours = &coreHours
		}
		table = append(table, row)
	}

	for reason, n := range dropped {
		recordsDroppedTotal.WithLabelValues(reason).Add(float64(n))
	}
	recordsNormalizedTotal.WithLabelValues().Add(float64(len(table)))

	log.Ctx(ctx).Debug().
		Int("records", len(records)).
		Int("kept", len(table)).
		Interface("dropped", dropped).
		Msg("normalized accounting records")
	return table
}

// ParseAndNormalize is Parse followed by Normalize. Unparseable output yields an empty table.
func ParseAndNormalize(ctx context.Context, raw []byte, loc *time.Location) types.Table {
	records, err := Parse(ctx, raw, loc)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("code", types.ErrorCode(err)).Msg("failed to parse accounting output")
		return types.Table{}
	}
	return Normalize(ctx, records)
}
