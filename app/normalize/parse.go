// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package normalize

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hpc-reporting/sacct-mempercore/app/types"
)

// Column names printed by sacct in the header row.
const (
	ColJobID      = "JobID"
	ColStart      = "Start"
	ColUser       = "User"
	ColAccount    = "Account"
	ColCPUTimeRaw = "CPUTimeRAW"
	ColMaxRSS     = "MaxRSS"
	ColAllocCPUs  = "AllocCPUS"
)

var columns = []string{ColJobID, ColStart, ColUser, ColAccount, ColCPUTimeRaw, ColMaxRSS, ColAllocCPUs}

// IsNull reports whether a field is one of the tokens sacct prints for a missing value.
func IsNull(field string) bool {
	switch field {
	case "", "None", "Unknown":
		return true
	}
	return false
}

// Parse reads '|' delimited accounting output with a header row. Columns are located by name so
// their order does not matter. Rows with unparseable values are skipped with a warning. Start
// times carry no zone and are read in loc.
func Parse(ctx context.Context, raw []byte, loc *time.Location) ([]types.JobRecord, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}

	r := csv.NewReader(bytes.NewReader(raw))
	r.Comma = '|'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, errors.Join(types.ErrMalformedOutput, fmt.Errorf("failed to read header: %w", err))
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range columns {
		if _, ok := index[name]; !ok {
			return nil, errors.Join(types.ErrMalformedOutput, fmt.Errorf("missing column %q", name))
		}
	}

	records := make([]types.JobRecord, 0)
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			rowsSkippedTotal.WithLabelValues("row").Inc()
			log.Ctx(ctx).Warn().Err(err).Msg("skipping unreadable accounting row")
			continue
		}
		if len(row) != len(header) {
			rowsSkippedTotal.WithLabelValues("row").Inc()
			log.Ctx(ctx).Warn().
				Int("fields", len(row)).
				Int("expected", len(header)).
				Msg("skipping accounting row with wrong field count")
			continue
		}

		rec, column, err := parseRow(row, index, loc)
		if err != nil {
			rowsSkippedTotal.WithLabelValues(column).Inc()
			log.Ctx(ctx).Warn().Err(err).
				Str("job_id", rec.JobID).
				Str("column", column).
				Msg("skipping accounting row")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row []string, index map[string]int, loc *time.Location) (types.JobRecord, string, error) {
	field := func(name string) string {
		return strings.TrimSpace(row[index[name]])
	}

	rec := types.JobRecord{
		JobID:   field(ColJobID),
		User:    optionalString(field(ColUser)),
		Account: optionalString(field(ColAccount)),
		MaxRSS:  optionalString(field(ColMaxRSS)),
	}
	if rec.JobID == "" {
		return rec, ColJobID, errors.New("empty job id")
	}

	if v := field(ColStart); !IsNull(v) {
		start, err := time.ParseInLocation(types.SacctTimeFormat, v, loc)
		if err != nil {
			return rec, ColStart, err
		}
		rec.Start = &start
	}

	var err error
	if rec.CPUTimeRaw, err = optionalInt(field(ColCPUTimeRaw)); err != nil {
		return rec, ColCPUTimeRaw, err
	}
	if rec.AllocCPUs, err = optionalInt(field(ColAllocCPUs)); err != nil {
		return rec, ColAllocCPUs, err
	}
	return rec, "", nil
}

func optionalString(v string) *string {
	if IsNull(v) {
		return nil
	}
	return &v
}

func optionalInt(v string) (*int64, error) {
	if IsNull(v) {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
