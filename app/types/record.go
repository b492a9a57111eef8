// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//coverage:ignore
package types

import "time"

// JobRecord is one row of accounting output. Slurm reports one row for the job allocation
// and one per job step (batch, extern, 0, 1, ...); only steps carry a MaxRSS reading.
type JobRecord struct {
	JobID      string
	Start      *time.Time
	User       *string
	Account    *string
	CPUTimeRaw *int64
	MaxRSS     *string
	AllocCPUs  *int64
}

// NormalizedRecord is a JobRecord with derived metrics, in the column order of the cache files.
// Pointer fields are optional parquet columns.
type NormalizedRecord struct {
	JobID        string   `json:"job_id"          parquet:"job_id"`
	Start        *int64   `json:"start"           parquet:"start"` // unix microseconds
	Account      *string  `json:"account"         parquet:"account"`
	User         *string  `json:"user"            parquet:"user"`
	CPUTimeRaw   *int64   `json:"cpu_time_raw"    parquet:"cpu_time_raw"`
	CoreHours    *float64 `json:"core_hours"      parquet:"core_hours"`
	MaxRSS       string   `json:"max_rss"         parquet:"max_rss"`
	MemoryBytes  int64    `json:"memory_bytes"    parquet:"memory_bytes"`
	AllocCPUs    int64    `json:"alloc_cpus"      parquet:"alloc_cpus"`
	MemPerCoreGB float64  `json:"mem_per_core_gb" parquet:"mem_per_core_gb"`
}

// StartTime converts the stored start column back to a time in loc.
func (r NormalizedRecord) StartTime(loc *time.Location) (time.Time, bool) {
	if r.Start == nil {
		return time.Time{}, false
	}
	return time.UnixMicro(*r.Start).In(loc), true
}

// CoreHoursOrZero treats a missing cpu time as zero core-hours.
func (r NormalizedRecord) CoreHoursOrZero() float64 {
	if r.CoreHours == nil {
		return 0
	}
	return *r.CoreHours
}

// AccountOr returns the account or fallback when the account is unknown.
func (r NormalizedRecord) AccountOr(fallback string) string {
	if r.Account == nil || *r.Account == "" {
		return fallback
	}
	return *r.Account
}

// Table is an ordered set of normalized records, typically one week.
type Table []NormalizedRecord

// JobIDs lists the job ids in row order.
func (t Table) JobIDs() []string {
	ids := make([]string, 0, len(t))
	for _, r := range t {
		ids = append(ids, r.JobID)
	}
	return ids
}

// TotalCoreHours sums the core-hours of all rows.
func (t Table) TotalCoreHours() float64 {
	var total float64
	for _, r := range t {
		total += r.CoreHoursOrZero()
	}
	return total
}

// MergedTable is the result of reading a whole date range.
type MergedTable struct {
	Records    Table
	Period     time.Duration // requested end - start
	Duplicates int           // rows dropped because their job id was already seen
}
