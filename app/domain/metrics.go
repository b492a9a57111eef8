// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package domain

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	weekCacheRequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mempercore_week_cache_request_total",
			Help: "Total number of week cache lookups by result (hit, miss, forced).",
		},
		[]string{"result"},
	)

	weekCacheUncachedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mempercore_week_cache_uncached_total",
			Help: "Total number of fetched weeks that were not written to the cache.",
		},
		[]string{"reason"},
	)

	weekCacheWindowMismatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mempercore_week_cache_window_mismatch_total",
			Help: "Total number of cache hits whose stored window does not cover the requested window.",
		},
		[]string{},
	)

	duplicateJobTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mempercore_duplicate_job_total",
			Help: "Total number of records dropped while merging because their job id was already seen.",
		},
		[]string{},
	)

	mergedRecordTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mempercore_merged_record_total",
			Help: "Total number of records returned by merges.",
		},
		[]string{},
	)
)

// MetricCollectors returns the collectors of this package for registration.
func MetricCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		weekCacheRequestTotal,
		weekCacheUncachedTotal,
		weekCacheWindowMismatchTotal,
		duplicateJobTotal,
		mergedRecordTotal,
	}
}
