// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package normalize

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	rowsSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mempercore_rows_skipped_total",
			Help: "Total number of accounting rows that could not be parsed.",
		},
		[]string{"column"},
	)

	recordsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mempercore_records_dropped_total",
			Help: "Total number of records without a memory per core value.",
		},
		[]string{"reason"},
	)

	recordsNormalizedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mempercore_records_normalized_total",
			Help: "Total number of records kept after normalization.",
		},
		[]string{},
	)
)

// MetricCollectors returns the collectors of this package for registration.
func MetricCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		rowsSkippedTotal,
		recordsDroppedTotal,
		recordsNormalizedTotal,
	}
}
