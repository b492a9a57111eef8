// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheFileWriteTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mempercore_cache_file_write_total",
			Help: "Total number of week files written to the cache.",
		},
		[]string{"error"},
	)

	cacheFileReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mempercore_cache_file_read_total",
			Help: "Total number of week files read from the cache.",
		},
		[]string{"error"},
	)
)

// MetricCollectors returns the collectors of this package for registration.
func MetricCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		cacheFileWriteTotal,
		cacheFileReadTotal,
	}
}
