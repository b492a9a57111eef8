// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package sacct

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	sacctInvocationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mempercore_sacct_invocation_total",
			Help: "Total number of accounting commands started.",
		},
		[]string{},
	)

	sacctFailureTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mempercore_sacct_failure_total",
			Help: "Total number of accounting commands that failed or returned no data.",
		},
		[]string{"exit_code"},
	)

	sacctRefusedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mempercore_sacct_refused_total",
			Help: "Total number of windows refused before running the accounting command.",
		},
		[]string{"error"},
	)

	sacctOutputBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mempercore_sacct_output_bytes_total",
			Help: "Total bytes of accounting output received.",
		},
		[]string{},
	)
)

// MetricCollectors returns the collectors of this package for registration.
func MetricCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		sacctInvocationTotal,
		sacctFailureTotal,
		sacctRefusedTotal,
		sacctOutputBytesTotal,
	}
}
