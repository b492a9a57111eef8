// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package instr holds the prometheus plumbing shared by the pipeline packages. Counters are
// defined next to the code that increments them and collected into a private registry, which
// is written out in the text exposition format when the run ends.
package instr

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics owns a registry with the collectors of one run.
type PrometheusMetrics struct {
	registry   *prometheus.Registry
	collectors []prometheus.Collector
}

type PrometheusMetricsOpt = func(p *PrometheusMetrics) error

// WithPromMetrics adds collectors to the registry. This can be called multiple times.
func WithPromMetrics(collectors ...prometheus.Collector) PrometheusMetricsOpt {
	return func(p *PrometheusMetrics) error {
		p.collectors = append(p.collectors, collectors...)
		return nil
	}
}

// NewPrometheusMetrics creates a registry and registers the span histogram plus any requested collectors.
func NewPrometheusMetrics(opts ...PrometheusMetricsOpt) (*PrometheusMetrics, error) {
	p := &PrometheusMetrics{
		registry:   prometheus.NewRegistry(),
		collectors: []prometheus.Collector{functionDuration},
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	for _, c := range p.collectors {
		if err := p.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return p, nil
}

// Registry exposes the underlying registry, mostly for tests.
func (p *PrometheusMetrics) Registry() *prometheus.Registry {
	return p.registry
}

// WriteTextfile writes all metrics to path in the format read by the node exporter textfile collector.
func (p *PrometheusMetrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
