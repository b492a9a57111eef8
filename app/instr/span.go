// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package instr

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var functionDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "mempercore_function_execution_seconds",
		Help:    "Time taken for a function execution",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
	},
	[]string{"function_name", "error"},
)

// Span measures one named unit of work.
type Span struct {
	ctx   context.Context
	id    string
	name  string
	start time.Time
	err   error
	ended bool
}

// StartSpan starts a span. Call End when the work is done.
func StartSpan(ctx context.Context, name string) *Span {
	return &Span{
		ctx:   ctx,
		id:    uuid.NewString(),
		name:  name,
		start: time.Now(),
	}
}

// RunSpan wraps fn with a span, recording its error state.
func RunSpan(ctx context.Context, name string, fn func(ctx context.Context, span *Span) error) error {
	span := StartSpan(ctx, name)
	defer span.End()
	return span.Error(fn(ctx, span))
}

// Error records err on the span and returns it unchanged.
func (s *Span) Error(err error) error {
	s.err = err
	return err
}

// GetDuration returns the time elapsed since the span started.
func (s *Span) GetDuration() time.Duration {
	return time.Since(s.start)
}

// End observes the span duration. Calling End more than once has no effect.
func (s *Span) End() {
	if s.ended {
		return
	}
	s.ended = true
	duration := s.GetDuration()
	functionDuration.WithLabelValues(s.name, strconv.FormatBool(s.err != nil)).Observe(duration.Seconds())
	log.Ctx(s.ctx).Trace().
		Str("span_id", s.id).
		Str("span", s.name).
		Dur("duration", duration).
		AnErr("span_error", s.err).
		Msg("span ended")
}
