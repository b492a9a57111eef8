// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package domain_test

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hpc-reporting/sacct-mempercore/app/types"
)

const header = "JobID|Start|User|Account|CPUTimeRAW|MaxRSS|AllocCPUS\n"

// fakeFetcher answers every window with canned output and records what it was asked for.
type fakeFetcher struct {
	output  func(window types.WeekWindow) []byte
	windows []types.WeekWindow
}

func (f *fakeFetcher) Fetch(_ context.Context, window types.WeekWindow) []byte {
	f.windows = append(f.windows, window)
	if f.output == nil {
		return nil
	}
	return f.output(window)
}

func (f *fakeFetcher) calls() int {
	return len(f.windows)
}

// sacctWeek produces one job with two steps that started on the first day of window.
func sacctWeek(jobID string, maxRSS ...string) func(types.WeekWindow) []byte {
	return func(window types.WeekWindow) []byte {
		start := window.Start.Format(types.SacctTimeFormat)
		var b strings.Builder
		b.WriteString(header)
		fmt.Fprintf(&b, "%s|%s|alice|nn1234k|7200||2\n", jobID, start)
		for i, rss := range maxRSS {
			fmt.Fprintf(&b, "%s.%d|%s|||7200|%s|2\n", jobID, i, start, rss)
		}
		return []byte(b.String())
	}
}

func utcWindow(y int, m time.Month, d, days int) types.WeekWindow {
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, days-1).Add(23*time.Hour + 59*time.Minute + 59*time.Second)
	return types.NewWeekWindow(start, end)
}

func ptr[T any](v T) *T { return &v }
