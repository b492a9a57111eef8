// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SacctTimeFormat is the timestamp layout understood by `sacct --starttime/--endtime`
// and used by sacct when printing the Start column.
const SacctTimeFormat = "2006-01-02T15:04:05"

const day = 24 * time.Hour

// DateRange is a closed interval of time. A range with End before Start is empty.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Empty reports whether the range does not contain any instant.
func (r DateRange) Empty() bool {
	return r.End.Before(r.Start)
}

// Duration returns End - Start.
func (r DateRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Covers reports whether other lies entirely within r.
func (r DateRange) Covers(other DateRange) bool {
	return !other.Start.Before(r.Start) && !other.End.After(r.End)
}

// CalendarDays returns the number of calendar days from the date of start to the date of end,
// both read in start's location. Days shortened or lengthened by a DST change count as one day.
func CalendarDays(start, end time.Time) int {
	y1, m1, d1 := start.Date()
	y2, m2, d2 := end.In(start.Location()).Date()
	from := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	to := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from) / day)
}

// WeekWindow is a sub-range small enough to be sent to the accounting system in one query.
type WeekWindow struct {
	DateRange
}

// NewWeekWindow creates a window from start to end.
func NewWeekWindow(start, end time.Time) WeekWindow {
	return WeekWindow{DateRange{Start: start, End: end}}
}

// Key returns the ISO (year, week) the window is cached under.
func (w WeekWindow) Key() WeekKey {
	year, week := w.Start.ISOWeek()
	return WeekKey{Year: year, Week: week}
}

// SpanDays counts the calendar days touched by the window. Empty windows return a value <= 0.
func (w WeekWindow) SpanDays() int {
	days := CalendarDays(w.Start, w.End)
	if w.Empty() {
		return min(days, 0)
	}
	return days + 1
}

func (w WeekWindow) String() string {
	return fmt.Sprintf("%s..%s", w.Start.Format(SacctTimeFormat), w.End.Format(SacctTimeFormat))
}

// WeekKey identifies a cache entry.
type WeekKey struct {
	Year int
	Week int
}

// String renders the key as "{year}-{week}" without zero padding, e.g. "2026-3".
func (k WeekKey) String() string {
	return fmt.Sprintf("%d-%d", k.Year, k.Week)
}

// Before orders keys chronologically.
func (k WeekKey) Before(other WeekKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Week < other.Week
}

// ParseWeekKey parses the "{year}-{week}" form produced by String.
func ParseWeekKey(s string) (WeekKey, error) {
	y, w, ok := strings.Cut(s, "-")
	if !ok {
		return WeekKey{}, fmt.Errorf("invalid week key %q", s)
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return WeekKey{}, fmt.Errorf("invalid year in week key %q: %w", s, err)
	}
	week, err := strconv.Atoi(w)
	if err != nil || week < 1 || week > 53 {
		return WeekKey{}, fmt.Errorf("invalid week number in week key %q", s)
	}
	return WeekKey{Year: year, Week: week}, nil
}
