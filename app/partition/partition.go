// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package partition splits arbitrary date ranges into windows that are small enough to be
// requested from the accounting database in a single query.
package partition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hpc-reporting/sacct-mempercore/app/types"
	ptypes "github.com/hpc-reporting/sacct-mempercore/pkg/types"
)

const day = 24 * time.Hour

// MaxWindowDays is the largest number of calendar days a window may touch.
const MaxWindowDays = 7

var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses an ISO-8601 date or date-time. Values without a zone are read in loc.
func ParseTime(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not an ISO-8601 date", value)
}

// ParseRange parses the start and end of a range. Both must be valid; the range itself may be empty.
func ParseRange(start, end string, loc *time.Location) (types.DateRange, error) {
	s, err := ParseTime(start, loc)
	if err != nil {
		return types.DateRange{}, errors.Join(types.ErrInvalidRange, err)
	}
	e, err := ParseTime(end, loc)
	if err != nil {
		return types.DateRange{}, errors.Join(types.ErrInvalidRange, err)
	}
	return types.DateRange{Start: s, End: e}, nil
}

// Range parses start and end and partitions them. Unparseable input is logged and yields no windows.
func Range(ctx context.Context, start, end string, loc *time.Location) []types.WeekWindow {
	r, err := ParseRange(start, end, loc)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).
			Str("start", start).
			Str("end", end).
			Msg("not a valid input range")
		return nil
	}
	return Weeks(ctx, r)
}

// Weeks splits r into windows:
//
//   - an empty range (end before start) gives no windows,
//   - a range shorter than a day is returned unchanged,
//   - a range touching fewer than seven calendar days becomes one window ending at the end of its last day,
//   - anything longer starts with a window up to the end of the first Sunday, continues with
//     Monday-Sunday weeks and ends with a window clipped to the end of the last day.
func Weeks(ctx context.Context, r types.DateRange) []types.WeekWindow {
	d := r.Duration()
	if d < 0 {
		log.Ctx(ctx).Info().
			Time("start", r.Start).
			Time("end", r.End).
			Msg("interval is empty")
		return nil
	}

	if d > 0 && d < day {
		return []types.WeekWindow{types.NewWeekWindow(r.Start, r.End)}
	}

	days := types.CalendarDays(r.Start, r.End) + 1
	if days < MaxWindowDays {
		return []types.WeekWindow{types.NewWeekWindow(r.Start, EndOfDay(r.End))}
	}

	// first window runs up to and including the first Sunday
	sunday := Midnight(r.Start).AddDate(0, 0, 7-isoWeekday(r.Start))
	windows := []types.WeekWindow{types.NewWeekWindow(r.Start, EndOfDay(sunday))}

	last := Midnight(r.End)
	for monday := sunday.AddDate(0, 0, 1); !monday.After(last); monday = monday.AddDate(0, 0, 7) {
		weekend := monday.AddDate(0, 0, 6)
		if weekend.After(last) {
			weekend = last
		}
		windows = append(windows, types.NewWeekWindow(monday, EndOfDay(weekend)))
	}
	return windows
}

// LastWeeks returns the range covering the n complete ISO weeks before the current one.
func LastWeeks(clock ptypes.TimeProvider, n int, loc *time.Location) types.DateRange {
	if loc == nil {
		loc = time.Local
	}
	now := clock.GetCurrentTime().In(loc)
	thisMonday := Midnight(now).AddDate(0, 0, 1-isoWeekday(now))
	if n <= 0 {
		return types.DateRange{Start: thisMonday, End: thisMonday.Add(-time.Second)}
	}
	start := thisMonday.AddDate(0, 0, -7*n)
	lastSunday := thisMonday.AddDate(0, 0, -1)
	return types.DateRange{Start: start, End: lastSunday}
}

// Midnight returns the first instant of t's calendar day.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59 on t's calendar day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

// isoWeekday numbers Monday as 1 and Sunday as 7.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
