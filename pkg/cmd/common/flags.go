// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/hpc-reporting/sacct-mempercore/app/partition"
	"github.com/hpc-reporting/sacct-mempercore/app/types"
)

const (
	FlagStart = "start"
	FlagEnd   = "end"
	FlagYear  = "year"
	FlagWeeks = "weeks"
	FlagForce = "force"
)

// RangeFlags select the period a command works on.
func RangeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: FlagStart, Aliases: []string{"s"}, Usage: "first day, ISO-8601 date or date-time"},
		&cli.StringFlag{Name: FlagEnd, Aliases: []string{"e"}, Usage: "last day, ISO-8601 date or date-time"},
		&cli.IntFlag{Name: FlagYear, Aliases: []string{"y"}, Usage: "a whole calendar year, instead of --start/--end"},
		&cli.IntFlag{Name: FlagWeeks, Aliases: []string{"w"}, Usage: "the last N complete weeks, instead of --start/--end"},
		&cli.BoolFlag{Name: FlagForce, Aliases: []string{"f"}, Usage: "query the accounting database even for cached weeks"},
	}
}

// Period is the date range chosen on the command line.
type Period struct {
	Start string
	End   string
	// Range is set instead of Start and End for relative periods.
	Range *types.DateRange
	// Name is the default prefix of output files.
	Name string
}

// ResolvePeriod reads the range flags. Exactly one of --year, --weeks or --start/--end must be given.
func (e *Env) ResolvePeriod(c *cli.Context) (Period, error) {
	given := 0
	for _, set := range []bool{c.IsSet(FlagYear), c.IsSet(FlagWeeks), c.IsSet(FlagStart) || c.IsSet(FlagEnd)} {
		if set {
			given++
		}
	}
	if given != 1 {
		return Period{}, errors.New("select the period with exactly one of --year, --weeks or --start and --end")
	}

	switch {
	case c.IsSet(FlagYear):
		year := c.Int(FlagYear)
		return Period{
			Start: fmt.Sprintf("%04d-01-01", year),
			End:   fmt.Sprintf("%04d-12-31", year),
			Name:  strconv.Itoa(year),
		}, nil

	case c.IsSet(FlagWeeks):
		n := c.Int(FlagWeeks)
		if n <= 0 {
			return Period{}, errors.Errorf("--weeks must be positive, got %d", n)
		}
		r := partition.LastWeeks(e.Clock, n, e.Settings.Sacct.Location())
		return Period{
			Range: &r,
			Name:  fmt.Sprintf("%s_%s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02")),
		}, nil
	}

	start, end := c.String(FlagStart), c.String(FlagEnd)
	if start == "" || end == "" {
		return Period{}, errors.New("both --start and --end are required")
	}
	return Period{Start: start, End: end, Name: fmt.Sprintf("%s_%s", start, end)}, nil
}

// Load reads the period through the week cache.
func (e *Env) Load(c *cli.Context, p Period) (types.MergedTable, error) {
	force := c.Bool(FlagForce)
	if p.Range != nil {
		return e.Loader.Read(c.Context, *p.Range, force)
	}
	return e.Loader.ReadRange(c.Context, p.Start, p.End, force)
}

// Weeks lists the windows of the period.
func (e *Env) Weeks(c *cli.Context, p Period) []types.WeekWindow {
	if p.Range != nil {
		return partition.Weeks(c.Context, *p.Range)
	}
	return partition.Range(c.Context, p.Start, p.End, e.Settings.Sacct.Location())
}
