// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/ccoveille/go-safecast"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/hpc-reporting/sacct-mempercore/app/types"
)

// SummaryRow describes the memory use of one account.
type SummaryRow struct {
	Account   string
	Records   int
	CoreHours float64
	// AtMost holds, per reference line, the share of core-hours spent at or below its memory per core.
	AtMost          []float64
	PeakMemoryBytes int64
}

// Summarize returns one row per account, largest consumer of core-hours first, followed by a row
// for all accounts together.
func Summarize(t types.Table) []SummaryRow {
	groups := GroupByAccount(t)
	rows := make([]SummaryRow, 0, len(groups)+1)
	for _, account := range Accounts(groups) {
		rows = append(rows, summarize(account, groups[account]))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CoreHours > rows[j].CoreHours
	})
	return append(rows, summarize(AllAccounts, t))
}

func summarize(account string, t types.Table) SummaryRow {
	row := SummaryRow{
		Account: account,
		Records: len(t),
		AtMost:  make([]float64, len(ReferenceLines)),
	}
	below := make([]float64, len(ReferenceLines))
	for _, rec := range t {
		coreHours := rec.CoreHoursOrZero()
		row.CoreHours += coreHours
		for i, ref := range ReferenceLines {
			if rec.MemPerCoreGB <= ref.GB {
				below[i] += coreHours
			}
		}
		row.PeakMemoryBytes = max(row.PeakMemoryBytes, rec.MemoryBytes)
	}
	if row.CoreHours > 0 {
		for i := range below {
			row.AtMost[i] = below[i] / row.CoreHours
		}
	}
	return row
}

// Formats understood by WriteSummary.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
)

// WriteSummary prints rows to w. The last row is rendered as the table footer.
func WriteSummary(w io.Writer, rows []SummaryRow, format string) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)

	header := table.Row{"Account", "Job steps", "Core-hours"}
	for _, ref := range ReferenceLines {
		header = append(header, "<= "+ref.Label)
	}
	header = append(header, "Peak MaxRSS")
	tw.AppendHeader(header)

	configs := make([]table.ColumnConfig, 0, len(header))
	for i := 2; i <= len(header); i++ {
		configs = append(configs, table.ColumnConfig{Number: i, Align: text.AlignRight, AlignFooter: text.AlignRight})
	}
	tw.SetColumnConfigs(configs)
	tw.SetStyle(table.StyleLight)

	for i, row := range rows {
		values := table.Row{row.Account, humanize.Comma(int64(row.Records)), humanize.CommafWithDigits(row.CoreHours, 1)}
		for _, share := range row.AtMost {
			values = append(values, fmt.Sprintf("%.1f%%", share*100))
		}
		peak, err := safecast.ToUint64(row.PeakMemoryBytes)
		if err != nil {
			peak = 0
		}
		values = append(values, humanize.Bytes(peak))

		if i == len(rows)-1 && format != FormatCSV {
			tw.AppendFooter(values)
			continue
		}
		tw.AppendRow(values)
	}

	switch format {
	case "", FormatTable:
		tw.Render()
	case FormatCSV:
		tw.RenderCSV()
	default:
		return fmt.Errorf("invalid format %q", format)
	}
	return nil
}
