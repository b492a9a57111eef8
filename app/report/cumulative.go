// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package report renders merged accounting tables as cumulative core-hour charts and summary tables.
package report

import (
	"sort"

	"gonum.org/v1/plot/plotter"

	"github.com/hpc-reporting/sacct-mempercore/app/types"
)

// UnknownAccount groups records without an account.
const UnknownAccount = "unknown"

// Cumulative returns one point per record: its memory per core and the running sum of core-hours
// up to and including it. The table is expected to be sorted by memory per core already.
// Records without cpu time add no core-hours.
func Cumulative(table types.Table) plotter.XYs {
	xys := make(plotter.XYs, len(table))
	sum := 0.0
	for i, row := range table {
		sum += row.CoreHoursOrZero()
		xys[i].X = row.MemPerCoreGB
		xys[i].Y = sum
	}
	return xys
}

// GroupByAccount splits table by account, keeping the order of the records inside each group.
func GroupByAccount(table types.Table) map[string]types.Table {
	groups := map[string]types.Table{}
	for _, row := range table {
		account := row.AccountOr(UnknownAccount)
		groups[account] = append(groups[account], row)
	}
	return groups
}

// Accounts returns the keys of groups in lexical order.
func Accounts(groups map[string]types.Table) []string {
	accounts := make([]string, 0, len(groups))
	for account := range groups {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	return accounts
}
