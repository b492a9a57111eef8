// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/plot/vg"

	"github.com/hpc-reporting/sacct-mempercore/app/config"
	"github.com/hpc-reporting/sacct-mempercore/app/types"
	"github.com/hpc-reporting/sacct-mempercore/pkg/utils"
)

// AllAccounts names the chart covering every account.
const AllAccounts = "all"

// Renderer writes charts into a directory.
type Renderer struct {
	outputDir string
	width     vg.Length
	height    vg.Length
}

func NewRenderer(settings config.Report) *Renderer {
	if settings.OutputDirectory == "" {
		settings.OutputDirectory = "."
	}
	if settings.WidthInches <= 0 {
		settings.WidthInches = config.DefaultWidthInches
	}
	if settings.HeightInches <= 0 {
		settings.HeightInches = config.DefaultHeightInches
	}
	return &Renderer{
		outputDir: settings.OutputDirectory,
		width:     vg.Length(settings.WidthInches) * vg.Inch,
		height:    vg.Length(settings.HeightInches) * vg.Inch,
	}
}

// FileName returns the chart file of account for prefix. An account name that is not safe in a
// file name is sanitized and tagged with a digest of the original, so `a/b` and `a_b` get
// different files.
func (r *Renderer) FileName(prefix, account string) string {
	name := utils.SanitizeFileName(account)
	if name != account {
		name += "-" + accountTag(account)
	}
	return filepath.Join(r.outputDir, utils.SanitizeFileName(prefix)+"_"+name+".png")
}

func accountTag(account string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(account)).String()[:8]
}

// RenderRange writes `{prefix}_all.png` plus one `{prefix}_{account}.png` per account and returns
// the files written, the combined chart first.
func (r *Renderer) RenderRange(ctx context.Context, prefix string, merged types.MergedTable) ([]string, error) {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	days := int(math.Round(merged.Period.Hours() / 24))
	files := make([]string, 0)

	used := map[string]string{}
	write := func(account string, table types.Table) error {
		filename := r.FileName(prefix, account)
		if other, ok := used[filename]; ok {
			renamed := strings.TrimSuffix(filename, ".png") + "-" + accountTag(account) + ".png"
			log.Ctx(ctx).Warn().
				Str("account", account).
				Str("other_account", other).
				Str("file", renamed).
				Msg("chart file name already taken, renaming")
			filename = renamed
		}
		used[filename] = account

		title := fmt.Sprintf("%s %s (%d days, %d job steps)", prefix, account, days, len(table))
		if err := PlotCumulative(table, title, filename, r.width, r.height); err != nil {
			return err
		}
		log.Ctx(ctx).Info().
			Str("file", filename).
			Str("account", account).
			Int("records", len(table)).
			Msg("wrote chart")
		files = append(files, filename)
		return nil
	}

	if err := write(AllAccounts, merged.Records); err != nil {
		return files, err
	}

	groups := GroupByAccount(merged.Records)
	for _, account := range Accounts(groups) {
		if err := write(account, groups[account]); err != nil {
			return files, err
		}
	}
	return files, nil
}
