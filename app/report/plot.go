// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/hpc-reporting/sacct-mempercore/app/types"
)

const (
	XLabel = "Memory in GB / Core"
	YLabel = "corehours (cumulative sum)"

	XMin = -0.5
	XMax = 16.0
)

// ReferenceLines are the memory per core values marked on every chart.
var ReferenceLines = []struct {
	GB    float64
	Label string
}{
	{GB: 2, Label: "2 GB"},
	{GB: 4, Label: "4 GB"},
	{GB: 8, Label: "8 GB"},
}

var referenceColor = color.Gray{Y: 128}

// NewCumulativePlot builds the chart of cumulative core-hours over memory per core for table.
func NewCumulativePlot(table types.Table, title string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = XLabel
	p.Y.Label.Text = YLabel
	p.Add(plotter.NewGrid())

	xys := Cumulative(table)
	if len(xys) > 0 {
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("failed to create line: %w", err)
		}
		p.Add(line)
	}

	yMax := 1.0
	if len(xys) > 0 && xys[len(xys)-1].Y > 0 {
		yMax = xys[len(xys)-1].Y
	}

	labels := plotter.XYLabels{}
	for _, ref := range ReferenceLines {
		line, err := plotter.NewLine(plotter.XYs{{X: ref.GB, Y: 0}, {X: ref.GB, Y: yMax}})
		if err != nil {
			return nil, fmt.Errorf("failed to create reference line: %w", err)
		}
		line.LineStyle.Color = referenceColor
		line.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(line)

		labels.XYs = append(labels.XYs, plotter.XY{X: ref.GB, Y: yMax * 0.95})
		labels.Labels = append(labels.Labels, ref.Label)
	}

	text, err := plotter.NewLabels(labels)
	if err != nil {
		return nil, fmt.Errorf("failed to create labels: %w", err)
	}
	for i := range text.TextStyle {
		text.TextStyle[i].Rotation = math.Pi / 2
		text.TextStyle[i].XAlign = -1
	}
	p.Add(text)

	// set after Add, which widens the axes to the data
	p.X.Min = XMin
	p.X.Max = XMax
	p.Y.Min = 0
	p.Y.Max = yMax

	return p, nil
}

// PlotCumulative renders the chart of table to filename. The image format follows the file extension.
func PlotCumulative(table types.Table, title, filename string, width, height vg.Length) error {
	p, err := NewCumulativePlot(table, title)
	if err != nil {
		return err
	}
	if err := p.Save(width, height, filename); err != nil {
		return fmt.Errorf("failed to save %s: %w", filename, err)
	}
	return nil
}
