// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/katalvlaran/lvunfold/scenario"
	"github.com/katalvlaran/lvunfold/unfold"
)

var (
	colorAccent = lipgloss.Color("#20B9B4")
	colorMuted  = lipgloss.Color("#6C7A80")
	colorError  = lipgloss.Color("#E74C3C")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
)

func num(x float64) string { return strconv.FormatFloat(x, 'g', 6, 64) }

func renderResult(w io.Writer, r *scenario.Result) {
	fmt.Fprintln(w, titleStyle.Render(r.Summary))

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorMuted)).
		Headers("bin", "train truth", "train meas", "truth", "measured", "unfolded", "error", "diff", "pull").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, row := range r.Table.Rows {
		t.Row(
			strconv.Itoa(row.Bin),
			num(row.TrainTruth),
			num(row.TrainMeasured),
			num(row.Truth),
			num(row.Measured),
			num(row.Unfolded),
			num(row.Error),
			num(row.Diff),
			num(row.Pull),
		)
	}
	fmt.Fprintln(w, t.Render())

	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("errors: %v   chi2: %s", r.Table.Treatment, num(r.Chi2))))
	if r.Bias != nil {
		renderBias(w, r)
	}
	if r.Failed {
		fmt.Fprintln(w, errorStyle.Render("unfolding failed: results are zero-filled"))
	}
}

func renderBias(w io.Writer, r *scenario.Result) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorMuted)).
		Headers("bin", "bias", "error").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for i, b := range r.Bias {
		t.Row(strconv.Itoa(i), num(b), num(r.BiasErr[i]))
	}
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("bias (%v)", r.BiasKind)))
	fmt.Fprintln(w, t.Render())
}

func renderAlgorithms(w io.Writer, infos []unfold.AlgorithmInfo) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("tag", "available").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, in := range infos {
		avail := "no"
		if in.Available {
			avail = "yes"
		}
		t.Row(in.Tag.String(), avail)
	}
	fmt.Fprintln(w, t.Render())
}
