package main

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/YuminosukeSato/devperf/cleaning"
	"github.com/YuminosukeSato/devperf/dataset"
	"github.com/YuminosukeSato/devperf/experiment"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Terminal palette
var (
	colorAccent  = lipgloss.Color("#20B9B4")
	colorBorder  = lipgloss.Color("#16858E")
	colorSuccess = lipgloss.Color("#2CD7C7")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#6C8A94")
)

var styles = struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(colorAccent).MarginTop(1),
	Header:  lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1),
	Cell:    lipgloss.NewStyle().Padding(0, 1),
	Muted:   lipgloss.NewStyle().Foreground(colorMuted),
	Success: lipgloss.NewStyle().Foreground(colorSuccess),
	Warning: lipgloss.NewStyle().Foreground(colorWarning),
	Error:   lipgloss.NewStyle().Foreground(colorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1),
}

const (
	iconOK      = "✓"
	iconWarning = "⚠"
	iconArrow   = "→"
)

func title(w io.Writer, text string) {
	fmt.Fprintln(w, styles.Title.Render(text))
}

func success(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styles.Success.Render(iconOK), fmt.Sprintf(format, args...))
}

func warning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styles.Warning.Render(iconWarning), fmt.Sprintf(format, args...))
}

// renderTable draws rows under headers with a rounded border.
func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.Header
			}
			return styles.Cell
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

// tableRows lays t out row by row as text.
func tableRows(t dataset.Table) ([]string, [][]string, error) {
	names := t.Names()
	columns := make([][]string, len(names))
	for j, name := range names {
		records, err := t.Records(name)
		if err != nil {
			return nil, nil, err
		}
		columns[j] = records
	}
	rows := make([][]string, t.Nrow())
	for i := range rows {
		rows[i] = make([]string, len(names))
		for j := range names {
			rows[i][j] = columns[j][i]
		}
	}
	return names, rows, nil
}

func printTable(w io.Writer, t dataset.Table) error {
	headers, rows, err := tableRows(t)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, renderTable(headers, rows))
	return nil
}

func formatFloat(v float64, decimals int) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

func schemaRows(schema []dataset.ColumnInfo) [][]string {
	rows := make([][]string, len(schema))
	for i, c := range schema {
		rows[i] = []string{c.Name, string(c.Kind), strconv.Itoa(c.Missing)}
	}
	return rows
}

func repairRows(rep cleaning.Report) [][]string {
	rows := make([][]string, len(rep.Columns))
	for i, c := range rep.Columns {
		rows[i] = []string{
			c.Column,
			strconv.Itoa(c.Coerced),
			strconv.Itoa(c.Negative),
			strconv.Itoa(c.Imputed),
			strconv.Itoa(c.Clipped),
			formatFloat(c.Mean, 2),
			formatFloat(c.Lower, 2),
			formatFloat(c.Upper, 2),
		}
	}
	return rows
}

var repairHeaders = []string{"Column", "Coerced", "Negative", "Imputed", "Clipped", "Mean", "Lower", "Upper"}

func rankingRows(r experiment.Ranking) [][]string {
	rows := make([][]string, len(r))
	for i, s := range r {
		status := iconOK
		if s.Err != nil {
			status = s.Err.Error()
		}
		rows[i] = []string{
			strconv.Itoa(i + 1),
			s.Model,
			formatFloat(s.MAE, 4),
			formatFloat(s.RMSE, 4),
			formatFloat(s.R2, 4),
			s.FitDuration.Round(time.Millisecond).String(),
			status,
		}
	}
	return rows
}

var rankingHeaders = []string{"#", "Model", "MAE", "RMSE", "R2", "Fit", "Status"}

func printRanking(w io.Writer, r experiment.Ranking) {
	title(w, "Results (test set)")
	fmt.Fprintln(w, renderTable(rankingHeaders, rankingRows(r)))
	if best, ok := r.Best(); ok {
		fmt.Fprintln(w, styles.Box.Render(fmt.Sprintf("Best model (by R2) %s %s", iconArrow, best.Model)))
	}
}
