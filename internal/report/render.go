package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

// Format selects how a Result is written.
type Format string

const (
	FormatTable Format = "table"
	FormatChart Format = "chart"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ErrUnsupportedFormat is returned for an unknown output format.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// ParseFormat maps a format name to a Format. Empty selects FormatTable.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatChart, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

const chartWidth = 60

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Background(lipgloss.Color("39"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
)

// Render writes res to w in the given format.
func Render(w io.Writer, res Result, format Format) error {
	switch format {
	case "", FormatTable:
		return renderTable(w, res)
	case FormatChart:
		return renderChart(w, res)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Data)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res.Data); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// renderTable draws a grid with a header row and a rule between data rows.
func renderTable(w io.Writer, res Result) error {
	rows := make([][]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cell(v)
		}
		rows = append(rows, cells)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(true).
		Headers(res.Columns...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	_, err := fmt.Fprintln(w, t.String())
	return err
}

// renderChart draws a horizontal bar per row using the first column as the
// label and the second as the value, followed by a plain legend.
func renderChart(w io.Writer, res Result) error {
	if len(res.Rows) == 0 {
		_, err := fmt.Fprintln(w, "No data.")
		return err
	}

	bc := barchart.New(chartWidth, len(res.Rows)*2-1,
		barchart.WithHorizontalBars(),
		barchart.WithBarGap(1),
		barchart.WithBarWidth(1),
		barchart.WithNoAxis(),
	)
	for _, row := range res.Rows {
		bc.Push(barchart.BarData{
			Label: cell(row[0]),
			Values: []barchart.BarValue{
				{Name: res.Columns[1], Value: value(row[1]), Style: barStyle},
			},
		})
	}
	bc.Draw()

	var b strings.Builder
	b.WriteString(bc.View())
	b.WriteByte('\n')

	labelWidth := 0
	for _, row := range res.Rows {
		labelWidth = max(labelWidth, len(cell(row[0])))
	}
	for _, row := range res.Rows {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-*s %s", labelWidth, cell(row[0]), cell(row[1]))))
		b.WriteByte('\n')
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func value(v any) float64 {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case float64:
		return x
	}
	return 0
}
