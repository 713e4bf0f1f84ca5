// Package report turns the store's aggregate queries into named reports and
// renders them for terminals and machines.
package report

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/tinytelemetry/logsight/internal/model"
)

// Kind names a report.
type Kind string

const (
	TopIPs                 Kind = "top_n_ips"
	StatusCodeDistribution Kind = "status_code_distribution"
	HourlyTraffic          Kind = "hourly_traffic"
	TopPages               Kind = "top_n_pages"
)

// ErrUnsupportedReport is returned for a report name outside Kinds.
var ErrUnsupportedReport = errors.New("unsupported report type")

// Kinds lists every report in display order.
var Kinds = []Kind{TopIPs, StatusCodeDistribution, HourlyTraffic, TopPages}

// ParseKind maps a report name to its Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedReport, name)
}

// Result is a generated report. Rows hold raw cell values in Columns order;
// Data holds the same rows as typed model values.
type Result struct {
	Kind    Kind
	Columns []string
	Rows    [][]any
	Data    any
}

// Maps returns each row keyed by column name, preserving row order.
func (r Result) Maps() []map[string]any {
	out := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		m := make(map[string]any, len(r.Columns))
		for i, col := range r.Columns {
			m[col] = row[i]
		}
		out = append(out, m)
	}
	return out
}

// Generate runs the query behind kind. n bounds the top-N reports; n <= 0
// selects the default.
func Generate(ctx context.Context, q model.ReportQuerier, kind Kind, n int) (Result, error) {
	if n <= 0 {
		n = model.DefaultReportLimit
	}

	switch kind {
	case TopIPs:
		items, err := q.TopIPs(ctx, n)
		if err != nil {
			return Result{}, err
		}
		if items == nil {
			items = []model.IPCount{}
		}
		res := Result{Kind: kind, Columns: []string{"ip", "request_count"}, Data: items}
		for _, it := range items {
			res.Rows = append(res.Rows, []any{it.IP, it.Count})
		}
		return res, nil

	case StatusCodeDistribution:
		items, err := q.StatusCodeDistribution(ctx)
		if err != nil {
			return Result{}, err
		}
		if items == nil {
			items = []model.StatusShare{}
		}
		res := Result{Kind: kind, Columns: []string{"status_code", "count", "percentage"}, Data: items}
		for _, it := range items {
			res.Rows = append(res.Rows, []any{it.StatusCode, it.Count, it.Percentage})
		}
		return res, nil

	case HourlyTraffic:
		items, err := q.HourlyTraffic(ctx)
		if err != nil {
			return Result{}, err
		}
		if items == nil {
			items = []model.HourCount{}
		}
		res := Result{Kind: kind, Columns: []string{"hour", "request_count"}, Data: items}
		for _, it := range items {
			res.Rows = append(res.Rows, []any{it.Hour, it.Count})
		}
		return res, nil

	case TopPages:
		items, err := q.TopPages(ctx, n)
		if err != nil {
			return Result{}, err
		}
		if items == nil {
			items = []model.PathCount{}
		}
		res := Result{Kind: kind, Columns: []string{"path", "request_count"}, Data: items}
		for _, it := range items {
			res.Rows = append(res.Rows, []any{it.Path, it.Count})
		}
		return res, nil
	}

	return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedReport, kind)
}

// cell formats one value for text output.
func cell(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', 2, 64)
	default:
		return fmt.Sprint(x)
	}
}
