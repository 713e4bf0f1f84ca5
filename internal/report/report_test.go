package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tinytelemetry/logsight/internal/model"
)

type fakeQuerier struct {
	ips      []model.IPCount
	statuses []model.StatusShare
	hours    []model.HourCount
	pages    []model.PathCount
	err      error

	gotLimit int
}

func (f *fakeQuerier) TopIPs(_ context.Context, limit int) ([]model.IPCount, error) {
	f.gotLimit = limit
	if limit < len(f.ips) {
		return f.ips[:limit], f.err
	}
	return f.ips, f.err
}

func (f *fakeQuerier) StatusCodeDistribution(context.Context) ([]model.StatusShare, error) {
	return f.statuses, f.err
}

func (f *fakeQuerier) HourlyTraffic(context.Context) ([]model.HourCount, error) {
	return f.hours, f.err
}

func (f *fakeQuerier) TopPages(_ context.Context, limit int) ([]model.PathCount, error) {
	f.gotLimit = limit
	return f.pages, f.err
}

func sampleQuerier() *fakeQuerier {
	return &fakeQuerier{
		ips: []model.IPCount{{IP: "10.0.0.1", Count: 5}, {IP: "10.0.0.2", Count: 3}, {IP: "10.0.0.3", Count: 1}},
		statuses: []model.StatusShare{
			{StatusCode: 200, Count: 2, Percentage: 66.67},
			{StatusCode: 404, Count: 1, Percentage: 33.33},
		},
		hours: []model.HourCount{{Hour: 9, Count: 4}, {Hour: 17, Count: 2}},
		pages: []model.PathCount{{Path: "/", Count: 7}},
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	for _, k := range Kinds {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := ParseKind("top_browsers")
	assert.ErrorIs(t, err, ErrUnsupportedReport)
}

func TestGenerate_Columns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind    Kind
		columns []string
		rows    int
	}{
		{TopIPs, []string{"ip", "request_count"}, 2},
		{StatusCodeDistribution, []string{"status_code", "count", "percentage"}, 2},
		{HourlyTraffic, []string{"hour", "request_count"}, 2},
		{TopPages, []string{"path", "request_count"}, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()
			res, err := Generate(context.Background(), sampleQuerier(), tt.kind, 2)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, res.Kind)
			assert.Equal(t, tt.columns, res.Columns)
			assert.Len(t, res.Rows, tt.rows)
		})
	}
}

func TestGenerate_TopIPsRows(t *testing.T) {
	t.Parallel()

	res, err := Generate(context.Background(), sampleQuerier(), TopIPs, 2)
	require.NoError(t, err)

	assert.Equal(t, []map[string]any{
		{"ip": "10.0.0.1", "request_count": int64(5)},
		{"ip": "10.0.0.2", "request_count": int64(3)},
	}, res.Maps())
}

func TestGenerate_DefaultLimit(t *testing.T) {
	t.Parallel()

	q := sampleQuerier()
	_, err := Generate(context.Background(), q, TopPages, 0)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultReportLimit, q.gotLimit)
}

func TestGenerate_Errors(t *testing.T) {
	t.Parallel()

	q := &fakeQuerier{err: errors.New("connection reset")}
	_, err := Generate(context.Background(), q, HourlyTraffic, 5)
	assert.EqualError(t, err, "connection reset")

	_, err = Generate(context.Background(), sampleQuerier(), Kind("nope"), 5)
	assert.ErrorIs(t, err, ErrUnsupportedReport)
}

func TestRender_Table(t *testing.T) {
	t.Parallel()

	res, err := Generate(context.Background(), sampleQuerier(), StatusCodeDistribution, 5)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, res, FormatTable))

	out := buf.String()
	for _, want := range []string{"status_code", "count", "percentage", "200", "66.67", "404", "33.33"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "200"), strings.Index(out, "404"))
}

func TestRender_EmptyTableHasHeaders(t *testing.T) {
	t.Parallel()

	res, err := Generate(context.Background(), &fakeQuerier{}, TopIPs, 5)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, res, FormatTable))
	assert.Contains(t, buf.String(), "request_count")
}

func TestRender_JSON(t *testing.T) {
	t.Parallel()

	res, err := Generate(context.Background(), sampleQuerier(), HourlyTraffic, 5)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, res, FormatJSON))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, float64(9), got[0]["hour"])
	assert.Equal(t, float64(4), got[0]["request_count"])
	assert.True(t, strings.HasPrefix(buf.String(), "[\n  {\n    \"hour\""))
}

func TestRender_EmptyJSONIsArray(t *testing.T) {
	t.Parallel()

	res, err := Generate(context.Background(), &fakeQuerier{}, TopPages, 5)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, res, FormatJSON))
	assert.Equal(t, "[]\n", buf.String())
}

func TestRender_YAML(t *testing.T) {
	t.Parallel()

	res, err := Generate(context.Background(), sampleQuerier(), TopPages, 5)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, res, FormatYAML))
	assert.Equal(t, "- path: /\n  request_count: 7\n", buf.String())

	var got []model.PathCount
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []model.PathCount{{Path: "/", Count: 7}}, got)
}

func TestRender_Chart(t *testing.T) {
	t.Parallel()

	res, err := Generate(context.Background(), sampleQuerier(), TopIPs, 3)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, res, FormatChart))
	out := buf.String()
	assert.Contains(t, out, "10.0.0.1")
	assert.Contains(t, out, "10.0.0.3")
}

func TestRender_ChartEmpty(t *testing.T) {
	t.Parallel()

	res, err := Generate(context.Background(), &fakeQuerier{}, HourlyTraffic, 5)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, res, FormatChart))
	assert.Equal(t, "No data.\n", buf.String())
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Format{"": FormatTable, "JSON": FormatJSON, "chart": FormatChart, " yaml ": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("csv")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	err = Render(&bytes.Buffer{}, Result{}, Format("csv"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
