package accesslog

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type warning struct {
	msg  string
	args []any
}

type recordingSink struct {
	warnings []warning
	errors   []warning
}

func (s *recordingSink) Info(string, ...any) {}

func (s *recordingSink) Warn(msg string, args ...any) {
	s.warnings = append(s.warnings, warning{msg: msg, args: args})
}

func (s *recordingSink) Error(msg string, args ...any) {
	s.errors = append(s.errors, warning{msg: msg, args: args})
}

const sampleLine = `192.168.1.10 - - [10/Oct/2023:13:55:36 +0200] "GET /index.html HTTP/1.1" 200 1043 "https://example.com/" "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"`

func TestParseLine_WellFormed(t *testing.T) {
	t.Parallel()

	rec, err := ParseLine(sampleLine)
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.10", rec.IP)
	assert.Equal(t, "GET", rec.Method)
	assert.Equal(t, "/index.html", rec.Path)
	assert.Equal(t, 200, rec.Status)
	assert.Equal(t, int64(1043), rec.Bytes)
	assert.Equal(t, "https://example.com/", rec.Referrer)
	assert.Equal(t, "Mozilla/5.0 (Windows NT 10.0; Win64; x64)", rec.UserAgent)

	want := time.Date(2023, time.October, 10, 13, 55, 36, 0, time.FixedZone("", 2*60*60))
	assert.True(t, rec.Timestamp.Equal(want), "timestamp = %v, want %v", rec.Timestamp, want)
	_, offset := rec.Timestamp.Zone()
	assert.Equal(t, 7200, offset)
	assert.Equal(t, 13, rec.Timestamp.Hour())
}

func TestParseLine_Fields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		line   string
		method string
		path   string
		status int
		bytes  int64
	}{
		{
			name:   "dash bytes",
			line:   `10.0.0.1 - - [01/Jan/2024:00:00:00 +0000] "POST /login HTTP/1.1" 302 - "-" "curl/8.0"`,
			method: "POST", path: "/login", status: 302, bytes: 0,
		},
		{
			name:   "non-numeric bytes",
			line:   `10.0.0.1 - - [01/Jan/2024:00:00:00 +0000] "GET /a HTTP/1.0" 404 n/a "-" "curl/8.0"`,
			method: "GET", path: "/a", status: 404, bytes: 0,
		},
		{
			name:   "mixed bytes token",
			line:   `10.0.0.1 - - [01/Jan/2024:00:00:00 +0000] "GET /a HTTP/1.0" 200 12k "-" "curl/8.0"`,
			method: "GET", path: "/a", status: 200, bytes: 0,
		},
		{
			name:   "unknown verb is accepted",
			line:   `10.0.0.1 - - [01/Jan/2024:00:00:00 +0000] "PROPFIND /dav HTTP/2" 207 15 "-" "curl/8.0"`,
			method: "PROPFIND", path: "/dav", status: 207, bytes: 15,
		},
		{
			name:   "path with spaces and query",
			line:   `10.0.0.1 - - [01/Jan/2024:00:00:00 +0000] "GET /search?q=a b HTTP/1.1" 200 5 "-" "curl/8.0"`,
			method: "GET", path: "/search?q=a b", status: 200, bytes: 5,
		},
		{
			name:   "ip octets are not range checked",
			line:   `999.999.999.999 - - [01/Jan/2024:00:00:00 +0000] "GET / HTTP/1.1" 500 0 "-" ""`,
			method: "GET", path: "/", status: 500, bytes: 0,
		},
		{
			name:   "trailing text after user agent",
			line:   `10.0.0.1 - - [01/Jan/2024:00:00:00 +0000] "GET / HTTP/1.1" 200 7 "-" "curl/8.0" extra=1` + "\n",
			method: "GET", path: "/", status: 200, bytes: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec, err := ParseLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.method, rec.Method)
			assert.Equal(t, tt.path, rec.Path)
			assert.Equal(t, tt.status, rec.Status)
			assert.Equal(t, tt.bytes, rec.Bytes)
		})
	}
}

func TestParseLine_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"whitespace only", "   \t"},
		{"missing quotes", `10.0.0.1 - - [01/Jan/2024:00:00:00 +0000] GET / HTTP/1.1 200 7 "-" "curl"`},
		{"missing status", `10.0.0.1 - - [01/Jan/2024:00:00:00 +0000] "GET / HTTP/1.1" 7 "-" "curl"`},
		{"four digit octet", `1000.0.0.1 - - [01/Jan/2024:00:00:00 +0000] "GET / HTTP/1.1" 200 7 "-" "curl"`},
		{"three octets", `10.0.1 - - [01/Jan/2024:00:00:00 +0000] "GET / HTTP/1.1" 200 7 "-" "curl"`},
		{"leading whitespace", ` 10.0.0.1 - - [01/Jan/2024:00:00:00 +0000] "GET / HTTP/1.1" 200 7 "-" "curl"`},
		{"bad month", `10.0.0.1 - - [01/Foo/2024:00:00:00 +0000] "GET / HTTP/1.1" 200 7 "-" "curl"`},
		{"missing offset", `10.0.0.1 - - [01/Jan/2024:00:00:00] "GET / HTTP/1.1" 200 7 "-" "curl"`},
		{"iso timestamp", `10.0.0.1 - - [2024-01-01T00:00:00Z] "GET / HTTP/1.1" 200 7 "-" "curl"`},
		{"out of range hour", `10.0.0.1 - - [01/Jan/2024:25:00:00 +0000] "GET / HTTP/1.1" 200 7 "-" "curl"`},
		{"bytes overflow", `10.0.0.1 - - [01/Jan/2024:00:00:00 +0000] "GET / HTTP/1.1" 200 99999999999999999999 "-" "curl"`},
		{"missing user agent", `10.0.0.1 - - [01/Jan/2024:00:00:00 +0000] "GET / HTTP/1.1" 200 7 "-"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseLine(tt.line)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestParser_ReportsExactlyOneWarning(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	p := NewParser(sink)

	line := "  garbage line \n"
	_, ok := p.Parse(line)
	require.False(t, ok)
	require.Len(t, sink.warnings, 1)
	assert.Empty(t, sink.errors)

	w := sink.warnings[0]
	assert.Equal(t, "Malformed log line", w.msg)
	require.GreaterOrEqual(t, len(w.args), 2)
	assert.Equal(t, "line", w.args[0])
	assert.Equal(t, "garbage line", w.args[1])
}

func TestParser_TimestampFailureIsOneWarning(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	p := NewParser(sink)

	_, ok := p.Parse(`10.0.0.1 - - [31/Feb/2024:00:00:00 +0000] "GET / HTTP/1.1" 200 7 "-" "curl"`)
	assert.False(t, ok)
	assert.Len(t, sink.warnings, 1)
}

func TestParser_WellFormedIsSilent(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	p := NewParser(sink)

	rec, ok := p.Parse(sampleLine)
	require.True(t, ok)
	assert.Equal(t, "192.168.1.10", rec.IP)
	assert.Empty(t, sink.warnings)
}

func TestParser_NilSink(t *testing.T) {
	t.Parallel()

	p := NewParser(nil)
	_, ok := p.Parse("nope")
	assert.False(t, ok)
}

func TestParseLine_RoundTripsGeneratedLines(t *testing.T) {
	t.Parallel()

	methods := []string{"GET", "POST", "PUT", "DELETE"}
	for i, method := range methods {
		ts := time.Date(2024, time.March, 5, i, 30, 0, 0, time.UTC)
		line := fmt.Sprintf(`10.0.0.%d - - [%s] "%s /products HTTP/1.1" 201 %d "-" "Mozilla/5.0 (X11; Linux x86_64)"`,
			i, ts.Format(TimestampLayout), method, 100+i)

		rec, err := ParseLine(line)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("10.0.0.%d", i), rec.IP)
		assert.Equal(t, method, rec.Method)
		assert.True(t, rec.Timestamp.Equal(ts))
		assert.Equal(t, int64(100+i), rec.Bytes)
	}
}
