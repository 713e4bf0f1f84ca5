// Package accesslog parses combined-format web server access log lines.
package accesslog

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tinytelemetry/logsight/internal/model"
)

// TimestampLayout is the bracketed timestamp layout, e.g. 10/Oct/2023:13:55:36 +0000.
const TimestampLayout = "02/Jan/2006:15:04:05 -0700"

// ErrMalformed marks a line that failed pattern matching or type coercion.
var ErrMalformed = errors.New("malformed log line")

// linePattern is anchored at the start of the line only; trailing text is ignored.
var linePattern = regexp.MustCompile(
	`^(\d{1,3}(?:\.\d{1,3}){3}) - - \[([^\]]+)\] ` +
		`"(\S+) ([^"]+?) HTTP/[\d.]+" ` +
		`(\d{3}) (\S+) "([^"]*)" "([^"]*)"`,
)

const (
	groupIP = iota + 1
	groupTimestamp
	groupMethod
	groupPath
	groupStatus
	groupBytes
	groupReferrer
	groupUserAgent
)

// ParseLine converts one log line into a record.
// It returns an error wrapping ErrMalformed when the line does not match or a
// field cannot be coerced.
func ParseLine(line string) (model.LogRecord, error) {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return model.LogRecord{}, fmt.Errorf("%w: line does not match access log pattern", ErrMalformed)
	}

	ts, err := time.Parse(TimestampLayout, m[groupTimestamp])
	if err != nil {
		return model.LogRecord{}, fmt.Errorf("%w: timestamp %q: %v", ErrMalformed, m[groupTimestamp], err)
	}

	status, err := strconv.Atoi(m[groupStatus])
	if err != nil {
		return model.LogRecord{}, fmt.Errorf("%w: status %q: %v", ErrMalformed, m[groupStatus], err)
	}

	bytes, err := parseBytes(m[groupBytes])
	if err != nil {
		return model.LogRecord{}, fmt.Errorf("%w: bytes %q: %v", ErrMalformed, m[groupBytes], err)
	}

	return model.LogRecord{
		IP:        m[groupIP],
		Timestamp: ts,
		Method:    m[groupMethod],
		Path:      m[groupPath],
		Status:    status,
		Bytes:     bytes,
		Referrer:  m[groupReferrer],
		UserAgent: m[groupUserAgent],
	}, nil
}

// parseBytes returns 0 for "-" and any token that is not all digits.
func parseBytes(tok string) (int64, error) {
	if !isDigits(tok) {
		return 0, nil
	}
	return strconv.ParseInt(tok, 10, 64)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Parser reports malformed lines to a sink instead of returning errors.
type Parser struct {
	sink model.Sink
}

// NewParser creates a parser that reports malformed lines to sink.
// A nil sink discards diagnostics.
func NewParser(sink model.Sink) *Parser {
	if sink == nil {
		sink = model.DiscardSink{}
	}
	return &Parser{sink: sink}
}

// Parse returns the record for line and true, or a zero record and false after
// emitting exactly one warning.
func (p *Parser) Parse(line string) (model.LogRecord, bool) {
	rec, err := ParseLine(line)
	if err != nil {
		p.sink.Warn("Malformed log line", "line", strings.TrimSpace(line), "error", err)
		return model.LogRecord{}, false
	}
	return rec, true
}
