package source

import (
	"errors"
	"strings"
	"time"
)

// Precision selects how much of the filename time segment is honoured.
type Precision int

const (
	// PrecisionSecond truncates any millisecond sub-field.
	PrecisionSecond Precision = iota
	// PrecisionMillisecond keeps the optional millisecond sub-field.
	PrecisionMillisecond
)

// ParseFilenameTime extracts the capture instant encoded in a source filename.
//
// The expected micro-format is `<date>__<time>__<trailing-ignored>` where the
// date segment separates components with `_` (2024_03_01) and the time segment
// likewise (13_45_09, optionally followed by a millisecond sub-field:
// 13_45_09_321). Trailing segments are ignored.
//
// Parsing is best-effort: the second return value is false when the filename
// carries no recognizable instant, and callers fall back to the nominal
// timestamp. This function never fails loudly.
func ParseFilenameTime(name string, precision Precision) (time.Time, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.Time{}, false
	}

	segments := strings.Split(name, "__")
	if len(segments) < 2 {
		return time.Time{}, false
	}

	datePart := strings.ReplaceAll(segments[0], "_", "-")

	timeFields := strings.Split(segments[1], "_")
	if len(timeFields) < 3 {
		return time.Time{}, false
	}
	timePart := strings.Join(timeFields[:3], ":")

	parsed, err := time.Parse("2006-01-02 15:04:05", datePart+" "+timePart)
	if err != nil {
		return time.Time{}, false
	}

	if precision == PrecisionMillisecond && len(timeFields) >= 4 {
		if ms, err := parseMillis(timeFields[3]); err == nil {
			parsed = parsed.Add(time.Duration(ms) * time.Millisecond)
		}
	}

	return parsed.UTC(), true
}

func parseMillis(field string) (int, error) {
	// Strip a possible extension glued to the last sub-field (e.g. "321.jp2").
	if dot := strings.IndexByte(field, '.'); dot >= 0 {
		field = field[:dot]
	}
	ms := 0
	if field == "" {
		return 0, errNoMillis
	}
	for _, r := range field {
		if r < '0' || r > '9' {
			return 0, errNoMillis
		}
		ms = ms*10 + int(r-'0')
		if ms > 999 {
			return 0, errNoMillis
		}
	}
	return ms, nil
}

var errNoMillis = errors.New("invalid millisecond sub-field")
