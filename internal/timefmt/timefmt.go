// Package timefmt normalizes provider timestamps into a (date, time) pair.
package timefmt

import (
	"fmt"
	"strings"
	"time"
)

// Output layouts.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// layouts are tried in order after any fractional-second suffix has been
// stripped. The first successful parse wins.
var layouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// UnparseableTimestampError reports a timestamp that matched no known layout.
type UnparseableTimestampError struct {
	Value string
}

func (e *UnparseableTimestampError) Error() string {
	return fmt.Sprintf("timefmt: unparseable timestamp %q", e.Value)
}

// Standardize converts a timestamp into "YYYY-MM-DD" and "HH:MM:SS". It
// accepts time.Time, *time.Time, or a string in one of the known layouts.
// Wall-clock time is kept as written; offsets are not applied.
func Standardize(v any) (string, string, error) {
	t, err := Parse(v)
	if err != nil {
		return "", "", err
	}
	return t.Format(DateLayout), t.Format(TimeLayout), nil
}

// Parse is Standardize without the formatting step.
func Parse(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case *time.Time:
		if t == nil {
			return time.Time{}, &UnparseableTimestampError{Value: "<nil>"}
		}
		return *t, nil
	case string:
		return parseString(t)
	default:
		return time.Time{}, &UnparseableTimestampError{Value: fmt.Sprint(v)}
	}
}

func parseString(s string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	if i := strings.Index(trimmed, "."); i >= 0 {
		trimmed = trimmed[:i]
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &UnparseableTimestampError{Value: s}
}
