// Package format turns raw record values into display strings.
package format

import (
	"reflect"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/trezcool/masomo-console/core/record"
)

const (
	// DefaultFallback is shown for absent values.
	DefaultFallback = "Not Available"
	// DefaultLayout renders dates as MM/DD/YYYY.
	DefaultLayout = "01/02/2006"

	// strictMinDateLen is the minimum length the record-card variant requires before trying a date parse.
	strictMinDateLen = 8
)

// Formatter formats values for display. The zero value uses DefaultLayout in time.Local.
type Formatter struct {
	Layout   string
	Location *time.Location
}

var std = Formatter{}

// Format formats v with the package default Formatter.
func Format(v interface{}, fallback ...string) string { return std.Format(v, fallback...) }

// FormatStrict formats v with the package default Formatter, using the stricter date heuristic.
func FormatStrict(v interface{}, fallback ...string) string { return std.FormatStrict(v, fallback...) }

// FormatActive renders a boolean flag as "active" or "inactive".
func FormatActive(v interface{}, fallback ...string) string {
	switch t := v.(type) {
	case bool:
		if t {
			return "active"
		}
		return "inactive"
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "active":
			return "active"
		case "false", "0", "inactive":
			return "inactive"
		}
	}
	return Format(v, fallback...)
}

// Format converts v into a human-readable string:
//   - nil and "" give the fallback ("Not Available" by default);
//   - slices are joined with ", " (fallback when that yields "");
//   - strings holding a "-" or "/" that parse as a date are rendered with the Layout;
//   - anything else uses the default string conversion.
//
// The date check is a heuristic: an id such as "2023-01" may be shown as a date.
func (f Formatter) Format(v interface{}, fallback ...string) string {
	return f.format(v, 0, fallback)
}

// FormatStrict is Format for record cards: date candidates must also be at least 8 characters long.
func (f Formatter) FormatStrict(v interface{}, fallback ...string) string {
	return f.format(v, strictMinDateLen, fallback)
}

func (f Formatter) format(v interface{}, minDateLen int, fallback []string) string {
	fb := DefaultFallback
	if len(fallback) > 0 {
		fb = fallback[0]
	}

	switch t := v.(type) {
	case nil:
		return fb
	case string:
		if t == "" {
			return fb
		}
		if looksLikeDate(t, minDateLen) {
			if tm, ok := f.parseDate(t); ok {
				if s := tm.In(f.location()).Format(f.layout()); s != "" {
					return s
				}
				return fb
			}
		}
		return t
	case []string:
		return orFallback(strings.Join(t, ", "), fb)
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, record.Stringify(e))
		}
		return orFallback(strings.Join(parts, ", "), fb)
	}

	// other slice types
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			parts = append(parts, record.Stringify(rv.Index(i).Interface()))
		}
		return orFallback(strings.Join(parts, ", "), fb)
	}
	return orFallback(record.Stringify(v), fb)
}

// ParseDate parses s with the generic date parser in the Formatter's location.
func (f Formatter) ParseDate(s string) (time.Time, bool) {
	return f.parseDate(s)
}

func (f Formatter) parseDate(s string) (time.Time, bool) {
	tm, err := dateparse.ParseIn(strings.TrimSpace(s), f.location())
	if err != nil {
		return time.Time{}, false
	}
	return tm, true
}

func (f Formatter) layout() string {
	if f.Layout == "" {
		return DefaultLayout
	}
	return f.Layout
}

func (f Formatter) location() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}

func looksLikeDate(s string, minLen int) bool {
	if len(s) < minLen {
		return false
	}
	return strings.ContainsAny(s, "-/")
}

func orFallback(s, fb string) string {
	if s == "" {
		return fb
	}
	return s
}
