package description

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Date is a calendar date without time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

var strictDatePattern = regexp.MustCompile(`^(\d{2})\.(\d{2})\.(\d{4})$`)

// ParseDate parses a DD.MM.YYYY value.
// It only succeeds for real calendar dates: "31.02.2024" is rejected.
func ParseDate(s string) (Date, bool) {
	m := strictDatePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Date{}, false
	}
	return newDate(m[3], m[2], m[1])
}

// newDate builds a Date from decimal year, month and day strings.
func newDate(year, month, day string) (Date, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return Date{}, false
	}
	mo, err := strconv.Atoi(month)
	if err != nil {
		return Date{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return Date{}, false
	}
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return Date{}, false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || t.Month() != time.Month(mo) || t.Day() != d {
		return Date{}, false
	}
	return Date{Year: y, Month: time.Month(mo), Day: d}, true
}

// String formats the date as DD.MM.YYYY.
func (d Date) String() string {
	return fmt.Sprintf("%02d.%02d.%04d", d.Day, int(d.Month), d.Year)
}

// placeholders are values that mean "no date yet". Compared case-insensitively.
var placeholders = map[string]bool{
	"":                true,
	"tba":             true,
	"tbd":             true,
	"-":               true,
	"n/a":             true,
	"dd.mm.yyyy":      true,
	"tt.mm.jjjj":      true,
	"not specified":   true,
	"nicht angegeben": true,
	"keine angabe":    true,
	"unknown":         true,
	"unbekannt":       true,
}

// PlaceholderValue is the spelling placeholders are normalized to.
const PlaceholderValue = "tba"

// IsPlaceholder reports whether a date value means "not yet known".
func IsPlaceholder(value string) bool {
	return placeholders[strings.ToLower(strings.TrimSpace(value))]
}

var (
	looseDatePattern = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`)
	isoDatePattern   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	slashDatePattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

// normalizeDateValue rewrites a date value to DD.MM.YYYY or the placeholder.
// Values it cannot interpret are returned unchanged.
func normalizeDateValue(value string) string {
	v := strings.TrimSpace(value)
	if IsPlaceholder(v) {
		return PlaceholderValue
	}
	if d, ok := ParseDate(v); ok {
		return d.String()
	}
	if m := looseDatePattern.FindStringSubmatch(v); m != nil {
		if d, ok := newDate(m[3], m[2], m[1]); ok {
			return d.String()
		}
	}
	if m := isoDatePattern.FindStringSubmatch(v); m != nil {
		if d, ok := newDate(m[1], m[2], m[3]); ok {
			return d.String()
		}
	}
	if m := slashDatePattern.FindStringSubmatch(v); m != nil {
		if d, ok := newDate(m[3], m[2], m[1]); ok {
			return d.String()
		}
	}
	return v
}
