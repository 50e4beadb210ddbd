package schedule

import (
	"fmt"
	"regexp"
	"time"
)

// Business hours and booking granularity. Process-wide; rooms have no
// per-room overrides.
const (
	OpenMin     = 8*60 + 30 // 08:30
	CloseMin    = 19 * 60   // 19:00
	SlotMinutes = 30
)

var (
	dateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	clockRe = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// ParseDate accepts only the literal YYYY-MM-DD pattern and rejects
// impossible calendar dates. Dates are compared as opaque strings, never as
// timezone-aware instants, so the canonical string is returned as-is.
func ParseDate(s string) (string, error) {
	if !dateRe.MatchString(s) {
		return "", fmt.Errorf("invalid date format %q; expected YYYY-MM-DD", s)
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return "", fmt.Errorf("invalid date %q", s)
	}
	return s, nil
}

// ParseClock accepts only HH:MM and converts to minutes since midnight.
func ParseClock(s string) (int, error) {
	if !clockRe.MatchString(s) {
		return 0, fmt.Errorf("invalid time format %q; expected HH:MM", s)
	}
	hh := int(s[0]-'0')*10 + int(s[1]-'0')
	mm := int(s[3]-'0')*10 + int(s[4]-'0')
	if hh > 23 || mm > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return hh*60 + mm, nil
}

// FormatClock renders minutes since midnight as HH:MM.
func FormatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// Interval is a half-open time range [Start, End) in minutes since midnight.
// Half-open so that back-to-back bookings share a boundary without
// overlapping.
type Interval struct {
	Start int
	End   int
}

// NewInterval builds an interval, rejecting empty or inverted ranges.
func NewInterval(start, end int) (Interval, error) {
	if start >= end {
		return Interval{}, ErrRangeInvalid
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps reports whether two half-open intervals intersect:
// a.Start < b.End && a.End > b.Start. This inequality is the single
// authoritative overlap test; every call site must use it rather than
// re-derive its own.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start < other.End && i.End > other.Start
}

// Duration returns the interval length in minutes.
func (i Interval) Duration() int {
	return i.End - i.Start
}
