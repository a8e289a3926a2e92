// Package dates implements the calendar arithmetic used by periods,
// schedules and the date functions: canonical YYYY-MM-DD normalization,
// month-end clamping and day-count conventions.
package dates

import (
	"regexp"
	"strings"
	"time"

	"github.com/itchyny/timefmt-go"
)

// Layout is the canonical wire format for dates.
const Layout = "2006-01-02"

// patterns are tried in order after the canonical form fails. Fractional
// seconds are stripped before matching so they need no pattern of their own.
var patterns = []string{
	"%Y-%m-%dT%H:%M:%S",
	"%Y-%m-%d %H:%M:%S",
	"%Y-%m-%dT%H:%M:%SZ",
	"%m/%d/%Y",
	"%d/%m/%Y",
}

var fraction = regexp.MustCompile(`(\d{2}:\d{2}:\d{2})\.\d+`)

// Parse parses a value into a date. Only values that normalize to a
// canonical date succeed.
func Parse(v any) (time.Time, bool) {
	s := Normalize(v)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// MustParse parses a canonical date and panics on failure. Intended for
// tests and constants.
func MustParse(s string) time.Time {
	t, err := time.Parse(Layout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// Format renders t in the canonical layout.
func Format(t time.Time) string {
	return timefmt.Format(t, "%Y-%m-%d")
}

// Normalize converts v to YYYY-MM-DD. Anything that is not recognizably a
// date yields "". Normalize(Normalize(v)) == Normalize(v) for every v.
func Normalize(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return Format(x)
	case *time.Time:
		if x == nil {
			return Normalize(nil)
		}
		return Normalize(*x)
	case string:
		return normalizeString(x)
	}
	return ""
}

func normalizeString(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == "None" || s == "none" || s == "null" {
		return ""
	}
	if canonical(s) {
		return s
	}
	stripped := fraction.ReplaceAllString(s, "$1")
	for _, p := range patterns {
		if t, err := timefmt.Parse(stripped, p); err == nil {
			return Format(t)
		}
	}
	if i := strings.IndexAny(s, "T "); i > 0 {
		if head := s[:i]; canonical(head) {
			return head
		}
	}
	return ""
}

func canonical(s string) bool {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return false
	}
	_, err := time.Parse(Layout, s)
	return err == nil
}

// IsLeapYear reports whether year is a Gregorian leap year.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddDays shifts t by n days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// AddMonths shifts t by n months, clamping the day to the end of the target
// month when it does not exist there (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	total := int(t.Month()) - 1 + n
	year := t.Year() + floorDiv(total, 12)
	month := time.Month(floorMod(total, 12) + 1)
	day := t.Day()
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// AddYears shifts t by n years; Feb 29 maps to Feb 28 in non-leap years.
func AddYears(t time.Time, n int) time.Time {
	return AddMonths(t, 12*n)
}

// StartOfMonth returns the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// EndOfMonth returns the last day of t's month.
func EndOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), DaysInMonth(t.Year(), t.Month()), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the signed number of days from a to b.
func DaysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// Weekday returns the ISO-style weekday index with Monday as 0.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// BusinessDays counts weekdays over the absolute distance between a and b:
// whole weeks contribute five days and the remainder is walked day by day
// forward from a.
func BusinessDays(a, b time.Time) int {
	days := DaysBetween(a, b)
	if days < 0 {
		days = -days
	}
	weeks, rest := days/7, days%7
	count := weeks * 5
	start := Weekday(a)
	for i := 0; i < rest; i++ {
		if (start+i)%7 < 5 {
			count++
		}
	}
	return count
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
