package dates

import (
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{name: "canonical", input: "2024-01-15", want: "2024-01-15"},
		{name: "padded canonical", input: "  2024-01-15 ", want: "2024-01-15"},
		{name: "iso datetime", input: "2024-01-15T10:30:00", want: "2024-01-15"},
		{name: "iso datetime with fraction", input: "2024-01-15T10:30:00.123456", want: "2024-01-15"},
		{name: "space datetime", input: "2024-01-15 10:30:00", want: "2024-01-15"},
		{name: "zulu", input: "2024-01-15T10:30:00Z", want: "2024-01-15"},
		{name: "us format", input: "01/15/2024", want: "2024-01-15"},
		{name: "european format", input: "15/01/2024", want: "2024-01-15"},
		{name: "time value", input: time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), want: "2024-02-29"},
		{name: "nil", input: nil, want: ""},
		{name: "empty", input: "", want: ""},
		{name: "none string", input: "None", want: ""},
		{name: "garbage", input: "not a date", want: ""},
		{name: "out of range", input: "2024-13-45", want: ""},
		{name: "number", input: 42.0, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got), "normalization must be idempotent")
		})
	}
}

func TestAddMonthsClampsToMonthEnd(t *testing.T) {
	tests := []struct {
		start string
		n     int
		want  string
	}{
		{"2024-01-31", 1, "2024-02-29"},
		{"2023-01-31", 1, "2023-02-28"},
		{"2024-03-31", 1, "2024-04-30"},
		{"2024-11-30", 3, "2025-02-28"},
		{"2024-03-31", -1, "2024-02-29"},
		{"2024-01-15", -13, "2022-12-15"},
	}

	for _, tt := range tests {
		t.Run(tt.start, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(AddMonths(MustParse(tt.start), tt.n)))
		})
	}
}

func TestAddYearsLeapDay(t *testing.T) {
	assert.Equal(t, "2025-02-28", Format(AddYears(MustParse("2024-02-29"), 1)))
	assert.Equal(t, "2028-02-29", Format(AddYears(MustParse("2024-02-29"), 4)))
}

func TestDayCountFraction(t *testing.T) {
	a := MustParse("2024-01-01")
	b := MustParse("2024-07-01")

	assert.Equal(t, 182.0/360, DayCountFraction(a, b, Actual360))
	assert.Equal(t, 182.0/365, DayCountFraction(a, b, Actual365))
	assert.Equal(t, 0.5, DayCountFraction(a, b, Thirty360))
	assert.Equal(t, 182.0/365.25, DayCountFraction(a, b, "ACT/ACT"))
	assert.Equal(t, 182.0/360, DayCountFraction(b, a, Actual360))
}

func TestBusinessDays(t *testing.T) {
	// 2024-01-01 is a Monday.
	assert.Equal(t, 5, BusinessDays(MustParse("2024-01-01"), MustParse("2024-01-08")))
	assert.Equal(t, 4, BusinessDays(MustParse("2024-01-01"), MustParse("2024-01-05")))
	assert.Equal(t, 0, BusinessDays(MustParse("2024-01-06"), MustParse("2024-01-08")))
}

func TestWeekday(t *testing.T) {
	assert.Equal(t, 0, Weekday(MustParse("2024-01-01")))
	assert.Equal(t, 6, Weekday(MustParse("2024-01-07")))
}
