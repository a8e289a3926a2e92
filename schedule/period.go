// Package schedule generates time axes and the row-by-row schedules built on
// them: amortization, revenue recognition, accruals and depreciation tables
// whose columns are DSL expressions.
package schedule

import (
	"errors"
	"time"

	"github.com/robinvdvleuten/ledgerscript/dates"
	"github.com/robinvdvleuten/ledgerscript/value"
)

// Frequencies understood by NewPeriod. Anything else steps monthly.
const (
	Daily     = "D"
	Weekly    = "W"
	Monthly   = "M"
	Quarterly = "Q"
	Annual    = "A"
)

// Period is a concrete time axis between two dates.
type Period struct {
	Start      string
	End        string
	Freq       string
	Convention string
	Dates      []string
}

// PeriodArray defers axis construction to multi-item expansion: one axis
// per start/end pair.
type PeriodArray struct {
	StartDates []any
	EndDates   []any
	Freq       string
	Convention string
}

// NewPeriod builds the axis from start to end inclusive. An unusable start
// or end yields a period without dates.
//
// Monthly and quarterly steps compound the month-end clamp: starting on Jan
// 31 the axis runs Jan 31, Feb 29, Mar 29, Apr 29.
func NewPeriod(start, end any, freq, convention string) *Period {
	p := &Period{
		Start:      dateText(start),
		End:        dateText(end),
		Freq:       freq,
		Convention: convention,
		Dates:      []string{},
	}
	from, ok1 := dates.Parse(start)
	to, ok2 := dates.Parse(end)
	if !ok1 || !ok2 {
		return p
	}
	for cur := from; !cur.After(to); cur = step(cur, freq) {
		p.Dates = append(p.Dates, dates.Format(cur))
	}
	return p
}

// NewPeriodArray pairs start and end dates for per-item axes.
func NewPeriodArray(starts, ends []any, freq, convention string) (*PeriodArray, error) {
	if len(starts) != len(ends) {
		return nil, errors.New("start and end arrays must have the same length")
	}
	return &PeriodArray{StartDates: starts, EndDates: ends, Freq: freq, Convention: convention}, nil
}

// step advances t by one period. Every branch moves strictly forward.
func step(t time.Time, freq string) time.Time {
	switch freq {
	case Daily:
		return dates.AddDays(t, 1)
	case Weekly:
		return dates.AddDays(t, 7)
	case Quarterly:
		return dates.AddMonths(t, 3)
	case Annual:
		return dates.AddYears(t, 1)
	}
	return dates.AddMonths(t, 1)
}

func dateText(v any) string {
	if v == nil {
		return ""
	}
	return value.Str(v)
}

// Get exposes the period to expressions as p["dates"], p["freq"] and so on.
func (p *Period) Get(key string) (any, bool) {
	return p.dict().Get(key)
}

func (p *Period) dict() *value.Dict {
	ds := make([]any, len(p.Dates))
	for i, d := range p.Dates {
		ds[i] = d
	}
	return value.DictOf(
		"type", "period",
		"start", p.Start,
		"end", p.End,
		"freq", p.Freq,
		"convention", p.Convention,
		"dates", ds,
	)
}

func (p *Period) String() string { return value.Repr(p.dict()) }

// MarshalJSON encodes the period as its dict form.
func (p *Period) MarshalJSON() ([]byte, error) { return p.dict().MarshalJSON() }

// Get exposes the period array to expressions.
func (p *PeriodArray) Get(key string) (any, bool) {
	return p.dict().Get(key)
}

func (p *PeriodArray) dict() *value.Dict {
	return value.DictOf(
		"type", "period_array",
		"start_dates", p.StartDates,
		"end_dates", p.EndDates,
		"freq", p.Freq,
		"convention", p.Convention,
	)
}

func (p *PeriodArray) String() string { return value.Repr(p.dict()) }

// MarshalJSON encodes the period array as its dict form.
func (p *PeriodArray) MarshalJSON() ([]byte, error) { return p.dict().MarshalJSON() }

// MarshalYAML encodes the period as its dict form.
func (p *Period) MarshalYAML() (interface{}, error) { return p.dict(), nil }
