package functions

import (
	"math"
	"time"

	"github.com/robinvdvleuten/ledgerscript/dates"
	"github.com/robinvdvleuten/ledgerscript/interp"
)

// Date functions never fail on bad dates: an unusable date yields "" for
// date results, 0 for numeric ones and False for predicates.
func dateFuncs() []*interp.Function {
	return []*interp.Function{
		def("normalize_date", "Normalize a date to YYYY-MM-DD; \"\" when it is not a date.", ps("date_value"), func(c *call) (any, error) {
			return dates.Normalize(c.arg(0)), nil
		}),
		def("days_between", "Absolute days between two dates.", ps("d1", "d2"), func(c *call) (any, error) {
			a, b, ok := c.datePair(0, 1)
			if !ok {
				return 0.0, nil
			}
			return float64(absInt(dates.DaysBetween(a, b))), nil
		}),
		def("days_to_next", "Signed days from the current date to the next one; default when either is missing.",
			ps("current_date", "next_date", opt("default", 0.0)), func(c *call) (any, error) {
				a, b, ok := c.datePair(0, 1)
				if !ok {
					return c.arg(2), nil
				}
				return float64(dates.DaysBetween(a, b)), nil
			}),
		def("months_between", "Absolute calendar months between two dates.", ps("d1", "d2"), func(c *call) (any, error) {
			a, b, ok := c.datePair(0, 1)
			if !ok {
				return 0.0, nil
			}
			months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
			return float64(absInt(months)), nil
		}),
		def("years_between", "Days between divided by 365.25.", ps("d1", "d2"), func(c *call) (any, error) {
			a, b, ok := c.datePair(0, 1)
			if !ok {
				return 0.0, nil
			}
			return float64(absInt(dates.DaysBetween(a, b))) / 365.25, nil
		}),
		shiftFunc("add_days", "Add n days to a date.", dates.AddDays, 1),
		shiftFunc("add_months", "Add n months, clamping to the end of the target month.", dates.AddMonths, 1),
		shiftFunc("add_years", "Add n years; Feb 29 becomes Feb 28 in non-leap years.", dates.AddYears, 1),
		shiftFunc("subtract_days", "Subtract n days from a date.", dates.AddDays, -1),
		shiftFunc("subtract_months", "Subtract n months, clamping to the end of the target month.", dates.AddMonths, -1),
		shiftFunc("subtract_years", "Subtract n years.", dates.AddYears, -1),
		def("start_of_month", "First day of the month.", ps("d"), func(c *call) (any, error) {
			t, ok := dates.Parse(c.arg(0))
			if !ok {
				return "", nil
			}
			return dates.Format(dates.StartOfMonth(t)), nil
		}),
		def("end_of_month", "Last day of the month.", ps("d"), func(c *call) (any, error) {
			t, ok := dates.Parse(c.arg(0))
			if !ok {
				return "", nil
			}
			return dates.Format(dates.EndOfMonth(t)), nil
		}),
		def("day_count_fraction", "Year fraction between two dates under ACT/360, ACT/365 or 30/360.",
			ps("d1", "d2", opt("conv", dates.Actual360)), func(c *call) (any, error) {
				a, b, ok := c.datePair(0, 1)
				if !ok {
					return 0.0, nil
				}
				return dates.DayCountFraction(a, b, c.str(2)), nil
			}),
		def("is_leap_year", "Leap year check.", ps("year"), func(c *call) (any, error) {
			return c.done(dates.IsLeapYear(c.year(0)))
		}),
		def("days_in_year", "365 or 366.", ps("year"), func(c *call) (any, error) {
			if dates.IsLeapYear(c.year(0)) {
				return c.done(366.0)
			}
			return c.done(365.0)
		}),
		def("quarter", "Quarter of the year, 1 to 4.", ps("d"), func(c *call) (any, error) {
			t, ok := dates.Parse(c.arg(0))
			if !ok {
				return 0.0, nil
			}
			return float64((int(t.Month())-1)/3 + 1), nil
		}),
		def("day_of_week", "Day of week, 0 = Monday to 6 = Sunday.", ps("d"), func(c *call) (any, error) {
			t, ok := dates.Parse(c.arg(0))
			if !ok {
				return 0.0, nil
			}
			return float64(dates.Weekday(t)), nil
		}),
		def("is_weekend", "Saturday or Sunday.", ps("d"), func(c *call) (any, error) {
			t, ok := dates.Parse(c.arg(0))
			return ok && dates.Weekday(t) >= 5, nil
		}),
		def("business_days", "Weekdays between two dates.", ps("d1", "d2"), func(c *call) (any, error) {
			a, b, ok := c.datePair(0, 1)
			if !ok {
				return 0.0, nil
			}
			return float64(dates.BusinessDays(a, b)), nil
		}),
	}
}

// shiftFunc declares a date shift by n units. sign flips n for the
// subtract_ variants.
func shiftFunc(name, doc string, shift func(time.Time, int) time.Time, sign int) *interp.Function {
	return def(name, doc, ps("d", "n"), func(c *call) (any, error) {
		n := c.count(1)
		if c.err != nil {
			return nil, c.err
		}
		t, ok := dates.Parse(c.arg(0))
		if !ok {
			return "", nil
		}
		return dates.Format(shift(t, sign*n)), nil
	})
}

// datePair parses two date arguments; ok is false when either is unusable.
func (c *call) datePair(i, j int) (time.Time, time.Time, bool) {
	a, ok1 := dates.Parse(c.arg(i))
	b, ok2 := dates.Parse(c.arg(j))
	return a, b, ok1 && ok2
}

func absInt(n int) int {
	return int(math.Abs(float64(n)))
}
