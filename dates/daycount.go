package dates

import "time"

// Day-count conventions understood by DayCountFraction.
const (
	Actual360 = "ACT/360"
	Actual365 = "ACT/365"
	Thirty360 = "30/360"
)

// DayCountFraction returns the year fraction between a and b. ACT
// conventions use the absolute day distance; 30/360 is signed. Unknown
// conventions fall back to days/365.25.
func DayCountFraction(a, b time.Time, convention string) float64 {
	days := DaysBetween(a, b)
	if days < 0 {
		days = -days
	}
	switch convention {
	case Actual360:
		return float64(days) / 360
	case Actual365:
		return float64(days) / 365
	case Thirty360:
		return float64((b.Year()-a.Year())*360+(int(b.Month())-int(a.Month()))*30+(b.Day()-a.Day())) / 360
	}
	return float64(days) / 365.25
}
