package functions

import (
	"fmt"
	"math"
	"time"

	"github.com/robinvdvleuten/ledgerscript/dates"
	"github.com/robinvdvleuten/ledgerscript/interp"
)

// Newton-Raphson settings for the solvers.
const (
	maxIterations = 100
	rateTolerance = 1e-6
	irrTolerance  = 1e-7
	xirrTolerance = 1e-6
	flatSlope     = 1e-10
	minIRR        = -0.99
	maxIRR        = 10.0
)

func financialFuncs() []*interp.Function {
	return []*interp.Function{
		def("pv", "Present value of future cash flows (type: 0=end, 1=beginning).",
			ps("rate", "n", "pmt", opt("fv", 0.0), opt("type", 0.0)),
			func(c *call) (any, error) {
				return c.done(presentValue(c.num(0), c.count(1), c.num(2), c.num(3), c.num(4)))
			}),
		def("fv", "Future value of cash flows (type: 0=end, 1=beginning).",
			ps("rate", "n", "pmt", opt("pv", 0.0), opt("type", 0.0)),
			func(c *call) (any, error) {
				return c.done(futureValue(c.num(0), c.count(1), c.num(2), c.num(3), c.num(4)))
			}),
		def("pmt", "Fixed periodic payment (type: 0=end, 1=beginning).",
			ps("rate", "n", "pv", opt("fv", 0.0), opt("type", 0.0)),
			func(c *call) (any, error) {
				return c.done(payment(c.num(0), c.count(1), c.num(2), c.num(3), c.num(4)))
			}),
		def("rate", "Interest rate per period (type: 0=end, 1=beginning).",
			ps("n", "pmt", "pv", opt("fv", 0.0), opt("type", 0.0), opt("guess", 0.1)),
			func(c *call) (any, error) {
				return c.done(solveRate(c.count(0), c.num(1), c.num(2), c.num(3), c.num(4), c.num(5)))
			}),
		def("nper", "Number of periods, possibly fractional (type: 0=end, 1=beginning).",
			ps("rate", "pmt", "pv", opt("fv", 0.0), opt("type", 0.0)),
			func(c *call) (any, error) {
				return c.done(periods(c.num(0), c.num(1), c.num(2), c.num(3), c.num(4)))
			}),
		def("npv", "Net present value; the first cash flow is discounted one period.",
			ps("rate", "cashflows"),
			func(c *call) (any, error) {
				return c.done(netPresentValue(c.num(0), c.floats(1)))
			}),
		def("irr", "Internal rate of return.",
			ps("cashflows", opt("guess", 0.1)),
			func(c *call) (any, error) {
				return c.done(internalRate(c.floats(0), c.num(1)))
			}),
		def("xnpv", "NPV with specific dates (365-day convention).",
			ps("rate", "cashflows", "dates"),
			func(c *call) (any, error) {
				rate, flows, when := c.num(0), c.floats(1), c.dates(2)
				if c.err != nil {
					return nil, c.err
				}
				return xnpv(rate, flows, when)
			}),
		def("xirr", "IRR with specific dates.",
			ps("cashflows", "dates", opt("guess", 0.1)),
			func(c *call) (any, error) {
				flows, when, guess := c.floats(0), c.dates(1), c.num(2)
				if c.err != nil {
					return nil, c.err
				}
				return xirr(flows, when, guess)
			}),
		def("discount_factor", "Discount factor for a period: 1 / (1 + rate*dcf).",
			ps("rate", "dcf"),
			func(c *call) (any, error) {
				d := 1 + c.num(0)*c.num(1)
				if c.err == nil && d == 0 {
					return nil, errDivisionByZero("discount_factor")
				}
				return c.done(1 / d)
			}),
		def("accumulation_factor", "Growth factor: 1 + rate*dcf.",
			ps("rate", "dcf"),
			func(c *call) (any, error) {
				return c.done(1 + c.num(0)*c.num(1))
			}),
		def("effective_rate", "Nominal to effective rate.",
			ps("nominal", "freq"),
			func(c *call) (any, error) {
				nominal, freq := c.num(0), c.num(1)
				if c.err == nil && freq == 0 {
					return nil, errDivisionByZero("effective_rate")
				}
				return c.done(math.Pow(1+nominal/freq, freq) - 1)
			}),
		def("nominal_rate", "Effective to nominal rate.",
			ps("effective", "freq"),
			func(c *call) (any, error) {
				effective, freq := c.num(0), c.num(1)
				if c.err == nil && freq == 0 {
					return nil, errDivisionByZero("nominal_rate")
				}
				return c.done(freq * (math.Pow(1+effective, 1/freq) - 1))
			}),
		def("yield_to_maturity", "Bond yield to maturity (approximation).",
			ps("price", "face", "coupon", "years"),
			func(c *call) (any, error) {
				price, face, coupon, years := c.num(0), c.num(1), c.num(2), c.num(3)
				if c.err == nil && (years == 0 || face+price == 0) {
					return nil, errDivisionByZero("yield_to_maturity")
				}
				return c.done((face*coupon + (face-price)/years) / ((face + price) / 2))
			}),
		def("compound_interest", "Compound interest earned over periods.",
			ps("principal", "rate", "periods"),
			func(c *call) (any, error) {
				return c.done(c.num(0) * (math.Pow(1+c.num(1), c.num(2)) - 1))
			}),
		def("interest_on_balance", "Interest on a balance for a number of days, ACT/360.",
			ps("balance", "rate", "days"),
			func(c *call) (any, error) {
				return c.done(c.num(0) * c.num(1) * (c.num(2) / 360))
			}),
		def("capitalization", "Add interest to principal.",
			ps("interest", "balance"),
			func(c *call) (any, error) {
				return c.done(c.num(1) + c.num(0))
			}),
		def("amortized_cost", "Balance after interest and payment.",
			ps("opening", "interest", "payment"),
			func(c *call) (any, error) {
				return c.done(c.num(0) + c.num(1) - c.num(2))
			}),
	}
}

// dates reads a list of dates.
func (c *call) dates(i int) []time.Time {
	items := c.list(i)
	out := make([]time.Time, len(items))
	for j, item := range items {
		t, ok := dates.Parse(item)
		if !ok {
			c.fail("%s() argument '%s' contains an invalid date: %v", c.fn.Name, c.param(i), item)
			return nil
		}
		out[j] = t
	}
	return out
}

// presentValue is the spreadsheet PV: the negated value today of an annuity
// plus a lump sum.
func presentValue(rate float64, n int, pmt, fv, when float64) float64 {
	if rate == 0 {
		return -(fv + pmt*float64(n))
	}
	annuity := pmt * (1 - math.Pow(1+rate, -float64(n))) / rate
	if when == 1 {
		annuity *= 1 + rate
	}
	return -(annuity + fv/math.Pow(1+rate, float64(n)))
}

// futureValue is the spreadsheet FV.
func futureValue(rate float64, n int, pmt, pv, when float64) float64 {
	if rate == 0 {
		return -(pv + pmt*float64(n))
	}
	growth := math.Pow(1+rate, float64(n))
	annuity := pmt * (growth - 1) / rate
	if when == 1 {
		annuity *= 1 + rate
	}
	return -(pv*growth + annuity)
}

// payment is the spreadsheet PMT. Zero periods yield 0.
func payment(rate float64, n int, pv, fv, when float64) float64 {
	if n == 0 {
		return 0
	}
	if rate == 0 {
		return -(pv + fv) / float64(n)
	}
	growth := math.Pow(1+rate, float64(n))
	p := -(rate * (fv + pv*growth)) / (growth - 1)
	if when == 1 {
		p /= 1 + rate
	}
	return p
}

// solveRate finds r with pv*(1+r)^n + pmt*(1+r*when)*((1+r)^n-1)/r + fv = 0
// by Newton-Raphson. Near r=0 it falls back to the linear solution; when
// the iteration does not converge the last iterate is returned.
func solveRate(n int, pmt, pv, fv, when, guess float64) float64 {
	if n == 0 {
		return 0
	}
	nf := float64(n)
	r := guess
	for i := 0; i < maxIterations; i++ {
		if math.Abs(r) < flatSlope {
			if math.Abs(pmt) < flatSlope {
				return 0
			}
			return -(pv + fv) / (pmt * nf)
		}

		growth := math.Pow(1+r, nf)
		dgrowth := nf * math.Pow(1+r, nf-1)
		adj := 1 + r*when
		annuity := (growth - 1) / r
		f := pv*growth + pmt*adj*annuity + fv
		df := pv*dgrowth + pmt*(when*annuity+adj*(dgrowth*r-(growth-1))/(r*r))
		if math.Abs(df) < flatSlope {
			break
		}

		next := r - f/df
		if math.Abs(next-r) < rateTolerance {
			return next
		}
		r = next
	}
	return r
}

// periods is the spreadsheet NPER. Inputs without a real solution yield 0.
func periods(rate, pmt, pv, fv, when float64) float64 {
	if rate == 0 {
		if pmt == 0 {
			return 0
		}
		return -(pv + fv) / pmt
	}
	adj := pmt * (1 + rate*when)
	num := adj - fv*rate
	den := adj + pv*rate
	if den == 0 || num/den <= 0 {
		return 0
	}
	return math.Log(num/den) / math.Log(1+rate)
}

func netPresentValue(rate float64, flows []float64) float64 {
	total := 0.0
	for i, cf := range flows {
		total += cf / math.Pow(1+rate, float64(i+1))
	}
	return total
}

// internalRate solves npv(r, flows) = 0. Iterates are clamped to
// [-0.99, 10]; a flat derivative nudges the rate by one percent.
func internalRate(flows []float64, guess float64) float64 {
	if len(flows) < 2 {
		return 0
	}
	r := guess
	for i := 0; i < maxIterations; i++ {
		npv := netPresentValue(r, flows)
		if math.Abs(npv) < irrTolerance {
			return r
		}

		dnpv := 0.0
		for j, cf := range flows {
			k := float64(j + 1)
			dnpv -= k * cf / math.Pow(1+r, k+1)
		}
		if math.Abs(dnpv) < flatSlope {
			if npv > 0 {
				r += 0.01
			} else {
				r -= 0.01
			}
			continue
		}

		next := clampRate(r - npv/dnpv)
		if math.Abs(next-r) < irrTolerance {
			return next
		}
		r = next
	}
	return r
}

func clampRate(r float64) float64 {
	return math.Max(minIRR, math.Min(maxIRR, r))
}

// xnpv discounts each flow by its distance in days from the first date,
// over a 365-day year.
func xnpv(rate float64, flows []float64, when []time.Time) (float64, error) {
	if len(flows) != len(when) {
		return 0, fmt.Errorf("cashflows and dates must have same length")
	}
	if len(flows) == 0 {
		return 0, nil
	}
	total := 0.0
	for i, cf := range flows {
		days := float64(dates.DaysBetween(when[0], when[i]))
		total += cf / math.Pow(1+rate, days/365)
	}
	return total, nil
}

// xirr solves xnpv(r) = 0 with a finite-difference slope.
func xirr(flows []float64, when []time.Time, guess float64) (float64, error) {
	if len(flows) < 2 {
		return 0, nil
	}
	const delta = 0.0001
	r := guess
	for i := 0; i < maxIterations; i++ {
		v, err := xnpv(r, flows, when)
		if err != nil {
			return 0, err
		}
		if math.Abs(v) < xirrTolerance {
			return r, nil
		}

		bumped, _ := xnpv(r+delta, flows, when)
		slope := (bumped - v) / delta
		if math.Abs(slope) < flatSlope {
			break
		}

		next := clampRate(r - v/slope)
		if math.Abs(next-r) < xirrTolerance {
			return next, nil
		}
		r = next
	}
	return r, nil
}
