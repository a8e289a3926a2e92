package functions

import (
	"github.com/robinvdvleuten/ledgerscript/interp"
	"github.com/robinvdvleuten/ledgerscript/value"
)

func depreciationFuncs() []*interp.Function {
	return []*interp.Function{
		def("straight_line", "Straight-line depreciation per period.",
			ps("cost", "salvage", "life"),
			func(c *call) (any, error) {
				cost, salvage, life := c.num(0), c.num(1), c.num(2)
				if c.err == nil && life == 0 {
					return nil, errDivisionByZero("straight_line")
				}
				return c.done((cost - salvage) / life)
			}),
		def("reducing_balance", "Declining balance charge: cost * rate.",
			ps("cost", "rate"),
			func(c *call) (any, error) {
				return c.done(c.num(0) * c.num(1))
			}),
		def("double_declining", "Double declining balance charge: cost * 2 / life.",
			ps("cost", "life"),
			func(c *call) (any, error) {
				cost, life := c.num(0), c.num(1)
				if c.err == nil && life == 0 {
					return nil, errDivisionByZero("double_declining")
				}
				return c.done(cost * (2 / life))
			}),
		def("sum_of_years", "Sum of years' digits charge for the given year.",
			ps("cost", "salvage", "life", "year"),
			func(c *call) (any, error) {
				cost, salvage, life, year := c.num(0), c.num(1), int(c.num(2)), c.num(3)
				if c.err != nil {
					return nil, c.err
				}
				return sumOfYears(cost, salvage, life, year), nil
			}),
		def("units_of_production", "Usage-based depreciation.",
			ps("cost", "units", "total"),
			func(c *call) (any, error) {
				return c.done(ratioOf(c.num(0), c.num(1), c.num(2)))
			}),
	}
}

func allocationFuncs() []*interp.Function {
	return []*interp.Function{
		def("prorate", "Proportional allocation: value * part / total.",
			ps("value", "part", "total"),
			func(c *call) (any, error) {
				return c.done(ratioOf(c.num(0), c.num(1), c.num(2)))
			}),
		def("allocate", "Weight-based allocation.",
			ps("value", "weights"),
			func(c *call) (any, error) {
				return c.done(value.FromNumbers(allocate(c.num(0), c.floats(1))))
			}),
		def("split", "Equal split into n parts.",
			ps("value", "n"),
			func(c *call) (any, error) {
				v, n := c.num(0), c.count(1)
				if n <= 0 {
					return c.done(0.0)
				}
				return c.done(v / float64(n))
			}),
		def("percentage_of", "value * pct.",
			ps("value", "pct"),
			func(c *call) (any, error) {
				return c.done(c.num(0) * c.num(1))
			}),
		def("ratio_split", "Split by ratios.",
			ps("value", "ratios"),
			func(c *call) (any, error) {
				return c.done(value.FromNumbers(allocate(c.num(0), c.floats(1))))
			}),
	}
}

func balanceFuncs() []*interp.Function {
	return []*interp.Function{
		def("rolling_balance", "Opening balance plus all flows.",
			ps("opening", "flows"),
			func(c *call) (any, error) {
				return c.done(c.num(0) + sum(c.floats(1)))
			}),
		def("average_balance", "Average of balances.",
			ps("balances"),
			func(c *call) (any, error) {
				return c.done(mean(c.floats(0)))
			}),
		def("weighted_balance", "Day-weighted average balance.",
			ps("balances", "days"),
			func(c *call) (any, error) {
				return c.done(weightedMean(c.floats(0), c.floats(1)))
			}),
	}
}

func sumOfYears(cost, salvage float64, life int, year float64) float64 {
	total := life * (life + 1) / 2
	if life <= 0 || total == 0 {
		return 0
	}
	return (cost - salvage) * (float64(life) - year + 1) / float64(total)
}

// ratioOf is value * part / total, or 0 unless total is positive.
func ratioOf(v, part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return v * (part / total)
}

func allocate(v float64, weights []float64) []float64 {
	out := make([]float64, len(weights))
	total := sum(weights)
	if total == 0 {
		return out
	}
	for i, w := range weights {
		out[i] = v * (w / total)
	}
	return out
}

func weightedMean(xs, weights []float64) float64 {
	if len(xs) == 0 || len(xs) != len(weights) {
		return 0
	}
	total := sum(weights)
	if total <= 0 {
		return 0
	}
	acc := 0.0
	for i := range xs {
		acc += xs[i] * weights[i]
	}
	return acc / total
}
