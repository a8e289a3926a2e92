package functions

import (
	"math"
	"sort"

	"github.com/robinvdvleuten/ledgerscript/interp"
	"github.com/robinvdvleuten/ledgerscript/value"
)

func aggregationFuncs() []*interp.Function {
	return []*interp.Function{
		def("sum", "Sum of values (None values count as 0).", ps("col"), func(c *call) (any, error) {
			return c.done(sum(c.lenients(0)))
		}),
		def("sum_field", "Sum one field over a list of rows; missing values count as 0.", ps("array", "field"), func(c *call) (any, error) {
			field := c.str(1)
			total := 0.0
			for _, item := range c.list(0) {
				if row, ok := item.(value.Keyed); ok {
					v, _ := row.Get(field)
					total += value.ToNumber(v)
				}
			}
			return c.done(total)
		}),
		def("avg", "Average/Mean.", ps("col"), func(c *call) (any, error) {
			return c.done(mean(c.lenients(0)))
		}),
		variadic("min", "Minimum of a list, of scalars, or element-wise across lists.", "args", nil, func(c *call) (any, error) {
			return extreme("<", c.rest())
		}),
		variadic("max", "Maximum of a list, of scalars, or element-wise across lists.", "args", nil, func(c *call) (any, error) {
			return extreme(">", c.rest())
		}),
		def("count", "Count items.", ps("col"), func(c *call) (any, error) {
			return c.done(float64(len(c.list(0))))
		}),
		def("weighted_avg", "Weighted average.", ps("v", "w"), func(c *call) (any, error) {
			return c.done(weightedMean(c.floats(0), c.floats(1)))
		}),
		def("cumulative_sum", "Running totals.", ps("col"), func(c *call) (any, error) {
			xs := c.floats(0)
			out := make([]float64, len(xs))
			total := 0.0
			for i, x := range xs {
				total += x
				out[i] = total
			}
			return c.done(value.FromNumbers(out))
		}),
		def("median", "Median.", ps("col"), func(c *call) (any, error) {
			return c.done(median(c.floats(0)))
		}),
		def("variance", "Population variance.", ps("col"), func(c *call) (any, error) {
			return c.done(variance(c.floats(0)))
		}),
		def("std_dev", "Population standard deviation.", ps("col"), func(c *call) (any, error) {
			return c.done(math.Sqrt(variance(c.floats(0))))
		}),
		def("percentile", "Percentile p in [0, 1] by linear interpolation.", ps("col", "p"), func(c *call) (any, error) {
			return c.done(percentile(c.floats(0), c.num(1)))
		}),
		def("range", "Range (max-min).", ps("col"), func(c *call) (any, error) {
			xs := c.floats(0)
			if len(xs) == 0 {
				return c.done(0.0)
			}
			lo, hi := xs[0], xs[0]
			for _, x := range xs[1:] {
				lo, hi = math.Min(lo, x), math.Max(hi, x)
			}
			return c.done(hi - lo)
		}),
	}
}

func conversionFuncs() []*interp.Function {
	return []*interp.Function{
		def("fx_convert", "Currency conversion: v * rate.", ps("v", "rate"), func(c *call) (any, error) {
			return c.done(c.num(0) * c.num(1))
		}),
		def("normalize", "Normalize to base; 0 when base is 0.", ps("v", "base"), func(c *call) (any, error) {
			v, base := c.num(0), c.num(1)
			if base == 0 {
				return c.done(0.0)
			}
			return c.done(v / base)
		}),
		def("basis_points", "Rate to basis points.", ps("rate"), func(c *call) (any, error) {
			return c.done(c.num(0) * 10000)
		}),
		def("from_bps", "Basis points to rate.", ps("bps"), func(c *call) (any, error) {
			return c.done(c.num(0) / 10000)
		}),
		def("to_percentage", "Convert decimal to percentage.", ps("decimal"), func(c *call) (any, error) {
			return c.done(c.num(0) * 100)
		}),
		def("from_percentage", "Convert percentage to decimal.", ps("pct"), func(c *call) (any, error) {
			return c.done(c.num(0) / 100)
		}),
	}
}

func statisticalFuncs() []*interp.Function {
	return []*interp.Function{
		def("correlation", "Pearson correlation coefficient.", ps("x", "y"), func(c *call) (any, error) {
			return c.done(correlation(c.floats(0), c.floats(1)))
		}),
		def("covariance", "Population covariance between two lists.", ps("x", "y"), func(c *call) (any, error) {
			return c.done(covariance(c.floats(0), c.floats(1)))
		}),
		def("zscore", "Z-score; 0 when std is 0.", ps("value", "mean", "std"), func(c *call) (any, error) {
			x, mu, std := c.num(0), c.num(1), c.num(2)
			if std == 0 {
				return c.done(0.0)
			}
			return c.done((x - mu) / std)
		}),
	}
}

// lenients reads a list converting every element with ToNumber.
func (c *call) lenients(i int) []float64 {
	items := c.list(i)
	out := make([]float64, len(items))
	for j, item := range items {
		out[j] = value.ToNumber(item)
	}
	return out
}

// extreme implements min and max. A single list argument reduces the list;
// scalars reduce to one value; any list argument switches to an element-wise
// reduction over the shortest list, with the scalars taking part in every
// position and None values dropped.
func extreme(op string, args []any) (any, error) {
	if len(args) == 0 {
		return 0.0, nil
	}
	if len(args) == 1 {
		if !value.IsList(args[0]) {
			if args[0] == nil {
				return 0.0, nil
			}
			return args[0], nil
		}
		items := value.ToList(args[0])
		if len(items) == 0 {
			return 0.0, nil
		}
		return pick(op, items)
	}

	var lists [][]any
	var scalars []any
	for _, a := range args {
		if value.IsList(a) {
			lists = append(lists, value.ToList(a))
		} else {
			scalars = append(scalars, a)
		}
	}
	if len(lists) == 0 {
		v, err := pick(op, args)
		if err != nil {
			return args[0], nil
		}
		return v, nil
	}

	n := len(lists[0])
	for _, l := range lists[1:] {
		n = min(n, len(l))
	}
	out := make([]any, n)
	for i := range out {
		var vals []any
		for _, l := range lists {
			if l[i] != nil {
				vals = append(vals, l[i])
			}
		}
		for _, s := range scalars {
			if s != nil {
				vals = append(vals, s)
			}
		}
		if len(vals) == 0 {
			out[i] = 0.0
			continue
		}
		v, err := pick(op, vals)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// pick returns the first item that no other item beats under op.
func pick(op string, items []any) (any, error) {
	best := items[0]
	for _, item := range items[1:] {
		better, err := order(op, item, best)
		if err != nil {
			return nil, err
		}
		if better {
			best = item
		}
	}
	return best, nil
}

func sum(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}

// mean is the arithmetic mean, 0 for an empty list.
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return sum(xs) / float64(len(xs))
}

func sorted(xs []float64) []float64 {
	out := append([]float64(nil), xs...)
	sort.Float64s(out)
	return out
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := sorted(xs)
	n := len(s)
	if n%2 == 0 {
		return (s[n/2-1] + s[n/2]) / 2
	}
	return s[n/2]
}

func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mu := mean(xs)
	acc := 0.0
	for _, x := range xs {
		acc += (x - mu) * (x - mu)
	}
	return acc / float64(len(xs))
}

func percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := sorted(xs)
	last := float64(len(s) - 1)
	k := math.Max(0, math.Min(last, last*p))
	f, c := math.Floor(k), math.Ceil(k)
	if f == c {
		return s[int(k)]
	}
	return s[int(f)]*(c-k) + s[int(c)]*(k-f)
}

func covariance(x, y []float64) float64 {
	if len(x) != len(y) || len(x) == 0 {
		return 0
	}
	mx, my := mean(x), mean(y)
	acc := 0.0
	for i := range x {
		acc += (x[i] - mx) * (y[i] - my)
	}
	return acc / float64(len(x))
}

func correlation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) == 0 {
		return 0
	}
	mx, my := mean(x), mean(y)
	var num, sx, sy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		num += dx * dy
		sx += dx * dx
		sy += dy * dy
	}
	den := math.Sqrt(sx * sy)
	if den == 0 {
		return 0
	}
	return num / den
}
