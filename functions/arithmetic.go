package functions

import (
	"errors"
	"math"

	"github.com/robinvdvleuten/ledgerscript/interp"
	"github.com/robinvdvleuten/ledgerscript/value"
)

func arithmeticFuncs() []*interp.Function {
	return []*interp.Function{
		// add, subtract, multiply and divide are total: bad input counts as 0.
		def("add", "Sum of a and b.", ps("a", "b"), func(c *call) (any, error) {
			return c.lenient(0) + c.lenient(1), nil
		}),
		def("subtract", "Difference a - b.", ps("a", "b"), func(c *call) (any, error) {
			return c.lenient(0) - c.lenient(1), nil
		}),
		def("multiply", "Product of a and b.", ps("a", "b"), func(c *call) (any, error) {
			return c.lenient(0) * c.lenient(1), nil
		}),
		def("divide", "Quotient a / b; a zero denominator is an error.", ps("a", "b"), func(c *call) (any, error) {
			den := c.lenient(1)
			if den == 0 {
				return nil, errors.New("division by zero")
			}
			return c.lenient(0) / den, nil
		}),
		def("power", "a raised to b.", ps("a", "b"), func(c *call) (any, error) {
			a, b := c.num(0), c.num(1)
			if c.err == nil && a == 0 && b < 0 {
				return nil, errors.New("0.0 cannot be raised to a negative power")
			}
			return c.done(math.Pow(a, b))
		}),
		def("sqrt", "Square root.", ps("x"), func(c *call) (any, error) {
			x := c.num(0)
			if c.err == nil && x < 0 {
				return nil, errors.New("math domain error")
			}
			return c.done(math.Sqrt(x))
		}),
		def("abs", "Absolute value.", ps("x"), func(c *call) (any, error) {
			return c.done(math.Abs(c.num(0)))
		}),
		def("sign", "Sign of x: -1, 0 or 1.", ps("x"), func(c *call) (any, error) {
			x := c.num(0)
			switch {
			case x > 0:
				return c.done(1.0)
			case x < 0:
				return c.done(-1.0)
			}
			return c.done(0.0)
		}),
		def("round", "Round to n decimals, half to even.", ps("x", opt("n", 0.0)), func(c *call) (any, error) {
			x, n := c.num(0), c.count(1)
			return c.done(value.Round(x, n))
		}),
		def("floor", "Round down.", ps("x"), func(c *call) (any, error) {
			return c.done(math.Floor(c.num(0)))
		}),
		def("ceil", "Round up.", ps("x"), func(c *call) (any, error) {
			return c.done(math.Ceil(c.num(0)))
		}),
		def("mod", "Remainder with the sign of the divisor.", ps("a", "b"), func(c *call) (any, error) {
			a, b := c.num(0), c.num(1)
			if c.err == nil && b == 0 {
				return nil, errors.New("integer division or modulo by zero")
			}
			return c.done(interp.FloorMod(a, b))
		}),
		def("truncate", "Drop digits beyond the given decimals.", ps("x", opt("decimals", 0.0)), func(c *call) (any, error) {
			x, d := c.num(0), c.num(1)
			return c.done(value.Truncate(x, int(d)))
		}),
		def("percentage", "value as a percentage of total; 0 when total is 0.", ps("value", "total"), func(c *call) (any, error) {
			v, total := c.num(0), c.num(1)
			if total == 0 {
				return c.done(0.0)
			}
			return c.done(v / total * 100)
		}),
		def("change_pct", "Percentage change from old to new; 0 when old is 0.", ps("old", "new"), func(c *call) (any, error) {
			old, now := c.num(0), c.num(1)
			if old == 0 {
				return c.done(0.0)
			}
			return c.done((now - old) / old * 100)
		}),
		opFunc("op_add", "+"),
		opFunc("op_sub", "-"),
		opFunc("op_mul", "*"),
		def("op_div", "Operator a / b.", ps("a", "b"), func(c *call) (any, error) {
			if value.Equal(c.arg(1), 0.0) {
				return nil, errors.New("division by zero")
			}
			return interp.Arithmetic("/", c.arg(0), c.arg(1))
		}),
	}
}

// opFunc exposes a binary operator as a function with the operator's exact
// semantics, including string and list concatenation.
func opFunc(name, op string) *interp.Function {
	return def(name, "Operator a "+op+" b.", ps("a", "b"), func(c *call) (any, error) {
		return interp.Arithmetic(op, c.arg(0), c.arg(1))
	})
}
