package functions

import (
	"github.com/robinvdvleuten/ledgerscript/interp"
	"github.com/robinvdvleuten/ledgerscript/value"
)

func comparisonFuncs() []*interp.Function {
	return []*interp.Function{
		def("eq", "a == b.", ps("a", "b"), func(c *call) (any, error) {
			return value.Equal(c.arg(0), c.arg(1)), nil
		}),
		def("neq", "a != b.", ps("a", "b"), func(c *call) (any, error) {
			return !value.Equal(c.arg(0), c.arg(1)), nil
		}),
		orderFunc("gt", ">", "a > b."),
		orderFunc("gte", ">=", "a >= b."),
		orderFunc("lt", "<", "a < b."),
		orderFunc("lte", "<=", "a <= b."),
		def("op_eq", "Operator a == b.", ps("a", "b"), func(c *call) (any, error) {
			return value.Equal(c.arg(0), c.arg(1)), nil
		}),
		def("op_neq", "Operator a != b.", ps("a", "b"), func(c *call) (any, error) {
			return !value.Equal(c.arg(0), c.arg(1)), nil
		}),
		orderFunc("op_gt", ">", "Operator a > b."),
		orderFunc("op_gte", ">=", "Operator a >= b."),
		orderFunc("op_lt", "<", "Operator a < b."),
		orderFunc("op_lte", "<=", "Operator a <= b."),
		def("between", "l <= x <= u.", ps("x", "l", "u"), func(c *call) (any, error) {
			lo, err := order("<=", c.arg(1), c.arg(0))
			if err != nil || !lo {
				return false, err
			}
			return order("<=", c.arg(0), c.arg(2))
		}),
		def("is_null", "x is None.", ps("x"), func(c *call) (any, error) {
			return c.arg(0) == nil, nil
		}),
		def("is_positive", "x > 0.", ps("x"), func(c *call) (any, error) {
			return order(">", c.arg(0), 0.0)
		}),
		def("is_negative", "x < 0.", ps("x"), func(c *call) (any, error) {
			return order("<", c.arg(0), 0.0)
		}),
	}
}

func logicalFuncs() []*interp.Function {
	choose := func(c *call) (any, error) {
		if value.Truthy(c.arg(0)) {
			return c.arg(1), nil
		}
		return c.arg(2), nil
	}
	return []*interp.Function{
		def("and", "a and b; returns the deciding operand.", ps("a", "b"), func(c *call) (any, error) {
			if !value.Truthy(c.arg(0)) {
				return c.arg(0), nil
			}
			return c.arg(1), nil
		}),
		def("or", "a or b; returns the deciding operand.", ps("a", "b"), func(c *call) (any, error) {
			if value.Truthy(c.arg(0)) {
				return c.arg(0), nil
			}
			return c.arg(1), nil
		}),
		def("not", "Logical NOT.", ps("a"), func(c *call) (any, error) {
			return !value.Truthy(c.arg(0)), nil
		}),
		def("xor", "True when a and b differ.", ps("a", "b"), func(c *call) (any, error) {
			return !value.Equal(c.arg(0), c.arg(1)), nil
		}),
		def("all", "True when every element is truthy.", ps("list"), func(c *call) (any, error) {
			for _, v := range c.list(0) {
				if !value.Truthy(v) {
					return c.done(false)
				}
			}
			return c.done(true)
		}),
		def("any", "True when some element is truthy.", ps("list"), func(c *call) (any, error) {
			for _, v := range c.list(0) {
				if value.Truthy(v) {
					return c.done(true)
				}
			}
			return c.done(false)
		}),
		def("if", "if(cond, true_val, false_val).", ps("cond", "t", "f"), choose),
		def("iif", "Inline IF: iif(condition, value_if_true, value_if_false). Lazy when it is the whole expression.",
			ps("cond", "true_val", "false_val"), choose),
		variadic("coalesce", "First argument that is not None.", "args", nil, func(c *call) (any, error) {
			for _, v := range c.rest() {
				if v != nil {
					return v, nil
				}
			}
			return nil, nil
		}),
		def("clamp", "Clamp x into [min, max].", ps("x", "min", "max"), func(c *call) (any, error) {
			x, lo, hi := c.num(0), c.num(1), c.num(2)
			if x > hi {
				x = hi
			}
			if lo > x {
				x = lo
			}
			return c.done(x)
		}),
		def("switch", "Look value up in the cases dict, else default.", ps("value", "cases", opt("default", nil)), func(c *call) (any, error) {
			cases, ok := c.arg(1).(value.Keyed)
			if !ok {
				return c.arg(2), nil
			}
			key, ok := hashKey(c.arg(0))
			if !ok {
				return c.arg(2), nil
			}
			if v, found := cases.Get(key); found {
				return v, nil
			}
			return c.arg(2), nil
		}),
	}
}

func orderFunc(name, op, doc string) *interp.Function {
	return def(name, doc, ps("a", "b"), func(c *call) (any, error) {
		return order(op, c.arg(0), c.arg(1))
	})
}

// order applies an ordering comparison; unorderable operands are an error.
func order(op string, a, b any) (bool, error) {
	cmp, err := value.Compare(a, b, op)
	if err != nil {
		return false, err
	}
	switch op {
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	}
	return cmp >= 0, nil
}

// hashKey converts v to the string form dict keys take.
func hashKey(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case nil, bool, float64:
		return value.Str(x), true
	}
	return "", false
}
