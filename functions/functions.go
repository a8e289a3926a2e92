// Package functions is the standard function library exposed to DSL
// expressions: time value of money, depreciation, allocation, arithmetic,
// comparison and logic, dates, statistics, strings and array utilities.
//
// Schedule, transaction and iteration functions live in their own packages
// and are assembled with this one by package library.
package functions

import (
	"fmt"

	"github.com/robinvdvleuten/ledgerscript/interp"
	"github.com/robinvdvleuten/ledgerscript/value"
)

// Register adds every function of this package to r.
func Register(r *interp.Registry) error {
	groups := []struct {
		category string
		funcs    []*interp.Function
	}{
		{"Financial", financialFuncs()},
		{"Depreciation", depreciationFuncs()},
		{"Allocation", allocationFuncs()},
		{"Balance", balanceFuncs()},
		{"Arithmetic", arithmeticFuncs()},
		{"Comparison", comparisonFuncs()},
		{"Logical", logicalFuncs()},
		{"Date", dateFuncs()},
		{"Aggregation", aggregationFuncs()},
		{"Conversion", conversionFuncs()},
		{"Statistical", statisticalFuncs()},
		{"String", stringFuncs()},
		{"Array Utilities", arrayFuncs()},
	}
	for _, g := range groups {
		for _, f := range g.funcs {
			f.Category = g.category
		}
		if err := r.Register(g.funcs...); err != nil {
			return err
		}
	}
	return nil
}

// body is the implementation of a library function. It reads its arguments
// through the call, which records the first conversion error.
type body func(c *call) (any, error)

// def declares a function. Parameters are given as names (required) or as
// interp.Param values built with opt.
func def(name, doc string, params []any, fn body) *interp.Function {
	f := &interp.Function{Name: name, Doc: doc, Params: declare(params)}
	f.Fn = func(env *interp.Env, args []any) (any, error) {
		return fn(&call{env: env, fn: f, args: args})
	}
	return f
}

// variadic declares a function taking *rest after its named parameters.
func variadic(name, doc, rest string, params []any, fn body) *interp.Function {
	f := def(name, doc, params, fn)
	f.Variadic = rest
	return f
}

func declare(params []any) []interp.Param {
	out := make([]interp.Param, len(params))
	for i, p := range params {
		switch x := p.(type) {
		case string:
			out[i] = interp.Req(x)
		case interp.Param:
			out[i] = x
		default:
			panic(fmt.Sprintf("functions: bad parameter declaration %T", p))
		}
	}
	return out
}

// ps is shorthand for a parameter list.
func ps(params ...any) []any { return params }

var opt = interp.Opt

// call gives typed access to the bound arguments of one invocation.
type call struct {
	env  *interp.Env
	fn   *interp.Function
	args []any
	err  error
}

func (c *call) param(i int) string {
	if i < len(c.fn.Params) {
		return c.fn.Params[i].Name
	}
	return c.fn.Variadic
}

func (c *call) fail(format string, args ...any) {
	if c.err == nil {
		c.err = fmt.Errorf(format, args...)
	}
}

// arg returns the raw argument.
func (c *call) arg(i int) any {
	return c.args[i]
}

// rest returns the variadic arguments.
func (c *call) rest() []any {
	return c.args[len(c.fn.Params):]
}

// num reads a numeric argument. Booleans count as 1 and 0; anything else
// that is not a number is an error.
func (c *call) num(i int) float64 {
	n, ok := value.Number(c.args[i])
	if !ok {
		c.fail("%s() argument '%s' must be a number, not '%s'", c.fn.Name, c.param(i), value.TypeName(c.args[i]))
	}
	return n
}

// lenient reads a number with the never-failing toNumber coercion.
func (c *call) lenient(i int) float64 {
	return value.ToNumber(c.args[i])
}

// count reads a period or item count.
func (c *call) count(i int) int {
	n, err := value.CoerceCount(c.args[i], c.param(i))
	if err != nil && c.err == nil {
		c.err = err
	}
	return n
}

// list reads a list argument; None is an empty list.
func (c *call) list(i int) []any {
	v := c.args[i]
	if v == nil {
		return nil
	}
	if !value.IsList(v) {
		c.fail("%s() argument '%s' must be a list, not '%s'", c.fn.Name, c.param(i), value.TypeName(v))
		return nil
	}
	return value.ToList(v)
}

// floats reads a list of numbers.
func (c *call) floats(i int) []float64 {
	items := c.list(i)
	out := make([]float64, len(items))
	for j, item := range items {
		n, ok := value.Number(item)
		if !ok {
			c.fail("%s() argument '%s' must contain numbers, found '%s'", c.fn.Name, c.param(i), value.TypeName(item))
			return nil
		}
		out[j] = n
	}
	return out
}

// str reads an argument as its display string.
func (c *call) str(i int) string {
	return value.Str(c.args[i])
}

// year reads a calendar year.
func (c *call) year(i int) int {
	return int(c.num(i))
}

// done returns v, or the first recorded error.
func (c *call) done(v any) (any, error) {
	if c.err != nil {
		return nil, c.err
	}
	return v, nil
}

func errDivisionByZero(fn string) error {
	return fmt.Errorf("%s(): division by zero", fn)
}
