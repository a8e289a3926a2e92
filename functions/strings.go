package functions

import (
	"strings"
	"unicode/utf8"

	"github.com/robinvdvleuten/ledgerscript/interp"
	"github.com/robinvdvleuten/ledgerscript/value"
)

// String functions treat None as the empty string, and predicates on None
// are false.
func stringFuncs() []*interp.Function {
	return []*interp.Function{
		def("lower", "Convert string to lowercase.", ps("s"), func(c *call) (any, error) {
			return strings.ToLower(c.text(0)), nil
		}),
		def("upper", "Convert string to uppercase.", ps("s"), func(c *call) (any, error) {
			return strings.ToUpper(c.text(0)), nil
		}),
		variadic("concat", "Concatenate values, skipping None.", "args", nil, func(c *call) (any, error) {
			var sb strings.Builder
			for _, v := range c.rest() {
				if v != nil {
					sb.WriteString(value.Str(v))
				}
			}
			return sb.String(), nil
		}),
		textPredicate("contains", "Check if string contains substring.", ps("s", "substring"), strings.Contains),
		def("eq_ignore_case", "Case-insensitive string equality.", ps("a", "b"), func(c *call) (any, error) {
			a, b := c.arg(0), c.arg(1)
			if a == nil || b == nil {
				return a == nil && b == nil, nil
			}
			return strings.ToLower(value.Str(a)) == strings.ToLower(value.Str(b)), nil
		}),
		textPredicate("starts_with", "Check if string starts with prefix.", ps("s", "prefix"), strings.HasPrefix),
		textPredicate("ends_with", "Check if string ends with suffix.", ps("s", "suffix"), strings.HasSuffix),
		def("trim", "Remove leading and trailing whitespace.", ps("s"), func(c *call) (any, error) {
			return strings.TrimSpace(c.text(0)), nil
		}),
		def("str_length", "String length in characters.", ps("s"), func(c *call) (any, error) {
			return float64(utf8.RuneCountInString(c.text(0))), nil
		}),
	}
}

func textPredicate(name, doc string, params []any, pred func(s, sub string) bool) *interp.Function {
	return def(name, doc, params, func(c *call) (any, error) {
		if c.arg(0) == nil || c.arg(1) == nil {
			return false, nil
		}
		return pred(c.str(0), c.str(1)), nil
	})
}

// text reads an argument as a string with None as "".
func (c *call) text(i int) string {
	if c.args[i] == nil {
		return ""
	}
	return value.Str(c.args[i])
}
