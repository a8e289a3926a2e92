package interp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/robinvdvleuten/ledgerscript/value"
)

// builtins is the whitelist consulted after the registry. min, max, sum,
// round and abs live in the registry proper.
var builtins = map[string]*Function{}

func init() {
	for _, f := range []*Function{
		{Name: "int", Params: []Param{Opt("x", 0.0)}, Doc: "Truncate a number or parse an integer string.", Fn: builtinInt},
		{Name: "float", Params: []Param{Opt("x", 0.0)}, Doc: "Convert a number or numeric string to a float.", Fn: builtinFloat},
		{Name: "str", Params: []Param{Opt("x", "")}, Doc: "Convert a value to its display string.", Fn: builtinStr},
		{Name: "bool", Params: []Param{Opt("x", false)}, Doc: "Truth value of x.", Fn: builtinBool},
		{Name: "len", Params: []Param{Req("x")}, Doc: "Length of a string, list, dict or schedule.", Fn: builtinLen},
		{Name: "pow", Params: []Param{Req("base"), Req("exp"), Opt("mod", nil)}, Doc: "base raised to exp, optionally modulo mod.", Fn: builtinPow},
	} {
		f.Category = "builtin"
		if err := f.validate(); err != nil {
			panic(err)
		}
		builtins[f.Name] = f
	}
}

// Builtins returns the builtin whitelist, for catalog listings.
func Builtins() []*Function {
	out := make([]*Function, 0, len(builtins))
	for _, name := range []string{"int", "float", "str", "bool", "len", "pow"} {
		out = append(out, builtins[name])
	}
	return out
}

func builtinInt(_ *Env, args []any) (any, error) {
	switch x := args[0].(type) {
	case string:
		s := strings.TrimSpace(x)
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid literal for int() with base 10: %s", value.Repr(x))
		}
		return float64(n), nil
	case nil:
		return nil, fmt.Errorf("int() argument must be a string or a real number, not 'NoneType'")
	}
	f, ok := value.Number(args[0])
	if !ok {
		return nil, fmt.Errorf("int() argument must be a string or a real number, not '%s'", value.TypeName(args[0]))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("cannot convert float %s to integer", value.FormatNumber(f))
	}
	return math.Trunc(f), nil
}

func builtinFloat(_ *Env, args []any) (any, error) {
	switch x := args[0].(type) {
	case string:
		s := strings.TrimSpace(x)
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, "_", ""), 64)
		if err != nil {
			return nil, fmt.Errorf("could not convert string to float: %s", value.Repr(x))
		}
		return f, nil
	case nil:
		return nil, fmt.Errorf("float() argument must be a string or a real number, not 'NoneType'")
	}
	f, ok := value.Number(args[0])
	if !ok {
		return nil, fmt.Errorf("float() argument must be a string or a real number, not '%s'", value.TypeName(args[0]))
	}
	return f, nil
}

func builtinStr(_ *Env, args []any) (any, error) {
	return value.Str(args[0]), nil
}

func builtinBool(_ *Env, args []any) (any, error) {
	return value.Truthy(args[0]), nil
}

func builtinLen(_ *Env, args []any) (any, error) {
	switch x := args[0].(type) {
	case string:
		return float64(utf8.RuneCountInString(x)), nil
	case value.Lener:
		return float64(x.Len()), nil
	}
	if value.IsList(args[0]) {
		return float64(len(value.ToList(args[0]))), nil
	}
	return nil, fmt.Errorf("object of type '%s' has no len()", value.TypeName(args[0]))
}

func builtinPow(_ *Env, args []any) (any, error) {
	base, ok1 := value.Number(args[0])
	exp, ok2 := value.Number(args[1])
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("unsupported operand type(s) for pow(): '%s' and '%s'", value.TypeName(args[0]), value.TypeName(args[1]))
	}
	if base == 0 && exp < 0 {
		return nil, fmt.Errorf("0.0 cannot be raised to a negative power")
	}
	r := math.Pow(base, exp)
	if args[2] == nil {
		return r, nil
	}
	mod, ok := value.Number(args[2])
	if !ok {
		return nil, fmt.Errorf("pow() 3rd argument must be a number, not '%s'", value.TypeName(args[2]))
	}
	if mod == 0 {
		return nil, fmt.Errorf("pow() 3rd argument cannot be 0")
	}
	return FloorMod(r, mod), nil
}
