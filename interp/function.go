package interp

import (
	"fmt"

	"github.com/robinvdvleuten/ledgerscript/ast"
)

// Param describes one named parameter of a Function.
type Param struct {
	Name     string
	Default  any
	Optional bool
}

// Req declares a required parameter.
func Req(name string) Param {
	return Param{Name: name}
}

// Opt declares a parameter with a default value.
func Opt(name string, def any) Param {
	return Param{Name: name, Default: def, Optional: true}
}

// Impl is the Go body of a registered function. args holds one value per
// declared parameter, in declaration order, followed by any variadic
// arguments.
type Impl func(env *Env, args []any) (any, error)

// Function is a callable exposed to expressions by name.
type Function struct {
	Name     string
	Category string
	Doc      string
	Params   []Param
	// Variadic names a trailing *args parameter; empty when there is none.
	Variadic string
	Fn       Impl
}

// Signature renders the parameter list the way the catalog shows it:
// pmt(rate, nper, pv, fv=0, when=0).
func (f *Function) Signature() string {
	sig := f.Name + "("
	for i, p := range f.Params {
		if i > 0 {
			sig += ", "
		}
		sig += p.Name
		if p.Optional {
			sig += "=" + reprDefault(p.Default)
		}
	}
	if f.Variadic != "" {
		if len(f.Params) > 0 {
			sig += ", "
		}
		sig += "*" + f.Variadic
	}
	return sig + ")"
}

func (f *Function) String() string {
	return "<function " + f.Name + ">"
}

func reprDefault(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case string:
		return ast.Quote(x)
	case bool:
		if x {
			return "True"
		}
		return "False"
	case float64:
		return (&ast.Number{Value: x}).String()
	}
	return fmt.Sprint(v)
}

// validate checks the declaration once, at registration.
func (f *Function) validate() error {
	if f.Name == "" {
		return fmt.Errorf("function without a name")
	}
	if f.Fn == nil {
		return fmt.Errorf("%s: missing implementation", f.Name)
	}
	seen := make(map[string]bool, len(f.Params))
	optional := false
	for _, p := range f.Params {
		if p.Name == "" {
			return fmt.Errorf("%s: unnamed parameter", f.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("%s: duplicate parameter %q", f.Name, p.Name)
		}
		seen[p.Name] = true
		if p.Optional {
			optional = true
		} else if optional {
			return fmt.Errorf("%s: required parameter %q follows a parameter with a default", f.Name, p.Name)
		}
	}
	if f.Variadic != "" && seen[f.Variadic] {
		return fmt.Errorf("%s: duplicate parameter %q", f.Name, f.Variadic)
	}
	return nil
}

// bind maps positional and keyword arguments onto the parameter list.
func (f *Function) bind(args []any, kwargs map[string]any, kwOrder []string) ([]any, error) {
	n := len(f.Params)
	if len(args) > n && f.Variadic == "" {
		return nil, &ArityError{Func: f.Name, Message: fmt.Sprintf("%s() takes %s but %d were given", f.Name, plural(n, "positional argument"), len(args))}
	}

	out := make([]any, n, max(n, len(args)))
	set := make([]bool, n)
	for i := 0; i < len(args) && i < n; i++ {
		out[i] = args[i]
		set[i] = true
	}

	for _, name := range kwOrder {
		idx := -1
		for i, p := range f.Params {
			if p.Name == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, &ArityError{Func: f.Name, Message: fmt.Sprintf("%s() got an unexpected keyword argument '%s'", f.Name, name)}
		}
		if set[idx] {
			return nil, &ArityError{Func: f.Name, Message: fmt.Sprintf("%s() got multiple values for argument '%s'", f.Name, name)}
		}
		out[idx] = kwargs[name]
		set[idx] = true
	}

	for i, p := range f.Params {
		if set[i] {
			continue
		}
		if !p.Optional {
			return nil, &ArityError{Func: f.Name, Message: fmt.Sprintf("%s() missing required argument: '%s'", f.Name, p.Name)}
		}
		out[i] = p.Default
	}

	if len(args) > n {
		out = append(out, args[n:]...)
	}
	return out, nil
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// Call invokes f with already evaluated arguments.
func (f *Function) Call(env *Env, args []any, kwargs map[string]any) (any, error) {
	var order []string
	if len(kwargs) > 0 {
		order = make([]string, 0, len(kwargs))
		for _, p := range f.Params {
			if _, ok := kwargs[p.Name]; ok {
				order = append(order, p.Name)
			}
		}
		for k := range kwargs {
			found := false
			for _, p := range f.Params {
				if p.Name == k {
					found = true
					break
				}
			}
			if !found {
				order = append(order, k)
			}
		}
	}
	bound, err := f.bind(args, kwargs, order)
	if err != nil {
		return nil, err
	}
	return f.Fn(env, bound)
}
