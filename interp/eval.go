package interp

import (
	"fmt"
	"math"
	"strings"

	"github.com/robinvdvleuten/ledgerscript/ast"
	"github.com/robinvdvleuten/ledgerscript/parser"
	"github.com/robinvdvleuten/ledgerscript/value"
)

// Evaluate parses and evaluates one expression. Parsed trees are cached, so
// re-evaluating the same text per row is cheap.
//
// A whole expression of the form iif(cond, a, b) is evaluated lazily: only
// cond and the selected branch run. An iif nested anywhere else is an
// ordinary call with eagerly evaluated arguments.
func Evaluate(env *Env, text string, locals map[string]any) (any, error) {
	text = strings.TrimSpace(text)
	if parts, ok := splitIIF(text); ok {
		cond, err := evalText(env, parts[0], locals)
		if err != nil {
			return nil, err
		}
		if value.Truthy(cond) {
			return evalText(env, parts[1], locals)
		}
		return evalText(env, parts[2], locals)
	}
	return evalText(env, text, locals)
}

func evalText(env *Env, text string, locals map[string]any) (any, error) {
	node, err := parser.ParseCached(text)
	if err != nil {
		return nil, err
	}
	return Eval(env, node, locals)
}

// Eval evaluates a parsed expression.
func Eval(env *Env, node ast.Node, locals map[string]any) (any, error) {
	ev := &evaluator{env: env, locals: locals}
	return ev.eval(node)
}

type evaluator struct {
	env    *Env
	locals map[string]any
}

func (ev *evaluator) eval(node ast.Node) (any, error) {
	switch n := node.(type) {
	case *ast.Number:
		return n.Value, nil
	case *ast.String:
		return n.Value, nil
	case *ast.Bool:
		return n.Value, nil
	case *ast.None:
		return nil, nil
	case *ast.Name:
		return ev.lookup(n)
	case *ast.Paren:
		return ev.eval(n.X)
	case *ast.List:
		out := make([]any, len(n.Elems))
		for i, elem := range n.Elems {
			v, err := ev.eval(elem)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *ast.Dict:
		d := value.NewDict()
		for i := range n.Keys {
			k, err := ev.eval(n.Keys[i])
			if err != nil {
				return nil, err
			}
			key, err := dictKey(k, n.Keys[i].Position())
			if err != nil {
				return nil, err
			}
			v, err := ev.eval(n.Values[i])
			if err != nil {
				return nil, err
			}
			d.Set(key, v)
		}
		return d, nil
	case *ast.Unary:
		x, err := ev.eval(n.X)
		if err != nil {
			return nil, err
		}
		return unary(n, x)
	case *ast.Binary:
		l, err := ev.eval(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := ev.eval(n.Right)
		if err != nil {
			return nil, err
		}
		return binary(n.Op, l, r, n.Pos)
	case *ast.Compare:
		return ev.compare(n)
	case *ast.Logical:
		l, err := ev.eval(n.Left)
		if err != nil {
			return nil, err
		}
		if value.Truthy(l) == (n.Op == "or") {
			return l, nil
		}
		return ev.eval(n.Right)
	case *ast.Cond:
		c, err := ev.eval(n.Cond)
		if err != nil {
			return nil, err
		}
		if value.Truthy(c) {
			return ev.eval(n.Then)
		}
		return ev.eval(n.Else)
	case *ast.Index:
		x, err := ev.eval(n.X)
		if err != nil {
			return nil, err
		}
		i, err := ev.eval(n.Index)
		if err != nil {
			return nil, err
		}
		return index(x, i, n.Pos)
	case *ast.Call:
		return ev.call(n)
	}
	return nil, &EvalError{Pos: node.Position(), Message: fmt.Sprintf("unsupported expression %T", node)}
}

func (ev *evaluator) lookup(n *ast.Name) (any, error) {
	if v, ok := ev.locals[n.Name]; ok {
		return v, nil
	}
	if ev.env != nil && ev.env.Registry != nil {
		if f, ok := ev.env.Registry.Lookup(n.Name); ok {
			return f, nil
		}
	}
	if f, ok := builtins[n.Name]; ok {
		return f, nil
	}
	return nil, &NameError{Pos: n.Pos, Name: n.Name}
}

func (ev *evaluator) call(n *ast.Call) (any, error) {
	fn, err := ev.lookup(&ast.Name{Pos: n.Pos, Name: n.Func})
	if err != nil {
		return nil, err
	}
	f, ok := fn.(*Function)
	if !ok {
		return nil, &EvalError{Pos: n.Pos, Message: fmt.Sprintf("'%s' object is not callable", value.TypeName(fn))}
	}

	args := make([]any, len(n.Args))
	for i, a := range n.Args {
		v, err := ev.eval(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	var kwargs map[string]any
	var order []string
	if len(n.Keywords) > 0 {
		kwargs = make(map[string]any, len(n.Keywords))
		order = make([]string, len(n.Keywords))
		for i, kw := range n.Keywords {
			v, err := ev.eval(kw.Value)
			if err != nil {
				return nil, err
			}
			kwargs[kw.Name] = v
			order[i] = kw.Name
		}
	}

	bound, err := f.bind(args, kwargs, order)
	if err != nil {
		return nil, err
	}
	return f.Fn(ev.env, bound)
}

// compare evaluates a comparison chain; a < b < c stops at the first false
// link without evaluating further operands.
func (ev *evaluator) compare(n *ast.Compare) (any, error) {
	left, err := ev.eval(n.Operands[0])
	if err != nil {
		return nil, err
	}
	for i, op := range n.Ops {
		right, err := ev.eval(n.Operands[i+1])
		if err != nil {
			return nil, err
		}
		ok, err := compareOp(op, left, right)
		if err != nil {
			return nil, &EvalError{Pos: n.Pos, Message: err.Error(), Err: err}
		}
		if !ok {
			return false, nil
		}
		left = right
	}
	return true, nil
}

func compareOp(op string, l, r any) (bool, error) {
	switch op {
	case "==":
		return value.Equal(l, r), nil
	case "!=":
		return !value.Equal(l, r), nil
	case "in":
		return value.Contains(r, l)
	case "not in":
		found, err := value.Contains(r, l)
		return !found, err
	}
	c, err := value.Compare(l, r, op)
	if err != nil {
		return false, err
	}
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return false, fmt.Errorf("unknown comparison %s", op)
}

func unary(n *ast.Unary, x any) (any, error) {
	if n.Op == "not" {
		return !value.Truthy(x), nil
	}
	f, ok := value.Number(x)
	if !ok {
		return nil, &EvalError{Pos: n.Pos, Message: fmt.Sprintf("bad operand type for unary %s: '%s'", n.Op, value.TypeName(x))}
	}
	if n.Op == "-" {
		return -f, nil
	}
	return f, nil
}

// Arithmetic applies a binary arithmetic operator with the expression
// language's semantics. It is exported for the op_* registry functions.
func Arithmetic(op string, l, r any) (any, error) {
	return binary(op, l, r, ast.Position{})
}

func binary(op string, l, r any, pos ast.Position) (any, error) {
	a, aok := value.Number(l)
	b, bok := value.Number(r)
	if aok && bok {
		return arith(op, a, b, pos)
	}

	switch op {
	case "+":
		if ls, ok := l.(string); ok {
			if rs, ok := r.(string); ok {
				return ls + rs, nil
			}
		}
		if value.IsList(l) && value.IsList(r) {
			xs, ys := value.ToList(l), value.ToList(r)
			out := make([]any, 0, len(xs)+len(ys))
			out = append(out, xs...)
			return append(out, ys...), nil
		}
	case "*":
		if count, seq, ok := repetition(l, r); ok {
			return repeat(seq, count), nil
		}
	}
	return nil, &EvalError{Pos: pos, Message: fmt.Sprintf("unsupported operand type(s) for %s: '%s' and '%s'", op, value.TypeName(l), value.TypeName(r))}
}

func arith(op string, a, b float64, pos ast.Position) (any, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return nil, &EvalError{Pos: pos, Message: "division by zero"}
		}
		return a / b, nil
	case "//":
		if b == 0 {
			return nil, &EvalError{Pos: pos, Message: "integer division or modulo by zero"}
		}
		return math.Floor(a / b), nil
	case "%":
		if b == 0 {
			return nil, &EvalError{Pos: pos, Message: "integer division or modulo by zero"}
		}
		return FloorMod(a, b), nil
	case "**":
		if a == 0 && b < 0 {
			return nil, &EvalError{Pos: pos, Message: "0.0 cannot be raised to a negative power"}
		}
		return math.Pow(a, b), nil
	}
	return nil, &EvalError{Pos: pos, Message: "unknown operator " + op}
}

// FloorMod is the modulo whose result takes the sign of the divisor.
func FloorMod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

func repetition(l, r any) (int, any, bool) {
	if n, ok := r.(float64); ok && n == math.Trunc(n) {
		if _, isStr := l.(string); isStr || value.IsList(l) {
			return int(n), l, true
		}
	}
	if n, ok := l.(float64); ok && n == math.Trunc(n) {
		if _, isStr := r.(string); isStr || value.IsList(r) {
			return int(n), r, true
		}
	}
	return 0, nil, false
}

func repeat(seq any, n int) any {
	if n < 0 {
		n = 0
	}
	if s, ok := seq.(string); ok {
		return strings.Repeat(s, n)
	}
	items := value.ToList(seq)
	out := make([]any, 0, len(items)*n)
	for i := 0; i < n; i++ {
		out = append(out, items...)
	}
	return out
}

func index(x, i any, pos ast.Position) (any, error) {
	switch c := x.(type) {
	case string:
		runes := []rune(c)
		idx, err := listIndex(i, len(runes), "string", pos)
		if err != nil {
			return nil, err
		}
		return string(runes[idx]), nil
	case value.Keyed:
		key, err := dictKey(i, pos)
		if err != nil {
			return nil, err
		}
		v, ok := c.Get(key)
		if !ok {
			return nil, &EvalError{Pos: pos, Message: fmt.Sprintf("key %s not found", value.Repr(i))}
		}
		return v, nil
	}
	if value.IsList(x) {
		items := value.ToList(x)
		idx, err := listIndex(i, len(items), "list", pos)
		if err != nil {
			return nil, err
		}
		return items[idx], nil
	}
	return nil, &EvalError{Pos: pos, Message: fmt.Sprintf("'%s' object is not subscriptable", value.TypeName(x))}
}

func listIndex(i any, n int, kind string, pos ast.Position) (int, error) {
	f, ok := value.Number(i)
	if !ok || f != math.Trunc(f) {
		return 0, &EvalError{Pos: pos, Message: fmt.Sprintf("%s indices must be integers, not %s", kind, value.TypeName(i))}
	}
	idx := int(f)
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		return 0, &EvalError{Pos: pos, Message: kind + " index out of range"}
	}
	return idx, nil
}

// dictKey converts a hashable value into the string key used by dicts.
func dictKey(k any, pos ast.Position) (string, error) {
	switch x := k.(type) {
	case string:
		return x, nil
	case nil, bool, float64:
		return value.Str(x), nil
	}
	return "", &EvalError{Pos: pos, Message: fmt.Sprintf("unhashable type: '%s'", value.TypeName(k))}
}

// splitIIF recognises text that is entirely one iif(c, a, b) call and
// returns its three argument texts. Commas inside brackets or string
// literals do not split.
func splitIIF(text string) ([3]string, bool) {
	var out [3]string
	if !strings.HasPrefix(text, "iif(") || !strings.HasSuffix(text, ")") {
		return out, false
	}
	inside := text[len("iif(") : len(text)-1]

	var parts []string
	depth, start := 0, 0
	var quote byte
	for i := 0; i < len(inside); i++ {
		c := inside[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth < 0 {
				// The iif closed before the end: iif(...) + x.
				return out, false
			}
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(inside[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 || quote != 0 {
		return out, false
	}
	if last := strings.TrimSpace(inside[start:]); last != "" {
		parts = append(parts, last)
	}
	if len(parts) != 3 {
		return out, false
	}
	for i, p := range parts {
		if p == "" {
			return out, false
		}
		out[i] = p
	}
	return out, true
}
