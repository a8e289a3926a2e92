// Package ast declares the syntax tree for DSL programs and the
// expressions they contain.
//
// Expressions are a restricted, Python-flavoured language: literals, list
// and dict displays, arithmetic, comparison and boolean operators, the
// conditional form, subscripts and calls to named functions. There is no
// attribute access and no way to call anything but a bare name.
package ast

import (
	"strconv"
	"strings"
)

// Node is an expression node.
type Node interface {
	Position() Position
	// String renders the node back to canonical source text.
	String() string
	exprNode()
}

// Number is a numeric literal.
type Number struct {
	Pos   Position
	Value float64
	Raw   string
}

// String is a string literal.
type String struct {
	Pos   Position
	Value string
}

// Bool is True or False.
type Bool struct {
	Pos   Position
	Value bool
}

// None is the None literal.
type None struct {
	Pos Position
}

// Name is a variable or function reference.
type Name struct {
	Pos  Position
	Name string
}

// List is a list display: [a, b, c].
type List struct {
	Pos   Position
	Elems []Node
}

// Dict is a dict display: {"k": v}. Keys keep their source order.
type Dict struct {
	Pos    Position
	Keys   []Node
	Values []Node
}

// Paren is a parenthesized expression, kept so formatting round-trips.
type Paren struct {
	Pos Position
	X   Node
}

// Unary is a prefix operation: -x, +x, not x.
type Unary struct {
	Pos Position
	Op  string
	X   Node
}

// Binary is an arithmetic operation.
type Binary struct {
	Pos   Position
	Op    string
	Left  Node
	Right Node
}

// Compare is a possibly chained comparison: a < b <= c. Ops has one entry
// fewer than Operands.
type Compare struct {
	Pos      Position
	Ops      []string
	Operands []Node
}

// Logical is a short-circuiting "and" or "or".
type Logical struct {
	Pos   Position
	Op    string
	Left  Node
	Right Node
}

// Cond is the conditional expression: Then if Cond else Else.
type Cond struct {
	Pos  Position
	Then Node
	Cond Node
	Else Node
}

// Keyword is a name=value call argument.
type Keyword struct {
	Pos   Position
	Name  string
	Value Node
}

// Call invokes a named function.
type Call struct {
	Pos      Position
	Func     string
	Args     []Node
	Keywords []Keyword
}

// Index is a subscript: x[i].
type Index struct {
	Pos   Position
	X     Node
	Index Node
}

func (n *Number) Position() Position  { return n.Pos }
func (n *String) Position() Position  { return n.Pos }
func (n *Bool) Position() Position    { return n.Pos }
func (n *None) Position() Position    { return n.Pos }
func (n *Name) Position() Position    { return n.Pos }
func (n *List) Position() Position    { return n.Pos }
func (n *Dict) Position() Position    { return n.Pos }
func (n *Paren) Position() Position   { return n.Pos }
func (n *Unary) Position() Position   { return n.Pos }
func (n *Binary) Position() Position  { return n.Pos }
func (n *Compare) Position() Position { return n.Pos }
func (n *Logical) Position() Position { return n.Pos }
func (n *Cond) Position() Position    { return n.Pos }
func (n *Call) Position() Position    { return n.Pos }
func (n *Index) Position() Position   { return n.Pos }

func (*Number) exprNode()  {}
func (*String) exprNode()  {}
func (*Bool) exprNode()    {}
func (*None) exprNode()    {}
func (*Name) exprNode()    {}
func (*List) exprNode()    {}
func (*Dict) exprNode()    {}
func (*Paren) exprNode()   {}
func (*Unary) exprNode()   {}
func (*Binary) exprNode()  {}
func (*Compare) exprNode() {}
func (*Logical) exprNode() {}
func (*Cond) exprNode()    {}
func (*Call) exprNode()    {}
func (*Index) exprNode()   {}

func (n *Number) String() string {
	if n.Raw != "" {
		return n.Raw
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

func (n *String) String() string {
	return Quote(n.Value)
}

func (n *Bool) String() string {
	if n.Value {
		return "True"
	}
	return "False"
}

func (n *None) String() string { return "None" }

func (n *Name) String() string { return n.Name }

func (n *List) String() string {
	return "[" + joinNodes(n.Elems) + "]"
}

func (n *Dict) String() string {
	parts := make([]string, len(n.Keys))
	for i := range n.Keys {
		parts[i] = n.Keys[i].String() + ": " + n.Values[i].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (n *Paren) String() string { return "(" + n.X.String() + ")" }

func (n *Unary) String() string {
	if n.Op == "not" {
		return "not " + n.X.String()
	}
	return n.Op + n.X.String()
}

func (n *Binary) String() string {
	if n.Op == "**" {
		return n.Left.String() + "**" + n.Right.String()
	}
	return n.Left.String() + " " + n.Op + " " + n.Right.String()
}

func (n *Compare) String() string {
	var b strings.Builder
	b.WriteString(n.Operands[0].String())
	for i, op := range n.Ops {
		b.WriteString(" " + op + " ")
		b.WriteString(n.Operands[i+1].String())
	}
	return b.String()
}

func (n *Logical) String() string {
	return n.Left.String() + " " + n.Op + " " + n.Right.String()
}

func (n *Cond) String() string {
	return n.Then.String() + " if " + n.Cond.String() + " else " + n.Else.String()
}

func (n *Call) String() string {
	parts := make([]string, 0, len(n.Args)+len(n.Keywords))
	for _, a := range n.Args {
		parts = append(parts, a.String())
	}
	for _, kw := range n.Keywords {
		parts = append(parts, kw.Name+"="+kw.Value.String())
	}
	return n.Func + "(" + strings.Join(parts, ", ") + ")"
}

func (n *Index) String() string {
	return n.X.String() + "[" + n.Index.String() + "]"
}

// Quote renders s as a single-quoted string literal, switching to double
// quotes when s itself contains single quotes.
func Quote(s string) string {
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		return `"` + escape(s, '"') + `"`
	}
	return "'" + escape(s, '\'') + "'"
}

func escape(s string, quote byte) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case quote:
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func joinNodes(nodes []Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}
