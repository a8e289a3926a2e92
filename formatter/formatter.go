// Package formatter re-prints parsed programs in canonical form.
package formatter

import (
	"context"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/robinvdvleuten/ledgerscript/ast"
	"github.com/robinvdvleuten/ledgerscript/telemetry"
)

const (
	// DefaultIndentation is the indentation of wrapped call arguments and
	// dict entries.
	DefaultIndentation = 4

	// DefaultLineWidth is the width beyond which a statement is wrapped.
	DefaultLineWidth = 88
)

// Formatter re-prints programs in canonical form: one statement per line,
// single spaces around binary operators, EVENT.field references restored and
// over-long calls, lists and dicts wrapped one element per line.
type Formatter struct {
	// Indentation is the number of spaces for wrapped elements.
	Indentation int

	// LineWidth is the display width a statement may take before it is
	// wrapped. Zero disables wrapping.
	LineWidth int

	// PreserveComments controls whether comment lines are kept.
	// Default: true
	PreserveComments bool

	// PreserveBlanks controls whether blank lines are kept. Runs of blank
	// lines collapse to one.
	// Default: true
	PreserveBlanks bool
}

// Option is a functional option for configuring a Formatter.
type Option func(*Formatter)

// WithIndentation sets the indentation of wrapped elements.
func WithIndentation(n int) Option {
	return func(f *Formatter) {
		f.Indentation = n
	}
}

// WithLineWidth sets the wrapping width.
func WithLineWidth(width int) Option {
	return func(f *Formatter) {
		f.LineWidth = width
	}
}

// WithPreserveComments controls whether comment lines are kept.
func WithPreserveComments(preserve bool) Option {
	return func(f *Formatter) {
		f.PreserveComments = preserve
	}
}

// WithPreserveBlanks controls whether blank lines are kept.
func WithPreserveBlanks(preserve bool) Option {
	return func(f *Formatter) {
		f.PreserveBlanks = preserve
	}
}

// New creates a new Formatter with the given options.
func New(opts ...Option) *Formatter {
	f := &Formatter{
		Indentation:      DefaultIndentation,
		LineWidth:        DefaultLineWidth,
		PreserveComments: true,
		PreserveBlanks:   true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format writes prog in canonical form to w.
func (f *Formatter) Format(ctx context.Context, prog *ast.Program, w io.Writer) error {
	timer := telemetry.StartTimer(ctx, "formatter.format")
	defer timer.End()

	var buf strings.Builder
	p := &printer{events: prog.EventRefs}

	pendingBlank := false
	wrote := false
	for _, item := range prog.Items {
		switch item.(type) {
		case *ast.BlankLine:
			if f.PreserveBlanks && wrote {
				pendingBlank = true
			}
			continue
		case *ast.Comment:
			if !f.PreserveComments {
				continue
			}
		}

		if pendingBlank {
			buf.WriteByte('\n')
			pendingBlank = false
		}
		switch it := item.(type) {
		case *ast.Comment:
			buf.WriteString(it.Text)
		case *ast.Statement:
			buf.WriteString(f.statement(p, it))
		}
		buf.WriteByte('\n')
		wrote = true
	}

	_, err := io.WriteString(w, buf.String())
	return err
}

// FormatStatement renders a single statement without a trailing newline.
func (f *Formatter) FormatStatement(stmt *ast.Statement) string {
	return f.statement(&printer{}, stmt)
}

func (f *Formatter) statement(p *printer, stmt *ast.Statement) string {
	prefix := ""
	if stmt.Target != "" {
		prefix = stmt.Target + " = "
	}
	line := prefix + p.expr(stmt.Expr)
	if f.LineWidth <= 0 || runewidth.StringWidth(line) <= f.LineWidth {
		return line
	}
	if wrapped, ok := f.wrap(p, stmt.Expr); ok {
		return prefix + wrapped
	}
	return line
}

// wrap breaks the outermost call, list or dict one element per line with a
// trailing comma.
func (f *Formatter) wrap(p *printer, n ast.Node) (string, bool) {
	var open, close string
	var elems []string
	switch x := n.(type) {
	case *ast.Call:
		open, close = x.Func+"(", ")"
		for _, a := range x.Args {
			elems = append(elems, p.expr(a))
		}
		for _, kw := range x.Keywords {
			elems = append(elems, kw.Name+"="+p.expr(kw.Value))
		}
	case *ast.List:
		open, close = "[", "]"
		for _, e := range x.Elems {
			elems = append(elems, p.expr(e))
		}
	case *ast.Dict:
		open, close = "{", "}"
		for i := range x.Keys {
			elems = append(elems, p.expr(x.Keys[i])+": "+p.expr(x.Values[i]))
		}
	default:
		return "", false
	}
	if len(elems) == 0 {
		return "", false
	}

	indent := strings.Repeat(" ", f.Indentation)
	var b strings.Builder
	b.WriteString(open)
	b.WriteByte('\n')
	for _, e := range elems {
		b.WriteString(indent)
		b.WriteString(e)
		b.WriteString(",\n")
	}
	b.WriteString(close)
	return b.String(), true
}

// printer renders expressions, restoring EVENT.field references.
type printer struct {
	events map[string]string
}

func (p *printer) expr(n ast.Node) string {
	switch x := n.(type) {
	case *ast.Name:
		if dotted, ok := p.events[x.Name]; ok {
			return dotted
		}
		return x.Name
	case *ast.List:
		return "[" + p.join(x.Elems) + "]"
	case *ast.Dict:
		parts := make([]string, len(x.Keys))
		for i := range x.Keys {
			parts[i] = p.expr(x.Keys[i]) + ": " + p.expr(x.Values[i])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *ast.Paren:
		return "(" + p.expr(x.X) + ")"
	case *ast.Unary:
		if x.Op == "not" {
			return "not " + p.expr(x.X)
		}
		return x.Op + p.expr(x.X)
	case *ast.Binary:
		if x.Op == "**" {
			return p.expr(x.Left) + "**" + p.expr(x.Right)
		}
		return p.expr(x.Left) + " " + x.Op + " " + p.expr(x.Right)
	case *ast.Compare:
		var b strings.Builder
		b.WriteString(p.expr(x.Operands[0]))
		for i, op := range x.Ops {
			b.WriteString(" " + op + " ")
			b.WriteString(p.expr(x.Operands[i+1]))
		}
		return b.String()
	case *ast.Logical:
		return p.expr(x.Left) + " " + x.Op + " " + p.expr(x.Right)
	case *ast.Cond:
		return p.expr(x.Then) + " if " + p.expr(x.Cond) + " else " + p.expr(x.Else)
	case *ast.Call:
		parts := make([]string, 0, len(x.Args)+len(x.Keywords))
		for _, a := range x.Args {
			parts = append(parts, p.expr(a))
		}
		for _, kw := range x.Keywords {
			parts = append(parts, kw.Name+"="+p.expr(kw.Value))
		}
		return x.Func + "(" + strings.Join(parts, ", ") + ")"
	case *ast.Index:
		return p.expr(x.X) + "[" + p.expr(x.Index) + "]"
	}
	return n.String()
}

func (p *printer) join(nodes []ast.Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = p.expr(n)
	}
	return strings.Join(parts, ", ")
}
