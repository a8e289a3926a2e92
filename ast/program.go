package ast

// Item is one line-level element of a program.
type Item interface {
	Position() Position
	itemNode()
}

// Program is a parsed DSL program.
type Program struct {
	Filename string
	Items    []Item
	// EventRefs maps each rewritten EVENT_field name to the EVENT.field
	// form it was written in.
	EventRefs map[string]string
}

// Statement is either an assignment (Target set) or a bare expression.
type Statement struct {
	Pos    Position
	Target string
	Expr   Node
	// Source is the expression text as written, after EVENT.field rewriting.
	// The evaluator re-parses it so that top-level iif stays lazy.
	Source string
}

// Comment is a full-line comment, kept with its marker ("#" or "//").
type Comment struct {
	Pos  Position
	Text string
}

// BlankLine preserves vertical spacing for the formatter.
type BlankLine struct {
	Pos Position
}

func (s *Statement) Position() Position { return s.Pos }
func (c *Comment) Position() Position   { return c.Pos }
func (b *BlankLine) Position() Position { return b.Pos }

func (*Statement) itemNode() {}
func (*Comment) itemNode()   {}
func (*BlankLine) itemNode() {}

// IsAssignment reports whether the statement binds a name.
func (s *Statement) IsAssignment() bool {
	return s.Target != ""
}

// String renders the statement canonically.
func (s *Statement) String() string {
	if s.Target != "" {
		return s.Target + " = " + s.Expr.String()
	}
	return s.Expr.String()
}

// Statements returns only the executable items in program order.
func (p *Program) Statements() []*Statement {
	var out []*Statement
	for _, item := range p.Items {
		if s, ok := item.(*Statement); ok {
			out = append(out, s)
		}
	}
	return out
}
