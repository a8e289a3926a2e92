// Package program runs parsed DSL programs against data rows.
//
// A run owns one session. With no rows the statements execute once in
// standalone mode; otherwise they execute once per row with the row's
// standard fields and typed event fields bound as variables. Assignments
// persist for the rest of the row they were made in.
package program

import (
	"context"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/robinvdvleuten/ledgerscript/ast"
	"github.com/robinvdvleuten/ledgerscript/parser"
)

// Program is a parsed program together with its event declarations.
type Program struct {
	Name        string
	Description string
	// Instrument is the standalone instrument id. Empty uses the runner's
	// configured default.
	Instrument string
	Events     map[string]Event
	Source     []byte
	AST        *ast.Program
}

// Parse parses plain program source.
func Parse(ctx context.Context, filename string, source []byte) (*Program, error) {
	tree, err := parser.ParseProgram(ctx, filename, source)
	if err != nil {
		return nil, err
	}
	return &Program{Name: filename, Source: source, AST: tree}, nil
}

// FromDefinition parses the code of a definition.
func FromDefinition(ctx context.Context, filename string, def *Definition) (*Program, error) {
	prog, err := Parse(ctx, filename, []byte(def.Code))
	if err != nil {
		return nil, err
	}
	if def.Name != "" {
		prog.Name = def.Name
	}
	prog.Description = def.Description
	prog.Instrument = def.Instrument
	prog.Events = def.Events
	return prog, nil
}

// Statements returns the executable statements in order.
func (p *Program) Statements() []*ast.Statement {
	return p.AST.Statements()
}

// EventNames returns the declared event names, sorted.
func (p *Program) EventNames() []string {
	names := maps.Keys(p.Events)
	slices.Sort(names)
	return names
}
