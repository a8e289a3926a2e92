package cli

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/robinvdvleuten/ledgerscript/ast"
	"github.com/robinvdvleuten/ledgerscript/interp"
	"github.com/robinvdvleuten/ledgerscript/parser"
	"github.com/robinvdvleuten/ledgerscript/program"
)

func TestErrorRenderer_RenderParseErrorWithSourceContext(t *testing.T) {
	source := "principal = 1000\nrate = 0.05\npayment = pmt(rate / 12, 12, principal\nprint(payment)"

	parseErr := &parser.ParseError{
		Pos:     ast.Position{Filename: "loan.dsl", Line: 3, Column: 39},
		Message: "expected ')'",
	}

	output := NewErrorRenderer([]byte(source)).Render(parseErr)

	assert.Contains(t, output, "loan.dsl:3:39: expected ')'")
	assert.Contains(t, output, "   principal = 1000\n")
	assert.Contains(t, output, "   payment = pmt(rate / 12, 12, principal\n")
	assert.Contains(t, output, "   print(payment)\n")
	assert.Contains(t, output, "   "+strings.Repeat(" ", 38)+"^")
}

func TestErrorRenderer_RenderParseErrorWithoutSource(t *testing.T) {
	parseErr := &parser.ParseError{
		Pos:     ast.Position{Line: 1, Column: 5},
		Message: "unexpected token",
	}

	output := NewErrorRenderer(nil).Render(parseErr)
	assert.Equal(t, "line 1:5: unexpected token", output)
}

func TestErrorRenderer_RenderStatementError(t *testing.T) {
	stmtErr := &program.StatementError{
		Pos:    ast.Position{Filename: "fees.dsl", Line: 2, Column: 1},
		Source: "missing * 0.01",
		Row:    0,
		Err:    &interp.NameError{Name: "missing"},
	}

	t.Run("WithSource", func(t *testing.T) {
		source := "x = 1\nfee = missing * 0.01\n"
		output := NewErrorRenderer([]byte(source)).Render(stmtErr)

		assert.Contains(t, output, "fees.dsl:2 (row 1): name 'missing' is not defined")
		assert.Contains(t, output, "   x = 1\n")
		assert.Contains(t, output, "   fee = missing * 0.01\n   ^\n")
	})

	t.Run("WithoutSource", func(t *testing.T) {
		output := NewErrorRenderer(nil).Render(stmtErr)

		assert.Contains(t, output, "fees.dsl:2 (row 1): name 'missing' is not defined")
		assert.Contains(t, output, "   missing * 0.01\n")
		assert.NotContains(t, output, "^")
	})
}

func TestErrorRenderer_RenderRunErrors(t *testing.T) {
	errs := &program.RunErrors{Errors: []error{
		&program.StatementError{Pos: ast.Position{Line: 1, Column: 1}, Source: "a = x", Row: 0, Err: &interp.NameError{Name: "x"}},
		&program.StatementError{Pos: ast.Position{Line: 1, Column: 1}, Source: "a = x", Row: 2, Err: &interp.NameError{Name: "x"}},
	}}

	output := NewErrorRenderer(nil).Render(errs)

	assert.Contains(t, output, "line 1 (row 1): name 'x' is not defined")
	assert.Contains(t, output, "line 1 (row 3): name 'x' is not defined")
	assert.Equal(t, 1, strings.Count(output, "\n\n\n"))
}

func TestErrorRenderer_RenderPlainError(t *testing.T) {
	output := NewErrorRenderer([]byte("x = 1")).Render(stderrors.New("boom"))
	assert.Equal(t, "boom", output)
}

func TestErrorRenderer_RenderAllEmpty(t *testing.T) {
	assert.Equal(t, "", NewErrorRenderer(nil).RenderAll(nil))
}
