package program

import (
	"fmt"
	"strings"

	"github.com/robinvdvleuten/ledgerscript/ast"
)

// StatementError is returned when a statement fails to evaluate.
type StatementError struct {
	Pos    ast.Position
	Source string
	// Row is the 0-based data row, or -1 for a standalone run.
	Row int
	Err error
}

func (e *StatementError) Error() string {
	location := fmt.Sprintf("%s:%d", e.Pos.Filename, e.Pos.Line)
	if e.Pos.Filename == "" {
		location = fmt.Sprintf("line %d", e.Pos.Line)
	}
	if e.Row >= 0 {
		location += fmt.Sprintf(" (row %d)", e.Row+1)
	}
	return fmt.Sprintf("%s: %s", location, e.Err)
}

func (e *StatementError) Unwrap() error {
	return e.Err
}

// GetPosition returns where the failing statement starts.
func (e *StatementError) GetPosition() ast.Position {
	return e.Pos
}

// RunErrors collects the failures of a run that continued past errors.
type RunErrors struct {
	Errors []error
}

func (e *RunErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d statements failed:\n%s", len(e.Errors), strings.Join(msgs, "\n"))
}

func (e *RunErrors) Unwrap() []error {
	return e.Errors
}
