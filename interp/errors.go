package interp

import (
	"github.com/robinvdvleuten/ledgerscript/ast"
)

// EvalError is raised by the evaluator itself: unknown names, unsupported
// operand types, bad subscripts. The message is kept bare, matching what
// schedules store in "ERROR: ..." sentinels.
type EvalError struct {
	Pos     ast.Position
	Message string
	Err     error
}

func (e *EvalError) Error() string {
	return e.Message
}

// GetPosition returns where in the expression the error occurred.
func (e *EvalError) GetPosition() ast.Position {
	return e.Pos
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

// NameError is returned when a name resolves to nothing.
type NameError struct {
	Pos  ast.Position
	Name string
}

func (e *NameError) Error() string {
	return "name '" + e.Name + "' is not defined"
}

// GetPosition returns where the name was referenced.
func (e *NameError) GetPosition() ast.Position {
	return e.Pos
}

// ArityError is returned when call arguments do not fit a function's
// parameter list.
type ArityError struct {
	Func    string
	Message string
}

func (e *ArityError) Error() string {
	return e.Message
}
