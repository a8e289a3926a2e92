package errors_test

import (
	"fmt"

	"github.com/robinvdvleuten/ledgerscript/ast"
	"github.com/robinvdvleuten/ledgerscript/errors"
	"github.com/robinvdvleuten/ledgerscript/interp"
	"github.com/robinvdvleuten/ledgerscript/program"
)

// Example showing how to use TextFormatter for CLI output
func ExampleTextFormatter() {
	err := &program.StatementError{
		Pos:    ast.Position{Filename: "fees.dsl", Line: 2, Column: 1},
		Source: "fee / count",
		Row:    0,
		Err:    &interp.NameError{Name: "count"},
	}

	source := []byte("fee = 10\nper_item = fee / count\n")
	formatter := errors.NewTextFormatter(errors.WithSource(source))
	fmt.Println(formatter.Format(err))
	// Output:
	// fees.dsl:2 (row 1): name 'count' is not defined
	//
	//    fee = 10
	//    per_item = fee / count
	//    ^
}

// Example showing how to use JSONFormatter for API output
func ExampleJSONFormatter() {
	err := &program.StatementError{
		Pos:    ast.Position{Filename: "fees.dsl", Line: 2, Column: 1},
		Source: "fee / count",
		Row:    -1,
		Err:    &interp.NameError{Name: "count"},
	}

	formatter := errors.NewJSONFormatter()
	fmt.Println(formatter.Format(err))
	// Output:
	// {"type":"*program.StatementError","message":"name 'count' is not defined","position":{"filename":"fees.dsl","line":2,"column":1},"details":{"cause":"*interp.NameError","statement":"fee / count"}}
}
