// Package errors provides error formatting for program parse and run
// failures. It separates error presentation from the packages that raise
// them, so the same error can be rendered as text for the CLI or as JSON for
// machine consumers.
//
// The package defines a Formatter interface with two implementations:
//   - TextFormatter: the error message followed by the offending source
//     lines with a caret under the failing column
//   - JSONFormatter: structured JSON with position and row details
package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/robinvdvleuten/ledgerscript/ast"
	"github.com/robinvdvleuten/ledgerscript/parser"
	"github.com/robinvdvleuten/ledgerscript/program"
)

// Formatter formats errors for output in different formats.
type Formatter interface {
	// Format formats a single error.
	Format(err error) string

	// FormatAll formats multiple errors.
	FormatAll(errs []error) string
}

// positioned is implemented by errors that know where they occurred.
type positioned interface {
	GetPosition() ast.Position
	Error() string
}

// Flatten expands *program.RunErrors into its members. Other errors are
// returned as a single-element slice.
func Flatten(err error) []error {
	if err == nil {
		return nil
	}
	var runErrs *program.RunErrors
	if stderrors.As(err, &runErrs) {
		return runErrs.Errors
	}
	return []error{err}
}

// TextFormatter formats errors for command-line output.
type TextFormatter struct {
	sourceContent []byte
}

// TextFormatterOption is an option for configuring TextFormatter.
type TextFormatterOption func(*TextFormatter)

// WithSource sets the program source shown around error positions.
func WithSource(source []byte) TextFormatterOption {
	return func(tf *TextFormatter) {
		tf.sourceContent = source
	}
}

// NewTextFormatter creates a new text formatter.
func NewTextFormatter(opts ...TextFormatterOption) *TextFormatter {
	tf := &TextFormatter{}
	for _, opt := range opts {
		opt(tf)
	}
	return tf
}

// Format formats a single error.
func (tf *TextFormatter) Format(err error) string {
	if errs := Flatten(err); len(errs) > 1 {
		return tf.FormatAll(errs)
	}

	var stmtErr *program.StatementError
	if stderrors.As(err, &stmtErr) {
		if tf.sourceContent != nil {
			return tf.formatWithSourceContext(stmtErr.Pos, stmtErr.Error(), tf.sourceContent)
		}
		return formatStatement(stmtErr)
	}

	var parseErr *parser.ParseError
	if stderrors.As(err, &parseErr) && tf.sourceContent != nil {
		return tf.formatWithSourceContext(parseErr.Pos, parseErr.Error(), tf.sourceContent)
	}

	if e, ok := err.(positioned); ok && tf.sourceContent != nil {
		return tf.formatWithSourceContext(e.GetPosition(), e.Error(), tf.sourceContent)
	}

	return err.Error()
}

// FormatAll formats multiple errors, separating them with blank lines.
func (tf *TextFormatter) FormatAll(errs []error) string {
	if len(errs) == 0 {
		return ""
	}

	var buf bytes.Buffer
	for i, err := range errs {
		buf.WriteString(tf.Format(err))

		if i < len(errs)-1 {
			buf.WriteString("\n\n")
		}
	}

	return buf.String()
}

// formatStatement shows the failing statement text when the source file is
// not available.
func formatStatement(e *program.StatementError) string {
	var buf bytes.Buffer
	buf.WriteString(e.Error())
	if e.Source != "" {
		buf.WriteString("\n\n")
		for _, line := range strings.Split(e.Source, "\n") {
			buf.WriteString("   ")
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

// formatWithSourceContext shows the error message followed by the source
// lines around the error position.
func (tf *TextFormatter) formatWithSourceContext(pos ast.Position, message string, sourceContent []byte) string {
	var buf bytes.Buffer

	buf.WriteString(message)
	buf.WriteString("\n\n")

	sourceLines := strings.Split(string(sourceContent), "\n")

	// Two lines before the error line and one after.
	startLine := pos.Line - 3
	endLine := pos.Line
	if startLine < 0 {
		startLine = 0
	}
	if endLine >= len(sourceLines) {
		endLine = len(sourceLines) - 1
	}

	for i := startLine; i <= endLine; i++ {
		buf.WriteString("   ")
		buf.WriteString(sourceLines[i])
		buf.WriteByte('\n')

		if i == pos.Line-1 && pos.Column > 0 {
			buf.WriteString("   ")
			buf.WriteString(strings.Repeat(" ", pos.Column-1))
			buf.WriteString("^\n")
		}
	}

	return buf.String()
}

// JSONFormatter formats errors as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// ErrorJSON represents an error in JSON format.
type ErrorJSON struct {
	Type     string         `json:"type"`
	Message  string         `json:"message"`
	Position *PositionJSON  `json:"position,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// PositionJSON represents a file position in JSON format.
type PositionJSON struct {
	Filename string `json:"filename"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// Format formats a single error as JSON.
func (jf *JSONFormatter) Format(err error) string {
	if errs := Flatten(err); len(errs) > 1 {
		return jf.FormatAll(errs)
	}
	data, _ := json.Marshal(jf.toJSON(err))
	return string(data)
}

// FormatAll formats multiple errors as a JSON array.
func (jf *JSONFormatter) FormatAll(errs []error) string {
	data, _ := json.MarshalIndent(jf.FormatAllToSlice(errs), "", "  ")
	return string(data)
}

// FormatAllToSlice returns errors as a slice of ErrorJSON structs.
func (jf *JSONFormatter) FormatAllToSlice(errs []error) []ErrorJSON {
	result := make([]ErrorJSON, 0, len(errs))
	for _, err := range errs {
		for _, e := range Flatten(err) {
			result = append(result, jf.toJSON(e))
		}
	}
	return result
}

// toJSON converts an error to ErrorJSON.
func (jf *JSONFormatter) toJSON(err error) ErrorJSON {
	errJSON := ErrorJSON{
		Type:    fmt.Sprintf("%T", err),
		Message: err.Error(),
		Details: make(map[string]any),
	}

	if e, ok := err.(positioned); ok {
		pos := e.GetPosition()
		errJSON.Position = &PositionJSON{
			Filename: pos.Filename,
			Line:     pos.Line,
			Column:   pos.Column,
		}
	}

	var stmtErr *program.StatementError
	if stderrors.As(err, &stmtErr) {
		errJSON.Message = stmtErr.Err.Error()
		errJSON.Details["statement"] = stmtErr.Source
		if stmtErr.Row >= 0 {
			errJSON.Details["row"] = stmtErr.Row + 1
		}
		errJSON.Details["cause"] = fmt.Sprintf("%T", stmtErr.Err)
	}

	return errJSON
}
