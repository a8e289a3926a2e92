package cli

import (
	stderrors "errors"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/robinvdvleuten/ledgerscript/ast"
	"github.com/robinvdvleuten/ledgerscript/errors"
	"github.com/robinvdvleuten/ledgerscript/parser"
	"github.com/robinvdvleuten/ledgerscript/program"
)

var (
	errCaretStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	errContextStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#808080", Dark: "#808080"})
)

// ErrorRenderer renders errors with terminal styling and source context.
type ErrorRenderer struct {
	source []byte
}

// NewErrorRenderer creates a renderer with source content for context.
func NewErrorRenderer(source []byte) *ErrorRenderer {
	return &ErrorRenderer{source: source}
}

// Render formats a single error with styling and context. Run errors from
// several rows are rendered one after the other.
func (r *ErrorRenderer) Render(err error) string {
	if errs := errors.Flatten(err); len(errs) > 1 {
		return r.RenderAll(errs)
	}

	var stmtErr *program.StatementError
	if stderrors.As(err, &stmtErr) {
		if r.source != nil {
			return r.renderWithSourceContext(stmtErr.Pos, stmtErr.Error(), r.source)
		}
		return r.renderStatement(stmtErr)
	}

	var parseErr *parser.ParseError
	if stderrors.As(err, &parseErr) && r.source != nil {
		return r.renderWithSourceContext(parseErr.Pos, parseErr.Error(), r.source)
	}

	if e, ok := err.(interface {
		GetPosition() ast.Position
		Error() string
	}); ok {
		if r.source != nil {
			return r.renderWithSourceContext(e.GetPosition(), e.Error(), r.source)
		}
	}

	return err.Error()
}

// RenderAll formats multiple errors, separating them with blank lines.
func (r *ErrorRenderer) RenderAll(errs []error) string {
	if len(errs) == 0 {
		return ""
	}

	var buf strings.Builder
	for i, err := range errs {
		buf.WriteString(r.Render(err))

		if i < len(errs)-1 {
			buf.WriteString("\n\n")
		}
	}

	return buf.String()
}

func (r *ErrorRenderer) renderWithSourceContext(pos ast.Position, message string, sourceContent []byte) string {
	var buf strings.Builder

	buf.WriteString(errorStyle.Render(message))
	buf.WriteString("\n\n")

	sourceLines := strings.Split(string(sourceContent), "\n")

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
		buf.WriteString(errContextStyle.Render(sourceLines[i]))
		buf.WriteByte('\n')

		if i == pos.Line-1 && pos.Column > 0 {
			buf.WriteString("   ")
			buf.WriteString(strings.Repeat(" ", pos.Column-1))
			buf.WriteString(errCaretStyle.Render("^"))
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// renderStatement shows the failing statement when no source is available.
func (r *ErrorRenderer) renderStatement(err *program.StatementError) string {
	if err.Source == "" {
		return errorStyle.Render(err.Error())
	}

	var buf strings.Builder
	buf.WriteString(errorStyle.Render(err.Error()))
	buf.WriteString("\n\n")
	for _, line := range strings.Split(err.Source, "\n") {
		buf.WriteString("   ")
		buf.WriteString(errContextStyle.Render(line))
		buf.WriteByte('\n')
	}
	return buf.String()
}
