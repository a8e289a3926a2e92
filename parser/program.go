package parser

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/robinvdvleuten/ledgerscript/ast"
	"github.com/robinvdvleuten/ledgerscript/telemetry"
)

// eventRef matches EVENT.field references. Event names are upper case.
var eventRef = regexp.MustCompile(`\b([A-Z][A-Z0-9_]*)\.([A-Za-z_][A-Za-z0-9_]*)`)

// RewriteEventRefs turns EVENT.field into the EVENT_field variable name the
// runner binds for each row. String literals are left alone. The rewrite
// keeps the text length, so positions stay valid.
func RewriteEventRefs(text string) string {
	if !strings.Contains(text, ".") {
		return text
	}
	var b strings.Builder
	walkCode(text, func(_ int, code string, literal bool) {
		if literal {
			b.WriteString(code)
			return
		}
		b.WriteString(eventRef.ReplaceAllString(code, "${1}_${2}"))
	})
	return b.String()
}

// collectEventRefs records the EVENT.field references of text, keyed by
// their rewritten name.
func collectEventRefs(text string, into map[string]string) {
	if !strings.Contains(text, ".") {
		return
	}
	walkCode(text, func(_ int, code string, literal bool) {
		if literal {
			return
		}
		for _, m := range eventRef.FindAllStringSubmatch(code, -1) {
			into[m[1]+"_"+m[2]] = m[0]
		}
	})
}

// walkCode splits text into alternating code and string-literal runs,
// passing each run with its offset in text.
func walkCode(text string, fn func(offset int, run string, literal bool)) {
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '\'' && c != '"' {
			continue
		}
		if i > start {
			fn(start, text[start:i], false)
		}
		j := i + 1
		for j < len(text) && text[j] != c && text[j] != '\n' {
			if text[j] == '\\' {
				j++
			}
			j++
		}
		if j < len(text) && text[j] == c {
			j++
		}
		if j > len(text) {
			j = len(text)
		}
		fn(i, text[i:j], true)
		start = j
		i = j - 1
	}
	if start < len(text) {
		fn(start, text[start:], false)
	}
}

// stripComment removes a trailing "# ..." comment that is not inside a
// string literal, and reports the bracket depth change of the line.
func stripComment(line string) (string, int) {
	depth := 0
	out := line
	done := false
	walkCode(line, func(offset int, run string, literal bool) {
		if done || literal {
			return
		}
		for i := 0; i < len(run); i++ {
			switch run[i] {
			case '(', '[', '{':
				depth++
			case ')', ']', '}':
				depth--
			case '#':
				out = line[:offset+i]
				done = true
				return
			}
		}
	})
	return strings.TrimRight(out, " \t\r"), depth
}

// ParseProgram parses DSL program source.
//
// Statements are newline separated and continue onto following lines while
// a bracket is open. Lines starting with "#" or "//" are comments.
func ParseProgram(ctx context.Context, filename string, source []byte) (*ast.Program, error) {
	timer := telemetry.StartTimer(ctx, "parser.parse")
	defer timer.End()

	prog := &ast.Program{Filename: filename, EventRefs: make(map[string]string)}
	lines := splitLines(source)

	for i := 0; i < len(lines); i++ {
		ln := lines[i]
		trimmed := strings.TrimSpace(ln.text)
		indent := len(ln.text) - len(strings.TrimLeft(ln.text, " \t"))
		pos := ast.Position{Filename: filename, Offset: ln.offset + indent, Line: ln.number, Column: indent + 1}

		switch {
		case trimmed == "":
			prog.Items = append(prog.Items, &ast.BlankLine{Pos: pos})
			continue
		case strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "//"):
			prog.Items = append(prog.Items, &ast.Comment{Pos: pos, Text: trimmed})
			continue
		}

		text, depth := stripComment(ln.text[indent:])
		for depth > 0 && i+1 < len(lines) {
			i++
			more, d := stripComment(lines[i].text)
			text += "\n" + more
			depth += d
		}
		if depth > 0 {
			return nil, newErrorf(pos, "unexpected end of program: unclosed bracket")
		}

		collectEventRefs(text, prog.EventRefs)
		stmt, err := parseStatement(RewriteEventRefs(text), pos)
		if err != nil {
			return nil, err
		}
		prog.Items = append(prog.Items, stmt)
	}

	return prog, nil
}

// parseStatement parses "name = expr" or a bare expression.
func parseStatement(text string, pos ast.Position) (*ast.Statement, error) {
	source := []byte(text)
	tokens := NewLexerAt(source, pos.Filename, pos.Line, pos.Column).ScanAll()

	stmt := &ast.Statement{Pos: pos}
	exprStart := 0
	if len(tokens) > 2 && tokens[0].Type == IDENT && tokens[1].Type == ASSIGN {
		stmt.Target = tokens[0].String(source)
		exprStart = tokens[2].Start
		if tokens[2].Type == EOF {
			return nil, newErrorf(tokenPos(tokens[2], pos), "expected expression after '='")
		}
	}

	stmt.Source = strings.TrimSpace(text[exprStart:])
	at := pos.Advance(text[:exprStart])
	expr, err := parseExprAt(text[exprStart:], at)
	if err != nil {
		return nil, err
	}
	stmt.Expr = expr
	return stmt, nil
}

func tokenPos(tok Token, base ast.Position) ast.Position {
	return ast.Position{Filename: base.Filename, Offset: base.Offset + tok.Start, Line: tok.Line, Column: tok.Column}
}

type sourceLine struct {
	text   string
	offset int
	number int
}

func splitLines(source []byte) []sourceLine {
	var lines []sourceLine
	offset := 0
	for n := 1; offset <= len(source); n++ {
		end := bytes.IndexByte(source[offset:], '\n')
		if end < 0 {
			if offset < len(source) {
				lines = append(lines, sourceLine{text: string(source[offset:]), offset: offset, number: n})
			}
			break
		}
		lines = append(lines, sourceLine{text: strings.TrimSuffix(string(source[offset:offset+end]), "\r"), offset: offset, number: n})
		offset += end + 1
	}
	return lines
}
