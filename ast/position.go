package ast

import (
	"fmt"
	"strings"
)

// Position is a location in program source. Statements are parsed one at a
// time, but positions always report coordinates in the enclosing file.
type Position struct {
	Filename string
	Offset   int // Byte offset
	Line     int // Line number (1-indexed)
	Column   int // Column number (1-indexed)
}

// Advance returns the position just past text, which starts at p.
func (p Position) Advance(text string) Position {
	p.Offset += len(text)
	if n := strings.Count(text, "\n"); n > 0 {
		p.Line += n
		p.Column = len(text) - strings.LastIndexByte(text, '\n')
	} else {
		p.Column += len(text)
	}
	return p
}

// IsValid reports whether the position points into a file.
func (p Position) IsValid() bool {
	return p.Line > 0
}

func (p Position) String() string {
	switch {
	case p.Filename != "":
		return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
	case p.IsValid():
		return fmt.Sprintf("line %d:%d", p.Line, p.Column)
	}
	return "-"
}

// GoString keeps repr dumps of syntax trees on one line per position.
func (p Position) GoString() string {
	return fmt.Sprintf("ast.Position{%q, %d:%d}", p.Filename, p.Line, p.Column)
}
