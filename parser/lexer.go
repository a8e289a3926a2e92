package parser

// Lexer implements a zero-copy lexer for DSL expressions.
//
// Tokens store byte offsets, not string values. Newlines are plain
// whitespace here: statement boundaries are decided by the program splitter
// before the lexer ever sees the text.

// Lexer tokenizes expression source.
type Lexer struct {
	source   []byte  // Source buffer
	filename string  // Filename for error reporting
	pos      int     // Current byte position
	line     int     // Current line (1-indexed)
	column   int     // Current column (1-indexed)
	tokens   []Token // Token buffer (pre-allocated)
}

// NewLexer creates a new lexer for the given source.
func NewLexer(source []byte, filename string) *Lexer {
	return NewLexerAt(source, filename, 1, 1)
}

// NewLexerAt creates a lexer whose first byte sits at line:column of the
// enclosing file, so positions in a statement report file coordinates.
func NewLexerAt(source []byte, filename string, line, column int) *Lexer {
	return &Lexer{
		source:   source,
		filename: filename,
		line:     line,
		column:   column,
		tokens:   make([]Token, 0, len(source)/3+4),
	}
}

// ScanAll lexes the entire source and returns all tokens.
// This is a single-pass scanner with no backtracking.
func (l *Lexer) ScanAll() []Token {
	for l.pos < len(l.source) {
		l.skipWhitespace()

		if l.pos >= len(l.source) {
			break
		}

		tok := l.scanToken()
		l.tokens = append(l.tokens, tok)
	}

	l.tokens = append(l.tokens, Token{
		Type:   EOF,
		Start:  l.pos,
		End:    l.pos,
		Line:   l.line,
		Column: l.column,
	})

	return l.tokens
}

// scanToken scans the next token from the current position.
func (l *Lexer) scanToken() Token {
	start := l.pos
	startLine := l.line
	startCol := l.column

	ch := l.advance()

	switch {
	case isDigit(ch):
		return l.scanNumber(start, startLine, startCol)
	case ch == '.' && l.peekIsDigit():
		return l.scanNumber(start, startLine, startCol)

	case ch == '"' || ch == '\'':
		return l.scanString(ch, start, startLine, startCol)

	case isIdentStart(ch):
		return l.scanKeywordOrIdent(start, startLine, startCol)

	case ch == '+':
		return Token{PLUS, start, l.pos, startLine, startCol}
	case ch == '-':
		return Token{MINUS, start, l.pos, startLine, startCol}
	case ch == '%':
		return Token{PERCENT, start, l.pos, startLine, startCol}

	// * or **
	case ch == '*':
		if l.peek() == '*' {
			l.advance()
			return Token{POW, start, l.pos, startLine, startCol}
		}
		return Token{STAR, start, l.pos, startLine, startCol}

	// / or //
	case ch == '/':
		if l.peek() == '/' {
			l.advance()
			return Token{DSLASH, start, l.pos, startLine, startCol}
		}
		return Token{SLASH, start, l.pos, startLine, startCol}

	// = or ==
	case ch == '=':
		if l.peek() == '=' {
			l.advance()
			return Token{EQ, start, l.pos, startLine, startCol}
		}
		return Token{ASSIGN, start, l.pos, startLine, startCol}

	// != (a lone ! is illegal)
	case ch == '!':
		if l.peek() == '=' {
			l.advance()
			return Token{NEQ, start, l.pos, startLine, startCol}
		}
		return Token{ILLEGAL, start, l.pos, startLine, startCol}

	// < or <=
	case ch == '<':
		if l.peek() == '=' {
			l.advance()
			return Token{LTE, start, l.pos, startLine, startCol}
		}
		return Token{LT, start, l.pos, startLine, startCol}

	// > or >=
	case ch == '>':
		if l.peek() == '=' {
			l.advance()
			return Token{GTE, start, l.pos, startLine, startCol}
		}
		return Token{GT, start, l.pos, startLine, startCol}

	case ch == '(':
		return Token{LPAREN, start, l.pos, startLine, startCol}
	case ch == ')':
		return Token{RPAREN, start, l.pos, startLine, startCol}
	case ch == '[':
		return Token{LBRACKET, start, l.pos, startLine, startCol}
	case ch == ']':
		return Token{RBRACKET, start, l.pos, startLine, startCol}
	case ch == '{':
		return Token{LBRACE, start, l.pos, startLine, startCol}
	case ch == '}':
		return Token{RBRACE, start, l.pos, startLine, startCol}
	case ch == ',':
		return Token{COMMA, start, l.pos, startLine, startCol}
	case ch == ':':
		return Token{COLON, start, l.pos, startLine, startCol}
	case ch == '.':
		return Token{DOT, start, l.pos, startLine, startCol}

	default:
		return Token{ILLEGAL, start, l.pos, startLine, startCol}
	}
}

// scanNumber scans a number: [0-9]*(\.[0-9]*)?([eE][+-]?[0-9]+)?
// Underscores between digits are accepted as separators.
func (l *Lexer) scanNumber(start, line, col int) Token {
	for l.pos < len(l.source) && (isDigit(l.source[l.pos]) || l.source[l.pos] == '_') {
		l.advance()
	}

	if l.pos < len(l.source) && l.source[l.pos] == '.' && l.source[start] != '.' {
		l.advance()
	}
	for l.pos < len(l.source) && (isDigit(l.source[l.pos]) || l.source[l.pos] == '_') {
		l.advance()
	}

	// Exponent only when followed by digits, otherwise "1e" lexes as 1 then e.
	if l.pos < len(l.source) && (l.source[l.pos] == 'e' || l.source[l.pos] == 'E') {
		next := l.pos + 1
		if next < len(l.source) && (l.source[next] == '+' || l.source[next] == '-') {
			next++
		}
		if next < len(l.source) && isDigit(l.source[next]) {
			for l.pos < next {
				l.advance()
			}
			for l.pos < len(l.source) && isDigit(l.source[l.pos]) {
				l.advance()
			}
		}
	}

	return Token{NUMBER, start, l.pos, line, col}
}

// scanString scans a quoted string. The closing quote must match the
// opening one and strings do not span lines. An unterminated string is
// ILLEGAL.
func (l *Lexer) scanString(quote byte, start, line, col int) Token {
	for l.pos < len(l.source) {
		ch := l.source[l.pos]
		if ch == quote {
			l.advance()
			return Token{STRING, start, l.pos, line, col}
		}
		if ch == '\n' {
			break
		}
		if ch == '\\' && l.pos+1 < len(l.source) {
			l.advance()
			l.advance()
		} else {
			l.advance()
		}
	}

	return Token{ILLEGAL, start, l.pos, line, col}
}

// scanKeywordOrIdent scans a keyword or identifier.
func (l *Lexer) scanKeywordOrIdent(start, line, col int) Token {
	for l.pos < len(l.source) && isIdentPart(l.source[l.pos]) {
		l.advance()
	}

	if typ, ok := keywords[string(l.source[start:l.pos])]; ok {
		return Token{typ, start, l.pos, line, col}
	}
	return Token{IDENT, start, l.pos, line, col}
}

// skipWhitespace skips whitespace and updates line/column tracking.
func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.source) {
		ch := l.source[l.pos]
		if ch != ' ' && ch != '\t' && ch != '\n' && ch != '\r' {
			break
		}
		l.advance()
	}
}

// Helper methods

func (l *Lexer) peek() byte {
	if l.pos >= len(l.source) {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekIsDigit() bool {
	return l.pos < len(l.source) && isDigit(l.source[l.pos])
}

func (l *Lexer) advance() byte {
	if l.pos >= len(l.source) {
		return 0
	}
	ch := l.source[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return ch
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
