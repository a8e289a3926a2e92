package parser

// TokenType represents the type of token scanned from the input.
type TokenType uint8

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Keywords
	AND   // and
	OR    // or
	NOT   // not
	IF    // if
	ELSE  // else
	IN    // in
	TRUE  // True
	FALSE // False
	NONE  // None

	// Literals
	NUMBER // 123, 1.5, 1e-6
	STRING // 'text' or "text"
	IDENT  // amount, period_date

	// Operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	DSLASH  // //
	PERCENT // %
	POW     // **
	EQ      // ==
	NEQ     // !=
	LT      // <
	LTE     // <=
	GT      // >
	GTE     // >=
	ASSIGN  // =

	// Delimiters
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	LBRACE   // {
	RBRACE   // }
	COMMA    // ,
	COLON    // :
	DOT      // .
)

var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",

	AND:   "and",
	OR:    "or",
	NOT:   "not",
	IF:    "if",
	ELSE:  "else",
	IN:    "in",
	TRUE:  "True",
	FALSE: "False",
	NONE:  "None",

	NUMBER: "NUMBER",
	STRING: "STRING",
	IDENT:  "IDENT",

	PLUS:    "+",
	MINUS:   "-",
	STAR:    "*",
	SLASH:   "/",
	DSLASH:  "//",
	PERCENT: "%",
	POW:     "**",
	EQ:      "==",
	NEQ:     "!=",
	LT:      "<",
	LTE:     "<=",
	GT:      ">",
	GTE:     ">=",
	ASSIGN:  "=",

	LPAREN:   "(",
	RPAREN:   ")",
	LBRACKET: "[",
	RBRACKET: "]",
	LBRACE:   "{",
	RBRACE:   "}",
	COMMA:    ",",
	COLON:    ":",
	DOT:      ".",
}

var keywords = map[string]TokenType{
	"and":   AND,
	"or":    OR,
	"not":   NOT,
	"if":    IF,
	"else":  ELSE,
	"in":    IN,
	"True":  TRUE,
	"False": FALSE,
	"None":  NONE,
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// Token represents a lexical token.
// Instead of storing the token text as a string, it stores byte offsets
// into the source buffer.
type Token struct {
	Type   TokenType
	Start  int // Byte offset into source buffer
	End    int // End offset (exclusive)
	Line   int // Line number (1-indexed)
	Column int // Column number (1-indexed)
}

// String materializes the token text from the source buffer.
func (t Token) String(source []byte) string {
	if t.Start >= len(source) || t.End > len(source) || t.Start > t.End {
		return ""
	}
	return string(source[t.Start:t.End])
}

// Bytes returns a zero-copy view of the token text.
func (t Token) Bytes(source []byte) []byte {
	if t.Start >= len(source) || t.End > len(source) || t.Start > t.End {
		return nil
	}
	return source[t.Start:t.End]
}

// Len returns the length of the token in bytes.
func (t Token) Len() int {
	return t.End - t.Start
}
