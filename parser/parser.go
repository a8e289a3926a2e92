// Package parser turns DSL source into syntax trees.
//
// Expressions are parsed by recursive descent with Python's precedence
// levels, from lowest to highest:
//
//	x if c else y
//	or
//	and
//	not
//	in, not in, <, <=, >, >=, !=, ==   (chainable)
//	+ -
//	* / // %
//	unary + -
//	**                                  (right associative)
//	x[i], f(args)
//
// Only bare names may be called, and attribute access is rejected.
package parser

import (
	"strconv"
	"strings"

	"github.com/robinvdvleuten/ledgerscript/ast"
)

// Parser builds an expression tree from tokens.
type Parser struct {
	source   []byte
	tokens   []Token
	pos      int
	filename string
	base     int // offset of source within the enclosing file
}

// NewParser creates a parser over pre-lexed tokens.
func NewParser(source []byte, tokens []Token, filename string) *Parser {
	return &Parser{
		source:   source,
		tokens:   tokens,
		filename: filename,
	}
}

// ParseExpr parses a single expression.
func ParseExpr(text string) (ast.Node, error) {
	return parseExprAt(text, ast.Position{Line: 1, Column: 1})
}

// parseExprAt parses text that starts at the given file position.
func parseExprAt(text string, at ast.Position) (ast.Node, error) {
	source := []byte(text)
	lexer := NewLexerAt(source, at.Filename, at.Line, at.Column)
	tokens := lexer.ScanAll()
	p := NewParser(source, tokens, at.Filename)
	p.base = at.Offset
	return p.parseAll()
}

// parseAll parses one expression and requires the input to end there.
func (p *Parser) parseAll() (ast.Node, error) {
	if p.isAtEnd() {
		return nil, p.error("expected expression")
	}
	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if !p.isAtEnd() {
		return nil, p.unexpected(p.peek())
	}
	return node, nil
}

func (p *Parser) parseExpression() (ast.Node, error) {
	return p.parseConditional()
}

// parseConditional handles "x if c else y".
func (p *Parser) parseConditional() (ast.Node, error) {
	then, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.check(IF) {
		return then, nil
	}
	p.advance()

	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.match(ELSE) {
		return nil, p.error("expected 'else' in conditional expression")
	}
	els, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	return &ast.Cond{Pos: then.Position(), Then: then, Cond: cond, Else: els}, nil
}

func (p *Parser) parseOr() (ast.Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.check(OR) {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Logical{Pos: left.Position(), Op: "or", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.check(AND) {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &ast.Logical{Pos: left.Position(), Op: "and", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (ast.Node, error) {
	// not(...) in call position is the registry function, see parsePrimary.
	if p.check(NOT) && p.peekAhead(1).Type != LPAREN {
		tok := p.advance()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Pos: p.position(tok), Op: "not", X: x}, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (ast.Node, error) {
	left, err := p.parseArith()
	if err != nil {
		return nil, err
	}

	var cmp *ast.Compare
	for {
		op, ok := p.comparisonOp()
		if !ok {
			break
		}
		right, err := p.parseArith()
		if err != nil {
			return nil, err
		}
		if cmp == nil {
			cmp = &ast.Compare{Pos: left.Position(), Operands: []ast.Node{left}}
		}
		cmp.Ops = append(cmp.Ops, op)
		cmp.Operands = append(cmp.Operands, right)
	}
	if cmp == nil {
		return left, nil
	}
	return cmp, nil
}

// comparisonOp consumes a comparison operator if one is next.
func (p *Parser) comparisonOp() (string, bool) {
	switch tok := p.peek(); tok.Type {
	case EQ, NEQ, LT, LTE, GT, GTE, IN:
		p.advance()
		return tok.Type.String(), true
	case NOT:
		if p.peekAhead(1).Type == IN {
			p.advance()
			p.advance()
			return "not in", true
		}
	}
	return "", false
}

func (p *Parser) parseArith() (ast.Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.check(PLUS) || p.check(MINUS) {
		op := p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Pos: left.Position(), Op: op.Type.String(), Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseTerm() (ast.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.check(STAR) || p.check(SLASH) || p.check(DSLASH) || p.check(PERCENT) {
		op := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Pos: left.Position(), Op: op.Type.String(), Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Node, error) {
	if p.check(PLUS) || p.check(MINUS) {
		op := p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Pos: p.position(op), Op: op.Type.String(), X: x}, nil
	}
	return p.parsePower()
}

// parsePower handles "**", which binds tighter than a unary minus on its
// left but accepts one on its right: -2**-1 is -(2**(-1)).
func (p *Parser) parsePower() (ast.Node, error) {
	base, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if !p.check(POW) {
		return base, nil
	}
	p.advance()
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &ast.Binary{Pos: base.Position(), Op: "**", Left: base, Right: exp}, nil
}

func (p *Parser) parsePostfix() (ast.Node, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch tok := p.peek(); tok.Type {
		case LBRACKET:
			p.advance()
			if p.check(RBRACKET) {
				return nil, p.error("expected subscript")
			}
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if p.check(COLON) {
				return nil, p.error("slices are not supported, use array_slice")
			}
			if !p.match(RBRACKET) {
				return nil, p.error("expected ']' after subscript")
			}
			x = &ast.Index{Pos: x.Position(), X: x, Index: index}
		case LPAREN:
			return nil, p.errorAtToken(tok, "only named functions can be called")
		case DOT:
			return nil, p.errorAtToken(tok, "attribute access is not allowed")
		default:
			return x, nil
		}
	}
}

func (p *Parser) parsePrimary() (ast.Node, error) {
	tok := p.peek()

	switch tok.Type {
	case NUMBER:
		p.advance()
		return p.number(tok)

	case STRING:
		p.advance()
		s, err := p.unquote(tok)
		if err != nil {
			return nil, err
		}
		// Adjacent literals concatenate: 'a' 'b' is 'ab'.
		for p.check(STRING) {
			more, err := p.unquote(p.advance())
			if err != nil {
				return nil, err
			}
			s += more
		}
		return &ast.String{Pos: p.position(tok), Value: s}, nil

	case TRUE, FALSE:
		p.advance()
		return &ast.Bool{Pos: p.position(tok), Value: tok.Type == TRUE}, nil

	case NONE:
		p.advance()
		return &ast.None{Pos: p.position(tok)}, nil

	case IDENT:
		p.advance()
		name := names.intern(tok.Bytes(p.source))
		if p.check(LPAREN) {
			return p.parseCall(tok, name)
		}
		return &ast.Name{Pos: p.position(tok), Name: name}, nil

	// and(...), or(...), not(...) and if(...) name registry functions.
	case AND, OR, NOT, IF:
		if p.peekAhead(1).Type == LPAREN {
			p.advance()
			return p.parseCall(tok, tok.Type.String())
		}

	case LPAREN:
		p.advance()
		if p.check(RPAREN) {
			return nil, p.errorAtToken(tok, "tuples are not supported")
		}
		x, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.check(COMMA) {
			return nil, p.errorAtToken(tok, "tuples are not supported, use a list")
		}
		if !p.match(RPAREN) {
			return nil, p.error("expected ')' after expression")
		}
		return &ast.Paren{Pos: p.position(tok), X: x}, nil

	case LBRACKET:
		p.advance()
		elems, err := p.parseList(RBRACKET)
		if err != nil {
			return nil, err
		}
		return &ast.List{Pos: p.position(tok), Elems: elems}, nil

	case LBRACE:
		p.advance()
		return p.parseDict(tok)
	}

	return nil, p.unexpected(tok)
}

// parseCall parses the argument list after a function name. The opening
// parenthesis has not been consumed yet.
func (p *Parser) parseCall(nameTok Token, name string) (ast.Node, error) {
	p.advance() // consume '('

	call := &ast.Call{Pos: p.position(nameTok), Func: name}
	for !p.check(RPAREN) {
		if p.isAtEnd() {
			return nil, p.error("expected ')' after arguments")
		}

		if p.check(IDENT) && p.peekAhead(1).Type == ASSIGN {
			kwTok := p.advance()
			p.advance() // consume '='
			val, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			kwName := names.intern(kwTok.Bytes(p.source))
			for _, kw := range call.Keywords {
				if kw.Name == kwName {
					return nil, p.errorAtToken(kwTok, "keyword argument repeated: %s", kwName)
				}
			}
			call.Keywords = append(call.Keywords, ast.Keyword{Pos: p.position(kwTok), Name: kwName, Value: val})
		} else {
			argTok := p.peek()
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if len(call.Keywords) > 0 {
				return nil, p.errorAtToken(argTok, "positional argument follows keyword argument")
			}
			call.Args = append(call.Args, arg)
		}

		if !p.match(COMMA) {
			break
		}
	}
	if !p.match(RPAREN) {
		return nil, p.error("expected ')' after arguments")
	}
	return call, nil
}

// parseList parses comma-separated expressions up to the closing token.
// A trailing comma is allowed.
func (p *Parser) parseList(closing TokenType) ([]ast.Node, error) {
	var elems []ast.Node
	for !p.check(closing) {
		if p.isAtEnd() {
			return nil, p.error("expected '%s'", closing)
		}
		elem, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
		if !p.match(COMMA) {
			break
		}
	}
	if !p.match(closing) {
		return nil, p.error("expected '%s'", closing)
	}
	return elems, nil
}

func (p *Parser) parseDict(open Token) (ast.Node, error) {
	dict := &ast.Dict{Pos: p.position(open)}
	for !p.check(RBRACE) {
		if p.isAtEnd() {
			return nil, p.error("expected '}'")
		}
		key, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if !p.match(COLON) {
			return nil, p.error("expected ':' after dict key")
		}
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		dict.Keys = append(dict.Keys, key)
		dict.Values = append(dict.Values, val)
		if !p.match(COMMA) {
			break
		}
	}
	if !p.match(RBRACE) {
		return nil, p.error("expected '}'")
	}
	return dict, nil
}

func (p *Parser) number(tok Token) (ast.Node, error) {
	raw := tok.String(p.source)
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, "_", ""), 64)
	if err != nil {
		return nil, p.errorAtToken(tok, "invalid number %q", raw)
	}
	return &ast.Number{Pos: p.position(tok), Value: v, Raw: raw}, nil
}

// unquote decodes a single- or double-quoted literal.
func (p *Parser) unquote(tok Token) (string, error) {
	raw := tok.String(p.source)
	body := raw[1 : len(raw)-1]
	if !strings.Contains(body, `\`) {
		return body, nil
	}

	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\', '\'', '"':
			b.WriteByte(body[i])
		default:
			// Unknown escapes are kept verbatim.
			b.WriteByte('\\')
			b.WriteByte(body[i])
		}
	}
	return b.String(), nil
}

func (p *Parser) unexpected(tok Token) error {
	switch tok.Type {
	case EOF:
		return p.errorAtToken(tok, "unexpected end of expression")
	case ILLEGAL:
		text := tok.String(p.source)
		if len(text) > 0 && (text[0] == '"' || text[0] == '\'') {
			return p.errorAtToken(tok, "unterminated string literal")
		}
		return p.errorAtToken(tok, "invalid character %q", text)
	case ASSIGN:
		return p.errorAtToken(tok, "unexpected '=', use '==' to compare")
	case DOT:
		return p.errorAtToken(tok, "attribute access is not allowed")
	}
	return p.errorAtToken(tok, "unexpected %q", tok.String(p.source))
}

// Helper methods for token navigation

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAhead(n int) Token {
	pos := p.pos + n
	if pos >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[pos]
}

func (p *Parser) previous() Token {
	if p.pos == 0 {
		return Token{Type: ILLEGAL}
	}
	return p.tokens[p.pos-1]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == EOF
}

func (p *Parser) check(typ TokenType) bool {
	return p.peek().Type == typ
}

func (p *Parser) match(types ...TokenType) bool {
	for _, typ := range types {
		if p.check(typ) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) advance() Token {
	if !p.isAtEnd() {
		p.pos++
	}
	return p.previous()
}

// Error helpers

func (p *Parser) errorAtToken(tok Token, format string, args ...interface{}) error {
	return newErrorf(p.position(tok), format, args...)
}

func (p *Parser) error(format string, args ...interface{}) error {
	return p.errorAtToken(p.peek(), format, args...)
}

// position extracts position information from a token.
func (p *Parser) position(tok Token) ast.Position {
	return ast.Position{
		Filename: p.filename,
		Offset:   p.base + tok.Start,
		Line:     tok.Line,
		Column:   tok.Column,
	}
}
