package parser

import (
	"fmt"
	"strings"

	"github.com/xplshn/iecst/pkg/ast"
	"github.com/xplshn/iecst/pkg/lexer"
	"github.com/xplshn/iecst/pkg/literal"
	"github.com/xplshn/iecst/pkg/token"
)

// Parser holds the state for parsing one expression
type Parser struct {
	src      string
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
	err      error
}

// ParseExpr tokenizes and parses a complete expression
func ParseExpr(src string) (*ast.Node, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := NewParser(src, toks)
	node := p.parseExpr()
	if p.err == nil && !p.check(token.EOF) {
		p.errorf("unexpected %s", p.describe(p.current))
	}
	if p.err != nil {
		return nil, p.err
	}
	return node, nil
}

// NewParser creates a parser over a token stream ending in EOF
func NewParser(src string, tokens []token.Token) *Parser {
	p := &Parser{src: src, tokens: tokens}
	if len(tokens) > 0 {
		p.current = tokens[0]
	}
	return p
}

// Parser helpers
func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.previous = p.current
		p.pos++
		p.current = p.tokens[p.pos]
	}
}

func (p *Parser) check(tokType token.Type) bool { return p.current.Type == tokType }

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tokType token.Type, message string) {
	if p.check(tokType) {
		p.advance()
		return
	}
	p.errorf("%s, found %s", message, p.describe(p.current))
}

func (p *Parser) errorf(format string, args ...interface{}) {
	if p.err == nil {
		p.err = fmt.Errorf(format, args...)
	}
}

func (p *Parser) describe(tok token.Token) string {
	if tok.Type == token.EOF {
		return tok.Type.String()
	}
	return fmt.Sprintf("'%s'", p.src[tok.Pos:tok.Pos+tok.Len])
}

// text returns the trimmed source between the start of from and the end of the previous token
func (p *Parser) text(from token.Token) string {
	end := p.previous.Pos + p.previous.Len
	if end < from.Pos {
		end = from.Pos
	}
	return strings.TrimSpace(p.src[from.Pos:end])
}

// Binary operator tiers, loosest first. Every tier is left-associative, so
// the root of a chain is its right-most operator.
var tiers = [][]token.Type{
	{token.Or},
	{token.Xor},
	{token.And},
	{token.Eq, token.Neq, token.Lt, token.Gt, token.Lte, token.Gte},
	{token.Plus, token.Minus},
	{token.Star, token.Slash, token.Mod},
}

func (p *Parser) parseExpr() *ast.Node { return p.parseTier(0) }

func (p *Parser) parseTier(level int) *ast.Node {
	if level == len(tiers) {
		return p.parseUnary()
	}
	start := p.current
	left := p.parseTier(level + 1)
	for p.err == nil {
		op, ok := p.matchAny(tiers[level])
		if !ok {
			break
		}
		right := p.parseTier(level + 1)
		left = ast.NewBinaryOp(op, p.text(start), op.Type, left, right)
	}
	return left
}

func (p *Parser) matchAny(types []token.Type) (token.Token, bool) {
	for _, t := range types {
		if p.check(t) {
			tok := p.current
			p.advance()
			return tok, true
		}
	}
	return token.Token{}, false
}

func (p *Parser) parseUnary() *ast.Node {
	start := p.current
	if op, ok := p.matchAny([]token.Type{token.Not, token.Plus, token.Minus}); ok {
		operand := p.parseUnary()
		return ast.NewUnaryOp(op, p.text(start), op.Type, operand)
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() *ast.Node {
	start := p.current
	expr := p.parsePrimary()
	for p.err == nil {
		switch {
		case p.match(token.Dot):
			p.expect(token.Ident, "Expected field name after '.'")
			expr = ast.NewMember(start, p.text(start), expr, p.previous.Value)
		case p.match(token.LBracket):
			var indices []*ast.Node
			for {
				indices = append(indices, p.parseExpr())
				if !p.match(token.Comma) {
					break
				}
			}
			p.expect(token.RBracket, "Expected ']' after index")
			expr = ast.NewIndex(start, p.text(start), expr, indices)
		default:
			return expr
		}
	}
	return expr
}

func (p *Parser) parsePrimary() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.Int):
		return ast.NewLiteral(tok, tok.Value, literal.Int)
	case p.match(token.Real):
		return ast.NewLiteral(tok, tok.Value, literal.Real)
	case p.match(token.String):
		return ast.NewLiteral(tok, tok.Value, literal.String)
	case p.match(token.True), p.match(token.False):
		return ast.NewLiteral(tok, tok.Value, literal.Bool)
	case p.match(token.Temporal):
		return ast.NewLiteral(tok, tok.Value, literal.Classify(tok.Value))
	case p.match(token.Ident):
		if p.match(token.LParen) {
			var args []*ast.Node
			if !p.check(token.RParen) {
				for {
					args = append(args, p.parseExpr())
					if !p.match(token.Comma) {
						break
					}
				}
			}
			p.expect(token.RParen, "Expected ')' after arguments")
			return ast.NewCall(tok, p.text(tok), tok.Value, args)
		}
		return ast.NewIdent(tok, tok.Value)
	case p.match(token.LParen):
		expr := p.parseExpr()
		p.expect(token.RParen, "Expected ')' after expression")
		return expr
	}
	p.errorf("unexpected %s", p.describe(tok))
	return &ast.Node{Type: ast.Literal, Tok: tok, Data: ast.LiteralNode{}}
}
