package lexer

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/xplshn/iecst/pkg/literal"
	"github.com/xplshn/iecst/pkg/token"
)

// ErrTernary is returned for any use of the C conditional operator
var ErrTernary = errors.New("Ternary operator ('?:') not allowed in expressions/conditions")

type Lexer struct {
	source []rune
	pos    int
	err    error
}

func NewLexer(source string) *Lexer {
	return &Lexer{source: []rune(source)}
}

// Tokenize splits an expression into tokens terminated by EOF
func Tokenize(source string) ([]token.Token, error) {
	l := NewLexer(source)
	var toks []token.Token
	for {
		tok := l.Next()
		if l.err != nil {
			return nil, l.err
		}
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks, nil
		}
	}
}

// Err returns the first error met by Next
func (l *Lexer) Err() error { return l.err }

func (l *Lexer) Next() token.Token {
	l.skipWhitespace()
	start := l.pos
	if l.isAtEnd() {
		return l.makeToken(token.EOF, "", start)
	}

	ch := l.peek()
	if unicode.IsLetter(ch) || ch == '_' {
		l.advance()
		return l.identifierOrKeyword(start)
	}
	if unicode.IsDigit(ch) || (ch == '.' && unicode.IsDigit(l.peekNext())) {
		return l.numberLiteral(start)
	}

	l.advance()
	switch ch {
	case '(': return l.makeToken(token.LParen, "", start)
	case ')': return l.makeToken(token.RParen, "", start)
	case '[': return l.makeToken(token.LBracket, "", start)
	case ']': return l.makeToken(token.RBracket, "", start)
	case ',': return l.makeToken(token.Comma, "", start)
	case '.': return l.makeToken(token.Dot, "", start)
	case '+': return l.makeToken(token.Plus, "", start)
	case '-': return l.makeToken(token.Minus, "", start)
	case '*': return l.makeToken(token.Star, "", start)
	case '/': return l.makeToken(token.Slash, "", start)
	case '=':
		l.match('=')
		return l.makeToken(token.Eq, "", start)
	case '!':
		return l.matchThen('=', token.Neq, token.Not, start)
	case '<':
		if l.match('>') {
			return l.makeToken(token.Neq, "", start)
		}
		return l.matchThen('=', token.Lte, token.Lt, start)
	case '>':
		return l.matchThen('=', token.Gte, token.Gt, start)
	case '&':
		l.match('&')
		return l.makeToken(token.And, "", start)
	case '|':
		l.match('|')
		return l.makeToken(token.Or, "", start)
	case '"', '\'':
		return l.stringLiteral(ch, start)
	case '?':
		return l.fail(ErrTernary)
	}
	return l.fail(fmt.Errorf("unexpected character '%c' at offset %d", ch, start))
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	l.pos++
	return ch
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.pos++
	return true
}

func (l *Lexer) matchThen(expected rune, then, otherwise token.Type, start int) token.Token {
	if l.match(expected) {
		return l.makeToken(then, "", start)
	}
	return l.makeToken(otherwise, "", start)
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

// makeToken converts rune offsets to byte offsets so callers can slice the source string
func (l *Lexer) makeToken(tokType token.Type, value string, start int) token.Token {
	pos := len(string(l.source[:start]))
	return token.Token{Type: tokType, Value: value, Pos: pos, Len: len(string(l.source[start:l.pos]))}
}

func (l *Lexer) fail(err error) token.Token {
	if l.err == nil {
		l.err = err
	}
	l.pos = len(l.source)
	return token.Token{Type: token.EOF}
}

func (l *Lexer) skipWhitespace() {
	for !l.isAtEnd() && unicode.IsSpace(l.peek()) {
		l.advance()
	}
}

func isIdentRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' }

func (l *Lexer) identifierOrKeyword(start int) token.Token {
	for isIdentRune(l.peek()) {
		l.advance()
	}
	value := string(l.source[start:l.pos])
	if l.peek() == '#' && literal.IsTemporalPrefix(value) {
		return l.temporalLiteral(start, value)
	}
	if tokType, isKeyword := token.KeywordMap[strings.ToUpper(value)]; isKeyword {
		return l.makeToken(tokType, value, start)
	}
	return l.makeToken(token.Ident, value, start)
}

// temporalLiteral consumes T#..., D#..., TOD#... and DT#... bodies. A sign is
// only taken right after the '#', while dashes belong to the date families.
func (l *Lexer) temporalLiteral(start int, prefix string) token.Token {
	l.advance()
	dated := strings.HasPrefix(strings.ToUpper(prefix), "D")
	if c := l.peek(); c == '+' || c == '-' {
		l.advance()
	}
	for {
		c := l.peek()
		if isIdentRune(c) || c == ':' || c == '.' || (dated && c == '-') {
			l.advance()
			continue
		}
		break
	}
	value := string(l.source[start:l.pos])
	if literal.Classify(value) == literal.None {
		return l.fail(fmt.Errorf("malformed literal '%s'", value))
	}
	return l.makeToken(token.Temporal, value, start)
}

func (l *Lexer) numberLiteral(start int) token.Token {
	for unicode.IsDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '#' {
		l.advance()
		for isIdentRune(l.peek()) {
			l.advance()
		}
		value := string(l.source[start:l.pos])
		if literal.Classify(value) != literal.Int {
			return l.fail(fmt.Errorf("malformed literal '%s'", value))
		}
		return l.makeToken(token.Int, value, start)
	}

	isReal := false
	if l.peek() == '.' && l.peekNext() != '.' && !unicode.IsLetter(l.peekNext()) && l.peekNext() != '_' {
		isReal = true
		l.advance()
		for unicode.IsDigit(l.peek()) {
			l.advance()
		}
	}
	if c := l.peek(); c == 'e' || c == 'E' {
		save := l.pos
		l.advance()
		if c := l.peek(); c == '+' || c == '-' {
			l.advance()
		}
		if unicode.IsDigit(l.peek()) {
			isReal = true
			for unicode.IsDigit(l.peek()) {
				l.advance()
			}
		} else {
			l.pos = save
		}
	}

	value := string(l.source[start:l.pos])
	if isReal {
		if literal.Classify(value) != literal.Real {
			return l.fail(fmt.Errorf("malformed literal '%s'", value))
		}
		return l.makeToken(token.Real, value, start)
	}
	return l.makeToken(token.Int, value, start)
}

func (l *Lexer) stringLiteral(quote rune, start int) token.Token {
	for !l.isAtEnd() && l.peek() != quote {
		if l.peek() == '\\' {
			l.advance()
		}
		l.advance()
	}
	if l.isAtEnd() {
		return l.fail(fmt.Errorf("unterminated string starting at offset %d", start))
	}
	l.advance()
	return l.makeToken(token.String, string(l.source[start:l.pos]), start)
}
