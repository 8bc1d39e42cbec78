package lexer

import (
	"strings"

	"github.com/xplshn/iecst/pkg/token"
)

// Normalize rewrites C-style operator spellings (==, !=, &&, ||, &, |, !) into
// their Structured Text forms and leaves every other byte of src untouched.
func Normalize(src string) (string, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	last := 0
	for _, tok := range toks {
		if tok.Type == token.EOF {
			break
		}
		written := src[tok.Pos : tok.Pos+tok.Len]
		canonical := canonicalSpelling(tok.Type, written)
		if canonical == written {
			continue
		}
		sb.WriteString(src[last:tok.Pos])
		if isWordOperator(tok.Type) {
			if tok.Pos > 0 && src[tok.Pos-1] != ' ' && src[tok.Pos-1] != '(' {
				sb.WriteByte(' ')
			}
			sb.WriteString(canonical)
			if end := tok.Pos + tok.Len; end < len(src) && src[end] != ' ' {
				sb.WriteByte(' ')
			}
		} else {
			sb.WriteString(canonical)
		}
		last = tok.Pos + tok.Len
	}
	sb.WriteString(src[last:])
	return sb.String(), nil
}

func isWordOperator(t token.Type) bool { return t == token.And || t == token.Or || t == token.Not }

func canonicalSpelling(t token.Type, written string) string {
	switch t {
	case token.Eq, token.Neq:
		return token.TypeStrings[t]
	case token.And, token.Or, token.Not:
		if strings.EqualFold(written, token.TypeStrings[t]) {
			return written
		}
		return token.TypeStrings[t]
	}
	return written
}
