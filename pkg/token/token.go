package token

type Type int

const (
	EOF Type = iota
	Ident
	Int
	Real
	String
	Temporal
	True
	False
	LParen
	RParen
	LBracket
	RBracket
	Comma
	Dot
	Plus
	Minus
	Star
	Slash
	Mod
	Eq
	Neq
	Lt
	Gt
	Lte
	Gte
	And
	Or
	Xor
	Not
)

// KeywordMap holds the word operators and constants. Lookups use the upper-cased word.
var KeywordMap = map[string]Type{
	"AND":   And,
	"OR":    Or,
	"XOR":   Xor,
	"NOT":   Not,
	"MOD":   Mod,
	"TRUE":  True,
	"FALSE": False,
}

// TypeStrings is the canonical Structured Text spelling of each operator
var TypeStrings = map[Type]string{
	LParen:   "(",
	RParen:   ")",
	LBracket: "[",
	RBracket: "]",
	Comma:    ",",
	Dot:      ".",
	Plus:     "+",
	Minus:    "-",
	Star:     "*",
	Slash:    "/",
	Mod:      "MOD",
	Eq:       "=",
	Neq:      "<>",
	Lt:       "<",
	Gt:       ">",
	Lte:      "<=",
	Gte:      ">=",
	And:      "AND",
	Or:       "OR",
	Xor:      "XOR",
	Not:      "NOT",
	True:     "TRUE",
	False:    "FALSE",
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	switch t {
	case EOF:
		return "end of expression"
	case Ident:
		return "identifier"
	case Int, Real, String, Temporal:
		return "literal"
	}
	return "?"
}

// IsComparison reports whether t is one of = <> < > <= >=
func (t Type) IsComparison() bool { return t >= Eq && t <= Gte }

// Token is a lexeme of an expression. Pos and Len are byte offsets into the
// source text; Value holds the text as written for identifiers and literals.
type Token struct {
	Type  Type
	Value string
	Pos   int
	Len   int
}
