package datatype

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var descriptorLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Keyword", Pattern: `(?i)\b(ARRAY|OF|STRUCT)\b`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Int", Pattern: `[-+]?\d+`},
	{Name: "Range", Pattern: `\.\.`},
	{Name: "Punct", Pattern: `[\[\](),;:]`},
})

type descriptorNode struct {
	Array  *arrayNode  `parser:"  @@"`
	Struct *structNode `parser:"| @@"`
	Named  *namedNode  `parser:"| @@"`
}

type arrayNode struct {
	Dims []*dimNode      `parser:"'ARRAY' '[' @@ ( ',' @@ )* ']'"`
	Elem *descriptorNode `parser:"'OF' @@"`
}

type dimNode struct {
	Lo string `parser:"@Int Range"`
	Hi string `parser:"@Int"`
}

type structNode struct {
	Fields []*fieldNode `parser:"'STRUCT' '(' ( @@ ( ';' @@? )* )? ')'"`
}

type fieldNode struct {
	Name string          `parser:"@Ident ':'"`
	Type *descriptorNode `parser:"@@"`
}

type namedNode struct {
	Name   string `parser:"@Ident"`
	Length string `parser:"( '[' @Int ']' )?"`
}

var descriptorParser = participle.MustBuild[descriptorNode](
	participle.Lexer(descriptorLexer),
	participle.Elide("Whitespace"),
	participle.CaseInsensitive("Keyword"),
	participle.UseLookahead(2),
)

// Parse builds a descriptor tree from its textual form. The returned error
// always names the offending text.
func Parse(text string) (*Type, error) {
	s := strings.TrimSpace(text)
	node, err := descriptorParser.ParseString("", s)
	if err != nil {
		return nil, syntaxError(s, err)
	}
	t, err := node.build()
	if err != nil {
		if errors.Is(err, errBounds) {
			return nil, fmt.Errorf("Invalid ARRAY syntax: %s", text)
		}
		return nil, err
	}
	return t, nil
}

var errBounds = errors.New("bad array bounds")

func syntaxError(s string, err error) error {
	u := strings.ToUpper(s)
	switch {
	case strings.HasPrefix(u, "ARRAY"):
		return fmt.Errorf("Invalid ARRAY syntax: %s", s)
	case strings.HasPrefix(u, "STRUCT"):
		offset := len(s)
		var perr participle.Error
		if errors.As(err, &perr) {
			offset = perr.Position().Offset
		}
		return fmt.Errorf("Invalid STRUCT field: '%s'", structFieldAt(s, offset))
	}
	return fmt.Errorf("Unknown datatype %s", s)
}

// structFieldAt returns the top-level struct field text that contains offset
func structFieldAt(s string, offset int) string {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return s
	}
	end := strings.LastIndexByte(s, ')')
	if end < open {
		end = len(s)
	}
	depth, start := 0, open+1
	for i := open + 1; i < end; i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ';':
			if depth == 0 {
				if offset <= i {
					return strings.TrimSpace(s[start:i])
				}
				start = i + 1
			}
		}
	}
	return strings.TrimSpace(s[start:end])
}

func (n *descriptorNode) build() (*Type, error) {
	switch {
	case n.Array != nil:
		t := &Type{Kind: Array}
		for _, d := range n.Array.Dims {
			lo, err1 := strconv.Atoi(strings.TrimPrefix(d.Lo, "+"))
			hi, err2 := strconv.Atoi(strings.TrimPrefix(d.Hi, "+"))
			if err1 != nil || err2 != nil || lo > hi {
				return nil, errBounds
			}
			t.Dims = append(t.Dims, Dim{Lo: lo, Hi: hi})
		}
		elem, err := n.Array.Elem.build()
		if err != nil {
			return nil, err
		}
		t.Elem = elem
		return t, nil
	case n.Struct != nil:
		t := &Type{Kind: Struct}
		seen := make(map[string]bool)
		for _, f := range n.Struct.Fields {
			if seen[f.Name] {
				return nil, fmt.Errorf("Invalid STRUCT field: '%s' declared twice", f.Name)
			}
			seen[f.Name] = true
			ft, err := f.Type.build()
			if err != nil {
				return nil, err
			}
			t.Fields = append(t.Fields, Field{Name: f.Name, Type: ft})
		}
		return t, nil
	default:
		t := &Type{Kind: Scalar, Name: canonicalName(n.Named.Name)}
		if n.Named.Length != "" {
			length, err := strconv.Atoi(strings.TrimPrefix(n.Named.Length, "+"))
			if err != nil || length <= 0 {
				return nil, fmt.Errorf("Unknown datatype %s[%s]", n.Named.Name, n.Named.Length)
			}
			t.Length = length
		}
		return t, nil
	}
}
