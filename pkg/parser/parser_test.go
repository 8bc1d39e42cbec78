package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/xplshn/iecst/pkg/ast"
	"github.com/xplshn/iecst/pkg/lexer"
)

// sexpr renders a tree in prefix form so precedence is visible in test tables
func sexpr(n *ast.Node) string {
	switch d := n.Data.(type) {
	case ast.LiteralNode:
		return d.Value
	case ast.IdentNode:
		return d.Name
	case ast.MemberNode:
		return fmt.Sprintf("(. %s %s)", sexpr(d.Expr), d.Field)
	case ast.IndexNode:
		parts := []string{sexpr(d.Expr)}
		for _, i := range d.Indices {
			parts = append(parts, sexpr(i))
		}
		return "([] " + strings.Join(parts, " ") + ")"
	case ast.UnaryOpNode:
		return fmt.Sprintf("(%s %s)", d.Op, sexpr(d.Expr))
	case ast.BinaryOpNode:
		return fmt.Sprintf("(%s %s %s)", d.Op, sexpr(d.Left), sexpr(d.Right))
	case ast.CallNode:
		parts := []string{d.Name}
		for _, a := range d.Args {
			parts = append(parts, sexpr(a))
		}
		return "(call " + strings.Join(parts, " ") + ")"
	}
	return "?"
}

func TestParseExpr(t *testing.T) {
	tests := []struct{ in, want string }{
		{"a OR b AND c", "(OR a (AND b c))"},
		{"a AND b OR c", "(OR (AND a b) c)"},
		{"a - b - c", "(- (- a b) c)"},
		{"a + b * c", "(+ a (* b c))"},
		{"(a + b) * c", "(* (+ a b) c)"},
		{"x > 5 AND y <= 3", "(AND (> x 5) (<= y 3))"},
		{"NOT a AND b", "(AND (NOT a) b)"},
		{"NOT (a AND b)", "(NOT (AND a b))"},
		{"-x * y", "(* (- x) y)"},
		{"a == b", "(= a b)"},
		{"a != b || c", "(OR (<> a b) c)"},
		{"GRAND AND ORDER", "(AND GRAND ORDER)"},
		{"P.X[i, j + 1].Y", "(. ([] (. P X) i (+ j 1)) Y)"},
		{"Scale(x, 2.0) + 1", "(+ (call Scale x 2.0) 1)"},
		{"Now()", "(call Now)"},
		{"a XOR b OR c", "(OR (XOR a b) c)"},
		{"n MOD 2 = 0", "(= (MOD n 2) 0)"},
		{"Timer1 = T#5S", "(= Timer1 T#5S)"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n, err := ParseExpr(tt.in)
			if err != nil {
				t.Fatalf("ParseExpr(%q): %v", tt.in, err)
			}
			if got := sexpr(n); got != tt.want {
				t.Errorf("ParseExpr(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestNodeText(t *testing.T) {
	n, err := ParseExpr("Speed * 2 >= Limit")
	if err != nil {
		t.Fatal(err)
	}
	b := n.Data.(ast.BinaryOpNode)
	if n.Text != "Speed * 2 >= Limit" || b.Left.Text != "Speed * 2" || b.Right.Text != "Limit" {
		t.Errorf("texts = %q, %q, %q", n.Text, b.Left.Text, b.Right.Text)
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{"", "a +", "(a", "a b", "f(a,", "P.", "x[1"} {
		if _, err := ParseExpr(in); err == nil {
			t.Errorf("ParseExpr(%q) succeeded, want error", in)
		}
	}
	if _, err := ParseExpr("c ? a : b"); err != lexer.ErrTernary {
		t.Errorf("ternary error = %v", err)
	}
}

func TestBaseNameAndLiteralKind(t *testing.T) {
	n, _ := ParseExpr("Tank[2].Level")
	if got := ast.BaseName(n); got != "Tank" {
		t.Errorf("BaseName = %q", got)
	}
	call, _ := ParseExpr("f(x).y")
	if ast.IsChain(call) {
		t.Errorf("call chain reported as variable chain")
	}
	neg, _ := ParseExpr("-5")
	if ast.LiteralKind(neg).String() != "INT" {
		t.Errorf("LiteralKind(-5) = %v", ast.LiteralKind(neg))
	}
}
