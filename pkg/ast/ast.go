// Package ast defines the expression tree built from IR expression strings
package ast

import (
	"github.com/xplshn/iecst/pkg/literal"
	"github.com/xplshn/iecst/pkg/token"
)

// NodeType defines the kind of a node in the expression tree
type NodeType int

const (
	Literal NodeType = iota
	Ident
	Member
	Index
	UnaryOp
	BinaryOp
	Call
)

// Node is an expression tree node. Text is the node's source slice, used to
// quote the offending sub-expression in diagnostics.
type Node struct {
	Type NodeType
	Tok  token.Token
	Text string
	Data interface{}
}

type LiteralNode struct {
	Kind  literal.Kind
	Value string
}
type IdentNode struct{ Name string }
type MemberNode struct {
	Expr  *Node
	Field string
}
type IndexNode struct {
	Expr    *Node
	Indices []*Node
}
type UnaryOpNode struct {
	Op   token.Type
	Expr *Node
}
type BinaryOpNode struct {
	Op          token.Type
	Left, Right *Node
}
type CallNode struct {
	Name string
	Args []*Node
}

func NewLiteral(tok token.Token, text string, kind literal.Kind) *Node {
	return &Node{Type: Literal, Tok: tok, Text: text, Data: LiteralNode{Kind: kind, Value: tok.Value}}
}

func NewIdent(tok token.Token, text string) *Node {
	return &Node{Type: Ident, Tok: tok, Text: text, Data: IdentNode{Name: tok.Value}}
}

func NewMember(tok token.Token, text string, expr *Node, field string) *Node {
	return &Node{Type: Member, Tok: tok, Text: text, Data: MemberNode{Expr: expr, Field: field}}
}

func NewIndex(tok token.Token, text string, expr *Node, indices []*Node) *Node {
	return &Node{Type: Index, Tok: tok, Text: text, Data: IndexNode{Expr: expr, Indices: indices}}
}

func NewUnaryOp(tok token.Token, text string, op token.Type, expr *Node) *Node {
	return &Node{Type: UnaryOp, Tok: tok, Text: text, Data: UnaryOpNode{Op: op, Expr: expr}}
}

func NewBinaryOp(tok token.Token, text string, op token.Type, left, right *Node) *Node {
	return &Node{Type: BinaryOp, Tok: tok, Text: text, Data: BinaryOpNode{Op: op, Left: left, Right: right}}
}

func NewCall(tok token.Token, text string, name string, args []*Node) *Node {
	return &Node{Type: Call, Tok: tok, Text: text, Data: CallNode{Name: name, Args: args}}
}

// BaseName returns the left-most identifier of a variable, member or index
// chain, or "" when n is not such a chain.
func BaseName(n *Node) string {
	for n != nil {
		switch d := n.Data.(type) {
		case IdentNode:
			return d.Name
		case MemberNode:
			n = d.Expr
		case IndexNode:
			n = d.Expr
		default:
			return ""
		}
	}
	return ""
}

// IsChain reports whether n is an identifier optionally followed by member and index accessors
func IsChain(n *Node) bool { return BaseName(n) != "" }

// LiteralKind returns the literal family of n, looking through a unary sign on
// numeric literals. Non-literals report literal.None.
func LiteralKind(n *Node) literal.Kind {
	if n == nil {
		return literal.None
	}
	switch d := n.Data.(type) {
	case LiteralNode:
		return d.Kind
	case UnaryOpNode:
		if d.Op == token.Plus || d.Op == token.Minus {
			if k := LiteralKind(d.Expr); k == literal.Int || k == literal.Real {
				return k
			}
		}
	}
	return literal.None
}
