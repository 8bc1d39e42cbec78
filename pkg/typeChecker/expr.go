package typeChecker

import (
	"errors"
	"strings"

	"github.com/xplshn/iecst/pkg/ast"
	"github.com/xplshn/iecst/pkg/config"
	"github.com/xplshn/iecst/pkg/datatype"
	"github.com/xplshn/iecst/pkg/ir"
	"github.com/xplshn/iecst/pkg/lexer"
	"github.com/xplshn/iecst/pkg/literal"
	"github.com/xplshn/iecst/pkg/parser"
	"github.com/xplshn/iecst/pkg/token"
)

// parse turns an IR expression into a tree and makes it the current expression
// for warnings
func (tc *TypeChecker) parse(src ir.Expr) (*ast.Node, error) {
	text := strings.TrimSpace(string(src))
	tc.currentExpr = text
	n, err := parser.ParseExpr(text)
	if err != nil {
		if errors.Is(err, lexer.ErrTernary) {
			return nil, typeErrorf("%w", err)
		}
		return nil, typeErrorf("Invalid expression '%s': %w", text, err)
	}
	return n, nil
}

func literalType(k literal.Kind) *datatype.Type {
	switch k {
	case literal.Bool:
		return datatype.TypeBool
	case literal.Int:
		return datatype.TypeInt
	case literal.Real:
		return datatype.TypeReal
	case literal.String:
		return datatype.TypeString
	case literal.Time:
		return datatype.TypeTime
	case literal.Date:
		return datatype.TypeDate
	case literal.TimeOfDay:
		return datatype.TypeTimeOfDay
	case literal.DateAndTime:
		return datatype.TypeDateAndTime
	}
	return nil
}

// literalFamily is the family of n when n is a literal, FamNone otherwise
func literalFamily(n *ast.Node) datatype.Family {
	return datatype.FamilyOf(literalType(ast.LiteralKind(n)))
}

// typeOf infers the type of n. A nil type with a nil error means the type
// could not be resolved; callers word that failure for their context.
func (tc *TypeChecker) typeOf(n *ast.Node) (*datatype.Type, error) {
	switch d := n.Data.(type) {
	case ast.LiteralNode:
		return literalType(d.Kind), nil
	case ast.IdentNode:
		if sym := tc.findSymbol(d.Name); sym != nil {
			return sym.Type, nil
		}
		if tc.cfg.IsFeatureEnabled(config.FeatBareWordString) {
			tc.warn(config.WarnBareWord, n.Tok.Pos, n.Tok.Len, "'%s' is not declared, taking it as a STRING", d.Name)
			return datatype.TypeString, nil
		}
		return nil, nil
	case ast.MemberNode, ast.IndexNode:
		return tc.chainType(n)
	case ast.UnaryOpNode:
		return tc.unaryType(d)
	case ast.BinaryOpNode:
		return tc.binaryType(d)
	case ast.CallNode:
		return tc.callType(d)
	}
	return nil, nil
}

// chainType resolves a variable, member or index chain. Unlike typeOf, an
// undeclared base never falls back to STRING.
func (tc *TypeChecker) chainType(n *ast.Node) (*datatype.Type, error) {
	switch d := n.Data.(type) {
	case ast.IdentNode:
		if sym := tc.findSymbol(d.Name); sym != nil {
			return sym.Type, nil
		}
		return nil, nil
	case ast.MemberNode:
		base, err := tc.chainType(d.Expr)
		if err != nil || base == nil {
			return nil, err
		}
		return tc.memberType(base, d.Field), nil
	case ast.IndexNode:
		base, err := tc.chainType(d.Expr)
		if err != nil || base == nil {
			return nil, err
		}
		for _, idx := range d.Indices {
			it, err := tc.typeOf(idx)
			if err != nil || it == nil {
				return nil, err
			}
			if f := tc.family(it); f != datatype.FamInt && f != datatype.FamAny {
				return nil, typeErrorf("Array index '%s' must be an integer, got %s", idx.Text, it)
			}
		}
		return tc.underlying(base).Peel(len(d.Indices)), nil
	}
	return tc.typeOf(n)
}

// memberType finds field on a struct, or an output then input port on a
// function block instance
func (tc *TypeChecker) memberType(base *datatype.Type, field string) *datatype.Type {
	u := tc.underlying(base)
	if u == nil {
		return nil
	}
	switch u.Kind {
	case datatype.Struct:
		return u.Field(field)
	case datatype.Scalar:
		if sig, ok := tc.fbs[u.Name]; ok {
			return portType(sig.pins, field)
		}
		if pins, ok := datatype.BuiltinPins(u.Name); ok {
			return portType(pins, field)
		}
	}
	return nil
}

func portType(pins *datatype.PinTable, name string) *datatype.Type {
	if p := pins.Output(name); p != nil {
		return p.Type
	}
	if p := pins.Input(name); p != nil {
		return p.Type
	}
	return nil
}

func (tc *TypeChecker) unaryType(d ast.UnaryOpNode) (*datatype.Type, error) {
	t, err := tc.typeOf(d.Expr)
	if err != nil || t == nil {
		return nil, err
	}
	if d.Op == token.Not {
		if tc.family(t) == datatype.FamBool {
			return datatype.TypeBool, nil
		}
		return nil, nil
	}
	if tc.isNumeric(t) {
		return t, nil
	}
	return nil, nil
}

var comparableFamilies = map[datatype.Family]bool{
	datatype.FamString:      true,
	datatype.FamBool:        true,
	datatype.FamChar:        true,
	datatype.FamTime:        true,
	datatype.FamDate:        true,
	datatype.FamTimeOfDay:   true,
	datatype.FamDateAndTime: true,
}

func (tc *TypeChecker) binaryType(d ast.BinaryOpNode) (*datatype.Type, error) {
	lt, err := tc.typeOf(d.Left)
	if err != nil {
		return nil, err
	}
	rt, err := tc.typeOf(d.Right)
	if err != nil {
		return nil, err
	}
	if lt == nil || rt == nil {
		return nil, nil
	}
	lf, rf := tc.family(lt), tc.family(rt)
	numeric := tc.isNumeric(lt) && tc.isNumeric(rt)

	switch {
	case d.Op == token.And || d.Op == token.Or || d.Op == token.Xor:
		if lf == datatype.FamBool && rf == datatype.FamBool {
			return datatype.TypeBool, nil
		}
	case d.Op.IsComparison():
		if numeric || (lf == rf && comparableFamilies[lf]) {
			return datatype.TypeBool, nil
		}
	case d.Op == token.Mod:
		if lf == datatype.FamInt && rf == datatype.FamInt {
			return datatype.TypeInt, nil
		}
	case d.Op == token.Plus && lf == datatype.FamString && rf == datatype.FamString:
		return datatype.TypeString, nil
	case numeric:
		if lf == datatype.FamReal || rf == datatype.FamReal {
			return datatype.TypeReal, nil
		}
		return datatype.TypeInt, nil
	}
	return nil, nil
}

var temporalExamples = map[datatype.Family]string{
	datatype.FamTime:        "T#1S",
	datatype.FamDate:        "D#2024-01-01",
	datatype.FamTimeOfDay:   "TOD#08:00:00",
	datatype.FamDateAndTime: "DT#2024-01-01-08:00:00",
}

func (tc *TypeChecker) callType(d ast.CallNode) (*datatype.Type, error) {
	if sig, ok := tc.funcs[d.Name]; ok {
		if err := tc.checkArgs(sig, d.Args); err != nil {
			return nil, err
		}
		return sig.returnType, nil
	}
	if !tc.cfg.IsFeatureEnabled(config.FeatStdFuncs) {
		return nil, nil
	}
	fn, ok := lookupStdFunc(d.Name)
	if !ok {
		return nil, nil
	}
	args := make([]*datatype.Type, len(d.Args))
	for i, a := range d.Args {
		t, err := tc.typeOf(a)
		if err != nil || t == nil {
			return nil, err
		}
		args[i] = tc.underlying(t)
	}
	return fn.apply(strings.ToUpper(d.Name), args)
}

// checkArgs matches call arguments against a user function signature.
// An argument whose type cannot be resolved passes when it is a literal or
// its base variable is declared.
func (tc *TypeChecker) checkArgs(sig *funcSig, args []*ast.Node) error {
	if len(args) != len(sig.inputs) {
		return typeErrorf("Function '%s' arg count mismatch (got %d, expected %d)", sig.name, len(args), len(sig.inputs))
	}
	for i, a := range args {
		at, err := tc.typeOf(a)
		if err != nil {
			return err
		}
		if at == nil {
			if tc.inScope(ast.BaseName(a)) || ast.LiteralKind(a) != literal.None {
				continue
			}
			return typeErrorf("Function '%s' arg '%s' not declared", sig.name, a.Text)
		}
		if want := sig.inputs[i].Type; !tc.assignable(want, at) {
			return typeErrorf("Function '%s' arg type mismatch: expected %s, got %s", sig.name, want, at)
		}
	}
	return nil
}

// checkCondition validates an IF, ELSIF, WHILE or UNTIL condition
func (tc *TypeChecker) checkCondition(src ir.Expr) error {
	n, err := tc.parse(src)
	if err != nil {
		return err
	}
	if tc.cfg.IsFeatureEnabled(config.FeatStrictConditions) {
		return tc.strictCondition(n)
	}
	return tc.boolCondition(n)
}

func (tc *TypeChecker) boolCondition(n *ast.Node) error {
	t, err := tc.typeOf(n)
	if err != nil {
		return err
	}
	if t == nil || tc.family(t) != datatype.FamBool {
		return typeErrorf("Condition must be BOOL")
	}
	return nil
}

func (tc *TypeChecker) strictCondition(n *ast.Node) error {
	d, ok := n.Data.(ast.BinaryOpNode)
	switch {
	case !ok:
		return tc.boolCondition(n)
	case d.Op == token.And || d.Op == token.Or:
		if err := tc.strictCondition(d.Left); err != nil {
			return err
		}
		return tc.strictCondition(d.Right)
	case d.Op.IsComparison():
		return tc.checkComparison(d)
	}
	return tc.boolCondition(n)
}

func (tc *TypeChecker) checkComparison(d ast.BinaryOpNode) error {
	op := token.TypeStrings[d.Op]
	lt, err := tc.typeOf(d.Left)
	if err != nil {
		return err
	}
	rt, err := tc.typeOf(d.Right)
	if err != nil {
		return err
	}
	if lt == nil || rt == nil {
		return typeErrorf("Cannot resolve types in comparison '%s %s %s'", d.Left.Text, op, d.Right.Text)
	}

	lf, rf := tc.family(lt), tc.family(rt)
	llit, rlit := literalFamily(d.Left), literalFamily(d.Right)
	switch {
	case lf.IsTemporal() || rf.IsTemporal():
		if lf == rf {
			return nil
		}
		if lf.IsTemporal() && rlit != lf {
			return typeErrorf("%s comparison requires a %s literal (e.g., %s) or %s-typed expression", lf, lf, temporalExamples[lf], lf)
		}
		if rf.IsTemporal() && llit != rf {
			return typeErrorf("%s comparison requires a %s literal (e.g., %s) or %s-typed expression", rf, rf, temporalExamples[rf], rf)
		}
	case lf == datatype.FamString || rf == datatype.FamString:
		if (llit != datatype.FamNone && llit != datatype.FamString) || (rlit != datatype.FamNone && rlit != datatype.FamString) {
			return typeErrorf("STRING comparison requires a quoted string literal")
		}
		if lf == rf {
			return nil
		}
	case tc.isNumeric(lt) && tc.isNumeric(rt):
		return nil
	case lf == rf && (lf == datatype.FamBool || lf == datatype.FamChar):
		return nil
	}
	return typeErrorf("Incompatible types for comparison: %s %s %s", lt, op, rt)
}
