package typeChecker

import (
	"strings"

	"github.com/xplshn/iecst/pkg/ast"
	"github.com/xplshn/iecst/pkg/config"
	"github.com/xplshn/iecst/pkg/datatype"
	"github.com/xplshn/iecst/pkg/ir"
	"github.com/xplshn/iecst/pkg/literal"
)

func (tc *TypeChecker) checkStmts(list ir.StmtList) error {
	for _, s := range list {
		if err := tc.checkStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (tc *TypeChecker) checkStmt(s ir.Stmt) error {
	tc.currentExpr = ""
	switch st := s.(type) {
	case *ir.Assignment:
		return tc.checkAssignment(st)
	case *ir.If:
		if err := tc.checkCondition(st.Condition); err != nil {
			return err
		}
		if err := tc.checkStmts(st.Then); err != nil {
			return err
		}
		for _, e := range st.Elsif {
			if err := tc.checkCondition(e.Condition); err != nil {
				return err
			}
			if err := tc.checkStmts(e.Then); err != nil {
				return err
			}
		}
		return tc.checkStmts(st.Else)
	case *ir.Case:
		return tc.checkCase(st)
	case *ir.For:
		return tc.checkFor(st)
	case *ir.While:
		if err := tc.checkCondition(st.Condition); err != nil {
			return err
		}
		return tc.checkLoopBody(st.Body)
	case *ir.Repeat:
		if err := tc.checkCondition(st.Until); err != nil {
			return err
		}
		return tc.checkLoopBody(st.Body)
	case *ir.FunctionCall:
		return tc.checkFunctionCall(st)
	case *ir.FBCall:
		return tc.checkFBCall(st)
	case *ir.Return:
		return tc.checkReturn(st)
	case *ir.Exit, *ir.Continue:
		if tc.loopDepth == 0 {
			tc.warn(config.WarnLoopControl, -1, 0, "%s outside of a loop", strings.ToUpper(s.Kind()))
		}
		return nil
	case *ir.Unknown:
		tc.warn(config.WarnUnknownStmt, -1, 0, "Unsupported statement type: %s", st.Type)
		return nil
	}
	return nil
}

func (tc *TypeChecker) checkLoopBody(body ir.StmtList) error {
	tc.loopDepth++
	defer func() { tc.loopDepth-- }()
	return tc.checkStmts(body)
}

func (tc *TypeChecker) checkAssignment(a *ir.Assignment) error {
	target, err := tc.parse(a.Target)
	if err != nil {
		return err
	}
	targetText := strings.TrimSpace(string(a.Target))
	if !ast.IsChain(target) {
		return typeErrorf("Invalid assignment target '%s'", targetText)
	}
	if !tc.inScope(ast.BaseName(target)) {
		return typeErrorf("Variable %s not declared", targetText)
	}
	expected, err := tc.chainType(target)
	if err != nil {
		return err
	}
	if expected == nil {
		return typeErrorf("Cannot resolve target type for '%s'", targetText)
	}

	expr, err := tc.parse(a.Expression)
	if err != nil {
		return err
	}
	actual, err := tc.typeOf(expr)
	if err != nil {
		return err
	}
	if actual == nil {
		return typeErrorf("Unresolvable expression type for '%s'", tc.currentExpr)
	}
	if !tc.assignable(expected, actual) {
		return typeErrorf("Type mismatch: expected %s, got %s in expression '%s'", expected, actual, tc.currentExpr)
	}
	return nil
}

func (tc *TypeChecker) checkCase(c *ir.Case) error {
	sel, err := tc.parse(c.Selector)
	if err != nil {
		return err
	}
	t, err := tc.typeOf(sel)
	if err != nil {
		return err
	}
	if t == nil {
		return typeErrorf("Case selector has unknown type")
	}
	for _, clause := range c.Cases {
		if err := tc.checkStmts(clause.Statements); err != nil {
			return err
		}
	}
	return tc.checkStmts(c.Else)
}

// checkFor scopes the iterator as INT to the loop body
func (tc *TypeChecker) checkFor(f *ir.For) error {
	it := strings.TrimSpace(f.Iterator)
	if !literal.IsIdent(it) {
		return typeErrorf("Invalid FOR iterator '%s'", f.Iterator)
	}
	bounds := []ir.Expr{f.From, f.To}
	if f.By != nil {
		bounds = append(bounds, *f.By)
	}
	for _, b := range bounds {
		if _, err := tc.parse(b); err != nil {
			return err
		}
	}
	tc.currentExpr = ""

	if tc.inScope(it) {
		tc.warn(config.WarnShadow, -1, 0, "FOR iterator '%s' shadows an outer declaration", it)
	}
	tc.enterScope()
	defer tc.exitScope()
	tc.addSymbol(it, datatype.TypeInt)
	return tc.checkLoopBody(f.Body)
}

func (tc *TypeChecker) checkFunctionCall(c *ir.FunctionCall) error {
	sig, ok := tc.funcs[c.Name]
	if !ok {
		return typeErrorf("Function '%s' not defined", c.Name)
	}
	args := make([]*ast.Node, len(c.Arguments))
	for i, a := range c.Arguments {
		n, err := tc.parse(a)
		if err != nil {
			return err
		}
		args[i] = n
	}
	return tc.checkArgs(sig, args)
}

func (tc *TypeChecker) checkReturn(r *ir.Return) error {
	if r.Expression == nil {
		return nil
	}
	n, err := tc.parse(*r.Expression)
	if err != nil {
		return err
	}
	got, err := tc.typeOf(n)
	if err != nil {
		return err
	}
	// programs and function blocks have no result variable
	if tc.currentFunc == nil {
		return nil
	}
	want := tc.funcs[tc.currentFunc.Name].returnType
	if got == nil {
		return typeErrorf("Return type mismatch: expected %s, got unresolved expression '%s'", want, n.Text)
	}
	if !tc.assignable(want, got) {
		return typeErrorf("Return type mismatch: expected %s, got %s", want, got)
	}
	return nil
}

// fbTarget describes what an fbCall resolved its instance to
type fbTarget struct {
	inst      string
	fbName    string
	instIsVar bool
	pins      *datatype.PinTable
}

func (tc *TypeChecker) resolveFBCall(c *ir.FBCall) (*fbTarget, error) {
	inst := strings.TrimSpace(c.Name)
	target := &fbTarget{inst: inst}
	if sym := tc.findSymbol(inst); sym != nil {
		target.instIsVar = true
		u := tc.underlying(sym.Type)
		if u == nil || u.Kind != datatype.Scalar || datatype.FamilyOf(u) != datatype.FamNone {
			return nil, typeErrorf("fbCall '%s': '%s' is not a function block instance (type %s)", inst, inst, sym.Type)
		}
		target.fbName = u.Name
	} else if _, ok := tc.fbs[inst]; ok {
		target.fbName = inst
	} else {
		return nil, typeErrorf("fbCall instance '%s' is not declared and no FB type named '%s' found", inst, inst)
	}

	if sig, ok := tc.fbs[target.fbName]; ok {
		target.pins = sig.pins
	} else if pins, ok := datatype.BuiltinPins(target.fbName); ok {
		target.pins = pins
	}
	return target, nil
}

func (tc *TypeChecker) checkFBCall(c *ir.FBCall) error {
	t, err := tc.resolveFBCall(c)
	if err != nil {
		return err
	}
	if t.pins == nil {
		tc.warn(config.WarnUnknownFB, -1, 0, "fbCall '%s': no port signature known for '%s', checking names only", t.inst, t.fbName)
		return tc.checkFBCallNames(c)
	}

	for _, in := range c.Inputs {
		pin := t.pins.Input(in.Name)
		if pin == nil {
			return typeErrorf("fbCall '%s': unknown input '%s' for FB '%s'", t.inst, in.Name, t.fbName)
		}
		n, err := tc.parse(in.Value)
		if err != nil {
			return err
		}
		at, err := tc.typeOf(n)
		if err != nil {
			return err
		}
		if at == nil {
			if tc.inScope(ast.BaseName(n)) || ast.LiteralKind(n) != literal.None {
				continue
			}
			return typeErrorf("fbCall '%s': input '%s' maps to undeclared '%s'", t.inst, in.Name, n.Text)
		}
		if !tc.assignable(pin.Type, at) {
			return typeErrorf("fbCall '%s': input '%s' expects %s, got %s", t.inst, in.Name, pin.Type, at)
		}
	}

	for _, out := range c.Outputs {
		pin := t.pins.Output(out.Name)
		if pin == nil {
			return typeErrorf("fbCall '%s': unknown output '%s' for FB '%s'", t.inst, out.Name, t.fbName)
		}
		n, err := tc.parse(out.Value)
		if err != nil {
			return err
		}
		base := ast.BaseName(n)
		if !tc.inScope(base) && !(t.instIsVar && base == t.inst) {
			return typeErrorf("fbCall '%s': output '%s' maps to undeclared '%s'", t.inst, out.Name, n.Text)
		}
		dest, err := tc.chainType(n)
		if err != nil {
			return err
		}
		if dest == nil {
			return typeErrorf("fbCall '%s': cannot resolve output target '%s'", t.inst, n.Text)
		}
		if !tc.assignable(dest, pin.Type) {
			return typeErrorf("fbCall '%s': output '%s' of type %s not assignable to %s", t.inst, out.Name, pin.Type, dest)
		}
	}
	return nil
}

// checkFBCallNames is the fallback for function blocks without a port table:
// only the existence of the mapped variables is checked
func (tc *TypeChecker) checkFBCallNames(c *ir.FBCall) error {
	for _, in := range c.Inputs {
		n, err := tc.parse(in.Value)
		if err != nil {
			return err
		}
		if ast.LiteralKind(n) == literal.None && !tc.inScope(ast.BaseName(n)) {
			return typeErrorf("fbCall '%s': input '%s' maps to undeclared '%s'", c.Name, in.Name, n.Text)
		}
	}
	for _, out := range c.Outputs {
		n, err := tc.parse(out.Value)
		if err != nil {
			return err
		}
		if !tc.inScope(ast.BaseName(n)) {
			return typeErrorf("fbCall '%s': output '%s' maps to undeclared '%s'", c.Name, out.Name, n.Text)
		}
	}
	return nil
}
