package typeChecker

import (
	"fmt"
	"strings"

	"github.com/xplshn/iecst/pkg/config"
	"github.com/xplshn/iecst/pkg/datatype"
	"github.com/xplshn/iecst/pkg/ir"
	"github.com/xplshn/iecst/pkg/registry"
	"github.com/xplshn/iecst/pkg/util"
)

// SuccessMessage is the diagnostic returned by Validate for a well-typed file
const SuccessMessage = "Build Success ✅"

type Symbol struct {
	Name string
	Type *datatype.Type
	Next *Symbol
}

type Scope struct {
	Symbols *Symbol
	Parent  *Scope
}

type funcSig struct {
	name       string
	inputs     []datatype.Pin
	returnType *datatype.Type
}

type fbSig struct {
	name   string
	pins   *datatype.PinTable
	locals []datatype.Pin
}

type TypeChecker struct {
	cfg *config.Config
	reg *registry.Registry

	funcs     map[string]*funcSig
	fbs       map[string]*fbSig
	userTypes map[string]*datatype.Type
	known     *datatype.Known

	currentScope *Scope
	currentFunc  *ir.Function
	currentUnit  string
	currentExpr  string
	loopDepth    int

	warnings []util.Diagnostic
	seen     map[util.Diagnostic]bool
}

func NewTypeChecker(cfg *config.Config, reg *registry.Registry) *TypeChecker {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &TypeChecker{cfg: cfg, reg: reg}
}

// Validate checks file and reports the verdict as a single diagnostic string
func Validate(file *ir.File, reg *registry.Registry, cfg *config.Config) (bool, string) {
	if err := NewTypeChecker(cfg, reg).Check(file); err != nil {
		return false, err.Error()
	}
	return true, SuccessMessage
}

// Warnings returns the warnings collected by the last Check
func (tc *TypeChecker) Warnings() []util.Diagnostic { return tc.warnings }

func (tc *TypeChecker) reset() {
	tc.funcs = make(map[string]*funcSig)
	tc.fbs = make(map[string]*fbSig)
	tc.userTypes = make(map[string]*datatype.Type)
	tc.known = datatype.NewKnown()
	tc.currentScope = nil
	tc.currentFunc = nil
	tc.currentUnit = ""
	tc.loopDepth = 0
	tc.warnings = nil
	tc.seen = make(map[util.Diagnostic]bool)
}

func newScope(parent *Scope) *Scope { return &Scope{Parent: parent} }
func (tc *TypeChecker) enterScope()  { tc.currentScope = newScope(tc.currentScope) }
func (tc *TypeChecker) exitScope() {
	if tc.currentScope != nil {
		tc.currentScope = tc.currentScope.Parent
	}
}

func (tc *TypeChecker) addSymbol(name string, typ *datatype.Type) {
	tc.currentScope.Symbols = &Symbol{Name: name, Type: typ, Next: tc.currentScope.Symbols}
}

func (tc *TypeChecker) findSymbol(name string) *Symbol {
	for s := tc.currentScope; s != nil; s = s.Parent {
		for sym := s.Symbols; sym != nil; sym = sym.Next {
			if sym.Name == name {
				return sym
			}
		}
	}
	return nil
}

func (tc *TypeChecker) findSymbolInCurrentScope(name string) *Symbol {
	if tc.currentScope == nil {
		return nil
	}
	for sym := tc.currentScope.Symbols; sym != nil; sym = sym.Next {
		if sym.Name == name {
			return sym
		}
	}
	return nil
}

func (tc *TypeChecker) inScope(name string) bool { return tc.findSymbol(name) != nil }

func typeErrorf(format string, args ...interface{}) error {
	return util.Errorf(util.Type, format, args...)
}

func (tc *TypeChecker) warn(wt config.Warning, pos, length int, format string, args ...interface{}) {
	if !tc.cfg.IsWarningEnabled(wt) {
		return
	}
	d := util.Diagnostic{
		Unit: tc.currentUnit,
		Expr: tc.currentExpr,
		Pos:  pos,
		Len:  length,
		Msg:  fmt.Sprintf(format, args...),
		Flag: tc.cfg.Warnings[wt].Name,
	}
	if d.Expr == "" {
		d.Pos, d.Len = -1, 0
	}
	if tc.seen[d] {
		return
	}
	tc.seen[d] = true
	tc.warnings = append(tc.warnings, d)
}

// underlying replaces a user data type name by its definition
func (tc *TypeChecker) underlying(t *datatype.Type) *datatype.Type {
	seen := make(map[string]bool)
	for t != nil && t.Kind == datatype.Scalar {
		def, ok := tc.userTypes[t.Name]
		if !ok || seen[t.Name] {
			return t
		}
		seen[t.Name] = true
		t = def
	}
	return t
}

func (tc *TypeChecker) family(t *datatype.Type) datatype.Family {
	return datatype.FamilyOf(tc.underlying(t))
}

func (tc *TypeChecker) isNumeric(t *datatype.Type) bool { return datatype.IsNumeric(tc.underlying(t)) }

func (tc *TypeChecker) assignable(expected, actual *datatype.Type) bool {
	if datatype.Equal(expected, actual) {
		return true
	}
	return datatype.Assignable(tc.underlying(expected), tc.underlying(actual))
}

// Check validates every unit of file. The first failure ends the check.
func (tc *TypeChecker) Check(file *ir.File) error {
	tc.reset()
	if err := tc.collect(file); err != nil {
		return err
	}

	hasProgram := false
	for _, u := range file.Units {
		if _, ok := u.(*ir.Program); ok {
			hasProgram = true
		}
	}
	if hasProgram && tc.cfg.IsFeatureEnabled(config.FeatRegistry) && tc.reg.Len() == 0 {
		return util.Errorf(util.Registry, "No device variables found in DB. Cannot validate.")
	}

	for _, u := range file.Units {
		var err error
		switch unit := u.(type) {
		case *ir.DataType:
			err = tc.checkDataType(unit)
		case *ir.Function:
			err = tc.checkFunction(unit)
		case *ir.FunctionBlock:
			err = tc.checkFunctionBlock(unit)
		case *ir.Program:
			err = tc.checkProgram(unit)
		default:
			err = util.Errorf(util.Structural, "Invalid block type: %s", u.UnitKey())
		}
		if err != nil {
			return err
		}
		tc.currentScope, tc.currentFunc, tc.currentExpr = nil, nil, ""
	}
	return nil
}

// Diagnose places an error returned by Check at the unit and expression
// being checked when it was raised
func (tc *TypeChecker) Diagnose(err error) util.Diagnostic {
	return util.Diagnostic{Unit: tc.currentUnit, Expr: tc.currentExpr, Pos: -1, Msg: err.Error()}
}

// collect is the first pass: it records every function, function block and
// data type so later units may reference earlier or later ones.
func (tc *TypeChecker) collect(file *ir.File) error {
	defined := make(map[string]string)
	define := func(kind, name string) error {
		if prev, ok := defined[name]; ok {
			return typeErrorf("Duplicate definition of '%s' (%s and %s)", name, prev, kind)
		}
		defined[name] = kind
		return nil
	}

	for _, u := range file.Units {
		switch unit := u.(type) {
		case *ir.DataType:
			if unit.Name == "" || unit.Datatype == "" {
				return util.Errorf(util.Structural, "DataType missing name/datatype")
			}
			if datatype.IsBuiltin(unit.Name) {
				return typeErrorf("DataType '%s' redefines a built-in type", unit.Name)
			}
			if err := define("dataType", unit.Name); err != nil {
				return err
			}
			t, err := datatype.Parse(unit.Datatype)
			if err != nil {
				return typeErrorf("DataType '%s' type error: %w", unit.Name, err)
			}
			tc.userTypes[unit.Name] = t
			tc.known.Add(unit.Name)
		case *ir.Function:
			if unit.Name == "" || strings.TrimSpace(unit.ReturnType) == "" {
				return util.Errorf(util.Structural, "Function missing name/returnType")
			}
			if err := define("function", unit.Name); err != nil {
				return err
			}
			tc.funcs[unit.Name] = &funcSig{
				name:       unit.Name,
				inputs:     declPins(unit.Inputs),
				returnType: parseLenient(unit.ReturnType),
			}
		case *ir.FunctionBlock:
			if unit.Name == "" {
				return util.Errorf(util.Structural, "FunctionBlock missing name")
			}
			if err := define("functionBlock", unit.Name); err != nil {
				return err
			}
			tc.fbs[unit.Name] = &fbSig{
				name:   unit.Name,
				pins:   &datatype.PinTable{Inputs: declPins(unit.Inputs), Outputs: declPins(unit.Outputs)},
				locals: declPins(unit.Locals),
			}
			tc.known.Add(unit.Name)
		case *ir.Program:
			if err := define("program", unit.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// parseLenient parses a descriptor for a signature. Errors surface when the
// owning unit is checked, so a bad descriptor becomes an unknown name here.
func parseLenient(text string) *datatype.Type {
	t, err := datatype.Parse(text)
	if err != nil {
		return &datatype.Type{Kind: datatype.Scalar, Name: strings.TrimSpace(text)}
	}
	return t
}

func declPins(decls []ir.Decl) []datatype.Pin {
	pins := make([]datatype.Pin, len(decls))
	for i, d := range decls {
		pins[i] = datatype.Pin{Name: d.Name, Type: parseLenient(d.Datatype)}
	}
	return pins
}

// checkDecl validates a declared type against the known names
func (tc *TypeChecker) checkDecl(text string) (*datatype.Type, error) {
	return datatype.ParseAndValidate(text, tc.known)
}

// declare adds decls to the current scope, rejecting duplicates
func (tc *TypeChecker) declare(owner string, decls []ir.Decl, label string) error {
	for _, d := range decls {
		t, err := tc.checkDecl(d.Datatype)
		if err != nil {
			return typeErrorf("%s %s'%s': %w", owner, label, d.Name, err)
		}
		if tc.findSymbolInCurrentScope(d.Name) != nil {
			return typeErrorf("%s declares '%s' twice", owner, d.Name)
		}
		tc.addSymbol(d.Name, t)
	}
	return nil
}

func (tc *TypeChecker) checkDataType(d *ir.DataType) error {
	tc.currentUnit = "dataType '" + d.Name + "'"
	if _, err := tc.checkDecl(d.Datatype); err != nil {
		return typeErrorf("DataType '%s' type error: %w", d.Name, err)
	}
	if tc.refersTo(tc.userTypes[d.Name], d.Name, map[string]bool{}) {
		return typeErrorf("DataType '%s' is defined in terms of itself", d.Name)
	}
	return nil
}

// refersTo reports whether t reaches the named user type through fields,
// array elements or other named types
func (tc *TypeChecker) refersTo(t *datatype.Type, name string, visited map[string]bool) bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case datatype.Array:
		return tc.refersTo(t.Elem, name, visited)
	case datatype.Struct:
		for _, f := range t.Fields {
			if tc.refersTo(f.Type, name, visited) {
				return true
			}
		}
		return false
	}
	if t.Name == name {
		return true
	}
	def, ok := tc.userTypes[t.Name]
	if !ok || visited[t.Name] {
		return false
	}
	visited[t.Name] = true
	return tc.refersTo(def, name, visited)
}

func (tc *TypeChecker) checkFunction(f *ir.Function) error {
	tc.currentUnit = "function '" + f.Name + "'"
	owner := "Function '" + f.Name + "'"
	ret, err := tc.checkDecl(f.ReturnType)
	if err != nil {
		return typeErrorf("%s type error: %w", owner, err)
	}

	tc.enterScope()
	defer tc.exitScope()
	for _, d := range f.Inputs {
		t, err := tc.checkDecl(d.Datatype)
		if err != nil {
			return typeErrorf("%s type error: %w", owner, err)
		}
		if tc.findSymbolInCurrentScope(d.Name) != nil {
			return typeErrorf("%s declares '%s' twice", owner, d.Name)
		}
		tc.addSymbol(d.Name, t)
	}
	if err := tc.declare(owner, f.Locals, "local "); err != nil {
		return err
	}
	if tc.findSymbolInCurrentScope(f.Name) == nil {
		tc.addSymbol(f.Name, ret)
	}

	tc.currentFunc = f
	return tc.checkStmts(f.Body)
}

func (tc *TypeChecker) checkFunctionBlock(fb *ir.FunctionBlock) error {
	tc.currentUnit = "functionBlock '" + fb.Name + "'"
	owner := "FunctionBlock '" + fb.Name + "'"
	tc.enterScope()
	defer tc.exitScope()
	for _, group := range []struct {
		decls []ir.Decl
		label string
	}{{fb.Inputs, "input "}, {fb.Outputs, "output "}, {fb.Locals, "local "}} {
		if err := tc.declare(owner, group.decls, group.label); err != nil {
			return err
		}
	}
	return tc.checkStmts(fb.Body)
}

func (tc *TypeChecker) checkProgram(p *ir.Program) error {
	tc.currentUnit = "program '" + p.Name + "'"
	owner := "Program '" + p.Name + "'"
	useRegistry := tc.cfg.IsFeatureEnabled(config.FeatRegistry)

	tc.enterScope()
	defer tc.exitScope()
	for _, d := range p.Declarations {
		t, err := tc.checkDecl(d.Datatype)
		if err != nil {
			return typeErrorf("%s declaration '%s': %w", owner, d.Name, err)
		}
		if tc.findSymbolInCurrentScope(d.Name) != nil {
			return typeErrorf("%s declares '%s' twice", owner, d.Name)
		}
		if useRegistry {
			dbType, ok := tc.reg.Type(d.Name)
			if !ok {
				if s := tc.reg.Suggest(d.Name); s != "" {
					return util.Errorf(util.Registry, "Variable '%s' not found in device specifications (did you mean '%s'?)", d.Name, s)
				}
				return util.Errorf(util.Registry, "Variable '%s' not found in device specifications", d.Name)
			}
			if dbType != strings.ToUpper(strings.TrimSpace(d.Datatype)) {
				return util.Errorf(util.Registry, "Type mismatch for '%s': DB has %s, JSON declares %s", d.Name, dbType, d.Datatype)
			}
			if t, err = datatype.Parse(dbType); err != nil {
				return util.Errorf(util.Registry, "Device '%s': %w", d.Name, err)
			}
		}
		tc.addSymbol(d.Name, t)
	}
	return tc.checkStmts(p.Statements)
}
