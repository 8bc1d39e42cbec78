package codegen

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xplshn/iecst/pkg/datatype"
	"github.com/xplshn/iecst/pkg/ir"
	"github.com/xplshn/iecst/pkg/lexer"
	"github.com/xplshn/iecst/pkg/util"
)

const indentUnit = "    "

type stBackend struct {
	lines []string
	fn    *ir.Function
}

// NewSTBackend renders IEC 61131-3 Structured Text
func NewSTBackend() Backend { return &stBackend{} }

func (b *stBackend) Generate(file *ir.File) (*bytes.Buffer, error) {
	var out bytes.Buffer
	for i, u := range file.Units {
		if i > 0 {
			out.WriteString("\n\n")
		}
		b.lines, b.fn = nil, nil
		if err := b.genUnit(u); err != nil {
			return nil, err
		}
		out.WriteString(strings.Join(b.lines, "\n"))
	}
	return &out, nil
}

func (b *stBackend) line(level int, format string, args ...interface{}) {
	text := format
	if len(args) > 0 {
		text = fmt.Sprintf(format, args...)
	}
	if text == "" {
		b.lines = append(b.lines, "")
		return
	}
	b.lines = append(b.lines, strings.Repeat(indentUnit, level)+text)
}

func genErrorf(format string, args ...interface{}) error {
	return util.Errorf(util.Generator, format, args...)
}

func (b *stBackend) genUnit(u ir.Unit) error {
	switch unit := u.(type) {
	case *ir.Program:
		b.line(0, "PROGRAM %s", unit.Name)
		if err := b.sectionedVars(unit.Declarations); err != nil {
			return err
		}
		return b.body(unit.Statements, "END_PROGRAM")
	case *ir.FunctionBlock:
		b.line(0, "FUNCTION_BLOCK %s", unit.Name)
		for _, blk := range []struct {
			header string
			decls  []ir.Decl
		}{{"VAR_INPUT", unit.Inputs}, {"VAR_OUTPUT", unit.Outputs}, {"VAR", unit.Locals}} {
			if err := b.varBlock(blk.header, blk.decls); err != nil {
				return err
			}
		}
		return b.body(unit.Body, "END_FUNCTION_BLOCK")
	case *ir.Function:
		b.fn = unit
		b.line(0, "FUNCTION %s : %s", unit.Name, strings.TrimSpace(unit.ReturnType))
		if err := b.varBlock("VAR_INPUT", unit.Inputs); err != nil {
			return err
		}
		if err := b.varBlock("VAR", unit.Locals); err != nil {
			return err
		}
		return b.body(unit.Body, "END_FUNCTION")
	case *ir.DataType:
		return b.typeDecl(unit)
	}
	return genErrorf("Invalid block type: %s", u.UnitKey())
}

func (b *stBackend) body(list ir.StmtList, end string) error {
	b.line(0, "")
	if err := b.stmts(list, 0); err != nil {
		return err
	}
	b.line(0, "")
	b.line(0, "%s", end)
	return nil
}

// sectionedVars groups program declarations by their section tag, keeping
// the order in which sections first appear
func (b *stBackend) sectionedVars(decls []ir.Decl) error {
	var order []string
	groups := make(map[string][]ir.Decl)
	for _, d := range decls {
		section := strings.ToUpper(strings.TrimSpace(d.Section))
		if !strings.HasPrefix(section, "VAR") {
			section = "VAR"
		}
		if _, ok := groups[section]; !ok {
			order = append(order, section)
		}
		groups[section] = append(groups[section], d)
	}
	for _, section := range order {
		if err := b.varBlock(section, groups[section]); err != nil {
			return err
		}
	}
	return nil
}

func (b *stBackend) varBlock(header string, decls []ir.Decl) error {
	if len(decls) == 0 {
		return nil
	}
	b.line(0, "%s", header)
	for _, d := range decls {
		text := strings.TrimSpace(d.Datatype)
		if t, err := datatype.Parse(text); err == nil && t.Kind == datatype.Struct {
			b.line(1, "%s : STRUCT", d.Name)
			b.structFields(2, t.Fields)
			b.line(1, "END_STRUCT;")
			continue
		}
		if d.InitialValue != nil {
			b.line(1, "%s : %s := %s;", d.Name, text, ValueToST(d.InitialValue))
		} else {
			b.line(1, "%s : %s;", d.Name, text)
		}
	}
	b.line(0, "END_VAR")
	return nil
}

func (b *stBackend) structFields(level int, fields []datatype.Field) {
	for _, f := range fields {
		if f.Type.Kind == datatype.Struct {
			b.line(level, "%s : STRUCT", f.Name)
			b.structFields(level+1, f.Type.Fields)
			b.line(level, "END_STRUCT;")
			continue
		}
		b.line(level, "%s : %s;", f.Name, f.Type)
	}
}

func (b *stBackend) typeDecl(d *ir.DataType) error {
	t, err := datatype.Parse(d.Datatype)
	if err != nil {
		return genErrorf("DataType '%s': %w", d.Name, err)
	}
	if t.Kind == datatype.Struct {
		b.line(0, "TYPE %s :", d.Name)
		b.line(0, "STRUCT")
		b.structFields(1, t.Fields)
		b.line(0, "END_STRUCT;")
	} else {
		b.line(0, "TYPE %s : %s;", d.Name, strings.TrimSpace(d.Datatype))
	}
	b.line(0, "END_TYPE")
	return nil
}

// expr normalizes operator spellings in an expression
func (b *stBackend) expr(e ir.Expr) (string, error) {
	text := strings.TrimSpace(string(e))
	out, err := lexer.Normalize(text)
	if err != nil {
		if errors.Is(err, lexer.ErrTernary) {
			return "", genErrorf("%w", err)
		}
		return "", genErrorf("Invalid expression '%s': %w", text, err)
	}
	return out, nil
}

func (b *stBackend) stmts(list ir.StmtList, level int) error {
	for _, s := range list {
		if err := b.stmt(s, level); err != nil {
			return err
		}
	}
	return nil
}

func (b *stBackend) stmt(s ir.Stmt, level int) error {
	switch st := s.(type) {
	case *ir.Assignment:
		e, err := b.expr(st.Expression)
		if err != nil {
			return err
		}
		b.line(level, "%s := %s;", strings.TrimSpace(string(st.Target)), e)

	case *ir.If:
		cond, err := b.expr(st.Condition)
		if err != nil {
			return err
		}
		b.line(level, "IF %s THEN", cond)
		if err := b.stmts(st.Then, level+1); err != nil {
			return err
		}
		for _, e := range st.Elsif {
			cond, err := b.expr(e.Condition)
			if err != nil {
				return err
			}
			b.line(level, "ELSIF %s THEN", cond)
			if err := b.stmts(e.Then, level+1); err != nil {
				return err
			}
		}
		if len(st.Else) > 0 {
			b.line(level, "ELSE")
			if err := b.stmts(st.Else, level+1); err != nil {
				return err
			}
		}
		b.line(level, "END_IF;")

	case *ir.Case:
		sel, err := b.expr(st.Selector)
		if err != nil {
			return err
		}
		b.line(level, "CASE %s OF", sel)
		for _, c := range st.Cases {
			b.line(level+1, "%s:", strings.TrimSpace(string(c.Value)))
			if err := b.stmts(c.Statements, level+2); err != nil {
				return err
			}
		}
		if len(st.Else) > 0 {
			b.line(level, "ELSE")
			if err := b.stmts(st.Else, level+1); err != nil {
				return err
			}
		}
		b.line(level, "END_CASE;")

	case *ir.For:
		from, err := b.expr(st.From)
		if err != nil {
			return err
		}
		to, err := b.expr(st.To)
		if err != nil {
			return err
		}
		by := ""
		if st.By != nil {
			step, err := b.expr(*st.By)
			if err != nil {
				return err
			}
			by = " BY " + step
		}
		b.line(level, "FOR %s := %s TO %s%s DO", strings.TrimSpace(st.Iterator), from, to, by)
		if err := b.stmts(st.Body, level+1); err != nil {
			return err
		}
		b.line(level, "END_FOR;")

	case *ir.While:
		cond, err := b.expr(st.Condition)
		if err != nil {
			return err
		}
		b.line(level, "WHILE %s DO", cond)
		if err := b.stmts(st.Body, level+1); err != nil {
			return err
		}
		b.line(level, "END_WHILE;")

	case *ir.Repeat:
		b.line(level, "REPEAT")
		if err := b.stmts(st.Body, level+1); err != nil {
			return err
		}
		until, err := b.expr(st.Until)
		if err != nil {
			return err
		}
		b.line(level, "UNTIL %s", until)
		b.line(level, "END_REPEAT;")

	case *ir.FunctionCall:
		args := make([]string, len(st.Arguments))
		for i, a := range st.Arguments {
			e, err := b.expr(a)
			if err != nil {
				return err
			}
			args[i] = e
		}
		b.line(level, "%s(%s);", st.Name, strings.Join(args, ", "))

	case *ir.FBCall:
		var parts []string
		for _, in := range st.Inputs {
			v, err := b.portValue(in.Value)
			if err != nil {
				return err
			}
			parts = append(parts, in.Name+" := "+v)
		}
		for _, out := range st.Outputs {
			parts = append(parts, out.Name+" => "+strings.TrimSpace(string(out.Value)))
		}
		b.line(level, "%s(%s);", strings.TrimSpace(st.Name), strings.Join(parts, ", "))

	case *ir.Return:
		if st.Expression == nil {
			b.line(level, "RETURN;")
			break
		}
		e, err := b.expr(*st.Expression)
		if err != nil {
			return err
		}
		if b.fn != nil {
			b.line(level, "%s := %s;", b.fn.Name, e)
		}
		b.line(level, "RETURN;")

	case *ir.Exit:
		b.line(level, "EXIT;")
	case *ir.Continue:
		b.line(level, "CONTINUE;")
	default:
		b.line(level, "(* Unsupported statement type: %s *)", s.Kind())
	}
	return nil
}

// portValue renders an fbCall input. Words that are not ST become STRING literals.
func (b *stBackend) portValue(v ir.Expr) (string, error) {
	text := strings.TrimSpace(string(v))
	if st := stringToST(text); st != text {
		return st, nil
	}
	return b.expr(v)
}
