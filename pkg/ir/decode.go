package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/xplshn/iecst/pkg/util"
)

// ErrNoDevice is returned for the {"NO_DEVICE_FOUND": true} sentinel. Callers
// treat it as terminal and do not validate.
var ErrNoDevice = errors.New("no applicable device found")

type object map[string]json.RawMessage

func (o object) has(key string) bool {
	v, ok := o[key]
	return ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func (o object) keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (o object) decode(key string, v interface{}) error {
	if !o.has(key) {
		return nil
	}
	return json.Unmarshal(o[key], v)
}

func structural(format string, args ...interface{}) error {
	return util.Errorf(util.Structural, format, args...)
}

// Decode parses an IR document: a single unit object or an array of them
func Decode(data []byte) (*File, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, structural("Empty IR document")
	}

	var blocks []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &blocks); err != nil {
			return nil, structural("Invalid JSON: %w", err)
		}
	} else {
		blocks = []json.RawMessage{trimmed}
	}

	file := &File{}
	for _, raw := range blocks {
		units, err := decodeBlock(raw)
		if err != nil {
			return nil, err
		}
		file.Units = append(file.Units, units...)
	}
	return file, nil
}

var unitKeys = []string{"program", "functionBlock", "function", "dataType"}

func decodeBlock(raw json.RawMessage) ([]Unit, error) {
	var obj object
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, structural("Each IR block must be an object: %w", err)
	}
	if obj.has("NO_DEVICE_FOUND") {
		var flag bool
		if json.Unmarshal(obj["NO_DEVICE_FOUND"], &flag) == nil && flag {
			return nil, ErrNoDevice
		}
	}

	var present []string
	for _, k := range unitKeys {
		if obj.has(k) {
			present = append(present, k)
		}
	}
	switch {
	case len(present) > 1:
		return nil, structural("Block must hold exactly one unit, found keys: %s", strings.Join(present, ", "))
	case len(present) == 1:
		u, err := decodeUnit(present[0], obj[present[0]])
		if err != nil {
			return nil, err
		}
		return []Unit{u}, nil
	}

	// unwrapped units
	if obj.has("name") && obj.has("declarations") && obj.has("statements") {
		u, err := decodeUnit("program", raw)
		return []Unit{u}, err
	}
	if obj.has("name") && obj.has("returnType") && obj.has("body") {
		u, err := decodeUnit("function", raw)
		return []Unit{u}, err
	}
	if len(obj) == 1 {
		return nil, util.Errorf(util.Generator, "Invalid block type: %s", obj.keys()[0])
	}
	return nil, util.Errorf(util.Generator, "Input doesn't look like a program/functionBlock/function. Keys: %s", strings.Join(obj.keys(), ", "))
}

func decodeUnit(key string, raw json.RawMessage) (Unit, error) {
	var obj object
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, structural("'%s' must be an object: %w", key, err)
	}
	var name string
	if err := obj.decode("name", &name); err != nil {
		return nil, structural("'%s' name must be a string: %w", key, err)
	}

	switch key {
	case "program":
		if name == "" {
			return nil, structural("Program missing name")
		}
		if !obj.has("declarations") {
			return nil, structural("Program '%s' missing declarations", name)
		}
		p := &Program{Name: name}
		if err := decodeFields(obj, "Program '"+name+"'", map[string]interface{}{
			"declarations": &p.Declarations,
			"statements":   &p.Statements,
		}); err != nil {
			return nil, err
		}
		return p, nil

	case "functionBlock":
		if name == "" {
			return nil, structural("FunctionBlock missing name")
		}
		fb := &FunctionBlock{Name: name}
		if err := decodeFields(obj, "FunctionBlock '"+name+"'", map[string]interface{}{
			"inputs":  &fb.Inputs,
			"outputs": &fb.Outputs,
			"locals":  &fb.Locals,
			"body":    &fb.Body,
		}); err != nil {
			return nil, err
		}
		return fb, nil

	case "function":
		f := &Function{Name: name}
		if err := obj.decode("returnType", &f.ReturnType); err != nil {
			return nil, structural("Function '%s' returnType must be a string: %w", name, err)
		}
		if name == "" || strings.TrimSpace(f.ReturnType) == "" {
			return nil, structural("Function missing name/returnType")
		}
		if err := decodeFields(obj, "Function '"+name+"'", map[string]interface{}{
			"inputs": &f.Inputs,
			"locals": &f.Locals,
			"body":   &f.Body,
		}); err != nil {
			return nil, err
		}
		return f, nil

	case "dataType":
		d := &DataType{Name: name}
		if err := obj.decode("datatype", &d.Datatype); err != nil {
			return nil, structural("DataType '%s' datatype must be a string: %w", name, err)
		}
		if d.Datatype == "" {
			if err := obj.decode("dataType", &d.Datatype); err != nil {
				return nil, structural("DataType '%s' dataType must be a string: %w", name, err)
			}
		}
		if name == "" || strings.TrimSpace(d.Datatype) == "" {
			return nil, structural("DataType missing name/datatype")
		}
		return d, nil
	}
	return nil, structural("Invalid block type: %s", key)
}

// decodeFields decodes each present key into its target, keeping structural
// errors raised by nested decoders intact
func decodeFields(obj object, owner string, fields map[string]interface{}) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := obj.decode(k, fields[k]); err != nil {
			var e *util.Error
			if errors.As(err, &e) {
				return e
			}
			return structural("%s: invalid '%s': %w", owner, k, err)
		}
	}
	return nil
}

func (d *Decl) UnmarshalJSON(b []byte) error {
	var obj object
	if err := json.Unmarshal(b, &obj); err != nil {
		return structural("Declaration must be an object: %w", err)
	}
	_ = obj.decode("type", &d.Section)
	if err := obj.decode("name", &d.Name); err != nil || d.Name == "" {
		return structural("Declaration missing name")
	}
	if err := obj.decode("datatype", &d.Datatype); err != nil {
		return structural("Declaration '%s' datatype must be a string", d.Name)
	}
	if d.Datatype == "" {
		_ = obj.decode("dataType", &d.Datatype)
	}
	if strings.TrimSpace(d.Datatype) == "" {
		return structural("Declaration '%s' missing datatype", d.Name)
	}
	if obj.has("initialValue") {
		dec := json.NewDecoder(bytes.NewReader(obj["initialValue"]))
		dec.UseNumber()
		if err := dec.Decode(&d.InitialValue); err != nil {
			return structural("Declaration '%s' has an invalid initialValue: %w", d.Name, err)
		}
	}
	return nil
}

func (l *StmtList) UnmarshalJSON(b []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return structural("Statement list must be an array: %w", err)
	}
	out := make(StmtList, 0, len(raws))
	for _, raw := range raws {
		s, err := decodeStmt(raw)
		if err != nil {
			return err
		}
		out = append(out, s)
	}
	*l = out
	return nil
}

func decodeStmt(raw json.RawMessage) (Stmt, error) {
	var obj object
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, structural("Statement must be an object: %w", err)
	}
	var kind string
	if err := obj.decode("type", &kind); err != nil || kind == "" {
		return nil, structural("Statement missing type")
	}

	var s Stmt
	switch kind {
	case "assignment":
		a := &Assignment{}
		if !obj.has("target") {
			return nil, structural("Assignment missing target")
		}
		if !obj.has("expression") {
			return nil, structural("Assignment missing expression")
		}
		s = a
	case "if":
		if !obj.has("condition") {
			return nil, structural("If statement missing condition")
		}
		s = &If{}
	case "case":
		if !obj.has("selector") {
			return nil, structural("Case statement missing selector")
		}
		s = &Case{}
	case "for":
		if !obj.has("iterator") {
			return nil, structural("For loop missing iterator")
		}
		if !obj.has("from") || !obj.has("to") {
			return nil, structural("For loop missing from/to")
		}
		s = &For{}
	case "while":
		if !obj.has("condition") {
			return nil, structural("While loop missing condition")
		}
		s = &While{}
	case "repeat":
		if !obj.has("until") {
			return nil, structural("Repeat loop missing until")
		}
		s = &Repeat{}
	case "functionCall":
		if !obj.has("name") {
			return nil, structural("Function call missing name")
		}
		s = &FunctionCall{}
	case "fbCall":
		if !obj.has("name") {
			return nil, structural("fbCall missing name")
		}
		s = &FBCall{}
	case "return":
		s = &Return{}
	case "exit":
		return &Exit{}, nil
	case "continue":
		return &Continue{}, nil
	default:
		return &Unknown{Type: kind, Raw: append(json.RawMessage(nil), raw...)}, nil
	}

	if err := json.Unmarshal(raw, s); err != nil {
		var e *util.Error
		if errors.As(err, &e) {
			return nil, e
		}
		return nil, structural("Invalid '%s' statement: %w", kind, err)
	}
	if a, ok := s.(*Assignment); ok && strings.TrimSpace(string(a.Target)) == "" {
		return nil, structural("Assignment missing target")
	}
	return s, nil
}

// UnmarshalJSON accepts "then", "body" or "statements" for the branch body
func (e *ElsIf) UnmarshalJSON(b []byte) error {
	var obj object
	if err := json.Unmarshal(b, &obj); err != nil {
		return structural("ELSIF block must be an object: %w", err)
	}
	if !obj.has("condition") {
		return structural("ELSIF block missing condition")
	}
	if err := obj.decode("condition", &e.Condition); err != nil {
		return err
	}
	for _, key := range []string{"then", "body", "statements"} {
		if obj.has(key) {
			return obj.decode(key, &e.Then)
		}
	}
	return nil
}
