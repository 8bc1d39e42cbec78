package datatype

import (
	"fmt"
	"strings"
)

// Known is the set of type names a descriptor may resolve to. Built-in names
// match regardless of case; user function block and data type names are exact.
type Known struct {
	user map[string]bool
}

func NewKnown() *Known { return &Known{user: make(map[string]bool)} }

func (k *Known) Add(name string) { k.user[name] = true }

func (k *Known) Has(name string) bool {
	if IsBuiltin(name) {
		return true
	}
	return k != nil && k.user[name]
}

// Validate checks that every leaf of t resolves to a known name
func Validate(t *Type, known *Known) error {
	switch t.Kind {
	case Array:
		return Validate(t.Elem, known)
	case Struct:
		for _, f := range t.Fields {
			if err := Validate(f.Type, known); err != nil {
				return fmt.Errorf("STRUCT field type error: %w", err)
			}
		}
		return nil
	}
	if t.Length > 0 {
		if u := strings.ToUpper(t.Name); u != "STRING" && u != "WSTRING" {
			return fmt.Errorf("Unknown datatype %s", t)
		}
		return nil
	}
	if !known.Has(t.Name) {
		return fmt.Errorf("Unknown datatype %s", t.Name)
	}
	return nil
}

// ParseAndValidate parses text and validates it against known
func ParseAndValidate(text string, known *Known) (*Type, error) {
	t, err := Parse(text)
	if err != nil {
		return nil, err
	}
	if err := Validate(t, known); err != nil {
		return nil, err
	}
	return t, nil
}

// Pin is a named function block port
type Pin struct {
	Name string
	Type *Type
}

// PinTable lists the ports of a built-in function block
type PinTable struct {
	Inputs  []Pin
	Outputs []Pin
}

func pins(kv ...string) []Pin {
	out := make([]Pin, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, Pin{Name: kv[i], Type: Elementary(kv[i+1])})
	}
	return out
}

var builtinPins = map[string]*PinTable{
	"TON":    {Inputs: pins("IN", "BOOL", "PT", "TIME"), Outputs: pins("Q", "BOOL", "ET", "TIME")},
	"TOF":    {Inputs: pins("IN", "BOOL", "PT", "TIME"), Outputs: pins("Q", "BOOL", "ET", "TIME")},
	"TP":     {Inputs: pins("IN", "BOOL", "PT", "TIME"), Outputs: pins("Q", "BOOL", "ET", "TIME")},
	"CTU":    {Inputs: pins("CU", "BOOL", "PV", "INT"), Outputs: pins("Q", "BOOL", "CV", "INT")},
	"CTD":    {Inputs: pins("CD", "BOOL", "PV", "INT"), Outputs: pins("Q", "BOOL", "CV", "INT")},
	"CTUD":   {Inputs: pins("CU", "BOOL", "CD", "BOOL", "PV", "INT"), Outputs: pins("QU", "BOOL", "QD", "BOOL", "CV", "INT")},
	"R_TRIG": {Inputs: pins("CLK", "BOOL"), Outputs: pins("Q", "BOOL")},
	"F_TRIG": {Inputs: pins("CLK", "BOOL"), Outputs: pins("Q", "BOOL")},
}

// BuiltinPins returns the port table of a built-in function block, if one is defined
func BuiltinPins(name string) (*PinTable, bool) {
	p, ok := builtinPins[strings.ToUpper(name)]
	return p, ok
}

func findPin(list []Pin, name string) *Pin {
	for i := range list {
		if list[i].Name == name {
			return &list[i]
		}
	}
	return nil
}

func (p *PinTable) Input(name string) *Pin  { return findPin(p.Inputs, name) }
func (p *PinTable) Output(name string) *Pin { return findPin(p.Outputs, name) }
