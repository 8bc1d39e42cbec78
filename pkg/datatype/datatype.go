// Package datatype models IEC 61131-3 type descriptors: elementary and generic
// scalars, sized strings, multi-dimensional arrays and inline structs. It
// classifies descriptors into families and decides assignability between them.
package datatype

import (
	"fmt"
	"strconv"
	"strings"
)

type Kind int

const (
	Scalar Kind = iota
	Array
	Struct
)

type Dim struct{ Lo, Hi int }

type Field struct {
	Name string
	Type *Type
}

// Type is a parsed type descriptor. Name is upper-cased for elementary,
// generic and built-in function block names and kept as written otherwise.
type Type struct {
	Kind   Kind
	Name   string
	Length int
	Dims   []Dim
	Elem   *Type
	Fields []Field
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case Array:
		dims := make([]string, len(t.Dims))
		for i, d := range t.Dims {
			dims[i] = fmt.Sprintf("%d..%d", d.Lo, d.Hi)
		}
		return fmt.Sprintf("ARRAY[%s] OF %s", strings.Join(dims, ","), t.Elem)
	case Struct:
		fields := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = fmt.Sprintf("%s : %s", f.Name, f.Type)
		}
		return "STRUCT(" + strings.Join(fields, "; ") + ")"
	}
	if t.Length > 0 {
		return t.Name + "[" + strconv.Itoa(t.Length) + "]"
	}
	return t.Name
}

// Field looks up a struct field by name
func (t *Type) Field(name string) *Type {
	if t == nil || t.Kind != Struct {
		return nil
	}
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Type
		}
	}
	return nil
}

// Peel drops the first n dimensions of an array type. Indexing past the last
// dimension continues into the element type when it is itself an array.
func (t *Type) Peel(n int) *Type {
	for n > 0 {
		if t == nil || t.Kind != Array {
			return nil
		}
		if n < len(t.Dims) {
			return &Type{Kind: Array, Dims: t.Dims[n:], Elem: t.Elem}
		}
		n -= len(t.Dims)
		t = t.Elem
	}
	return t
}

// Equal reports structural equality. Scalar names compare case-insensitively.
func Equal(a, b *Type) bool {
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case Array:
		if len(a.Dims) != len(b.Dims) {
			return false
		}
		for i := range a.Dims {
			if a.Dims[i] != b.Dims[i] {
				return false
			}
		}
		return Equal(a.Elem, b.Elem)
	case Struct:
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if a.Fields[i].Name != b.Fields[i].Name || !Equal(a.Fields[i].Type, b.Fields[i].Type) {
				return false
			}
		}
		return true
	}
	return strings.EqualFold(a.Name, b.Name)
}

// Elementary constructs a scalar type for a built-in name
func Elementary(name string) *Type { return &Type{Kind: Scalar, Name: canonicalName(name)} }

var (
	TypeBool        = Elementary("BOOL")
	TypeInt         = Elementary("INT")
	TypeReal        = Elementary("REAL")
	TypeString      = Elementary("STRING")
	TypeTime        = Elementary("TIME")
	TypeDate        = Elementary("DATE")
	TypeTimeOfDay   = Elementary("TIME_OF_DAY")
	TypeDateAndTime = Elementary("DATE_AND_TIME")
)

var elementaryNames = map[string]Family{
	"BOOL":  FamBool,
	"SINT":  FamInt, "INT": FamInt, "DINT": FamInt, "LINT": FamInt,
	"USINT": FamInt, "UINT": FamInt, "UDINT": FamInt, "ULINT": FamInt,
	"BYTE": FamInt, "WORD": FamInt, "DWORD": FamInt, "LWORD": FamInt,
	"REAL": FamReal, "LREAL": FamReal,
	"CHAR": FamChar, "WCHAR": FamChar,
	"STRING": FamString, "WSTRING": FamString,
	"TIME":          FamTime,
	"DATE":          FamDate,
	"TIME_OF_DAY":   FamTimeOfDay,
	"DATE_AND_TIME": FamDateAndTime,
}

var genericNames = map[string]bool{
	"ANY": true, "ANY_DERIVED": true, "ANY_ELEMENTARY": true, "ANY_MAGNITUDE": true,
	"ANY_NUM": true, "ANY_REAL": true, "ANY_INT": true, "ANY_BIT": true,
	"ANY_STRING": true, "ANY_DATE": true,
}

var builtinFBNames = map[string]bool{
	"TON": true, "TOF": true, "TP": true, "CTU": true, "CTD": true, "CTUD": true,
	"R_TRIG": true, "F_TRIG": true, "PID": true, "PI": true, "PD": true,
	"MC_MOVEABSOLUTE": true, "MC_MOVERELATIVE": true, "MC_HOME": true, "MC_STOP": true, "MC_RESET": true,
	"TSEND": true, "TRCV": true, "TCON": true, "TDISCON": true, "READ_VAR": true, "WRITE_VAR": true,
}

func canonicalName(name string) string {
	u := strings.ToUpper(name)
	if _, ok := elementaryNames[u]; ok || genericNames[u] || builtinFBNames[u] {
		return u
	}
	return name
}

// IsElementary reports whether name is an elementary type, ignoring case
func IsElementary(name string) bool {
	_, ok := elementaryNames[strings.ToUpper(name)]
	return ok
}

// IsGeneric reports whether name belongs to the ANY group, ignoring case
func IsGeneric(name string) bool { return genericNames[strings.ToUpper(name)] }

// IsBuiltinFB reports whether name is a standard or vendor function block type
func IsBuiltinFB(name string) bool { return builtinFBNames[strings.ToUpper(name)] }

// IsBuiltin reports whether name is known without any user declarations
func IsBuiltin(name string) bool { return IsElementary(name) || IsGeneric(name) || IsBuiltinFB(name) }
