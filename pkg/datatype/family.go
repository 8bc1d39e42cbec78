package datatype

import "strings"

// Family is the coarse classification used for comparison and assignability
type Family int

const (
	FamNone Family = iota
	FamBool
	FamInt
	FamReal
	FamString
	FamChar
	FamTime
	FamDate
	FamTimeOfDay
	FamDateAndTime
	FamArray
	FamStruct
	FamAny
)

var familyNames = [...]string{
	FamNone:        "",
	FamBool:        "BOOL",
	FamInt:         "INT",
	FamReal:        "REAL",
	FamString:      "STRING",
	FamChar:        "CHAR",
	FamTime:        "TIME",
	FamDate:        "DATE",
	FamTimeOfDay:   "TIME_OF_DAY",
	FamDateAndTime: "DATE_AND_TIME",
	FamArray:       "ARRAY",
	FamStruct:      "STRUCT",
	FamAny:         "ANY",
}

func (f Family) String() string { return familyNames[f] }

// IsTemporal reports whether f is TIME, DATE, TIME_OF_DAY or DATE_AND_TIME
func (f Family) IsTemporal() bool {
	return f == FamTime || f == FamDate || f == FamTimeOfDay || f == FamDateAndTime
}

// FamilyOf classifies t. Function block and user-defined names have no family.
func FamilyOf(t *Type) Family {
	if t == nil {
		return FamNone
	}
	switch t.Kind {
	case Array:
		return FamArray
	case Struct:
		return FamStruct
	}
	u := strings.ToUpper(t.Name)
	if f, ok := elementaryNames[u]; ok {
		return f
	}
	if genericNames[u] {
		return FamAny
	}
	return FamNone
}

// IsNumeric reports whether t is an integer or real type
func IsNumeric(t *Type) bool {
	f := FamilyOf(t)
	return f == FamInt || f == FamReal
}

// Assignable reports whether a value of type actual may be stored in a location
// of type expected. The relation is not symmetric: REAL accepts INT but not the
// other way round.
func Assignable(expected, actual *Type) bool {
	if expected == nil || actual == nil {
		return false
	}
	ef, af := FamilyOf(expected), FamilyOf(actual)
	switch {
	case ef == FamAny:
		return true
	case ef.IsTemporal():
		return ef == af
	case ef == FamChar:
		return af == FamChar && strings.EqualFold(expected.Name, actual.Name)
	case ef == FamString:
		return af == FamString
	case ef == FamInt:
		return af == FamInt
	case ef == FamReal:
		return af == FamReal || af == FamInt
	case ef == FamBool:
		return af == FamBool
	}
	// arrays, structs and function block instances only accept their own type
	return Equal(expected, actual)
}
