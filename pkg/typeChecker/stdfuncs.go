package typeChecker

import (
	"strings"

	"github.com/xplshn/iecst/pkg/datatype"
)

// param is a generic parameter class of a standard function
type param struct {
	name  string
	match func(*datatype.Type) bool
}

func familyParam(name string, fams ...datatype.Family) param {
	return param{name: name, match: func(t *datatype.Type) bool {
		f := datatype.FamilyOf(t)
		for _, want := range fams {
			if f == want {
				return true
			}
		}
		return false
	}}
}

var (
	anyNum    = familyParam("ANY_NUM", datatype.FamInt, datatype.FamReal)
	anyInt    = familyParam("ANY_INT", datatype.FamInt)
	anyString = familyParam("ANY_STRING", datatype.FamString)
	boolParam = familyParam("BOOL", datatype.FamBool)
	anyParam  = param{name: "ANY", match: func(*datatype.Type) bool { return true }}
)

type stdFunc struct {
	params   []param
	variadic bool // the last parameter repeats
	check    func(name string, args []*datatype.Type) error
	result   func(args []*datatype.Type) *datatype.Type
}

func fixed(t *datatype.Type) func([]*datatype.Type) *datatype.Type {
	return func([]*datatype.Type) *datatype.Type { return t }
}

func sameAs(i int) func([]*datatype.Type) *datatype.Type {
	return func(args []*datatype.Type) *datatype.Type { return args[i] }
}

// promoted is REAL when any argument is real, INT otherwise
func promoted(args []*datatype.Type) *datatype.Type {
	for _, a := range args {
		if datatype.FamilyOf(a) == datatype.FamReal {
			return datatype.TypeReal
		}
	}
	return datatype.TypeInt
}

func unaryReal() *stdFunc {
	return &stdFunc{params: []param{anyNum}, result: fixed(datatype.TypeReal)}
}

var stdFuncs = map[string]*stdFunc{
	"ABS":   {params: []param{anyNum}, result: sameAs(0)},
	"SQRT":  unaryReal(),
	"LN":    unaryReal(),
	"LOG":   unaryReal(),
	"EXP":   unaryReal(),
	"SIN":   unaryReal(),
	"COS":   unaryReal(),
	"TAN":   unaryReal(),
	"ASIN":  unaryReal(),
	"ACOS":  unaryReal(),
	"ATAN":  unaryReal(),
	"TRUNC": {params: []param{anyNum}, result: fixed(datatype.TypeInt)},
	"EXPT":  {params: []param{anyNum, anyNum}, result: fixed(datatype.TypeReal)},
	"MIN":   {params: []param{anyNum, anyNum}, variadic: true, result: promoted},
	"MAX":   {params: []param{anyNum, anyNum}, variadic: true, result: promoted},
	"LIMIT": {params: []param{anyNum, anyNum, anyNum}, result: promoted},
	"SEL": {params: []param{boolParam, anyParam, anyParam}, result: sameAs(1),
		check: func(name string, args []*datatype.Type) error {
			if !datatype.Assignable(args[1], args[2]) && !datatype.Assignable(args[2], args[1]) {
				return typeErrorf("Function '%s' arg type mismatch: expected %s, got %s", name, args[1], args[2])
			}
			return nil
		}},
	"LEN":    {params: []param{anyString}, result: fixed(datatype.TypeInt)},
	"CONCAT": {params: []param{anyString, anyString}, variadic: true, result: fixed(datatype.TypeString)},
	"LEFT":   {params: []param{anyString, anyInt}, result: fixed(datatype.TypeString)},
	"RIGHT":  {params: []param{anyString, anyInt}, result: fixed(datatype.TypeString)},
	"MID":    {params: []param{anyString, anyInt, anyInt}, result: fixed(datatype.TypeString)},
	"FIND":   {params: []param{anyString, anyString}, result: fixed(datatype.TypeInt)},
}

// lookupStdFunc finds a standard function by name, including the X_TO_Y
// conversions between elementary types
func lookupStdFunc(name string) (*stdFunc, bool) {
	u := strings.ToUpper(name)
	if f, ok := stdFuncs[u]; ok {
		return f, true
	}
	from, to, ok := strings.Cut(u, "_TO_")
	if !ok || !datatype.IsElementary(from) || !datatype.IsElementary(to) {
		return nil, false
	}
	src := datatype.Elementary(from)
	return &stdFunc{
		params: []param{{name: from, match: func(t *datatype.Type) bool {
			return datatype.FamilyOf(t) == datatype.FamilyOf(src)
		}}},
		result: fixed(datatype.Elementary(to)),
	}, true
}

func (f *stdFunc) apply(name string, args []*datatype.Type) (*datatype.Type, error) {
	switch {
	case f.variadic && len(args) < len(f.params):
		return nil, typeErrorf("Function '%s' arg count mismatch (got %d, expected at least %d)", name, len(args), len(f.params))
	case !f.variadic && len(args) != len(f.params):
		return nil, typeErrorf("Function '%s' arg count mismatch (got %d, expected %d)", name, len(args), len(f.params))
	}
	for i, a := range args {
		p := f.params[min(i, len(f.params)-1)]
		if !p.match(a) {
			return nil, typeErrorf("Function '%s' arg type mismatch: expected %s, got %s", name, p.name, a)
		}
	}
	if f.check != nil {
		if err := f.check(name, args); err != nil {
			return nil, err
		}
	}
	return f.result(args), nil
}
