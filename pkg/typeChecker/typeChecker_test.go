package typeChecker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/iecst/pkg/config"
	"github.com/xplshn/iecst/pkg/ir"
	"github.com/xplshn/iecst/pkg/registry"
	"github.com/xplshn/iecst/pkg/util"
)

const devices = `[
  {"deviceName":"Fan","dataType":"BOOL"},
  {"deviceName":"TankLevel","dataType":"REAL"},
  {"deviceName":"PumpSpeed","dataType":"INT"},
  {"deviceName":"Timer1","dataType":"TIME"}
]`

func mustRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.Load(strings.NewReader(devices))
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func mustDecode(t *testing.T, src string) *ir.File {
	t.Helper()
	f, err := ir.Decode([]byte(src))
	if err != nil {
		t.Fatalf("Decode(%s): %v", src, err)
	}
	return f
}

func assign(target, expr string) string {
	return fmt.Sprintf(`{"type":"assignment","target":%q,"expression":%q}`, target, expr)
}

func ifStmt(cond string) string {
	return fmt.Sprintf(`{"type":"if","condition":%q,"then":[]}`, cond)
}

func program(decls, stmts string) string {
	return fmt.Sprintf(`{"program":{"name":"P","declarations":[%s],"statements":[%s]}}`, decls, stmts)
}

func decl(name, typ string) string {
	return fmt.Sprintf(`{"type":"VAR","name":%q,"datatype":%q}`, name, typ)
}

const ctlLocals = `{"name":"Run","datatype":"BOOL"},{"name":"N","datatype":"INT"},
{"name":"Level","datatype":"REAL"},{"name":"Mode","datatype":"STRING"},
{"name":"Delay","datatype":"TIME"},{"name":"T1","datatype":"TON"},
{"name":"Arr","datatype":"ARRAY[1..10] OF INT"},{"name":"Grid","datatype":"ARRAY[1..3, 1..3] OF REAL"},
{"name":"P","datatype":"Point"},{"name":"Ctr","datatype":"PID"},
{"name":"Day","datatype":"DATE"},{"name":"Shift","datatype":"TIME_OF_DAY"},{"name":"Stamp","datatype":"DATE_AND_TIME"}`

// ctl wraps body in a function block that sees a Point type and a Twice function
func ctl(body ...string) string {
	return fmt.Sprintf(`[
  {"dataType":{"name":"Point","datatype":"STRUCT(X : INT; Y : INT)"}},
  {"function":{"name":"Twice","returnType":"INT","inputs":[{"name":"x","datatype":"INT"}],
   "body":[{"type":"return","expression":"x * 2"}]}},
  {"functionBlock":{"name":"Ctl","locals":[%s],"body":[%s]}}
]`, ctlLocals, strings.Join(body, ","))
}

func TestScenarios(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"assign literal", program(decl("Fan", "BOOL"), assign("Fan", "TRUE")), SuccessMessage},
		{"registry type mismatch", program(decl("Fan", "INT"), assign("Fan", "1")), "Type mismatch for 'Fan': DB has BOOL, JSON declares INT"},
		{"registry type case", program(decl("Fan", "bool"), ""), SuccessMessage},
		{"undeclared target", program(decl("Fan", "BOOL"), assign("Speed", "5")), "Variable Speed not declared"},
		{"undefined function", program(decl("Fan", "BOOL"), `{"type":"functionCall","name":"Foo","arguments":[]}`), "Function 'Foo' not defined"},
		{"time against int", program(decl("Timer1", "TIME"), ifStmt("Timer1 = 5")), "TIME comparison requires a TIME literal (e.g., T#1S) or TIME-typed expression"},
		{"time against time", program(decl("Timer1", "TIME"), ifStmt("Timer1 >= T#1S")), SuccessMessage},
		{"unknown device", program(decl("Conveyor", "BOOL"), ""), "Variable 'Conveyor' not found in device specifications"},
		{"unknown device suggestion", program(decl("Pump", "INT"), ""), "Variable 'Pump' not found in device specifications (did you mean 'PumpSpeed'?)"},
		{"real accepts int", program(decl("TankLevel", "REAL")+","+decl("PumpSpeed", "INT"), assign("TankLevel", "PumpSpeed")), SuccessMessage},
		{"int rejects real", program(decl("TankLevel", "REAL")+","+decl("PumpSpeed", "INT"), assign("PumpSpeed", "TankLevel")),
			"Type mismatch: expected INT, got REAL in expression 'TankLevel'"},
	}
	reg := mustRegistry(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, msg := Validate(mustDecode(t, tt.src), reg, nil)
			if msg != tt.want {
				t.Errorf("Validate = %q, want %q", msg, tt.want)
			}
			if ok != (tt.want == SuccessMessage) {
				t.Errorf("Validate ok = %v for %q", ok, msg)
			}
		})
	}
}

func TestEmptyRegistry(t *testing.T) {
	f := mustDecode(t, program(decl("Fan", "BOOL"), ""))
	for _, reg := range []*registry.Registry{nil, {}} {
		err := NewTypeChecker(nil, reg).Check(f)
		if err == nil || err.Error() != "No device variables found in DB. Cannot validate." {
			t.Fatalf("Check = %v", err)
		}
		if util.KindOf(err) != util.Registry {
			t.Errorf("kind = %v, want registry", util.KindOf(err))
		}
	}

	// units without programs need no registry
	if err := NewTypeChecker(nil, nil).Check(mustDecode(t, ctl())); err != nil {
		t.Errorf("Check without programs = %v", err)
	}
}

func TestStatements(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   string
		prefix bool
	}{
		{"widening", assign("Level", "N"), "", false},
		{"narrowing", assign("N", "Level"), "Type mismatch: expected INT, got REAL in expression 'Level'", false},
		{"mod", assign("N", "N MOD 3 + 1"), "", false},
		{"logic", assign("Run", "N > 1 AND Level < 2.5"), "", false},
		{"string concat", assign("Mode", "'a' + 'b'"), "", false},
		{"struct field", assign("P.X", "5"), "", false},
		{"missing field", assign("P.Z", "5"), "Cannot resolve target type for 'P.Z'", false},
		{"array element", assign("Arr[2]", "N"), "", false},
		{"array element mismatch", assign("Arr[2]", "Level"), "Type mismatch: expected INT, got REAL in expression 'Level'", false},
		{"multi index", assign("Grid[1, 2]", "N"), "", false},
		{"partial index", assign("Grid[1]", "1.0"), "Type mismatch: expected ARRAY[1..3] OF REAL, got REAL in expression '1.0'", false},
		{"bool index", assign("Arr[TRUE]", "1"), "Array index 'TRUE' must be an integer, got BOOL", false},
		{"fb output", assign("Run", "T1.Q"), "", false},
		{"fb elapsed", assign("Delay", "T1.ET"), "", false},
		{"user call", assign("N", "Twice(N)"), "", false},
		{"user call count", assign("N", "Twice(1, 2)"), "Function 'Twice' arg count mismatch (got 2, expected 1)", false},
		{"user call type", assign("N", "Twice(2.5)"), "Function 'Twice' arg type mismatch: expected INT, got REAL", false},
		{"std call unresolved", assign("Level", "SQRT(Level)"), "Unresolvable expression type for 'SQRT(Level)'", false},
		{"unknown call", assign("N", "Unknown(1)"), "Unresolvable expression type for 'Unknown(1)'", false},
		{"not on int", assign("Run", "NOT N"), "Unresolvable expression type for 'NOT N'", false},
		{"bare word", assign("Mode", "Auto"), "", false},
		{"bare word into int", assign("N", "Auto"), "Type mismatch: expected INT, got STRING in expression 'Auto'", false},
		{"undeclared chain", assign("N", "Ghost.X"), "Unresolvable expression type for 'Ghost.X'", false},
		{"ternary", assign("N", "Run ? 1 : 2"), "Ternary operator ('?:') not allowed in expressions/conditions", false},
		{"syntax", assign("N", "1 +"), "Invalid expression '1 +'", true},

		{"time cond", ifStmt("Delay = 5"), "TIME comparison requires a TIME literal (e.g., T#1S) or TIME-typed expression", false},
		{"time cond literal", ifStmt("Delay > T#5S"), "", false},
		{"time cond reversed", ifStmt("5 = Delay"), "TIME comparison requires a TIME literal (e.g., T#1S) or TIME-typed expression", false},
		{"date cond", ifStmt("Day = 5"), "DATE comparison requires a DATE literal (e.g., D#2024-01-01) or DATE-typed expression", false},
		{"tod cond", ifStmt("Shift > 5"), "TIME_OF_DAY comparison requires a TIME_OF_DAY literal (e.g., TOD#08:00:00) or TIME_OF_DAY-typed expression", false},
		{"dt cond", ifStmt("1 < Stamp"), "DATE_AND_TIME comparison requires a DATE_AND_TIME literal (e.g., DT#2024-01-01-08:00:00) or DATE_AND_TIME-typed expression", false},
		{"string cond", ifStmt("Mode = 5"), "STRING comparison requires a quoted string literal", false},
		{"string cond literal", ifStmt("Mode = 'auto'"), "", false},
		{"bool against int", ifStmt("Run = 1"), "Incompatible types for comparison: BOOL = INT", false},
		{"non bool cond", ifStmt("N"), "Condition must be BOOL", false},
		{"unresolved cond", ifStmt("Ghost.X > 1"), "Cannot resolve types in comparison 'Ghost.X > 1'", false},
		{"compound cond", ifStmt("Run AND N >= 2.5"), "", false},
		{"compound string cond", ifStmt("Run OR Mode = 1"), "STRING comparison requires a quoted string literal", false},
		{"elsif cond", `{"type":"if","condition":"Run","then":[],"elsif":[{"condition":"N","then":[]}]}`, "Condition must be BOOL", false},

		{"case selector", `{"type":"case","selector":"Ghost.X","cases":[]}`, "Case selector has unknown type", false},
		{"case body", `{"type":"case","selector":"N","cases":[{"value":1,"statements":[` + assign("N", "Level") + `]}]}`,
			"Type mismatch: expected INT, got REAL in expression 'Level'", false},
		{"for", `{"type":"for","iterator":"i","from":1,"to":10,"body":[` + assign("Arr[i]", "i") + `]}`, "", false},
		{"for scope", `{"type":"for","iterator":"i","from":1,"to":10,"body":[]},` + assign("i", "1"), "Variable i not declared", false},
		{"for iterator", `{"type":"for","iterator":"1x","from":1,"to":10,"body":[]}`, "Invalid FOR iterator '1x'", false},
		{"while", `{"type":"while","condition":"N","body":[]}`, "Condition must be BOOL", false},
		{"repeat", `{"type":"repeat","body":[` + assign("N", "N + 1") + `],"until":"N > 3"}`, "", false},

		{"fbCall", `{"type":"fbCall","name":"T1","inputs":{"IN":"Run","PT":"T#5S"},"outputs":{"Q":"Run","ET":"Delay"}}`, "", false},
		{"fbCall input type", `{"type":"fbCall","name":"T1","inputs":{"PT":"5"}}`, "fbCall 'T1': input 'PT' expects TIME, got INT", false},
		{"fbCall unknown input", `{"type":"fbCall","name":"T1","inputs":{"XX":"Run"}}`, "fbCall 'T1': unknown input 'XX' for FB 'TON'", false},
		{"fbCall undeclared input", `{"type":"fbCall","name":"T1","inputs":{"IN":"Ghost.X"}}`, "fbCall 'T1': input 'IN' maps to undeclared 'Ghost.X'", false},
		{"fbCall output type", `{"type":"fbCall","name":"T1","outputs":{"Q":"N"}}`, "fbCall 'T1': output 'Q' of type BOOL not assignable to INT", false},
		{"fbCall unknown output", `{"type":"fbCall","name":"T1","outputs":{"QQ":"Run"}}`, "fbCall 'T1': unknown output 'QQ' for FB 'TON'", false},
		{"fbCall undeclared output", `{"type":"fbCall","name":"T1","outputs":{"Q":"Ghost"}}`, "fbCall 'T1': output 'Q' maps to undeclared 'Ghost'", false},
		{"fbCall unknown instance", `{"type":"fbCall","name":"T9"}`, "fbCall instance 'T9' is not declared and no FB type named 'T9' found", false},
		{"fbCall non fb", `{"type":"fbCall","name":"Run"}`, "fbCall 'Run': 'Run' is not a function block instance (type BOOL)", false},
		{"fbCall no signature", `{"type":"fbCall","name":"Ctr","inputs":{"SP":"Level"},"outputs":{"OUT":"Level"}}`, "", false},
		{"fbCall no signature undeclared", `{"type":"fbCall","name":"Ctr","inputs":{"SP":"Ghost"}}`, "fbCall 'Ctr': input 'SP' maps to undeclared 'Ghost'", false},

		{"functionCall", `{"type":"functionCall","name":"Twice","arguments":["N"]}`, "", false},
		{"functionCall undeclared", `{"type":"functionCall","name":"Twice","arguments":["Ghost.X"]}`, "Function 'Twice' arg 'Ghost.X' not declared", false},
		{"return value in fb", `{"type":"return","expression":"N + 1"}`, "", false},
		{"return value in fb unresolved", `{"type":"return","expression":"Ghost.X"}`, "", false},
		{"return value in fb ternary", `{"type":"return","expression":"Run ? 1 : 2"}`, "Ternary operator ('?:') not allowed in expressions/conditions", false},
		{"bare return", `{"type":"return"}`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewTypeChecker(nil, nil).Check(mustDecode(t, ctl(tt.body)))
			switch {
			case tt.want == "" && err != nil:
				t.Fatalf("Check = %v, want success", err)
			case tt.want == "":
				return
			case err == nil:
				t.Fatalf("Check succeeded, want %q", tt.want)
			case tt.prefix && !strings.HasPrefix(err.Error(), tt.want):
				t.Errorf("Check = %q, want prefix %q", err, tt.want)
			case !tt.prefix && err.Error() != tt.want:
				t.Errorf("Check = %q, want %q", err, tt.want)
			}
			if util.KindOf(err) != util.Type {
				t.Errorf("kind = %v, want type", util.KindOf(err))
			}
		})
	}
}

func TestStdFuncs(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"sqrt", assign("Level", "SQRT(Level)"), ""},
		{"sqrt into int", assign("N", "SQRT(4)"), "Type mismatch: expected INT, got REAL in expression 'SQRT(4)'"},
		{"conversion", assign("N", "REAL_TO_INT(Level)"), ""},
		{"conversion source", assign("Level", "INT_TO_REAL(Level)"), "Function 'INT_TO_REAL' arg type mismatch: expected INT, got REAL"},
		{"variadic max", assign("N", "MAX(1, 2, N)"), ""},
		{"abs", assign("N", "ABS(N)"), ""},
		{"unknown call", assign("N", "Unknown(1)"), "Unresolvable expression type for 'Unknown(1)'"},
	}
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatStdFuncs, true)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewTypeChecker(cfg, nil).Check(mustDecode(t, ctl(tt.body)))
			got := ""
			if err != nil {
				got = err.Error()
			}
			if got != tt.want {
				t.Errorf("Check = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnits(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"result variable", `{"function":{"name":"Inc","returnType":"INT","inputs":[{"name":"x","datatype":"INT"}],
			"body":[` + assign("Inc", "x + 1") + `]}}`, ""},
		{"nested return", `{"function":{"name":"Sign","returnType":"INT","inputs":[{"name":"x","datatype":"INT"}],
			"body":[{"type":"if","condition":"x < 0","then":[{"type":"return","expression":"-1"}]},{"type":"return","expression":"1"}]}}`, ""},
		{"return mismatch", `{"function":{"name":"F","returnType":"INT","body":[{"type":"return","expression":"TRUE"}]}}`,
			"Return type mismatch: expected INT, got BOOL"},
		{"locals in scope", `{"function":{"name":"F","returnType":"REAL","locals":[{"name":"t","datatype":"REAL"}],
			"body":[` + assign("t", "2.5") + `,{"type":"return","expression":"t"}]}}`, ""},
		{"return type", `{"function":{"name":"F","returnType":"NUMBER","body":[]}}`, "Function 'F' type error: Unknown datatype NUMBER"},
		{"input type", `{"function":{"name":"F","returnType":"INT","inputs":[{"name":"x","datatype":"Motor"}],"body":[]}}`,
			"Function 'F' type error: Unknown datatype Motor"},
		{"fb local type", `{"functionBlock":{"name":"Ctl","locals":[{"name":"M","datatype":"Motor"}],"body":[]}}`,
			"FunctionBlock 'Ctl' local 'M': Unknown datatype Motor"},
		{"fb duplicate", `{"functionBlock":{"name":"Ctl","inputs":[{"name":"A","datatype":"INT"}],"outputs":[{"name":"A","datatype":"INT"}],"body":[]}}`,
			"FunctionBlock 'Ctl' declares 'A' twice"},
		{"user fb ports", `[{"functionBlock":{"name":"Valve","inputs":[{"name":"Open","datatype":"BOOL"}],"outputs":[{"name":"Pos","datatype":"REAL"}],"body":[]}},
			{"functionBlock":{"name":"Ctl","locals":[{"name":"V","datatype":"Valve"},{"name":"L","datatype":"REAL"}],
			"body":[{"type":"fbCall","name":"V","inputs":{"Open":"TRUE"},"outputs":{"Pos":"L"}},` + assign("L", "V.Pos") + `]}}]`, ""},
		{"user fb unknown port", `[{"functionBlock":{"name":"Valve","inputs":[{"name":"Open","datatype":"BOOL"}],"body":[]}},
			{"functionBlock":{"name":"Ctl","locals":[{"name":"V","datatype":"Valve"}],"body":[{"type":"fbCall","name":"V","inputs":{"Close":"TRUE"}}]}}]`,
			"fbCall 'V': unknown input 'Close' for FB 'Valve'"},
		{"fb type as instance", `[{"functionBlock":{"name":"Valve","inputs":[{"name":"Open","datatype":"BOOL"}],"body":[]}},
			{"functionBlock":{"name":"Ctl","body":[{"type":"fbCall","name":"Valve","inputs":{"Open":"TRUE"}}]}}]`, ""},
		{"forward reference", `[{"functionBlock":{"name":"Ctl","locals":[{"name":"N","datatype":"INT"}],"body":[` + assign("N", "Later(N)") + `]}},
			{"function":{"name":"Later","returnType":"INT","inputs":[{"name":"v","datatype":"INT"}],"body":[]}}]`, ""},
		{"alias", `[{"dataType":{"name":"Speed","datatype":"INT"}},
			{"functionBlock":{"name":"Ctl","locals":[{"name":"S","datatype":"Speed"}],"body":[` + assign("S", "S + 1") + `,` + ifStmt("S > 3") + `]}}]`, ""},
		{"recursive type", `{"dataType":{"name":"Node","datatype":"STRUCT(V : INT; Next : Node)"}}`, "DataType 'Node' is defined in terms of itself"},
		{"bad data type", `{"dataType":{"name":"Pair","datatype":"STRUCT(A : INT; B : Motor)"}}`, "DataType 'Pair' type error: STRUCT field type error: Unknown datatype Motor"},
		{"builtin redefined", `{"dataType":{"name":"INT","datatype":"REAL"}}`, "DataType 'INT' redefines a built-in type"},
		{"duplicate unit", `[{"functionBlock":{"name":"Ctl","body":[]}},{"function":{"name":"Ctl","returnType":"INT","body":[]}}]`,
			"Duplicate definition of 'Ctl' (functionBlock and function)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewTypeChecker(nil, nil).Check(mustDecode(t, tt.src))
			if tt.want == "" {
				if err != nil {
					t.Fatalf("Check = %v, want success", err)
				}
				return
			}
			if err == nil || err.Error() != tt.want {
				t.Errorf("Check = %v, want %q", err, tt.want)
			}
		})
	}
}

func warningFlags(ws []util.Diagnostic) []string {
	var flags []string
	for _, w := range ws {
		flags = append(flags, w.Flag)
	}
	return flags
}

func TestWarnings(t *testing.T) {
	f := mustDecode(t, ctl(
		assign("Mode", "Auto"),
		assign("Mode", "Auto"),
		`{"type":"exit"}`,
		`{"type":"while","condition":"Run","body":[{"type":"continue"}]}`,
		`{"type":"jump","label":"L1"}`,
		`{"type":"for","iterator":"N","from":1,"to":3,"body":[]}`,
		`{"type":"fbCall","name":"Ctr","inputs":{"SP":"Level"}}`,
	))

	tc := NewTypeChecker(nil, nil)
	if err := tc.Check(f); err != nil {
		t.Fatal(err)
	}
	want := []string{"bare-word", "loop-control", "unknown-stmt"}
	if diff := cmp.Diff(want, warningFlags(tc.Warnings())); diff != "" {
		t.Errorf("default warnings mismatch (-want +got):\n%s", diff)
	}
	bare := tc.Warnings()[0]
	if bare.Expr != "Auto" || bare.Pos != 0 || bare.Len != 4 || bare.Unit != "functionBlock 'Ctl'" {
		t.Errorf("bare-word diagnostic = %+v", bare)
	}

	cfg := config.NewConfig()
	cfg.ProcessFlags([]string{"-Wshadow", "-Wunknown-fb", "-Wno-bare-word"})
	tc = NewTypeChecker(cfg, nil)
	if err := tc.Check(f); err != nil {
		t.Fatal(err)
	}
	want = []string{"loop-control", "unknown-stmt", "shadow", "unknown-fb"}
	if diff := cmp.Diff(want, warningFlags(tc.Warnings())); diff != "" {
		t.Errorf("configured warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestFeatures(t *testing.T) {
	tests := []struct {
		name    string
		feature config.Feature
		body    string
		on, off string
	}{
		{"std-funcs", config.FeatStdFuncs, assign("N", "ABS(N)"), "", "Unresolvable expression type for 'ABS(N)'"},
		{"bare-word-string", config.FeatBareWordString, assign("Mode", "Auto"), "", "Unresolvable expression type for 'Auto'"},
		{"strict-conditions", config.FeatStrictConditions, ifStmt("Delay = 5"),
			"TIME comparison requires a TIME literal (e.g., T#1S) or TIME-typed expression", "Condition must be BOOL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := mustDecode(t, ctl(tt.body))
			for _, enabled := range []bool{true, false} {
				cfg := config.NewConfig()
				cfg.SetFeature(tt.feature, enabled)
				want := tt.off
				if enabled {
					want = tt.on
				}
				err := NewTypeChecker(cfg, nil).Check(f)
				got := ""
				if err != nil {
					got = err.Error()
				}
				if got != want {
					t.Errorf("enabled=%v: Check = %q, want %q", enabled, got, want)
				}
			}
		})
	}

	// without the registry feature, declarations stand on their own
	cfg := config.NewConfig()
	if err := cfg.ApplyProfile("lenient"); err != nil {
		t.Fatal(err)
	}
	f := mustDecode(t, program(decl("Conveyor", "BOOL"), assign("Conveyor", "TRUE")))
	if ok, msg := Validate(f, nil, cfg); !ok {
		t.Errorf("lenient Validate = %q", msg)
	}
}

func TestCheckIsRepeatable(t *testing.T) {
	reg := mustRegistry(t)
	f := mustDecode(t, `[`+program(decl("Fan", "BOOL"), assign("Fan", "Mode"))+`,`+ctl(assign("N", "Level"))[1:])
	tc := NewTypeChecker(nil, reg)
	first := tc.Check(f)
	firstWarnings := tc.Warnings()
	second := tc.Check(f)
	if first == nil || second == nil || first.Error() != second.Error() {
		t.Errorf("Check results differ: %v vs %v", first, second)
	}
	if diff := cmp.Diff(firstWarnings, tc.Warnings()); diff != "" {
		t.Errorf("warnings differ between runs (-first +second):\n%s", diff)
	}
}

func TestDiagnose(t *testing.T) {
	f := mustDecode(t, program(decl("TankLevel", "REAL")+","+decl("PumpSpeed", "INT"), assign("PumpSpeed", "TankLevel")))
	tc := NewTypeChecker(nil, mustRegistry(t))
	err := tc.Check(f)
	if err == nil {
		t.Fatal("Check succeeded")
	}
	want := util.Diagnostic{Unit: "program 'P'", Expr: "TankLevel", Pos: -1, Msg: err.Error()}
	if diff := cmp.Diff(want, tc.Diagnose(err)); diff != "" {
		t.Errorf("Diagnose mismatch (-want +got):\n%s", diff)
	}
}
