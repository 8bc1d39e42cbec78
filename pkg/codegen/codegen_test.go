package codegen

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/iecst/pkg/ir"
	"github.com/xplshn/iecst/pkg/util"
)

func mustDecode(t *testing.T, src string) *ir.File {
	t.Helper()
	f, err := ir.Decode([]byte(src))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return f
}

func lines(ls ...string) string { return strings.Join(ls, "\n") }

func TestGenerate(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "program",
			src:  `[{"program":{"name":"P","declarations":[{"type":"VAR","name":"Fan","datatype":"BOOL"}],"statements":[{"type":"assignment","target":"Fan","expression":"TRUE"}]}}]`,
			want: lines(
				"PROGRAM P",
				"VAR",
				"    Fan : BOOL;",
				"END_VAR",
				"",
				"Fan := TRUE;",
				"",
				"END_PROGRAM",
			),
		},
		{
			name: "program sections",
			src: `{"program":{"name":"P","declarations":[{"type":"VAR_INPUT","name":"A","datatype":"INT"},
				{"type":"VAR","name":"B","datatype":"BOOL"},{"name":"C","datatype":"REAL"}],"statements":[]}}`,
			want: lines(
				"PROGRAM P",
				"VAR_INPUT",
				"    A : INT;",
				"END_VAR",
				"VAR",
				"    B : BOOL;",
				"    C : REAL;",
				"END_VAR",
				"",
				"",
				"END_PROGRAM",
			),
		},
		{
			name: "function returns",
			src: `{"function":{"name":"Sign","returnType":"INT","inputs":[{"name":"x","datatype":"INT"}],
				"body":[{"type":"if","condition":"x < 0","then":[{"type":"return","expression":"-1"}]},{"type":"return","expression":"1"}]}}`,
			want: lines(
				"FUNCTION Sign : INT",
				"VAR_INPUT",
				"    x : INT;",
				"END_VAR",
				"",
				"IF x < 0 THEN",
				"    Sign := -1;",
				"    RETURN;",
				"END_IF;",
				"Sign := 1;",
				"RETURN;",
				"",
				"END_FUNCTION",
			),
		},
		{
			name: "program return",
			src: `{"program":{"name":"P","declarations":[{"name":"Run","datatype":"BOOL"}],
				"statements":[{"type":"if","condition":"Run","then":[{"type":"return","expression":"TRUE"}]},{"type":"return","expression":"1"}]}}`,
			want: lines(
				"PROGRAM P",
				"VAR",
				"    Run : BOOL;",
				"END_VAR",
				"",
				"IF Run THEN",
				"    RETURN;",
				"END_IF;",
				"RETURN;",
				"",
				"END_PROGRAM",
			),
		},
		{
			name: "function block",
			src: `{"functionBlock":{"name":"Ctl",
				"inputs":[{"name":"Start","datatype":"BOOL"}],
				"outputs":[{"name":"Done","datatype":"BOOL"}],
				"locals":[{"name":"T1","datatype":"TON"},{"name":"N","datatype":"INT","initialValue":3},
				  {"name":"Mode","datatype":"STRING","initialValue":"Ready?"},{"name":"Pos","datatype":"STRUCT(X : INT; Y : REAL)"}],
				"body":[
				  {"type":"fbCall","name":"T1","inputs":{"IN":"Start","PT":"T#5S"},"outputs":{"Q":"Done"}},
				  {"type":"case","selector":"N","cases":[
				    {"value":1,"statements":[{"type":"assignment","target":"N","expression":"N + 1"}]},
				    {"value":"2, 3","statements":[{"type":"exit"}]}],
				   "else":[{"type":"assignment","target":"N","expression":0}]},
				  {"type":"for","iterator":"i","from":1,"to":10,"by":2,"body":[
				    {"type":"if","condition":"Start && N != 0","then":[{"type":"continue"}],
				     "else":[{"type":"assignment","target":"Done","expression":false}]}]},
				  {"type":"while","condition":"NOT Done","body":[]},
				  {"type":"repeat","body":[{"type":"assignment","target":"N","expression":"N - 1"}],"until":"N <= 0"},
				  {"type":"functionCall","name":"Log","arguments":["N",1.5]},
				  {"type":"jump","label":"L1"}
				]}}`,
			want: lines(
				"FUNCTION_BLOCK Ctl",
				"VAR_INPUT",
				"    Start : BOOL;",
				"END_VAR",
				"VAR_OUTPUT",
				"    Done : BOOL;",
				"END_VAR",
				"VAR",
				"    T1 : TON;",
				"    N : INT := 3;",
				`    Mode : STRING := "Ready?";`,
				"    Pos : STRUCT",
				"        X : INT;",
				"        Y : REAL;",
				"    END_STRUCT;",
				"END_VAR",
				"",
				"T1(IN := Start, PT := T#5S, Q => Done);",
				"CASE N OF",
				"    1:",
				"        N := N + 1;",
				"    2, 3:",
				"        EXIT;",
				"ELSE",
				"    N := 0;",
				"END_CASE;",
				"FOR i := 1 TO 10 BY 2 DO",
				"    IF Start AND N <> 0 THEN",
				"        CONTINUE;",
				"    ELSE",
				"        Done := FALSE;",
				"    END_IF;",
				"END_FOR;",
				"WHILE NOT Done DO",
				"END_WHILE;",
				"REPEAT",
				"    N := N - 1;",
				"UNTIL N <= 0",
				"END_REPEAT;",
				"Log(N, 1.5);",
				"(* Unsupported statement type: jump *)",
				"",
				"END_FUNCTION_BLOCK",
			),
		},
		{
			name: "data types",
			src:  `[{"dataType":{"name":"Point","datatype":"STRUCT(X : INT; Y : INT)"}},{"dataType":{"name":"Speed","datatype":"INT"}}]`,
			want: lines(
				"TYPE Point :",
				"STRUCT",
				"    X : INT;",
				"    Y : INT;",
				"END_STRUCT;",
				"END_TYPE",
				"",
				"TYPE Speed : INT;",
				"END_TYPE",
			),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Generate(mustDecode(t, tt.src))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(strings.Split(tt.want, "\n"), strings.Split(got, "\n")); diff != "" {
				t.Errorf("Generate mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	f := mustDecode(t, `[{"function":{"name":"Twice","returnType":"INT","inputs":[{"name":"x","datatype":"INT"}],"body":[{"type":"return","expression":"x * 2"}]}},
		{"program":{"name":"P","declarations":[{"name":"N","datatype":"INT"}],"statements":[{"type":"assignment","target":"N","expression":"Twice(N)"}]}}]`)
	first, err := Generate(f)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := Generate(f)
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Fatalf("run %d differs:\n%s\nvs\n%s", i, again, first)
		}
	}
	if !strings.Contains(first, "END_FUNCTION\n\nPROGRAM P") {
		t.Errorf("units not separated by one blank line:\n%s", first)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct{ src, want string }{
		{`{"program":{"name":"P","declarations":[],"statements":[{"type":"return","expression":"Run ? 1 : 2"}]}}`,
			"Ternary operator ('?:') not allowed in expressions/conditions"},
		{`{"program":{"name":"P","declarations":[],"statements":[{"type":"assignment","target":"N","expression":"A ? 1 : 2"}]}}`,
			"Ternary operator ('?:') not allowed in expressions/conditions"},
	}
	for _, tt := range tests {
		_, err := Generate(mustDecode(t, tt.src))
		if err == nil || err.Error() != tt.want {
			t.Errorf("Generate = %v, want %q", err, tt.want)
			continue
		}
		if util.KindOf(err) != util.Generator {
			t.Errorf("kind = %v, want generator", util.KindOf(err))
		}
	}
}

func TestValueToST(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, "NULL"},
		{true, "TRUE"},
		{json.Number("42"), "42"},
		{2.5, "2.5"},
		{"T#5S", "T#5S"},
		{"tod#08:00:00", "tod#08:00:00"},
		{"Motor.Speed", "Motor.Speed"},
		{"Data[3].Value", "Data[3].Value"},
		{"A + B", "A + B"},
		{"'quoted'", "'quoted'"},
		{"it's", `"it's"`},
		{`say "hi"`, `say "hi"`},
		{`"hi"`, `"hi"`},
		{`x"y`, `"x$"y"`},
		{[]interface{}{json.Number("1"), true}, "[1, TRUE]"},
		{map[string]interface{}{"Y": 2.0, "X": 1.0}, "(X := 1, Y := 2)"},
	}
	for _, tt := range tests {
		if got := ValueToST(tt.in); got != tt.want {
			t.Errorf("ValueToST(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIRBackend(t *testing.T) {
	f := mustDecode(t, `{"name":"P","declarations":[{"name":"Fan","datatype":"BOOL"}],"statements":[{"type":"if","condition":"Fan","then":[{"type":"exit"}]}]}`)
	buf, err := Backends["ir"]().Generate(f)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "[\n  {\n    \"program\": {") {
		t.Errorf("IR output not wrapped and indented:\n%s", buf)
	}
	again := mustDecode(t, buf.String())
	if diff := cmp.Diff(f, again); diff != "" {
		t.Errorf("IR round trip mismatch (-want +got):\n%s", diff)
	}
}
