package datatype

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustParse(t *testing.T, text string) *Type {
	t.Helper()
	typ, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q): %v", text, err)
	}
	return typ
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want *Type
	}{
		{"BOOL", &Type{Kind: Scalar, Name: "BOOL"}},
		{"int", &Type{Kind: Scalar, Name: "INT"}},
		{"MyFB", &Type{Kind: Scalar, Name: "MyFB"}},
		{"STRING[80]", &Type{Kind: Scalar, Name: "STRING", Length: 80}},
		{"ARRAY[1..10] OF REAL", &Type{Kind: Array, Dims: []Dim{{1, 10}}, Elem: &Type{Kind: Scalar, Name: "REAL"}}},
		{"array[0..2, -1..1] of ARRAY[1..3] OF wstring[4]", &Type{
			Kind: Array,
			Dims: []Dim{{0, 2}, {-1, 1}},
			Elem: &Type{Kind: Array, Dims: []Dim{{1, 3}}, Elem: &Type{Kind: Scalar, Name: "WSTRING", Length: 4}},
		}},
		{"STRUCT(X : INT; Y : LREAL)", &Type{Kind: Struct, Fields: []Field{
			{Name: "X", Type: &Type{Kind: Scalar, Name: "INT"}},
			{Name: "Y", Type: &Type{Kind: Scalar, Name: "LREAL"}},
		}}},
		{"STRUCT(Name : STRING[20]; Pos : STRUCT(X : INT; Y : INT);)", &Type{Kind: Struct, Fields: []Field{
			{Name: "Name", Type: &Type{Kind: Scalar, Name: "STRING", Length: 20}},
			{Name: "Pos", Type: &Type{Kind: Struct, Fields: []Field{
				{Name: "X", Type: &Type{Kind: Scalar, Name: "INT"}},
				{Name: "Y", Type: &Type{Kind: Scalar, Name: "INT"}},
			}}},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := mustParse(t, tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ARRAY[1..] OF INT", "Invalid ARRAY syntax: ARRAY[1..] OF INT"},
		{"ARRAY[5..1] OF INT", "Invalid ARRAY syntax: ARRAY[5..1] OF INT"},
		{"ARRAY[1..3] INT", "Invalid ARRAY syntax: ARRAY[1..3] INT"},
		{"STRUCT(X : INT; Y INT)", "Invalid STRUCT field: 'Y INT'"},
		{"STRUCT(X INT; Y : INT)", "Invalid STRUCT field: 'X INT'"},
		{"STRUCT(X : INT; X : BOOL)", "Invalid STRUCT field: 'X' declared twice"},
		{"12abc", "Unknown datatype 12abc"},
		{"", "Unknown datatype "},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := Parse(tt.in)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tt.in)
			}
			if err.Error() != tt.want {
				t.Errorf("Parse(%q) error = %q, want %q", tt.in, err.Error(), tt.want)
			}
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, in := range []string{
		"BOOL",
		"STRING[20]",
		"ARRAY[1..10] OF INT",
		"ARRAY[0..2,1..3] OF STRUCT(A : BOOL; B : TIME)",
	} {
		got := mustParse(t, in).String()
		if got != in {
			t.Errorf("String() = %q, want %q", got, in)
		}
	}
}

func TestValidate(t *testing.T) {
	known := NewKnown()
	known.Add("Motor")

	tests := []struct {
		in      string
		wantErr string
	}{
		{"BOOL", ""},
		{"any_num", ""},
		{"ton", ""},
		{"Motor", ""},
		{"motor", "Unknown datatype motor"},
		{"WSTRING[10]", ""},
		{"INT[10]", "Unknown datatype INT[10]"},
		{"ARRAY[1..2] OF Motor", ""},
		{"ARRAY[1..2] OF Pump", "Unknown datatype Pump"},
		{"STRUCT(A : INT; B : Pump)", "STRUCT field type error: Unknown datatype Pump"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseAndValidate(tt.in, known)
			got := ""
			if err != nil {
				got = err.Error()
			}
			if got != tt.wantErr {
				t.Errorf("ParseAndValidate(%q) error = %q, want %q", tt.in, got, tt.wantErr)
			}
		})
	}
}

func TestAssignable(t *testing.T) {
	tests := []struct {
		expected, actual string
		want             bool
	}{
		{"REAL", "INT", true},
		{"INT", "REAL", false},
		{"LREAL", "DINT", true},
		{"DINT", "BYTE", true},
		{"ANY", "TIME", true},
		{"ANY_NUM", "STRING", true},
		{"STRING[10]", "STRING", true},
		{"STRING", "WSTRING", true},
		{"CHAR", "CHAR", true},
		{"CHAR", "WCHAR", false},
		{"TIME", "TIME", true},
		{"TIME", "INT", false},
		{"DATE", "DATE_AND_TIME", false},
		{"BOOL", "INT", false},
		{"INT", "BOOL", false},
		{"TON", "TON", true},
		{"TON", "TOF", false},
		{"ARRAY[1..3] OF INT", "ARRAY[1..3] OF INT", true},
		{"ARRAY[1..3] OF INT", "ARRAY[1..4] OF INT", false},
		{"INT", "ANY_INT", false},
	}
	for _, tt := range tests {
		t.Run(tt.expected+"<-"+tt.actual, func(t *testing.T) {
			got := Assignable(mustParse(t, tt.expected), mustParse(t, tt.actual))
			if got != tt.want {
				t.Errorf("Assignable(%s, %s) = %v, want %v", tt.expected, tt.actual, got, tt.want)
			}
		})
	}
}

func TestPeel(t *testing.T) {
	arr := mustParse(t, "ARRAY[1..3, 1..4] OF ARRAY[0..1] OF BOOL")

	if got := arr.Peel(1); got == nil || got.String() != "ARRAY[1..4] OF ARRAY[0..1] OF BOOL" {
		t.Errorf("Peel(1) = %v", got)
	}
	if got := arr.Peel(2); got == nil || got.String() != "ARRAY[0..1] OF BOOL" {
		t.Errorf("Peel(2) = %v", got)
	}
	if got := arr.Peel(3); got == nil || got.String() != "BOOL" {
		t.Errorf("Peel(3) = %v", got)
	}
	if got := arr.Peel(4); got != nil {
		t.Errorf("Peel(4) = %v, want nil", got)
	}
}

func TestBuiltinPins(t *testing.T) {
	p, ok := BuiltinPins("ctud")
	if !ok {
		t.Fatal("no pin table for CTUD")
	}
	if in := p.Input("PV"); in == nil || in.Type.Name != "INT" {
		t.Errorf("CTUD.PV = %v", in)
	}
	if out := p.Output("QD"); out == nil || out.Type.Name != "BOOL" {
		t.Errorf("CTUD.QD = %v", out)
	}
	if p.Input("Q") != nil {
		t.Errorf("CTUD has no input Q")
	}
	if _, ok := BuiltinPins("PID"); ok {
		t.Errorf("PID has no pin table")
	}
}
