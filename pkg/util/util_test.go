package util

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestKindOf(t *testing.T) {
	base := errors.New("boom")
	err := Errorf(Registry, "lookup failed: %w", base)
	if err.Error() != "lookup failed: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, base) {
		t.Error("wrapped error lost")
	}
	wrapped := fmt.Errorf("outer: %w", err)
	if KindOf(wrapped) != Registry {
		t.Errorf("KindOf = %v, want registry", KindOf(wrapped))
	}
	if KindOf(base) != Structural {
		t.Errorf("KindOf(plain) = %v, want structural", KindOf(base))
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.Warn(Diagnostic{File: "a.json", Unit: "program 'P'", Expr: "X + Y", Pos: 4, Len: 1, Msg: "'Y' is not declared", Flag: "bare-word"})
	p.Error(Diagnostic{Unit: "function 'F'", Expr: "Z", Pos: -1, Msg: "bad"})
	p.Error(Diagnostic{Msg: "plain"})
	want := "a.json:program 'P': warning: 'Y' is not declared [-Wbare-word]\n" +
		"  X + Y\n" +
		"      ^\n" +
		"function 'F': error: bad\n" +
		"  Z\n" +
		"error: plain\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}
