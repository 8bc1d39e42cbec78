// Package ir defines the typed JSON intermediate representation consumed by
// the type checker and the code generator. A File is a sequence of units;
// each unit owns its declarations and statement tree.
package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type File struct {
	Units []Unit
}

// Append adds the units of other to f, keeping their order
func (f *File) Append(other *File) { f.Units = append(f.Units, other.Units...) }

// Unit is one of *Program, *FunctionBlock, *Function or *DataType
type Unit interface {
	UnitName() string
	UnitKey() string
}

type Program struct {
	Name         string   `json:"name"`
	Declarations []Decl   `json:"declarations"`
	Statements   StmtList `json:"statements"`
}

type FunctionBlock struct {
	Name    string   `json:"name"`
	Inputs  []Decl   `json:"inputs,omitempty"`
	Outputs []Decl   `json:"outputs,omitempty"`
	Locals  []Decl   `json:"locals,omitempty"`
	Body    StmtList `json:"body"`
}

type Function struct {
	Name       string   `json:"name"`
	ReturnType string   `json:"returnType"`
	Inputs     []Decl   `json:"inputs,omitempty"`
	Locals     []Decl   `json:"locals,omitempty"`
	Body       StmtList `json:"body"`
}

// DataType declares a named type, emitted as TYPE ... END_TYPE
type DataType struct {
	Name     string `json:"name"`
	Datatype string `json:"datatype"`
}

func (p *Program) UnitName() string       { return p.Name }
func (fb *FunctionBlock) UnitName() string { return fb.Name }
func (f *Function) UnitName() string       { return f.Name }
func (d *DataType) UnitName() string       { return d.Name }

func (p *Program) UnitKey() string        { return "program" }
func (fb *FunctionBlock) UnitKey() string { return "functionBlock" }
func (f *Function) UnitKey() string       { return "function" }
func (d *DataType) UnitKey() string       { return "dataType" }

// Decl is a variable declaration. Section is the optional VAR section tag
// ("VAR", "VAR_INPUT"...). InitialValue holds a string, bool, json.Number or nil.
type Decl struct {
	Section      string      `json:"type,omitempty"`
	Name         string      `json:"name"`
	Datatype     string      `json:"datatype"`
	InitialValue interface{} `json:"initialValue,omitempty"`
}

// Expr is an expression in source form. JSON numbers, booleans and arrays
// are accepted and kept as text.
type Expr string

func (e *Expr) UnmarshalJSON(b []byte) error {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	*e = Expr(exprText(v))
	return nil
}

func exprText(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case json.Number:
		return x.String()
	case []interface{}:
		parts := make([]string, len(x))
		for i, p := range x {
			parts[i] = exprText(p)
		}
		return strings.Join(parts, ", ")
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func (e Expr) String() string { return string(e) }

// Port binds a function block pin to an expression or output target
type Port struct {
	Name  string
	Value Expr
}

// PortMap is a JSON object whose key order is preserved
type PortMap []Port

func (m *PortMap) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("port bindings must be an object, got %s", string(b))
	}
	var out PortMap
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var val Expr
		if err := val.UnmarshalJSON(raw); err != nil {
			return err
		}
		out = append(out, Port{Name: keyTok.(string), Value: val})
	}
	*m = out
	return nil
}

func (m PortMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(p.Name)
		v, _ := json.Marshal(string(p.Value))
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Stmt is a statement node. Kind returns the IR "type" tag.
type Stmt interface {
	Kind() string
}

type Assignment struct {
	Target     Expr `json:"target"`
	Expression Expr `json:"expression"`
}

type If struct {
	Condition Expr     `json:"condition"`
	Then      StmtList `json:"then"`
	Elsif     []ElsIf  `json:"elsif,omitempty"`
	Else      StmtList `json:"else,omitempty"`
}

type ElsIf struct {
	Condition Expr     `json:"condition"`
	Then      StmtList `json:"then"`
}

type Case struct {
	Selector Expr         `json:"selector"`
	Cases    []CaseClause `json:"cases"`
	Else     StmtList     `json:"else,omitempty"`
}

type CaseClause struct {
	Value      Expr     `json:"value"`
	Statements StmtList `json:"statements"`
}

type For struct {
	Iterator string   `json:"iterator"`
	From     Expr     `json:"from"`
	To       Expr     `json:"to"`
	By       *Expr    `json:"by,omitempty"`
	Body     StmtList `json:"body"`
}

type While struct {
	Condition Expr     `json:"condition"`
	Body      StmtList `json:"body"`
}

type Repeat struct {
	Body  StmtList `json:"body"`
	Until Expr     `json:"until"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments []Expr `json:"arguments"`
}

type FBCall struct {
	Name    string  `json:"name"`
	Inputs  PortMap `json:"inputs,omitempty"`
	Outputs PortMap `json:"outputs,omitempty"`
}

type Return struct {
	Expression *Expr `json:"expression,omitempty"`
}

type Exit struct{}
type Continue struct{}

// Unknown keeps a statement whose type tag is not recognised
type Unknown struct {
	Type string
	Raw  json.RawMessage
}

func (*Assignment) Kind() string   { return "assignment" }
func (*If) Kind() string           { return "if" }
func (*Case) Kind() string         { return "case" }
func (*For) Kind() string          { return "for" }
func (*While) Kind() string        { return "while" }
func (*Repeat) Kind() string       { return "repeat" }
func (*FunctionCall) Kind() string { return "functionCall" }
func (*FBCall) Kind() string       { return "fbCall" }
func (*Return) Kind() string       { return "return" }
func (*Exit) Kind() string         { return "exit" }
func (*Continue) Kind() string     { return "continue" }
func (u *Unknown) Kind() string    { return u.Type }

type StmtList []Stmt

// MarshalJSON writes each statement with its "type" tag first
func (l StmtList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, s := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		if u, ok := s.(*Unknown); ok && len(u.Raw) > 0 {
			buf.Write(u.Raw)
			continue
		}
		body, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		tag, _ := json.Marshal(s.Kind())
		buf.WriteString(`{"type":`)
		buf.Write(tag)
		if len(body) > 2 {
			buf.WriteByte(',')
			buf.Write(body[1:])
		} else {
			buf.WriteByte('}')
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// MarshalJSON writes the file as an array of single-key unit objects
func (f *File) MarshalJSON() ([]byte, error) {
	out := make([]map[string]Unit, len(f.Units))
	for i, u := range f.Units {
		out[i] = map[string]Unit{u.UnitKey(): u}
	}
	return json.Marshal(out)
}

// Walk calls fn for every statement in l, parents before children
func Walk(l StmtList, fn func(Stmt)) {
	for _, s := range l {
		fn(s)
		switch st := s.(type) {
		case *If:
			Walk(st.Then, fn)
			for _, e := range st.Elsif {
				Walk(e.Then, fn)
			}
			Walk(st.Else, fn)
		case *Case:
			for _, c := range st.Cases {
				Walk(c.Statements, fn)
			}
			Walk(st.Else, fn)
		case *For:
			Walk(st.Body, fn)
		case *While:
			Walk(st.Body, fn)
		case *Repeat:
			Walk(st.Body, fn)
		}
	}
}
