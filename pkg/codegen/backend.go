package codegen

import (
	"bytes"

	"github.com/xplshn/iecst/pkg/ir"
)

// Backend is the interface that all output formats implement.
type Backend interface {
	// Generate renders a validated IR file into the target format.
	Generate(file *ir.File) (*bytes.Buffer, error)
}

// Backends maps the names accepted by --emit to their constructors
var Backends = map[string]func() Backend{
	"st": NewSTBackend,
	"ir": NewIRBackend,
}

// Generate renders file as Structured Text
func Generate(file *ir.File) (string, error) {
	buf, err := NewSTBackend().Generate(file)
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
