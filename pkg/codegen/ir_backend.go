package codegen

import (
	"bytes"
	"encoding/json"

	"github.com/xplshn/iecst/pkg/ir"
	"github.com/xplshn/iecst/pkg/util"
)

type irBackend struct{}

// NewIRBackend writes the decoded IR back out as indented JSON, with every
// unit wrapped and every statement tagged
func NewIRBackend() Backend { return irBackend{} }

func (irBackend) Generate(file *ir.File) (*bytes.Buffer, error) {
	raw, err := json.Marshal(file)
	if err != nil {
		return nil, util.Errorf(util.Generator, "Failed to encode IR: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, util.Errorf(util.Generator, "Failed to encode IR: %w", err)
	}
	out.WriteByte('\n')
	return &out, nil
}
