// Package registry holds the read-only device registry that program
// declarations are checked against. A Registry is immutable once built and
// may be shared between concurrent validations.
package registry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/xplshn/iecst/pkg/datatype"
	"github.com/xplshn/iecst/pkg/literal"
	"github.com/xplshn/iecst/pkg/util"
)

// Device is one registry record. Only Name and DataType take part in
// validation; the rest is carried for callers that display it.
type Device struct {
	Name     string          `json:"deviceName"`
	DataType string          `json:"dataType"`
	Range    json.RawMessage `json:"range,omitempty"`
	MetaData json.RawMessage `json:"MetaData,omitempty"`
	ID       json.RawMessage `json:"id,omitempty"`
}

type Registry struct {
	devices map[string]Device
	names   []string
}

// New builds a registry. Names must be unique identifiers; data types are
// upper-cased and must be known built-in types.
func New(devices []Device) (*Registry, error) {
	r := &Registry{devices: make(map[string]Device, len(devices))}
	for i, d := range devices {
		d.Name = strings.TrimSpace(d.Name)
		if !literal.IsIdent(d.Name) {
			return nil, util.Errorf(util.Registry, "Device %d: deviceName '%s' is not a valid identifier", i, d.Name)
		}
		if _, dup := r.devices[d.Name]; dup {
			return nil, util.Errorf(util.Registry, "Device '%s' declared twice", d.Name)
		}
		d.DataType = strings.ToUpper(strings.TrimSpace(d.DataType))
		if _, err := datatype.ParseAndValidate(d.DataType, nil); err != nil {
			return nil, util.Errorf(util.Registry, "Device '%s': %w", d.Name, err)
		}
		r.devices[d.Name] = d
		r.names = append(r.names, d.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Load reads a JSON array of devices
func Load(rd io.Reader) (*Registry, error) {
	var devices []Device
	if err := json.NewDecoder(rd).Decode(&devices); err != nil {
		return nil, util.Errorf(util.Registry, "Invalid device registry: %w", err)
	}
	return New(devices)
}

func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, util.Errorf(util.Registry, "Cannot open device registry: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func (r *Registry) Lookup(name string) (Device, bool) {
	if r == nil {
		return Device{}, false
	}
	d, ok := r.devices[name]
	return d, ok
}

// Type returns the upper-cased data type registered for name
func (r *Registry) Type(name string) (string, bool) {
	d, ok := r.Lookup(name)
	return d.DataType, ok
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// Names returns the device names in sorted order
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.names...)
}

// Suggest returns the registered name closest to name, or "" when nothing is close
func (r *Registry) Suggest(name string) string {
	if r.Len() == 0 || name == "" {
		return ""
	}
	ranks := fuzzy.RankFindFold(name, r.names)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	best, bestDist := "", 3
	for _, candidate := range r.names {
		if d := fuzzy.LevenshteinDistance(strings.ToLower(name), strings.ToLower(candidate)); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}

// Fingerprint hashes the name/type pairs so callers can tell whether two
// snapshots validate identically
func (r *Registry) Fingerprint() uint64 {
	h := xxhash.New()
	for _, name := range r.Names() {
		h.WriteString(name)
		h.WriteString(":")
		h.WriteString(r.devices[name].DataType)
		h.WriteString("\n")
	}
	return h.Sum64()
}

func (r *Registry) String() string {
	return fmt.Sprintf("registry(%d devices, %016x)", r.Len(), r.Fingerprint())
}
