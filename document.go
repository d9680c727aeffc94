package rtengine

import (
	"encoding/json"
	"os"

	"gopkg.in/yaml.v3"
)

// SetPair is one "key: value" member of a table's defaultSets or an
// entry's sets, represented as an ordered pair so JSON (whose object keys
// are not order-preserving through encoding/json's map decoding) can still
// carry the stable declaration order spec §4.4's materialization relies on.
type SetPair struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Metadata is a document's header block.
type Metadata struct {
	SpecVersion string `json:"specVersion" yaml:"specVersion"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Entry is one weighted row of a simple table (spec §3). Weight is a
// pointer so an absent weight (nil, defaults to 1) can be told apart from
// an explicit weight of 0 (spec §3.1: weight ≤ 0 is unreachable but legal,
// not a synonym for "unspecified").
type Entry struct {
	ID          string    `json:"id,omitempty" yaml:"id,omitempty"`
	Value       string    `json:"value" yaml:"value"`
	Weight      *float64  `json:"weight,omitempty" yaml:"weight,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Sets        []SetPair `json:"sets,omitempty" yaml:"sets,omitempty"`
}

// SourceRef is one weighted member of a composite table (spec §3).
type SourceRef struct {
	Table  string  `json:"table" yaml:"table"`
	Weight float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// Table is one of the three table shapes of spec §3: simple (Entries),
// collection (Refs, flattening other simple tables), or composite
// (Sources, a weighted choice of underlying tables).
type Table struct {
	Kind        string      `json:"kind" yaml:"kind"`
	DefaultSets []SetPair   `json:"defaultSets,omitempty" yaml:"defaultSets,omitempty"`
	Entries     []Entry     `json:"entries,omitempty" yaml:"entries,omitempty"`
	Refs        []string    `json:"refs,omitempty" yaml:"refs,omitempty"`
	Sources     []SourceRef `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// SharedBinding is one ordered "name: template" pair of a template's
// shared block, evaluated before pattern (spec §3).
type SharedBinding struct {
	Name     string `json:"name" yaml:"name"`
	Template string `json:"template" yaml:"template"`
}

// Template is a named pattern plus an ordered list of shared bindings
// seeded into the frame before the pattern itself is evaluated (spec §3).
type Template struct {
	Shared  []SharedBinding `json:"shared,omitempty" yaml:"shared,omitempty"`
	Pattern string          `json:"pattern" yaml:"pattern"`
}

// Document is the top-level random-table document (spec §3, §6).
type Document struct {
	Metadata  Metadata             `json:"metadata" yaml:"metadata"`
	Variables map[string]string    `json:"variables,omitempty" yaml:"variables,omitempty"`
	Tables    map[string]Table     `json:"tables,omitempty" yaml:"tables,omitempty"`
	Templates map[string]Template  `json:"templates,omitempty" yaml:"templates,omitempty"`
}

// Load parses a JSON-encoded document, the primary format (spec §6).
func Load(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, NewParseError("document", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadYAML parses a YAML-encoded document, an optional convenience format
// on top of the same struct shape (not the primary wire format).
func LoadYAML(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, NewParseError("document", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadFile reads path and parses it as JSON or YAML based on its
// extension (".yaml"/".yml" for YAML, anything else as JSON).
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewParseError(path, err)
	}
	if len(path) >= 5 && (path[len(path)-5:] == ".yaml" || path[len(path)-4:] == ".yml") {
		return LoadYAML(data)
	}
	return Load(data)
}

// MustLoad is Load, panicking on error; intended for tests and examples.
func MustLoad(data []byte) *Document {
	doc, err := Load(data)
	if err != nil {
		panic(err)
	}
	return doc
}

// Validate checks structural invariants Load cannot express via JSON
// shape alone: a recognized spec version, at least one table or template,
// and a recognized kind for every table. Ids are not checked for
// duplicates: tables and templates are keyed by id in Go maps.
func (d *Document) Validate() error {
	if d.Metadata.SpecVersion != SpecVersion {
		return NewBadSpecVersionError(d.Metadata.SpecVersion)
	}
	if len(d.Tables) == 0 && len(d.Templates) == 0 {
		return NewEmptyDocumentError()
	}
	for id, t := range d.Tables {
		switch t.Kind {
		case TableKindSimple, TableKindCollection, TableKindComposite:
		default:
			return NewParseError(id, errInvalidTableKind(id, t.Kind))
		}
	}
	return nil
}

func errInvalidTableKind(id, kind string) error {
	return &invalidTableKindError{id: id, kind: kind}
}

type invalidTableKindError struct {
	id   string
	kind string
}

func (e *invalidTableKindError) Error() string {
	return "table " + e.id + " has unrecognized kind " + e.kind
}
