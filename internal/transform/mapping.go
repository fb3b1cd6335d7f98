package transform

import (
	_ "embed"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/water-unifier/internal/record"
)

//go:embed mappings.yaml
var defaultMappings []byte

// Field projects one output attribute. Exactly one of Path, Value or Parent
// is set.
type Field struct {
	Name string `yaml:"name"`
	// Path is a dotted key path into the provider payload.
	Path string `yaml:"path,omitempty"`
	// Value is a constant.
	Value any `yaml:"value,omitempty"`
	// Parent copies an attribute from the parent site record.
	Parent string `yaml:"parent,omitempty"`
	// Format is a fmt verb string applied to the resolved text ("WQP/%s").
	Format string `yaml:"format,omitempty"`
	// Optional fields resolve to nil instead of failing when absent.
	Optional bool `yaml:"optional,omitempty"`
}

// Observation locates the measured value in a water level or analyte
// payload. The orchestrator uses it to pick the latest reading and to
// compute summary statistics before projection.
type Observation struct {
	Value         string `yaml:"value"`
	Units         string `yaml:"units,omitempty"`
	UnitsValue    string `yaml:"units_value,omitempty"`
	Parameter     string `yaml:"parameter,omitempty"`
	ParameterPath string `yaml:"parameter_path,omitempty"`
}

// Mapping is the field-mapping table for one provider and record kind.
type Mapping struct {
	Source string
	Kind   *record.Kind

	// Inherit copies same-named attributes from the parent site.
	Inherit []string
	Fields  []Field
	// Timestamp lists payload paths joined with "T" into the unnormalized
	// datetime. Only the first is required.
	Timestamp   []string
	Observation *Observation

	// Include drops records it returns false for. Nil keeps everything.
	Include func(*record.Record) bool
}

// Child reports whether the mapping projects per-site child records.
func (m *Mapping) Child() bool {
	return m.Kind != record.Site
}

type mappingDoc struct {
	Sources     []string     `yaml:"sources"`
	Kind        string       `yaml:"kind"`
	Inherit     []string     `yaml:"inherit,omitempty"`
	Fields      []Field      `yaml:"fields"`
	Timestamp   []string     `yaml:"timestamp,omitempty"`
	Observation *Observation `yaml:"observation,omitempty"`
}

// Table indexes mappings by source and kind.
type Table struct {
	mappings map[string]*Mapping
}

func tableKey(source, kind string) string {
	return source + "|" + kind
}

// Lookup returns the mapping for source and kind name.
func (t *Table) Lookup(source, kind string) (*Mapping, bool) {
	m, ok := t.mappings[tableKey(source, kind)]
	return m, ok
}

// MustLookup is Lookup for callers wired against the default table.
func (t *Table) MustLookup(source, kind string) *Mapping {
	m, ok := t.Lookup(source, kind)
	if !ok {
		panic("transform: no mapping for " + tableKey(source, kind))
	}
	return m
}

// Len returns the number of (source, kind) mappings.
func (t *Table) Len() int {
	return len(t.mappings)
}

// DefaultTable parses the embedded provider mappings.
func DefaultTable() (*Table, error) {
	return LoadTable(strings.NewReader(string(defaultMappings)))
}

// LoadTable parses a YAML mapping document and attaches the registered
// inclusion predicates.
func LoadTable(r io.Reader) (*Table, error) {
	var docs []mappingDoc
	if err := yaml.NewDecoder(r).Decode(&docs); err != nil {
		return nil, eris.Wrap(err, "transform: decode mappings")
	}

	t := &Table{mappings: make(map[string]*Mapping)}
	for i, d := range docs {
		kind, ok := record.KindByName(d.Kind)
		if !ok || kind == record.Summary {
			return nil, eris.Errorf("transform: mapping %d: unknown kind %q", i, d.Kind)
		}
		if len(d.Sources) == 0 {
			return nil, eris.Errorf("transform: mapping %d: no sources", i)
		}
		for _, f := range d.Fields {
			if err := validateField(f); err != nil {
				return nil, eris.Wrapf(err, "transform: mapping %d", i)
			}
		}
		for _, src := range d.Sources {
			key := tableKey(src, kind.Name)
			if _, dup := t.mappings[key]; dup {
				return nil, eris.Errorf("transform: duplicate mapping %s", key)
			}
			t.mappings[key] = &Mapping{
				Source:      src,
				Kind:        kind,
				Inherit:     d.Inherit,
				Fields:      d.Fields,
				Timestamp:   d.Timestamp,
				Observation: d.Observation,
				Include:     predicates[key],
			}
		}
	}
	return t, nil
}

func validateField(f Field) error {
	if f.Name == "" {
		return eris.New("field without a name")
	}
	set := 0
	if f.Path != "" {
		set++
	}
	if f.Value != nil {
		set++
	}
	if f.Parent != "" {
		set++
	}
	if set != 1 {
		return eris.Errorf("field %q: exactly one of path, value or parent is required", f.Name)
	}
	return nil
}
