package transform

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/water-unifier/internal/record"
	"github.com/sells-group/water-unifier/internal/timefmt"
)

// Reading is the measured value of one child payload.
type Reading struct {
	Value     float64
	Time      time.Time
	Units     string
	Parameter string
}

// Read extracts the observation from a child payload. It fails when the
// mapping has no observation or the payload has no numeric value or
// readable timestamp.
func (m *Mapping) Read(p record.Payload) (Reading, error) {
	o := m.Observation
	if o == nil || len(m.Timestamp) == 0 {
		return Reading{}, eris.Errorf("transform: %s %s has no observation", m.Source, m.Kind.Name)
	}

	raw, ok := p.Lookup(o.Value)
	if !ok {
		return Reading{}, &MissingFieldError{Source: m.Source, Kind: m.Kind.Name, Field: "value", Path: o.Value}
	}
	value, ok := record.ToFloat(raw)
	if !ok {
		return Reading{}, eris.Errorf("transform: %s %s: non-numeric value %v", m.Source, m.Kind.Name, raw)
	}

	ts, err := m.timestamp(p)
	if err != nil {
		return Reading{}, err
	}
	when, err := timefmt.Parse(ts)
	if err != nil {
		return Reading{}, err
	}

	r := Reading{Value: value, Time: when, Units: o.UnitsValue, Parameter: o.Parameter}
	if o.Units != "" {
		if v, ok := p.Lookup(o.Units); ok && v != nil {
			r.Units = record.FormatValue(v)
		}
	}
	if o.ParameterPath != "" {
		if v, ok := p.Lookup(o.ParameterPath); ok && v != nil {
			r.Parameter = record.FormatValue(v)
		}
	}
	return r, nil
}
