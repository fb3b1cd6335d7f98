// Package transform projects raw provider payloads into normalized records
// and runs the shared normalization pipeline over them.
package transform

import (
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/water-unifier/internal/config"
	"github.com/sells-group/water-unifier/internal/record"
	"github.com/sells-group/water-unifier/internal/spatial"
	"github.com/sells-group/water-unifier/internal/timefmt"
	"github.com/sells-group/water-unifier/internal/units"
)

// Transformer turns payloads of one provider and kind into records
// normalized to the run's output settings. It is safe for concurrent use.
type Transformer struct {
	mapping *Mapping
	out     config.Output
	filter  *spatial.Filter
	summary bool
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithFilter shares a prepared spatial filter between transformers so the
// bounding polygon is parsed once per run.
func WithFilter(f *spatial.Filter) Option {
	return func(t *Transformer) {
		t.filter = f
	}
}

// New builds a transformer for m. Without WithFilter it owns a filter built
// from out's bounding region.
func New(m *Mapping, out config.Output, opts ...Option) *Transformer {
	t := &Transformer{
		mapping: m,
		out:     out,
		summary: out.Summary && m.Child(),
	}
	for _, o := range opts {
		o(t)
	}
	if t.filter == nil {
		t.filter = spatial.NewFilter(out.BoundingWKT())
	}
	return t
}

// Mapping returns the mapping the transformer projects with.
func (t *Transformer) Mapping() *Mapping {
	return t.mapping
}

// OutputKind is the kind of the records the transformer emits.
func (t *Transformer) OutputKind() *record.Kind {
	if t.summary {
		return record.Summary
	}
	return t.mapping.Kind
}

// summarySiteKeys are the summary columns taken from the parent site when
// the child mapping does not inherit them.
var summarySiteKeys = []string{
	record.KeyLatitude,
	record.KeyLongitude,
	record.KeyHorizontalDatum,
	record.KeyElevation,
	record.KeyElevationUnits,
	record.KeyWellDepth,
	record.KeyWellDepthUnits,
}

// Transform projects payload without normalizing it. A nil record with a
// nil error means the mapping's inclusion rule dropped it.
func (t *Transformer) Transform(p record.Payload, parent *record.Record) (*record.Record, error) {
	m := t.mapping
	attrs := map[string]any{record.KeySource: m.Source}

	if m.Child() && parent == nil {
		return nil, &MissingFieldError{Source: m.Source, Kind: m.Kind.Name, Field: "parent", Path: "parent"}
	}
	for _, name := range m.Inherit {
		attrs[name] = parent.Get(name)
	}
	for _, f := range m.Fields {
		if t.summary && !record.Summary.Has(f.Name) {
			continue
		}
		v, err := t.resolve(f, p, parent)
		if err != nil {
			return nil, err
		}
		attrs[f.Name] = v
	}

	kind := m.Kind
	if t.summary {
		// Summary payloads are statistics computed upstream; they replace
		// the per-observation fields.
		kind = record.Summary
		for k := range attrs {
			if !kind.Has(k) {
				delete(attrs, k)
			}
		}
		for _, k := range summarySiteKeys {
			if attrs[k] == nil {
				attrs[k] = parent.Get(k)
			}
		}
		if attrs[record.KeyLocation] == nil {
			attrs[record.KeyLocation] = parent.Get(record.KeyName)
		}
		for k, v := range p {
			attrs[k] = v
		}
	} else if len(m.Timestamp) > 0 {
		ts, err := m.timestamp(p)
		if err != nil {
			return nil, err
		}
		attrs[record.KeyDatetime] = ts
	}

	r := record.New(kind, attrs)
	if m.Include != nil && !m.Include(r) {
		return nil, nil
	}
	return r, nil
}

// DoTransform projects payload and normalizes the result. A nil record with
// a nil error means the record was filtered out.
func (t *Transformer) DoTransform(p record.Payload, parent *record.Record) (*record.Record, error) {
	r, err := t.Transform(p, parent)
	if err != nil || r == nil {
		return nil, err
	}
	keep, err := t.Normalize(r)
	if err != nil || !keep {
		return nil, err
	}
	return r, nil
}

// Normalize runs the shared pipeline over r in place: horizontal datum,
// elevation units, well depth units, date split, then the spatial filter.
// It reports false when the record falls outside the bounding region.
// Running it twice leaves the record unchanged.
func (t *Transformer) Normalize(r *record.Record) (bool, error) {
	kind := r.Kind()
	spatialKind := kind.Spatial()

	var lng, lat float64
	if spatialKind {
		var err error
		lng, lat, err = t.reproject(r)
		if err != nil {
			return false, err
		}
	}

	if kind.Has(record.KeyElevation) {
		convertUnits(r, kind, record.KeyElevation, record.KeyElevationUnits, t.out.ElevationUnit)
	}
	if kind.Has(record.KeyWellDepth) {
		convertUnits(r, kind, record.KeyWellDepth, record.KeyWellDepthUnits, t.out.WellDepthUnit)
	}

	if v := r.Get(record.KeyDatetime); v != nil {
		date, clock, err := timefmt.Standardize(v)
		if err != nil {
			return false, err
		}
		r.Update(map[string]any{
			record.KeyDateMeasured: date,
			record.KeyTimeMeasured: clock,
		})
	}

	if spatialKind && t.filter.Enabled() {
		return t.filter.Contained(lng, lat)
	}
	return true, nil
}

func (t *Transformer) reproject(r *record.Record) (float64, float64, error) {
	lng, ok := r.Float(record.KeyLongitude)
	if !ok {
		return 0, 0, &InvalidCoordinateError{Source: r.String(record.KeySource), ID: r.ID(), Value: r.Get(record.KeyLongitude)}
	}
	lat, ok := r.Float(record.KeyLatitude)
	if !ok {
		return 0, 0, &InvalidCoordinateError{Source: r.String(record.KeySource), ID: r.ID(), Value: r.Get(record.KeyLatitude)}
	}

	lng, lat, datum, err := units.TransformHorizontalDatum(lng, lat, r.String(record.KeyHorizontalDatum), t.out.HorizontalDatum)
	if err != nil {
		return 0, 0, err
	}
	r.Update(map[string]any{
		record.KeyLongitude:       lng,
		record.KeyLatitude:        lat,
		record.KeyHorizontalDatum: datum,
	})
	return lng, lat, nil
}

// convertUnits rewrites a measure and its unit attribute. A missing unit is
// read as the kind's default; an unreadable measure becomes nil.
func convertUnits(r *record.Record, kind *record.Kind, valueKey, unitKey, outUnit string) {
	v := r.Get(valueKey)
	if v == nil {
		return
	}
	unit := r.String(unitKey)
	if strings.TrimSpace(unit) == "" {
		unit = record.FormatValue(kind.Default(unitKey))
	}

	converted, unit := units.TransformUnits(v, unit, outUnit)
	if converted == nil {
		r.Update(map[string]any{valueKey: nil, unitKey: unit})
		return
	}
	r.Update(map[string]any{valueKey: *converted, unitKey: unit})
}

func (t *Transformer) resolve(f Field, p record.Payload, parent *record.Record) (any, error) {
	var (
		v  any
		ok bool
	)
	switch {
	case f.Value != nil:
		v, ok = f.Value, true
	case f.Parent != "":
		v = parent.Get(f.Parent)
		ok = v != nil
	default:
		v, ok = p.Lookup(f.Path)
	}

	if !ok {
		if f.Optional {
			return nil, nil
		}
		path := f.Path
		if path == "" {
			path = "parent." + f.Parent
		}
		return nil, &MissingFieldError{Source: t.mapping.Source, Kind: t.mapping.Kind.Name, Field: f.Name, Path: path}
	}
	if f.Format != "" && v != nil {
		v = fmt.Sprintf(f.Format, record.FormatValue(v))
	}
	return v, nil
}

// timestamp joins the date at the first path with the time of day at the
// next paths using "T". When the first part is a full timestamp, its date is
// kept and its time of day is replaced by a non-empty time part; with no time
// part it is returned as is.
func (m *Mapping) timestamp(p record.Payload) (any, error) {
	paths := m.Timestamp
	first, ok := p.Lookup(paths[0])
	if !ok || first == nil {
		return nil, &MissingFieldError{Source: m.Source, Kind: m.Kind.Name, Field: record.KeyDatetime, Path: paths[0]}
	}
	if len(paths) == 1 {
		return first, nil
	}

	date, ok := datePart(strings.TrimSpace(record.FormatValue(first)))
	if !ok {
		return first, nil
	}
	var clock []string
	for _, path := range paths[1:] {
		v, _ := p.Lookup(path)
		if s := strings.TrimSpace(record.FormatValue(v)); s != "" {
			clock = append(clock, s)
		}
	}
	if len(clock) == 0 {
		return first, nil
	}
	return date + "T" + strings.Join(clock, "T"), nil
}

// datePart returns the leading YYYY-MM-DD of s, which may be followed by a
// time of day after "T" or a space.
func datePart(s string) (string, bool) {
	const n = len(timefmt.DateLayout)
	if len(s) < n {
		return "", false
	}
	if len(s) > n && s[n] != 'T' && s[n] != ' ' {
		return "", false
	}
	if _, err := time.Parse(timefmt.DateLayout, s[:n]); err != nil {
		return "", false
	}
	return s[:n], true
}
