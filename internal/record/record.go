package record

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is a normalized attribute set for one Kind. Attributes the
// transformer did not populate read as nil; defaults are resolved only when
// the record is serialized with Row.
type Record struct {
	kind  *Kind
	attrs map[string]any
}

// New wraps attrs as a record of the given kind. The map is owned by the
// record from here on.
func New(kind *Kind, attrs map[string]any) *Record {
	if attrs == nil {
		attrs = make(map[string]any)
	}
	return &Record{kind: kind, attrs: attrs}
}

// Kind returns the record's schema.
func (r *Record) Kind() *Kind {
	return r.kind
}

// Get returns the raw attribute value, or nil when the key was never set or
// r is nil.
func (r *Record) Get(key string) any {
	if r == nil {
		return nil
	}
	return r.attrs[key]
}

// String returns the attribute formatted as text ("" for nil).
func (r *Record) String(key string) string {
	return FormatValue(r.attrs[key])
}

// Float returns the attribute as a float64 when it holds a number or a
// numeric string.
func (r *Record) Float(key string) (float64, bool) {
	return ToFloat(r.attrs[key])
}

// ID returns the record identifier as text, for diagnostics.
func (r *Record) ID() string {
	return r.String(KeyID)
}

// Update writes the given attributes in place. Keys are never removed and
// column order is fixed by the kind, so updates cannot reorder a row.
func (r *Record) Update(fields map[string]any) {
	for k, v := range fields {
		r.attrs[k] = v
	}
}

// Attrs returns a copy of the backing attributes.
func (r *Record) Attrs() map[string]any {
	out := make(map[string]any, len(r.attrs))
	for k, v := range r.attrs {
		out[k] = v
	}
	return out
}

// Row serializes the record in the kind's column order. Elevation is
// rounded to two decimals; nil values fall back to the kind's default.
func (r *Record) Row() []any {
	row := make([]any, len(r.kind.Keys))
	for i, key := range r.kind.Keys {
		v := r.attrs[key]
		if key == KeyElevation && v != nil {
			if f, ok := v.(float64); ok {
				v = math.Round(f*100) / 100
			}
		}
		if v == nil {
			v = r.kind.Default(key)
		}
		row[i] = v
	}
	return row
}

// StringRow is Row with every value rendered by FormatValue.
func (r *Record) StringRow() []string {
	row := r.Row()
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = FormatValue(v)
	}
	return out
}

// ToFloat converts a scalar attribute to float64.
func ToFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// FormatValue renders a scalar for text outputs.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
