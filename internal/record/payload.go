package record

import (
	"strconv"
	"strings"
)

// Payload is one raw provider record as decoded from JSON or CSV.
type Payload map[string]any

// Lookup resolves a dotted key path. Numeric segments index into arrays, so
// "geometry.coordinates.1" reads the latitude of a GeoJSON point. A path
// that names a top-level key verbatim ("@iot.id") wins over splitting. A
// segment that is present but null resolves to (nil, true).
func (p Payload) Lookup(path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	if v, ok := p[path]; ok {
		return v, true
	}
	var cur any = map[string]any(p)
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case Payload:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}
