// Package spatial tests record coordinates against a configured bounding
// polygon.
package spatial

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// InvalidGeometryError reports a bounding geometry that cannot be used. It is
// a configuration error: every containment test on the filter fails with it.
type InvalidGeometryError struct {
	WKT string
	Err error
}

func (e *InvalidGeometryError) Error() string {
	return fmt.Sprintf("spatial: invalid bounding geometry %q: %v", abbreviate(e.WKT), e.Err)
}

func (e *InvalidGeometryError) Unwrap() error {
	return e.Err
}

// ParseFunc decodes WKT into a geometry.
type ParseFunc func(string) (geom.T, error)

// Option configures a Filter.
type Option func(*Filter)

// WithParser replaces the WKT decoder.
func WithParser(p ParseFunc) Option {
	return func(f *Filter) {
		f.parse = p
	}
}

// Filter decides whether a point lies inside the bounding region. The WKT
// is decoded on the first Contained call and the result, including a decode
// error, is kept for the filter's lifetime. A Filter is safe for concurrent
// use.
type Filter struct {
	wkt   string
	parse ParseFunc

	once     sync.Once
	polygons []*geom.Polygon
	err      error
}

// NewFilter creates a filter for the given WKT. An empty WKT disables
// filtering.
func NewFilter(wktText string, opts ...Option) *Filter {
	f := &Filter{
		wkt:   strings.TrimSpace(wktText),
		parse: wkt.Unmarshal,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Enabled reports whether the filter has a bounding region.
func (f *Filter) Enabled() bool {
	return f.wkt != ""
}

// Prepare decodes the bounding geometry now instead of on first use.
func (f *Filter) Prepare() error {
	if !f.Enabled() {
		return nil
	}
	f.once.Do(f.load)
	return f.err
}

// Contained reports whether (lng, lat) lies inside the region. Points on
// the boundary are contained; points inside a hole are not.
func (f *Filter) Contained(lng, lat float64) (bool, error) {
	if !f.Enabled() {
		return true, nil
	}
	if err := f.Prepare(); err != nil {
		return false, err
	}

	pt := geom.Coord{lng, lat}
	for _, p := range f.polygons {
		if polygonContains(p, pt) {
			return true, nil
		}
	}
	return false, nil
}

// Envelope is an axis-aligned bounding box.
type Envelope struct {
	MinX, MinY, MaxX, MaxY float64
}

// String renders the envelope as "minx,miny,maxx,maxy".
func (e Envelope) String() string {
	return fmt.Sprintf("%s,%s,%s,%s", ff(e.MinX), ff(e.MinY), ff(e.MaxX), ff(e.MaxY))
}

func ff(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Envelope returns the bounding box of the region. ok is false when the
// filter is disabled.
func (f *Filter) Envelope() (env Envelope, ok bool, err error) {
	if !f.Enabled() {
		return Envelope{}, false, nil
	}
	if err := f.Prepare(); err != nil {
		return Envelope{}, false, err
	}

	for i, p := range f.polygons {
		b := p.Bounds()
		if i == 0 {
			env = Envelope{MinX: b.Min(0), MinY: b.Min(1), MaxX: b.Max(0), MaxY: b.Max(1)}
			continue
		}
		env.MinX = math.Min(env.MinX, b.Min(0))
		env.MinY = math.Min(env.MinY, b.Min(1))
		env.MaxX = math.Max(env.MaxX, b.Max(0))
		env.MaxY = math.Max(env.MaxY, b.Max(1))
	}
	return env, true, nil
}

func (f *Filter) load() {
	g, err := f.parse(f.wkt)
	if err != nil {
		f.err = &InvalidGeometryError{WKT: f.wkt, Err: err}
		return
	}

	switch t := g.(type) {
	case *geom.Polygon:
		f.polygons = []*geom.Polygon{t}
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			f.polygons = append(f.polygons, t.Polygon(i))
		}
	default:
		f.err = &InvalidGeometryError{WKT: f.wkt, Err: fmt.Errorf("expected POLYGON or MULTIPOLYGON, got %T", g)}
		return
	}

	if len(f.polygons) == 0 || f.polygons[0].NumLinearRings() == 0 {
		f.polygons = nil
		f.err = &InvalidGeometryError{WKT: f.wkt, Err: fmt.Errorf("empty polygon")}
	}
}

func polygonContains(p *geom.Polygon, pt geom.Coord) bool {
	if p.NumLinearRings() == 0 {
		return false
	}
	layout := p.Layout()
	if !xy.IsPointInRing(layout, pt, p.LinearRing(0).FlatCoords()) {
		return false
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		if xy.LocatePointInRing(layout, pt, p.LinearRing(i).FlatCoords()) == location.Interior {
			return false
		}
	}
	return true
}

func abbreviate(s string) string {
	const limit = 64
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
