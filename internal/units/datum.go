package units

import (
	"fmt"
	"math"
	"strings"
)

// Canonical horizontal datum codes.
const (
	WGS84 = "WGS84"
	NAD83 = "NAD83"
	NAD27 = "NAD27"
)

// DatumTransformError reports a coordinate reprojection that cannot be done,
// usually because one side of the datum pair is unknown.
type DatumTransformError struct {
	From string
	To   string
	Msg  string
}

func (e *DatumTransformError) Error() string {
	return fmt.Sprintf("units: datum transform %q -> %q: %s", e.From, e.To, e.Msg)
}

type ellipsoid struct {
	a float64 // semi-major axis, meters
	f float64 // flattening
}

// datumDef holds the ellipsoid and the geocentric shift to WGS84.
type datumDef struct {
	ell        ellipsoid
	dx, dy, dz float64
}

var (
	wgs84Ellipsoid = ellipsoid{a: 6378137.0, f: 1 / 298.257223563}
	grs80Ellipsoid = ellipsoid{a: 6378137.0, f: 1 / 298.257222101}
	clarke1866     = ellipsoid{a: 6378206.4, f: 1 / 294.978698214}
)

var datums = map[string]datumDef{
	WGS84: {ell: wgs84Ellipsoid},
	NAD83: {ell: grs80Ellipsoid},
	// Mean shift for the conterminous United States.
	NAD27: {ell: clarke1866, dx: -8, dy: 160, dz: 176},
}

var datumAliases = map[string]string{
	"WGS84":                        WGS84,
	"WGS 84":                       WGS84,
	"WGS-84":                       WGS84,
	"EPSG:4326":                    WGS84,
	"WORLD GEODETIC SYSTEM 1984":   WGS84,
	"NAD83":                        NAD83,
	"NAD 83":                       NAD83,
	"NAD-83":                       NAD83,
	"EPSG:4269":                    NAD83,
	"NORTH AMERICAN DATUM OF 1983": NAD83,
	"NAD27":                        NAD27,
	"NAD 27":                       NAD27,
	"NAD-27":                       NAD27,
	"EPSG:4267":                    NAD27,
	"NORTH AMERICAN DATUM OF 1927": NAD27,
}

// CanonicalDatum maps provider datum spellings to WGS84, NAD83 or NAD27.
// Unknown names come back upper-cased and trimmed.
func CanonicalDatum(name string) string {
	n := strings.ToUpper(strings.TrimSpace(name))
	if c, ok := datumAliases[n]; ok {
		return c
	}
	return n
}

// TransformHorizontalDatum reprojects a longitude/latitude pair from one
// datum to another. Equal datums are an identity transform. The returned
// datum is always the target.
func TransformHorizontalDatum(lng, lat float64, in, out string) (float64, float64, string, error) {
	from, to := CanonicalDatum(in), CanonicalDatum(out)
	if from == to {
		return lng, lat, out, nil
	}

	src, ok := datums[from]
	if !ok {
		return 0, 0, "", &DatumTransformError{From: in, To: out, Msg: "unsupported source datum"}
	}
	dst, ok := datums[to]
	if !ok {
		return 0, 0, "", &DatumTransformError{From: in, To: out, Msg: "unsupported target datum"}
	}
	if math.IsNaN(lng) || math.IsNaN(lat) || math.Abs(lat) > 90 || math.Abs(lng) > 180 {
		return 0, 0, "", &DatumTransformError{From: in, To: out, Msg: fmt.Sprintf("coordinate out of range (%g, %g)", lng, lat)}
	}

	// Go through WGS84: source shift forward, target shift backward.
	lng, lat = molodensky(lng, lat, src.ell, wgs84Ellipsoid, src.dx, src.dy, src.dz)
	lng, lat = molodensky(lng, lat, wgs84Ellipsoid, dst.ell, -dst.dx, -dst.dy, -dst.dz)
	return lng, lat, out, nil
}

// molodensky applies the standard Molodensky datum shift at zero height.
func molodensky(lng, lat float64, from, to ellipsoid, dx, dy, dz float64) (float64, float64) {
	if from == to && dx == 0 && dy == 0 && dz == 0 {
		return lng, lat
	}

	phi := lat * math.Pi / 180
	lam := lng * math.Pi / 180
	sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)
	sinLam, cosLam := math.Sin(lam), math.Cos(lam)

	a := from.a
	f := from.f
	da := to.a - from.a
	df := to.f - from.f
	e2 := 2*f - f*f
	b := a * (1 - f)

	w := math.Sqrt(1 - e2*sinPhi*sinPhi)
	// Prime vertical and meridian radii of curvature.
	rn := a / w
	rm := a * (1 - e2) / (w * w * w)

	dPhi := (-dx*sinPhi*cosLam - dy*sinPhi*sinLam + dz*cosPhi +
		da*(rn*e2*sinPhi*cosPhi)/a +
		df*(rm*a/b+rn*b/a)*sinPhi*cosPhi) / rm
	dLam := (-dx*sinLam + dy*cosLam) / (rn * cosPhi)

	return lng + dLam*180/math.Pi, lat + dPhi*180/math.Pi
}
