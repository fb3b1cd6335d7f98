package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Output is the normalization target for a run: the datum and units records
// are converted to, the optional bounding region, and the water level /
// analyte output mode. Transformers only read it.
type Output struct {
	HorizontalDatum string `yaml:"horizontal_datum" mapstructure:"horizontal_datum"`
	ElevationUnit   string `yaml:"elevation_unit" mapstructure:"elevation_unit"`
	WellDepthUnit   string `yaml:"well_depth_unit" mapstructure:"well_depth_unit"`

	// BBox is "minx,miny,maxx,maxy"; WKT takes precedence when both are set.
	BBox string `yaml:"bbox" mapstructure:"bbox"`
	WKT  string `yaml:"wkt" mapstructure:"wkt"`

	// Summary emits precomputed statistics instead of observations.
	Summary bool `yaml:"summary" mapstructure:"summary"`
	// LatestOnly emits only the most recent observation per site.
	LatestOnly bool `yaml:"latest_only" mapstructure:"latest_only"`
	// Analyte selects the water-quality parameter for analyte runs.
	Analyte string `yaml:"analyte" mapstructure:"analyte"`
}

// HasBounds reports whether a bounding region is configured.
func (o Output) HasBounds() bool {
	return strings.TrimSpace(o.WKT) != "" || strings.TrimSpace(o.BBox) != ""
}

// BoundingWKT returns the bounding region as WKT, or "" when unbounded. A
// bbox that cannot be read is returned as-is so the spatial filter reports
// it as invalid geometry.
func (o Output) BoundingWKT() string {
	if w := strings.TrimSpace(o.WKT); w != "" {
		return w
	}
	b := strings.TrimSpace(o.BBox)
	if b == "" {
		return ""
	}
	w, err := BBoxToWKT(b)
	if err != nil {
		return b
	}
	return w
}

// Validate checks the output units.
func (o Output) Validate() error {
	for name, u := range map[string]string{"elevation_unit": o.ElevationUnit, "well_depth_unit": o.WellDepthUnit} {
		if u != "ft" && u != "m" {
			return eris.Errorf("config: output.%s must be \"ft\" or \"m\", got %q", name, u)
		}
	}
	if strings.TrimSpace(o.HorizontalDatum) == "" {
		return eris.New("config: output.horizontal_datum is required")
	}
	if o.WKT == "" && o.BBox != "" {
		if _, err := BBoxToWKT(o.BBox); err != nil {
			return err
		}
	}
	return nil
}

// BBoxToWKT converts "minx,miny,maxx,maxy" into a closed WKT polygon.
func BBoxToWKT(bbox string) (string, error) {
	parts := strings.Split(bbox, ",")
	if len(parts) != 4 {
		return "", eris.Errorf("config: bbox %q must be minx,miny,maxx,maxy", bbox)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return "", eris.Wrapf(err, "config: bbox %q", bbox)
		}
		vals[i] = f
	}
	minX, minY, maxX, maxY := vals[0], vals[1], vals[2], vals[3]
	if minX >= maxX || minY >= maxY {
		return "", eris.Errorf("config: bbox %q has min >= max", bbox)
	}
	return fmt.Sprintf("POLYGON((%s %s, %s %s, %s %s, %s %s, %s %s))",
		ff(minX), ff(minY),
		ff(minX), ff(maxY),
		ff(maxX), ff(maxY),
		ff(maxX), ff(minY),
		ff(minX), ff(minY),
	), nil
}

func ff(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
