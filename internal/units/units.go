// Package units converts linear measurements and horizontal coordinate datums
// to the output system a run is configured for.
package units

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/water-unifier/internal/record"
)

// Canonical unit codes.
const (
	Feet   = "ft"
	Meters = "m"
)

const (
	feetToMeters = 0.3048
	metersToFeet = 3.28084
)

var folder = cases.Fold()

var unitAliases = map[string]string{
	"ft":     Feet,
	"feet":   Feet,
	"foot":   Feet,
	"ft.":    Feet,
	"m":      Meters,
	"meter":  Meters,
	"meters": Meters,
	"metre":  Meters,
	"metres": Meters,
}

// CanonicalUnit folds known spellings of feet and meters to "ft" and "m".
// Unknown units are returned trimmed but otherwise unchanged.
func CanonicalUnit(unit string) string {
	u := strings.TrimSpace(unit)
	if c, ok := unitAliases[folder.String(u)]; ok {
		return c
	}
	return u
}

// TransformUnits converts value from unit to outUnit. A value that cannot be
// read as a number yields (nil, unit) so one bad field does not sink the
// record. Units that are neither feet nor meters pass through unconverted.
func TransformUnits(value any, unit, outUnit string) (*float64, string) {
	f, ok := record.ToFloat(value)
	if !ok {
		return nil, unit
	}

	from, to := CanonicalUnit(unit), CanonicalUnit(outUnit)
	switch {
	case from == to:
		unit = to
	case from == Feet && to == Meters:
		f *= feetToMeters
		unit = Meters
	case from == Meters && to == Feet:
		f *= metersToFeet
		unit = Feet
	}
	return &f, unit
}
