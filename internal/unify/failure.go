package unify

import (
	"context"
	"errors"

	"github.com/sells-group/water-unifier/internal/spatial"
	"github.com/sells-group/water-unifier/internal/timefmt"
	"github.com/sells-group/water-unifier/internal/transform"
	"github.com/sells-group/water-unifier/internal/units"
)

// Failure kinds used in skip diagnostics and metric labels.
const (
	FailureMissingField         = "missing_field"
	FailureDatumTransform       = "datum_transform"
	FailureUnparseableTimestamp = "unparseable_timestamp"
	FailureInvalidGeometry      = "invalid_geometry"
	FailureInvalidCoordinate    = "invalid_coordinate"
	FailureFetch                = "fetch"
	FailureCanceled             = "canceled"
	FailureOther                = "other"
)

// FailureKind names the failure class of err.
func FailureKind(err error) string {
	var (
		missing    *transform.MissingFieldError
		datum      *units.DatumTransformError
		timestamp  *timefmt.UnparseableTimestampError
		geometry   *spatial.InvalidGeometryError
		coordinate *transform.InvalidCoordinateError
	)
	switch {
	case errors.As(err, &geometry):
		return FailureInvalidGeometry
	case errors.As(err, &missing):
		return FailureMissingField
	case errors.As(err, &datum):
		return FailureDatumTransform
	case errors.As(err, &timestamp):
		return FailureUnparseableTimestamp
	case errors.As(err, &coordinate):
		return FailureInvalidCoordinate
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return FailureCanceled
	default:
		return FailureOther
	}
}

// fatal reports whether err must abort the whole run rather than skip one
// record.
func fatal(err error) bool {
	var geometry *spatial.InvalidGeometryError
	return errors.As(err, &geometry)
}
