package unify

import (
	"github.com/sells-group/water-unifier/internal/record"
	"github.com/sells-group/water-unifier/internal/timefmt"
	"github.com/sells-group/water-unifier/internal/transform"
)

// reading pairs a child payload with its decoded observation.
type reading struct {
	payload record.Payload
	transform.Reading
}

// latest returns the most recent reading. The first of equally recent
// readings wins.
func latest(rs []reading) reading {
	best := rs[0]
	for _, r := range rs[1:] {
		if r.Time.After(best.Time) {
			best = r
		}
	}
	return best
}

// summarize computes the summary statistics payload for one site's
// readings. rs must not be empty.
func summarize(rs []reading) record.Payload {
	recent := latest(rs)
	lo, hi, sum := rs[0].Value, rs[0].Value, 0.0
	for _, r := range rs {
		lo = min(lo, r.Value)
		hi = max(hi, r.Value)
		sum += r.Value
	}

	return record.Payload{
		"parameter":         recent.Parameter,
		"parameter_units":   recent.Units,
		"nrecords":          len(rs),
		"min":               lo,
		"max":               hi,
		"mean":              sum / float64(len(rs)),
		"most_recent_date":  recent.Time.Format(timefmt.DateLayout),
		"most_recent_time":  recent.Time.Format(timefmt.TimeLayout),
		"most_recent_value": recent.Value,
	}
}
