// Package source fetches raw payloads from the groundwater data providers.
// Sources only fetch; projection and normalization happen in transform.
package source

import (
	"context"

	"github.com/sells-group/water-unifier/internal/config"
	"github.com/sells-group/water-unifier/internal/record"
)

// Source is a named data provider.
type Source interface {
	// Name returns the provider name records are tagged with (e.g. "ST2/PVACD").
	Name() string
	// Kinds lists the record kinds the provider supplies.
	Kinds() []*record.Kind
}

// SiteSource lists monitoring locations. Sources may use out's bounds to
// narrow the request; the spatial filter still applies afterwards.
type SiteSource interface {
	Source
	Sites(ctx context.Context, out config.Output) ([]record.Payload, error)
}

// WaterLevelSource lists the depth-to-water payloads for one site.
type WaterLevelSource interface {
	Source
	WaterLevels(ctx context.Context, site *record.Record, out config.Output) ([]record.Payload, error)
}

// AnalyteSource lists the water-quality payloads for one site and the
// analyte selected in out.
type AnalyteSource interface {
	Source
	Analytes(ctx context.Context, site *record.Record, out config.Output) ([]record.Payload, error)
}

// Supports reports whether s supplies kind.
func Supports(s Source, kind *record.Kind) bool {
	for _, k := range s.Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

func toPayloads(items []map[string]any) []record.Payload {
	out := make([]record.Payload, len(items))
	for i, m := range items {
		out[i] = record.Payload(m)
	}
	return out
}
