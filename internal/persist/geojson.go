package persist

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/water-unifier/internal/record"
)

// GeoJSON writes a FeatureCollection of points. Each feature's properties
// are the record's columns.
type GeoJSON struct {
	Path string
}

// Save implements Persister. Records without numeric coordinates are
// skipped.
func (g *GeoJSON) Save(_ context.Context, kind *record.Kind, records []*record.Record) error {
	if err := requireSpatial(FormatGeoJSON, kind); err != nil {
		return err
	}

	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(records))}
	for _, r := range records {
		lng, lat, ok := coordinates(r)
		if !ok {
			zap.L().Warn("persist: geojson record without coordinates", zap.String("record_id", r.ID()))
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   geom.NewPointFlat(geom.XY, []float64{lng, lat}),
			Properties: properties(kind, r),
		})
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "persist: encode geojson")
	}
	if err := os.WriteFile(g.Path, data, 0o644); err != nil {
		return eris.Wrapf(err, "persist: write %s", g.Path)
	}

	zap.L().Info("persist: wrote geojson", zap.String("path", g.Path), zap.Int("records", len(fc.Features)))
	return nil
}
