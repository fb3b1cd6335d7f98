package persist

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/water-unifier/internal/record"
	"github.com/sells-group/water-unifier/pkg/frost"
)

// ST2 uploads sites to a SensorThings service as Things with one Location.
// A site whose name is already present is left alone.
type ST2 struct {
	client frost.Client
}

// NewST2 creates the persister.
func NewST2(client frost.Client) *ST2 {
	return &ST2{client: client}
}

// Save implements Persister. Only site records can be uploaded.
func (s *ST2) Save(ctx context.Context, kind *record.Kind, records []*record.Record) error {
	if kind != record.Site {
		return eris.Errorf("persist: st2 output supports site records only, got %s", kind.Name)
	}
	log := zap.L().With(zap.String("component", "persist.st2"))

	var created, existing, skipped int
	for _, r := range records {
		name := thingName(r)
		lng, lat, ok := coordinates(r)
		if name == "" || !ok {
			skipped++
			continue
		}

		things, err := s.client.Things(ctx, frost.Query{Filter: "name eq " + odataString(name), Top: 1})
		if err != nil {
			return eris.Wrapf(err, "persist: look up thing %s", name)
		}
		if len(things) > 0 {
			existing++
			continue
		}

		thing := frost.Thing{
			Name:        name,
			Description: "groundwater monitoring well",
			Properties: map[string]any{
				record.KeySource: r.String(record.KeySource),
				record.KeyID:     r.ID(),
			},
			Locations: []frost.Location{frost.NewPointLocation(name, lng, lat)},
		}
		for _, k := range []string{record.KeyElevation, record.KeyElevationUnits, record.KeyWellDepth, record.KeyWellDepthUnits} {
			if v := r.Get(k); v != nil {
				thing.Properties[k] = v
			}
		}

		link, err := s.client.CreateThing(ctx, thing)
		if err != nil {
			return eris.Wrapf(err, "persist: create thing %s", name)
		}
		log.Debug("created thing", zap.String("name", name), zap.String("link", link))
		created++
	}

	log.Info("persist: uploaded sites",
		zap.Int("created", created),
		zap.Int("existing", existing),
		zap.Int("skipped", skipped),
	)
	return nil
}

// thingName is the record's name, or its id when it has none.
func thingName(r *record.Record) string {
	if n := strings.TrimSpace(r.String(record.KeyName)); n != "" {
		return n
	}
	return strings.TrimSpace(r.ID())
}

func odataString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
