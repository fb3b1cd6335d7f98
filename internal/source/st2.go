package source

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/water-unifier/internal/config"
	"github.com/sells-group/water-unifier/internal/record"
	"github.com/sells-group/water-unifier/pkg/frost"
)

// DefaultST2URL is the New Mexico Water Data SensorThings service.
const DefaultST2URL = "https://st2.newmexicowaterdata.org/FROST-Server/v1.0"

// wellThingName is the Thing name ST2 uses for groundwater wells.
const wellThingName = "Water Well"

// ST2 reads one agency's wells and continuous water levels from the ST2
// SensorThings service.
type ST2 struct {
	agency string
	client frost.Client
}

// NewST2 creates the source for agency (e.g. "PVACD", "EBID").
func NewST2(agency string, client frost.Client) *ST2 {
	return &ST2{agency: agency, client: client}
}

// Name implements Source.
func (s *ST2) Name() string { return "ST2/" + s.agency }

// Kinds implements Source.
func (s *ST2) Kinds() []*record.Kind {
	return []*record.Kind{record.Site, record.WaterLevel}
}

// Sites implements SiteSource. The bounding region is pushed down to the
// server as an st_within filter.
func (s *ST2) Sites(ctx context.Context, out config.Output) ([]record.Payload, error) {
	filter := fmt.Sprintf("properties/agency eq '%s'", s.agency)
	if out.HasBounds() {
		filter = fmt.Sprintf("%s and st_within(Location/location, geography'%s')", filter, out.BoundingWKT())
	}

	locs, err := s.client.Locations(ctx, frost.Query{Filter: filter})
	if err != nil {
		return nil, eris.Wrapf(err, "st2: %s sites", s.agency)
	}
	return toPayloads(locs), nil
}

// WaterLevels implements WaterLevelSource. Each observation is annotated
// with its datastream's unit symbol as "unitSymbol". When only the latest
// reading is wanted and no summary is requested, each datastream is asked
// for its newest observation only.
func (s *ST2) WaterLevels(ctx context.Context, site *record.Record, out config.Output) ([]record.Payload, error) {
	things, err := s.client.Things(ctx, frost.Query{
		Expand: "Locations,Datastreams",
		Filter: "Locations/id eq " + frost.FormatID(site.Get(record.KeyID)),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "st2: things for %s", site.ID())
	}

	q := frost.Query{}
	if out.LatestOnly && !out.Summary {
		q = frost.Query{OrderBy: "phenomenonTime desc", Top: 1}
	}

	var payloads []record.Payload
	for _, t := range things {
		if t.Name != wellThingName {
			continue
		}
		for _, ds := range t.Datastreams {
			obs, err := s.client.Observations(ctx, ds.ID, q)
			if err != nil {
				return nil, eris.Wrapf(err, "st2: observations for datastream %s", frost.FormatID(ds.ID))
			}
			for _, o := range obs {
				o["unitSymbol"] = ds.UnitOfMeasurement.Symbol
				payloads = append(payloads, record.Payload(o))
			}
		}
	}
	return payloads, nil
}
