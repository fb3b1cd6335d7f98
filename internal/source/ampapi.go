package source

import (
	"context"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/sells-group/water-unifier/internal/config"
	"github.com/sells-group/water-unifier/internal/fetcher"
	"github.com/sells-group/water-unifier/internal/record"
)

// DefaultAMPAPIURL is the NMBGMR Aquifer Mapping Program API.
const DefaultAMPAPIURL = "https://waterdata.nmt.edu"

// AMPAPI reads wells and manual water levels from the Aquifer Mapping
// Program API. Sites come back as a GeoJSON FeatureCollection.
type AMPAPI struct {
	f       fetcher.Fetcher
	baseURL string
}

// NewAMPAPI creates the source. An empty baseURL uses DefaultAMPAPIURL.
func NewAMPAPI(f fetcher.Fetcher, baseURL string) *AMPAPI {
	if baseURL == "" {
		baseURL = DefaultAMPAPIURL
	}
	return &AMPAPI{f: f, baseURL: baseURL}
}

// Name implements Source.
func (a *AMPAPI) Name() string { return "AMPAPI" }

// Kinds implements Source.
func (a *AMPAPI) Kinds() []*record.Kind {
	return []*record.Kind{record.Site, record.WaterLevel}
}

type featureCollection struct {
	Features []map[string]any `json:"features"`
}

// Sites implements SiteSource.
func (a *AMPAPI) Sites(ctx context.Context, out config.Output) ([]record.Payload, error) {
	params := url.Values{}
	if out.HasBounds() {
		params.Set("wkt", out.BoundingWKT())
	}

	fc, err := fetcher.GetJSON[featureCollection](ctx, a.f, a.baseURL+"/locations/geojson", params)
	if err != nil {
		return nil, eris.Wrap(err, "ampapi: sites")
	}
	return toPayloads(fc.Features), nil
}

// WaterLevels implements WaterLevelSource.
func (a *AMPAPI) WaterLevels(ctx context.Context, site *record.Record, _ config.Output) ([]record.Payload, error) {
	params := url.Values{"pointid": {site.ID()}}

	levels, err := fetcher.GetJSON[[]map[string]any](ctx, a.f, a.baseURL+"/waterlevels/manual", params)
	if err != nil {
		return nil, eris.Wrapf(err, "ampapi: water levels for %s", site.ID())
	}
	return toPayloads(*levels), nil
}
