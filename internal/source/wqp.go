package source

import (
	"context"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/sells-group/water-unifier/internal/config"
	"github.com/sells-group/water-unifier/internal/fetcher"
	"github.com/sells-group/water-unifier/internal/record"
	"github.com/sells-group/water-unifier/internal/spatial"
)

// DefaultWQPURL is the Water Quality Portal data service.
const DefaultWQPURL = "https://www.waterqualitydata.us/data"

// wqpStateCode restricts unbounded station searches to New Mexico.
const wqpStateCode = "US:35"

// WQP reads well stations and results from the Water Quality Portal. Both
// endpoints answer in CSV.
type WQP struct {
	f       fetcher.Fetcher
	baseURL string
}

// NewWQP creates the source. An empty baseURL uses DefaultWQPURL.
func NewWQP(f fetcher.Fetcher, baseURL string) *WQP {
	if baseURL == "" {
		baseURL = DefaultWQPURL
	}
	return &WQP{f: f, baseURL: baseURL}
}

// Name implements Source.
func (w *WQP) Name() string { return "WQP" }

// Kinds implements Source.
func (w *WQP) Kinds() []*record.Kind {
	return []*record.Kind{record.Site, record.Analyte}
}

// Sites implements SiteSource. A bounding region is sent as its envelope;
// without one the search covers the state.
func (w *WQP) Sites(ctx context.Context, out config.Output) ([]record.Payload, error) {
	params := url.Values{
		"mimeType": {"csv"},
		"siteType": {"Well"},
	}
	env, ok, err := spatial.NewFilter(out.BoundingWKT()).Envelope()
	if err != nil {
		return nil, err
	}
	if ok {
		params.Set("bBox", env.String())
	} else {
		params.Set("statecode", wqpStateCode)
	}

	return w.csv(ctx, "/Station/search", params)
}

// Analytes implements AnalyteSource.
func (w *WQP) Analytes(ctx context.Context, site *record.Record, out config.Output) ([]record.Payload, error) {
	code, err := AnalyteCode(w.Name(), out.Analyte)
	if err != nil {
		return nil, err
	}
	params := url.Values{
		"mimeType":           {"csv"},
		"siteid":             {site.ID()},
		"characteristicName": {code},
	}
	return w.csv(ctx, "/Result/search", params)
}

func (w *WQP) csv(ctx context.Context, path string, params url.Values) ([]record.Payload, error) {
	body, err := w.f.Get(ctx, w.baseURL+path, params)
	if err != nil {
		return nil, eris.Wrapf(err, "wqp: %s", path)
	}
	defer body.Close() //nolint:errcheck

	rows, err := fetcher.ReadCSVMaps(ctx, body)
	if err != nil {
		return nil, eris.Wrapf(err, "wqp: %s", path)
	}
	return toPayloads(rows), nil
}
