package source

import (
	"context"
	"net/url"
	"strconv"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/water-unifier/internal/config"
	"github.com/sells-group/water-unifier/internal/fetcher"
	"github.com/sells-group/water-unifier/internal/record"
)

// DefaultBORURL is the Bureau of Reclamation RISE host.
const DefaultBORURL = "https://data.usbr.gov"

// locationTypeWell is the RISE location type for wells.
const locationTypeWell = "10"

// BOR reads wells and water-quality results from the Bureau of Reclamation
// RISE API.
type BOR struct {
	f       fetcher.Fetcher
	baseURL string

	// mu guards catalogIdx, the catalog position that matched the analyte
	// last time. Sites tend to list their catalog items in the same order,
	// so trying that position first saves a request per site.
	mu         sync.Mutex
	catalogIdx int
}

// NewBOR creates the source. An empty baseURL uses DefaultBORURL.
func NewBOR(f fetcher.Fetcher, baseURL string) *BOR {
	if baseURL == "" {
		baseURL = DefaultBORURL
	}
	return &BOR{f: f, baseURL: baseURL}
}

// Name implements Source.
func (b *BOR) Name() string { return "BOR" }

// Kinds implements Source.
func (b *BOR) Kinds() []*record.Kind {
	return []*record.Kind{record.Site, record.Analyte}
}

type riseList struct {
	Data []map[string]any `json:"data"`
}

type riseCatalogItem struct {
	Data struct {
		Attributes struct {
			ID                  any    `json:"_id"`
			ParameterSourceCode string `json:"parameterSourceCode"`
			ParameterName       string `json:"parameterName"`
			ParameterUnit       string `json:"parameterUnit"`
		} `json:"attributes"`
	} `json:"data"`
}

// Sites implements SiteSource.
func (b *BOR) Sites(ctx context.Context, _ config.Output) ([]record.Payload, error) {
	params := url.Values{
		"stateId":        {"NM"},
		"locationTypeId": {locationTypeWell},
	}
	resp, err := fetcher.GetJSON[riseList](ctx, b.f, b.baseURL+"/rise/api/location", params)
	if err != nil {
		return nil, eris.Wrap(err, "bor: sites")
	}
	return toPayloads(resp.Data), nil
}

// Analytes implements AnalyteSource. It walks the site's catalog items
// until one measures the requested analyte and returns that item's results,
// each annotated with parameterName and parameterUnit.
func (b *BOR) Analytes(ctx context.Context, site *record.Record, out config.Output) ([]record.Payload, error) {
	code, err := AnalyteCode(b.Name(), out.Analyte)
	if err != nil {
		return nil, err
	}

	items := catalogItemPaths(site.Get("catalog_items"))
	start := b.startIndex(len(items))
	for n := range items {
		i := (start + n) % len(items)

		item, err := fetcher.GetJSON[riseCatalogItem](ctx, b.f, b.baseURL+items[i], nil)
		if err != nil {
			return nil, eris.Wrapf(err, "bor: catalog item %s", items[i])
		}
		attrs := item.Data.Attributes
		if attrs.ParameterSourceCode != code {
			continue
		}
		b.remember(i)

		params := url.Values{"itemId": {record.FormatValue(attrs.ID)}}
		results, err := fetcher.GetJSON[riseList](ctx, b.f, b.baseURL+"/rise/api/result", params)
		if err != nil {
			return nil, eris.Wrapf(err, "bor: results for item %s", record.FormatValue(attrs.ID))
		}

		payloads := toPayloads(results.Data)
		for _, p := range payloads {
			p["parameterName"] = attrs.ParameterName
			p["parameterUnit"] = attrs.ParameterUnit
		}
		return payloads, nil
	}

	zap.L().Debug("bor: no catalog item for analyte",
		zap.String("site", site.ID()),
		zap.String("analyte", out.Analyte),
		zap.Int("catalog_items", len(items)),
	)
	return nil, nil
}

func (b *BOR) startIndex(n int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n == 0 || b.catalogIdx >= n {
		return 0
	}
	return b.catalogIdx
}

func (b *BOR) remember(i int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.catalogIdx = i
}

// catalogItemPaths reads the relationship list carried on a BOR site
// record ([{"id": "/rise/api/catalog-item/123"}, ...]).
func catalogItemPaths(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	paths := make([]string, 0, len(list))
	for _, it := range list {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		switch id := m["id"].(type) {
		case string:
			paths = append(paths, id)
		case float64:
			paths = append(paths, "/rise/api/catalog-item/"+strconv.FormatFloat(id, 'f', -1, 64))
		}
	}
	return paths
}
