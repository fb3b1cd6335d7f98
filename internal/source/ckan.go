package source

import (
	"context"
	"net/url"
	"sort"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/water-unifier/internal/config"
	"github.com/sells-group/water-unifier/internal/fetcher"
	"github.com/sells-group/water-unifier/internal/record"
)

// DefaultCKANURL is the New Mexico Water Data CKAN datastore endpoint.
const DefaultCKANURL = "https://catalog.newmexicowaterdata.org/api/3/action/datastore_search"

// ckanSiteKey is the datastore column that identifies a well.
const ckanSiteKey = "Site_ID"

// CKAN serves one datastore resource holding a row per water-level
// measurement. Sites are derived by grouping rows on Site_ID. The resource
// is fetched once per source and shared by the site and water-level calls.
type CKAN struct {
	name     string
	f        fetcher.Fetcher
	baseURL  string
	resource string

	once    sync.Once
	rows    []record.Payload
	bySite  map[string][]record.Payload
	loadErr error
}

// NewCKAN creates a CKAN datastore source. An empty baseURL uses
// DefaultCKANURL.
func NewCKAN(name string, f fetcher.Fetcher, baseURL, resource string) *CKAN {
	if baseURL == "" {
		baseURL = DefaultCKANURL
	}
	return &CKAN{name: name, f: f, baseURL: baseURL, resource: resource}
}

// NewOSERoswell creates the OSE Roswell district source for resource.
func NewOSERoswell(f fetcher.Fetcher, baseURL, resource string) *CKAN {
	return NewCKAN("OSE/Roswell", f, baseURL, resource)
}

// Name implements Source.
func (c *CKAN) Name() string { return c.name }

// Kinds implements Source.
func (c *CKAN) Kinds() []*record.Kind {
	return []*record.Kind{record.Site, record.WaterLevel}
}

type ckanResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Records []map[string]any `json:"records"`
	} `json:"result"`
}

func (c *CKAN) load(ctx context.Context) error {
	c.once.Do(func() {
		params := url.Values{
			"resource_id": {c.resource},
			"limit":       {"32000"},
		}
		resp, err := fetcher.GetJSON[ckanResponse](ctx, c.f, c.baseURL, params)
		if err != nil {
			c.loadErr = eris.Wrapf(err, "ckan: %s datastore", c.name)
			return
		}
		if !resp.Success {
			c.loadErr = eris.Errorf("ckan: %s datastore search failed", c.name)
			return
		}

		c.rows = toPayloads(resp.Result.Records)
		c.bySite = make(map[string][]record.Payload)
		for _, row := range c.rows {
			id := record.FormatValue(row[ckanSiteKey])
			c.bySite[id] = append(c.bySite[id], row)
		}
	})
	return c.loadErr
}

// Sites implements SiteSource. It returns the first row of each Site_ID,
// ordered by Site_ID.
func (c *CKAN) Sites(ctx context.Context, _ config.Output) ([]record.Payload, error) {
	if err := c.load(ctx); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(c.bySite))
	for id := range c.bySite {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sites := make([]record.Payload, 0, len(ids))
	for _, id := range ids {
		sites = append(sites, c.bySite[id][0])
	}
	return sites, nil
}

// WaterLevels implements WaterLevelSource.
func (c *CKAN) WaterLevels(ctx context.Context, site *record.Record, _ config.Output) ([]record.Payload, error) {
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	return c.bySite[site.ID()], nil
}
