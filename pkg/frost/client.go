// Package frost provides a client for OGC SensorThings API servers such as
// FROST-Server.
package frost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the SensorThings operations used for reading well
// locations and observations and for publishing sites.
type Client interface {
	// Locations lists Location entities as raw JSON objects.
	Locations(ctx context.Context, q Query) ([]map[string]any, error)
	// Things lists Thing entities.
	Things(ctx context.Context, q Query) ([]Thing, error)
	// Observations lists a datastream's observations as raw JSON objects.
	Observations(ctx context.Context, datastreamID any, q Query) ([]map[string]any, error)
	// CreateThing posts a Thing with its inline Locations and returns the
	// URL of the created entity.
	CreateThing(ctx context.Context, thing Thing) (string, error)
}

// Query holds the OData system query options supported by the client.
type Query struct {
	Filter  string
	Expand  string
	OrderBy string
	Select  string
	// Top limits the result size. When set, paging stops after one page.
	Top int
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.Filter != "" {
		v.Set("$filter", q.Filter)
	}
	if q.Expand != "" {
		v.Set("$expand", q.Expand)
	}
	if q.OrderBy != "" {
		v.Set("$orderby", q.OrderBy)
	}
	if q.Select != "" {
		v.Set("$select", q.Select)
	}
	if q.Top > 0 {
		v.Set("$top", strconv.Itoa(q.Top))
	}
	return v
}

// Thing is a SensorThings Thing.
type Thing struct {
	ID          any            `json:"@iot.id,omitempty"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Properties  map[string]any `json:"properties,omitempty"`
	Locations   []Location     `json:"Locations,omitempty"`
	Datastreams []Datastream   `json:"Datastreams,omitempty"`
}

// Location is a SensorThings Location with a GeoJSON point.
type Location struct {
	ID           any            `json:"@iot.id,omitempty"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	EncodingType string         `json:"encodingType"`
	Location     GeoJSON        `json:"location"`
	Properties   map[string]any `json:"properties,omitempty"`
}

// GeoJSON is the minimal geometry object stored on a Location.
type GeoJSON struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// Datastream is a SensorThings Datastream.
type Datastream struct {
	ID                any               `json:"@iot.id"`
	Name              string            `json:"name"`
	Description       string            `json:"description"`
	UnitOfMeasurement UnitOfMeasurement `json:"unitOfMeasurement"`
}

// UnitOfMeasurement describes a datastream's result unit.
type UnitOfMeasurement struct {
	Name       string `json:"name"`
	Symbol     string `json:"symbol"`
	Definition string `json:"definition"`
}

// NewPointLocation builds a Location for a longitude/latitude pair.
func NewPointLocation(name string, lng, lat float64) Location {
	return Location{
		Name:         name,
		Description:  name,
		EncodingType: "application/vnd.geo+json",
		Location:     GeoJSON{Type: "Point", Coordinates: []float64{lng, lat}},
	}
}

// FormatID renders an entity id for use in a filter or path. Numeric ids
// are unquoted; string ids are single-quoted.
func FormatID(id any) string {
	switch v := id.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case string:
		if _, err := strconv.ParseInt(v, 10, 64); err == nil {
			return v
		}
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	default:
		return fmt.Sprint(v)
	}
}

// Option configures the FROST client.
type Option func(*httpClient)

// WithBasicAuth sets credentials for write operations.
func WithBasicAuth(user, password string) Option {
	return func(c *httpClient) {
		c.user = user
		c.password = password
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithMaxPages caps how many nextLink pages a list call follows.
func WithMaxPages(n int) Option {
	return func(c *httpClient) {
		c.maxPages = n
	}
}

// WithBackoff sets the first retry delay.
func WithBackoff(d time.Duration) Option {
	return func(c *httpClient) {
		c.backoff = d
	}
}

type httpClient struct {
	baseURL  string
	user     string
	password string
	maxPages int
	backoff  time.Duration
	http     *http.Client
}

// NewClient creates a client for the service rooted at baseURL
// (".../FROST-Server/v1.0").
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxPages: 100,
		backoff:  time.Second,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type listResponse[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@iot.nextLink"`
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo executes an HTTP request with exponential backoff retries on
// transient failures. Returns the body, status code and headers.
func (c *httpClient) retryDo(ctx context.Context, newReq func() (*http.Request, error)) ([]byte, int, http.Header, error) {
	const maxAttempts = 3
	backoff := c.backoff

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := newReq()
		if err != nil {
			return nil, 0, nil, eris.Wrap(err, "frost: create request")
		}
		if c.user != "" {
			req.SetBasicAuth(c.user, c.password)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, nil, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, nil, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, nil, eris.Wrap(readErr, "frost: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("frost: status %d: %s", resp.StatusCode, string(body))
			select {
			case <-ctx.Done():
				return nil, 0, nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, resp.Header, nil
	}

	return nil, 0, nil, lastErr
}

// list follows @iot.nextLink until the collection is exhausted, Top is
// reached or the page cap is hit.
func list[T any](ctx context.Context, c *httpClient, path string, q Query) ([]T, error) {
	next := c.baseURL + path
	if enc := q.values().Encode(); enc != "" {
		next += "?" + enc
	}

	var out []T
	for page := 0; next != "" && page < c.maxPages; page++ {
		reqURL := next
		body, status, _, err := c.retryDo(ctx, func() (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Accept", "application/json")
			return req, nil
		})
		if err != nil {
			return nil, eris.Wrapf(err, "frost: list %s", path)
		}
		if status != http.StatusOK {
			return nil, eris.Errorf("frost: list %s: unexpected status %d: %s", path, status, string(body))
		}

		var resp listResponse[T]
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, eris.Wrapf(err, "frost: unmarshal %s", path)
		}
		out = append(out, resp.Value...)

		if q.Top > 0 {
			break
		}
		next = resp.NextLink
	}
	return out, nil
}

func (c *httpClient) Locations(ctx context.Context, q Query) ([]map[string]any, error) {
	return list[map[string]any](ctx, c, "/Locations", q)
}

func (c *httpClient) Things(ctx context.Context, q Query) ([]Thing, error) {
	return list[Thing](ctx, c, "/Things", q)
}

func (c *httpClient) Observations(ctx context.Context, datastreamID any, q Query) ([]map[string]any, error) {
	return list[map[string]any](ctx, c, "/Datastreams("+FormatID(datastreamID)+")/Observations", q)
}

func (c *httpClient) CreateThing(ctx context.Context, thing Thing) (string, error) {
	payload, err := json.Marshal(thing)
	if err != nil {
		return "", eris.Wrap(err, "frost: marshal thing")
	}

	body, status, header, err := c.retryDo(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/Things", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", eris.Wrap(err, "frost: create thing")
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return "", eris.Errorf("frost: create thing: unexpected status %d: %s", status, string(body))
	}
	return header.Get("Location"), nil
}
