package fetcher

import (
	"context"
	"io"
	"net/url"
)

// Fetcher defines the interface the provider sources use to reach remote
// services.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// Get fetches the URL with the query parameters merged into it.
	Get(ctx context.Context, url string, params url.Values) (io.ReadCloser, error)
}
