package fetcher

import (
	"context"
	"encoding/json"
	"io"
	"net/url"

	"github.com/rotisserie/eris"
)

// DecodeJSONObject decodes a single JSON object from a reader. Numbers are
// kept as float64.
func DecodeJSONObject[T any](r io.Reader) (*T, error) {
	var obj T
	if err := json.NewDecoder(r).Decode(&obj); err != nil {
		return nil, eris.Wrap(err, "json: decode object")
	}
	return &obj, nil
}

// GetJSON fetches rawURL with params and decodes the response body.
func GetJSON[T any](ctx context.Context, f Fetcher, rawURL string, params url.Values) (*T, error) {
	body, err := f.Get(ctx, rawURL, params)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	return DecodeJSONObject[T](body)
}
