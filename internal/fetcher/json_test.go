package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestDecodeJSONObject(t *testing.T) {
	input := `{"id":42,"name":"test"}`
	rec, err := DecodeJSONObject[testRecord](strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 42, rec.ID)
	assert.Equal(t, "test", rec.Name)
}

func TestDecodeJSONObject_Invalid(t *testing.T) {
	_, err := DecodeJSONObject[testRecord](strings.NewReader(`not json`))
	require.Error(t, err)
}

func TestDecodeJSONObject_GenericMap(t *testing.T) {
	rec, err := DecodeJSONObject[map[string]any](strings.NewReader(`{"@iot.id":9640,"coords":[-106.5,34.5]}`))
	require.NoError(t, err)
	assert.Equal(t, 9640.0, (*rec)["@iot.id"])
	assert.Equal(t, []any{-106.5, 34.5}, (*rec)["coords"])
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "NM", r.URL.Query().Get("stateId"))
		assert.Equal(t, "10", r.URL.Query().Get("locationTypeId"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":7,"name":"well"}`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{Timeout: 5 * time.Second})
	rec, err := GetJSON[testRecord](context.Background(), f, srv.URL, map[string][]string{
		"stateId":        {"NM"},
		"locationTypeId": {"10"},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, rec.ID)
}

func TestGetJSON_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{Timeout: 5 * time.Second})
	_, err := GetJSON[testRecord](context.Background(), f, srv.URL, nil)
	require.Error(t, err)
}
