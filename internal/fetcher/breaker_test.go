package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := newBreakers(2, time.Minute, clock).get("example.org")

	require.NoError(t, b.allow())
	b.record(true)
	assert.Equal(t, breakerClosed, b.current())

	require.NoError(t, b.allow())
	b.record(true)
	assert.Equal(t, breakerOpen, b.current())

	err := b.allow()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHostUnavailable))
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b := newBreakers(2, time.Minute, clockwork.NewFakeClock()).get("example.org")

	b.record(true)
	b.record(false)
	b.record(true)
	assert.Equal(t, breakerClosed, b.current())
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := newBreakers(1, time.Minute, clock).get("example.org")

	b.record(true)
	require.Error(t, b.allow())

	clock.Advance(time.Minute)
	require.NoError(t, b.allow(), "probe allowed after reset")
	assert.Equal(t, breakerHalfOpen, b.current())
	assert.Error(t, b.allow(), "only one probe in flight")

	// A failed probe reopens for another full reset period.
	b.record(true)
	assert.Equal(t, breakerOpen, b.current())
	clock.Advance(30 * time.Second)
	assert.Error(t, b.allow())

	clock.Advance(30 * time.Second)
	require.NoError(t, b.allow())
	b.record(false)
	assert.Equal(t, breakerClosed, b.current())
	assert.NoError(t, b.allow())
}

func TestBreaker_AbandonedProbe(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := newBreakers(1, time.Minute, clock).get("example.org")

	b.record(true)
	clock.Advance(time.Minute)
	require.NoError(t, b.allow())
	b.abandon()

	assert.Equal(t, breakerOpen, b.current())
	assert.NoError(t, b.allow(), "next call probes again")
}

func TestBreakers_PerHost(t *testing.T) {
	bs := newBreakers(1, time.Minute, clockwork.NewFakeClock())
	bs.get("a.example").record(true)

	assert.Same(t, bs.get("a.example"), bs.get("a.example"))
	assert.Error(t, bs.get("a.example").allow())
	assert.NoError(t, bs.get("b.example").allow())
}

func TestGet_CircuitOpensForFailingHost(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{
		UserAgent:        "test-agent",
		Timeout:          5 * time.Second,
		MaxRetries:       1,
		Backoff:          time.Millisecond,
		BreakerThreshold: 2,
		Clock:            clockwork.NewFakeClock(),
	})

	for range 2 {
		_, err := f.Download(context.Background(), srv.URL)
		require.Error(t, err)
	}
	_, err := f.Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHostUnavailable))
	assert.Equal(t, int32(2), hits.Load())
}

func TestGet_ClientErrorKeepsCircuitClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{
		UserAgent:        "test-agent",
		MaxRetries:       1,
		BreakerThreshold: 1,
	})

	for range 3 {
		_, err := f.Download(context.Background(), srv.URL)
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusNotFound, se.Code)
	}
}
