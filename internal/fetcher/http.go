package fetcher

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRetries   int
	RateLimiters map[string]*rate.Limiter
	// Backoff is the first retry delay; it doubles per attempt.
	Backoff time.Duration

	// BreakerThreshold is how many consecutive failed requests open a host's
	// circuit. BreakerReset is how long it stays open before a probe.
	BreakerThreshold int
	BreakerReset     time.Duration
	Clock            clockwork.Clock
}

// StatusError is returned for a non-retryable, non-200 response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// AdaptiveLimiter wraps a rate.Limiter with adaptive rate adjustment.
// On success it increases the rate by 20% (up to 2x initial).
// On 429 it halves the rate (down to initial/4 minimum).
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	initialRate rate.Limit
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive rate limiter that auto-tunes.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		initialRate: initialRate,
		maxRate:     initialRate * 2,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess increases the rate by 20%, up to 2x initial.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	newRate := a.currentRate * 1.2
	if newRate > a.maxRate {
		newRate = a.maxRate
	}
	a.currentRate = newRate
	a.limiter.SetLimit(newRate)
}

// OnRateLimit halves the rate on 429 responses.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	newRate := a.currentRate * 0.5
	if newRate < a.minRate {
		newRate = a.minRate
	}
	a.currentRate = newRate
	a.limiter.SetLimit(newRate)
	zap.L().Warn("adaptive rate limit: reducing rate after 429",
		zap.Float64("new_rate", float64(newRate)),
	)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// HTTPFetcher implements Fetcher using net/http with retry and rate limiting.
type HTTPFetcher struct {
	client           *http.Client
	opts             HTTPOptions
	limiters         map[string]*rate.Limiter
	adaptiveLimiters map[string]*AdaptiveLimiter
	fallback         *rate.Limiter
	breakers         *breakers
}

// DefaultRateLimiters returns fixed limiters for provider hosts that have no
// adaptive limiter.
func DefaultRateLimiters() map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		"catalog.newmexicowaterdata.org": rate.NewLimiter(5, 5),
		"st2.newmexicowaterdata.org":     rate.NewLimiter(10, 10),
	}
}

// DefaultAdaptiveLimiters returns adaptive rate limiters for provider hosts
// known to answer bursts with 429.
func DefaultAdaptiveLimiters() map[string]*AdaptiveLimiter {
	return map[string]*AdaptiveLimiter{
		"data.usbr.gov":           NewAdaptiveLimiter(5, 5),
		"www.waterqualitydata.us": NewAdaptiveLimiter(2, 2),
		"waterdata.nmt.edu":       NewAdaptiveLimiter(10, 10),
	}
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "water-unifier/1.0"
	}
	if opts.Backoff == 0 {
		opts.Backoff = time.Second
	}
	if opts.BreakerThreshold == 0 {
		opts.BreakerThreshold = 5
	}
	if opts.BreakerReset == 0 {
		opts.BreakerReset = 30 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	limiters := DefaultRateLimiters()
	for k, v := range opts.RateLimiters {
		limiters[k] = v
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:             opts,
		limiters:         limiters,
		adaptiveLimiters: DefaultAdaptiveLimiters(),
		fallback:         rate.NewLimiter(20, 20),
		breakers:         newBreakers(opts.BreakerThreshold, opts.BreakerReset, opts.Clock),
	}
}

// adaptiveLimiterFor returns the adaptive limiter for the given host, if any.
func (f *HTTPFetcher) adaptiveLimiterFor(u *url.URL) *AdaptiveLimiter {
	return f.adaptiveLimiters[u.Host]
}

func (f *HTTPFetcher) limiterFor(u *url.URL) *rate.Limiter {
	if lim, ok := f.limiters[u.Host]; ok {
		return lim
	}
	return f.fallback
}

func (f *HTTPFetcher) wait(ctx context.Context, u *url.URL) error {
	if adaptive := f.adaptiveLimiterFor(u); adaptive != nil {
		return adaptive.Wait(ctx)
	}
	return f.limiterFor(u).Wait(ctx)
}

func (f *HTTPFetcher) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	adaptive := f.adaptiveLimiterFor(req.URL)

	var lastErr error
	for attempt := range f.opts.MaxRetries {
		if err := f.wait(ctx, req.URL); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}

		resp, err := f.client.Do(req.Clone(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "request cancelled")
			}
			lastErr = err
			zap.L().Warn("http request failed, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			f.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http 429 from %s", req.URL.String())
			if adaptive != nil {
				adaptive.OnRateLimit()
			}
			zap.L().Warn("rate limited (429), backing off",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt+1),
			)
			f.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http %d from %s", resp.StatusCode, req.URL.String())
			zap.L().Warn("server error, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			f.backoff(ctx, attempt)
			continue
		}

		if adaptive != nil {
			adaptive.OnSuccess()
		}
		return resp, nil
	}

	return nil, eris.Wrap(lastErr, "all retries exhausted")
}

func (f *HTTPFetcher) backoff(ctx context.Context, attempt int) {
	maxBackoff := 30 * time.Second
	d := time.Duration(float64(f.opts.Backoff) * math.Pow(2, float64(attempt)))
	if d > maxBackoff {
		d = maxBackoff
	}
	if half := int64(d) / 2; half > 0 {
		d += time.Duration(rand.Int64N(half))
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Download fetches the URL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	return f.Get(ctx, rawURL, nil)
}

// Get fetches rawURL with params added to its query string. The caller
// closes the body.
func (f *HTTPFetcher) Get(ctx context.Context, rawURL string, params url.Values) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "parse url")
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	br := f.breakers.get(u.Host)
	if err := br.allow(); err != nil {
		return nil, eris.Wrap(err, "get")
	}

	resp, err := f.doWithRetry(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			br.abandon()
		} else {
			br.record(true)
		}
		return nil, eris.Wrap(err, "get")
	}
	br.record(false)

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, eris.Wrap(&StatusError{Code: resp.StatusCode, URL: u.String()}, "get")
	}

	return resp.Body, nil
}
