package fetcher

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrHostUnavailable is returned without a request when a host's breaker is
// open.
var ErrHostUnavailable = eris.New("host unavailable: circuit open")

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breaker stops calls to a provider host after threshold consecutive
// requests exhausted their retries. After reset it lets one probe through;
// the probe's outcome closes or reopens it.
type breaker struct {
	host      string
	threshold int
	reset     time.Duration
	clock     clockwork.Clock

	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
}

func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerOpen:
		if b.clock.Since(b.openedAt) < b.reset {
			return eris.Wrapf(ErrHostUnavailable, "%s", b.host)
		}
		b.transition(breakerHalfOpen)
		return nil
	case breakerHalfOpen:
		// One probe at a time.
		return eris.Wrapf(ErrHostUnavailable, "%s", b.host)
	}
	return nil
}

func (b *breaker) record(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !failed {
		b.failures = 0
		if b.state != breakerClosed {
			b.transition(breakerClosed)
		}
		return
	}

	b.failures++
	if b.state == breakerHalfOpen || b.failures >= b.threshold {
		b.openedAt = b.clock.Now()
		if b.state != breakerOpen {
			b.transition(breakerOpen)
		}
	}
}

// abandon returns an unfinished probe's slot so the next call probes again.
func (b *breaker) abandon() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == breakerHalfOpen {
		b.state = breakerOpen
	}
}

func (b *breaker) current() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *breaker) transition(to breakerState) {
	zap.L().Info("fetcher: circuit state change",
		zap.String("host", b.host),
		zap.Stringer("from", b.state),
		zap.Stringer("to", to),
	)
	b.state = to
}

// breakers holds one breaker per host.
type breakers struct {
	threshold int
	reset     time.Duration
	clock     clockwork.Clock

	mu    sync.Mutex
	hosts map[string]*breaker
}

func newBreakers(threshold int, reset time.Duration, clock clockwork.Clock) *breakers {
	return &breakers{
		threshold: threshold,
		reset:     reset,
		clock:     clock,
		hosts:     make(map[string]*breaker),
	}
}

func (bs *breakers) get(host string) *breaker {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	b, ok := bs.hosts[host]
	if !ok {
		b = &breaker{host: host, threshold: bs.threshold, reset: bs.reset, clock: bs.clock}
		bs.hosts[host] = b
	}
	return b
}
