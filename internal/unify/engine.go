// Package unify runs providers through the transformers and collects the
// normalized records of one kind.
package unify

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/water-unifier/internal/config"
	"github.com/sells-group/water-unifier/internal/observability"
	"github.com/sells-group/water-unifier/internal/record"
	"github.com/sells-group/water-unifier/internal/source"
	"github.com/sells-group/water-unifier/internal/spatial"
	"github.com/sells-group/water-unifier/internal/transform"
)

// DefaultConcurrency is the number of sources fetched at once.
const DefaultConcurrency = 4

// Engine orchestrates unify runs.
type Engine struct {
	reg         *source.Registry
	table       *transform.Table
	metrics     *observability.Metrics
	clock       clockwork.Clock
	concurrency int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records run metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock sets the clock used for run and fetch timing.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithConcurrency sets how many sources run at once.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// NewEngine creates an engine over the registered sources and mappings.
func NewEngine(reg *source.Registry, table *transform.Table, opts ...Option) *Engine {
	e := &Engine{
		reg:         reg,
		table:       table,
		clock:       clockwork.NewRealClock(),
		concurrency: DefaultConcurrency,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Request selects what a run produces.
type Request struct {
	Kind    *record.Kind // record.Site, record.WaterLevel or record.Analyte
	Sources []string     // restrict to these providers; empty means all
	Output  config.Output
}

// SourceStats counts the outcome of one provider's part of a run.
type SourceStats struct {
	Name        string
	Transformed int64
	Filtered    int64
	Skipped     int64
	// Err is set when the provider's site list could not be fetched.
	Err error
}

// Result is the outcome of a run. Records are ordered by source
// registration order, then by fetch order.
type Result struct {
	RunID      string
	Kind       *record.Kind
	Records    []*record.Record
	Sources    []SourceStats
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is the wall time of the run.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Run fetches, transforms and normalizes records from every selected
// source. A payload that fails to transform is logged and skipped, and a
// provider that cannot be reached is logged and skipped. An invalid bounding
// geometry aborts the run.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	log := zap.L().With(zap.String("component", "unify.engine"))

	if req.Kind == nil || req.Kind == record.Summary {
		return nil, eris.New("unify: request kind must be site, waterlevel or analyte")
	}

	filter := spatial.NewFilter(req.Output.BoundingWKT())
	if err := filter.Prepare(); err != nil {
		return nil, err
	}

	srcs, err := e.reg.Select(req.Sources, req.Kind)
	if err != nil {
		return nil, err
	}

	outKind := req.Kind
	if req.Output.Summary && req.Kind != record.Site {
		outKind = record.Summary
	}
	res := &Result{
		RunID:     uuid.NewString(),
		Kind:      outKind,
		Sources:   make([]SourceStats, len(srcs)),
		StartedAt: e.clock.Now(),
	}
	log = log.With(zap.String("run_id", res.RunID), zap.String("kind", outKind.Name))
	log.Info("selected sources", zap.Int("count", len(srcs)))

	batches := make([][]*record.Record, len(srcs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, src := range srcs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			run := &sourceRun{
				engine: e,
				src:    src,
				req:    req,
				filter: filter,
				log:    log.With(zap.String("source", src.Name())),
			}
			recs, err := run.execute(gctx)
			res.Sources[i] = run.stats()
			if err != nil {
				if fatal(err) || gctx.Err() != nil {
					return err
				}
				run.log.Error("source failed", zap.Error(err))
				res.Sources[i].Err = err
				return nil // don't abort other sources on one provider's failure
			}
			batches[i] = recs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, b := range batches {
		res.Records = append(res.Records, b...)
	}
	res.FinishedAt = e.clock.Now()
	if e.metrics != nil {
		e.metrics.RunDuration.Observe(res.Duration().Seconds())
	}

	log.Info("run complete",
		zap.Int("records", len(res.Records)),
		zap.Duration("elapsed", res.Duration()),
	)
	return res, nil
}

// sourceRun is one provider's part of a run.
type sourceRun struct {
	engine *Engine
	src    source.Source
	req    Request
	filter *spatial.Filter
	log    *zap.Logger

	transformed, filtered, skipped atomic.Int64
}

func (s *sourceRun) stats() SourceStats {
	return SourceStats{
		Name:        s.src.Name(),
		Transformed: s.transformed.Load(),
		Filtered:    s.filtered.Load(),
		Skipped:     s.skipped.Load(),
	}
}

func (s *sourceRun) transformer(kind *record.Kind) (*transform.Transformer, error) {
	m, ok := s.engine.table.Lookup(s.src.Name(), kind.Name)
	if !ok {
		return nil, eris.Errorf("unify: no %s mapping for %s", kind.Name, s.src.Name())
	}
	return transform.New(m, s.req.Output, transform.WithFilter(s.filter)), nil
}

func (s *sourceRun) execute(ctx context.Context) ([]*record.Record, error) {
	siteSrc, ok := s.src.(source.SiteSource)
	if !ok {
		return nil, eris.Errorf("unify: %s does not list sites", s.src.Name())
	}
	siteT, err := s.transformer(record.Site)
	if err != nil {
		return nil, err
	}

	var payloads []record.Payload
	err = s.timed(func() error {
		var err error
		payloads, err = siteSrc.Sites(ctx, s.req.Output)
		return err
	})
	if err != nil {
		return nil, eris.Wrapf(err, "unify: fetch %s sites", s.src.Name())
	}

	kind := s.req.Kind
	sites := make([]*record.Record, 0, len(payloads))
	for _, p := range payloads {
		rec, err := s.emit(siteT, p, nil, kind == record.Site)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			sites = append(sites, rec)
		}
	}
	s.log.Debug("sites transformed", zap.Int("payloads", len(payloads)), zap.Int("sites", len(sites)))

	if kind == record.Site {
		return sites, nil
	}

	childT, err := s.transformer(kind)
	if err != nil {
		return nil, err
	}

	var out []*record.Record
	for _, site := range sites {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recs, err := s.children(ctx, childT, site)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

// children emits the child records of one site in the run's output mode.
func (s *sourceRun) children(ctx context.Context, t *transform.Transformer, site *record.Record) ([]*record.Record, error) {
	payloads, err := s.fetchChildren(ctx, site)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.skip(t, site.ID(), FailureFetch, err)
		return nil, nil
	}
	if len(payloads) == 0 {
		return nil, nil
	}

	out := s.req.Output
	if !out.Summary && !out.LatestOnly {
		recs := make([]*record.Record, 0, len(payloads))
		for _, p := range payloads {
			rec, err := s.emit(t, p, site, true)
			if err != nil {
				return nil, err
			}
			if rec != nil {
				recs = append(recs, rec)
			}
		}
		return recs, nil
	}

	m := t.Mapping()
	readings := make([]reading, 0, len(payloads))
	for _, p := range payloads {
		r, err := m.Read(p)
		if err != nil {
			s.skip(t, site.ID(), FailureKind(err), err)
			continue
		}
		readings = append(readings, reading{payload: p, Reading: r})
	}
	if len(readings) == 0 {
		return nil, nil
	}

	var p record.Payload
	if out.Summary {
		p = summarize(readings)
	} else {
		p = latest(readings).payload
	}
	rec, err := s.emit(t, p, site, true)
	if err != nil || rec == nil {
		return nil, err
	}
	return []*record.Record{rec}, nil
}

func (s *sourceRun) fetchChildren(ctx context.Context, site *record.Record) ([]record.Payload, error) {
	var payloads []record.Payload
	err := s.timed(func() error {
		var err error
		switch s.req.Kind {
		case record.WaterLevel:
			if src, ok := s.src.(source.WaterLevelSource); ok {
				payloads, err = src.WaterLevels(ctx, site, s.req.Output)
				return err
			}
		case record.Analyte:
			if src, ok := s.src.(source.AnalyteSource); ok {
				payloads, err = src.Analytes(ctx, site, s.req.Output)
				return err
			}
		}
		return eris.Errorf("unify: %s does not supply %s records", s.src.Name(), s.req.Kind.Name)
	})
	return payloads, err
}

// emit transforms one payload. Per-record failures are logged and skipped;
// only a fatal error is returned. counted controls whether the outcome is
// recorded, so site records fetched only as parents are not counted.
func (s *sourceRun) emit(t *transform.Transformer, p record.Payload, parent *record.Record, counted bool) (*record.Record, error) {
	rec, err := t.DoTransform(p, parent)
	if err != nil {
		if fatal(err) {
			return nil, err
		}
		s.skip(t, payloadID(t.Mapping(), p, parent), FailureKind(err), err)
		return nil, nil
	}
	if rec == nil {
		if counted {
			s.filtered.Add(1)
		}
		return nil, nil
	}
	if counted {
		s.transformed.Add(1)
		if m := s.engine.metrics; m != nil {
			m.RecordsTransformed.WithLabelValues(s.src.Name(), t.OutputKind().Name).Inc()
		}
	}
	return rec, nil
}

func (s *sourceRun) skip(t *transform.Transformer, id, failure string, err error) {
	s.skipped.Add(1)
	kind := t.OutputKind().Name
	s.log.Warn("record skipped",
		zap.String("kind", kind),
		zap.String("record_id", id),
		zap.String("failure", failure),
		zap.Error(err),
	)
	if m := s.engine.metrics; m != nil {
		m.RecordsSkipped.WithLabelValues(s.src.Name(), kind, failure).Inc()
	}
}

func (s *sourceRun) timed(fn func() error) error {
	start := s.engine.clock.Now()
	err := fn()
	if m := s.engine.metrics; m != nil {
		m.FetchDuration.WithLabelValues(s.src.Name()).Observe(s.engine.clock.Since(start).Seconds())
	}
	return err
}

// payloadID is the best-effort identifier of a payload for diagnostics: the
// mapped id when it can be read, else the parent's id.
func payloadID(m *transform.Mapping, p record.Payload, parent *record.Record) string {
	for _, f := range m.Fields {
		if f.Name != record.KeyID || f.Path == "" {
			continue
		}
		if v, ok := p.Lookup(f.Path); ok && v != nil {
			return record.FormatValue(v)
		}
	}
	if parent != nil {
		return parent.ID()
	}
	return ""
}
