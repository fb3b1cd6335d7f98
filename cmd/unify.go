package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/water-unifier/internal/config"
	"github.com/sells-group/water-unifier/internal/fetcher"
	"github.com/sells-group/water-unifier/internal/observability"
	"github.com/sells-group/water-unifier/internal/persist"
	"github.com/sells-group/water-unifier/internal/record"
	"github.com/sells-group/water-unifier/internal/source"
	"github.com/sells-group/water-unifier/internal/transform"
	"github.com/sells-group/water-unifier/internal/unify"
	"github.com/sells-group/water-unifier/pkg/frost"
)

// addUnifyFlags registers the flags shared by the unify commands. Child kinds
// get the summary and latest switches; analytes also get --analyte.
func addUnifyFlags(cmd *cobra.Command, kind *record.Kind) {
	f := cmd.Flags()
	f.String("bbox", "", "bounding box minx,miny,maxx,maxy in WGS84")
	f.String("wkt", "", "bounding polygon as WKT (overrides --bbox)")
	f.StringSlice("sources", nil, "providers to query (default all)")
	f.StringP("output", "o", "", "output path, extension added per format (default the record kind)")
	f.String("format", persist.FormatCSV, "output format: "+strings.Join(persist.Formats(), "|"))
	f.String("datum", "", "output horizontal datum (default from config)")
	f.String("elevation-unit", "", "output elevation unit, ft or m")
	f.String("well-depth-unit", "", "output well depth unit, ft or m")
	f.Int("concurrency", unify.DefaultConcurrency, "providers fetched at once")

	if kind != record.Site {
		f.Bool("summary", false, "emit one summary row per site instead of observations")
		f.Bool("latest", false, "emit only the most recent observation per site")
	}
	if kind == record.Analyte {
		f.String("analyte", "", "water-quality parameter (TDS, Nitrate, Arsenic, Chloride)")
	}
}

// outputFromFlags overlays the flags the user set on the configured output.
func outputFromFlags(cmd *cobra.Command, base config.Output) (config.Output, error) {
	out := base
	flags := cmd.Flags()

	strs := []struct {
		name string
		dst  *string
	}{
		{"bbox", &out.BBox},
		{"wkt", &out.WKT},
		{"datum", &out.HorizontalDatum},
		{"elevation-unit", &out.ElevationUnit},
		{"well-depth-unit", &out.WellDepthUnit},
		{"analyte", &out.Analyte},
	}
	for _, s := range strs {
		if !flags.Changed(s.name) {
			continue
		}
		v, err := flags.GetString(s.name)
		if err != nil {
			return out, eris.Wrapf(err, "read --%s", s.name)
		}
		*s.dst = strings.TrimSpace(v)
	}
	// A bbox given on the command line replaces a configured polygon.
	if flags.Changed("bbox") && !flags.Changed("wkt") {
		out.WKT = ""
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"summary", &out.Summary},
		{"latest", &out.LatestOnly},
	}
	for _, b := range bools {
		if !flags.Changed(b.name) {
			continue
		}
		v, err := flags.GetBool(b.name)
		if err != nil {
			return out, eris.Wrapf(err, "read --%s", b.name)
		}
		*b.dst = v
	}

	if err := out.Validate(); err != nil {
		return out, err
	}
	return out, nil
}

// newFetcher builds the shared provider fetcher from cfg.HTTP.
func newFetcher(c config.HTTPConfig) fetcher.Fetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  c.UserAgent,
		Timeout:    time.Duration(c.TimeoutSecs) * time.Second,
		MaxRetries: c.MaxRetries,

		BreakerThreshold: c.BreakerThreshold,
		BreakerReset:     time.Duration(c.BreakerResetSecs) * time.Second,
	})
}

// newRegistry registers every configured provider.
func newRegistry(c *config.Config) *source.Registry {
	return source.NewDefaultRegistry(c, newFetcher(c.HTTP), func(baseURL string) frost.Client {
		return frost.NewClient(baseURL)
	})
}

// openPool connects to store.database_url.
func openPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, eris.New("unify: postgres output needs store.database_url")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "unify: create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "unify: ping database")
	}
	return pool, nil
}

// persistOptions resolves everything a format needs except the run id, which
// is only known once the run finishes. The returned func releases any
// connection opened here.
func persistOptions(ctx context.Context, format, path string, kind *record.Kind) (persist.Options, func(), error) {
	format = strings.ToLower(strings.TrimSpace(format))
	noop := func() {}

	if !slices.Contains(persist.Formats(), format) {
		return persist.Options{}, noop, eris.Errorf("unknown format %q (want one of %s)", format, strings.Join(persist.Formats(), ", "))
	}
	if path == "" {
		path = kind.Name
	}

	opts := persist.Options{
		Path:        path,
		TablePrefix: cfg.Store.TablePrefix,
		SQLitePath:  cfg.Store.SQLitePath,
	}

	switch format {
	case persist.FormatPostgres:
		pool, err := openPool(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return opts, noop, err
		}
		opts.Pool = pool
		return opts, pool.Close, nil
	case persist.FormatST2:
		if cfg.ST2.User == "" || cfg.ST2.Password == "" {
			return opts, noop, eris.New("unify: st2 output needs st2.user and st2.password")
		}
		opts.ST2 = frost.NewClient(cfg.ST2.URL, frost.WithBasicAuth(cfg.ST2.User, cfg.ST2.Password))
	}
	return opts, noop, nil
}

// runUnify runs one record kind through the engine and saves the result.
func runUnify(cmd *cobra.Command, kind *record.Kind) error {
	ctx := cmd.Context()
	log := zap.L().With(zap.String("command", cmd.Name()))

	out, err := outputFromFlags(cmd, cfg.Output)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	path, _ := cmd.Flags().GetString("output")
	sources, _ := cmd.Flags().GetStringSlice("sources")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	opts, release, err := persistOptions(ctx, format, path, kind)
	if err != nil {
		return err
	}
	defer release()

	table, err := transform.DefaultTable()
	if err != nil {
		return eris.Wrap(err, "load field mappings")
	}

	metrics := observability.NewMetrics()
	engine := unify.NewEngine(newRegistry(cfg), table,
		unify.WithMetrics(metrics),
		unify.WithConcurrency(concurrency),
	)

	res, err := engine.Run(ctx, unify.Request{Kind: kind, Sources: sources, Output: out})
	if err != nil {
		return eris.Wrapf(err, "unify %s", kind.Name)
	}

	opts.RunID = res.RunID
	p, err := persist.New(format, opts)
	if err != nil {
		return err
	}
	if err := p.Save(ctx, res.Kind, res.Records); err != nil {
		return eris.Wrapf(err, "save %s records", res.Kind.Name)
	}

	if path := cfg.Metrics.TextfilePath; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			log.Warn("failed to write metrics textfile", zap.String("path", path), zap.Error(err))
		}
	}

	printSummary(cmd.OutOrStdout(), res, format)
	return nil
}

// printSummary writes the per-source counts of a run.
func printSummary(w io.Writer, res *unify.Result, format string) {
	fmt.Fprintf(w, "run %s: %d %s records written as %s in %s\n",
		res.RunID, len(res.Records), res.Kind.Name, format, res.Duration().Round(time.Millisecond))
	for _, s := range res.Sources {
		status := "ok"
		if s.Err != nil {
			status = "failed: " + s.Err.Error()
		}
		fmt.Fprintf(w, "  %-12s transformed=%d filtered=%d skipped=%d %s\n",
			s.Name, s.Transformed, s.Filtered, s.Skipped, status)
	}
}
