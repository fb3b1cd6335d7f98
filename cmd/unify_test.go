package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/water-unifier/internal/config"
	"github.com/sells-group/water-unifier/internal/persist"
	"github.com/sells-group/water-unifier/internal/record"
	"github.com/sells-group/water-unifier/internal/unify"
)

func baseOutput() config.Output {
	return config.Output{
		HorizontalDatum: "WGS84",
		ElevationUnit:   "ft",
		WellDepthUnit:   "ft",
		WKT:             "POLYGON((-108 32, -108 35, -104 35, -104 32, -108 32))",
		Analyte:         "TDS",
	}
}

func parsedCommand(t *testing.T, kind *record.Kind, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addUnifyFlags(cmd, kind)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestOutputFromFlags(t *testing.T) {
	cmd := parsedCommand(t, record.Analyte,
		"--bbox", "-107,33,-106,34",
		"--elevation-unit", "m",
		"--latest",
		"--analyte", "Nitrate",
	)

	out, err := outputFromFlags(cmd, baseOutput())
	require.NoError(t, err)
	assert.Empty(t, out.WKT, "a bbox flag replaces the configured polygon")
	assert.Equal(t, "-107,33,-106,34", out.BBox)
	assert.True(t, strings.HasPrefix(out.BoundingWKT(), "POLYGON((-107 33"))
	assert.Equal(t, "m", out.ElevationUnit)
	assert.Equal(t, "ft", out.WellDepthUnit)
	assert.True(t, out.LatestOnly)
	assert.False(t, out.Summary)
	assert.Equal(t, "Nitrate", out.Analyte)
}

func TestOutputFromFlags_Unset(t *testing.T) {
	cmd := parsedCommand(t, record.Site)

	out, err := outputFromFlags(cmd, baseOutput())
	require.NoError(t, err)
	assert.Equal(t, baseOutput(), out)
}

func TestOutputFromFlags_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unit", []string{"--elevation-unit", "yards"}},
		{"bbox", []string{"--bbox", "1,2,3"}},
		{"inverted bbox", []string{"--bbox", "-104,33,-106,34"}},
		{"datum", []string{"--datum", " "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := parsedCommand(t, record.WaterLevel, tt.args...)
			_, err := outputFromFlags(cmd, baseOutput())
			assert.Error(t, err)
		})
	}
}

func TestPersistOptions(t *testing.T) {
	cfg = &config.Config{
		Store: config.StoreConfig{SQLitePath: "water.db", TablePrefix: "unified"},
		ST2:   config.ST2Config{URL: "http://st2.example/FROST-Server/v1.0"},
	}
	ctx := context.Background()

	opts, release, err := persistOptions(ctx, "CSV", "", record.WaterLevel)
	require.NoError(t, err)
	release()
	assert.Equal(t, "waterlevel", opts.Path)
	assert.Equal(t, "unified", opts.TablePrefix)
	assert.Equal(t, "water.db", opts.SQLitePath)
	assert.Nil(t, opts.Pool)

	_, _, err = persistOptions(ctx, "parquet", "out", record.Site)
	assert.ErrorContains(t, err, "unknown format")

	_, _, err = persistOptions(ctx, persist.FormatPostgres, "", record.Site)
	assert.ErrorContains(t, err, "store.database_url")

	_, _, err = persistOptions(ctx, persist.FormatST2, "", record.Site)
	assert.ErrorContains(t, err, "st2.user")

	cfg.ST2.User, cfg.ST2.Password = "writer", "secret"
	opts, _, err = persistOptions(ctx, persist.FormatST2, "", record.Site)
	require.NoError(t, err)
	assert.NotNil(t, opts.ST2)
}

func TestPrintSummary(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	res := &unify.Result{
		RunID:   "run-1",
		Kind:    record.Site,
		Records: []*record.Record{record.New(record.Site, nil), record.New(record.Site, nil)},
		Sources: []unify.SourceStats{
			{Name: "AMPAPI", Transformed: 2, Filtered: 1},
			{Name: "WQP", Err: errors.New("unexpected status 503")},
		},
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
	}

	var buf bytes.Buffer
	printSummary(&buf, res, "csv")
	out := buf.String()
	assert.Contains(t, out, "run run-1: 2 site records written as csv in 1.5s")
	assert.Contains(t, out, "transformed=2 filtered=1 skipped=0 ok")
	assert.Contains(t, out, "failed: unexpected status 503")
}

func TestPrintSources(t *testing.T) {
	var buf bytes.Buffer
	printSources(&buf, newRegistry(&config.Config{
		Sources: map[string]config.SourceConfig{"bor": {Disabled: true}},
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "AMPAPI"))
	assert.True(t, strings.HasPrefix(lines[3], "WQP"))
	assert.Contains(t, lines[3], "analyte")
}
