package persist

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/water-unifier/internal/record"
)

func testSites() []*record.Record {
	return []*record.Record{
		record.New(record.Site, map[string]any{
			record.KeySource:          "AMPAPI",
			record.KeyID:              "NM-1",
			record.KeyName:            "Well One",
			record.KeyLatitude:        34.5,
			record.KeyLongitude:       -106.5,
			record.KeyElevation:       5249.3456,
			record.KeyHorizontalDatum: "WGS84",
		}),
		record.New(record.Site, map[string]any{
			record.KeySource:    "WQP/NWIS",
			record.KeyID:        "USGS-2",
			record.KeyLatitude:  33.25,
			record.KeyLongitude: -105.75,
		}),
	}
}

func TestNew(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	tests := []struct {
		format string
		opts   Options
		want   any
	}{
		{"csv", Options{Path: filepath.Join(dir, "out")}, &CSV{}},
		{"GeoJSON", Options{Path: filepath.Join(dir, "out")}, &GeoJSON{}},
		{"shapefile", Options{Path: filepath.Join(dir, "out")}, &Shapefile{}},
		{"xlsx", Options{Path: filepath.Join(dir, "out")}, &XLSX{}},
		{"sqlite", Options{SQLitePath: filepath.Join(dir, "w.db")}, &SQLite{}},
	}
	for _, tt := range tests {
		p, err := New(tt.format, tt.opts)
		require.NoError(t, err, tt.format)
		assert.IsType(t, tt.want, p, tt.format)
	}

	p, err := New("csv", Options{Path: filepath.Join(dir, "out.CSV")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out.CSV"), p.(*CSV).Path)

	for _, format := range []string{"csv", "postgres", "sqlite", "st2", "parquet"} {
		_, err := New(format, Options{})
		assert.Error(t, err, format)
	}
}

func TestWithExtension(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "out.csv", WithExtension("out", ".csv"))
	assert.Equal(t, "out.csv", WithExtension("out.csv", ".csv"))
	assert.Equal(t, "out.json.geojson", WithExtension("out.json", ".geojson"))
}

func TestCSV_Save(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "sites.csv")

	require.NoError(t, (&CSV{Path: path}).Save(context.Background(), record.Site, testSites()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, record.Site.Keys, rows[0])
	for _, row := range rows {
		assert.Len(t, row, len(record.Site.Keys))
	}
	assert.Equal(t, "NM-1", rows[1][1])
	assert.Equal(t, "5249.35", rows[1][5])
	// Defaults fill unset columns.
	assert.Equal(t, "ft", rows[2][6])
}

func TestCSV_SaveEmpty(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, (&CSV{Path: path}).Save(context.Background(), record.Analyte, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(record.Analyte.Keys, ",")+"\n", string(data))
}

func TestGeoJSON_Save(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "sites.geojson")
	recs := append(testSites(), record.New(record.Site, map[string]any{record.KeyID: "no-coords"}))

	require.NoError(t, (&GeoJSON{Path: path}).Save(context.Background(), record.Site, recs))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "Point", fc.Features[0].Geometry.Type)
	assert.Equal(t, []float64{-106.5, 34.5}, fc.Features[0].Geometry.Coordinates)
	assert.Equal(t, "NM-1", fc.Features[0].Properties["id"])
	assert.Len(t, fc.Features[0].Properties, len(record.Site.Keys))
}

func TestGeoJSON_NonSpatialKind(t *testing.T) {
	t.Parallel()
	err := (&GeoJSON{Path: filepath.Join(t.TempDir(), "a.geojson")}).Save(context.Background(), record.Analyte, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no coordinates")
}

func TestShapefile_Save(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "sites.shp")
	require.NoError(t, (&Shapefile{Path: path}).Save(context.Background(), record.Site, testSites()))

	reader, err := shp.Open(path)
	require.NoError(t, err)
	defer reader.Close()

	fields := reader.Fields()
	require.Len(t, fields, len(record.Site.Keys))
	idIdx := -1
	for i, f := range fields {
		if strings.TrimRight(f.String(), "\x00") == "id" {
			idIdx = i
		}
	}
	require.GreaterOrEqual(t, idIdx, 0)

	var ids []string
	var points []*shp.Point
	for reader.Next() {
		_, shape := reader.Shape()
		points = append(points, shape.(*shp.Point))
		ids = append(ids, strings.TrimSpace(strings.TrimRight(reader.Attribute(idIdx), "\x00")))
	}
	assert.Equal(t, []string{"NM-1", "USGS-2"}, ids)
	assert.InDelta(t, -106.5, points[0].X, 1e-9)
	assert.InDelta(t, 34.5, points[0].Y, 1e-9)
}

func TestTruncateUTF8(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "abc", truncateUTF8("abc", 5))
	assert.Equal(t, "ab", truncateUTF8("abcd", 2))
	// "é" is two bytes; a cut inside it backs off to the rune start.
	assert.Equal(t, "a", truncateUTF8("aé", 2))
	assert.Equal(t, "aé", truncateUTF8("aéb", 3))

	long := strings.Repeat("ñ", 200)
	got := truncateUTF8(long, dbfTextLen)
	assert.True(t, utf8.ValidString(got))
	assert.Len(t, got, 254)
}

func TestShapefile_SaveMultibyteAttribute(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "sites.shp")
	name := strings.Repeat("a", 253) + "ñ"
	recs := []*record.Record{record.New(record.Site, map[string]any{
		record.KeyID:        "NM-9",
		record.KeyName:      name,
		record.KeyLatitude:  34.0,
		record.KeyLongitude: -106.0,
	})}
	require.NoError(t, (&Shapefile{Path: path}).Save(context.Background(), record.Site, recs))

	reader, err := shp.Open(path)
	require.NoError(t, err)
	defer reader.Close()
	nameIdx := -1
	for i, f := range reader.Fields() {
		if strings.TrimRight(f.String(), "\x00") == "name" {
			nameIdx = i
		}
	}
	require.GreaterOrEqual(t, nameIdx, 0)
	require.True(t, reader.Next())
	got := strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 253), got)
}

func TestDBFFieldNames(t *testing.T) {
	t.Parallel()
	got := dbfFieldNames([]string{"id", "horizontal_datum", "horizontal_datum_2", "well_depth_units"})
	assert.Equal(t, []string{"id", "horizontal", "horizonta1", "well_depth"}, got)
	for _, n := range dbfFieldNames(record.Summary.Keys) {
		assert.LessOrEqual(t, len(n), 10)
	}
}

func TestXLSX_Save(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "sites.xlsx")
	require.NoError(t, (&XLSX{Path: path}).Save(context.Background(), record.Site, testSites()))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := f.Sheet["site"]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "source", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "NM-1", sheet.Rows[1].Cells[1].String())

	lat, err := sheet.Rows[1].Cells[3].Float()
	require.NoError(t, err)
	assert.InDelta(t, 34.5, lat, 1e-9)
}
