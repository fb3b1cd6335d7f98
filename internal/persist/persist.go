// Package persist writes normalized records to files, databases or a
// SensorThings service.
package persist

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/water-unifier/internal/record"
	"github.com/sells-group/water-unifier/pkg/frost"
)

// Persister saves one run's records of a single kind.
type Persister interface {
	Save(ctx context.Context, kind *record.Kind, records []*record.Record) error
}

// Output formats.
const (
	FormatCSV       = "csv"
	FormatGeoJSON   = "geojson"
	FormatShapefile = "shapefile"
	FormatXLSX      = "xlsx"
	FormatPostgres  = "postgres"
	FormatSQLite    = "sqlite"
	FormatST2       = "st2"
)

// Options carries what the persisters need. Each format reads only its own
// fields.
type Options struct {
	// Path is the output file for the file formats. The format's extension
	// is appended when missing.
	Path string

	// RunID is stamped on every database row.
	RunID string
	// TablePrefix names database tables "<prefix>_<kind>".
	TablePrefix string

	Pool       Pool   // postgres
	SQLitePath string // sqlite
	ST2        frost.Client
}

var extensions = map[string]string{
	FormatCSV:       ".csv",
	FormatGeoJSON:   ".geojson",
	FormatShapefile: ".shp",
	FormatXLSX:      ".xlsx",
}

// Formats lists the supported output formats.
func Formats() []string {
	return []string{FormatCSV, FormatGeoJSON, FormatShapefile, FormatXLSX, FormatPostgres, FormatSQLite, FormatST2}
}

// New returns the persister for format.
func New(format string, opts Options) (Persister, error) {
	format = strings.ToLower(strings.TrimSpace(format))

	if ext, ok := extensions[format]; ok {
		if opts.Path == "" {
			return nil, eris.Errorf("persist: %s output needs a path", format)
		}
		path := WithExtension(opts.Path, ext)
		switch format {
		case FormatCSV:
			return &CSV{Path: path}, nil
		case FormatGeoJSON:
			return &GeoJSON{Path: path}, nil
		case FormatShapefile:
			return &Shapefile{Path: path}, nil
		default:
			return &XLSX{Path: path}, nil
		}
	}

	switch format {
	case FormatPostgres:
		if opts.Pool == nil {
			return nil, eris.New("persist: postgres output needs a connection pool")
		}
		return NewPostgres(opts.Pool, opts.TablePrefix, opts.RunID), nil
	case FormatSQLite:
		if opts.SQLitePath == "" {
			return nil, eris.New("persist: sqlite output needs a database path")
		}
		return NewSQLite(opts.SQLitePath, opts.TablePrefix, opts.RunID), nil
	case FormatST2:
		if opts.ST2 == nil {
			return nil, eris.New("persist: st2 output needs a SensorThings client")
		}
		return NewST2(opts.ST2), nil
	}
	return nil, eris.Errorf("persist: unknown format %q (want one of %s)", format, strings.Join(Formats(), ", "))
}

// WithExtension appends ext to path unless path already ends with it.
func WithExtension(path, ext string) string {
	if strings.EqualFold(filepath.Ext(path), ext) {
		return path
	}
	return path + ext
}

// tableName is the database table for kind.
func tableName(prefix string, kind *record.Kind) string {
	if prefix == "" {
		return kind.Name
	}
	return prefix + "_" + kind.Name
}

// properties maps a record's columns to their serialized values.
func properties(kind *record.Kind, r *record.Record) map[string]any {
	row := r.Row()
	props := make(map[string]any, len(kind.Keys))
	for i, k := range kind.Keys {
		props[k] = row[i]
	}
	return props
}

// textRow renders a record as nullable text columns.
func textRow(r *record.Record) []any {
	row := r.Row()
	out := make([]any, len(row))
	for i, v := range row {
		if v == nil {
			continue
		}
		out[i] = record.FormatValue(v)
	}
	return out
}

// coordinates returns the point of a spatial record.
func coordinates(r *record.Record) (lng, lat float64, ok bool) {
	lng, okX := r.Float(record.KeyLongitude)
	lat, okY := r.Float(record.KeyLatitude)
	return lng, lat, okX && okY
}

func requireSpatial(format string, kind *record.Kind) error {
	if !kind.Spatial() {
		return eris.Errorf("persist: %s output needs point records; %s records have no coordinates", format, kind.Name)
	}
	return nil
}
