package persist

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/water-unifier/internal/record"
)

// dBase field names are at most 10 bytes.
const dbfNameLen = 10

// dbfTextLen is the width of every attribute column.
const dbfTextLen = 254

// Shapefile writes a POINT shapefile (.shp, .shx, .dbf) with the record
// columns as text attributes.
type Shapefile struct {
	Path string
}

// Save implements Persister. Records without numeric coordinates are
// skipped; a point shapefile cannot hold them.
func (s *Shapefile) Save(_ context.Context, kind *record.Kind, records []*record.Record) error {
	if err := requireSpatial(FormatShapefile, kind); err != nil {
		return err
	}

	w, err := shp.Create(s.Path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "persist: create shapefile %s", s.Path)
	}
	defer w.Close()

	names := dbfFieldNames(kind.Keys)
	fields := make([]shp.Field, len(names))
	for i, name := range names {
		fields[i] = shp.StringField(name, dbfTextLen)
	}
	if err := w.SetFields(fields); err != nil {
		return eris.Wrap(err, "persist: set shapefile fields")
	}

	var skipped int
	for _, r := range records {
		lng, lat, ok := coordinates(r)
		if !ok {
			skipped++
			continue
		}
		n := int(w.Write(&shp.Point{X: lng, Y: lat}))
		for i, v := range r.StringRow() {
			v = truncateUTF8(v, dbfTextLen)
			if err := w.WriteAttribute(n, i, v); err != nil {
				return eris.Wrapf(err, "persist: write shapefile attribute %s", names[i])
			}
		}
	}

	if skipped > 0 {
		zap.L().Warn("persist: skipped records without coordinates",
			zap.String("path", s.Path),
			zap.Int("skipped", skipped),
		)
	}
	zap.L().Info("persist: wrote shapefile", zap.String("path", s.Path), zap.Int("records", len(records)-skipped))
	return nil
}

// dbfFieldNames shortens column names to the dBase limit, numbering any
// that collide after truncation ("depth_to_w", "depth_to_1").
func dbfFieldNames(keys []string) []string {
	names := make([]string, len(keys))
	seen := make(map[string]bool, len(keys))
	for i, k := range keys {
		name := k
		if len(name) > dbfNameLen {
			name = name[:dbfNameLen]
		}
		for n := 1; seen[strings.ToLower(name)]; n++ {
			suffix := strconv.Itoa(n)
			name = k[:min(len(k), dbfNameLen-len(suffix))] + suffix
		}
		seen[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
