package persist

import (
	"context"
	"encoding/csv"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/water-unifier/internal/record"
)

// CSV writes one header row of the kind's columns followed by one row per
// record.
type CSV struct {
	Path string
}

// Save implements Persister.
func (c *CSV) Save(_ context.Context, kind *record.Kind, records []*record.Record) error {
	f, err := os.Create(c.Path)
	if err != nil {
		return eris.Wrapf(err, "persist: create %s", c.Path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(kind.Keys); err != nil {
		return eris.Wrap(err, "persist: write csv header")
	}
	for _, r := range records {
		if err := w.Write(r.StringRow()); err != nil {
			return eris.Wrapf(err, "persist: write csv row %s", r.ID())
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "persist: flush csv")
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "persist: close %s", c.Path)
	}

	zap.L().Info("persist: wrote csv", zap.String("path", c.Path), zap.Int("records", len(records)))
	return nil
}
