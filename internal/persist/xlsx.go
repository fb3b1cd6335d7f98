package persist

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/water-unifier/internal/record"
)

// XLSX writes one sheet named after the kind: a header row, then a row per
// record. Numbers are stored as numeric cells.
type XLSX struct {
	Path string
}

// Save implements Persister.
func (x *XLSX) Save(_ context.Context, kind *record.Kind, records []*record.Record) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(kind.Name)
	if err != nil {
		return eris.Wrapf(err, "persist: add sheet %s", kind.Name)
	}

	header := sheet.AddRow()
	for _, k := range kind.Keys {
		header.AddCell().SetString(k)
	}

	for _, r := range records {
		row := sheet.AddRow()
		for _, v := range r.Row() {
			cell := row.AddCell()
			switch t := v.(type) {
			case float64:
				cell.SetFloat(t)
			case int:
				cell.SetInt(t)
			default:
				cell.SetString(record.FormatValue(v))
			}
		}
	}

	if err := f.Save(x.Path); err != nil {
		return eris.Wrapf(err, "persist: save %s", x.Path)
	}

	zap.L().Info("persist: wrote xlsx", zap.String("path", x.Path), zap.Int("records", len(records)))
	return nil
}
