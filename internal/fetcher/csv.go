// Package fetcher downloads provider data over HTTP with retry and rate
// limiting, and decodes the JSON and CSV bodies the providers return.
package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune            // default ','
	HasHeader  bool            // if true, first row is skipped but sent to HeaderCh
	HeaderCh   chan<- []string // optional: receives the header row
	Comment    rune            // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
}

// StreamCSV reads a CSV file and sends rows to a channel.
// Caller must consume the returned row channel. Errors are sent on the error channel.
// Both channels are closed when processing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		if opts.Comment != 0 {
			reader.Comment = opts.Comment
		}
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1 // allow variable fields

		first := true
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			row, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			if opts.TrimSpace {
				for i, field := range row {
					row[i] = strings.TrimSpace(field)
				}
			}

			if first && opts.HasHeader {
				first = false
				if opts.HeaderCh != nil {
					select {
					case opts.HeaderCh <- row:
					case <-ctx.Done():
						errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled sending header")
						return
					}
				}
				continue
			}
			first = false

			select {
			case rowCh <- row:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadCSVMaps reads a CSV body with a header row into one map per row,
// keyed by column name. Short rows fill the missing columns with "".
func ReadCSVMaps(ctx context.Context, r io.Reader) ([]map[string]any, error) {
	headerCh := make(chan []string, 1)
	rows, errs := StreamCSV(ctx, r, CSVOptions{
		HasHeader:  true,
		HeaderCh:   headerCh,
		LazyQuotes: true,
		TrimSpace:  true,
	})

	var (
		header []string
		out    []map[string]any
	)
	for row := range rows {
		if header == nil {
			// The header is sent before the first row.
			header = <-headerCh
		}
		m := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(row) {
				m[col] = row[i]
			} else {
				m[col] = ""
			}
		}
		out = append(out, m)
	}
	if err := <-errs; err != nil {
		return nil, err
	}
	return out, nil
}
