package persist

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/water-unifier/internal/record"
)

// SQLite appends records to "<prefix>_<kind>" in a SQLite database file,
// inserting all rows of a save in one transaction.
type SQLite struct {
	path   string
	prefix string
	runID  string
}

// NewSQLite creates the persister. The database is opened on each Save.
func NewSQLite(path, prefix, runID string) *SQLite {
	return &SQLite{path: path, prefix: prefix, runID: runID}
}

// Save implements Persister.
func (s *SQLite) Save(ctx context.Context, kind *record.Kind, records []*record.Record) error {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return eris.Wrap(err, "sqlite: open")
	}
	defer db.Close() //nolint:errcheck

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		return eris.Wrap(err, "sqlite: exec PRAGMA busy_timeout")
	}

	table := tableName(s.prefix, kind)
	columns := append([]string{"run_id"}, kind.Keys...)
	if _, err := db.ExecContext(ctx, createTableSQL(sqliteIdent(table), columns, sqliteIdent)); err != nil {
		return eris.Wrapf(err, "sqlite: create table %s", table)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = sqliteIdent(c)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		sqliteIdent(table),
		strings.Join(quoted, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "),
	)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return eris.Wrapf(err, "sqlite: prepare insert %s", table)
	}
	defer stmt.Close() //nolint:errcheck

	for _, r := range records {
		args := append([]any{s.runID}, textRow(r)...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return eris.Wrapf(err, "sqlite: insert %s %s", kind.Name, r.ID())
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit")
	}

	zap.L().Info("persist: inserted rows", zap.String("table", table), zap.String("db", s.path), zap.Int("rows", len(records)))
	return nil
}

func sqliteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
