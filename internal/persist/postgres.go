package persist

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/water-unifier/internal/record"
)

// Pool is the subset of pgxpool.Pool the Postgres persister uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnSrc []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Postgres appends records to "<prefix>_<kind>" with the COPY protocol.
// Every column is text; run_id groups the rows of one run.
type Postgres struct {
	pool   Pool
	prefix string
	runID  string
}

// NewPostgres creates the persister.
func NewPostgres(pool Pool, prefix, runID string) *Postgres {
	return &Postgres{pool: pool, prefix: prefix, runID: runID}
}

// Save implements Persister.
func (p *Postgres) Save(ctx context.Context, kind *record.Kind, records []*record.Record) error {
	table := tableName(p.prefix, kind)
	columns := append([]string{"run_id"}, kind.Keys...)

	if _, err := p.pool.Exec(ctx, createTableSQL(pgx.Identifier{table}.Sanitize(), columns, quoteIdent)); err != nil {
		return eris.Wrapf(err, "persist: create table %s", table)
	}
	if len(records) == 0 {
		return nil
	}

	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = append([]any{p.runID}, textRow(r)...)
	}

	n, err := p.pool.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return eris.Wrapf(err, "persist: COPY INTO %s", table)
	}

	zap.L().Info("persist: copied rows", zap.String("table", table), zap.Int64("rows", n))
	return nil
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// createTableSQL renders CREATE TABLE IF NOT EXISTS with one text column per
// name. table must already be quoted.
func createTableSQL(table string, columns []string, quote func(string) string) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = quote(c) + " TEXT"
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", "))
}
