package persist

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/water-unifier/internal/record"
)

func TestPostgres_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	columns := append([]string{"run_id"}, record.Site.Keys...)
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "water_site" ("run_id" TEXT, "source" TEXT`)).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"water_site"}, columns).WillReturnResult(2)

	p := NewPostgres(mock, "water", "run-1")
	require.NoError(t, p.Save(context.Background(), record.Site, testSites()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, NewPostgres(mock, "", "run-1").Save(context.Background(), record.Analyte, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"site"}, append([]string{"run_id"}, record.Site.Keys...)).
		WillReturnError(errors.New("permission denied"))

	err = NewPostgres(mock, "", "run-1").Save(context.Background(), record.Site, testSites())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO site")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateTableError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnError(errors.New("no schema"))

	err = NewPostgres(mock, "x", "run-1").Save(context.Background(), record.Site, testSites())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create table x_site")
}

func TestTextRow(t *testing.T) {
	t.Parallel()
	r := record.New(record.Analyte, map[string]any{
		record.KeyID: "USGS-1",
		"result":     12.5,
	})
	row := textRow(r)
	require.Len(t, row, len(record.Analyte.Keys))
	assert.Nil(t, row[0])
	assert.Equal(t, "USGS-1", row[1])
	assert.Equal(t, "12.5", row[5])
	// time_measured falls back to its default.
	assert.Equal(t, "", row[3])
}
