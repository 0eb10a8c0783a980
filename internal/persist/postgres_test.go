package persist

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*PostgresBackend, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pg, err := NewPostgresBackend(sqlx.NewDb(db, "postgres"), "")
	require.NoError(t, err)
	pg.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return pg, mock
}

func TestPostgresMigrate(t *testing.T) {
	pg, mock := newMockPostgres(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS rigcart_state")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, pg.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveUpserts(t *testing.T) {
	pg, mock := newMockPostgres(t)
	data := []byte(`{"items":[]}`)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rigcart_state (key, state, updated_at)")).
		WithArgs(KeyCart, data, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, pg.Save(context.Background(), KeyCart, data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLoad(t *testing.T) {
	pg, mock := newMockPostgres(t)
	rows := sqlmock.NewRows([]string{"key", "state", "updated_at"}).
		AddRow(KeyBuild, []byte(`{"current_build":{}}`), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, state, updated_at FROM rigcart_state WHERE key = $1")).
		WithArgs(KeyBuild).
		WillReturnRows(rows)

	got, err := pg.Load(context.Background(), KeyBuild)
	require.NoError(t, err)
	assert.JSONEq(t, `{"current_build":{}}`, string(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLoadMissing(t *testing.T) {
	pg, mock := newMockPostgres(t)
	mock.ExpectQuery("SELECT key, state, updated_at FROM rigcart_state").
		WithArgs(KeyCart).
		WillReturnError(sql.ErrNoRows)

	_, err := pg.Load(context.Background(), KeyCart)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresFailureDegradesAdapter(t *testing.T) {
	pg, mock := newMockPostgres(t)
	mock.ExpectExec("INSERT INTO rigcart_state").WillReturnError(errors.New("connection reset"))

	a := NewAdapter(pg)
	a.Save(context.Background(), KeyCart, doc{Name: "x"})
	assert.True(t, a.Degraded())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRejectsBadTableName(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewPostgresBackend(sqlx.NewDb(db, "postgres"), "state; DROP TABLE users")
	assert.Error(t, err)
}
