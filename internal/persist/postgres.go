package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// DefaultTable holds one row per state key.
const DefaultTable = "rigcart_state"

var tablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresBackend stores documents in a key/JSONB table.
type PostgresBackend struct {
	db    *sqlx.DB
	table string
	now   func() time.Time
}

// OpenPostgres connects with a lib/pq DSN and makes sure the table exists.
func OpenPostgres(ctx context.Context, dsn, table string) (*PostgresBackend, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	pg, err := NewPostgresBackend(db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return pg, nil
}

// NewPostgresBackend wraps an open connection.
func NewPostgresBackend(db *sqlx.DB, table string) (*PostgresBackend, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tablePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid state table name %q", table)
	}
	return &PostgresBackend{db: db, table: table, now: time.Now}, nil
}

// Migrate creates the state table if needed.
func (p *PostgresBackend) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			state      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`, p.table))
	if err != nil {
		return fmt.Errorf("creating state table: %w", err)
	}
	return nil
}

type stateRow struct {
	Key       string    `db:"key"`
	State     []byte    `db:"state"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Load implements Backend.
func (p *PostgresBackend) Load(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	var row stateRow
	err := p.db.GetContext(ctx, &row,
		fmt.Sprintf(`SELECT key, state, updated_at FROM %s WHERE key = $1`, p.table), key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading state %s: %w", key, err)
	}
	return row.State, nil
}

// Save implements Backend as an upsert.
func (p *PostgresBackend) Save(ctx context.Context, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	row := stateRow{Key: key, State: data, UpdatedAt: p.now().UTC()}
	_, err := p.db.NamedExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (key, state, updated_at)
		VALUES (:key, :state, :updated_at)
		ON CONFLICT (key) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`, p.table), row)
	if err != nil {
		return fmt.Errorf("saving state %s: %w", key, err)
	}
	return nil
}

// Close implements Backend.
func (p *PostgresBackend) Close() error {
	return p.db.Close()
}
