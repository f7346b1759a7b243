package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amishk599/jobenrich/internal/model"
	"github.com/amishk599/jobenrich/internal/schema"
)

// PostgresStore writes enriched listings to Postgres (including Supabase).
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates and verifies a connection pool. A non-empty key
// replaces the password in databaseURL.
func NewPostgresStore(ctx context.Context, databaseURL, key string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing datastore url %s: %w", redact(databaseURL), err)
	}
	if key != "" {
		cfg.ConnConfig.Password = key
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// tableIdent splits an optionally schema-qualified table name.
func tableIdent(table string) pgx.Identifier {
	return pgx.Identifier(strings.Split(table, "."))
}

// EnsureListingsTable creates table with one column per spec if it does not exist.
func (s *PostgresStore) EnsureListingsTable(ctx context.Context, table string, columns []schema.ColumnSpec) error {
	defs := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		defs = append(defs, pgx.Identifier{c.Name}.Sanitize()+" "+postgresType(c.Kind))
	}
	defs = append(defs, "inserted_at TIMESTAMPTZ NOT NULL DEFAULT now()")

	createTable := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", tableIdent(table).Sanitize(), strings.Join(defs, ",\n\t"))
	if _, err := s.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("creating %s table: %w", table, err)
	}
	return nil
}

func postgresType(kind string) string {
	switch kind {
	case schema.KindReal:
		return "DOUBLE PRECISION"
	case schema.KindInteger:
		return "BIGINT"
	}
	return "TEXT"
}

// InsertRecords streams all records with COPY in a single round trip.
func (s *PostgresStore) InsertRecords(ctx context.Context, table string, columns []string, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := validateInsert(table, columns); err != nil {
		return err
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = dbValue(rec[c])
		}
		rows[i] = row
	}

	n, err := s.pool.CopyFrom(ctx, tableIdent(table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy into %s: %w", table, err)
	}
	if int(n) != len(records) {
		return fmt.Errorf("copy into %s: wrote %d of %d records", table, n, len(records))
	}
	return nil
}

// RecentRecords returns up to limit of the most recently inserted rows.
func (s *PostgresStore) RecentRecords(ctx context.Context, table string, columns []string, limit int) ([]model.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY inserted_at DESC LIMIT $1",
		strings.Join(sanitizeAll(columns), ", "), tableIdent(table).Sanitize())

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		rec := make(model.Record, len(columns))
		for i, c := range columns {
			rec[c] = vals[i]
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func sanitizeAll(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = pgx.Identifier{c}.Sanitize()
	}
	return out
}
