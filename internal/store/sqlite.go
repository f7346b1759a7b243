package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/amishk599/jobenrich/internal/model"
	"github.com/amishk599/jobenrich/internal/schema"

	_ "modernc.org/sqlite"
)

// SQLiteStore writes enriched listings to a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// EnsureListingsTable creates table with one column per spec if it does not exist.
func (s *SQLiteStore) EnsureListingsTable(ctx context.Context, table string, columns []schema.ColumnSpec) error {
	defs := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		defs = append(defs, quoteIdent(c.Name)+" "+sqliteType(c.Kind))
	}
	defs = append(defs, "inserted_at DATETIME DEFAULT CURRENT_TIMESTAMP")

	createTable := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", quoteIdent(table), strings.Join(defs, ",\n\t"))
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("creating %s table: %w", table, err)
	}
	return nil
}

func sqliteType(kind string) string {
	switch kind {
	case schema.KindReal:
		return "REAL"
	case schema.KindInteger:
		return "INTEGER"
	}
	return "TEXT"
}

// InsertRecords writes all records in one transaction. Either every record is
// stored or none is.
func (s *SQLiteStore) InsertRecords(ctx context.Context, table string, columns []string, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := validateInsert(table, columns); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert into %s: %w", table, err)
	}
	defer tx.Rollback()

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(quoted, ", "), placeholders))
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	args := make([]any, len(columns))
	for _, rec := range records {
		for i, c := range columns {
			args[i] = dbValue(rec[c])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert %v into %s: %w", rec[schema.IDColumn], table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert into %s: %w", table, err)
	}
	return nil
}

// RecentRecords returns up to limit of the most recently inserted rows.
func (s *SQLiteStore) RecentRecords(ctx context.Context, table string, columns []string, limit int) ([]model.Record, error) {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY inserted_at DESC, rowid DESC LIMIT ?",
		strings.Join(quoted, ", "), quoteIdent(table))

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		vals := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		rec := make(model.Record, len(columns))
		for i, c := range columns {
			if b, ok := vals[i].([]byte); ok {
				rec[c] = string(b)
			} else {
				rec[c] = vals[i]
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
