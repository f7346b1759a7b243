// Package store persists enriched listing records.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/amishk599/jobenrich/internal/model"
	"github.com/amishk599/jobenrich/internal/schema"
)

// Store is a listings datastore: one bulk write per run plus the read path
// used by the browse command.
type Store interface {
	model.RecordWriter
	EnsureListingsTable(ctx context.Context, table string, columns []schema.ColumnSpec) error
	RecentRecords(ctx context.Context, table string, columns []string, limit int) ([]model.Record, error)
	Close() error
}

// Open picks a store from the datastore URL: postgres:// and postgresql://
// URLs use Postgres, sqlite:// URLs, file: URIs and *.db paths use SQLite.
// key overrides the password in a Postgres URL when set.
func Open(ctx context.Context, rawURL, key string) (Store, error) {
	switch {
	case strings.HasPrefix(rawURL, "postgres://"), strings.HasPrefix(rawURL, "postgresql://"):
		return NewPostgresStore(ctx, rawURL, key)
	case strings.HasPrefix(rawURL, "sqlite://"):
		return NewSQLiteStore(strings.TrimPrefix(rawURL, "sqlite://"))
	case strings.HasPrefix(rawURL, "file:"), strings.HasSuffix(rawURL, ".db"):
		return NewSQLiteStore(rawURL)
	}
	return nil, fmt.Errorf("unsupported datastore url %q", redact(rawURL))
}

// redact hides everything after the scheme so credentials never reach logs.
func redact(rawURL string) string {
	if i := strings.Index(rawURL, "://"); i >= 0 {
		return rawURL[:i] + "://..."
	}
	return "..."
}

// dbValue converts a record value to something both drivers accept.
func dbValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return int64(1)
		}
		return int64(0)
	}
	return v
}

func validateInsert(table string, columns []string) error {
	if table == "" {
		return fmt.Errorf("insert records: empty table name")
	}
	if len(columns) == 0 {
		return fmt.Errorf("insert records into %s: no columns", table)
	}
	return nil
}
