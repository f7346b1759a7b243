package store

import (
	"context"

	"github.com/amishk599/jobenrich/internal/model"
	"github.com/amishk599/jobenrich/internal/schema"
)

// NopStore is used in dry-run mode. Records are counted and discarded.
type NopStore struct {
	Inserted int
}

var _ Store = (*NopStore)(nil)

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) InsertRecords(_ context.Context, _ string, _ []string, records []model.Record) error {
	s.Inserted += len(records)
	return nil
}

func (s *NopStore) EnsureListingsTable(context.Context, string, []schema.ColumnSpec) error { return nil }

func (s *NopStore) RecentRecords(context.Context, string, []string, int) ([]model.Record, error) {
	return nil, nil
}

func (s *NopStore) Close() error { return nil }
