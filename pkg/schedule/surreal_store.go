package schedule

import (
	"context"
	"fmt"
)

// Querier is the subset of the SurrealDB client the store needs.
type Querier interface {
	SelectWhere(ctx context.Context, table string, filter map[string]interface{}, limit int) ([]interface{}, error)
	Upsert(ctx context.Context, table, id string, data map[string]interface{}) error
}

// SurrealStore keeps one record per date.
type SurrealStore struct {
	db    Querier
	table string
}

func NewSurrealStore(db Querier, table string) *SurrealStore {
	if table == "" {
		table = "daily_schedule"
	}
	return &SurrealStore{db: db, table: table}
}

func (s *SurrealStore) Get(ctx context.Context, date string) (*View, error) {
	rows, err := s.db.SelectWhere(ctx, s.table, map[string]interface{}{"date": date}, 1)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", s.table, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row, ok := rows[0].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected row type: %T", rows[0])
	}

	view := &View{
		Date:     stringField(row, "date"),
		Outfit:   stringField(row, "outfit"),
		Schedule: stringField(row, "schedule"),
	}
	if view.Date == "" {
		view.Date = date
	}
	return view, nil
}

func (s *SurrealStore) Save(ctx context.Context, view *View) error {
	if view == nil || view.Date == "" {
		return fmt.Errorf("schedule without date")
	}
	return s.db.Upsert(ctx, s.table, view.Date, map[string]interface{}{
		"date":     view.Date,
		"outfit":   view.Outfit,
		"schedule": view.Schedule,
	})
}

func stringField(row map[string]interface{}, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}
