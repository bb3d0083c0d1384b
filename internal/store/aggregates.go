package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sadopc/screenly/internal/agg"
	"github.com/sadopc/screenly/internal/category"
	"github.com/sadopc/screenly/internal/dates"
)

// GetAggregate returns the cached aggregate for a day, or nil when none has
// been materialized.
func (s *Store) GetAggregate(day dates.DayKey) (*agg.DayAggregate, error) {
	var total int
	var byCat, topEnt string
	err := s.db.QueryRow(
		`SELECT total_minutes, by_category, top_entities FROM aggregates WHERE day = ?`,
		string(day),
	).Scan(&total, &byCat, &topEnt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get aggregate %s: %w", day, err)
	}

	a := agg.DayAggregate{Day: day, TotalMinutes: total}
	if err := json.Unmarshal([]byte(byCat), &a.ByCategory); err != nil {
		return nil, fmt.Errorf("decode aggregate %s categories: %w", day, err)
	}
	if err := json.Unmarshal([]byte(topEnt), &a.TopEntities); err != nil {
		return nil, fmt.Errorf("decode aggregate %s entities: %w", day, err)
	}
	// Older rows may predate categories added to the table since.
	for _, c := range category.All() {
		if _, ok := a.ByCategory[c]; !ok {
			a.ByCategory[c] = 0
		}
	}
	return &a, nil
}

// PutAggregate replaces a day's aggregate wholesale. Readers see either the
// previous row or the new one, never a partial write.
func (s *Store) PutAggregate(a agg.DayAggregate) error {
	byCat, err := json.Marshal(a.ByCategory)
	if err != nil {
		return fmt.Errorf("encode aggregate %s categories: %w", a.Day, err)
	}
	topEnt, err := json.Marshal(a.TopEntities)
	if err != nil {
		return fmt.Errorf("encode aggregate %s entities: %w", a.Day, err)
	}
	if a.TopEntities == nil {
		topEnt = []byte("[]")
	}

	_, err = s.db.Exec(
		`INSERT INTO aggregates (day, total_minutes, by_category, top_entities, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(day) DO UPDATE SET
		   total_minutes = excluded.total_minutes,
		   by_category   = excluded.by_category,
		   top_entities  = excluded.top_entities,
		   updated_at    = excluded.updated_at`,
		string(a.Day), a.TotalMinutes, string(byCat), string(topEnt),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("put aggregate %s: %w", a.Day, err)
	}
	return nil
}

// DumpAggregates returns every materialized aggregate keyed by day, for
// export.
func (s *Store) DumpAggregates() (map[dates.DayKey]agg.DayAggregate, error) {
	rows, err := s.db.Query(`SELECT day FROM aggregates ORDER BY day`)
	if err != nil {
		return nil, fmt.Errorf("dump aggregates: %w", err)
	}
	defer rows.Close()

	var days []dates.DayKey
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		days = append(days, dates.DayKey(day))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make(map[dates.DayKey]agg.DayAggregate, len(days))
	for _, day := range days {
		a, err := s.GetAggregate(day)
		if err != nil {
			return nil, err
		}
		if a != nil {
			out[day] = *a
		}
	}
	return out, nil
}

// ReplaceAll swaps the entire store contents for the given events and
// aggregates in one transaction. Any failure rolls back, leaving existing
// data untouched.
func (s *Store) ReplaceAll(events map[dates.DayKey][]agg.Event, aggregates map[dates.DayKey]agg.DayAggregate) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("replace all: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM events`); err != nil {
		return fmt.Errorf("replace all: clear events: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM aggregates`); err != nil {
		return fmt.Errorf("replace all: clear aggregates: %w", err)
	}

	for day, dayEvents := range events {
		for _, e := range dayEvents {
			var endStr *string
			if e.End != nil {
				v := e.End.UTC().Format(time.RFC3339)
				endStr = &v
			}
			if _, err := tx.Exec(
				`INSERT INTO events (id, day, start_time, end_time, subject, category, minutes)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				e.ID, string(day), e.Start.UTC().Format(time.RFC3339), endStr,
				e.Subject, string(e.Category), e.Minutes,
			); err != nil {
				return fmt.Errorf("replace all: insert event %s: %w", e.ID, err)
			}
		}
	}

	for day, a := range aggregates {
		byCat, err := json.Marshal(a.ByCategory)
		if err != nil {
			return fmt.Errorf("replace all: encode %s: %w", day, err)
		}
		topEnt, err := json.Marshal(a.TopEntities)
		if err != nil {
			return fmt.Errorf("replace all: encode %s: %w", day, err)
		}
		if a.TopEntities == nil {
			topEnt = []byte("[]")
		}
		if _, err := tx.Exec(
			`INSERT INTO aggregates (day, total_minutes, by_category, top_entities, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			string(day), a.TotalMinutes, string(byCat), string(topEnt),
			time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("replace all: insert aggregate %s: %w", day, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace all: commit: %w", err)
	}
	return nil
}
