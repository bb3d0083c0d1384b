package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sadopc/screenly/internal/agg"
	"github.com/sadopc/screenly/internal/category"
	"github.com/sadopc/screenly/internal/dates"
)

// AppendEvent inserts one event into its day's log. Appends never touch
// aggregates; concurrent writers interleave safely at the row level.
func (s *Store) AppendEvent(e agg.Event) error {
	var endStr *string
	if e.End != nil {
		v := e.End.UTC().Format(time.RFC3339)
		endStr = &v
	}
	_, err := s.db.Exec(
		`INSERT INTO events (id, day, start_time, end_time, subject, category, minutes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Day), e.Start.UTC().Format(time.RFC3339), endStr,
		e.Subject, string(e.Category), e.Minutes,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// ListEvents returns all events with day keys in [from, to], ordered by
// start time.
func (s *Store) ListEvents(from, to dates.DayKey) ([]agg.Event, error) {
	rows, err := s.db.Query(
		`SELECT id, day, start_time, end_time, subject, category, minutes
		 FROM events WHERE day >= ? AND day <= ?
		 ORDER BY start_time, id`,
		string(from), string(to),
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// RecentEvents returns the latest events across all days, newest first.
func (s *Store) RecentEvents(limit int) ([]agg.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, day, start_time, end_time, subject, category, minutes
		 FROM events ORDER BY start_time DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// DeleteEventsBefore removes events for days strictly before cutoff and
// returns how many rows went away.
func (s *Store) DeleteEventsBefore(cutoff dates.DayKey) (int, error) {
	res, err := s.db.Exec(`DELETE FROM events WHERE day < ?`, string(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete events before %s: %w", cutoff, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete events before %s: %w", cutoff, err)
	}
	return int(n), nil
}

// DumpEvents returns the entire event log grouped by day, for export.
func (s *Store) DumpEvents() (map[dates.DayKey][]agg.Event, error) {
	rows, err := s.db.Query(
		`SELECT id, day, start_time, end_time, subject, category, minutes
		 FROM events ORDER BY day, start_time, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("dump events: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	byDay := make(map[dates.DayKey][]agg.Event)
	for _, e := range events {
		byDay[e.Day] = append(byDay[e.Day], e)
	}
	return byDay, nil
}

func scanEvents(rows *sql.Rows) ([]agg.Event, error) {
	var events []agg.Event
	for rows.Next() {
		var e agg.Event
		var day, startStr, cat string
		var endStr sql.NullString
		if err := rows.Scan(&e.ID, &day, &startStr, &endStr, &e.Subject, &cat, &e.Minutes); err != nil {
			return nil, err
		}
		e.Day = dates.DayKey(day)
		e.Category = category.Category(cat)
		e.Start, _ = time.Parse(time.RFC3339, startStr)
		if endStr.Valid {
			t, _ := time.Parse(time.RFC3339, endStr.String)
			e.End = &t
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
