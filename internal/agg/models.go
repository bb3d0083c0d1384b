// Package agg is the time aggregation engine: it reduces raw activity events
// into per-day aggregates and composes those into range summaries with
// derived metrics (focus ratio, streaks, top entities).
//
// Everything here is a pure transformation over data handed in; the only
// long-lived state is behind the Storage port.
package agg

import (
	"errors"
	"time"

	"github.com/sadopc/screenly/internal/category"
	"github.com/sadopc/screenly/internal/dates"
)

var (
	// ErrInvalidEvent rejects malformed events (empty subject, negative
	// duration, end before start).
	ErrInvalidEvent = errors.New("invalid event")

	// ErrDayMismatch rejects events routed to the wrong day bucket.
	ErrDayMismatch = errors.New("event day mismatch")
)

// Event is a single activity record. Minute-granularity events carry
// Minutes == 1 and no End; interval events carry an End (nil while running)
// and Minutes derived from End − Start rounded to the nearest minute.
//
// An event belongs to the day of its start instant even when the interval
// crosses midnight.
type Event struct {
	ID       string            `json:"id"`
	Day      dates.DayKey      `json:"day"`
	Start    time.Time         `json:"start"`
	End      *time.Time        `json:"end,omitempty"`
	Subject  string            `json:"subject"`
	Category category.Category `json:"category"`
	Minutes  int               `json:"minutes"`
}

// Running reports whether the event is still open.
func (e Event) Running() bool {
	return e.End == nil
}

// EntityMinutes is a subject with its accumulated minutes.
type EntityMinutes struct {
	Subject string `json:"subject"`
	Minutes int    `json:"minutes"`
}

// DayAggregate is the materialized summary of one day. ByCategory always
// covers the full category set (zero-filled) and sums to TotalMinutes.
// Once a fully elapsed day is materialized it is replaced wholesale, never
// patched.
type DayAggregate struct {
	Day          dates.DayKey              `json:"day"`
	TotalMinutes int                       `json:"total_minutes"`
	ByCategory   map[category.Category]int `json:"by_category"`
	TopEntities  []EntityMinutes           `json:"top_entities"`
}

// ZeroDay returns an empty aggregate for a day, with every category present.
func ZeroDay(day dates.DayKey) DayAggregate {
	byCat := make(map[category.Category]int, len(category.All()))
	for _, c := range category.All() {
		byCat[c] = 0
	}
	return DayAggregate{Day: day, ByCategory: byCat}
}

// Totals is a pointwise sum over day aggregates.
type Totals struct {
	Minutes    int                       `json:"minutes"`
	ByCategory map[category.Category]int `json:"by_category"`
}

// Summary is a composed view over a date range. It is derived on demand and
// never persisted.
type Summary struct {
	Range      dates.Range    `json:"range"`
	Days       []DayAggregate `json:"days"`
	Totals     Totals         `json:"totals"`
	TopEntity  *EntityMinutes `json:"top_entity,omitempty"`
	FocusRatio float64        `json:"focus_ratio"`
	StreakDays int            `json:"streak_days"`

	// PreviousPeriod covers the immediately preceding equal-length range,
	// present only when comparison was requested.
	PreviousPeriod *Summary `json:"previous_period,omitempty"`
}

// Storage is the port the engine needs from whatever persists events and
// aggregates. Implementations return data for day keys in [from, to]
// inclusive, ordered by start time.
type Storage interface {
	AppendEvent(e Event) error
	ListEvents(from, to dates.DayKey) ([]Event, error)
	GetAggregate(day dates.DayKey) (*DayAggregate, error)
	PutAggregate(a DayAggregate) error
	DeleteEventsBefore(day dates.DayKey) (int, error)
}
