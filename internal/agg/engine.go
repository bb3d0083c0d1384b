package agg

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sadopc/screenly/internal/category"
	"github.com/sadopc/screenly/internal/dates"
)

// DefaultRetentionDays is how long raw events are kept after their day's
// aggregate has been materialized.
const DefaultRetentionDays = 30

// Engine ties the pure aggregation functions to a Storage port. It holds no
// state of its own beyond configuration; every operation re-derives from
// stored events, so retrying after a storage failure is always safe.
type Engine struct {
	storage    Storage
	classifier *category.Classifier

	topN          int
	retentionDays int
	now           func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClassifier replaces the default classification table.
func WithClassifier(c *category.Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

// WithTopN sets how many entities day aggregates retain.
func WithTopN(n int) Option {
	return func(e *Engine) { e.topN = n }
}

// WithRetentionDays sets the raw-event retention window.
func WithRetentionDays(n int) Option {
	return func(e *Engine) { e.retentionDays = n }
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine over the given storage.
func NewEngine(s Storage, opts ...Option) *Engine {
	e := &Engine{
		storage:       s,
		classifier:    category.Default(),
		topN:          DefaultTopN,
		retentionDays: DefaultRetentionDays,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RecordEvent validates, classifies and appends an interval event. A nil end
// records a still-running event (zero minutes until closed).
func (e *Engine) RecordEvent(subject string, start time.Time, end *time.Time) (Event, error) {
	if strings.TrimSpace(subject) == "" {
		return Event{}, fmt.Errorf("%w: empty subject", ErrInvalidEvent)
	}

	minutes := 0
	if end != nil {
		var err error
		if minutes, err = DeriveMinutes(start, *end); err != nil {
			return Event{}, err
		}
	}

	ev := Event{
		ID:       uuid.NewString(),
		Day:      dates.Of(start),
		Start:    start.UTC(),
		End:      end,
		Subject:  subject,
		Category: e.classifier.Classify(subject),
		Minutes:  minutes,
	}
	if end != nil {
		u := end.UTC()
		ev.End = &u
	}

	if err := e.storage.AppendEvent(ev); err != nil {
		return Event{}, fmt.Errorf("append event: %w", err)
	}
	return ev, nil
}

// RecordMinute appends a one-minute event at ts, the shape produced by
// per-minute samplers.
func (e *Engine) RecordMinute(subject string, ts time.Time) (Event, error) {
	end := ts.Add(time.Minute)
	return e.RecordEvent(subject, ts, &end)
}

// ShouldRecordMinute is the sampling predicate: a minute counts only when the
// window is focused, the tab visible, and the user not idle. Callers pass
// their observed state in explicitly instead of the engine reading any
// ambient flags.
func ShouldRecordMinute(focused, visible, idle bool) bool {
	return focused && visible && !idle
}

// DayAggregate returns the aggregate for a day. Fully elapsed days come from
// the cache when present; the current day is always recomputed live (running
// events counted against now) and never cached. forceRecompute bypasses the
// cache and re-derives from raw events.
func (e *Engine) DayAggregate(day dates.DayKey, forceRecompute bool) (DayAggregate, error) {
	now := e.now().UTC()
	today := dates.Of(now)

	if !forceRecompute && day.Before(today) {
		cached, err := e.storage.GetAggregate(day)
		if err != nil {
			return DayAggregate{}, fmt.Errorf("get aggregate %s: %w", day, err)
		}
		if cached != nil {
			return *cached, nil
		}
	}

	events, err := e.storage.ListEvents(day, day)
	if err != nil {
		return DayAggregate{}, fmt.Errorf("list events %s: %w", day, err)
	}
	if day == today {
		return AggregateAt(day, events, e.topN, now)
	}
	return Aggregate(day, events, e.topN)
}

// Summary resolves a named range ("today", "7d", "30d") and summarizes it,
// optionally with the preceding equal-length period attached.
func (e *Engine) Summary(rangeName string, compare bool) (Summary, error) {
	r, err := dates.RangeFor(rangeName, e.now())
	if err != nil {
		return Summary{}, err
	}
	return e.SummarizeRange(r, compare)
}

// SummarizeRange builds a Summary covering every calendar day in r. Days with
// no cached aggregate and no events appear as zero aggregates, so the summary
// always spans the full calendar range.
func (e *Engine) SummarizeRange(r dates.Range, includePrevious bool) (Summary, error) {
	today := dates.Of(e.now())

	var days []DayAggregate
	for _, key := range r.Keys() {
		d, err := e.DayAggregate(key, false)
		if err != nil {
			return Summary{}, err
		}
		days = append(days, d)
	}

	s := composeSummary(r, days, today)

	if includePrevious {
		prev, err := e.SummarizeRange(dates.PreviousPeriod(r), false)
		if err != nil {
			return Summary{}, err
		}
		s.PreviousPeriod = &prev
	}
	return s, nil
}

// RollupResult reports what a rollup pass did.
type RollupResult struct {
	Materialized []dates.DayKey
	Pruned       int
}

// Rollup finalizes yesterday's aggregate (and any earlier day inside the
// retention window that has events but no cached aggregate, so missed runs
// catch up), then prunes events older than the retention window. Each
// aggregate is computed fully before being swapped in, and the whole pass can
// be re-run after a partial failure without corrupting prior state.
func (e *Engine) Rollup() (RollupResult, error) {
	now := e.now().UTC()
	today := dates.Of(now)
	cutoff := today.Add(-e.retentionDays)

	var res RollupResult
	for day := cutoff; day.Before(today); day = day.Next() {
		cached, err := e.storage.GetAggregate(day)
		if err != nil {
			return res, fmt.Errorf("get aggregate %s: %w", day, err)
		}
		if cached != nil && day != today.Prev() {
			continue
		}

		events, err := e.storage.ListEvents(day, day)
		if err != nil {
			return res, fmt.Errorf("list events %s: %w", day, err)
		}
		if len(events) == 0 && cached == nil {
			continue
		}

		a, err := Aggregate(day, events, e.topN)
		if err != nil {
			return res, fmt.Errorf("aggregate %s: %w", day, err)
		}
		if cached != nil && a.TotalMinutes == 0 {
			// Events already pruned; keep the materialized aggregate.
			continue
		}
		if err := e.storage.PutAggregate(a); err != nil {
			return res, fmt.Errorf("put aggregate %s: %w", day, err)
		}
		res.Materialized = append(res.Materialized, day)
	}

	pruned, err := e.PruneEventsBefore(cutoff)
	if err != nil {
		return res, err
	}
	res.Pruned = pruned
	return res, nil
}

// PruneEventsBefore deletes raw events for days strictly before cutoff and
// returns how many were removed. Materialized aggregates are untouched.
func (e *Engine) PruneEventsBefore(cutoff dates.DayKey) (int, error) {
	n, err := e.storage.DeleteEventsBefore(cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune events before %s: %w", cutoff, err)
	}
	return n, nil
}
