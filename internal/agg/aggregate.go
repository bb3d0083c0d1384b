package agg

import (
	"fmt"
	"sort"
	"time"

	"github.com/sadopc/screenly/internal/dates"
)

// DefaultTopN is how many entities a day aggregate retains.
const DefaultTopN = 10

// Aggregate reduces one day's events into a DayAggregate. Every event must
// carry the given day key; a foreign-day event is a caller error
// (ErrDayMismatch), not something to drop silently.
//
// Running events contribute nothing: finalized aggregates only count closed
// activity. AggregateAt is the live-preview variant that counts them.
//
// The result is deterministic for a fixed input, so re-running an aggregation
// is always safe.
func Aggregate(day dates.DayKey, events []Event, topN int) (DayAggregate, error) {
	return aggregate(day, events, topN, nil)
}

// AggregateAt is Aggregate with running events counted up to asOf. It exists
// for the current, still-accumulating day; its output must not be cached.
func AggregateAt(day dates.DayKey, events []Event, topN int, asOf time.Time) (DayAggregate, error) {
	return aggregate(day, events, topN, &asOf)
}

func aggregate(day dates.DayKey, events []Event, topN int, asOf *time.Time) (DayAggregate, error) {
	if topN <= 0 {
		topN = DefaultTopN
	}

	out := ZeroDay(day)
	bySubject := make(map[string]int)
	firstSeen := make(map[string]int)

	for i, e := range events {
		if e.Day != day {
			return DayAggregate{}, fmt.Errorf("%w: event %s is for %s, aggregating %s",
				ErrDayMismatch, e.ID, e.Day, day)
		}

		minutes := e.Minutes
		if e.Running() {
			if asOf == nil {
				continue
			}
			minutes = liveMinutes(e.Start, *asOf)
		}
		if minutes <= 0 {
			continue
		}

		out.TotalMinutes += minutes
		out.ByCategory[e.Category] += minutes
		if _, ok := bySubject[e.Subject]; !ok {
			firstSeen[e.Subject] = i
		}
		bySubject[e.Subject] += minutes
	}

	out.TopEntities = topEntities(bySubject, firstSeen, topN)
	return out, nil
}

// topEntities orders subjects by minutes descending, ties broken by first
// appearance in the input, truncated to n.
func topEntities(bySubject map[string]int, firstSeen map[string]int, n int) []EntityMinutes {
	entities := make([]EntityMinutes, 0, len(bySubject))
	for subject, minutes := range bySubject {
		entities = append(entities, EntityMinutes{Subject: subject, Minutes: minutes})
	}
	sort.SliceStable(entities, func(i, j int) bool {
		if entities[i].Minutes != entities[j].Minutes {
			return entities[i].Minutes > entities[j].Minutes
		}
		return firstSeen[entities[i].Subject] < firstSeen[entities[j].Subject]
	})
	if len(entities) > n {
		entities = entities[:n]
	}
	return entities
}

// liveMinutes is the open-interval duration from start to asOf, rounded to
// the nearest minute, floored at zero.
func liveMinutes(start, asOf time.Time) int {
	if asOf.Before(start) {
		return 0
	}
	return int(asOf.Sub(start).Round(time.Minute) / time.Minute)
}

// DeriveMinutes computes an interval event's duration, rounded to the nearest
// minute. An interval ending before it starts is invalid.
func DeriveMinutes(start, end time.Time) (int, error) {
	if end.Before(start) {
		return 0, fmt.Errorf("%w: end %s before start %s",
			ErrInvalidEvent, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return int(end.Sub(start).Round(time.Minute) / time.Minute), nil
}
