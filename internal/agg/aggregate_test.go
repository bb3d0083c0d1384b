package agg

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/sadopc/screenly/internal/category"
	"github.com/sadopc/screenly/internal/dates"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts
}

// closedEvent builds a finished event on the given day.
func closedEvent(t *testing.T, day dates.DayKey, startClock, subject string, cat category.Category, minutes int) Event {
	t.Helper()
	start := mustTime(t, string(day)+"T"+startClock+"Z")
	end := start.Add(time.Duration(minutes) * time.Minute)
	return Event{
		ID:       subject + "/" + startClock,
		Day:      day,
		Start:    start,
		End:      &end,
		Subject:  subject,
		Category: cat,
		Minutes:  minutes,
	}
}

// ============================================================
// Daily aggregation
// ============================================================

func TestAggregateBasic(t *testing.T) {
	day := dates.DayKey("2024-01-01")
	events := []Event{
		closedEvent(t, day, "09:00:00", "github.com", category.Work, 30),
		closedEvent(t, day, "12:00:00", "youtube.com", category.Entertainment, 10),
	}

	a, err := Aggregate(day, events, DefaultTopN)
	if err != nil {
		t.Fatal(err)
	}

	if a.TotalMinutes != 40 {
		t.Errorf("TotalMinutes = %d, want 40", a.TotalMinutes)
	}
	if a.ByCategory[category.Work] != 30 || a.ByCategory[category.Entertainment] != 10 {
		t.Errorf("ByCategory = %v", a.ByCategory)
	}

	want := []EntityMinutes{
		{Subject: "github.com", Minutes: 30},
		{Subject: "youtube.com", Minutes: 10},
	}
	if !reflect.DeepEqual(a.TopEntities, want) {
		t.Errorf("TopEntities = %v, want %v", a.TopEntities, want)
	}
}

func TestAggregateCategoryCompleteness(t *testing.T) {
	day := dates.DayKey("2024-01-01")
	a, err := Aggregate(day, []Event{
		closedEvent(t, day, "09:00:00", "github.com", category.Work, 30),
	}, DefaultTopN)
	if err != nil {
		t.Fatal(err)
	}

	sum := 0
	for _, c := range category.All() {
		m, ok := a.ByCategory[c]
		if !ok {
			t.Errorf("category %s missing from ByCategory", c)
		}
		sum += m
	}
	if sum != a.TotalMinutes {
		t.Errorf("categories sum to %d, total is %d", sum, a.TotalMinutes)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	day := dates.DayKey("2024-01-01")
	events := []Event{
		closedEvent(t, day, "09:00:00", "github.com", category.Work, 30),
		closedEvent(t, day, "10:00:00", "reddit.com", category.Social, 15),
		closedEvent(t, day, "11:00:00", "github.com", category.Work, 5),
	}

	first, err := Aggregate(day, events, DefaultTopN)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Aggregate(day, events, DefaultTopN)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("aggregation not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestAggregateDayMismatch(t *testing.T) {
	events := []Event{
		closedEvent(t, "2024-01-02", "09:00:00", "github.com", category.Work, 30),
	}
	_, err := Aggregate("2024-01-01", events, DefaultTopN)
	if !errors.Is(err, ErrDayMismatch) {
		t.Fatalf("want ErrDayMismatch, got %v", err)
	}
}

func TestAggregateEmptyDay(t *testing.T) {
	a, err := Aggregate("2024-01-01", nil, DefaultTopN)
	if err != nil {
		t.Fatal(err)
	}
	if a.TotalMinutes != 0 {
		t.Errorf("TotalMinutes = %d, want 0", a.TotalMinutes)
	}
	if len(a.ByCategory) != len(category.All()) {
		t.Errorf("empty day should still zero-fill every category: %v", a.ByCategory)
	}
	if len(a.TopEntities) != 0 {
		t.Errorf("empty day has top entities: %v", a.TopEntities)
	}
}

func TestAggregateTopEntityTieBreak(t *testing.T) {
	day := dates.DayKey("2024-01-01")
	events := []Event{
		closedEvent(t, day, "09:00:00", "second-seen.com", "Other", 10),
		closedEvent(t, day, "10:00:00", "first-by-order.com", "Other", 10),
	}
	// Both subjects have 10 minutes; input order decides.
	a, err := Aggregate(day, events, DefaultTopN)
	if err != nil {
		t.Fatal(err)
	}
	if a.TopEntities[0].Subject != "second-seen.com" {
		t.Errorf("tie should break by first appearance, got %v", a.TopEntities)
	}
}

func TestAggregateTopEntityTruncation(t *testing.T) {
	day := dates.DayKey("2024-01-01")
	events := []Event{
		closedEvent(t, day, "09:00:00", "a.com", "Other", 50),
		closedEvent(t, day, "10:00:00", "b.com", "Other", 40),
		closedEvent(t, day, "11:00:00", "c.com", "Other", 30),
	}
	a, err := Aggregate(day, events, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.TopEntities) != 2 {
		t.Fatalf("expected 2 top entities, got %d", len(a.TopEntities))
	}
	if a.TopEntities[0].Subject != "a.com" || a.TopEntities[1].Subject != "b.com" {
		t.Errorf("truncation kept wrong entities: %v", a.TopEntities)
	}
}

func TestAggregateMidnightCrossing(t *testing.T) {
	// Starts 23:59 on Jan 1, ends 00:01 on Jan 2: all 2 minutes belong to Jan 1.
	start := mustTime(t, "2024-01-01T23:59:00Z")
	end := start.Add(2 * time.Minute)
	ev := Event{
		ID: "e1", Day: dates.Of(start), Start: start, End: &end,
		Subject: "github.com", Category: category.Work, Minutes: 2,
	}

	a, err := Aggregate("2024-01-01", []Event{ev}, DefaultTopN)
	if err != nil {
		t.Fatal(err)
	}
	if a.TotalMinutes != 2 {
		t.Errorf("TotalMinutes = %d, want 2 (no midnight split)", a.TotalMinutes)
	}

	// And the event must not appear under Jan 2.
	if _, err := Aggregate("2024-01-02", []Event{ev}, DefaultTopN); !errors.Is(err, ErrDayMismatch) {
		t.Errorf("crossing event offered to the next day should mismatch, got %v", err)
	}
}

// ============================================================
// Running events
// ============================================================

func TestAggregateSkipsRunningEvents(t *testing.T) {
	day := dates.DayKey("2024-01-01")
	running := Event{
		ID: "r1", Day: day, Start: mustTime(t, "2024-01-01T09:00:00Z"),
		Subject: "github.com", Category: category.Work,
	}
	a, err := Aggregate(day, []Event{running}, DefaultTopN)
	if err != nil {
		t.Fatal(err)
	}
	if a.TotalMinutes != 0 {
		t.Errorf("running event counted in finalized aggregate: %d", a.TotalMinutes)
	}
}

func TestAggregateAtCountsRunningEvents(t *testing.T) {
	day := dates.DayKey("2024-01-01")
	running := Event{
		ID: "r1", Day: day, Start: mustTime(t, "2024-01-01T09:00:00Z"),
		Subject: "github.com", Category: category.Work,
	}
	asOf := mustTime(t, "2024-01-01T09:45:00Z")

	a, err := AggregateAt(day, []Event{running}, DefaultTopN, asOf)
	if err != nil {
		t.Fatal(err)
	}
	if a.TotalMinutes != 45 {
		t.Errorf("live preview TotalMinutes = %d, want 45", a.TotalMinutes)
	}
}

// ============================================================
// Duration derivation
// ============================================================

func TestDeriveMinutes(t *testing.T) {
	start := mustTime(t, "2024-01-01T09:00:00Z")

	tests := []struct {
		offset time.Duration
		want   int
	}{
		{30 * time.Minute, 30},
		{90 * time.Second, 2},  // rounds to nearest
		{29 * time.Second, 0},  // rounds down
		{0, 0},
	}
	for _, tt := range tests {
		got, err := DeriveMinutes(start, start.Add(tt.offset))
		if err != nil {
			t.Fatalf("DeriveMinutes(+%v): %v", tt.offset, err)
		}
		if got != tt.want {
			t.Errorf("DeriveMinutes(+%v) = %d, want %d", tt.offset, got, tt.want)
		}
	}
}

func TestDeriveMinutesRejectsNegative(t *testing.T) {
	start := mustTime(t, "2024-01-01T09:00:00Z")
	_, err := DeriveMinutes(start, start.Add(-time.Minute))
	if !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("want ErrInvalidEvent, got %v", err)
	}
}
