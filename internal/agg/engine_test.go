package agg

import (
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/sadopc/screenly/internal/category"
	"github.com/sadopc/screenly/internal/dates"
)

// memStorage is an in-memory storage port for engine tests.
type memStorage struct {
	events     map[dates.DayKey][]Event
	aggregates map[dates.DayKey]DayAggregate

	failAppend bool
	putCount   int
}

func newMemStorage() *memStorage {
	return &memStorage{
		events:     make(map[dates.DayKey][]Event),
		aggregates: make(map[dates.DayKey]DayAggregate),
	}
}

func (m *memStorage) AppendEvent(e Event) error {
	if m.failAppend {
		return errors.New("storage unavailable")
	}
	m.events[e.Day] = append(m.events[e.Day], e)
	return nil
}

func (m *memStorage) ListEvents(from, to dates.DayKey) ([]Event, error) {
	var out []Event
	for day, events := range m.events {
		if !day.Before(from) && !to.Before(day) {
			out = append(out, events...)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *memStorage) GetAggregate(day dates.DayKey) (*DayAggregate, error) {
	a, ok := m.aggregates[day]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *memStorage) PutAggregate(a DayAggregate) error {
	m.putCount++
	m.aggregates[a.Day] = a
	return nil
}

func (m *memStorage) DeleteEventsBefore(day dates.DayKey) (int, error) {
	n := 0
	for d, events := range m.events {
		if d.Before(day) {
			n += len(events)
			delete(m.events, d)
		}
	}
	return n, nil
}

// testEngine pins the clock to 2024-01-15 18:00 UTC.
func testEngine(t *testing.T, st Storage) *Engine {
	t.Helper()
	now := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)
	return NewEngine(st, WithNow(func() time.Time { return now }))
}

func seedDay(t *testing.T, st *memStorage, day dates.DayKey, subject string, cat category.Category, minutes int) {
	t.Helper()
	start := day.Time().Add(9 * time.Hour)
	end := start.Add(time.Duration(minutes) * time.Minute)
	st.events[day] = append(st.events[day], Event{
		ID: string(day) + "/" + subject, Day: day, Start: start, End: &end,
		Subject: subject, Category: cat, Minutes: minutes,
	})
}

// ============================================================
// Recording
// ============================================================

func TestRecordEventClassifiesAndDerives(t *testing.T) {
	st := newMemStorage()
	e := testEngine(t, st)

	start := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	end := start.Add(25 * time.Minute)
	ev, err := e.RecordEvent("github.com", start, &end)
	if err != nil {
		t.Fatal(err)
	}

	if ev.ID == "" {
		t.Error("event should get an ID")
	}
	if ev.Day != "2024-01-15" {
		t.Errorf("Day = %s", ev.Day)
	}
	if ev.Category != category.Work {
		t.Errorf("Category = %s, want Work", ev.Category)
	}
	if ev.Minutes != 25 {
		t.Errorf("Minutes = %d, want 25", ev.Minutes)
	}
	if len(st.events["2024-01-15"]) != 1 {
		t.Error("event not appended to storage")
	}
}

func TestRecordEventValidation(t *testing.T) {
	st := newMemStorage()
	e := testEngine(t, st)
	start := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	if _, err := e.RecordEvent("  ", start, nil); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("empty subject: want ErrInvalidEvent, got %v", err)
	}

	before := start.Add(-time.Hour)
	if _, err := e.RecordEvent("github.com", start, &before); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("end before start: want ErrInvalidEvent, got %v", err)
	}
	if len(st.events) != 0 {
		t.Error("invalid events must not reach storage")
	}
}

func TestRecordMinute(t *testing.T) {
	st := newMemStorage()
	e := testEngine(t, st)

	ev, err := e.RecordMinute("reddit.com", time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Minutes != 1 {
		t.Errorf("minute event Minutes = %d, want 1", ev.Minutes)
	}
	if ev.Category != category.Social {
		t.Errorf("Category = %s, want Social", ev.Category)
	}
}

func TestShouldRecordMinute(t *testing.T) {
	tests := []struct {
		focused, visible, idle bool
		want                   bool
	}{
		{true, true, false, true},
		{false, true, false, false},
		{true, false, false, false},
		{true, true, true, false},
		{false, false, true, false},
	}
	for _, tt := range tests {
		if got := ShouldRecordMinute(tt.focused, tt.visible, tt.idle); got != tt.want {
			t.Errorf("ShouldRecordMinute(%v, %v, %v) = %v, want %v",
				tt.focused, tt.visible, tt.idle, got, tt.want)
		}
	}
}

// ============================================================
// Day aggregates and caching
// ============================================================

func TestDayAggregatePrefersCacheForPastDays(t *testing.T) {
	st := newMemStorage()
	e := testEngine(t, st)

	day := dates.DayKey("2024-01-10")
	seedDay(t, st, day, "github.com", category.Work, 30)

	cached := ZeroDay(day)
	cached.TotalMinutes = 999
	st.aggregates[day] = cached

	a, err := e.DayAggregate(day, false)
	if err != nil {
		t.Fatal(err)
	}
	if a.TotalMinutes != 999 {
		t.Errorf("expected cached aggregate, got %d minutes", a.TotalMinutes)
	}

	// forceRecompute re-derives from raw events.
	a, err = e.DayAggregate(day, true)
	if err != nil {
		t.Fatal(err)
	}
	if a.TotalMinutes != 30 {
		t.Errorf("forced recompute = %d minutes, want 30", a.TotalMinutes)
	}
}

func TestDayAggregateTodayIsLive(t *testing.T) {
	st := newMemStorage()
	e := testEngine(t, st)

	today := dates.DayKey("2024-01-15")
	// Stale cache entry must be ignored for the in-progress day.
	stale := ZeroDay(today)
	stale.TotalMinutes = 999
	st.aggregates[today] = stale

	seedDay(t, st, today, "github.com", category.Work, 20)
	// Running session started 17:00; clock is pinned at 18:00.
	st.events[today] = append(st.events[today], Event{
		ID: "running", Day: today,
		Start:   time.Date(2024, 1, 15, 17, 0, 0, 0, time.UTC),
		Subject: "figma.com", Category: category.Work,
	})

	a, err := e.DayAggregate(today, false)
	if err != nil {
		t.Fatal(err)
	}
	if a.TotalMinutes != 80 {
		t.Errorf("live today = %d minutes, want 20 closed + 60 running = 80", a.TotalMinutes)
	}
}

// ============================================================
// Summaries
// ============================================================

func TestSummaryInvalidRange(t *testing.T) {
	e := testEngine(t, newMemStorage())
	if _, err := e.Summary("quarter", false); !errors.Is(err, dates.ErrInvalidRange) {
		t.Fatalf("want ErrInvalidRange, got %v", err)
	}
}

func TestSummarySumConservation(t *testing.T) {
	st := newMemStorage()
	e := testEngine(t, st)

	seedDay(t, st, "2024-01-13", "github.com", category.Work, 120)
	seedDay(t, st, "2024-01-14", "youtube.com", category.Entertainment, 45)
	seedDay(t, st, "2024-01-15", "reddit.com", category.Social, 15)

	s, err := e.Summary("7d", false)
	if err != nil {
		t.Fatal(err)
	}

	daySum := 0
	catSum := make(map[category.Category]int)
	for _, d := range s.Days {
		daySum += d.TotalMinutes
		for c, m := range d.ByCategory {
			catSum[c] += m
		}
	}
	if daySum != s.Totals.Minutes {
		t.Errorf("sum of days %d != totals %d", daySum, s.Totals.Minutes)
	}
	if !reflect.DeepEqual(catSum, s.Totals.ByCategory) {
		t.Errorf("per-category sums diverge:\n%v\n%v", catSum, s.Totals.ByCategory)
	}
	if s.Totals.Minutes != 180 {
		t.Errorf("Totals.Minutes = %d, want 180", s.Totals.Minutes)
	}
}

func TestSummaryCoversFullCalendarSpan(t *testing.T) {
	st := newMemStorage()
	e := testEngine(t, st)

	// Only one day has data; the summary still spans all 8 calendar days.
	seedDay(t, st, "2024-01-10", "github.com", category.Work, 60)

	s, err := e.Summary("7d", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Days) != 8 {
		t.Fatalf("expected 8 day aggregates, got %d", len(s.Days))
	}
	for _, d := range s.Days {
		if len(d.ByCategory) != len(category.All()) {
			t.Errorf("day %s not zero-filled: %v", d.Day, d.ByCategory)
		}
	}
}

func TestSummaryTopEntityMergesAcrossDays(t *testing.T) {
	st := newMemStorage()
	e := testEngine(t, st)

	// steady.com is #2 every day but wins the range overall.
	seedDay(t, st, "2024-01-13", "spike-a.com", category.Other, 50)
	seedDay(t, st, "2024-01-13", "steady.com", category.Work, 40)
	seedDay(t, st, "2024-01-14", "spike-b.com", category.Other, 50)
	seedDay(t, st, "2024-01-14", "steady.com", category.Work, 40)
	seedDay(t, st, "2024-01-15", "steady.com", category.Work, 40)

	s, err := e.Summary("7d", false)
	if err != nil {
		t.Fatal(err)
	}
	if s.TopEntity == nil {
		t.Fatal("no top entity")
	}
	if s.TopEntity.Subject != "steady.com" || s.TopEntity.Minutes != 120 {
		t.Errorf("TopEntity = %+v, want steady.com with 120", s.TopEntity)
	}
}

func TestSummaryEmptyRange(t *testing.T) {
	e := testEngine(t, newMemStorage())

	s, err := e.Summary("today", false)
	if err != nil {
		t.Fatal(err)
	}
	if s.Totals.Minutes != 0 {
		t.Errorf("Totals.Minutes = %d, want 0", s.Totals.Minutes)
	}
	if s.FocusRatio != 0 {
		t.Errorf("FocusRatio = %f, want 0", s.FocusRatio)
	}
	if s.TopEntity != nil {
		t.Errorf("TopEntity = %+v, want nil", s.TopEntity)
	}
}

func TestSummaryPreviousPeriod(t *testing.T) {
	st := newMemStorage()
	e := testEngine(t, st)

	seedDay(t, st, "2024-01-15", "github.com", category.Work, 60)
	seedDay(t, st, "2024-01-05", "github.com", category.Work, 90)

	s, err := e.Summary("7d", true)
	if err != nil {
		t.Fatal(err)
	}
	prev := s.PreviousPeriod
	if prev == nil {
		t.Fatal("previous period missing")
	}
	if prev.PreviousPeriod != nil {
		t.Error("previous period must not recurse further")
	}
	if prev.Totals.Minutes != 90 {
		t.Errorf("previous totals = %d, want 90", prev.Totals.Minutes)
	}
	if !prev.Range.End.Before(s.Range.Start) {
		t.Error("periods overlap")
	}
}

func TestFocusRatio(t *testing.T) {
	tests := []struct {
		minutes, days int
		want          float64
	}{
		{0, 0, 0},
		{0, 7, 0},
		{960, 1, 100},
		{480, 1, 50},
		{100, 3, 3.47}, // 100/2880 → 3.4722…, rounded to 2 places
	}
	for _, tt := range tests {
		if got := FocusRatio(tt.minutes, tt.days); got != tt.want {
			t.Errorf("FocusRatio(%d, %d) = %v, want %v", tt.minutes, tt.days, got, tt.want)
		}
	}
}

// ============================================================
// Streaks
// ============================================================

func TestStreak(t *testing.T) {
	today := dates.DayKey("2024-01-15")

	active := func(day dates.DayKey, minutes int) DayAggregate {
		a := ZeroDay(day)
		a.TotalMinutes = minutes
		return a
	}

	tests := []struct {
		name string
		days []DayAggregate
		want int
	}{
		{"empty", nil, 0},
		{"three then gap", []DayAggregate{
			active("2024-01-12", 0),
			active("2024-01-13", 10),
			active("2024-01-14", 20),
			active("2024-01-15", 30),
		}, 3},
		{"today inactive", []DayAggregate{
			active("2024-01-14", 20),
			active("2024-01-15", 0),
		}, 0},
		{"missing day breaks", []DayAggregate{
			active("2024-01-13", 10),
			active("2024-01-15", 30),
		}, 1},
		{"only today", []DayAggregate{
			active("2024-01-15", 5),
		}, 1},
	}
	for _, tt := range tests {
		if got := Streak(tt.days, today); got != tt.want {
			t.Errorf("%s: Streak = %d, want %d", tt.name, got, tt.want)
		}
	}
}

// ============================================================
// Rollup and retention
// ============================================================

func TestRollupMaterializesAndPrunes(t *testing.T) {
	st := newMemStorage()
	e := testEngine(t, st)

	yesterday := dates.DayKey("2024-01-14")
	old := dates.DayKey("2023-12-01") // past the 30-day window
	seedDay(t, st, yesterday, "github.com", category.Work, 60)
	seedDay(t, st, old, "github.com", category.Work, 10)
	seedDay(t, st, "2024-01-15", "github.com", category.Work, 5) // today, untouched

	res, err := e.Rollup()
	if err != nil {
		t.Fatal(err)
	}

	if a := st.aggregates[yesterday]; a.TotalMinutes != 60 {
		t.Errorf("yesterday not materialized: %+v", a)
	}
	if _, ok := st.aggregates["2024-01-15"]; ok {
		t.Error("today must never be materialized by rollup")
	}
	if res.Pruned != 1 {
		t.Errorf("Pruned = %d, want 1", res.Pruned)
	}
	if _, ok := st.events[old]; ok {
		t.Error("old events should be pruned")
	}
	if len(st.events[yesterday]) != 1 {
		t.Error("events inside the retention window must survive")
	}
}

func TestRollupIdempotent(t *testing.T) {
	st := newMemStorage()
	e := testEngine(t, st)

	yesterday := dates.DayKey("2024-01-14")
	seedDay(t, st, yesterday, "github.com", category.Work, 60)

	if _, err := e.Rollup(); err != nil {
		t.Fatal(err)
	}
	first := st.aggregates[yesterday]

	if _, err := e.Rollup(); err != nil {
		t.Fatal(err)
	}
	second := st.aggregates[yesterday]

	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-running rollup changed the aggregate:\n%+v\n%+v", first, second)
	}
}

func TestRollupKeepsAggregateAfterEventsPruned(t *testing.T) {
	st := newMemStorage()
	e := testEngine(t, st)

	yesterday := dates.DayKey("2024-01-14")
	seedDay(t, st, yesterday, "github.com", category.Work, 60)

	if _, err := e.Rollup(); err != nil {
		t.Fatal(err)
	}
	// Simulate a later run where yesterday's raw events are already gone.
	delete(st.events, yesterday)
	if _, err := e.Rollup(); err != nil {
		t.Fatal(err)
	}

	if a := st.aggregates[yesterday]; a.TotalMinutes != 60 {
		t.Errorf("materialized aggregate lost after prune: %+v", a)
	}
}

func TestPruneEventsBeforeCount(t *testing.T) {
	st := newMemStorage()
	e := testEngine(t, st)

	seedDay(t, st, "2024-01-01", "a.com", category.Other, 10)
	seedDay(t, st, "2024-01-01", "b.com", category.Other, 10)
	seedDay(t, st, "2024-01-10", "c.com", category.Other, 10)

	n, err := e.PruneEventsBefore("2024-01-05")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("pruned %d events, want 2", n)
	}
	if len(st.events["2024-01-10"]) != 1 {
		t.Error("later events must survive")
	}
}

// ============================================================
// Percent change
// ============================================================

func TestPercentChange(t *testing.T) {
	tests := []struct {
		current, previous, want float64
	}{
		{150, 100, 50},
		{50, 100, -50},
		{100, 100, 0},
		{10, 0, 100},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := PercentChange(tt.current, tt.previous); got != tt.want {
			t.Errorf("PercentChange(%v, %v) = %v, want %v", tt.current, tt.previous, got, tt.want)
		}
	}
}
