package agg

import (
	"math"

	"github.com/sadopc/screenly/internal/category"
	"github.com/sadopc/screenly/internal/dates"
)

// ConsideredMinutesPerDay is the focus-ratio denominator per day: a 16-hour
// waking day. The ratio is tracked minutes as a percentage of this budget.
const ConsideredMinutesPerDay = 16 * 60

// composeSummary builds a Summary from one aggregate per calendar day in the
// range. Callers guarantee days covers the range completely and in order;
// missing days arrive as zero aggregates.
func composeSummary(r dates.Range, days []DayAggregate, today dates.DayKey) Summary {
	totals := Totals{ByCategory: make(map[category.Category]int, len(category.All()))}
	for _, c := range category.All() {
		totals.ByCategory[c] = 0
	}

	entityMinutes := make(map[string]int)
	entityOrder := make(map[string]int)
	order := 0

	for _, d := range days {
		totals.Minutes += d.TotalMinutes
		for c, m := range d.ByCategory {
			totals.ByCategory[c] += m
		}
		for _, e := range d.TopEntities {
			if _, ok := entityMinutes[e.Subject]; !ok {
				entityOrder[e.Subject] = order
				order++
			}
			entityMinutes[e.Subject] += e.Minutes
		}
	}

	// The range-wide top entity merges per-day totals first: a steady #2
	// can beat a one-day #1.
	var top *EntityMinutes
	for subject, minutes := range entityMinutes {
		switch {
		case top == nil,
			minutes > top.Minutes,
			minutes == top.Minutes && entityOrder[subject] < entityOrder[top.Subject]:
			top = &EntityMinutes{Subject: subject, Minutes: minutes}
		}
	}

	return Summary{
		Range:      r,
		Days:       days,
		Totals:     totals,
		TopEntity:  top,
		FocusRatio: FocusRatio(totals.Minutes, len(days)),
		StreakDays: Streak(days, today),
	}
}

// FocusRatio is totalMinutes as a percentage of the considered minute budget
// across dayCount days, rounded to 2 decimal places. Zero days means zero,
// never a division by zero.
func FocusRatio(totalMinutes, dayCount int) float64 {
	if dayCount <= 0 {
		return 0
	}
	ratio := float64(totalMinutes) / float64(dayCount*ConsideredMinutesPerDay) * 100
	return math.Round(ratio*100) / 100
}

// Streak counts consecutive active days ending at today. A day qualifies only
// when it appears in days with TotalMinutes > 0 at exactly the expected
// today−i key; the first gap (missing day or zero-minute day) ends the walk.
// A zero-minute today therefore yields 0.
func Streak(days []DayAggregate, today dates.DayKey) int {
	byDay := make(map[dates.DayKey]DayAggregate, len(days))
	for _, d := range days {
		byDay[d.Day] = d
	}

	streak := 0
	for d := today; ; d = d.Prev() {
		agg, ok := byDay[d]
		if !ok || agg.TotalMinutes == 0 {
			break
		}
		streak++
	}
	return streak
}

// PercentChange is the relative change from previous to current, in percent.
// A zero previous maps to 100 when anything is tracked now, otherwise 0.
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - previous) / previous * 100
}
