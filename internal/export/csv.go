package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/sadopc/screenly/internal/dates"
)

// ToCSV writes the raw event log to path, one row per event, ordered by day
// and start time.
func ToCSV(d Dumper, path string) error {
	byDay, err := d.DumpEvents()
	if err != nil {
		return fmt.Errorf("dump events: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	if err := w.Write([]string{"ID", "Day", "Start", "End", "Subject", "Category", "Minutes"}); err != nil {
		return err
	}

	days := make([]dates.DayKey, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	for _, day := range days {
		for _, e := range byDay[day] {
			endStr := ""
			if e.End != nil {
				endStr = e.End.UTC().Format(time.RFC3339)
			}
			row := []string{
				e.ID,
				day.String(),
				e.Start.UTC().Format(time.RFC3339),
				endStr,
				e.Subject,
				string(e.Category),
				fmt.Sprintf("%d", e.Minutes),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	return w.Error()
}

// FormatMinutes renders a minute count the way the dashboard shows durations
// ("2h 30m", "45m").
func FormatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	h := minutes / 60
	m := minutes % 60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
