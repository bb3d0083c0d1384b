package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sadopc/screenly/internal/agg"
	"github.com/sadopc/screenly/internal/export"
)

var (
	summaryRange   string
	summaryCompare bool
	summaryJSON    bool
)

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().StringVar(&summaryRange, "range", "today", "range name: today, 7d, 30d")
	summaryCmd.Flags().BoolVar(&summaryCompare, "compare", false, "include the preceding equal-length period")
	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "emit the raw summary as JSON")
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize tracked time over a named range",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		engine, err := newEngine(st)
		if err != nil {
			return err
		}

		s, err := engine.Summary(summaryRange, summaryCompare)
		if err != nil {
			return err
		}

		if summaryJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		}

		printSummary(s)
		return nil
	},
}

func printSummary(s agg.Summary) {
	fmt.Printf("Range %s — %s\n",
		s.Range.Start.Format("2006-01-02"), s.Range.End.Format("2006-01-02"))
	fmt.Printf("Total: %s", export.FormatMinutes(s.Totals.Minutes))
	if s.PreviousPeriod != nil {
		change := agg.PercentChange(float64(s.Totals.Minutes), float64(s.PreviousPeriod.Totals.Minutes))
		fmt.Printf("  (%+.1f%% vs previous %s)", change, export.FormatMinutes(s.PreviousPeriod.Totals.Minutes))
	}
	fmt.Println()
	fmt.Printf("Focus ratio: %.2f%%   Streak: %d day(s)\n", s.FocusRatio, s.StreakDays)
	if s.TopEntity != nil {
		fmt.Printf("Top: %s (%s)\n", s.TopEntity.Subject, export.FormatMinutes(s.TopEntity.Minutes))
	}

	type catRow struct {
		name    string
		minutes int
	}
	var rows []catRow
	for c, m := range s.Totals.ByCategory {
		if m > 0 {
			rows = append(rows, catRow{string(c), m})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].minutes != rows[j].minutes {
			return rows[i].minutes > rows[j].minutes
		}
		return rows[i].name < rows[j].name
	})
	for _, r := range rows {
		fmt.Printf("  %-14s %s\n", r.name, export.FormatMinutes(r.minutes))
	}
}
