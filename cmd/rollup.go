package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sadopc/screenly/internal/dates"
)

var pruneBefore string

func init() {
	rootCmd.AddCommand(rollupCmd)
	rootCmd.AddCommand(pruneCmd)
	pruneCmd.Flags().StringVar(&pruneBefore, "before", "", "delete raw events for days before this date (YYYY-MM-DD)")
	pruneCmd.MarkFlagRequired("before")
}

var rollupCmd = &cobra.Command{
	Use:   "rollup",
	Short: "Materialize finished days and prune stale raw events (cron-friendly)",
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

		res, err := engine.Rollup()
		if err != nil {
			return err
		}
		fmt.Printf("Materialized %d day(s), pruned %d event(s)\n", len(res.Materialized), res.Pruned)
		return nil
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete raw events older than a cutoff day",
	RunE: func(cmd *cobra.Command, args []string) error {
		cutoff, err := dates.Parse(pruneBefore)
		if err != nil {
			return err
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		engine, err := newEngine(st)
		if err != nil {
			return err
		}

		n, err := engine.PruneEventsBefore(cutoff)
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d event(s) before %s\n", n, cutoff)
		return nil
	},
}
