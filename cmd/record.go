package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/screenly/internal/export"
)

var (
	recordMinutes int
	recordStart   string
	recordEnd     string
)

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().IntVar(&recordMinutes, "minutes", 0, "record a closed session of N minutes ending now")
	recordCmd.Flags().StringVar(&recordStart, "start", "", "session start (RFC3339)")
	recordCmd.Flags().StringVar(&recordEnd, "end", "", "session end (RFC3339); omit for a running session")
}

var recordCmd = &cobra.Command{
	Use:   "record <subject>",
	Short: "Append an activity event (one tracked minute by default)",
	Args:  cobra.ExactArgs(1),
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

		subject := args[0]
		now := time.Now().UTC()

		start := now
		var end *time.Time

		switch {
		case recordStart != "":
			start, err = time.Parse(time.RFC3339, recordStart)
			if err != nil {
				return fmt.Errorf("parse --start: %w", err)
			}
			if recordEnd != "" {
				t, err := time.Parse(time.RFC3339, recordEnd)
				if err != nil {
					return fmt.Errorf("parse --end: %w", err)
				}
				end = &t
			}
		case recordMinutes > 0:
			start = now.Add(-time.Duration(recordMinutes) * time.Minute)
			end = &now
		default:
			// A single tracked minute ending now.
			start = now.Add(-time.Minute)
			end = &now
		}

		ev, err := engine.RecordEvent(subject, start, end)
		if err != nil {
			return err
		}

		state := export.FormatMinutes(ev.Minutes)
		if ev.Running() {
			state = "running"
		}
		fmt.Printf("Recorded %s (%s) on %s: %s\n", ev.Subject, ev.Category, ev.Day, state)
		return nil
	},
}
