// Package cmd wires the screenly CLI. The bare command launches the TUI
// dashboard; subcommands expose recording, summaries, rollup and
// import/export for scripting and cron.
package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sadopc/screenly/internal/agg"
	"github.com/sadopc/screenly/internal/category"
	"github.com/sadopc/screenly/internal/store"
	"github.com/sadopc/screenly/internal/tui"
)

var (
	dbPath    string
	rulesPath string
)

var rootCmd = &cobra.Command{
	Use:   "screenly",
	Short: "Personal screen-time tracker — record activity, roll it up, see where the hours go",
	Long: `screenly records per-minute and per-session activity into a local SQLite
database, rolls each day up into cached aggregates, and summarizes arbitrary
ranges with category breakdowns, top sites, focus ratio and streaks.

Run without arguments to open the dashboard.`,
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

		// Opportunistic rollup so the dashboard reads finalized days.
		if _, err := engine.Rollup(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: rollup failed: %v\n", err)
		}

		app := tui.NewApp(st, engine)
		p := tea.NewProgram(app, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("run dashboard: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default ~/.config/screenly/screenly.db)")
	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "YAML classification rules file (default built-in table)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStore() (*store.Store, error) {
	path := dbPath
	if path == "" {
		var err error
		path, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
	}
	return store.New(path)
}

func newEngine(st *store.Store) (*agg.Engine, error) {
	opts := []agg.Option{
		agg.WithTopN(st.GetIntSetting("top_entities", agg.DefaultTopN)),
		agg.WithRetentionDays(st.GetIntSetting("retention_days", agg.DefaultRetentionDays)),
	}
	if rulesPath != "" {
		rules, err := category.LoadRules(rulesPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, agg.WithClassifier(category.New(rules)))
	}
	return agg.NewEngine(st, opts...), nil
}
