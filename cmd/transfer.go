package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/screenly/internal/export"
)

var (
	exportFormat string
	exportOut    string
)

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "export format: json or csv")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default ~/screenly-export-<date>.<format>)")
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the event log and aggregates to a JSON or CSV file",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		path := exportOut
		if path == "" {
			home, _ := os.UserHomeDir()
			dateStr := time.Now().Format("2006-01-02")
			path = filepath.Join(home, fmt.Sprintf("screenly-export-%s.%s", dateStr, exportFormat))
		}

		switch exportFormat {
		case "json":
			err = export.ToJSON(st, path)
		case "csv":
			err = export.ToCSV(st, path)
		default:
			return fmt.Errorf("unknown format %q (want json or csv)", exportFormat)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Exported to %s\n", path)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace stored data with a previously exported JSON document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		doc, err := export.FromJSON(st, args[0])
		if err != nil {
			return err
		}

		events := 0
		for _, dayEvents := range doc.Events {
			events += len(dayEvents)
		}
		fmt.Printf("Imported %d event(s) across %d day(s), %d aggregate(s)\n",
			events, len(doc.Events), len(doc.Aggregates))
		return nil
	},
}
