package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/devperf/cleaning"
	"github.com/YuminosukeSato/devperf/pkg/log"
	"github.com/spf13/cobra"
)

var cleanOutput string

var cleanCmd = &cobra.Command{
	Use:   "clean [csv]",
	Short: "Repair numeric columns, clip outliers and drop duplicate rows",
	Long: `clean coerces the configured numeric columns, imputes missing and negative
cells with the column mean, clips each column to its quantile range and drops
duplicate rows. The cleaned table is written as CSV.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable(args)
		if err != nil {
			return err
		}
		cleaned, rep, err := cleanTable(t)
		if err != nil {
			return err
		}

		path := cleanOutput
		if path == "" {
			path = filepath.Join(cfg.Report.OutputDir, "cleaned_data.csv")
		}
		if err := cleaned.SaveCSV(path); err != nil {
			return err
		}
		logger.Info("Cleaned data written", log.OperationKey, log.OperationClean, log.PathKey, path)

		out := cmd.OutOrStdout()
		printRepairReport(out, rep)
		success(out, "Cleaned data written to %s", path)
		return nil
	},
}

func printRepairReport(w io.Writer, rep cleaning.Report) {
	title(w, "Cleaning")
	fmt.Fprintln(w, renderTable(repairHeaders, repairRows(rep)))
	fmt.Fprintln(w, styles.Muted.Render(fmt.Sprintf("%d rows in, %d rows out, %d duplicates dropped",
		rep.RowsIn, rep.RowsOut, rep.DuplicatesDropped)))
	if len(rep.Skipped) > 0 {
		warning(w, "Columns not found: %s", strings.Join(rep.Skipped, ", "))
	}
}

func init() {
	cleanCmd.Flags().StringVarP(&cleanOutput, "output", "o", "", "cleaned CSV path (default <output_dir>/cleaned_data.csv)")
	rootCmd.AddCommand(cleanCmd)
}
