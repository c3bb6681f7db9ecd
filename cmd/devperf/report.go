package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/YuminosukeSato/devperf/report"
	"github.com/spf13/cobra"
)

var reportNoCharts bool

var reportCmd = &cobra.Command{
	Use:   "report [csv]",
	Short: "Clean the data and write grouped analyses, charts and the correlation matrix",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := report.DefaultSpec()
		if cfg.Report.Spec != "" {
			var err error
			if spec, err = report.LoadSpec(cfg.Report.Spec); err != nil {
				return err
			}
		}

		t, err := loadTable(args)
		if err != nil {
			return err
		}
		cleaned, rep, err := cleanTable(t)
		if err != nil {
			return err
		}

		dir := filepath.Join(cfg.Report.OutputDir, runID)
		if err := cleaned.SaveCSV(filepath.Join(dir, "cleaned_data.csv")); err != nil {
			return err
		}
		runner, err := report.NewRunner(spec, dir, report.WithCharts(!reportNoCharts))
		if err != nil {
			return err
		}
		res, err := runner.Run(cleaned)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		printRepairReport(out, rep)
		title(out, spec.Title)
		for _, s := range res.Summaries {
			st, err := s.Table()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, styles.Muted.Render(s.Name))
			if err := printTable(out, st); err != nil {
				return err
			}
		}
		filters := make([]string, 0, len(res.Filtered))
		for name := range res.Filtered {
			filters = append(filters, name)
		}
		sort.Strings(filters)
		for _, name := range filters {
			fmt.Fprintln(out, styles.Muted.Render(fmt.Sprintf("filter %s: %d rows", name, res.Filtered[name])))
		}
		if len(res.Skipped) > 0 {
			warning(out, "Skipped: %s", strings.Join(res.Skipped, ", "))
		}
		success(out, "%d files written to %s", len(res.Files)+1, dir)
		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportNoCharts, "no-charts", false, "write CSV files only")
	rootCmd.AddCommand(reportCmd)
}
