package main

import (
	"fmt"

	"github.com/YuminosukeSato/devperf/pkg/errors"
	"github.com/spf13/cobra"
)

var inspectRows int

var inspectCmd = &cobra.Command{
	Use:   "inspect [csv]",
	Short: "Show the first and last rows, column types and missing counts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if inspectRows < 0 {
			return errors.NewValidationError("rows", "must be >= 0", inspectRows)
		}
		t, err := loadTable(args)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		title(out, fmt.Sprintf("First %d rows", inspectRows))
		if err := printTable(out, t.Head(inspectRows)); err != nil {
			return err
		}
		title(out, fmt.Sprintf("Last %d rows", inspectRows))
		if err := printTable(out, t.Tail(inspectRows)); err != nil {
			return err
		}

		title(out, "Columns")
		fmt.Fprintln(out, styles.Muted.Render(fmt.Sprintf("%d rows × %d columns", t.Nrow(), t.Ncol())))
		fmt.Fprintln(out, renderTable([]string{"Column", "Type", "Missing"}, schemaRows(t.Schema())))
		return nil
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe [csv]",
	Short: "Print summary statistics for every column",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable(args)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		title(out, "Basic statistics")
		return printTable(out, t.Describe())
	},
}

func init() {
	inspectCmd.Flags().IntVarP(&inspectRows, "rows", "n", 10, "rows to show from each end")
	rootCmd.AddCommand(inspectCmd, describeCmd)
}
