package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/YuminosukeSato/devperf/dataset"
	"github.com/YuminosukeSato/devperf/experiment"
	"github.com/YuminosukeSato/devperf/pkg/errors"
	"github.com/YuminosukeSato/devperf/pkg/log"
	"github.com/spf13/cobra"
)

var (
	predictInput  string
	predictSet    []string
	predictModel  string
	predictClean  bool
	predictOutput string
)

var predictCmd = &cobra.Command{
	Use:   "predict [csv]",
	Short: "Fit the best (or a named) model and predict new rows",
	Long: `predict evaluates every model on the training CSV and refits the one with
the highest R2, unless --model names one. New rows come from --input or from
--set name=value pairs. Columns missing from the new rows are imputed.`,
	Example: `  devperf predict data.csv --set Hours_Coding=7 --set Sleep_Hours=5
  devperf predict data.csv --input new_rows.csv --model RandomForest -o predictions.csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := newRows()
		if err != nil {
			return err
		}
		fs, err := prepareFeatures(args, predictClean)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		bank := experiment.DefaultBank()
		name := predictModel
		if name == "" {
			ranking, err := evaluate(cmd.Context(), fs)
			if err != nil {
				return err
			}
			printRanking(out, ranking)
			best, ok := ranking.Best()
			if !ok {
				return errors.NewModelError("predict", "no model could be fitted", errors.ErrEmptyData)
			}
			name = best.Model
		}
		entry, err := bank.Lookup(name)
		if err != nil {
			return err
		}

		p, err := experiment.NewPredictor(entry, fs)
		if err != nil {
			return err
		}
		preds, err := p.Predict(rows)
		if err != nil {
			return err
		}
		logger.Info("Predictions made", log.ModelNameKey, p.Name(), log.SamplesKey, len(preds))
		aligned, err := experiment.Reindex(rows, p.Columns())
		if err != nil {
			return err
		}
		if err := printPredictions(out, p.Name(), aligned, preds, fs.Target); err != nil {
			return err
		}
		if predictOutput == "" {
			return nil
		}
		if err := savePredictions(predictOutput, aligned, preds, fs.Target); err != nil {
			return err
		}
		logger.Info("Predictions saved", log.PathKey, predictOutput)
		success(out, "Predictions saved to %s", predictOutput)
		return nil
	},
}

func newRows() (dataset.Table, error) {
	if predictInput != "" {
		return dataset.Load(predictInput, dataset.WithDelimiter(cfg.Data.DelimiterRune()))
	}
	return parseAssignments(predictSet)
}

func printPredictions(w io.Writer, model string, aligned dataset.Table, preds []float64, target string) error {
	title(w, fmt.Sprintf("Predictions (%s)", model))
	for i, v := range preds {
		fmt.Fprintln(w, styles.Muted.Render(fmt.Sprintf("Row %d", i+1)))
		if err := printTable(w, aligned.Subset([]int{i})); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s %s: %s\n", iconArrow, target, styles.Success.Render(formatFloat(v, 2)))
	}
	return nil
}

// savePredictions writes the reindexed rows, in input order, with the
// prediction appended as the target column.
func savePredictions(path string, aligned dataset.Table, preds []float64, target string) error {
	out, err := aligned.WithFloats(target, preds)
	if err != nil {
		return err
	}
	return out.SaveCSV(path)
}

func init() {
	f := predictCmd.Flags()
	f.StringVar(&predictInput, "input", "", "CSV of rows to predict")
	f.StringArrayVar(&predictSet, "set", nil, "feature value as name=value (repeatable)")
	f.StringVar(&predictModel, "model", "", "model to refit instead of the best one: "+strings.Join(experiment.DefaultBank().Names(), ", "))
	f.BoolVar(&predictClean, "clean", false, "run the cleaner on the training data first")
	f.StringVarP(&predictOutput, "output", "o", "", "also write the rows and predictions to this CSV")
	predictCmd.MarkFlagsMutuallyExclusive("input", "set")
	rootCmd.AddCommand(predictCmd)
}
