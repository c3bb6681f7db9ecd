package main

import (
	"github.com/YuminosukeSato/devperf/dataset"
	"github.com/YuminosukeSato/devperf/experiment"
	"github.com/YuminosukeSato/devperf/pkg/log"
	"github.com/spf13/cobra"
)

var trainClean bool

var trainCmd = &cobra.Command{
	Use:   "train [csv]",
	Short: "Compare KNN, SVR, decision tree and random forest on the target",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := prepareFeatures(args, trainClean)
		if err != nil {
			return err
		}
		ranking, err := evaluate(cmd.Context(), fs)
		if err != nil {
			return err
		}
		printRanking(cmd.OutOrStdout(), ranking)
		return nil
	},
}

// prepareFeatures loads the training table, optionally cleans it, and
// splits it into features and target.
func prepareFeatures(args []string, clean bool) (*experiment.FeatureSet, error) {
	t, err := loadTable(args)
	if err != nil {
		return nil, err
	}
	if clean {
		var cleaned dataset.Table
		if cleaned, _, err = cleanTable(t); err != nil {
			return nil, err
		}
		t = cleaned
	}
	fs, err := splitFeatures(t)
	if err != nil {
		return nil, err
	}
	logger.Info("Features ready", "target", fs.Target, log.FeaturesKey, len(fs.Columns))
	return fs, nil
}

func init() {
	trainCmd.Flags().BoolVar(&trainClean, "clean", false, "run the cleaner before splitting")
	rootCmd.AddCommand(trainCmd)
}
