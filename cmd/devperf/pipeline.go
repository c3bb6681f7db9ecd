package main

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/devperf/cleaning"
	"github.com/YuminosukeSato/devperf/dataset"
	"github.com/YuminosukeSato/devperf/experiment"
	"github.com/YuminosukeSato/devperf/pkg/errors"
	"github.com/YuminosukeSato/devperf/pkg/log"
	"github.com/YuminosukeSato/devperf/telemetry"
	"github.com/go-gota/gota/series"
)

// inputPath picks the CSV argument, falling back to data.path.
func inputPath(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if cfg != nil && cfg.Data.Path != "" {
		return cfg.Data.Path, nil
	}
	return "", errors.NewValidationError("csv", "no input file given and data.path is empty", "")
}

func loadTable(args []string) (dataset.Table, error) {
	path, err := inputPath(args)
	if err != nil {
		return dataset.Table{}, err
	}
	t, err := dataset.Load(path, dataset.WithDelimiter(cfg.Data.DelimiterRune()))
	if err != nil {
		return dataset.Table{}, err
	}
	telem.SetRows(telemetry.StageLoaded, t.Nrow())
	logger.Info("Data loaded",
		log.PathKey, path,
		log.SamplesKey, t.Nrow(),
		log.FeaturesKey, t.Ncol(),
	)
	return t, nil
}

func cleanTable(t dataset.Table) (dataset.Table, cleaning.Report, error) {
	c, err := cleaning.New(cfg.Cleaning)
	if err != nil {
		return dataset.Table{}, cleaning.Report{}, err
	}
	out, rep, err := c.Clean(t)
	if err != nil {
		return dataset.Table{}, cleaning.Report{}, err
	}
	telem.ObserveCleaning(rep)
	telem.SetRows(telemetry.StageCleaned, out.Nrow())
	return out, rep, nil
}

func splitFeatures(t dataset.Table) (*experiment.FeatureSet, error) {
	fs, err := experiment.SplitFeatures(t, cfg.Target,
		experiment.WithTestSize(cfg.Split.TestSize),
		experiment.WithSeed(cfg.Split.Seed),
	)
	if err != nil {
		return nil, err
	}
	telem.SetRows(telemetry.StageTrain, len(fs.YTrain))
	telem.SetRows(telemetry.StageTest, len(fs.YTest))
	return fs, nil
}

func evaluate(ctx context.Context, fs *experiment.FeatureSet) (experiment.Ranking, error) {
	ev := experiment.NewEvaluator(
		experiment.WithParallel(cfg.Evaluation.Parallel),
		experiment.WithRecorder(telem),
	)
	return ev.Evaluate(ctx, fs)
}

// parseAssignments builds a one-row table from name=value pairs. A repeated
// name keeps its last value. Values such as NA or an empty string are read
// as missing, as they are in a CSV.
func parseAssignments(pairs []string) (dataset.Table, error) {
	if len(pairs) == 0 {
		return dataset.Table{}, errors.Wrap(errors.ErrEmptyData, "predict: no --set values")
	}
	values := make(map[string]float64, len(pairs))
	order := make(map[string]int, len(pairs))
	for i, p := range pairs {
		name, raw, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return dataset.Table{}, errors.NewValidationError("set", "expected name=value", p)
		}
		v := math.NaN()
		if !dataset.IsNaNToken(raw) {
			var err error
			if v, err = strconv.ParseFloat(strings.TrimSpace(raw), 64); err != nil {
				return dataset.Table{}, errors.NewValidationError("set", "value is not a number", p)
			}
		}
		if _, seen := order[name]; !seen {
			order[name] = i
		}
		values[name] = v
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Slice(names, func(a, b int) bool { return order[names[a]] < order[names[b]] })

	cols := make([]series.Series, 0, len(names))
	for _, name := range names {
		cols = append(cols, dataset.FloatColumn(name, []float64{values[name]}))
	}
	return dataset.FromSeries(cols...)
}
