// Package devperf analyzes developer productivity data and predicts
// Task_Success_Rate from the other numeric columns.
//
// A run loads a CSV, repairs its numeric columns, reports grouped means and
// correlations, and compares four regressors on a held-out split:
//
//   - dataset: CSV loading with delimiter sniffing and a gota-backed Table
//   - cleaning: numeric coercion, mean imputation, quantile clipping and
//     duplicate removal
//   - experiment: feature/target split, the model bank, evaluation and
//     prediction on partial rows
//   - report: YAML-driven bands, grouped summaries, charts and the
//     correlation matrix
//   - telemetry: Prometheus metrics for fits, scores and cleaning
//   - config: viper configuration with DEVPERF_* overrides
//
// The estimators follow a scikit-learn-like Fit/Predict API over gonum
// matrices:
//
//   - neighbors: KNeighborsRegressor
//   - svm: epsilon-SVR with an RBF kernel
//   - tree: DecisionTreeRegressor
//   - ensemble: RandomForestRegressor
//   - preprocessing: SimpleImputer and StandardScaler
//   - compose: Pipeline and TransformedTargetRegressor
//   - metrics: MAE, RMSE and R²
//
// # Quick Start
//
//	t, err := dataset.Load("data.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fs, err := experiment.SplitFeatures(t, experiment.DefaultTarget)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ranking, err := experiment.NewEvaluator().Evaluate(ctx, fs)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	best, _ := ranking.Best()
//	fmt.Println("Best model:", best.Model, best.R2)
//
// The devperf command in cmd/devperf wraps the same steps:
//
//	devperf inspect data.csv
//	devperf clean data.csv -o cleaned.csv
//	devperf report data.csv
//	devperf train data.csv
//	devperf predict data.csv --set Hours_Coding=7 --set Sleep_Hours=5
package devperf
