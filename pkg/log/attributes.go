// Package log defines standard attribute keys for pipeline operations.
//
// Keys follow a hierarchical naming convention ("model.name", "data.samples")
// so log output can be filtered consistently across components.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the registered model, e.g. "KNN" or "RandomForest".
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "score", "clean"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is logging.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the pipeline.
	PhaseKey = "ml.phase"

	// RunIDKey ties every record of one CLI invocation together.
	RunIDKey = "run.id"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows).
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns).
	FeaturesKey = "data.features"

	// ColumnKey names a single table column.
	ColumnKey = "data.column"

	// RowsDroppedKey counts rows removed by a stage.
	RowsDroppedKey = "data.rows_dropped"

	// PathKey is the file being read or written.
	PathKey = "data.path"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// MAEKey records mean absolute error.
	MAEKey = "metrics.mae"

	// RMSEKey records root mean squared error.
	RMSEKey = "metrics.rmse"

	// R2ScoreKey records R² coefficient of determination for regression.
	R2ScoreKey = "metrics.r2_score"

	// IterationKey records the iteration count of iterative solvers.
	IterationKey = "training.iteration"
)

// Error Context
const (
	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"
	OperationClean     = "clean"
	OperationReport    = "report"

	PhaseTraining      = "training"
	PhaseTesting       = "testing"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
)
