// Package cleaning repairs the numeric columns of a raw table before
// analysis: coercion, negative removal, mean imputation, percentile
// clipping and duplicate removal.
package cleaning

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/devperf/dataset"
	"github.com/YuminosukeSato/devperf/pkg/errors"
	"github.com/YuminosukeSato/devperf/pkg/log"
	"gonum.org/v1/gonum/stat"
)

// DefaultColumns are the numeric columns repaired when no list is given.
var DefaultColumns = []string{
	"Hours_Coding",
	"Lines_of_Code",
	"Bugs_Found",
	"Bugs_Fixed",
	"AI_Usage_Hours",
	"Sleep_Hours",
	"Cognitive_Load",
	"Task_Success_Rate",
	"Coffee_Intake",
	"Stress_Level",
	"Task_Duration_Hours",
	"Commits",
	"Errors",
}

// RepairSpec names the columns to repair and the clipping percentiles.
type RepairSpec struct {
	Columns       []string `mapstructure:"columns" yaml:"columns"`
	LowerQuantile float64  `mapstructure:"lower_quantile" yaml:"lower_quantile" validate:"gte=0,lt=1"`
	UpperQuantile float64  `mapstructure:"upper_quantile" yaml:"upper_quantile" validate:"gt=0,lte=1,gtfield=LowerQuantile"`
}

// DefaultSpec returns the default column list with 1%/99% clipping.
func DefaultSpec() RepairSpec {
	return RepairSpec{
		Columns:       append([]string(nil), DefaultColumns...),
		LowerQuantile: 0.01,
		UpperQuantile: 0.99,
	}
}

// ColumnReport counts the cells changed in one column.
type ColumnReport struct {
	Column   string
	Coerced  int
	Negative int
	Imputed  int
	Clipped  int
	Mean     float64
	Lower    float64
	Upper    float64
}

// Changed returns the number of cells whose value was replaced. Coerced
// and negative cells are counted once, through imputation.
func (c ColumnReport) Changed() int {
	return c.Imputed + c.Clipped
}

// Report summarizes one cleaning pass.
type Report struct {
	RowsIn            int
	RowsOut           int
	DuplicatesDropped int
	Columns           []ColumnReport
	// Skipped lists requested columns that were not in the table.
	Skipped []string
}

// Cleaner applies a RepairSpec to tables.
type Cleaner struct {
	spec   RepairSpec
	logger log.Logger
}

// New validates spec and returns a Cleaner. An empty column list means
// DefaultColumns.
func New(spec RepairSpec) (*Cleaner, error) {
	if spec.LowerQuantile < 0 || spec.UpperQuantile > 1 || spec.LowerQuantile >= spec.UpperQuantile {
		return nil, errors.NewValidationError("quantiles", "want 0 <= lower < upper <= 1",
			[2]float64{spec.LowerQuantile, spec.UpperQuantile})
	}
	if len(spec.Columns) == 0 {
		spec.Columns = append([]string(nil), DefaultColumns...)
	}
	return &Cleaner{
		spec:   spec,
		logger: log.GetLoggerWithName("cleaning"),
	}, nil
}

// Spec returns the effective repair spec.
func (c *Cleaner) Spec() RepairSpec {
	return c.spec
}

// Clean returns a repaired copy of t and a report of what changed. The
// input table is not modified.
func (c *Cleaner) Clean(t dataset.Table) (dataset.Table, Report, error) {
	rep := Report{RowsIn: t.Nrow()}
	out := t

	for _, name := range c.spec.Columns {
		if !out.Has(name) {
			rep.Skipped = append(rep.Skipped, name)
			continue
		}
		values, colRep, err := c.repairColumn(out, name)
		if err != nil {
			return dataset.Table{}, Report{}, err
		}
		if out, err = out.WithFloats(name, values); err != nil {
			return dataset.Table{}, Report{}, err
		}
		rep.Columns = append(rep.Columns, colRep)
	}

	out, rep.DuplicatesDropped = out.DropDuplicates()
	rep.RowsOut = out.Nrow()

	c.logger.Info("Table cleaned",
		log.OperationKey, log.OperationClean,
		log.SamplesKey, rep.RowsOut,
		log.RowsDroppedKey, rep.DuplicatesDropped,
	)
	return out, rep, nil
}

func (c *Cleaner) repairColumn(t dataset.Table, name string) ([]float64, ColumnReport, error) {
	rep := ColumnReport{Column: name}
	kind, _ := t.Kind(name)

	values, coerced, err := t.Numeric(name)
	if err != nil {
		return nil, rep, err
	}
	if coerced > 0 {
		rep.Coerced = coerced
		errors.Warn(errors.NewColumnConversionWarning(name, coerced, string(kind), "float64", "unparsable value set to NaN"))
	}

	for i, v := range values {
		if v < 0 {
			values[i] = math.NaN()
			rep.Negative++
		}
	}
	if rep.Negative > 0 {
		errors.Warn(errors.NewDomainWarning(name, "value >= 0", rep.Negative))
	}

	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) > 0 {
		rep.Mean = stat.Mean(present, nil)
	} else if len(values) > 0 {
		errors.Warn(errors.NewColumnConversionWarning(name, len(values), string(kind), "float64", "no valid values, imputing 0"))
	}
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = rep.Mean
			rep.Imputed++
		}
	}

	if len(values) == 0 {
		return values, rep, nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	rep.Lower = stat.Quantile(c.spec.LowerQuantile, stat.Empirical, sorted, nil)
	rep.Upper = stat.Quantile(c.spec.UpperQuantile, stat.Empirical, sorted, nil)
	for i, v := range values {
		switch {
		case v < rep.Lower:
			values[i] = rep.Lower
			rep.Clipped++
		case v > rep.Upper:
			values[i] = rep.Upper
			rep.Clipped++
		}
	}

	if rep.Changed() > 0 {
		c.logger.Debug("Column repaired",
			log.ColumnKey, name,
			"coerced", rep.Coerced,
			"negative", rep.Negative,
			"imputed", rep.Imputed,
			"clipped", rep.Clipped,
		)
	}
	return values, rep, nil
}
