// Package dataset holds the in-memory table every stage of the pipeline
// consumes. A Table wraps a gota DataFrame and is treated as an immutable
// value: every operation returns a new Table.
package dataset

import (
	"math"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/devperf/pkg/errors"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"
)

// Kind is the detected type of a column.
type Kind string

const (
	KindFloat  Kind = "float"
	KindInt    Kind = "int"
	KindString Kind = "string"
	KindBool   Kind = "bool"
)

// IsNumeric reports whether the kind is float or int. Bool columns are not
// numeric features.
func (k Kind) IsNumeric() bool {
	return k == KindFloat || k == KindInt
}

// Table is an ordered set of named columns sharing one row count.
type Table struct {
	df dataframe.DataFrame
}

// FromDataFrame wraps a gota DataFrame, surfacing its construction error.
func FromDataFrame(df dataframe.DataFrame) (Table, error) {
	if df.Err != nil {
		return Table{}, errors.Wrap(df.Err, "dataset: build table")
	}
	return Table{df: df}, nil
}

// FromSeries builds a table from gota series. All series must share length.
func FromSeries(cols ...series.Series) (Table, error) {
	if len(cols) == 0 {
		return Table{}, errors.NewValueError("dataset.FromSeries", "no columns")
	}
	n := cols[0].Len()
	for _, c := range cols[1:] {
		if c.Len() != n {
			return Table{}, errors.NewDimensionError("dataset.FromSeries", n, c.Len(), 0)
		}
	}
	return FromDataFrame(dataframe.New(cols...))
}

// FloatColumn builds a float series. NaN marks a missing value.
func FloatColumn(name string, values []float64) series.Series {
	return series.New(values, series.Float, name)
}

// StringColumn builds a string series. Values listed in DefaultNaNValues
// are stored as missing.
func StringColumn(name string, values []string) series.Series {
	cleaned := make([]string, len(values))
	for i, v := range values {
		if IsNaNToken(v) {
			cleaned[i] = "NaN"
		} else {
			cleaned[i] = v
		}
	}
	return series.New(cleaned, series.String, name)
}

// DataFrame exposes the backing gota DataFrame. Callers must not rely on
// mutating it; gota operations return copies.
func (t Table) DataFrame() dataframe.DataFrame {
	return t.df
}

// Nrow returns the number of rows.
func (t Table) Nrow() int {
	return t.df.Nrow()
}

// Ncol returns the number of columns.
func (t Table) Ncol() int {
	return t.df.Ncol()
}

// Names returns the column names in order.
func (t Table) Names() []string {
	return t.df.Names()
}

// Has reports whether a column exists.
func (t Table) Has(name string) bool {
	_, ok := t.index(name)
	return ok
}

func (t Table) index(name string) (int, bool) {
	for i, n := range t.df.Names() {
		if n == name {
			return i, true
		}
	}
	return -1, false
}

// Kind returns the detected kind of a column.
func (t Table) Kind(name string) (Kind, bool) {
	i, ok := t.index(name)
	if !ok {
		return "", false
	}
	return kindOf(t.df.Types()[i]), true
}

func kindOf(typ series.Type) Kind {
	switch typ {
	case series.Float:
		return KindFloat
	case series.Int:
		return KindInt
	case series.Bool:
		return KindBool
	default:
		return KindString
	}
}

func (t Table) column(op, name string) (series.Series, error) {
	if !t.Has(name) {
		return series.Series{}, errors.NewMissingColumnError(op, name)
	}
	return t.df.Col(name), nil
}

// Records returns the textual values of a column. Missing values read "NaN".
func (t Table) Records(name string) ([]string, error) {
	s, err := t.column("Table.Records", name)
	if err != nil {
		return nil, err
	}
	return s.Records(), nil
}

// Floats returns a column as float64 with NaN for missing values. String
// cells that do not parse as numbers become NaN as well.
func (t Table) Floats(name string) ([]float64, error) {
	values, _, err := t.Numeric(name)
	return values, err
}

// Numeric coerces a column to float64. It also reports how many present
// cells could not be parsed and were turned into NaN.
func (t Table) Numeric(name string) (values []float64, coerced int, err error) {
	s, err := t.column("Table.Numeric", name)
	if err != nil {
		return nil, 0, err
	}
	if s.Type() != series.String {
		return s.Float(), 0, nil
	}
	records := s.Records()
	missing := s.IsNaN()
	values = make([]float64, len(records))
	for i, rec := range records {
		if missing[i] || IsNaNToken(rec) {
			values[i] = math.NaN()
			continue
		}
		v, perr := strconv.ParseFloat(strings.TrimSpace(rec), 64)
		if perr != nil {
			values[i] = math.NaN()
			coerced++
			continue
		}
		values[i] = v
	}
	return values, coerced, nil
}

// MissingCount returns the number of missing cells in a column.
func (t Table) MissingCount(name string) (int, error) {
	s, err := t.column("Table.MissingCount", name)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range s.IsNaN() {
		if m {
			n++
		}
	}
	return n, nil
}

// WithFloats returns a copy of the table where the named column is
// replaced by (or extended with) a float column.
func (t Table) WithFloats(name string, values []float64) (Table, error) {
	return t.withSeries(FloatColumn(name, append([]float64(nil), values...)))
}

// WithStrings returns a copy of the table with a string column set.
func (t Table) WithStrings(name string, values []string) (Table, error) {
	return t.withSeries(StringColumn(name, values))
}

func (t Table) withSeries(s series.Series) (Table, error) {
	if s.Len() != t.Nrow() {
		return Table{}, errors.NewDimensionError("Table.With", t.Nrow(), s.Len(), 0)
	}
	return FromDataFrame(t.df.Mutate(s))
}

// Subset returns the rows at the given positions, in that order.
func (t Table) Subset(rows []int) Table {
	if len(rows) == 0 {
		return t.empty()
	}
	return Table{df: t.df.Subset(rows)}
}

// empty keeps the schema with zero rows. gota cannot subset to zero rows,
// so the columns are rebuilt by kind.
func (t Table) empty() Table {
	names := t.Names()
	types := t.df.Types()
	cols := make([]series.Series, len(names))
	for i, name := range names {
		cols[i] = series.New([]string{}, types[i], name)
	}
	return Table{df: dataframe.New(cols...)}
}

// Select returns a table restricted to the named columns, in that order.
func (t Table) Select(names []string) (Table, error) {
	for _, n := range names {
		if !t.Has(n) {
			return Table{}, errors.NewMissingColumnError("Table.Select", n)
		}
	}
	return FromDataFrame(t.df.Select(names))
}

// Head returns the first n rows. n is clamped to [0, Nrow].
func (t Table) Head(n int) Table {
	n = min(max(n, 0), t.Nrow())
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return t.Subset(rows)
}

// Tail returns the last n rows. n is clamped to [0, Nrow].
func (t Table) Tail(n int) Table {
	total := t.Nrow()
	n = min(max(n, 0), total)
	rows := make([]int, n)
	for i := range rows {
		rows[i] = total - n + i
	}
	return t.Subset(rows)
}

// DropDuplicates removes rows that repeat an earlier row across every
// column. The first occurrence is kept and rows are renumbered from zero.
// It returns the new table and the number of rows removed.
func (t Table) DropDuplicates() (Table, int) {
	n := t.Nrow()
	keys := make([]strings.Builder, n)
	for _, name := range t.Names() {
		s := t.df.Col(name)
		if kind := kindOf(s.Type()); kind.IsNumeric() {
			for i, v := range s.Float() {
				if math.IsNaN(v) {
					keys[i].WriteString("NaN")
				} else {
					keys[i].WriteString(strconv.FormatUint(math.Float64bits(v), 16))
				}
				keys[i].WriteByte('\x1f')
			}
			continue
		}
		for i, rec := range s.Records() {
			keys[i].WriteString(rec)
			keys[i].WriteByte('\x1f')
		}
	}

	seen := make(map[string]struct{}, n)
	keep := make([]int, 0, n)
	for i := range keys {
		k := keys[i].String()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keep = append(keep, i)
	}
	if len(keep) == n {
		return t, 0
	}
	return t.Subset(keep), n - len(keep)
}

// Matrix builds an n×len(names) matrix from the named columns, coercing
// values with Numeric. Missing cells are NaN.
func (t Table) Matrix(names []string) (*mat.Dense, error) {
	r := t.Nrow()
	if r == 0 || len(names) == 0 {
		return nil, errors.NewModelError("Table.Matrix", "empty data", errors.ErrEmptyData)
	}
	m := mat.NewDense(r, len(names), nil)
	for j, name := range names {
		values, err := t.Floats(name)
		if err != nil {
			return nil, err
		}
		m.SetCol(j, values)
	}
	return m, nil
}
