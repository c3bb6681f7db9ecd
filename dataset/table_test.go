package dataset

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/devperf/pkg/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `Hours_Coding,Sleep_Hours,Team
7,6.5,core
3,NA,infra
9,8.0,core
`

func TestReadCSV_DetectsKindsAndMissing(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, 3, tbl.Nrow())
	assert.Equal(t, []string{"Hours_Coding", "Sleep_Hours", "Team"}, tbl.Names())

	want := []ColumnInfo{
		{Name: "Hours_Coding", Kind: KindInt, Missing: 0},
		{Name: "Sleep_Hours", Kind: KindFloat, Missing: 1},
		{Name: "Team", Kind: KindString, Missing: 0},
	}
	if diff := cmp.Diff(want, tbl.Schema()); diff != "" {
		t.Errorf("Schema() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"Hours_Coding", "Sleep_Hours"}, tbl.NumericNames())
}

func TestReadCSV_SniffsSemicolon(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("a;b\n1;2\n3;4\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.Names())

	b, err := tbl.Floats("b")
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4}, b)
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		name string
		path string
		head string
		want rune
	}{
		{"tsv extension", "data.TSV", "a,b,c", '\t'},
		{"comma", "data.csv", "a,b,c\n1,2,3", ','},
		{"semicolon", "", "a;b;c\n1,5;2;3", ';'},
		{"tab", "", "a\tb\tc", '\t'},
		{"single column", "", "a\n1", ','},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SniffDelimiter(tt.path, []byte(tt.head)))
		})
	}
}

func TestLoad_TSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.tsv")
	require.NoError(t, os.WriteFile(path, []byte("x\ty\n1.5\t2\n2.5\t3\n"), 0o644))

	tbl, err := Load(path)
	require.NoError(t, err)
	x, err := tbl.Floats("x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5}, x)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}

func TestNumeric_CoercesUnparseableCells(t *testing.T) {
	tbl, err := FromSeries(StringColumn("Coffee_Intake", []string{"5", "abc", "NA", " 2.5 "}))
	require.NoError(t, err)

	values, coerced, err := tbl.Numeric("Coffee_Intake")
	require.NoError(t, err)
	assert.Equal(t, 1, coerced)

	want := []float64{5, math.NaN(), math.NaN(), 2.5}
	if diff := cmp.Diff(want, values, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("Numeric() mismatch (-want +got):\n%s", diff)
	}
}

func TestNumeric_MissingColumn(t *testing.T) {
	tbl, err := FromSeries(FloatColumn("a", []float64{1}))
	require.NoError(t, err)

	_, _, err = tbl.Numeric("b")
	assert.True(t, errors.IsSchemaError(err))
}

func TestWithFloats_ReplacesAndAppends(t *testing.T) {
	tbl, err := FromSeries(StringColumn("a", []string{"1", "x"}))
	require.NoError(t, err)

	tbl, err = tbl.WithFloats("a", []float64{1, 2})
	require.NoError(t, err)
	kind, _ := tbl.Kind("a")
	assert.Equal(t, KindFloat, kind)

	tbl, err = tbl.WithFloats("b", []float64{3, 4})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.Names())

	_, err = tbl.WithFloats("c", []float64{1})
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))
}

func TestDropDuplicates_KeepsFirst(t *testing.T) {
	tbl, err := FromSeries(
		FloatColumn("a", []float64{1, 2, 1, math.NaN(), math.NaN()}),
		StringColumn("b", []string{"x", "y", "x", "z", "z"}),
	)
	require.NoError(t, err)

	out, dropped := tbl.DropDuplicates()
	assert.Equal(t, 2, dropped)
	assert.Equal(t, 3, out.Nrow())

	b, err := out.Records("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, b)

	same, none := out.DropDuplicates()
	assert.Equal(t, 0, none)
	assert.Equal(t, out.Nrow(), same.Nrow())
}

func TestHeadTail(t *testing.T) {
	tbl, err := FromSeries(FloatColumn("a", []float64{1, 2, 3, 4}))
	require.NoError(t, err)

	head, _ := tbl.Head(2).Floats("a")
	tail, _ := tbl.Tail(3).Floats("a")
	all, _ := tbl.Head(10).Floats("a")

	assert.Equal(t, []float64{1, 2}, head)
	assert.Equal(t, []float64{2, 3, 4}, tail)
	assert.Equal(t, []float64{1, 2, 3, 4}, all)

	assert.Zero(t, tbl.Head(-1).Nrow())
	assert.Zero(t, tbl.Tail(-3).Nrow())
}

func TestIsNaNToken(t *testing.T) {
	for _, s := range []string{"", "NA", " NA ", "null", "None", "NaN"} {
		assert.True(t, IsNaNToken(s), "%q", s)
	}
	for _, s := range []string{"0", "na", "-", "seven"} {
		assert.False(t, IsNaNToken(s), "%q", s)
	}
}

func TestMatrix(t *testing.T) {
	tbl, err := FromSeries(
		FloatColumn("a", []float64{1, 2}),
		StringColumn("b", []string{"3", "oops"}),
	)
	require.NoError(t, err)

	m, err := tbl.Matrix([]string{"b", "a"})
	require.NoError(t, err)
	r, c := m.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 3.0, m.At(0, 0))
	assert.True(t, math.IsNaN(m.At(1, 0)))
	assert.Equal(t, 2.0, m.At(1, 1))

	_, err = tbl.Matrix(nil)
	assert.ErrorIs(t, err, errors.ErrEmptyData)
}

func TestWriteCSV_RoundTripsFloats(t *testing.T) {
	tbl, err := FromSeries(
		FloatColumn("x", []float64{0.1, 1.0 / 3.0, math.NaN()}),
		StringColumn("name", []string{"a", "b", "NA"}),
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "x,name", lines[0])
	assert.Equal(t, "0.1,a", lines[1])
	assert.Equal(t, "0.3333333333333333,b", lines[2])
	assert.Equal(t, ",", lines[3])

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	x, err := back.Floats("x")
	require.NoError(t, err)
	assert.Equal(t, 1.0/3.0, x[1])
}

func TestSaveCSV_CreatesDirectories(t *testing.T) {
	tbl, err := FromSeries(FloatColumn("a", []float64{1}))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	require.NoError(t, tbl.SaveCSV(path))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
