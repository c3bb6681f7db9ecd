package cleaning

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/devperf/dataset"
	"github.com/YuminosukeSato/devperf/pkg/errors"
	"github.com/YuminosukeSato/devperf/pkg/log"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureWarnings(t *testing.T) *[]error {
	t.Helper()
	var got []error
	errors.SetZerologWarnFunc(func(w error) { got = append(got, w) })
	t.Cleanup(func() { log.InstallWarnings(log.Provider()) })
	return &got
}

func ids(n int) series.Series {
	v := make([]int, n)
	for i := range v {
		v[i] = i
	}
	return series.New(v, series.Int, "id")
}

func newCleaner(t *testing.T) *Cleaner {
	t.Helper()
	c, err := New(DefaultSpec())
	require.NoError(t, err)
	return c
}

func TestClean_RepairsColumn(t *testing.T) {
	warnings := captureWarnings(t)

	tbl, err := dataset.FromSeries(
		ids(6),
		dataset.StringColumn("Sleep_Hours", []string{"7", "abc", "-3", "NA", "5", "6"}),
	)
	require.NoError(t, err)

	out, rep, err := newCleaner(t).Clean(tbl)
	require.NoError(t, err)

	got, err := out.Floats("Sleep_Hours")
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 6, 6, 6, 5, 6}, got)

	require.Len(t, rep.Columns, 1)
	col := rep.Columns[0]
	assert.Equal(t, "Sleep_Hours", col.Column)
	assert.Equal(t, 1, col.Coerced)
	assert.Equal(t, 1, col.Negative)
	assert.Equal(t, 3, col.Imputed)
	assert.Equal(t, 0, col.Clipped)
	assert.Equal(t, 6.0, col.Mean)
	assert.Equal(t, 3, col.Changed())

	var conv *errors.DataConversionWarning
	var dom *errors.DomainWarning
	var sawConv, sawDom bool
	for _, w := range *warnings {
		if errors.As(w, &conv) {
			sawConv = true
			assert.Equal(t, 1, conv.Count)
		}
		if errors.As(w, &dom) {
			sawDom = true
			assert.Equal(t, 1, dom.Count)
		}
	}
	assert.True(t, sawConv, "expected a DataConversionWarning")
	assert.True(t, sawDom, "expected a DomainWarning")
}

func TestClean_ClipsOutliers(t *testing.T) {
	captureWarnings(t)

	values := make([]float64, 200)
	for i := range values {
		values[i] = float64(i + 1)
	}
	values[199] = 10000

	tbl, err := dataset.FromSeries(dataset.FloatColumn("Hours_Coding", values))
	require.NoError(t, err)

	out, rep, err := newCleaner(t).Clean(tbl)
	require.NoError(t, err)

	col := rep.Columns[0]
	assert.Greater(t, col.Clipped, 0)
	assert.LessOrEqual(t, col.Upper, 199.0)

	got, err := out.Floats("Hours_Coding")
	require.NoError(t, err)
	for i, v := range got {
		assert.False(t, math.IsNaN(v), "row %d is NaN", i)
		assert.GreaterOrEqual(t, v, col.Lower)
		assert.LessOrEqual(t, v, col.Upper)
	}
}

func TestClean_DropsDuplicateRowsKeepingFirst(t *testing.T) {
	captureWarnings(t)

	tbl, err := dataset.FromSeries(
		dataset.FloatColumn("Commits", []float64{3, 4, 3, 5}),
		dataset.StringColumn("Team", []string{"a", "b", "a", "c"}),
	)
	require.NoError(t, err)

	out, rep, err := newCleaner(t).Clean(tbl)
	require.NoError(t, err)

	assert.Equal(t, 4, rep.RowsIn)
	assert.Equal(t, 3, rep.RowsOut)
	assert.Equal(t, 1, rep.DuplicatesDropped)

	team, err := out.Records("Team")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, team)
}

func TestClean_SkipsMissingColumns(t *testing.T) {
	captureWarnings(t)

	tbl, err := dataset.FromSeries(
		ids(3),
		dataset.FloatColumn("Errors", []float64{1, 2, 3}),
		dataset.StringColumn("Notes", []string{"x", "-1", "y"}),
	)
	require.NoError(t, err)

	out, rep, err := newCleaner(t).Clean(tbl)
	require.NoError(t, err)

	require.Len(t, rep.Columns, 1)
	assert.Equal(t, "Errors", rep.Columns[0].Column)
	assert.Contains(t, rep.Skipped, "Sleep_Hours")
	assert.Len(t, rep.Skipped, len(DefaultColumns)-1)

	notes, err := out.Records("Notes")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "-1", "y"}, notes)
}

// The id column keeps clipped rows distinct, so the second pass sees the
// same rows and the same quantiles.
func TestClean_IdempotentWhenRowsStayDistinct(t *testing.T) {
	captureWarnings(t)

	n := 150
	sleep := make([]string, n)
	stress := make([]float64, n)
	for i := 0; i < n; i++ {
		switch {
		case i%17 == 0:
			sleep[i] = "NA"
		case i%23 == 0:
			sleep[i] = "-2"
		default:
			sleep[i] = []string{"4.5", "6", "7.25", "8", "12"}[i%5]
		}
		stress[i] = float64((i * 37) % 101)
	}
	stress[10] = 5000

	tbl, err := dataset.FromSeries(
		ids(n),
		dataset.StringColumn("Sleep_Hours", sleep),
		dataset.FloatColumn("Stress_Level", stress),
	)
	require.NoError(t, err)

	c := newCleaner(t)
	once, _, err := c.Clean(tbl)
	require.NoError(t, err)
	twice, rep, err := c.Clean(once)
	require.NoError(t, err)

	for _, name := range []string{"Sleep_Hours", "Stress_Level"} {
		a, err := once.Floats(name)
		require.NoError(t, err)
		b, err := twice.Floats(name)
		require.NoError(t, err)
		assert.Equal(t, a, b, "column %s changed on second pass", name)
	}
	for _, col := range rep.Columns {
		assert.Zero(t, col.Changed(), "column %s repaired again", col.Column)
	}
	assert.Zero(t, rep.DuplicatesDropped)
}

func TestClean_ClippingDuplicatesShrinkSecondPass(t *testing.T) {
	captureWarnings(t)

	values := make([]float64, 200)
	for i := range values {
		values[i] = float64(i)
	}
	tbl, err := dataset.FromSeries(dataset.FloatColumn("Errors", values))
	require.NoError(t, err)

	c := newCleaner(t)
	once, rep1, err := c.Clean(tbl)
	require.NoError(t, err)
	require.Len(t, rep1.Columns, 1)
	assert.Equal(t, 197, rep1.RowsOut)
	assert.Equal(t, 3, rep1.DuplicatesDropped)
	assert.Equal(t, 3, rep1.Columns[0].Clipped)
	assert.Equal(t, [2]float64{1, 197}, [2]float64{rep1.Columns[0].Lower, rep1.Columns[0].Upper})

	// Quantiles of the deduplicated 197 rows move inward.
	twice, rep2, err := c.Clean(once)
	require.NoError(t, err)
	assert.Equal(t, 195, twice.Nrow())
	assert.Equal(t, 2, rep2.DuplicatesDropped)
	assert.Equal(t, 2, rep2.Columns[0].Clipped)
	assert.Equal(t, [2]float64{2, 196}, [2]float64{rep2.Columns[0].Lower, rep2.Columns[0].Upper})
}

func TestClean_DoesNotModifyInput(t *testing.T) {
	captureWarnings(t)

	tbl, err := dataset.FromSeries(ids(2), dataset.FloatColumn("Commits", []float64{-1, 2}))
	require.NoError(t, err)

	_, _, err = newCleaner(t).Clean(tbl)
	require.NoError(t, err)

	got, err := tbl.Floats("Commits")
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, 2}, got)
}

func TestClean_AllMissingColumnFilledWithZero(t *testing.T) {
	warnings := captureWarnings(t)

	tbl, err := dataset.FromSeries(ids(3), dataset.StringColumn("Coffee_Intake", []string{"NA", "none", "-"}))
	require.NoError(t, err)

	out, _, err := newCleaner(t).Clean(tbl)
	require.NoError(t, err)

	got, err := out.Floats("Coffee_Intake")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, got)
	assert.NotEmpty(t, *warnings)
}

func TestNew_RejectsBadQuantiles(t *testing.T) {
	tests := []struct {
		name         string
		lower, upper float64
	}{
		{"inverted", 0.9, 0.1},
		{"equal", 0.5, 0.5},
		{"negative lower", -0.1, 0.9},
		{"upper above one", 0.1, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(RepairSpec{LowerQuantile: tt.lower, UpperQuantile: tt.upper})
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve))
		})
	}
}

func TestNew_EmptyColumnsUseDefaults(t *testing.T) {
	c, err := New(RepairSpec{LowerQuantile: 0.05, UpperQuantile: 0.95})
	require.NoError(t, err)
	assert.Equal(t, DefaultColumns, c.Spec().Columns)
}
