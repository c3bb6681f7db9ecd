package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/YuminosukeSato/devperf/cleaning"
	"github.com/YuminosukeSato/devperf/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Scores(t *testing.T) {
	m := New("run-1")
	m.ObserveScores("KNN", metrics.Scores{MAE: 1.5, RMSE: 2, R2: 0.8})
	m.ObserveScores("KNN", metrics.Scores{MAE: 1, RMSE: 1.25, R2: 0.9})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.score.WithLabelValues("KNN", "mae")))
	assert.Equal(t, 1.25, testutil.ToFloat64(m.score.WithLabelValues("KNN", "rmse")))
	assert.Equal(t, 0.9, testutil.ToFloat64(m.score.WithLabelValues("KNN", "r2")))
}

func TestMetrics_FitDuration(t *testing.T) {
	m := New("run-1")
	m.ObserveFit("RandomForest", 250*time.Millisecond)
	m.ObserveFit("KNN", time.Millisecond)

	assert.Equal(t, 2, testutil.CollectAndCount(m.fitDuration))
}

func TestMetrics_Cleaning(t *testing.T) {
	m := New("run-1")
	m.ObserveCleaning(cleaning.Report{
		RowsIn:            10,
		RowsOut:           9,
		DuplicatesDropped: 1,
		Columns: []cleaning.ColumnReport{
			{Column: "Sleep_Hours", Coerced: 1, Negative: 2, Imputed: 3, Clipped: 1},
		},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.repaired.WithLabelValues("Sleep_Hours", "coerced")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.repaired.WithLabelValues("Sleep_Hours", "negative")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.repaired.WithLabelValues("Sleep_Hours", "imputed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.duplicates))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.rows.WithLabelValues(StageLoaded)))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.rows.WithLabelValues(StageCleaned)))
}

func TestMetrics_RegistriesAreIndependent(t *testing.T) {
	a, b := New("a"), New("b")
	a.SetRows(StageTrain, 80)

	assert.Equal(t, 80.0, testutil.ToFloat64(a.rows.WithLabelValues(StageTrain)))
	assert.Equal(t, 0, testutil.CollectAndCount(b.rows))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New("0b9c")
	m.SetRows(StageTest, 20)

	path := filepath.Join(t.TempDir(), "nested", "devperf.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, `devperf_data_rows{stage="test"} 20`), out)
	assert.True(t, strings.Contains(out, `devperf_run_info{run_id="0b9c"} 1`), out)
}
