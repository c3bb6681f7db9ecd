package modelselection

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestTrainTestSplit_Sizes(t *testing.T) {
	tests := []struct {
		n               int
		wantTrain, want int
	}{
		{100, 80, 20},
		{1000, 800, 200},
		{11, 8, 3},
		{2, 1, 1},
	}
	for _, tt := range tests {
		s, err := TrainTestSplit(tt.n, 0.2, DefaultSeed)
		require.NoError(t, err)
		assert.Len(t, s.TrainIndices, tt.wantTrain, "n=%d", tt.n)
		assert.Len(t, s.TestIndices, tt.want, "n=%d", tt.n)
	}
}

func TestTrainTestSplit_PartitionsAllRows(t *testing.T) {
	s, err := TrainTestSplit(57, 0.2, DefaultSeed)
	require.NoError(t, err)

	all := append(append([]int(nil), s.TrainIndices...), s.TestIndices...)
	sort.Ints(all)
	want := make([]int, 57)
	for i := range want {
		want[i] = i
	}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("union of partitions mismatch (-want +got):\n%s", diff)
	}
}

func TestTrainTestSplit_Reproducible(t *testing.T) {
	a, err := TrainTestSplit(200, 0.2, DefaultSeed)
	require.NoError(t, err)
	b, err := TrainTestSplit(200, 0.2, DefaultSeed)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := TrainTestSplit(200, 0.2, 7)
	require.NoError(t, err)
	assert.NotEqual(t, a.TestIndices, c.TestIndices)
}

func TestTrainTestSplit_Invalid(t *testing.T) {
	_, err := TrainTestSplit(1, 0.2, DefaultSeed)
	assert.Error(t, err)
	_, err = TrainTestSplit(10, 0, DefaultSeed)
	assert.Error(t, err)
	_, err = TrainTestSplit(10, 1, DefaultSeed)
	assert.Error(t, err)
}

func TestTakeRows(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	got := TakeRows(X, []int{2, 0})
	want := mat.NewDense(2, 2, []float64{5, 6, 1, 2})
	assert.True(t, mat.Equal(want, got))

	assert.Equal(t, []float64{30, 10}, TakeValues([]float64{10, 20, 30}, []int{2, 0}))
}
