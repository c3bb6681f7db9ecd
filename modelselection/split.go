// Package modelselection partitions rows into training and test sets.
package modelselection

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/devperf/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DefaultSeed is the seed used by the pipeline for every split.
const DefaultSeed uint64 = 42

// Split holds the row positions of one train/test partition.
type Split struct {
	TrainIndices []int
	TestIndices  []int
}

// TrainTestSplit shuffles 0..nSamples-1 with a PCG source seeded by seed
// and assigns the first ceil(testSize·n) positions to the test set. The
// same (nSamples, testSize, seed) always yields the same split.
func TrainTestSplit(nSamples int, testSize float64, seed uint64) (Split, error) {
	if testSize <= 0 || testSize >= 1 {
		return Split{}, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(nSamples)))
	nTrain := nSamples - nTest
	if nTest < 1 || nTrain < 1 {
		return Split{}, errors.NewValueError("TrainTestSplit",
			fmt.Sprintf("n_samples=%d with test_size=%g leaves an empty partition", nSamples, testSize))
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	r := rand.New(rand.NewPCG(seed, seed))
	r.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	return Split{
		TestIndices:  append([]int(nil), indices[:nTest]...),
		TrainIndices: append([]int(nil), indices[nTest:]...),
	}, nil
}

// TakeRows copies the given rows of X into a new matrix.
func TakeRows(X mat.Matrix, rows []int) *mat.Dense {
	_, c := X.Dims()
	out := mat.NewDense(len(rows), c, nil)
	for i, r := range rows {
		for j := 0; j < c; j++ {
			out.Set(i, j, X.At(r, j))
		}
	}
	return out
}

// TakeValues returns y[rows] as a new slice.
func TakeValues(y []float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = y[r]
	}
	return out
}
