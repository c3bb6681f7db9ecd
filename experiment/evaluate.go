package experiment

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/YuminosukeSato/devperf/core/model"
	"github.com/YuminosukeSato/devperf/metrics"
	"github.com/YuminosukeSato/devperf/pkg/errors"
	"github.com/YuminosukeSato/devperf/pkg/log"
	"golang.org/x/sync/errgroup"
)

// Score is the held-out evaluation of one model. When Err is set the
// metric fields are NaN.
type Score struct {
	Model string
	metrics.Scores
	FitDuration time.Duration
	Err         error
}

// Ranking orders scores by descending R².
type Ranking []Score

// Rank sorts a copy of scores by descending R². NaN sorts last and ties
// keep registry order.
func Rank(scores []Score) Ranking {
	r := append(Ranking(nil), scores...)
	sort.SliceStable(r, func(i, j int) bool {
		a, b := r[i].R2, r[j].R2
		if math.IsNaN(a) {
			return false
		}
		if math.IsNaN(b) {
			return true
		}
		return a > b
	})
	return r
}

// Best returns the top-ranked model that evaluated without error.
func (r Ranking) Best() (Score, bool) {
	for _, s := range r {
		if s.Err == nil {
			return s, true
		}
	}
	return Score{}, false
}

// Recorder receives evaluation telemetry.
type Recorder interface {
	ObserveFit(model string, d time.Duration)
	ObserveScores(model string, s metrics.Scores)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFit(string, time.Duration)      {}
func (nopRecorder) ObserveScores(string, metrics.Scores) {}

// Evaluator fits every model of a bank on the training split and scores
// it on the test split.
type Evaluator struct {
	bank     Bank
	parallel bool
	recorder Recorder
	logger   log.Logger
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithBank replaces the default model bank.
func WithBank(b Bank) EvaluatorOption {
	return func(e *Evaluator) { e.bank = b }
}

// WithParallel toggles concurrent model fitting (default true).
func WithParallel(p bool) EvaluatorOption {
	return func(e *Evaluator) { e.parallel = p }
}

// WithRecorder sets the telemetry sink.
func WithRecorder(r Recorder) EvaluatorOption {
	return func(e *Evaluator) {
		if r != nil {
			e.recorder = r
		}
	}
}

// NewEvaluator creates an Evaluator over DefaultBank.
func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		bank:     DefaultBank(),
		parallel: true,
		recorder: nopRecorder{},
		logger:   log.GetLoggerWithName("experiment.evaluator"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Bank returns the evaluated models.
func (e *Evaluator) Bank() Bank {
	return e.bank
}

// Evaluate scores every model and returns the ranking. A model that fails
// stays in the ranking with its error; Evaluate itself fails only when the
// context is cancelled or no model could be scored.
func (e *Evaluator) Evaluate(ctx context.Context, fs *FeatureSet) (Ranking, error) {
	if fs == nil {
		return nil, errors.NewModelError("Evaluate", "no feature set", errors.ErrEmptyData)
	}
	if len(e.bank) == 0 {
		return nil, errors.NewValueError("Evaluate", "model bank is empty")
	}

	results := make([]Score, len(e.bank))
	g, gctx := errgroup.WithContext(ctx)
	if !e.parallel {
		g.SetLimit(1)
	}
	for i, entry := range e.bank {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.evaluate(entry, fs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "evaluate models")
	}

	ranking := Rank(results)
	best, ok := ranking.Best()
	if !ok {
		return ranking, errors.Wrap(ranking[0].Err, fmt.Sprintf("all %d models failed", len(ranking)))
	}
	e.logger.Info("Evaluation complete",
		log.ModelNameKey, best.Model,
		log.R2ScoreKey, best.R2,
		"models", len(ranking),
	)
	return ranking, nil
}

func (e *Evaluator) evaluate(entry Entry, fs *FeatureSet) Score {
	nan := math.NaN()
	score := Score{Model: entry.Name, Scores: metrics.Scores{MAE: nan, RMSE: nan, R2: nan}}
	logger := e.logger.With(log.ModelNameKey, entry.Name)

	m := entry.Template.Clone()
	start := time.Now()
	err := errors.SafeExecute(entry.Name+".Fit", func() error {
		return m.Fit(fs.XTrain, fs.YTrainMatrix())
	})
	score.FitDuration = time.Since(start)
	if err != nil {
		score.Err = err
		logger.Error("Model fit failed", err, log.OperationKey, log.OperationFit)
		return score
	}
	e.recorder.ObserveFit(entry.Name, score.FitDuration)

	var pred []float64
	err = errors.SafeExecute(entry.Name+".Predict", func() error {
		p, err := m.Predict(fs.XTest)
		if err != nil {
			return err
		}
		pred = model.ColumnOf(p)
		return errors.CheckFinite(entry.Name+".Predict", pred, 0)
	})
	if err != nil {
		score.Err = err
		logger.Error("Model predict failed", err, log.OperationKey, log.OperationPredict)
		return score
	}

	s, err := metrics.Regression(fs.YTest, pred)
	if err != nil {
		score.Err = err
		logger.Error("Model scoring failed", err, log.OperationKey, log.OperationScore)
		return score
	}
	score.Scores = s
	e.recorder.ObserveScores(entry.Name, s)

	logger.Debug("Model evaluated",
		log.OperationKey, log.OperationScore,
		log.DurationMsKey, score.FitDuration.Milliseconds(),
		log.MAEKey, s.MAE,
		log.RMSEKey, s.RMSE,
		log.R2ScoreKey, s.R2,
	)
	return score
}
