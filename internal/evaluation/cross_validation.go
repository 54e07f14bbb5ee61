package evaluation

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/data"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/models"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/pipeline"
)

// PipelineFactory builds and fits a fresh pipeline on one training fold.
type PipelineFactory func(X *data.Frame, y []int) (*pipeline.Pipeline[int], error)

// ModelFactory returns a PipelineFactory that creates a new model from config
// for every fold.
func ModelFactory(config models.ModelConfig, opts ...pipeline.Option) PipelineFactory {
	return func(X *data.Frame, y []int) (*pipeline.Pipeline[int], error) {
		model, err := models.CreateModel(config)
		if err != nil {
			return nil, err
		}
		return pipeline.ModelPipeline(X, y, pipeline.Estimator[int](model), opts...)
	}
}

// PruningFactory wraps factory so the pipeline is fitted on all but a
// stratified validationSize share of the rows it is given and then pruned
// against that held-back share.
func PruningFactory(factory PipelineFactory, validationSize float64, seed int64) PipelineFactory {
	return func(X *data.Frame, y []int) (*pipeline.Pipeline[int], error) {
		fitRows, valRows, err := NewTrainTestSplitter(validationSize, seed, true).StratifiedSplit(y)
		if err != nil {
			return nil, fmt.Errorf("validation split: %w", err)
		}
		XFit, XVal, err := SplitFrame(X, fitRows, valRows)
		if err != nil {
			return nil, err
		}
		defer XFit.Release()
		defer XVal.Release()

		p, err := factory(XFit, Subset(y, fitRows))
		if err != nil {
			return nil, err
		}
		if err := p.Prune(XVal, Subset(y, valRows)); err != nil {
			return nil, err
		}
		return p, nil
	}
}

type CrossValidator struct {
	NFolds     int
	Stratified bool
	Shuffle    bool
	RandomSeed int64
	Parallel   bool
	MaxWorkers int
}

func NewCrossValidator(nFolds int, stratified bool) *CrossValidator {
	return &CrossValidator{
		NFolds:     nFolds,
		Stratified: stratified,
		Shuffle:    true,
		RandomSeed: 42,
		Parallel:   true,
		MaxWorkers: 4,
	}
}

type CVResult struct {
	Scores []float64
	Mean   float64
	Std    float64
}

func (r *CVResult) String() string {
	return fmt.Sprintf("%.4f ± %.4f over %d folds", r.Mean, r.Std, len(r.Scores))
}

func (cv *CrossValidator) Folds(y []int) ([][]int, error) {
	if cv.Stratified {
		return StratifiedKFold(y, cv.NFolds, cv.Shuffle, cv.RandomSeed)
	}
	return KFold(len(y), cv.NFolds, cv.Shuffle, cv.RandomSeed)
}

// CrossValidate fits one pipeline per fold on the remaining rows and scores
// its accuracy on the held-out fold. Every fold refits the column
// transformer, so categories seen only in a test fold encode as zeros.
// Folds run concurrently when Parallel is set; the first failure cancels the
// folds not yet started.
func (cv *CrossValidator) CrossValidate(ctx context.Context, X *data.Frame, y []int, factory PipelineFactory) (*CVResult, error) {
	if X.NumRows() != len(y) {
		return nil, fmt.Errorf("%w: %d rows but %d targets", models.ErrDimensionMismatch, X.NumRows(), len(y))
	}
	folds, err := cv.Folds(y)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(folds))
	g, ctx := errgroup.WithContext(ctx)
	limit := 1
	if cv.Parallel {
		limit = cv.MaxWorkers
	}
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, testIndices := range folds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			score, err := cv.evaluateFold(X, y, factory, testIndices)
			if err != nil {
				return fmt.Errorf("fold %d failed: %w", i, err)
			}
			scores[i] = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	mean, std := calculateStats(scores)
	return &CVResult{Scores: scores, Mean: mean, Std: std}, nil
}

func (cv *CrossValidator) evaluateFold(X *data.Frame, y []int, factory PipelineFactory, testIndices []int) (float64, error) {
	trainIndices := Complement(len(y), testIndices)
	XTrain, XTest, err := SplitFrame(X, trainIndices, testIndices)
	if err != nil {
		return 0, err
	}
	defer XTrain.Release()
	defer XTest.Release()

	p, err := factory(XTrain, Subset(y, trainIndices))
	if err != nil {
		return 0, err
	}
	predictions, err := p.Predict(XTest)
	if err != nil {
		return 0, err
	}
	return Accuracy(Subset(y, testIndices), predictions), nil
}

// calculateStats returns the mean and the sample standard deviation.
func calculateStats(scores []float64) (mean, std float64) {
	if len(scores) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	mean = sum / float64(len(scores))

	if len(scores) > 1 {
		variance := 0.0
		for _, s := range scores {
			diff := s - mean
			variance += diff * diff
		}
		variance /= float64(len(scores) - 1)
		std = math.Sqrt(variance)
	}

	return mean, std
}
