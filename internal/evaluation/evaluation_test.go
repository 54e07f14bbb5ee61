package evaluation

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/data"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/models"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/pipeline"
)

func TestCalculateMetrics(t *testing.T) {
	yTrue := []int{0, 0, 1, 1, 1, 2}
	yPred := []int{0, 1, 1, 1, 0, 2}

	m := CalculateMetrics(yTrue, yPred, []int{0, 1, 2})
	require.NotNil(t, m)

	assert.InDelta(t, 4.0/6.0, m.Accuracy, 1e-9)
	assert.Equal(t, [][]int{{1, 1, 0}, {1, 2, 0}, {0, 0, 1}}, m.ConfusionMatrix)
	assert.InDelta(t, 0.5, m.PerClassMetrics[0].Precision, 1e-9)
	assert.InDelta(t, 2.0/3.0, m.PerClassMetrics[1].Recall, 1e-9)
	assert.InDelta(t, 1.0, m.PerClassMetrics[2].F1Score, 1e-9)
	assert.InDelta(t, (0.5+2.0/3.0+1)/3, m.BalancedAccuracy, 1e-9)
	assert.Equal(t, 3, m.ClassSupport[1])
	assert.Contains(t, m.FormatMetrics(), "Accuracy: 0.6667")

	assert.Nil(t, CalculateMetrics([]int{0}, []int{0, 1}, []int{0, 1}))
}

func TestCalculateRegressionMetrics(t *testing.T) {
	m := CalculateRegressionMetrics([]float64{1, 2, 3, 4}, []float64{1, 2, 3, 6})
	require.NotNil(t, m)
	assert.InDelta(t, 0.5, m.MAE, 1e-9)
	assert.InDelta(t, 1.0, m.RMSE, 1e-9)
	assert.InDelta(t, 1-4.0/5.0, m.R2, 1e-9)

	assert.Nil(t, CalculateRegressionMetrics(nil, nil))
}

func TestTrainTestSplit(t *testing.T) {
	train, test, err := NewTrainTestSplitter(0.3, 1, true).Split(10)
	require.NoError(t, err)
	assert.Len(t, train, 7)
	assert.Len(t, test, 3)

	all := append(append([]int(nil), train...), test...)
	sort.Ints(all)
	assert.Equal(t, sequence(10), all)

	again, _, err := NewTrainTestSplitter(0.3, 1, true).Split(10)
	require.NoError(t, err)
	assert.Equal(t, train, again)

	_, _, err = NewTrainTestSplitter(1.5, 1, true).Split(10)
	assert.Error(t, err)
	_, _, err = NewTrainTestSplitter(0.3, 1, true).Split(0)
	assert.Error(t, err)
}

func TestStratifiedSplit(t *testing.T) {
	y := []int{0, 0, 0, 0, 0, 0, 0, 0, 1, 1}
	train, test, err := NewTrainTestSplitter(0.25, 3, true).StratifiedSplit(y)
	require.NoError(t, err)

	assert.Len(t, train, 7)
	assert.Len(t, test, 3)
	assert.ElementsMatch(t, []int{0, 0, 1}, Subset(y, test))
}

func TestKFolds(t *testing.T) {
	folds, err := KFold(10, 3, false, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1, 2}, {3, 4, 5}, {6, 7, 8, 9}}, folds)
	assert.Equal(t, []int{3, 4, 5, 6, 7, 8, 9}, Complement(10, folds[0]))

	_, err = KFold(3, 4, false, 0)
	assert.Error(t, err)

	y := []int{1, 0, 1, 0, 1, 0}
	strat, err := StratifiedKFold(y, 3, false, 0)
	require.NoError(t, err)
	for _, fold := range strat {
		assert.ElementsMatch(t, []int{0, 1}, Subset(y, fold))
	}
}

func applicants(t *testing.T) (*data.Frame, []int) {
	t.Helper()
	n := 12
	children := make([]int64, n)
	income := make([]string, n)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			income[i], y[i] = "Pensioner", 0
		} else {
			income[i], y[i] = "Working", 1
		}
	}
	f, err := data.NewBuilder().
		Int64("CNT_CHILDREN", children, nil).
		String("NAME_INCOME_TYPE", income, nil).
		Build()
	require.NoError(t, err)
	t.Cleanup(f.Release)
	return f, y
}

func TestCrossValidate(t *testing.T) {
	X, y := applicants(t)
	factory := ModelFactory(models.ModelConfig{Algorithm: "tree"})

	parallel := NewCrossValidator(3, true)
	result, err := parallel.CrossValidate(context.Background(), X, y, factory)
	require.NoError(t, err)
	assert.Len(t, result.Scores, 3)
	assert.InDelta(t, 1.0, result.Mean, 1e-9)
	assert.InDelta(t, 0.0, result.Std, 1e-9)

	serial := NewCrossValidator(3, false)
	serial.Parallel = false
	again, err := serial.CrossValidate(context.Background(), X, y, factory)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, again.Mean, 1e-9)
}

func TestCrossValidateErrors(t *testing.T) {
	X, y := applicants(t)
	cv := NewCrossValidator(3, false)

	_, err := cv.CrossValidate(context.Background(), X, y[:5], ModelFactory(models.ModelConfig{Algorithm: "knn"}))
	assert.ErrorIs(t, err, models.ErrDimensionMismatch)

	boom := errors.New("boom")
	_, err = cv.CrossValidate(context.Background(), X, y, func(*data.Frame, []int) (*pipeline.Pipeline[int], error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = cv.CrossValidate(ctx, X, y, ModelFactory(models.ModelConfig{Algorithm: "knn"}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPruningFactory(t *testing.T) {
	X, y := applicants(t)

	var fitted int
	base := ModelFactory(models.ModelConfig{Algorithm: "tree"})
	counting := func(X *data.Frame, y []int) (*pipeline.Pipeline[int], error) {
		fitted = len(y)
		return base(X, y)
	}

	p, err := PruningFactory(counting, 0.25, 42)(X, y)
	require.NoError(t, err)
	assert.Equal(t, 10, fitted)

	predictions, err := p.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, y, predictions)

	_, err = PruningFactory(ModelFactory(models.ModelConfig{Algorithm: "knn"}), 0.25, 42)(X, y)
	assert.ErrorIs(t, err, pipeline.ErrNotPrunable)

	_, err = PruningFactory(base, 1.5, 42)(X, y)
	assert.Error(t, err)
}
