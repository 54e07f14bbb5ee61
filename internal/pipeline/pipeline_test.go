package pipeline

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/data"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/models"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/preprocessing"
)

var errShape = errors.New("found input variables with inconsistent numbers of samples")

// recorder keeps what it was fitted on and fails on row mismatch.
type recorder[Y any] struct {
	X [][]decimal.Decimal
	y []Y
}

func (r *recorder[Y]) Fit(X [][]decimal.Decimal, y []Y) error {
	if len(X) != len(y) {
		return errShape
	}
	r.X, r.y = X, y
	return nil
}

func rows(X [][]decimal.Decimal) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = v.InexactFloat64()
		}
	}
	return out
}

func ageIncomeCity(t *testing.T) *data.Frame {
	t.Helper()
	f, err := data.NewBuilder().
		Float64("age", []float64{30, 0, 52}, []bool{true, false, true}).
		Float64("income", []float64{1200, 3400, 800}, nil).
		String("city", []string{"A", "B", ""}, []bool{true, true, false}).
		Build()
	require.NoError(t, err)
	t.Cleanup(f.Release)
	return f
}

func TestInterestVariables(t *testing.T) {
	assert.Len(t, InterestVariables, 10)
	assert.Equal(t, "NAME_INCOME_TYPE", InterestVariables[0])
	assert.Equal(t, "OWN_CAR_AGE", InterestVariables[9])
}

func TestModelPipelineScenario(t *testing.T) {
	model := &recorder[int]{}
	p, err := ModelPipeline(ageIncomeCity(t), []int{0, 1, 0}, Estimator[int](model))
	require.NoError(t, err)

	assert.Equal(t, [][]float64{
		{30, 1200, 1, 0, 0},
		{0, 3400, 0, 1, 0},
		{52, 800, 0, 0, 1},
	}, rows(model.X))
	assert.Equal(t, []string{
		"num__age", "num__income", "cat__city_A", "cat__city_B", "cat__city_unknown",
	}, p.FeatureNames())
	assert.Equal(t, []int{0, 1, 0}, model.y)
}

func TestModelPipelineNumericOnly(t *testing.T) {
	f, err := data.NewBuilder().
		Float64("DAYS_BIRTH", []float64{-12000, 0, -9000}, []bool{true, false, true}).
		Int64("OWN_CAR_AGE", []int64{0, 4, 0}, []bool{false, true, false}).
		Build()
	require.NoError(t, err)
	defer f.Release()

	model := &recorder[float64]{}
	_, err = ModelPipeline(f, []float64{1, 2, 3}, Estimator[float64](model))
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{-12000, 0}, {0, 4}, {-9000, 0}}, rows(model.X))
}

func TestModelPipelineUnseenCategory(t *testing.T) {
	train, err := data.NewBuilder().
		String("CODE_GENDER", []string{"F", "M", "F", "M"}, nil).
		String("NAME_HOUSING_TYPE", []string{"House", "Rented", "House", ""}, []bool{true, true, true, false}).
		Build()
	require.NoError(t, err)
	defer train.Release()

	p, err := ModelPipeline(train, []int{0, 1, 0, 1}, Estimator[int](&recorder[int]{}))
	require.NoError(t, err)

	test, err := data.NewBuilder().
		String("CODE_GENDER", []string{"XNA"}, nil).
		String("NAME_HOUSING_TYPE", []string{"Rented"}, nil).
		Build()
	require.NoError(t, err)
	defer test.Release()

	X, err := p.Transform(test)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 0, 0, 1, 0}}, rows(X))
}

func TestModelPipelineIdempotent(t *testing.T) {
	y := []int{1, 0, 1}
	a, err := ModelPipeline(ageIncomeCity(t), y, Estimator[int](models.NewKNN(1, "")))
	require.NoError(t, err)
	b, err := ModelPipeline(ageIncomeCity(t), y, Estimator[int](models.NewKNN(1, "")))
	require.NoError(t, err)

	assert.Equal(t, a.Preprocessor.NumericColumns, b.Preprocessor.NumericColumns)
	assert.Equal(t, a.Preprocessor.CategoricalColumns, b.Preprocessor.CategoricalColumns)
	assert.Equal(t, a.Preprocessor.Encoder.Categories, b.Preprocessor.Encoder.Categories)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestModelPipelineShapeInvariants(t *testing.T) {
	f, err := data.NewBuilder().
		Int64("DAYS_EMPLOYED", []int64{-100, -200, -300, -400, -500}, nil).
		String("NAME_INCOME_TYPE", []string{"Working", "Pensioner", "Working", "", "State servant"}, []bool{true, true, true, false, true}).
		String("OCCUPATION_TYPE", []string{"Laborers", "Laborers", "", "Drivers", "Drivers"}, []bool{true, true, false, true, true}).
		Build()
	require.NoError(t, err)
	defer f.Release()

	model := &recorder[int]{}
	p, err := ModelPipeline(f, []int{0, 0, 1, 1, 0}, Estimator[int](model))
	require.NoError(t, err)

	require.Len(t, model.X, f.NumRows())
	// 1 numeric + 4 income types + 3 occupations.
	for _, row := range model.X {
		assert.Len(t, row, 8)
	}
	assert.Equal(t, 8, p.Preprocessor.NumFeatures())
}

func TestModelPipelinePropagatesFitError(t *testing.T) {
	f, err := data.NewBuilder().
		Float64("x", make([]float64, 10), nil).
		Build()
	require.NoError(t, err)
	defer f.Release()

	_, err = ModelPipeline(f, make([]int, 9), Estimator[int](&recorder[int]{}))
	assert.True(t, err == errShape, "model error must be returned unchanged, got %v", err)

	_, err = ModelPipeline(f, make([]int, 9), Estimator[int](models.NewDecisionTree(3, 2)))
	assert.ErrorIs(t, err, models.ErrDimensionMismatch)
}

func TestModelPipelineDoesNotMutateInputs(t *testing.T) {
	f := ageIncomeCity(t)
	y := []int{2, 1, 0}
	_, err := ModelPipeline(f, y, Estimator[int](&recorder[int]{}))
	require.NoError(t, err)

	age, err := f.Column("age")
	require.NoError(t, err)
	assert.True(t, age.IsNull(1))
	city, err := f.Column("city")
	require.NoError(t, err)
	assert.True(t, city.IsNull(2))
	assert.Equal(t, []int{2, 1, 0}, y)
	assert.Equal(t, 3, f.NumCols())
}

func TestModelPipelineUnsupportedColumns(t *testing.T) {
	build := func() *data.Frame {
		f, err := data.NewBuilder().
			Float64("OWN_CAR_AGE", []float64{1, 2}, nil).
			Bool("FLAG_OWN_REALTY", []bool{true, false}, nil).
			Timestamp("APPLIED_AT", []time.Time{time.Unix(0, 0), time.Unix(60, 0)}, nil).
			Build()
		require.NoError(t, err)
		t.Cleanup(f.Release)
		return f
	}

	_, err := ModelPipeline(build(), []int{0, 1}, Estimator[int](&recorder[int]{}))
	assert.ErrorIs(t, err, ErrUnsupportedColumn)
	assert.Contains(t, err.Error(), "FLAG_OWN_REALTY")

	var logs bytes.Buffer
	model := &recorder[int]{}
	p, err := ModelPipeline(build(), []int{0, 1}, Estimator[int](model),
		WithUnsupportedPolicy(preprocessing.DropUnsupported),
		WithLogger(log.New(&logs, "", 0)))
	require.NoError(t, err)
	assert.Equal(t, []string{"FLAG_OWN_REALTY", "APPLIED_AT"}, p.Preprocessor.DroppedColumns)
	assert.Equal(t, [][]float64{{1}, {2}}, rows(model.X))
	assert.Contains(t, logs.String(), "dropping unsupported columns")
}

func TestModelPipelineOptions(t *testing.T) {
	model := &recorder[int]{}
	_, err := ModelPipeline(ageIncomeCity(t), []int{0, 1, 0}, Estimator[int](model),
		WithNumericFill(decimal.NewFromInt(-1)),
		WithCategoricalFill("missing"),
		WithScaling(preprocessing.ScaleNormalized))
	require.NoError(t, err)

	// age: 30, -1, 52 scaled to [0, 1].
	assert.InDelta(t, 31.0/53.0, model.X[0][0].InexactFloat64(), 1e-9)
	assert.InDelta(t, 0.0, model.X[1][0].InexactFloat64(), 1e-9)
	assert.InDelta(t, 1.0, model.X[2][0].InexactFloat64(), 1e-9)
}

func TestPipelinePredict(t *testing.T) {
	f := ageIncomeCity(t)
	p, err := ModelPipeline(f, []int{1, 0, 1}, Estimator[int](models.NewKNN(1, "")))
	require.NoError(t, err)

	pred, err := p.Predict(f)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 1}, pred)

	proba, err := p.PredictProba(f)
	require.NoError(t, err)
	assert.Len(t, proba, 3)

	stub, err := ModelPipeline(f, []int{1, 0, 1}, Estimator[int](&recorder[int]{}))
	require.NoError(t, err)
	_, err = stub.Predict(f)
	assert.ErrorIs(t, err, ErrNotPredictor)
	_, err = stub.PredictProba(f)
	assert.ErrorIs(t, err, ErrNotPredictor)
}

func TestModelPipelineBlankCategoricalRow(t *testing.T) {
	train, err := data.ReadCSV(strings.NewReader(
		"DAYS_BIRTH,OCCUPATION_TYPE\n-100,Drivers\n-200,Cooking staff\n-300,\n"), data.DefaultCSVOptions())
	require.NoError(t, err)
	defer train.Release()

	p, err := ModelPipeline(train, []int{0, 1, 1}, Estimator[int](models.NewKNN(1, "")))
	require.NoError(t, err)

	// no value in the categorical column, so it reads back as float64
	row, err := data.ReadCSV(strings.NewReader("DAYS_BIRTH,OCCUPATION_TYPE\n-150,\n"), data.DefaultCSVOptions())
	require.NoError(t, err)
	defer row.Release()

	X, err := p.Transform(row)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{-150, 0, 0, 1}}, rows(X))

	_, err = p.Predict(row)
	assert.NoError(t, err)
}

func TestPipelinePrune(t *testing.T) {
	train, err := data.NewBuilder().
		Float64("DAYS_BIRTH", []float64{-100, -200, -300, -400}, nil).
		Build()
	require.NoError(t, err)
	defer train.Release()

	tree := models.NewDecisionTree(5, 2)
	p, err := ModelPipeline(train, []int{0, 0, 1, 1}, Estimator[int](tree))
	require.NoError(t, err)
	require.False(t, tree.Root.IsLeaf)

	val, err := data.NewBuilder().
		Float64("DAYS_BIRTH", []float64{-100, -400}, nil).
		Build()
	require.NoError(t, err)
	defer val.Release()

	assert.Error(t, p.Prune(val, []int{0}))
	require.NoError(t, p.Prune(val, []int{0, 1}))
	assert.False(t, tree.Root.IsLeaf)

	// labels that disagree with every split collapse the tree
	require.NoError(t, p.Prune(val, []int{0, 0}))
	assert.True(t, tree.Root.IsLeaf)

	knn, err := ModelPipeline(train, []int{0, 0, 1, 1}, Estimator[int](models.NewKNN(1, "")))
	require.NoError(t, err)
	assert.ErrorIs(t, knn.Prune(val, []int{0, 1}), ErrNotPrunable)
}
