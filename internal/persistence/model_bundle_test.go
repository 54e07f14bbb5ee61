package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/data"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/models"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/pipeline"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/preprocessing"
)

func trainFrame(t *testing.T) *data.Frame {
	t.Helper()
	f, err := data.NewBuilder().
		Float64("OWN_CAR_AGE", []float64{3, 0, 12, 7}, []bool{true, false, true, true}).
		String("NAME_FAMILY_STATUS", []string{"Married", "Single", "", "Married"}, []bool{true, true, false, true}).
		Build()
	require.NoError(t, err)
	t.Cleanup(f.Release)
	return f
}

func TestModelBundleRoundTrip(t *testing.T) {
	X := trainFrame(t)
	y := []int{1, 0, 0, 1}

	for _, algorithm := range models.Algorithms {
		t.Run(algorithm, func(t *testing.T) {
			model, err := models.CreateModel(models.ModelConfig{Algorithm: algorithm, NTrees: 5})
			require.NoError(t, err)
			p, err := pipeline.ModelPipeline(X, y, pipeline.Estimator[int](model),
				pipeline.WithScaling(preprocessing.ScaleStandardized))
			require.NoError(t, err)

			bundle := NewModelBundle(p)
			bundle.Metadata.Dataset = "application_train.csv"
			path := filepath.Join(t.TempDir(), "model.gob")
			require.NoError(t, bundle.Save(path))

			loaded, err := LoadModelBundle[int](path)
			require.NoError(t, err)
			assert.Equal(t, model.GetName(), loaded.Metadata.ModelName)
			assert.Equal(t, p.FeatureNames(), loaded.Pipeline.FeatureNames())
			assert.Equal(t, p.Fingerprint(), loaded.Pipeline.Fingerprint())

			want, err := p.Predict(X)
			require.NoError(t, err)
			got, err := loaded.Pipeline.Predict(X)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestModelBundleRegressor(t *testing.T) {
	X := trainFrame(t)
	p, err := pipeline.ModelPipeline(X, []float64{10, 20, 30, 40},
		pipeline.Estimator[float64](models.NewRidgeRegression(1)))
	require.NoError(t, err)

	bundle := NewModelBundle(p)
	bundle.Metadata.Task = models.TaskRegression
	path := filepath.Join(t.TempDir(), "ridge.gob")
	require.NoError(t, bundle.Save(path))

	loaded, err := LoadModelBundle[float64](path)
	require.NoError(t, err)
	want, err := p.Predict(X)
	require.NoError(t, err)
	got, err := loaded.Pipeline.Predict(X)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-9)
}

func TestModelBundleFingerprintMismatch(t *testing.T) {
	p, err := pipeline.ModelPipeline(trainFrame(t), []int{1, 0, 0, 1}, pipeline.Estimator[int](models.NewKNN(1, "")))
	require.NoError(t, err)

	bundle := NewModelBundle(p)
	bundle.Metadata.Fingerprint++
	path := filepath.Join(t.TempDir(), "tampered.gob")
	require.NoError(t, bundle.Save(path))

	_, err = LoadModelBundle[int](path)
	assert.ErrorIs(t, err, ErrFingerprintMismatch)
}

func TestSaveMetadata(t *testing.T) {
	p, err := pipeline.ModelPipeline(trainFrame(t), []int{1, 0, 0, 1}, pipeline.Estimator[int](models.NewKNN(1, "")))
	require.NoError(t, err)

	bundle := NewModelBundle(p)
	bundle.Metadata.Accuracy = 0.75
	bundle.Metadata.Classes = []string{"0", "1"}
	path := filepath.Join(t.TempDir(), "model.txt")
	require.NoError(t, bundle.SaveMetadata(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Model: KNN")
	assert.Contains(t, string(content), "Accuracy: 0.7500")
	assert.Contains(t, string(content), "Columns: OWN_CAR_AGE, NAME_FAMILY_STATUS")
	assert.Contains(t, string(content), "Classes: 0, 1")
}
