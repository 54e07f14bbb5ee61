package experiment

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/config"
)

func applicationsCSV(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("NAME_INCOME_TYPE,OWN_CAR_AGE,CODE_GENDER,TARGET\n")
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			fmt.Fprintf(&b, "Working,%d,M,1\n", 20+i)
		} else {
			fmt.Fprintf(&b, "Pensioner,,F,0\n")
		}
	}
	path := filepath.Join(t.TempDir(), "applications.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func smallGrid() *config.Config {
	cfg := config.Default()
	cfg.Dataset.Features = []string{"NAME_INCOME_TYPE", "OWN_CAR_AGE", "CODE_GENDER"}
	cfg.CrossValidation.Folds = 2
	g := &cfg.Experiment
	g.Scaling = []string{"raw", "standardized"}
	g.TestSizes = []float64{0.25}
	g.Algorithms.KNN.K = []int{1}
	g.Algorithms.DecisionTree.MaxDepth = []int{3}
	g.Algorithms.RandomForest.NTrees = []int{5}
	g.Algorithms.NaiveBayes.VarSmoothing = nil
	return cfg
}

func TestRunAllExperiments(t *testing.T) {
	runner := NewRunner(smallGrid())
	results, err := runner.RunAllExperiments(context.Background(), applicationsCSV(t))
	require.NoError(t, err)

	// 2 scalings x 1 split x (knn + tree + forest).
	require.Len(t, results, 6)
	for _, r := range results {
		assert.Empty(t, r.Error)
		assert.Equal(t, "75-25", r.TrainTestSplit)
		assert.Equal(t, 5, r.Features)
		assert.InDelta(t, 1.0, r.Accuracy, 1e-9, r.Algorithm)
		assert.InDelta(t, 1.0, r.CVMean, 1e-9, r.Algorithm)
	}

	out := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, runner.ExportResults(results, out))
	file, err := os.Open(out)
	require.NoError(t, err)
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 7)
	assert.Equal(t, "Algorithm", rows[0][1])
}

func TestRunRecordsFailures(t *testing.T) {
	cfg := smallGrid()
	cfg.Preprocessing.Unsupported = "coerce"
	results, err := NewRunner(cfg).RunAllExperiments(context.Background(), applicationsCSV(t))
	require.NoError(t, err)
	for _, r := range results {
		assert.Contains(t, r.Error, "coerce")
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner(smallGrid()).RunAllExperiments(ctx, applicationsCSV(t))
	assert.ErrorIs(t, err, context.Canceled)
}
