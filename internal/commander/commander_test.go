package commander

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/config"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/jobs"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func applicantsCSV(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("SK_ID,NAME_INCOME_TYPE,OWN_CAR_AGE,CODE_GENDER,RISK\n")
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			fmt.Fprintf(&b, "%d,Working,%d,M,high\n", i, 20+i)
		} else {
			fmt.Fprintf(&b, "%d,Pensioner,,F,low\n", i)
		}
	}
	return writeFile(t, dir, "applicants.csv", b.String())
}

func newTestCommander(t *testing.T) (*Commander, *bytes.Buffer, string) {
	t.Helper()
	color.NoColor = true

	cfg := config.Default()
	cfg.Dataset.Target = "RISK"
	cfg.Dataset.Features = []string{"NAME_INCOME_TYPE", "OWN_CAR_AGE", "CODE_GENDER"}
	cfg.CrossValidation.Folds = 2
	cfg.Split.TestSize = 0.25

	dir := t.TempDir()
	out := &bytes.Buffer{}
	c := NewCommander(cfg, out)
	c.SetModelsDir(filepath.Join(dir, "models"))
	return c, out, dir
}

func run(c *Commander, out *bytes.Buffer, line string) string {
	out.Reset()
	parts := strings.Fields(line)
	c.ExecuteCommand(parts[0], parts[1:])
	return out.String()
}

func TestCommandsNeedData(t *testing.T) {
	c, out, _ := newTestCommander(t)

	assert.Contains(t, run(c, out, "train tree"), "No data loaded")
	assert.Contains(t, run(c, out, "evaluate"), "No model trained")
	assert.Contains(t, run(c, out, "predict x.csv"), "No model loaded")
	assert.Contains(t, run(c, out, "frobnicate"), "Unknown command: frobnicate")
	assert.Contains(t, run(c, out, "load"), "Usage: load")
	assert.Contains(t, run(c, out, "jobs"), "No jobs found")
}

func TestTrainEvaluateAndPredict(t *testing.T) {
	c, out, dir := newTestCommander(t)

	got := run(c, out, "load "+applicantsCSV(t, dir))
	require.Contains(t, got, "✓ Loaded 20 samples with 3 columns")
	assert.Contains(t, got, "Classes: high, low")

	got = run(c, out, "info")
	assert.Contains(t, got, "OWN_CAR_AGE")
	assert.Contains(t, got, "2 categories")
	assert.Contains(t, got, "high")

	got = run(c, out, "train tree 4 --split=0.75")
	require.Contains(t, got, "✓ Training complete")
	assert.Contains(t, got, "Accuracy:  1.0000")
	assert.Contains(t, got, "Features:  5")

	got = run(c, out, "evaluate")
	assert.Contains(t, got, "Simple Accuracy:    1.0000")
	assert.Contains(t, got, "low")

	got = run(c, out, "cv 2")
	assert.Contains(t, got, "Running 2-fold cross-validation of tree")
	assert.Contains(t, got, "Mean: 1.0000")

	logRows, err := os.ReadFile(filepath.Join(dir, "models", "training_log.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(logRows), "DecisionTree")

	input := writeFile(t, dir, "new.csv",
		"CODE_GENDER,OWN_CAR_AGE,NAME_INCOME_TYPE,EXTRA\nM,25,Working,x\nF,,Pensioner,y\nF,,Student,z\n")
	output := filepath.Join(dir, "scored.csv")
	got = run(c, out, "predict "+input+" --out="+output+" --batch-size=2")
	require.Contains(t, got, "✓ 3 predictions saved")

	file, err := os.Open(output)
	require.NoError(t, err)
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Sample", "Prediction", "Confidence"}, rows[0])
	assert.Equal(t, []string{"1", "high"}, rows[1][:2])
	assert.Equal(t, []string{"2", "low"}, rows[2][:2])
	assert.Equal(t, "3", rows[3][0])
	assert.Equal(t, "1.0000", rows[1][2])
}

func TestPredictStreaming(t *testing.T) {
	c, out, dir := newTestCommander(t)
	run(c, out, "load "+applicantsCSV(t, dir))
	run(c, out, "train knn --k=1")

	input := writeFile(t, dir, "stream.csv",
		"NAME_INCOME_TYPE,OWN_CAR_AGE,CODE_GENDER\nWorking,30,M\nPensioner,0,F\nWorking,22,M\n")
	output := filepath.Join(dir, "stream_out.csv")
	got := run(c, out, "predict "+input+" --stream --batch-size=2 --out="+output)
	require.Contains(t, got, "✓ 3 predictions saved")

	raw, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "Sample,Prediction,Confidence\n1,high,1.0000\n2,low,1.0000\n3,high,1.0000\n", string(raw))
}

func TestPredictStreamingBlankFirstRow(t *testing.T) {
	c, out, dir := newTestCommander(t)
	run(c, out, "load "+applicantsCSV(t, dir))
	run(c, out, "train knn --k=1")

	input := writeFile(t, dir, "blank.csv",
		"NAME_INCOME_TYPE,OWN_CAR_AGE,CODE_GENDER\n,,\nWorking,30,M\n")
	output := filepath.Join(dir, "blank_out.csv")
	got := run(c, out, "predict "+input+" --stream --batch-size=1 --out="+output)
	require.Contains(t, got, "✓ 2 predictions saved")

	raw, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "Sample,Prediction,Confidence\n1,low,1.0000\n2,high,1.0000\n", string(raw))
}

func TestPredictMissingColumn(t *testing.T) {
	c, out, dir := newTestCommander(t)
	run(c, out, "load "+applicantsCSV(t, dir))
	run(c, out, "train bayes")

	input := writeFile(t, dir, "partial.csv", "NAME_INCOME_TYPE,CODE_GENDER\nWorking,M\n")
	got := run(c, out, "predict "+input)
	assert.Contains(t, got, "✗ Prediction failed")
	assert.Contains(t, got, "OWN_CAR_AGE")
}

func TestSaveAndLoadModel(t *testing.T) {
	c, out, dir := newTestCommander(t)
	run(c, out, "load "+applicantsCSV(t, dir))
	run(c, out, "train forest --trees=5 --scaling=standardized")
	assert.Contains(t, run(c, out, "list"), "[ACTIVE]")

	path := filepath.Join(dir, "saved", "forest.model")
	got := run(c, out, "save "+path)
	require.Contains(t, got, "✓ Model saved to "+path)
	_, err := os.Stat(filepath.Join(dir, "saved", "forest_info.txt"))
	assert.NoError(t, err)

	fresh, freshOut, _ := newTestCommander(t)
	got = run(fresh, freshOut, "loadmodel "+path)
	require.Contains(t, got, "✓ Model loaded successfully!")
	assert.Contains(t, got, "Model: RandomForest")

	got = run(fresh, freshOut, "current")
	assert.Contains(t, got, "Classes:     high, low")
	assert.Contains(t, got, "n_trees: 5")

	assert.Contains(t, run(fresh, freshOut, "loadmodel missing"), "Error loading model")
}

func TestTrainArguments(t *testing.T) {
	c, out, dir := newTestCommander(t)
	run(c, out, "load "+applicantsCSV(t, dir))

	assert.Contains(t, run(c, out, "train tree --split=1.5"), "--split")
	assert.Contains(t, run(c, out, "train knn --k=abc"), "--k")
	assert.Contains(t, run(c, out, "train tree --colour=red"), "unknown option")
	assert.Contains(t, run(c, out, "train svm"), "unknown algorithm: svm")

	opts, err := c.parseTrainArgs("knn", []string{"3", "manhattan", "--scaling=normalized", "--split=0.6"})
	require.NoError(t, err)
	assert.Equal(t, 3, opts.model.K)
	assert.Equal(t, "manhattan", opts.model.Distance)
	assert.Equal(t, "normalized", opts.scaling)
	assert.InDelta(t, 0.4, opts.testSize, 1e-9)
	assert.False(t, opts.model.Prune)

	opts, err = c.parseTrainArgs("tree", []string{"4", "--prune"})
	require.NoError(t, err)
	assert.True(t, opts.model.Prune)
	assert.Equal(t, 4, opts.model.MaxDepth)
}

func TestTrainWithPruning(t *testing.T) {
	c, out, dir := newTestCommander(t)
	run(c, out, "load "+applicantsCSV(t, dir))

	got := run(c, out, "train tree --prune")
	require.Contains(t, got, "✓ Training complete")
	assert.Contains(t, got, "Holding back 20% of the training samples for pruning")
	assert.Contains(t, got, "Training DecisionTree with 16 samples")
	assert.Contains(t, got, "Accuracy:  1.0000")

	assert.Contains(t, run(c, out, "train knn --prune"), "pruning is not available for knn")
}

func TestTrainInBackground(t *testing.T) {
	c, out, dir := newTestCommander(t)
	run(c, out, "load "+applicantsCSV(t, dir))

	got := run(c, out, "train-bg tree")
	require.Contains(t, got, "Job submitted: ")
	id := strings.TrimSpace(strings.TrimPrefix(got, "Job submitted: "))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	job, err := c.Jobs().Wait(ctx, id)
	require.NoError(t, err)
	require.Equal(t, jobs.JobCompleted, job.GetStatus(), "%v", job.GetError())

	got = run(c, out, "job-status "+id)
	assert.Contains(t, got, "Status:      completed")
	assert.Contains(t, got, "Accuracy: 1.0000")

	got = run(c, out, "job-logs "+id)
	assert.Contains(t, got, "Starting training of tree model")
	assert.Contains(t, got, "Model saved to: ")

	assert.Contains(t, run(c, out, "jobs"), id)
	assert.Contains(t, run(c, out, "job-cancel "+id), "is not running")
	assert.Contains(t, run(c, out, "current"), "DecisionTree")
}

func TestExperimentCommand(t *testing.T) {
	c, out, dir := newTestCommander(t)
	g := &c.config.Experiment
	g.Scaling = []string{"raw"}
	g.TestSizes = []float64{0.25}
	g.Algorithms.KNN.K = []int{1}
	g.Algorithms.DecisionTree.MaxDepth = []int{3}
	g.Algorithms.RandomForest.NTrees = nil
	g.Algorithms.NaiveBayes.VarSmoothing = nil

	run(c, out, "load "+applicantsCSV(t, dir))
	results := filepath.Join(dir, "results.csv")
	got := run(c, out, "experiment "+results)
	assert.Contains(t, got, "✓ Results written to "+results)
	assert.Contains(t, got, "KNN")
	_, err := os.Stat(results)
	assert.NoError(t, err)
}

func TestStartReadsUntilQuit(t *testing.T) {
	c, out, _ := newTestCommander(t)
	c.Start(strings.NewReader("help\n\nquit\nhelp\n"))

	got := out.String()
	assert.Contains(t, got, "Credit Risk Commander")
	assert.Equal(t, 1, strings.Count(got, "Available Commands:"))
	assert.Contains(t, got, "Goodbye!")
}
