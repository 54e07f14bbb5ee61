package experiment

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/config"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/dataset"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/evaluation"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/models"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/pipeline"
)

// ExperimentRunner evaluates every model configuration of the experiment grid
// under every scaling mode and test size. Each run builds its own pipeline on
// its own training split.
type ExperimentRunner struct {
	Config *config.Config
	Logger *log.Logger
}

func NewRunner(cfg *config.Config) *ExperimentRunner {
	return &ExperimentRunner{Config: cfg}
}

type ExperimentResult struct {
	Dataset        string
	Algorithm      string
	Parameters     string
	Scaling        string
	TrainTestSplit string
	Features       int
	Accuracy       float64
	Precision      float64
	Recall         float64
	F1Score        float64
	CVMean         float64
	CVStd          float64
	TrainingTimeMs int64
	Error          string
}

func (r *ExperimentRunner) RunAllExperiments(ctx context.Context, dataFile string) ([]ExperimentResult, error) {
	ds, err := dataset.Load(dataFile, r.Config)
	if err != nil {
		return nil, err
	}
	defer ds.Release()
	if ds.Labels == nil {
		return nil, fmt.Errorf("experiments need a classification target")
	}
	return r.Run(ctx, ds)
}

// Run evaluates the grid on a loaded dataset. A failing configuration is
// recorded in its result and does not stop the others.
func (r *ExperimentRunner) Run(ctx context.Context, ds *dataset.Dataset) ([]ExperimentResult, error) {
	grid := r.Config.Experiment
	var results []ExperimentResult

	for _, scaling := range grid.Scaling {
		for _, testSize := range grid.TestSizes {
			for _, mc := range r.modelConfigs() {
				if err := ctx.Err(); err != nil {
					return results, err
				}
				result := r.evaluate(ctx, ds, mc, scaling, testSize)
				if r.Logger != nil {
					r.Logger.Printf("%s %s scaling=%s split=%s accuracy=%.4f %s",
						result.Algorithm, result.Parameters, scaling, result.TrainTestSplit, result.Accuracy, result.Error)
				}
				results = append(results, result)
			}
		}
	}
	return results, nil
}

func (r *ExperimentRunner) modelConfigs() []models.ModelConfig {
	algs := r.Config.Experiment.Algorithms
	var configs []models.ModelConfig

	for _, k := range algs.KNN.K {
		for _, dist := range algs.KNN.Distance {
			configs = append(configs, models.ModelConfig{Algorithm: "knn", K: k, Distance: dist})
		}
	}
	for _, depth := range algs.DecisionTree.MaxDepth {
		for _, minSplit := range algs.DecisionTree.MinSamplesSplit {
			configs = append(configs, models.ModelConfig{Algorithm: "tree", MaxDepth: depth, MinSplit: minSplit})
		}
	}
	for _, nTrees := range algs.RandomForest.NTrees {
		for _, depth := range algs.RandomForest.MaxDepth {
			configs = append(configs, models.ModelConfig{
				Algorithm: "forest", NTrees: nTrees, MaxDepth: depth, MinSplit: 2, Seed: r.Config.Split.Seed,
			})
		}
	}
	for _, smooth := range algs.NaiveBayes.VarSmoothing {
		configs = append(configs, models.ModelConfig{Algorithm: "bayes", VarSmoothing: smooth})
	}
	return configs
}

func (r *ExperimentRunner) evaluate(ctx context.Context, ds *dataset.Dataset, mc models.ModelConfig, scaling string, testSize float64) ExperimentResult {
	result := ExperimentResult{
		Dataset:        ds.Name,
		Algorithm:      mc.Algorithm,
		Scaling:        scaling,
		TrainTestSplit: fmt.Sprintf("%.0f-%.0f", (1-testSize)*100, testSize*100),
	}
	fail := func(err error) ExperimentResult {
		result.Error = err.Error()
		return result
	}

	model, err := models.CreateModel(mc)
	if err != nil {
		return fail(err)
	}
	result.Algorithm = model.GetName()
	result.Parameters = fmt.Sprintf("%v", model.GetParams())

	opts, err := r.Config.PipelineOptions()
	if err != nil {
		return fail(err)
	}
	opts = append(opts, pipeline.WithScaling(scaling))

	splitter := evaluation.NewTrainTestSplitter(testSize, r.Config.Split.Seed, true)
	var train, test []int
	if r.Config.Split.Stratified {
		train, test, err = splitter.StratifiedSplit(ds.Labels)
	} else {
		train, test, err = splitter.Split(ds.NumRows())
	}
	if err != nil {
		return fail(err)
	}
	XTrain, XTest, err := evaluation.SplitFrame(ds.Features, train, test)
	if err != nil {
		return fail(err)
	}
	defer XTrain.Release()
	defer XTest.Release()

	start := time.Now()
	p, err := pipeline.ModelPipeline(XTrain, evaluation.Subset(ds.Labels, train), pipeline.Estimator[int](model), opts...)
	if err != nil {
		return fail(err)
	}
	result.TrainingTimeMs = time.Since(start).Milliseconds()
	result.Features = p.Preprocessor.NumFeatures()

	predictions, err := p.Predict(XTest)
	if err != nil {
		return fail(err)
	}
	metrics := evaluation.CalculateMetrics(evaluation.Subset(ds.Labels, test), predictions, models.ExtractClasses(ds.Labels))
	if metrics != nil {
		result.Accuracy = metrics.Accuracy
		result.Precision = metrics.MacroPrecision
		result.Recall = metrics.MacroRecall
		result.F1Score = metrics.MacroF1
	}

	if folds := r.Config.CrossValidation.Folds; folds > 1 {
		cv := evaluation.NewCrossValidator(folds, r.Config.Split.Stratified)
		cv.RandomSeed = r.Config.Split.Seed
		cv.Parallel = r.Config.CrossValidation.Parallel
		cv.MaxWorkers = r.Config.CrossValidation.Workers
		cvResult, err := cv.CrossValidate(ctx, ds.Features, ds.Labels, evaluation.ModelFactory(mc, opts...))
		if err != nil {
			return fail(err)
		}
		result.CVMean = cvResult.Mean
		result.CVStd = cvResult.Std
	}

	return result
}

func (r *ExperimentRunner) ExportResults(results []ExperimentResult, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	writer.Write([]string{
		"Dataset", "Algorithm", "Parameters", "Scaling",
		"TrainTestSplit", "Features", "Accuracy", "Precision", "Recall", "F1Score",
		"CVMean", "CVStd", "TrainingTimeMs", "Error",
	})

	for _, result := range results {
		writer.Write([]string{
			result.Dataset,
			result.Algorithm,
			result.Parameters,
			result.Scaling,
			result.TrainTestSplit,
			fmt.Sprintf("%d", result.Features),
			fmt.Sprintf("%.4f", result.Accuracy),
			fmt.Sprintf("%.4f", result.Precision),
			fmt.Sprintf("%.4f", result.Recall),
			fmt.Sprintf("%.4f", result.F1Score),
			fmt.Sprintf("%.4f", result.CVMean),
			fmt.Sprintf("%.4f", result.CVStd),
			fmt.Sprintf("%d", result.TrainingTimeMs),
			result.Error,
		})
	}

	writer.Flush()
	return writer.Error()
}
