package commander

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/data"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/dataset"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/evaluation"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/experiment"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/jobs"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/models"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/persistence"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/pipeline"
)

type trainOptions struct {
	model    models.ModelConfig
	scaling  string
	testSize float64
}

// parseTrainArgs reads positional parameters (knn: k distance, tree: depth
// min-split, forest: trees depth, bayes: smoothing) and --key=value flags.
// --split is the training share, as in "--split=0.8". --prune cuts a tree
// back against a validation slice of the training rows.
func (c *Commander) parseTrainArgs(algorithm string, params []string) (trainOptions, error) {
	opts := trainOptions{
		model:    models.DefaultConfig(algorithm),
		scaling:  c.config.Preprocessing.Scaling,
		testSize: c.config.Split.TestSize,
	}
	opts.model.Seed = c.config.Split.Seed

	var positional []string
	for _, param := range params {
		if param == "--prune" {
			opts.model.Prune = true
			continue
		}
		key, value, isFlag := strings.Cut(strings.TrimPrefix(param, "--"), "=")
		if !strings.HasPrefix(param, "--") || !isFlag {
			positional = append(positional, param)
			continue
		}

		var err error
		switch key {
		case "split":
			var ratio float64
			ratio, err = strconv.ParseFloat(value, 64)
			if err == nil && (ratio <= 0 || ratio >= 1) {
				err = fmt.Errorf("split must be between 0 and 1")
			}
			opts.testSize = 1 - ratio
		case "scaling", "prep":
			opts.scaling = value
		case "k":
			opts.model.K, err = strconv.Atoi(value)
		case "distance":
			opts.model.Distance = value
		case "depth":
			opts.model.MaxDepth, err = strconv.Atoi(value)
		case "min-split":
			opts.model.MinSplit, err = strconv.Atoi(value)
		case "trees":
			opts.model.NTrees, err = strconv.Atoi(value)
		case "seed":
			opts.model.Seed, err = strconv.ParseInt(value, 10, 64)
		case "smoothing":
			opts.model.VarSmoothing, err = strconv.ParseFloat(value, 64)
		case "prune":
			opts.model.Prune, err = strconv.ParseBool(value)
		default:
			err = fmt.Errorf("unknown option")
		}
		if err != nil {
			return opts, fmt.Errorf("--%s: %w", key, err)
		}
	}

	var err error
	at := func(i int) (string, bool) {
		if i < len(positional) && err == nil {
			return positional[i], true
		}
		return "", false
	}
	switch algorithm {
	case "knn":
		if v, ok := at(0); ok {
			opts.model.K, err = strconv.Atoi(v)
		}
		if v, ok := at(1); ok {
			opts.model.Distance = v
		}
	case "tree":
		if v, ok := at(0); ok {
			opts.model.MaxDepth, err = strconv.Atoi(v)
		}
		if v, ok := at(1); ok {
			opts.model.MinSplit, err = strconv.Atoi(v)
		}
	case "forest":
		if v, ok := at(0); ok {
			opts.model.NTrees, err = strconv.Atoi(v)
		}
		if v, ok := at(1); ok {
			opts.model.MaxDepth, err = strconv.Atoi(v)
		}
	case "bayes":
		if v, ok := at(0); ok {
			opts.model.VarSmoothing, err = strconv.ParseFloat(v, 64)
		}
	}
	return opts, err
}

func (c *Commander) showTrainHelp() {
	c.println(c.red("Usage: train <algorithm> [params] [--split=0.8] [--scaling=raw|normalized|standardized]"))
	c.println("  knn    [k] [distance]    --k=5 --distance=euclidean|manhattan")
	c.println("  tree   [depth] [min]     --depth=10 --min-split=2 --prune")
	c.println("  forest [trees] [depth]   --trees=100 --depth=10 --seed=42")
	c.println("  bayes  [smoothing]       --smoothing=1e-9")
}

// split partitions the loaded rows the way the config asks for.
func (c *Commander) split(ds *dataset.Dataset, testSize float64) (train, test []int, err error) {
	splitter := evaluation.NewTrainTestSplitter(testSize, c.config.Split.Seed, true)
	if c.config.Split.Stratified {
		return splitter.StratifiedSplit(ds.Labels)
	}
	return splitter.Split(ds.NumRows())
}

// fitAndScore builds the pipeline on the training split and scores it on the
// held-out split. logf receives progress messages.
func (c *Commander) fitAndScore(ctx context.Context, ds *dataset.Dataset, opts trainOptions, logf func(format string, args ...any)) (*persistence.ModelBundle[int], *evaluation.ClassificationMetrics, error) {
	model, err := models.CreateModel(opts.model)
	if err != nil {
		return nil, nil, err
	}
	pipelineOpts, err := c.config.PipelineOptions()
	if err != nil {
		return nil, nil, err
	}
	pipelineOpts = append(pipelineOpts, pipeline.WithScaling(opts.scaling))

	train, test, err := c.split(ds, opts.testSize)
	if err != nil {
		return nil, nil, err
	}
	XTrain, XTest, err := evaluation.SplitFrame(ds.Features, train, test)
	if err != nil {
		return nil, nil, err
	}
	defer XTrain.Release()
	defer XTest.Release()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	fit := func(X *data.Frame, y []int) (*pipeline.Pipeline[int], error) {
		return pipeline.ModelPipeline(X, y, pipeline.Estimator[int](model), pipelineOpts...)
	}
	if opts.model.Prune {
		fit = evaluation.PruningFactory(fit, c.config.Split.ValidationSize, c.config.Split.Seed)
		logf("Holding back %.0f%% of the training samples for pruning", c.config.Split.ValidationSize*100)
	}

	logf("Training %s with %d samples...", model.GetName(), len(train))
	start := time.Now()
	p, err := fit(XTrain, evaluation.Subset(ds.Labels, train))
	if err != nil {
		return nil, nil, err
	}
	trainingTime := time.Since(start)

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	logf("Evaluating on %d held-out samples...", len(test))
	predictions, err := p.Predict(XTest)
	if err != nil {
		return nil, nil, err
	}
	metrics := evaluation.CalculateMetrics(evaluation.Subset(ds.Labels, test), predictions, models.ExtractClasses(ds.Labels))
	if metrics == nil {
		return nil, nil, fmt.Errorf("no held-out samples to score")
	}

	bundle := persistence.NewModelBundle(p)
	bundle.LabelEncoder = ds.Encoder
	bundle.Metadata.Task = models.TaskClassification
	bundle.Metadata.Dataset = ds.Name
	bundle.Metadata.Target = ds.Target
	bundle.Metadata.Classes = ds.Classes
	bundle.Metadata.Accuracy = metrics.Accuracy
	bundle.Metadata.Precision = metrics.MacroPrecision
	bundle.Metadata.Recall = metrics.MacroRecall
	bundle.Metadata.F1Score = metrics.MacroF1
	bundle.Metadata.TrainingTime = trainingTime
	return bundle, metrics, nil
}

// autoSave writes bundle under the models directory and logs the run.
func (c *Commander) autoSave(bundle *persistence.ModelBundle[int], algorithm, suffix string) (string, error) {
	if err := os.MkdirAll(c.modelsDir, 0755); err != nil {
		return "", err
	}
	base := strings.TrimSuffix(filepath.Base(bundle.Metadata.Dataset), filepath.Ext(bundle.Metadata.Dataset))
	filename := filepath.Join(c.modelsDir, fmt.Sprintf("%s_%s%s_%s.model",
		algorithm, base, suffix, time.Now().Format("20060102_150405.000")))
	if err := bundle.Save(filename); err != nil {
		return "", err
	}
	c.saveTrainingLog(bundle.Metadata)
	return filename, nil
}

func (c *Commander) trainModel(algorithm string, params []string) {
	ds := c.currentData()
	if ds == nil {
		c.println(c.red("No data loaded. Use 'load <file>' first"))
		return
	}
	opts, err := c.parseTrainArgs(algorithm, params)
	if err != nil {
		c.printf("%s %v\n", c.red("✗"), err)
		return
	}

	c.printf("Training %s model...\n", algorithm)
	c.printf("Configuration: split=%.0f/%.0f, scaling=%s\n",
		(1-opts.testSize)*100, opts.testSize*100, opts.scaling)

	bundle, metrics, err := c.fitAndScore(context.Background(), ds, opts, func(format string, args ...any) {
		c.printf(format+"\n", args...)
	})
	if err != nil {
		c.printf("%s Training failed: %v\n", c.red("✗"), err)
		return
	}

	filename, err := c.autoSave(bundle, algorithm, "")
	if err != nil {
		c.printf("%s Could not save pipeline: %v\n", c.yellow("⚠"), err)
	}
	c.setBundle(bundle, filename)
	c.setLastTrain(opts)

	c.printf("%s Training complete in %v\n", c.green("✓"), bundle.Metadata.TrainingTime.Round(time.Millisecond))
	c.println(strings.Repeat("─", 50))
	c.printf("Features:  %d\n", len(bundle.Metadata.Features))
	c.printf("Accuracy:  %.4f\n", metrics.Accuracy)
	c.printf("Precision: %.4f | Recall: %.4f | F1: %.4f\n", metrics.MacroPrecision, metrics.MacroRecall, metrics.MacroF1)
	if filename != "" {
		c.printf("Saved to:  %s\n", filename)
	}
}

func (c *Commander) trainModelBackground(algorithm string, params []string) {
	ds := c.currentData()
	if ds == nil {
		c.println(c.red("No data loaded. Use 'load <file>' first"))
		return
	}
	opts, err := c.parseTrainArgs(algorithm, params)
	if err != nil {
		c.printf("%s %v\n", c.red("✗"), err)
		return
	}

	// The job keeps its own reference to the rows in case another file is
	// loaded while it runs.
	ds.Features.Retain()
	job := c.jobManager.Start(context.Background(), "train", fmt.Sprintf("Training %s model", algorithm),
		func(ctx context.Context, job *jobs.Job) (any, error) {
			defer ds.Features.Release()
			job.AddLog("Starting training of %s model", algorithm)
			job.SetProgress(0.2)

			bundle, metrics, err := c.fitAndScore(ctx, ds, opts, job.AddLog)
			if err != nil {
				return nil, err
			}
			job.SetProgress(0.8)
			job.AddLog("Training completed. Accuracy: %.4f", metrics.Accuracy)

			filename, err := c.autoSave(bundle, algorithm, "_bg")
			if err != nil {
				job.AddLog("Failed to save model: %v", err)
			} else {
				job.AddLog("Model saved to: %s", filename)
			}
			c.setBundle(bundle, filename)
			c.setLastTrain(opts)
			return metrics, nil
		})

	c.printf("Job submitted: %s\n", c.cyan(job.ID))
}

func (c *Commander) setLastTrain(opts trainOptions) {
	c.mu.Lock()
	c.lastTrain = &opts
	c.mu.Unlock()
}

// trainSettings returns the last trained settings, or the configured model.
func (c *Commander) trainSettings() trainOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastTrain != nil {
		return *c.lastTrain
	}
	return trainOptions{
		model:    c.config.Model.ModelConfig,
		scaling:  c.config.Preprocessing.Scaling,
		testSize: c.config.Split.TestSize,
	}
}

func (c *Commander) evaluate() {
	bundle, _ := c.currentBundle()
	if bundle == nil {
		c.println(c.red("No model trained. Train a model first"))
		return
	}
	ds := c.currentData()
	if ds == nil {
		c.println(c.red("No data loaded"))
		return
	}

	_, test, err := c.split(ds, c.trainSettings().testSize)
	if err != nil {
		c.printf("%s Error splitting data: %v\n", c.red("✗"), err)
		return
	}
	XTest, err := ds.Features.Take(test)
	if err != nil {
		c.printf("%s Error splitting data: %v\n", c.red("✗"), err)
		return
	}
	defer XTest.Release()

	predictions, err := bundle.Pipeline.Predict(XTest)
	if err != nil {
		c.printf("%s Error predicting: %v\n", c.red("✗"), err)
		return
	}
	classes := models.ExtractClasses(ds.Labels)
	metrics := evaluation.CalculateMetrics(evaluation.Subset(ds.Labels, test), predictions, classes)
	if metrics == nil {
		c.println(c.red("Nothing to evaluate"))
		return
	}

	c.println(c.cyan("Confusion Matrix:"))
	c.println("(Rows = Actual, Columns = Predicted)")
	c.printf("%-18s", "")
	for _, class := range classes {
		name := c.className(ds, class)
		if len(name) > 8 {
			name = name[:8]
		}
		c.printf("%-10s", name)
	}
	c.println()
	for i, actual := range classes {
		c.printf("%-18s", c.className(ds, actual))
		for j := range classes {
			count := metrics.ConfusionMatrix[i][j]
			cell := strconv.Itoa(count)
			switch {
			case i == j:
				cell = c.green(cell)
			case count > 0:
				cell = c.red(cell)
			}
			c.printf("%-10s", cell)
		}
		c.println()
	}
	c.println(strings.Repeat("─", 60))

	c.printf("Simple Accuracy:    %.4f  (%d samples)\n", metrics.Accuracy, metrics.NumSamples)
	c.printf("Balanced Accuracy:  %.4f  (avg of class recalls)\n", metrics.BalancedAccuracy)
	c.printf("%-15s %-12s %-12s %-12s\n", "Method", "Precision", "Recall", "F1-Score")
	c.printf("%-15s %-12.4f %-12.4f %-12.4f\n", "Macro", metrics.MacroPrecision, metrics.MacroRecall, metrics.MacroF1)
	c.printf("%-15s %-12.4f %-12.4f %-12.4f\n", "Weighted", metrics.WeightedPrecision, metrics.WeightedRecall, metrics.WeightedF1)

	c.println(c.cyan("\nPer-Class Metrics:"))
	c.printf("%-15s %-10s %-10s %-12s %-10s %-8s\n", "Class", "Precision", "Recall", "Specificity", "F1-Score", "Support")
	for _, class := range classes {
		m := metrics.PerClassMetrics[class]
		c.printf("%-15s %-10.4f %-10.4f %-12.4f %-10.4f %-8d\n",
			c.className(ds, class), m.Precision, m.Recall, m.Specificity, m.F1Score, metrics.ClassSupport[class])
	}

	if diff := metrics.Accuracy - metrics.BalancedAccuracy; diff > 0.05 {
		c.printf("\n%s Simple accuracy exceeds balanced accuracy by %.3f; the model may favour the majority class\n",
			c.yellow("⚠"), diff)
	}
}

func (c *Commander) crossValidate(args []string) {
	ds := c.currentData()
	if ds == nil {
		c.println(c.red("No data loaded"))
		return
	}

	folds := c.config.CrossValidation.Folds
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 2 {
			c.println(c.red("Usage: cv [folds >= 2]"))
			return
		}
		folds = n
	}

	settings := c.trainSettings()
	opts, err := c.config.PipelineOptions()
	if err != nil {
		c.printf("%s %v\n", c.red("✗"), err)
		return
	}
	opts = append(opts, pipeline.WithScaling(settings.scaling))

	c.printf("Running %d-fold cross-validation of %s...\n", folds, settings.model.Algorithm)
	cv := evaluation.NewCrossValidator(folds, c.config.Split.Stratified)
	cv.RandomSeed = c.config.Split.Seed
	cv.Parallel = c.config.CrossValidation.Parallel
	cv.MaxWorkers = c.config.CrossValidation.Workers

	factory := evaluation.ModelFactory(settings.model, opts...)
	if settings.model.Prune {
		factory = evaluation.PruningFactory(factory, c.config.Split.ValidationSize, c.config.Split.Seed)
	}
	result, err := cv.CrossValidate(context.Background(), ds.Features, ds.Labels, factory)
	if err != nil {
		c.printf("%s Cross-validation failed: %v\n", c.red("✗"), err)
		return
	}

	c.printf("%s Cross-validation complete!\n", c.green("✓"))
	scores := make([]string, len(result.Scores))
	for i, s := range result.Scores {
		scores[i] = fmt.Sprintf("%.4f", s)
	}
	c.printf("Scores: [%s]\n", strings.Join(scores, " "))
	c.printf("Mean: %.4f (±%.4f)\n", result.Mean, result.Std)
}

// runExperiment evaluates the configured grid on the loaded data and writes
// the results to args[0] when given.
func (c *Commander) runExperiment(args []string) {
	ds := c.currentData()
	if ds == nil {
		c.println(c.red("No data loaded. Use 'load <file>' first"))
		return
	}

	runner := experiment.NewRunner(c.config)
	runner.Logger = log.New(c.out, "", 0)
	c.println(c.cyan("Running experiment grid..."))
	results, err := runner.Run(context.Background(), ds)
	if err != nil {
		c.printf("%s Experiment failed: %v\n", c.red("✗"), err)
		return
	}

	ranked := append([]experiment.ExperimentResult(nil), results...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Accuracy > ranked[j].Accuracy
	})

	c.println(strings.Repeat("─", 90))
	c.printf("%-20s %-14s %-8s %-10s %-10s %-10s %s\n", "Algorithm", "Scaling", "Split", "Accuracy", "F1", "CV Mean", "Status")
	c.println(strings.Repeat("─", 90))
	for _, r := range ranked {
		status := c.green("✓")
		if r.Error != "" {
			status = c.red("✗ " + r.Error)
		}
		c.printf("%-20s %-14s %-8s %-10.4f %-10.4f %-10.4f %s\n",
			r.Algorithm, r.Scaling, r.TrainTestSplit, r.Accuracy, r.F1Score, r.CVMean, status)
	}

	if len(args) > 0 {
		if err := runner.ExportResults(results, args[0]); err != nil {
			c.printf("%s Could not export results: %v\n", c.red("✗"), err)
			return
		}
		c.printf("%s Results written to %s\n", c.green("✓"), args[0])
	}
}
