package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/config"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/data"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/dataset"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/evaluation"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/experiment"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/models"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/persistence"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/pipeline"
)

func main() {
	configFile := flag.String("config", "config/config.yaml", "Path to configuration file")
	dataFile := flag.String("data", "", "Path to training data CSV file")
	target := flag.String("target", "", "Target column")
	features := flag.String("features", "", "Comma separated feature columns (default: config)")
	task := flag.String("task", "", "Task (classification|regression)")
	algorithm := flag.String("algorithm", "", "Algorithm to use (knn|tree|forest|bayes|ridge)")
	scaling := flag.String("scaling", "", "Scaling of the encoded matrix (raw|normalized|standardized)")
	unsupported := flag.String("unsupported", "", "Columns that are neither numeric nor text (reject|drop)")
	k := flag.Int("k", 0, "K value for KNN")
	maxDepth := flag.Int("max-depth", 0, "Max depth for decision tree/forest")
	nTrees := flag.Int("n-trees", 0, "Number of trees for random forest")
	alpha := flag.Float64("alpha", 0, "L2 penalty for ridge regression")
	prune := flag.Bool("prune", false, "Prune the decision tree against a validation slice of the training rows")
	testSize := flag.Float64("test-size", 0, "Test set size (0.0-1.0)")
	cvFolds := flag.Int("cv-folds", -1, "Number of cross-validation folds (0 disables)")
	outputDir := flag.String("output", "models", "Output directory for trained models")
	runGrid := flag.Bool("experiment", false, "Run the experiment grid from the config")
	verbose := flag.Bool("verbose", false, "Log dropped columns and experiment progress")

	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags given on the command line override the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data":
			cfg.Dataset.Path = *dataFile
		case "target":
			cfg.Dataset.Target = *target
		case "features":
			cfg.Dataset.Features = strings.Split(*features, ",")
		case "task":
			cfg.Model.Task = *task
		case "algorithm":
			cfg.Model.ModelConfig = models.ModelConfig{Algorithm: *algorithm, Seed: cfg.Model.Seed}
		case "scaling":
			cfg.Preprocessing.Scaling = *scaling
		case "unsupported":
			cfg.Preprocessing.Unsupported = *unsupported
		case "test-size":
			cfg.Split.TestSize = *testSize
		case "cv-folds":
			cfg.CrossValidation.Folds = *cvFolds
		}
	})
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "k":
			cfg.Model.K = *k
		case "max-depth":
			cfg.Model.MaxDepth = *maxDepth
		case "n-trees":
			cfg.Model.NTrees = *nTrees
		case "alpha":
			cfg.Model.Alpha = *alpha
		case "prune":
			cfg.Model.Prune = *prune
		}
	})
	if cfg.Model.Task == models.TaskRegression && cfg.Model.Algorithm != "ridge" {
		cfg.Model.Algorithm = "ridge"
	}

	if cfg.Dataset.Path == "" {
		fmt.Println("Usage:")
		fmt.Println("  Single training: train -data applications.csv -algorithm forest")
		fmt.Println("  Full experiment: train -experiment -config config/config.yaml -data applications.csv")
		fmt.Println("\nOptions:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	issues := cfg.Validate()
	for _, issue := range issues {
		log.Println(issue)
	}
	if issues.HasErrors() {
		log.Fatalf("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var logger *log.Logger
	if *verbose {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	if *runGrid {
		err = runExperiment(ctx, cfg, *outputDir, logger)
	} else {
		err = runSingleTraining(ctx, cfg, *outputDir, logger)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
}

func runExperiment(ctx context.Context, cfg *config.Config, outputDir string, logger *log.Logger) error {
	fmt.Println("Running full experiment...")

	runner := experiment.NewRunner(cfg)
	runner.Logger = logger
	results, err := runner.RunAllExperiments(ctx, cfg.Dataset.Path)
	if err != nil {
		return fmt.Errorf("experiment failed: %w", err)
	}

	expDir := filepath.Join(outputDir, "experiment_"+time.Now().Format("20060102_150405"))
	if err := os.MkdirAll(expDir, 0755); err != nil {
		return err
	}
	resultsFile := filepath.Join(expDir, "experiment_results.csv")
	if err := runner.ExportResults(results, resultsFile); err != nil {
		log.Printf("Failed to export results: %v", err)
	} else {
		fmt.Printf("Experiment results saved to: %s\n", resultsFile)
	}
	if err := cfg.Save(filepath.Join(expDir, "config.yaml")); err != nil {
		log.Printf("Failed to save config: %v", err)
	}

	fmt.Printf("\nExperiment Summary:\n")
	fmt.Printf("Total experiments: %d\n", len(results))

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Accuracy > results[j].Accuracy
	})
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		fmt.Printf("Failed experiments: %d\n", failed)
	}
	if len(results) > 0 && results[0].Error == "" {
		best := results[0]
		fmt.Printf("Best accuracy: %.4f (%s %s, %s scaling, CV %.4f ± %.4f)\n",
			best.Accuracy, best.Algorithm, best.Parameters, best.Scaling, best.CVMean, best.CVStd)
	}
	return nil
}

func pipelineOptions(cfg *config.Config, logger *log.Logger) ([]pipeline.Option, error) {
	opts, err := cfg.PipelineOptions()
	if err != nil {
		return nil, err
	}
	if logger != nil {
		opts = append(opts, pipeline.WithLogger(logger))
	}
	return opts, nil
}

func loadDataset(cfg *config.Config) (*dataset.Dataset, error) {
	fmt.Printf("Loading dataset %s...\n", cfg.Dataset.Path)
	ds, err := dataset.Load(cfg.Dataset.Path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}
	fmt.Printf("Loaded %d samples with %d columns (target %s)\n", ds.NumRows(), ds.Features.NumCols(), ds.Target)

	if ds.Labels != nil {
		if err := data.NewDataValidator().ValidateDataset(ds.Features, ds.Labels); err != nil {
			ds.Release()
			return nil, fmt.Errorf("data validation failed: %w", err)
		}
	}
	return ds, nil
}

func runSingleTraining(ctx context.Context, cfg *config.Config, outputDir string, logger *log.Logger) error {
	ds, err := loadDataset(cfg)
	if err != nil {
		return err
	}
	defer ds.Release()

	opts, err := pipelineOptions(cfg, logger)
	if err != nil {
		return err
	}

	if cfg.Model.Task == models.TaskRegression {
		return trainRegressor(cfg, ds, opts, outputDir)
	}
	return trainClassifier(ctx, cfg, ds, opts, outputDir)
}

func splitRows(cfg *config.Config, ds *dataset.Dataset) (train, test []int, err error) {
	fmt.Printf("Splitting data (test size: %.1f%%)...\n", cfg.Split.TestSize*100)
	splitter := evaluation.NewTrainTestSplitter(cfg.Split.TestSize, cfg.Split.Seed, true)
	if cfg.Split.Stratified && ds.Labels != nil {
		return splitter.StratifiedSplit(ds.Labels)
	}
	return splitter.Split(ds.NumRows())
}

func trainClassifier(ctx context.Context, cfg *config.Config, ds *dataset.Dataset, opts []pipeline.Option, outputDir string) error {
	train, test, err := splitRows(cfg, ds)
	if err != nil {
		return fmt.Errorf("failed to split data: %w", err)
	}
	XTrain, XTest, err := evaluation.SplitFrame(ds.Features, train, test)
	if err != nil {
		return err
	}
	defer XTrain.Release()
	defer XTest.Release()

	model, err := models.CreateModel(cfg.Model.ModelConfig)
	if err != nil {
		return fmt.Errorf("failed to create model: %w", err)
	}

	fit := func(X *data.Frame, y []int) (*pipeline.Pipeline[int], error) {
		return pipeline.ModelPipeline(X, y, pipeline.Estimator[int](model), opts...)
	}
	factory := evaluation.ModelFactory(cfg.Model.ModelConfig, opts...)
	if cfg.Model.Prune {
		fit = evaluation.PruningFactory(fit, cfg.Split.ValidationSize, cfg.Split.Seed)
		factory = evaluation.PruningFactory(factory, cfg.Split.ValidationSize, cfg.Split.Seed)
		fmt.Printf("Pruning against %.0f%% of the training rows\n", cfg.Split.ValidationSize*100)
	}

	fmt.Printf("Training %s pipeline...\n", model.GetName())
	startTime := time.Now()
	p, err := fit(XTrain, evaluation.Subset(ds.Labels, train))
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	trainingTime := time.Since(startTime)

	fmt.Println("Evaluating model...")
	predictions, err := p.Predict(XTest)
	if err != nil {
		return err
	}
	metrics := evaluation.CalculateMetrics(evaluation.Subset(ds.Labels, test), predictions, models.ExtractClasses(ds.Labels))
	if metrics == nil {
		return fmt.Errorf("no held-out samples to evaluate")
	}

	fmt.Printf("\nTraining Results:\n")
	fmt.Printf("Training time: %v\n", trainingTime)
	fmt.Printf("Features: %d\n", p.Preprocessor.NumFeatures())
	if dropped := p.Preprocessor.DroppedColumns; len(dropped) > 0 {
		fmt.Printf("Dropped columns: %s\n", strings.Join(dropped, ", "))
	}
	fmt.Print(metrics.FormatMetrics())

	if folds := cfg.CrossValidation.Folds; folds > 1 {
		fmt.Printf("Running %d-fold cross-validation...\n", folds)
		cv := evaluation.NewCrossValidator(folds, cfg.Split.Stratified)
		cv.RandomSeed = cfg.Split.Seed
		cv.Parallel = cfg.CrossValidation.Parallel
		cv.MaxWorkers = cfg.CrossValidation.Workers
		result, err := cv.CrossValidate(ctx, ds.Features, ds.Labels, factory)
		if err != nil {
			return fmt.Errorf("cross-validation failed: %w", err)
		}
		fmt.Printf("CV accuracy: %s\n", result)
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
	return saveBundle(bundle, bundle.Metadata, cfg, outputDir)
}

func trainRegressor(cfg *config.Config, ds *dataset.Dataset, opts []pipeline.Option, outputDir string) error {
	train, test, err := splitRows(cfg, ds)
	if err != nil {
		return fmt.Errorf("failed to split data: %w", err)
	}
	XTrain, XTest, err := evaluation.SplitFrame(ds.Features, train, test)
	if err != nil {
		return err
	}
	defer XTrain.Release()
	defer XTest.Release()

	model, err := models.CreateRegressor(cfg.Model.ModelConfig)
	if err != nil {
		return fmt.Errorf("failed to create model: %w", err)
	}

	fmt.Printf("Training %s pipeline...\n", model.GetName())
	startTime := time.Now()
	p, err := pipeline.ModelPipeline(XTrain, evaluation.Subset(ds.Values, train), pipeline.Estimator[float64](model), opts...)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	trainingTime := time.Since(startTime)

	predictions, err := p.Predict(XTest)
	if err != nil {
		return err
	}
	metrics := evaluation.CalculateRegressionMetrics(evaluation.Subset(ds.Values, test), predictions)
	if metrics == nil {
		return fmt.Errorf("no held-out samples to evaluate")
	}

	fmt.Printf("\nTraining Results:\n")
	fmt.Printf("Training time: %v\n", trainingTime)
	fmt.Printf("Features: %d\n", p.Preprocessor.NumFeatures())
	fmt.Print(metrics.FormatMetrics())

	bundle := persistence.NewModelBundle(p)
	bundle.Metadata.Task = models.TaskRegression
	bundle.Metadata.Dataset = ds.Name
	bundle.Metadata.Target = ds.Target
	bundle.Metadata.RMSE = metrics.RMSE
	bundle.Metadata.R2 = metrics.R2
	bundle.Metadata.TrainingTime = trainingTime
	return saveBundle(bundle, bundle.Metadata, cfg, outputDir)
}

type savable interface {
	Save(filename string) error
	SaveMetadata(filename string) error
}

func saveBundle(bundle savable, meta persistence.BundleMetadata, cfg *config.Config, outputDir string) error {
	fmt.Println("Saving model...")
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(meta.Dataset), filepath.Ext(meta.Dataset))
	name := fmt.Sprintf("%s_%s_%s_%s", cfg.Model.Algorithm, base, cfg.Preprocessing.Scaling, time.Now().Format("20060102_150405"))
	modelPath := filepath.Join(outputDir, name+".model")

	if err := bundle.Save(modelPath); err != nil {
		log.Printf("Failed to save model: %v", err)
		return nil
	}
	if err := bundle.SaveMetadata(filepath.Join(outputDir, name+"_info.txt")); err != nil {
		log.Printf("Failed to save model info: %v", err)
	}
	fmt.Printf("Model saved to: %s\n", modelPath)
	fmt.Println("\nTraining completed successfully!")
	return nil
}
