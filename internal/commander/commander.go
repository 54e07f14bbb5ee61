// Package commander is the interactive shell: load a labelled CSV, train and
// evaluate credit-risk pipelines, persist them and score new applicants.
package commander

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/config"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/data"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/dataset"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/jobs"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/models"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/persistence"
)

type Commander struct {
	config     *config.Config
	out        io.Writer
	modelsDir  string
	jobManager *jobs.Manager

	mu         sync.Mutex
	loadedData *dataset.Dataset
	bundle     *persistence.ModelBundle[int]
	bundlePath string
	lastTrain  *trainOptions

	green  func(a ...any) string
	red    func(a ...any) string
	yellow func(a ...any) string
	cyan   func(a ...any) string
	blue   func(a ...any) string
}

func NewCommander(cfg *config.Config, out io.Writer) *Commander {
	if cfg == nil {
		cfg = config.Default()
	}
	if out == nil {
		out = os.Stdout
	}
	return &Commander{
		config:     cfg,
		out:        out,
		modelsDir:  "models",
		jobManager: jobs.NewManager(),
		green:      color.New(color.FgGreen).SprintFunc(),
		red:        color.New(color.FgRed).SprintFunc(),
		yellow:     color.New(color.FgYellow).SprintFunc(),
		cyan:       color.New(color.FgCyan).SprintFunc(),
		blue:       color.New(color.FgBlue).SprintFunc(),
	}
}

// SetModelsDir changes where trained pipelines are auto-saved.
func (c *Commander) SetModelsDir(dir string) {
	c.modelsDir = dir
}

func (c *Commander) Jobs() *jobs.Manager {
	return c.jobManager
}

func (c *Commander) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *Commander) println(args ...any) {
	fmt.Fprintln(c.out, args...)
}

// Start reads commands from in until EOF or quit.
func (c *Commander) Start(in io.Reader) {
	c.printWelcome()
	scanner := bufio.NewScanner(in)

	for {
		c.printf("%s", c.yellow("\nmlc> "))
		if !scanner.Scan() {
			if scanner.Err() != nil {
				c.printf("\n%s Scanner error: %v\n", c.red("✗"), scanner.Err())
			}
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		if !c.ExecuteCommand(strings.ToLower(parts[0]), parts[1:]) {
			break
		}
	}
	c.shutdown()
}

// ExecuteCommand runs one command and reports whether the shell should keep
// reading.
func (c *Commander) ExecuteCommand(command string, args []string) bool {
	switch command {
	case "help", "h":
		c.showHelp()
	case "load":
		if len(args) > 0 {
			c.loadData(args[0])
		} else {
			c.println(c.red("Usage: load <filename>"))
		}
	case "info":
		c.showDataInfo()
	case "train":
		if len(args) > 0 {
			c.trainModel(args[0], args[1:])
		} else {
			c.showTrainHelp()
		}
	case "train-bg":
		if len(args) > 0 {
			c.trainModelBackground(args[0], args[1:])
		} else {
			c.println(c.red("Usage: train-bg <algorithm> [params]"))
		}
	case "evaluate":
		c.evaluate()
	case "cv":
		c.crossValidate(args)
	case "experiment":
		c.runExperiment(args)
	case "predict", "batch":
		if len(args) > 0 {
			c.batchPredict(args[0], args[1:])
		} else {
			c.println(c.red("Usage: predict <filename> [--out=file] [--stream] [--batch-size=1000]"))
		}
	case "save":
		c.saveModel(args)
	case "loadmodel":
		if len(args) > 0 {
			c.loadModel(args[0])
		} else {
			c.println(c.red("Usage: loadmodel <filename>"))
		}
	case "list":
		c.listModels()
	case "current":
		c.showCurrentModel()
	case "jobs":
		c.listAllJobs()
	case "job-status":
		if len(args) > 0 {
			c.showJobStatus(args[0])
		} else {
			c.listAllJobs()
		}
	case "job-cancel":
		if len(args) > 0 {
			c.cancelJob(args[0])
		} else {
			c.println(c.red("Usage: job-cancel <job-id>"))
		}
	case "job-logs":
		if len(args) > 0 {
			c.showJobLogs(args[0])
		} else {
			c.println(c.red("Usage: job-logs <job-id>"))
		}
	case "quit", "exit", "q":
		return false
	default:
		c.printf("%s Unknown command: %s\n", c.red("✗"), command)
		c.println("Type 'help' for available commands")
	}
	return true
}

func (c *Commander) printWelcome() {
	c.println(c.cyan("╔══════════════════════════════════════════╗"))
	c.println(c.cyan("║         Credit Risk Commander            ║"))
	c.println(c.cyan("║      Interactive Pipeline Training       ║"))
	c.println(c.cyan("╚══════════════════════════════════════════╝"))
	c.println()
	c.println("Type 'help' for available commands")
}

func (c *Commander) showHelp() {
	c.println(c.blue("\nAvailable Commands:"))

	c.println("\n" + c.cyan("Data Management:"))
	c.println("  load <file>            - Load labelled applicants from CSV")
	c.println("  info                   - Show loaded data information")

	c.println("\n" + c.cyan("Model Training:"))
	c.println("  train <algo>           - Train a pipeline (knn, tree, forest, bayes)")
	c.println("  train-bg <algo>        - Train a pipeline in background")
	c.printf("                           Pipelines are auto-saved to %s/\n", c.modelsDir)
	c.println("  evaluate               - Evaluate current pipeline on a held-out split")
	c.println("  cv [folds]             - Cross-validate the current configuration")
	c.println("  experiment [file]      - Run the configured experiment grid")

	c.println("\n" + c.cyan("Model Management:"))
	c.println("  save [file]            - Save current pipeline")
	c.println("  loadmodel <file>       - Load a saved pipeline")
	c.println("  list                   - List saved pipelines")
	c.println("  current                - Show current pipeline info")

	c.println("\n" + c.cyan("Predictions:"))
	c.println("  predict <file>         - Score applicants from CSV")

	c.println("\n" + c.cyan("Job Management:"))
	c.println("  jobs                   - List background jobs")
	c.println("  job-status <job-id>    - Show job status")
	c.println("  job-cancel <job-id>    - Cancel a running job")
	c.println("  job-logs <job-id>      - View job logs")

	c.println("\n" + c.cyan("System:"))
	c.println("  help                   - Show this help message")
	c.println("  quit                   - Exit program")
}

func (c *Commander) loadData(filename string) {
	if c.config.Model.Task == models.TaskRegression {
		c.printf("%s The shell trains classifiers; use the train binary for regression\n", c.red("✗"))
		return
	}

	startTime := time.Now()
	c.printf("Loading data from %s...\n", filename)

	ds, err := dataset.Load(filename, c.config)
	if err != nil {
		c.printf("%s Error loading data: %v\n", c.red("✗"), err)
		return
	}
	if err := data.NewDataValidator().ValidateDataset(ds.Features, ds.Labels); err != nil {
		ds.Release()
		c.printf("%s Invalid dataset: %v\n", c.red("✗"), err)
		return
	}

	c.mu.Lock()
	if c.loadedData != nil {
		c.loadedData.Release()
	}
	c.loadedData = ds
	c.mu.Unlock()

	c.printf("%s Loaded %d samples with %d columns in %v\n",
		c.green("✓"), ds.NumRows(), ds.Features.NumCols(), time.Since(startTime).Round(time.Millisecond))
	c.printf("Target: %s | Classes: %s\n", ds.Target, strings.Join(ds.Classes, ", "))
}

func (c *Commander) currentData() *dataset.Dataset {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadedData
}

func (c *Commander) currentBundle() (*persistence.ModelBundle[int], string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bundle, c.bundlePath
}

func (c *Commander) setBundle(bundle *persistence.ModelBundle[int], path string) {
	c.mu.Lock()
	c.bundle = bundle
	c.bundlePath = path
	c.mu.Unlock()
}

func (c *Commander) showDataInfo() {
	ds := c.currentData()
	if ds == nil {
		c.println(c.red("No data loaded"))
		return
	}

	stats := data.NewDataValidator().GetDatasetStats(ds.Features, ds.Labels)
	c.println(c.cyan("\nDataset Information:"))
	c.println(strings.Repeat("─", 50))
	c.printf("Source:   %s\n", ds.Name)
	c.printf("Samples:  %d\n", stats.Samples)
	c.printf("Columns:  %d\n", stats.Features)
	c.printf("Target:   %s\n", ds.Target)

	c.println(c.cyan("\nColumns:"))
	c.printf("%-24s %-12s %-8s %s\n", "Name", "Kind", "Missing", "Summary")
	c.println(strings.Repeat("─", 70))
	for _, col := range stats.Columns {
		summary := ""
		switch col.Kind {
		case data.Numeric:
			summary = fmt.Sprintf("min=%s max=%s mean=%s", col.Min, col.Max, col.Mean.Round(2))
		case data.Categorical:
			summary = fmt.Sprintf("%d categories", col.Unique)
		}
		kind := col.Kind.String()
		if col.Kind == data.Unsupported {
			kind = c.yellow(kind)
		}
		c.printf("%-24s %-12s %-8d %s\n", col.Name, kind, col.Missing, summary)
	}

	c.println(c.cyan("\nClass Distribution:"))
	labels := make([]int, 0, len(stats.ClassDistribution))
	for label := range stats.ClassDistribution {
		labels = append(labels, label)
	}
	sort.Ints(labels)
	for _, label := range labels {
		count := stats.ClassDistribution[label]
		c.printf("  %-16s %6d (%.1f%%)\n", c.className(ds, label), count, 100*float64(count)/float64(stats.Samples))
	}
}

// className maps an encoded label back to the value seen in the CSV.
func (c *Commander) className(ds *dataset.Dataset, label int) string {
	if ds != nil && ds.Encoder != nil {
		if names, err := ds.Encoder.InverseTransform([]int{label}); err == nil {
			return names[0]
		}
	}
	return strconv.Itoa(label)
}

func (c *Commander) bundleClassName(bundle *persistence.ModelBundle[int], label int) string {
	if bundle != nil && bundle.LabelEncoder != nil {
		if names, err := bundle.LabelEncoder.InverseTransform([]int{label}); err == nil {
			return names[0]
		}
	}
	return strconv.Itoa(label)
}

// saveTrainingLog appends one row per trained pipeline to training_log.csv.
func (c *Commander) saveTrainingLog(metadata persistence.BundleMetadata) {
	logFile := filepath.Join(c.modelsDir, "training_log.csv")
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return
	}
	defer file.Close()

	info, _ := file.Stat()
	if info.Size() == 0 {
		fmt.Fprintln(file, "Timestamp,Model,Dataset,Accuracy,F1,TrainingTime")
	}

	fmt.Fprintf(file, "%s,%s,%s,%.4f,%.4f,%.2f\n",
		time.Now().Format("2006-01-02 15:04:05"),
		metadata.ModelName,
		metadata.Dataset,
		metadata.Accuracy,
		metadata.F1Score,
		metadata.TrainingTime.Seconds())
}

func (c *Commander) shutdown() {
	c.jobManager.CancelAll()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, job := range c.jobManager.ListJobs() {
		c.jobManager.Wait(ctx, job.ID)
	}

	c.mu.Lock()
	if c.loadedData != nil {
		c.loadedData.Release()
		c.loadedData = nil
	}
	c.mu.Unlock()
	c.println("Goodbye!")
}
