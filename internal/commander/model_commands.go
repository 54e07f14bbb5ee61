package commander

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/data"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/persistence"
)

func (c *Commander) resolveModelPath(filename string) string {
	if !strings.ContainsRune(filename, filepath.Separator) {
		filename = filepath.Join(c.modelsDir, filename)
	}
	if filepath.Ext(filename) == "" {
		filename += ".model"
	}
	return filename
}

func (c *Commander) saveModel(args []string) {
	bundle, path := c.currentBundle()
	if bundle == nil {
		c.println(c.red("No model trained. Train a model first"))
		return
	}
	if len(args) > 0 {
		path = c.resolveModelPath(args[0])
	}
	if path == "" {
		c.println(c.red("Usage: save <filename>"))
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		c.printf("%s Error saving model: %v\n", c.red("✗"), err)
		return
	}

	if err := bundle.Save(path); err != nil {
		c.printf("%s Error saving model: %v\n", c.red("✗"), err)
		return
	}
	metaPath := strings.TrimSuffix(path, filepath.Ext(path)) + "_info.txt"
	if err := bundle.SaveMetadata(metaPath); err != nil {
		c.printf("%s Could not write %s: %v\n", c.yellow("⚠"), metaPath, err)
	}
	c.setBundle(bundle, path)
	c.printf("%s Model saved to %s\n", c.green("✓"), path)
}

func (c *Commander) loadModel(filename string) {
	filename = c.resolveModelPath(filename)

	bundle, err := persistence.LoadModelBundle[int](filename)
	if err != nil {
		c.printf("%s Error loading model: %v\n", c.red("✗"), err)
		c.printf("Ensure the file exists in %s/ directory\n", c.modelsDir)
		return
	}
	c.setBundle(bundle, filename)

	c.printf("%s Model loaded successfully!\n", c.green("✓"))
	c.printf("Model: %s\n", bundle.Metadata.ModelName)
	c.printf("Dataset: %s\n", bundle.Metadata.Dataset)
	c.printf("Accuracy: %.4f | F1: %.4f\n", bundle.Metadata.Accuracy, bundle.Metadata.F1Score)
	c.printf("Created: %s\n", bundle.CreatedAt.Format("2006-01-02 15:04:05"))
	c.println("Use 'predict' or 'evaluate' to interact with the model")
}

func (c *Commander) listModels() {
	modelFiles, err := filepath.Glob(filepath.Join(c.modelsDir, "*.model"))
	if err != nil || len(modelFiles) == 0 {
		c.printf("No saved models found in %s/ directory\n", c.modelsDir)
		c.println("Train a model using 'train <algorithm>' command")
		return
	}
	sort.Strings(modelFiles)
	_, active := c.currentBundle()

	c.println(c.blue("\nSaved Models:"))
	c.println(strings.Repeat("─", 70))
	c.printf("%-40s %-10s %-12s %s\n", "Filename", "Size", "Modified", "Status")
	c.println(strings.Repeat("─", 70))
	for _, file := range modelFiles {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		status := ""
		if file == active {
			status = c.cyan("[ACTIVE]")
		}
		c.printf("%-40s %-10s %-12s %s\n",
			filepath.Base(file),
			fmt.Sprintf("%.1f KB", float64(info.Size())/1024),
			info.ModTime().Format("01-02 15:04"),
			status)
	}
}

func (c *Commander) showCurrentModel() {
	bundle, path := c.currentBundle()
	if bundle == nil {
		c.println("No active model")
		return
	}

	meta := bundle.Metadata
	c.println(c.cyan("\nCurrent Model:"))
	c.println(strings.Repeat("─", 50))
	c.printf("Model:       %s\n", meta.ModelName)
	if path != "" {
		c.printf("File:        %s\n", path)
	}
	c.printf("Dataset:     %s\n", meta.Dataset)
	c.printf("Target:      %s\n", meta.Target)
	c.printf("Classes:     %s\n", strings.Join(meta.Classes, ", "))
	c.printf("Columns:     %d | Features: %d\n", len(meta.Columns), len(meta.Features))
	c.printf("Accuracy:    %.4f | F1: %.4f\n", meta.Accuracy, meta.F1Score)
	c.printf("Fingerprint: %016x\n", meta.Fingerprint)

	keys := make([]string, 0, len(meta.Parameters))
	for k := range meta.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c.printf("  %s: %v\n", k, meta.Parameters[k])
	}
}

// batchPredict scores every row of a CSV with the active pipeline and writes
// Sample,Prediction,Confidence rows. Fitted columns are read with their
// fitted kinds; extra columns in the file are ignored.
func (c *Commander) batchPredict(filename string, params []string) {
	bundle, _ := c.currentBundle()
	if bundle == nil {
		c.println(c.red("No model loaded. Train or load a model first"))
		return
	}

	outputFile := strings.TrimSuffix(filename, filepath.Ext(filename)) + "_predictions.csv"
	stream := false
	batchSize := 1000
	for _, param := range params {
		switch {
		case param == "--stream":
			stream = true
		case strings.HasPrefix(param, "--out="):
			outputFile = strings.TrimPrefix(param, "--out=")
		case strings.HasPrefix(param, "--batch-size="):
			n, err := strconv.Atoi(strings.TrimPrefix(param, "--batch-size="))
			if err != nil || n <= 0 {
				c.printf("%s Invalid batch size: %s\n", c.red("✗"), param)
				return
			}
			batchSize = n
		default:
			c.printf("%s Unknown option: %s\n", c.red("✗"), param)
			return
		}
	}

	output, err := os.Create(outputFile)
	if err != nil {
		c.printf("%s Error creating output file: %v\n", c.red("✗"), err)
		return
	}
	defer output.Close()

	writer := csv.NewWriter(output)
	writer.Write([]string{"Sample", "Prediction", "Confidence"})

	csvOpts := c.config.CSVOptions()
	csvOpts.Kinds = bundle.Pipeline.Preprocessor.ColumnKinds()

	total := 0
	score := func(batch *data.Frame) error {
		n, err := c.scoreBatch(bundle, batch, total, writer)
		total += n
		return err
	}

	if stream {
		err = data.ProcessLargeFile(filename, batchSize, csvOpts, score)
	} else {
		var frame *data.Frame
		frame, err = data.ReadCSVFile(filename, csvOpts)
		if err == nil {
			err = data.NewBatchProcessor(batchSize).ProcessBatches(frame, func(batch *data.Frame, _ int) error {
				return score(batch)
			})
			frame.Release()
		}
	}
	writer.Flush()
	if err == nil {
		err = writer.Error()
	}
	if err != nil {
		c.printf("%s Prediction failed after %d samples: %v\n", c.red("✗"), total, err)
		return
	}

	c.printf("%s %d predictions saved to %s\n", c.green("✓"), total, outputFile)
}

func (c *Commander) scoreBatch(bundle *persistence.ModelBundle[int], batch *data.Frame, offset int, w *csv.Writer) (int, error) {
	features, err := batch.Select(bundle.Metadata.Columns...)
	if err != nil {
		return 0, err
	}
	defer features.Release()

	predictions, err := bundle.Pipeline.Predict(features)
	if err != nil {
		return 0, err
	}
	probas, probaErr := bundle.Pipeline.PredictProba(features)

	for i, pred := range predictions {
		confidence := ""
		if probaErr == nil && len(probas[i]) > 0 {
			confidence = decimal.Max(probas[i][0], probas[i][1:]...).StringFixed(4)
		}
		if err := w.Write([]string{strconv.Itoa(offset + i + 1), c.bundleClassName(bundle, pred), confidence}); err != nil {
			return i, err
		}
	}
	return len(predictions), nil
}
