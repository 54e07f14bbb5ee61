package persistence

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/pipeline"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/preprocessing"

	// Registers the concrete models with gob.
	_ "github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/models"
)

var ErrFingerprintMismatch = errors.New("bundle fingerprint does not match its pipeline")

// ModelBundle is a fitted pipeline plus what is needed to use and describe
// it. Y is int for classifiers and float64 for regressors.
type ModelBundle[Y any] struct {
	Pipeline     *pipeline.Pipeline[Y]
	LabelEncoder *preprocessing.LabelEncoder
	Metadata     BundleMetadata
	CreatedAt    time.Time
}

type BundleMetadata struct {
	ModelName    string
	Task         string
	Dataset      string
	Target       string
	Accuracy     float64
	Precision    float64
	Recall       float64
	F1Score      float64
	RMSE         float64
	R2           float64
	TrainingTime time.Duration
	Columns      []string
	Features     []string
	Classes      []string
	Parameters   map[string]any
	Fingerprint  uint64
}

type namedModel interface {
	GetName() string
	GetParams() map[string]any
}

func NewModelBundle[Y any](p *pipeline.Pipeline[Y]) *ModelBundle[Y] {
	mb := &ModelBundle[Y]{
		Pipeline:  p,
		CreatedAt: time.Now(),
		Metadata: BundleMetadata{
			Columns:     append(append([]string(nil), p.Preprocessor.NumericColumns...), p.Preprocessor.CategoricalColumns...),
			Features:    p.FeatureNames(),
			Fingerprint: p.Fingerprint(),
		},
	}
	if m, ok := p.Model.(namedModel); ok {
		mb.Metadata.ModelName = m.GetName()
		mb.Metadata.Parameters = m.GetParams()
	} else {
		mb.Metadata.ModelName = fmt.Sprintf("%T", p.Model)
	}
	return mb
}

func (mb *ModelBundle[Y]) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(mb); err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	return nil
}

// LoadModelBundle decodes a bundle and checks that the decoded pipeline
// still has the fingerprint recorded at save time.
func LoadModelBundle[Y any](filename string) (*ModelBundle[Y], error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var bundle ModelBundle[Y]
	if err := gob.NewDecoder(file).Decode(&bundle); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	if bundle.Pipeline == nil || bundle.Pipeline.Preprocessor == nil {
		return nil, fmt.Errorf("failed to decode bundle: no pipeline")
	}
	if got := bundle.Pipeline.Fingerprint(); got != bundle.Metadata.Fingerprint {
		return nil, fmt.Errorf("%w: %016x != %016x", ErrFingerprintMismatch, got, bundle.Metadata.Fingerprint)
	}
	return &bundle, nil
}

func (mb *ModelBundle[Y]) SaveMetadata(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	m := mb.Metadata
	fmt.Fprintf(file, "Model: %s\n", m.ModelName)
	fmt.Fprintf(file, "Task: %s\n", m.Task)
	fmt.Fprintf(file, "Dataset: %s\n", m.Dataset)
	fmt.Fprintf(file, "Target: %s\n", m.Target)
	fmt.Fprintf(file, "Created: %s\n", mb.CreatedAt.Format(time.RFC3339))
	if m.Task == "regression" {
		fmt.Fprintf(file, "RMSE: %.4f\n", m.RMSE)
		fmt.Fprintf(file, "R2: %.4f\n", m.R2)
	} else {
		fmt.Fprintf(file, "Accuracy: %.4f\n", m.Accuracy)
		fmt.Fprintf(file, "Precision: %.4f\n", m.Precision)
		fmt.Fprintf(file, "Recall: %.4f\n", m.Recall)
		fmt.Fprintf(file, "F1 Score: %.4f\n", m.F1Score)
	}
	fmt.Fprintf(file, "Training Time: %v\n", m.TrainingTime)
	fmt.Fprintf(file, "Columns: %s\n", strings.Join(m.Columns, ", "))
	fmt.Fprintf(file, "Features: %d\n", len(m.Features))
	if len(m.Classes) > 0 {
		fmt.Fprintf(file, "Classes: %s\n", strings.Join(m.Classes, ", "))
	}
	fmt.Fprintf(file, "Fingerprint: %016x\n", m.Fingerprint)

	return nil
}
