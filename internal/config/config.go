// Package config holds the YAML configuration shared by the train binary,
// the interactive commander and the experiment runner.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/data"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/models"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/pipeline"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/preprocessing"
)

type Config struct {
	Dataset         DatasetConfig       `yaml:"dataset"`
	Preprocessing   PreprocessingConfig `yaml:"preprocessing"`
	Model           ModelConfig         `yaml:"model"`
	Split           SplitConfig         `yaml:"split"`
	CrossValidation CVConfig            `yaml:"cross_validation"`
	Experiment      ExperimentGrid      `yaml:"experiment"`
}

type DatasetConfig struct {
	Path      string   `yaml:"path"`
	Target    string   `yaml:"target"`
	Features  []string `yaml:"features"`
	Delimiter string   `yaml:"delimiter"`
	Normalize bool     `yaml:"normalize"`
}

type PreprocessingConfig struct {
	NumericFill     float64 `yaml:"numeric_fill"`
	CategoricalFill string  `yaml:"categorical_fill"`
	Unsupported     string  `yaml:"unsupported"`
	Scaling         string  `yaml:"scaling"`
}

type ModelConfig struct {
	Task               string `yaml:"task"`
	models.ModelConfig `yaml:",inline"`
}

type SplitConfig struct {
	TestSize   float64 `yaml:"test_size"`
	Seed       int64   `yaml:"seed"`
	Stratified bool    `yaml:"stratified"`
	// ValidationSize is the share of the training rows held back to prune
	// against when model.prune is set.
	ValidationSize float64 `yaml:"validation_size"`
}

type CVConfig struct {
	Folds    int  `yaml:"folds"`
	Parallel bool `yaml:"parallel"`
	Workers  int  `yaml:"workers"`
}

// ExperimentGrid enumerates the runs of the experiment runner: every scaling
// mode times every test size times every algorithm setting.
type ExperimentGrid struct {
	Scaling    []string  `yaml:"scaling"`
	TestSizes  []float64 `yaml:"test_sizes"`
	Algorithms struct {
		KNN struct {
			K        []int    `yaml:"k"`
			Distance []string `yaml:"distance"`
		} `yaml:"knn"`
		DecisionTree struct {
			MaxDepth        []int `yaml:"max_depth"`
			MinSamplesSplit []int `yaml:"min_samples_split"`
		} `yaml:"decision_tree"`
		RandomForest struct {
			NTrees   []int `yaml:"n_trees"`
			MaxDepth []int `yaml:"max_depth"`
		} `yaml:"random_forest"`
		NaiveBayes struct {
			VarSmoothing []float64 `yaml:"var_smoothing"`
		} `yaml:"naive_bayes"`
	} `yaml:"algorithms"`
}

func Default() *Config {
	c := &Config{
		Dataset: DatasetConfig{
			Target:    "TARGET",
			Features:  append([]string(nil), pipeline.InterestVariables...),
			Delimiter: ",",
			Normalize: true,
		},
		Preprocessing: PreprocessingConfig{
			NumericFill:     preprocessing.DefaultNumericFill,
			CategoricalFill: preprocessing.DefaultCategoricalFill,
			Unsupported:     preprocessing.RejectUnsupported.String(),
			Scaling:         preprocessing.ScaleRaw,
		},
		Model: ModelConfig{
			Task:        models.TaskClassification,
			ModelConfig: models.DefaultConfig("tree"),
		},
		Split: SplitConfig{
			TestSize:       0.2,
			Seed:           42,
			Stratified:     true,
			ValidationSize: 0.2,
		},
		CrossValidation: CVConfig{
			Folds:    5,
			Parallel: true,
			Workers:  4,
		},
	}

	g := &c.Experiment
	g.Scaling = []string{preprocessing.ScaleRaw, preprocessing.ScaleNormalized}
	g.TestSizes = []float64{0.2}
	g.Algorithms.KNN.K = []int{5}
	g.Algorithms.KNN.Distance = []string{models.DistanceEuclidean}
	g.Algorithms.DecisionTree.MaxDepth = []int{5, 10}
	g.Algorithms.DecisionTree.MinSamplesSplit = []int{2}
	g.Algorithms.RandomForest.NTrees = []int{50}
	g.Algorithms.RandomForest.MaxDepth = []int{10}
	g.Algorithms.NaiveBayes.VarSmoothing = []float64{1e-9}
	return c
}

// Load reads a YAML file over the defaults. A missing file yields the
// defaults; unknown keys are an error.
func Load(path string) (*Config, error) {
	c := Default()
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := c.decode(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func Parse(r io.Reader) (*Config, error) {
	c := Default()
	if err := c.decode(r); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) Save(path string) error {
	out, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

func (c *Config) CSVOptions() data.CSVOptions {
	opts := data.DefaultCSVOptions()
	if d := []rune(c.Dataset.Delimiter); len(d) == 1 {
		opts.Comma = d[0]
	}
	opts.Normalize = c.Dataset.Normalize
	return opts
}

// PipelineOptions translates the preprocessing section.
func (c *Config) PipelineOptions() ([]pipeline.Option, error) {
	policy, err := preprocessing.ParseUnsupportedPolicy(c.Preprocessing.Unsupported)
	if err != nil {
		return nil, err
	}
	return []pipeline.Option{
		pipeline.WithNumericFill(decimal.NewFromFloat(c.Preprocessing.NumericFill)),
		pipeline.WithCategoricalFill(c.Preprocessing.CategoricalFill),
		pipeline.WithUnsupportedPolicy(policy),
		pipeline.WithScaling(c.Preprocessing.Scaling),
	}, nil
}
