package models

import (
	"encoding/gob"
	"fmt"
)

const (
	TaskClassification = "classification"
	TaskRegression     = "regression"
)

// Algorithms lists the classifier names CreateModel accepts.
var Algorithms = []string{"knn", "tree", "forest", "bayes"}

type ModelConfig struct {
	Algorithm    string  `yaml:"algorithm"`
	K            int     `yaml:"k"`
	Distance     string  `yaml:"distance"`
	MaxDepth     int     `yaml:"max_depth"`
	MinSplit     int     `yaml:"min_split"`
	NTrees       int     `yaml:"n_trees"`
	Seed         int64   `yaml:"seed"`
	VarSmoothing float64 `yaml:"var_smoothing"`
	Alpha        float64 `yaml:"alpha"`
	// Prune cuts a fitted decision tree back against a validation slice of
	// the training rows. Other algorithms reject it.
	Prune bool `yaml:"prune"`
}

func init() {
	gob.Register(&KNN{})
	gob.Register(&DecisionTree{})
	gob.Register(&RandomForest{})
	gob.Register(&NaiveBayes{})
	gob.Register(&RidgeRegression{})
}

func CreateModel(config ModelConfig) (Model, error) {
	config = config.withDefaults()
	if config.Prune && config.Algorithm != "tree" {
		return nil, fmt.Errorf("pruning is not available for %s", config.Algorithm)
	}

	switch config.Algorithm {
	case "knn":
		return NewKNN(config.K, config.Distance), nil
	case "tree":
		return NewDecisionTree(config.MaxDepth, config.MinSplit), nil
	case "forest":
		rf := NewRandomForest(config.NTrees, config.MaxDepth, config.MinSplit)
		rf.Seed = config.Seed
		return rf, nil
	case "bayes":
		return NewNaiveBayes(config.VarSmoothing), nil
	default:
		return nil, fmt.Errorf("unknown algorithm: %s", config.Algorithm)
	}
}

// CreateRegressor builds the regressor named by config.Algorithm. Only
// "ridge" is available.
func CreateRegressor(config ModelConfig) (Regressor, error) {
	switch config.Algorithm {
	case "ridge", "":
		alpha := config.Alpha
		if alpha == 0 {
			alpha = 1.0
		}
		return NewRidgeRegression(alpha), nil
	default:
		return nil, fmt.Errorf("unknown regression algorithm: %s", config.Algorithm)
	}
}

func DefaultConfig(algorithm string) ModelConfig {
	return ModelConfig{Algorithm: algorithm}.withDefaults()
}

func (c ModelConfig) withDefaults() ModelConfig {
	switch c.Algorithm {
	case "knn":
		if c.K <= 0 {
			c.K = 5
		}
		if c.Distance == "" {
			c.Distance = DistanceEuclidean
		}
	case "tree", "forest":
		if c.MaxDepth <= 0 {
			c.MaxDepth = 10
		}
		if c.MinSplit <= 0 {
			c.MinSplit = 2
		}
		if c.Algorithm == "forest" && c.NTrees <= 0 {
			c.NTrees = 100
		}
	case "bayes":
		if c.VarSmoothing <= 0 {
			c.VarSmoothing = 1e-9
		}
	case "ridge":
		if c.Alpha <= 0 {
			c.Alpha = 1.0
		}
	}
	return c
}
