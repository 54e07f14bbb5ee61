package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/models"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/pipeline"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/preprocessing"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

type Issues []Issue

func (is Issues) HasErrors() bool {
	for _, i := range is {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (is Issues) Error() string {
	lines := make([]string, len(is))
	for n, i := range is {
		lines[n] = i.String()
	}
	return strings.Join(lines, "; ")
}

var scalings = []string{
	preprocessing.ScaleRaw, preprocessing.ScaleNormalized, preprocessing.ScaleStandardized,
	"minmax", "standard", "none", "",
}

// Validate reports every problem at once instead of stopping at the first.
func (c *Config) Validate() Issues {
	var issues Issues
	fail := func(path, format string, args ...any) {
		issues = append(issues, Issue{SeverityError, path, fmt.Sprintf(format, args...)})
	}
	warn := func(path, format string, args ...any) {
		issues = append(issues, Issue{SeverityWarning, path, fmt.Sprintf(format, args...)})
	}

	if c.Dataset.Path == "" {
		warn("dataset.path", "no dataset configured")
	}
	if c.Dataset.Target == "" {
		fail("dataset.target", "target column is required")
	}
	if len([]rune(c.Dataset.Delimiter)) > 1 {
		fail("dataset.delimiter", "delimiter must be a single character, got %q", c.Dataset.Delimiter)
	}
	seen := make(map[string]bool)
	for _, f := range c.Dataset.Features {
		switch {
		case f == c.Dataset.Target:
			fail("dataset.features", "target %s is listed as a feature", f)
		case seen[f]:
			fail("dataset.features", "duplicate feature %s", f)
		case !slices.Contains(pipeline.InterestVariables, f):
			warn("dataset.features", "%s is not one of the interest variables", f)
		}
		seen[f] = true
	}
	if len(c.Dataset.Features) == 0 {
		warn("dataset.features", "empty feature list, every non-target column is used")
	}

	if _, err := preprocessing.ParseUnsupportedPolicy(c.Preprocessing.Unsupported); err != nil {
		fail("preprocessing.unsupported", "%v", err)
	}
	if !slices.Contains(scalings, c.Preprocessing.Scaling) {
		fail("preprocessing.scaling", "unknown scaling %q", c.Preprocessing.Scaling)
	}
	if c.Preprocessing.CategoricalFill == "" {
		warn("preprocessing.categorical_fill", "missing categories collapse into the empty string")
	}

	switch c.Model.Task {
	case models.TaskClassification:
		if !slices.Contains(models.Algorithms, c.Model.Algorithm) {
			fail("model.algorithm", "unknown algorithm %q (want one of %s)", c.Model.Algorithm, strings.Join(models.Algorithms, ", "))
		}
	case models.TaskRegression:
		if c.Model.Algorithm != "ridge" && c.Model.Algorithm != "" {
			fail("model.algorithm", "regression supports only ridge, got %q", c.Model.Algorithm)
		}
		if c.Split.Stratified {
			warn("split.stratified", "stratification is ignored for regression")
		}
	default:
		fail("model.task", "unknown task %q", c.Model.Task)
	}
	if c.Model.K < 0 || c.Model.MaxDepth < 0 || c.Model.MinSplit < 0 || c.Model.NTrees < 0 {
		fail("model", "hyper-parameters must not be negative")
	}

	if c.Split.TestSize <= 0 || c.Split.TestSize >= 1 {
		fail("split.test_size", "must be in (0, 1), got %g", c.Split.TestSize)
	}
	if c.Model.Prune {
		if c.Model.Algorithm != "tree" {
			fail("model.prune", "pruning is only available for tree, got %q", c.Model.Algorithm)
		}
		if c.Split.ValidationSize <= 0 || c.Split.ValidationSize >= 1 {
			fail("split.validation_size", "must be in (0, 1), got %g", c.Split.ValidationSize)
		}
	}
	if c.CrossValidation.Folds == 1 || c.CrossValidation.Folds < 0 {
		fail("cross_validation.folds", "must be 0 (disabled) or at least 2, got %d", c.CrossValidation.Folds)
	}

	for i, s := range c.Experiment.Scaling {
		if !slices.Contains(scalings, s) {
			fail(fmt.Sprintf("experiment.scaling[%d]", i), "unknown scaling %q", s)
		}
	}
	for i, ts := range c.Experiment.TestSizes {
		if ts <= 0 || ts >= 1 {
			fail(fmt.Sprintf("experiment.test_sizes[%d]", i), "must be in (0, 1), got %g", ts)
		}
	}

	return issues
}
