// Package dataset loads a labelled CSV table as described by the config:
// feature frame, aligned targets and the label vocabulary.
package dataset

import (
	"fmt"
	"strconv"

	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/config"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/data"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/models"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/preprocessing"
)

type Dataset struct {
	Name     string
	Target   string
	Features *data.Frame

	// Labels and Classes are set for classification, Values for regression.
	Labels  []int
	Classes []string
	Encoder *preprocessing.LabelEncoder
	Values  []float64
}

func (d *Dataset) Release() {
	if d.Features != nil {
		d.Features.Release()
	}
}

func (d *Dataset) NumRows() int {
	return d.Features.NumRows()
}

// Load reads path and splits it into features and target.
func Load(path string, cfg *config.Config) (*Dataset, error) {
	table, err := data.ReadCSVFile(path, cfg.CSVOptions())
	if err != nil {
		return nil, err
	}
	defer table.Release()

	ds, err := FromFrame(table, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ds.Name = path
	return ds, nil
}

// FromFrame extracts features and targets from an already loaded table.
func FromFrame(table *data.Frame, cfg *config.Config) (*Dataset, error) {
	target := cfg.Dataset.Target
	features, err := data.FeatureFrame(table, target, cfg.Dataset.Features)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{Target: target, Features: features}
	if cfg.Model.Task == models.TaskRegression {
		ds.Values, err = data.FloatTarget(table, target)
	} else {
		err = ds.encodeLabels(table)
	}
	if err != nil {
		features.Release()
		return nil, err
	}
	return ds, nil
}

// encodeLabels keeps integer targets as they are and label-encodes text.
func (d *Dataset) encodeLabels(table *data.Frame) error {
	kind, err := table.Kind(d.Target)
	if err != nil {
		return err
	}

	if kind == data.Numeric {
		d.Labels, err = data.IntTarget(table, d.Target)
		if err != nil {
			return err
		}
		for _, c := range models.ExtractClasses(d.Labels) {
			d.Classes = append(d.Classes, strconv.Itoa(c))
		}
		return nil
	}

	raw, err := data.StringTarget(table, d.Target)
	if err != nil {
		return err
	}
	d.Encoder = preprocessing.NewLabelEncoder()
	if d.Labels, err = d.Encoder.FitTransform(raw); err != nil {
		return err
	}
	d.Classes = d.Encoder.Classes()
	return nil
}
