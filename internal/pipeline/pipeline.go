// Package pipeline composes the column transformer with a caller-supplied
// model into one fitted unit.
package pipeline

import (
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"github.com/zeebo/xxh3"

	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/data"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/preprocessing"
)

// InterestVariables lists the applicant columns callers are expected to
// select before building a pipeline. ModelPipeline does not filter by it.
var InterestVariables = []string{
	"NAME_INCOME_TYPE",
	"NAME_EDUCATION_TYPE",
	"NAME_FAMILY_STATUS",
	"NAME_HOUSING_TYPE",
	"DAYS_BIRTH",
	"DAYS_EMPLOYED",
	"OCCUPATION_TYPE",
	"ORGANIZATION_TYPE",
	"CODE_GENDER",
	"OWN_CAR_AGE",
}

var (
	ErrUnsupportedColumn = preprocessing.ErrUnsupportedColumn
	ErrNotPredictor      = errors.New("model does not support prediction")
	ErrNotPrunable       = errors.New("model does not support pruning")
)

// Estimator is the only capability ModelPipeline needs from a model.
type Estimator[Y any] interface {
	Fit(X [][]decimal.Decimal, y []Y) error
}

type Predictor[Y any] interface {
	Predict(X [][]decimal.Decimal) []Y
}

// Pruner is a fitted model that can be cut back against held-out rows.
type Pruner[Y any] interface {
	Prune(X [][]decimal.Decimal, y []Y)
}

type ProbaPredictor interface {
	PredictProba(X [][]decimal.Decimal) [][]decimal.Decimal
}

// Pipeline is a fitted column transformer, an optional scaler and a fitted
// model applied in that order.
type Pipeline[Y any] struct {
	Preprocessor *preprocessing.ColumnTransformer
	Scaler       *preprocessing.Scaler
	Model        Estimator[Y]
}

type options struct {
	numericFill     decimal.Decimal
	categoricalFill string
	policy          preprocessing.UnsupportedPolicy
	scaling         string
	logger          *log.Logger
}

type Option func(*options)

func WithNumericFill(v decimal.Decimal) Option {
	return func(o *options) { o.numericFill = v }
}

func WithCategoricalFill(s string) Option {
	return func(o *options) { o.categoricalFill = s }
}

func WithUnsupportedPolicy(p preprocessing.UnsupportedPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithScaling inserts a scaler after the column transformer. "raw" or ""
// leaves the matrix untouched.
func WithScaling(scaleType string) Option {
	return func(o *options) { o.scaling = scaleType }
}

func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// ModelPipeline builds a fresh column transformer, composes it with model and
// fits both on (X, y). Errors from the model's Fit are returned as is.
func ModelPipeline[Y any](X *data.Frame, y []Y, model Estimator[Y], opts ...Option) (*Pipeline[Y], error) {
	o := options{
		numericFill:     decimal.NewFromInt(preprocessing.DefaultNumericFill),
		categoricalFill: preprocessing.DefaultCategoricalFill,
		policy:          preprocessing.RejectUnsupported,
	}
	for _, opt := range opts {
		opt(&o)
	}

	ct := preprocessing.NewColumnTransformer(o.numericFill, o.categoricalFill, o.policy)
	ct.SetLogger(o.logger)

	p := &Pipeline[Y]{Preprocessor: ct, Model: model}
	if o.scaling != "" && o.scaling != preprocessing.ScaleRaw {
		p.Scaler = preprocessing.NewScaler(o.scaling)
	}

	if err := p.Fit(X, y); err != nil {
		return nil, err
	}

	if o.logger != nil {
		o.logger.Printf("pipeline fitted: %d rows, %d numeric + %d categorical columns -> %d features",
			X.NumRows(), len(ct.NumericColumns), len(ct.CategoricalColumns), ct.NumFeatures())
	}
	return p, nil
}

// Fit refits every stage on (X, y), discarding earlier state.
func (p *Pipeline[Y]) Fit(X *data.Frame, y []Y) error {
	Xt, err := p.Preprocessor.FitTransform(X)
	if err != nil {
		return err
	}
	if p.Scaler != nil {
		if Xt, err = p.Scaler.FitTransform(Xt); err != nil {
			return err
		}
	}
	return p.Model.Fit(Xt, y)
}

// Transform runs the fitted preprocessing stages only.
func (p *Pipeline[Y]) Transform(X *data.Frame) ([][]decimal.Decimal, error) {
	Xt, err := p.Preprocessor.Transform(X)
	if err != nil {
		return nil, err
	}
	if p.Scaler != nil {
		return p.Scaler.Transform(Xt)
	}
	return Xt, nil
}

func (p *Pipeline[Y]) Predict(X *data.Frame) ([]Y, error) {
	predictor, ok := p.Model.(Predictor[Y])
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotPredictor, p.Model)
	}
	Xt, err := p.Transform(X)
	if err != nil {
		return nil, err
	}
	return predictor.Predict(Xt), nil
}

func (p *Pipeline[Y]) PredictProba(X *data.Frame) ([][]decimal.Decimal, error) {
	predictor, ok := p.Model.(ProbaPredictor)
	if !ok {
		return nil, fmt.Errorf("%w: %T has no probabilities", ErrNotPredictor, p.Model)
	}
	Xt, err := p.Transform(X)
	if err != nil {
		return nil, err
	}
	return predictor.PredictProba(Xt), nil
}

// Prune transforms the validation rows with the fitted stages and hands them
// to the model's pruner. The preprocessing stages are not refitted.
func (p *Pipeline[Y]) Prune(XVal *data.Frame, yVal []Y) error {
	pruner, ok := p.Model.(Pruner[Y])
	if !ok {
		return fmt.Errorf("%w: %T", ErrNotPrunable, p.Model)
	}
	if XVal.NumRows() != len(yVal) {
		return fmt.Errorf("validation rows: %d samples, %d labels", XVal.NumRows(), len(yVal))
	}
	Xt, err := p.Transform(XVal)
	if err != nil {
		return err
	}
	pruner.Prune(Xt, yVal)
	return nil
}

func (p *Pipeline[Y]) FeatureNames() []string {
	return p.Preprocessor.FeatureNames()
}

// Fingerprint identifies the fitted preprocessing: column partition,
// vocabulary and scaling mode. The model's parameters are not included.
func (p *Pipeline[Y]) Fingerprint() uint64 {
	scaling := preprocessing.ScaleRaw
	if p.Scaler != nil {
		scaling = p.Scaler.ScaleType
	}
	return xxh3.HashString(fmt.Sprintf("%016x/%s", p.Preprocessor.Fingerprint(), scaling))
}
