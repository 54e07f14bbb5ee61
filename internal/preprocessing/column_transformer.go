package preprocessing

import (
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"github.com/zeebo/xxh3"

	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/data"
)

var (
	ErrNotFitted         = errors.New("transformer must be fitted before transform")
	ErrColumnMismatch    = errors.New("column mismatch")
	ErrUnsupportedColumn = errors.New("unsupported column type")
)

// UnsupportedPolicy decides what happens to columns that are neither numeric
// nor categorical (booleans, timestamps, dates, ...).
type UnsupportedPolicy int

const (
	RejectUnsupported UnsupportedPolicy = iota
	DropUnsupported
)

func (p UnsupportedPolicy) String() string {
	if p == DropUnsupported {
		return "drop"
	}
	return "reject"
}

func ParseUnsupportedPolicy(s string) (UnsupportedPolicy, error) {
	switch s {
	case "", "reject":
		return RejectUnsupported, nil
	case "drop":
		return DropUnsupported, nil
	default:
		return RejectUnsupported, fmt.Errorf("unknown unsupported-column policy: %s", s)
	}
}

// ColumnTransformer routes numeric columns through a constant imputer and
// categorical columns through imputer + one-hot encoder, then concatenates
// the numeric block and the indicator blocks into one matrix.
type ColumnTransformer struct {
	NumericColumns     []string
	CategoricalColumns []string
	DroppedColumns     []string

	NumericImputer     *ConstantImputer
	CategoricalImputer *CategoricalImputer
	Encoder            *OneHotEncoder
	Policy             UnsupportedPolicy
	IsFitted           bool

	logger *log.Logger
}

func NewColumnTransformer(numericFill decimal.Decimal, categoricalFill string, policy UnsupportedPolicy) *ColumnTransformer {
	return &ColumnTransformer{
		NumericImputer:     NewConstantImputer(numericFill),
		CategoricalImputer: NewCategoricalImputer(categoricalFill),
		Encoder:            NewOneHotEncoder(HandleUnknownIgnore),
		Policy:             policy,
	}
}

// DefaultColumnTransformer fills numbers with 0 and categories with "unknown",
// and rejects unsupported columns.
func DefaultColumnTransformer() *ColumnTransformer {
	return NewColumnTransformer(decimal.NewFromInt(DefaultNumericFill), DefaultCategoricalFill, RejectUnsupported)
}

func (ct *ColumnTransformer) SetLogger(logger *log.Logger) {
	ct.logger = logger
}

// Fit partitions the columns of X and learns the category vocabulary from
// this call's data only. Any earlier fit is discarded.
func (ct *ColumnTransformer) Fit(X *data.Frame) error {
	if X == nil || X.NumRows() == 0 {
		return data.ErrEmptyFrame
	}

	partition := data.PartitionColumns(X)
	if len(partition.Unsupported) > 0 {
		if ct.Policy == RejectUnsupported {
			col, _ := X.Column(partition.Unsupported[0])
			return fmt.Errorf("%w: %s (%s)", ErrUnsupportedColumn, partition.Unsupported[0], col.DataType())
		}
		if ct.logger != nil {
			ct.logger.Printf("dropping unsupported columns: %v", partition.Unsupported)
		}
	}

	ct.NumericColumns = partition.Numeric
	ct.CategoricalColumns = partition.Categorical
	ct.DroppedColumns = partition.Unsupported

	categorical, err := ct.imputeCategorical(X)
	if err != nil {
		return err
	}
	ct.Encoder.Fit(categorical)

	ct.IsFitted = true
	return nil
}

// Transform applies the fitted stages. X must hold every fitted column with
// the same kind; extra columns are ignored. Row order is preserved.
func (ct *ColumnTransformer) Transform(X *data.Frame) ([][]decimal.Decimal, error) {
	if !ct.IsFitted {
		return nil, ErrNotFitted
	}
	if err := ct.checkColumns(X); err != nil {
		return nil, err
	}

	rows := X.NumRows()
	width := ct.NumFeatures()
	out := make([][]decimal.Decimal, rows)
	for i := range out {
		out[i] = make([]decimal.Decimal, 0, width)
	}

	for _, name := range ct.NumericColumns {
		col, _ := X.Column(name)
		values := ct.NumericImputer.TransformColumn(col)
		for i := range out {
			out[i] = append(out[i], values[i])
		}
	}

	if len(ct.CategoricalColumns) > 0 {
		categorical, err := ct.imputeCategorical(X)
		if err != nil {
			return nil, err
		}
		encoded, err := ct.Encoder.Transform(categorical)
		if err != nil {
			return nil, err
		}
		for i := range out {
			out[i] = append(out[i], encoded[i]...)
		}
	}

	return out, nil
}

func (ct *ColumnTransformer) FitTransform(X *data.Frame) ([][]decimal.Decimal, error) {
	if err := ct.Fit(X); err != nil {
		return nil, err
	}
	return ct.Transform(X)
}

// ColumnKinds maps every fitted column to its kind, for readers that must
// type a scoring file the way the training data was typed.
func (ct *ColumnTransformer) ColumnKinds() map[string]data.ColumnKind {
	kinds := make(map[string]data.ColumnKind, len(ct.NumericColumns)+len(ct.CategoricalColumns))
	for _, name := range ct.NumericColumns {
		kinds[name] = data.Numeric
	}
	for _, name := range ct.CategoricalColumns {
		kinds[name] = data.Categorical
	}
	return kinds
}

// NumFeatures is the width of the transformed matrix.
func (ct *ColumnTransformer) NumFeatures() int {
	return len(ct.NumericColumns) + ct.Encoder.Width()
}

// FeatureNames names the output columns: num__<col> for numeric columns and
// cat__<col>_<category> for indicators.
func (ct *ColumnTransformer) FeatureNames() []string {
	names := make([]string, 0, ct.NumFeatures())
	for _, name := range ct.NumericColumns {
		names = append(names, "num__"+name)
	}
	for j, name := range ct.CategoricalColumns {
		for _, cat := range ct.Encoder.Categories[j] {
			names = append(names, "cat__"+name+"_"+cat)
		}
	}
	return names
}

// Fingerprint hashes the column partition and the encoder vocabulary. Two
// transformers fitted on the same data have the same fingerprint.
func (ct *ColumnTransformer) Fingerprint() uint64 {
	h := xxh3.New()
	write := func(s string) {
		h.WriteString(s)
		h.Write([]byte{0})
	}

	write("num")
	for _, name := range ct.NumericColumns {
		write(name)
	}
	write("cat")
	for j, name := range ct.CategoricalColumns {
		write(name)
		for _, cat := range ct.Encoder.Categories[j] {
			write(cat)
		}
		h.Write([]byte{1})
	}
	write("drop")
	for _, name := range ct.DroppedColumns {
		write(name)
	}
	return h.Sum64()
}

func (ct *ColumnTransformer) imputeCategorical(X *data.Frame) ([][]string, error) {
	columns := make([][]string, len(ct.CategoricalColumns))
	for j, name := range ct.CategoricalColumns {
		col, err := X.Column(name)
		if err != nil {
			return nil, err
		}
		columns[j] = ct.CategoricalImputer.TransformColumn(col)
	}
	return columns, nil
}

// checkColumns requires every fitted column with its fitted kind. A column
// with no values carries no type information, so it is accepted in either
// slot and imputed there.
func (ct *ColumnTransformer) checkColumns(X *data.Frame) error {
	check := func(name string, want data.ColumnKind) error {
		col, err := X.Column(name)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrColumnMismatch, err)
		}
		if col.NullN() == col.Len() {
			return nil
		}
		if kind := data.KindOf(col.DataType()); kind != want {
			return fmt.Errorf("%w: column %s is %s, fitted as %s", ErrColumnMismatch, name, kind, want)
		}
		return nil
	}

	for _, name := range ct.NumericColumns {
		if err := check(name, data.Numeric); err != nil {
			return err
		}
	}
	for _, name := range ct.CategoricalColumns {
		if err := check(name, data.Categorical); err != nil {
			return err
		}
	}
	return nil
}
