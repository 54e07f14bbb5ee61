package preprocessing

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/shopspring/decimal"

	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/data"
)

const (
	DefaultNumericFill     = 0
	DefaultCategoricalFill = "unknown"
)

// ConstantImputer replaces missing numeric entries with FillValue. The
// constant strategy learns nothing from the data, so there is no Fit.
type ConstantImputer struct {
	FillValue decimal.Decimal
}

func NewConstantImputer(fill decimal.Decimal) *ConstantImputer {
	return &ConstantImputer{FillValue: fill}
}

func (ci *ConstantImputer) TransformColumn(col arrow.Array) []decimal.Decimal {
	out := make([]decimal.Decimal, col.Len())
	for i := range out {
		if v, ok := data.NumericAt(col, i); ok {
			out[i] = v
		} else {
			out[i] = ci.FillValue
		}
	}
	return out
}

// CategoricalImputer replaces missing categorical entries with FillValue.
type CategoricalImputer struct {
	FillValue string
}

func NewCategoricalImputer(fill string) *CategoricalImputer {
	return &CategoricalImputer{FillValue: fill}
}

func (ci *CategoricalImputer) TransformColumn(col arrow.Array) []string {
	out := make([]string, col.Len())
	for i := range out {
		if s, ok := data.StringAt(col, i); ok {
			out[i] = s
		} else {
			out[i] = ci.FillValue
		}
	}
	return out
}
