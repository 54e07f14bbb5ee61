package preprocessing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	HandleUnknownIgnore = "ignore"
	HandleUnknownError  = "error"
)

// OneHotEncoder expands each categorical column into one indicator per
// category seen during Fit, in first-seen order. With HandleUnknownIgnore a
// category outside the vocabulary encodes as an all-zero block.
type OneHotEncoder struct {
	Categories    [][]string
	HandleUnknown string
	IsFitted      bool

	index []map[string]int
}

func NewOneHotEncoder(handleUnknown string) *OneHotEncoder {
	if handleUnknown != HandleUnknownError {
		handleUnknown = HandleUnknownIgnore
	}
	return &OneHotEncoder{HandleUnknown: handleUnknown}
}

// Fit learns the vocabulary of every column. columns[j][i] is row i of column j.
func (oh *OneHotEncoder) Fit(columns [][]string) {
	oh.Categories = make([][]string, len(columns))
	for j, col := range columns {
		seen := make(map[string]bool)
		cats := []string{}
		for _, v := range col {
			if !seen[v] {
				seen[v] = true
				cats = append(cats, v)
			}
		}
		oh.Categories[j] = cats
	}
	oh.index = oh.lookup()
	oh.IsFitted = true
}

// Width is the number of indicator columns Transform produces.
func (oh *OneHotEncoder) Width() int {
	width := 0
	for _, cats := range oh.Categories {
		width += len(cats)
	}
	return width
}

// Transform returns one row of indicators per input row.
func (oh *OneHotEncoder) Transform(columns [][]string) ([][]decimal.Decimal, error) {
	if !oh.IsFitted {
		return nil, fmt.Errorf("one-hot encoder: %w", ErrNotFitted)
	}
	if len(columns) != len(oh.Categories) {
		return nil, fmt.Errorf("one-hot encoder: %w: fitted on %d columns, got %d",
			ErrColumnMismatch, len(oh.Categories), len(columns))
	}
	index := oh.index
	if len(index) != len(oh.Categories) {
		index = oh.lookup()
	}

	rows := 0
	if len(columns) > 0 {
		rows = len(columns[0])
	}

	width := oh.Width()
	out := make([][]decimal.Decimal, rows)
	for i := range out {
		out[i] = make([]decimal.Decimal, width)
	}

	offset := 0
	for j, col := range columns {
		for i, v := range col {
			pos, ok := index[j][v]
			if !ok {
				if oh.HandleUnknown == HandleUnknownError {
					return nil, fmt.Errorf("one-hot encoder: unknown category %q in column %d", v, j)
				}
				continue
			}
			out[i][offset+pos] = decimal.NewFromInt(1)
		}
		offset += len(oh.Categories[j])
	}

	return out, nil
}

func (oh *OneHotEncoder) FitTransform(columns [][]string) ([][]decimal.Decimal, error) {
	oh.Fit(columns)
	return oh.Transform(columns)
}

// lookup builds the category positions. The maps are not persisted, so a
// decoded encoder rebuilds them per call.
func (oh *OneHotEncoder) lookup() []map[string]int {
	index := make([]map[string]int, len(oh.Categories))
	for j, cats := range oh.Categories {
		index[j] = make(map[string]int, len(cats))
		for pos, c := range cats {
			index[j][c] = pos
		}
	}
	return index
}
