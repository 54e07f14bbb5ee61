package data

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type DataValidator struct{}

func NewDataValidator() *DataValidator {
	return &DataValidator{}
}

func (dv *DataValidator) ValidateFrame(f *Frame) error {
	if f == nil || f.NumRows() == 0 {
		return ErrEmptyFrame
	}
	if f.NumCols() == 0 {
		return fmt.Errorf("features cannot be empty")
	}
	return nil
}

func (dv *DataValidator) ValidateLabels(y []int) error {
	if len(y) == 0 {
		return fmt.Errorf("labels are empty")
	}

	classCount := make(map[int]int)
	for _, label := range y {
		classCount[label]++
	}

	if len(classCount) < 2 {
		return fmt.Errorf("dataset must have at least 2 classes, found %d", len(classCount))
	}

	return nil
}

// ValidateDataset checks the frame and that one label exists per row.
func (dv *DataValidator) ValidateDataset(f *Frame, y []int) error {
	if err := dv.ValidateFrame(f); err != nil {
		return err
	}
	if f.NumRows() != len(y) {
		return fmt.Errorf("feature frame and labels have different lengths: %d vs %d", f.NumRows(), len(y))
	}
	return dv.ValidateLabels(y)
}

type ColumnStats struct {
	Name    string
	Kind    ColumnKind
	Missing int
	Unique  int
	Min     decimal.Decimal
	Max     decimal.Decimal
	Mean    decimal.Decimal
}

type DatasetStats struct {
	Samples           int
	Features          int
	Columns           []ColumnStats
	ClassDistribution map[int]int
}

func (dv *DataValidator) GetDatasetStats(f *Frame, y []int) DatasetStats {
	stats := DatasetStats{
		Samples:           f.NumRows(),
		Features:          f.NumCols(),
		ClassDistribution: make(map[int]int),
	}
	for _, label := range y {
		stats.ClassDistribution[label]++
	}

	for _, name := range f.ColumnNames() {
		col, _ := f.Column(name)
		cs := ColumnStats{Name: name, Kind: KindOf(col.DataType())}

		switch cs.Kind {
		case Numeric:
			var values []decimal.Decimal
			for i := 0; i < col.Len(); i++ {
				if v, ok := NumericAt(col, i); ok {
					values = append(values, v)
				} else {
					cs.Missing++
				}
			}
			if len(values) > 0 {
				cs.Min = decimal.Min(values[0], values[1:]...)
				cs.Max = decimal.Max(values[0], values[1:]...)
				cs.Mean = decimal.Avg(values[0], values[1:]...)
			}
		case Categorical:
			seen := make(map[string]bool)
			for i := 0; i < col.Len(); i++ {
				if s, ok := StringAt(col, i); ok {
					seen[s] = true
				} else {
					cs.Missing++
				}
			}
			cs.Unique = len(seen)
		default:
			cs.Missing = col.NullN()
		}

		stats.Columns = append(stats.Columns, cs)
	}

	return stats
}
