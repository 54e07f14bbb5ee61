package data

import "fmt"

// IntTarget reads an integer-valued column as class labels. Floating values
// must be whole numbers. Missing targets are an error.
func IntTarget(f *Frame, name string) ([]int, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if KindOf(col.DataType()) != Numeric {
		return nil, fmt.Errorf("target %s is %s, expected numeric", name, KindOf(col.DataType()))
	}

	y := make([]int, col.Len())
	for i := range y {
		v, ok := NumericAt(col, i)
		if !ok {
			return nil, fmt.Errorf("target %s: missing value at row %d", name, i)
		}
		if !v.IsInteger() {
			return nil, fmt.Errorf("target %s: non-integer label %s at row %d", name, v, i)
		}
		y[i] = int(v.IntPart())
	}
	return y, nil
}

func FloatTarget(f *Frame, name string) ([]float64, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if KindOf(col.DataType()) != Numeric {
		return nil, fmt.Errorf("target %s is %s, expected numeric", name, KindOf(col.DataType()))
	}

	y := make([]float64, col.Len())
	for i := range y {
		v, ok := NumericAt(col, i)
		if !ok {
			return nil, fmt.Errorf("target %s: missing value at row %d", name, i)
		}
		y[i] = v.InexactFloat64()
	}
	return y, nil
}

// StringTarget reads any numeric or categorical column as text labels.
func StringTarget(f *Frame, name string) ([]string, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}

	labels := make([]string, col.Len())
	switch KindOf(col.DataType()) {
	case Categorical:
		for i := range labels {
			s, ok := StringAt(col, i)
			if !ok {
				return nil, fmt.Errorf("target %s: missing value at row %d", name, i)
			}
			labels[i] = s
		}
	case Numeric:
		for i := range labels {
			v, ok := NumericAt(col, i)
			if !ok {
				return nil, fmt.Errorf("target %s: missing value at row %d", name, i)
			}
			labels[i] = v.String()
		}
	default:
		return nil, fmt.Errorf("target %s has unsupported type %s", name, col.DataType())
	}
	return labels, nil
}

// FeatureFrame selects the feature columns of a labelled table: names in the
// given order, or every column except target when names is empty.
func FeatureFrame(f *Frame, target string, names []string) (*Frame, error) {
	if !f.HasColumn(target) {
		return nil, fmt.Errorf("target %w: %s", ErrColumnNotFound, target)
	}
	if len(names) == 0 {
		return f.Drop(target), nil
	}
	return f.Select(names...)
}
