package data

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/shopspring/decimal"
)

var (
	ErrColumnNotFound = errors.New("column not found")
	ErrEmptyFrame     = errors.New("frame has no rows")
)

// Frame is a read-only feature table. Rows are observations, columns are
// named features whose storage type decides their ColumnKind.
type Frame struct {
	record arrow.Record
	mem    memory.Allocator
}

// NewFrame wraps rec. The frame takes its own reference; callers keep theirs.
func NewFrame(rec arrow.Record) *Frame {
	rec.Retain()
	return &Frame{record: rec, mem: memory.DefaultAllocator}
}

func (f *Frame) Record() arrow.Record {
	return f.record
}

func (f *Frame) Retain() {
	f.record.Retain()
}

func (f *Frame) Release() {
	f.record.Release()
}

func (f *Frame) NumRows() int {
	return int(f.record.NumRows())
}

func (f *Frame) NumCols() int {
	return int(f.record.NumCols())
}

func (f *Frame) ColumnNames() []string {
	names := make([]string, f.NumCols())
	for i := range names {
		names[i] = f.record.ColumnName(i)
	}
	return names
}

func (f *Frame) HasColumn(name string) bool {
	return len(f.record.Schema().FieldIndices(name)) > 0
}

// Column returns the column called name. The array is owned by the frame.
func (f *Frame) Column(name string) (arrow.Array, error) {
	idx := f.record.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	return f.record.Column(idx[0]), nil
}

func (f *Frame) Kind(name string) (ColumnKind, error) {
	col, err := f.Column(name)
	if err != nil {
		return Unsupported, err
	}
	return KindOf(col.DataType()), nil
}

// Select returns a frame holding only the named columns, in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	fields := make([]arrow.Field, 0, len(names))
	cols := make([]arrow.Array, 0, len(names))
	for _, name := range names {
		idx := f.record.Schema().FieldIndices(name)
		if len(idx) == 0 {
			return nil, fmt.Errorf("select: %w: %s", ErrColumnNotFound, name)
		}
		fields = append(fields, f.record.Schema().Field(idx[0]))
		cols = append(cols, f.record.Column(idx[0]))
	}

	rec := array.NewRecord(arrow.NewSchema(fields, nil), cols, f.record.NumRows())
	defer rec.Release()
	return NewFrame(rec), nil
}

// Drop returns a frame without the named columns. Unknown names are ignored.
func (f *Frame) Drop(names ...string) *Frame {
	skip := make(map[string]bool, len(names))
	for _, name := range names {
		skip[name] = true
	}

	keep := make([]string, 0, f.NumCols())
	for _, name := range f.ColumnNames() {
		if !skip[name] {
			keep = append(keep, name)
		}
	}

	out, _ := f.Select(keep...)
	return out
}

// Slice returns rows [start, end).
func (f *Frame) Slice(start, end int) *Frame {
	rec := f.record.NewSlice(int64(start), int64(end))
	defer rec.Release()
	return NewFrame(rec)
}

// Take gathers the rows at indices, in that order, into a new frame.
func (f *Frame) Take(indices []int) (*Frame, error) {
	n := f.NumRows()
	for _, idx := range indices {
		if idx < 0 || idx >= n {
			return nil, fmt.Errorf("take: row index %d out of range [0, %d)", idx, n)
		}
	}

	cols := make([]arrow.Array, f.NumCols())
	defer func() {
		for _, col := range cols {
			if col != nil {
				col.Release()
			}
		}
	}()

	for c := range cols {
		taken, err := takeArray(f.record.Column(c), indices, f.mem)
		if err != nil {
			return nil, fmt.Errorf("take column %s: %w", f.record.ColumnName(c), err)
		}
		cols[c] = taken
	}

	rec := array.NewRecord(f.record.Schema(), cols, int64(len(indices)))
	defer rec.Release()
	return NewFrame(rec), nil
}

// takeArray copies contiguous runs of indices as slices and concatenates them.
func takeArray(arr arrow.Array, indices []int, mem memory.Allocator) (arrow.Array, error) {
	if len(indices) == 0 {
		return array.NewSlice(arr, 0, 0), nil
	}

	var parts []arrow.Array
	defer func() {
		for _, p := range parts {
			p.Release()
		}
	}()

	start := indices[0]
	prev := start
	for _, idx := range indices[1:] {
		if idx == prev+1 {
			prev = idx
			continue
		}
		parts = append(parts, array.NewSlice(arr, int64(start), int64(prev+1)))
		start, prev = idx, idx
	}
	parts = append(parts, array.NewSlice(arr, int64(start), int64(prev+1)))

	return array.Concatenate(parts, mem)
}

// NumericAt reads row i of a numeric column. ok is false for nulls and NaN.
func NumericAt(arr arrow.Array, i int) (v decimal.Decimal, ok bool) {
	if arr.IsNull(i) {
		return decimal.Zero, false
	}

	switch a := arr.(type) {
	case *array.Dictionary:
		return NumericAt(a.Dictionary(), a.GetValueIndex(i))
	case *array.Int8:
		return decimal.NewFromInt(int64(a.Value(i))), true
	case *array.Int16:
		return decimal.NewFromInt(int64(a.Value(i))), true
	case *array.Int32:
		return decimal.NewFromInt(int64(a.Value(i))), true
	case *array.Int64:
		return decimal.NewFromInt(a.Value(i)), true
	case *array.Uint8:
		return decimal.NewFromInt(int64(a.Value(i))), true
	case *array.Uint16:
		return decimal.NewFromInt(int64(a.Value(i))), true
	case *array.Uint32:
		return decimal.NewFromInt(int64(a.Value(i))), true
	case *array.Uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(a.Value(i)), 0), true
	case *array.Float32:
		f := float64(a.Value(i))
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat32(a.Value(i)), true
	case *array.Float64:
		f := a.Value(i)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(f), true
	default:
		return decimal.Zero, false
	}
}

// StringAt reads row i of a categorical column. ok is false for nulls.
func StringAt(arr arrow.Array, i int) (string, bool) {
	if arr.IsNull(i) {
		return "", false
	}

	switch a := arr.(type) {
	case *array.Dictionary:
		return StringAt(a.Dictionary(), a.GetValueIndex(i))
	case *array.String:
		return a.Value(i), true
	case *array.LargeString:
		return a.Value(i), true
	default:
		return "", false
	}
}
