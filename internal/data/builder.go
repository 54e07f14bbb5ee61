package data

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Builder assembles a Frame column by column. A nil valid slice marks every
// value present; otherwise valid[i] == false makes row i missing.
type Builder struct {
	mem    memory.Allocator
	fields []arrow.Field
	cols   []arrow.Array
	rows   int
	err    error
}

func NewBuilder() *Builder {
	return &Builder{mem: memory.DefaultAllocator, rows: -1}
}

func (b *Builder) Int64(name string, values []int64, valid []bool) *Builder {
	ib := array.NewInt64Builder(b.mem)
	defer ib.Release()
	ib.AppendValues(values, valid)
	return b.add(name, arrow.PrimitiveTypes.Int64, ib.NewArray())
}

func (b *Builder) Float64(name string, values []float64, valid []bool) *Builder {
	fb := array.NewFloat64Builder(b.mem)
	defer fb.Release()
	fb.AppendValues(values, valid)
	return b.add(name, arrow.PrimitiveTypes.Float64, fb.NewArray())
}

func (b *Builder) String(name string, values []string, valid []bool) *Builder {
	sb := array.NewStringBuilder(b.mem)
	defer sb.Release()
	sb.AppendValues(values, valid)
	return b.add(name, arrow.BinaryTypes.String, sb.NewArray())
}

// Dictionary adds a dictionary-encoded string column with int32 indices.
func (b *Builder) Dictionary(name string, values []string, valid []bool) *Builder {
	dt := &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int32, ValueType: arrow.BinaryTypes.String}
	db := array.NewDictionaryBuilder(b.mem, dt).(*array.BinaryDictionaryBuilder)
	defer db.Release()
	for i, v := range values {
		if valid != nil && !valid[i] {
			db.AppendNull()
			continue
		}
		if err := db.AppendString(v); err != nil && b.err == nil {
			b.err = fmt.Errorf("column %s: %w", name, err)
		}
	}
	return b.add(name, dt, db.NewArray())
}

func (b *Builder) Bool(name string, values []bool, valid []bool) *Builder {
	bb := array.NewBooleanBuilder(b.mem)
	defer bb.Release()
	bb.AppendValues(values, valid)
	return b.add(name, arrow.FixedWidthTypes.Boolean, bb.NewArray())
}

func (b *Builder) Timestamp(name string, values []time.Time, valid []bool) *Builder {
	dt := arrow.FixedWidthTypes.Timestamp_s.(*arrow.TimestampType)
	tb := array.NewTimestampBuilder(b.mem, dt)
	defer tb.Release()
	ts := make([]arrow.Timestamp, len(values))
	for i, v := range values {
		ts[i] = arrow.Timestamp(v.Unix())
	}
	tb.AppendValues(ts, valid)
	return b.add(name, dt, tb.NewArray())
}

func (b *Builder) add(name string, dt arrow.DataType, arr arrow.Array) *Builder {
	if b.err != nil {
		arr.Release()
		return b
	}
	if b.rows >= 0 && arr.Len() != b.rows {
		b.err = fmt.Errorf("column %s has %d rows, expected %d", name, arr.Len(), b.rows)
		arr.Release()
		return b
	}
	b.rows = arr.Len()
	b.fields = append(b.fields, arrow.Field{Name: name, Type: dt, Nullable: true})
	b.cols = append(b.cols, arr)
	return b
}

// Build returns the frame and releases the builder's column references.
func (b *Builder) Build() (*Frame, error) {
	defer func() {
		for _, c := range b.cols {
			c.Release()
		}
		b.cols = nil
	}()

	if b.err != nil {
		return nil, b.err
	}
	rows := b.rows
	if rows < 0 {
		rows = 0
	}

	rec := array.NewRecord(arrow.NewSchema(b.fields, nil), b.cols, int64(rows))
	defer rec.Release()
	return NewFrame(rec), nil
}
