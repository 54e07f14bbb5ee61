package data

import "github.com/apache/arrow-go/v18/arrow"

// ColumnKind is the semantic kind of a feature column, derived from its
// storage type on every call. No schema is persisted.
type ColumnKind int

const (
	Unsupported ColumnKind = iota
	Numeric
	Categorical
)

func (k ColumnKind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	default:
		return "unsupported"
	}
}

// KindOf classifies an Arrow data type. Integer and floating types are
// numeric, string types are categorical. A column that is entirely null
// carries the Null type and is treated as numeric, the way an all-missing
// column reads as floating point. Dictionary columns take the kind of their
// values.
func KindOf(dt arrow.DataType) ColumnKind {
	if dict, ok := dt.(*arrow.DictionaryType); ok {
		return KindOf(dict.ValueType)
	}
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT32, arrow.FLOAT64, arrow.NULL:
		return Numeric
	case arrow.STRING, arrow.LARGE_STRING:
		return Categorical
	default:
		return Unsupported
	}
}

// Partition splits column names by kind. Each list keeps the frame's column
// order and the three lists together cover every column exactly once.
type Partition struct {
	Numeric     []string
	Categorical []string
	Unsupported []string
}

func PartitionColumns(f *Frame) Partition {
	var p Partition
	schema := f.Record().Schema()
	for i := 0; i < f.NumCols(); i++ {
		field := schema.Field(i)
		switch KindOf(field.Type) {
		case Numeric:
			p.Numeric = append(p.Numeric, field.Name)
		case Categorical:
			p.Categorical = append(p.Categorical, field.Name)
		default:
			p.Unsupported = append(p.Unsupported, field.Name)
		}
	}
	return p
}
