package data

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MissingMarkers are the cell values read as missing.
var MissingMarkers = []string{"", "NA", "NaN"}

type CSVOptions struct {
	Comma     rune
	Missing   []string
	Normalize bool

	// Kinds pins the kind of named columns instead of inferring it, so a
	// scoring file is typed like the data a pipeline was fitted on.
	Kinds map[string]ColumnKind
}

func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Comma:     ',',
		Missing:   MissingMarkers,
		Normalize: true,
	}
}

func (o CSVOptions) comma() rune {
	if o.Comma == 0 {
		return ','
	}
	return o.Comma
}

func (o CSVOptions) missing() []string {
	if o.Missing == nil {
		return MissingMarkers
	}
	return o.Missing
}

func (o CSVOptions) readerOptions(chunk int) []csv.Option {
	return []csv.Option{
		csv.WithHeader(true),
		csv.WithComma(o.comma()),
		csv.WithChunk(chunk),
		csv.WithNullReader(true, o.missing()...),
		csv.WithAllocator(memory.DefaultAllocator),
	}
}

// ReadCSV loads a whole CSV document into a frame. Column types come from
// InferSchema over every row; Arrow's reader then parses the typed columns.
func ReadCSV(r io.Reader, opts CSVOptions) (*Frame, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	schema, err := InferSchema(bytes.NewReader(buf), opts, 0)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(buf), schema, opts.readerOptions(-1)...)
	defer reader.Release()

	if !reader.Next() {
		if err := reader.Err(); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}
		return nil, ErrEmptyFrame
	}
	if err := reader.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}

	return finishRecord(reader.Record(), opts)
}

func finishRecord(rec arrow.Record, opts CSVOptions) (*Frame, error) {
	if !opts.Normalize {
		return NewFrame(rec), nil
	}
	normalized, err := NormalizeStrings(rec)
	if err != nil {
		return nil, err
	}
	defer normalized.Release()
	return NewFrame(normalized), nil
}

func ReadCSVFile(filename string, opts CSVOptions) (*Frame, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	frame, err := ReadCSV(file, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return frame, nil
}

// NormalizeStrings rewrites string columns in NFC form with control runes
// removed and surrounding space trimmed, so visually equal categories share
// one one-hot indicator. Other columns are passed through.
func NormalizeStrings(rec arrow.Record) (arrow.Record, error) {
	cleaner := transform.Chain(norm.NFC, runes.Remove(runes.In(unicode.Cc)))
	cols := make([]arrow.Array, rec.NumCols())
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()

	for i := range cols {
		col := rec.Column(i)
		str, ok := col.(*array.String)
		if !ok {
			col.Retain()
			cols[i] = col
			continue
		}

		sb := array.NewStringBuilder(memory.DefaultAllocator)
		sb.Reserve(str.Len())
		for row := 0; row < str.Len(); row++ {
			if str.IsNull(row) {
				sb.AppendNull()
				continue
			}
			clean, _, err := transform.String(cleaner, str.Value(row))
			if err != nil {
				sb.Release()
				return nil, fmt.Errorf("normalize column %s row %d: %w", rec.ColumnName(i), row, err)
			}
			sb.Append(strings.TrimSpace(clean))
		}
		cols[i] = sb.NewArray()
		sb.Release()
	}

	return array.NewRecord(rec.Schema(), cols, rec.NumRows()), nil
}
