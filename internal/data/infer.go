package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// InferSchema reads the header and up to sampleRows records and picks an
// Arrow type per column from the non-missing cells: int64 when every value
// parses as an integer, float64 when every value parses as a number, boolean
// for true/false columns and string otherwise. A column with no values at all
// is float64, like an all-missing numeric column. Columns named in
// opts.Kinds skip inference: numeric ones read as float64, categorical ones
// as string.
func InferSchema(r io.Reader, opts CSVOptions, sampleRows int) (*arrow.Schema, error) {
	reader := csv.NewReader(r)
	reader.Comma = opts.comma()
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFrame
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read headers: %w", err)
	}
	header = append([]string(nil), header...)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	missing := make(map[string]bool)
	for _, m := range opts.missing() {
		missing[m] = true
	}

	guesses := make([]*typeGuess, len(header))
	for i := range guesses {
		guesses[i] = newTypeGuess()
	}

	rows := 0
	for sampleRows <= 0 || rows < sampleRows {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading record %d: %w", rows+1, err)
		}
		for j := 0; j < len(record) && j < len(guesses); j++ {
			if missing[record[j]] {
				continue
			}
			guesses[j].observe(record[j])
		}
		rows++
	}
	if rows == 0 {
		return nil, ErrEmptyFrame
	}

	fields := make([]arrow.Field, len(header))
	for i, name := range header {
		dt := guesses[i].dataType()
		switch opts.Kinds[name] {
		case Numeric:
			dt = arrow.PrimitiveTypes.Float64
		case Categorical:
			dt = arrow.BinaryTypes.String
		}
		fields[i] = arrow.Field{Name: name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

type typeGuess struct {
	seen    bool
	isInt   bool
	isFloat bool
	isBool  bool
}

func newTypeGuess() *typeGuess {
	return &typeGuess{isInt: true, isFloat: true, isBool: true}
}

func (g *typeGuess) observe(v string) {
	g.seen = true
	if g.isInt {
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			g.isInt = false
		}
	}
	if g.isFloat {
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			g.isFloat = false
		}
	}
	if g.isBool {
		switch strings.ToLower(v) {
		case "true", "false":
		default:
			g.isBool = false
		}
	}
}

func (g *typeGuess) dataType() arrow.DataType {
	switch {
	case !g.seen:
		return arrow.PrimitiveTypes.Float64
	case g.isInt:
		return arrow.PrimitiveTypes.Int64
	case g.isFloat:
		return arrow.PrimitiveTypes.Float64
	case g.isBool:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}
