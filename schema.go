package csvscan

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/apache/arrow/go/v18/arrow"
)

// InferSchema samples up to the configured number of non-blank rows through
// the same reader/tokenizer stage as scanning, infers a primitive type per
// field by trial parsing, and merges the per-row candidates into one schema.
// Column names are synthesized as positional placeholders $1, $2, and so on.
// A source yielding zero rows within the sample bound returns io.EOF, which
// is not an error.
func (s *Scanner) InferSchema() ([]arrow.Field, error) {
	if err := s.initReader(); err != nil {
		return nil, err
	}

	candidates := make([][]arrow.DataType, 0, s.opts.SampleRows)
	for len(candidates) < s.opts.SampleRows {
		_, fields, err := s.nextFields()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		// Skip empty rows.
		if len(fields) == 0 {
			continue
		}

		types := make([]arrow.DataType, len(fields))
		for i, field := range fields {
			types[i] = inferFieldType(field)
		}
		candidates = append(candidates, types)
	}

	return mergeSchemas(candidates)
}

// inferFieldType picks the narrowest primitive type a field parses as,
// trying integer, then float, then boolean, falling back to text.
func inferFieldType(field []byte) arrow.DataType {
	s := string(field)
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return arrow.PrimitiveTypes.Int64
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return arrow.PrimitiveTypes.Float64
	}
	if _, err := strconv.ParseBool(s); err == nil {
		return arrow.FixedWidthTypes.Boolean
	}
	return arrow.BinaryTypes.String
}

// mergeSchemas folds per-row candidate schemas position by position. Field
// counts may vary row to row; a position absent in some rows does not
// constrain the merge for the rows that do declare it. The merge is
// associative and order-independent.
func mergeSchemas(candidates [][]arrow.DataType) ([]arrow.Field, error) {
	if len(candidates) == 0 {
		return nil, io.EOF
	}

	width := 0
	for _, types := range candidates {
		if len(types) > width {
			width = len(types)
		}
	}

	merged := make([]arrow.Field, width)
	for pos := range width {
		var dt arrow.DataType
		for _, types := range candidates {
			if pos >= len(types) {
				continue
			}
			if dt == nil {
				dt = types[pos]
				continue
			}
			dt = mergeTypes(dt, types[pos])
		}
		merged[pos] = arrow.Field{
			Name:     fmt.Sprintf("$%d", pos+1),
			Type:     dt,
			Nullable: true,
		}
	}
	return merged, nil
}

// mergeTypes returns the narrowest common supertype of two inferred types:
// integer widens to float, anything else incompatible widens to text.
func mergeTypes(a, b arrow.DataType) arrow.DataType {
	if arrow.TypeEqual(a, b) {
		return a
	}
	if numeric(a) && numeric(b) {
		return arrow.PrimitiveTypes.Float64
	}
	return arrow.BinaryTypes.String
}

func numeric(dt arrow.DataType) bool {
	return dt.ID() == arrow.INT64 || dt.ID() == arrow.FLOAT64
}
