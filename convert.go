package csvscan

import (
	"fmt"
	"strconv"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
)

// convertOptions carries the per-scan conversion policy.
type convertOptions struct {
	// invalidFieldAsNull turns unparseable fields into nulls instead of
	// rejecting the row. Set when strict mode is off.
	invalidFieldAsNull bool
}

// converter turns a raw field byte span into one typed column value. A false
// return means the field could not be represented and nothing was appended;
// the materializer then rejects the whole row.
type converter interface {
	convert(col Column, field []byte, opts convertOptions) bool
}

// converterFor returns the converter for a target slot type.
func converterFor(dt arrow.DataType) (converter, error) {
	switch dt.ID() {
	case arrow.BOOL:
		return boolConverter{}, nil
	case arrow.INT8:
		return intConverter{bits: 8}, nil
	case arrow.INT16:
		return intConverter{bits: 16}, nil
	case arrow.INT32:
		return intConverter{bits: 32}, nil
	case arrow.INT64:
		return intConverter{bits: 64}, nil
	case arrow.FLOAT32:
		return floatConverter{bits: 32}, nil
	case arrow.FLOAT64:
		return floatConverter{bits: 64}, nil
	case arrow.STRING:
		return stringConverter{}, nil
	case arrow.DATE32:
		return dateConverter{}, nil
	case arrow.TIMESTAMP:
		return timestampConverter{unit: dt.(*arrow.TimestampType).Unit}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, dt)
	}
}

// failOrNull applies the invalid-field policy on a parse failure.
func failOrNull(col Column, opts convertOptions) bool {
	if opts.invalidFieldAsNull {
		col.AppendNull()
		return true
	}
	return false
}

type boolConverter struct{}

func (boolConverter) convert(col Column, field []byte, opts convertOptions) bool {
	v, err := strconv.ParseBool(string(field))
	if err != nil {
		return failOrNull(col, opts)
	}
	col.(*boolColumn).append(v)
	return true
}

type intConverter struct {
	bits int
}

func (c intConverter) convert(col Column, field []byte, opts convertOptions) bool {
	v, err := strconv.ParseInt(string(field), 10, c.bits)
	if err != nil {
		return failOrNull(col, opts)
	}
	col.(*intColumn).append(v)
	return true
}

type floatConverter struct {
	bits int
}

func (c floatConverter) convert(col Column, field []byte, opts convertOptions) bool {
	v, err := strconv.ParseFloat(string(field), c.bits)
	if err != nil {
		return failOrNull(col, opts)
	}
	col.(*floatColumn).append(v)
	return true
}

type stringConverter struct{}

func (stringConverter) convert(col Column, field []byte, _ convertOptions) bool {
	// string(field) copies, which the column requires: the field aliases the
	// read buffer.
	col.(*stringColumn).append(string(field))
	return true
}

type dateConverter struct{}

func (dateConverter) convert(col Column, field []byte, opts convertOptions) bool {
	t, err := time.Parse("2006-01-02", string(field))
	if err != nil {
		return failOrNull(col, opts)
	}
	col.(*dateColumn).append(arrow.Date32FromTime(t))
	return true
}

// timestampFormats are tried in order when parsing datetime fields.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05.000",
	"2006-01-02",
}

type timestampConverter struct {
	unit arrow.TimeUnit
}

func (c timestampConverter) convert(col Column, field []byte, opts convertOptions) bool {
	s := string(field)
	for _, format := range timestampFormats {
		t, err := time.Parse(format, s)
		if err != nil {
			continue
		}
		ts, err := arrow.TimestampFromTime(t, c.unit)
		if err != nil {
			return failOrNull(col, opts)
		}
		col.(*timestampColumn).append(ts)
		return true
	}
	return failOrNull(col, opts)
}
