package csvscan

import (
	"fmt"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
)

// Column is a mutable, truncatable value vector being filled by the row
// materializer. Truncation is what makes per-row rollback possible: a
// conversion failure mid-row rewinds every column to the last complete row.
// Finished columns become arrow arrays.
type Column interface {
	// Len returns the number of appended values, committed or not.
	Len() int
	// AppendNull appends a null (the default value for missing fields).
	AppendNull()
	// truncate discards values past n.
	truncate(n int)
	// newArray builds the arrow array for the first n values.
	newArray(mem memory.Allocator, n int) arrow.Array
}

// newColumn creates the column implementation for an arrow type.
func newColumn(dt arrow.DataType) (Column, error) {
	switch dt.ID() {
	case arrow.BOOL:
		return &boolColumn{}, nil
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64:
		return &intColumn{dt: dt}, nil
	case arrow.FLOAT32, arrow.FLOAT64:
		return &floatColumn{dt: dt}, nil
	case arrow.STRING:
		return &stringColumn{}, nil
	case arrow.DATE32:
		return &dateColumn{}, nil
	case arrow.TIMESTAMP:
		return &timestampColumn{dt: dt.(*arrow.TimestampType)}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, dt)
	}
}

// boolColumn stores boolean values.
type boolColumn struct {
	vals  []bool
	valid []bool
}

func (c *boolColumn) Len() int { return len(c.vals) }

func (c *boolColumn) append(v bool) {
	c.vals = append(c.vals, v)
	c.valid = append(c.valid, true)
}

func (c *boolColumn) AppendNull() {
	c.vals = append(c.vals, false)
	c.valid = append(c.valid, false)
}

func (c *boolColumn) truncate(n int) {
	c.vals = c.vals[:n]
	c.valid = c.valid[:n]
}

func (c *boolColumn) newArray(mem memory.Allocator, n int) arrow.Array {
	b := array.NewBooleanBuilder(mem)
	defer b.Release()
	b.AppendValues(c.vals[:n], c.valid[:n])
	return b.NewArray()
}

// intColumn stores signed integers of any width; values are held as int64
// and narrowed when the arrow array is built.
type intColumn struct {
	dt    arrow.DataType
	vals  []int64
	valid []bool
}

func (c *intColumn) Len() int { return len(c.vals) }

func (c *intColumn) append(v int64) {
	c.vals = append(c.vals, v)
	c.valid = append(c.valid, true)
}

func (c *intColumn) AppendNull() {
	c.vals = append(c.vals, 0)
	c.valid = append(c.valid, false)
}

func (c *intColumn) truncate(n int) {
	c.vals = c.vals[:n]
	c.valid = c.valid[:n]
}

func (c *intColumn) newArray(mem memory.Allocator, n int) arrow.Array {
	switch c.dt.ID() {
	case arrow.INT8:
		b := array.NewInt8Builder(mem)
		defer b.Release()
		for i := range n {
			if c.valid[i] {
				b.Append(int8(c.vals[i]))
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray()
	case arrow.INT16:
		b := array.NewInt16Builder(mem)
		defer b.Release()
		for i := range n {
			if c.valid[i] {
				b.Append(int16(c.vals[i]))
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray()
	case arrow.INT32:
		b := array.NewInt32Builder(mem)
		defer b.Release()
		for i := range n {
			if c.valid[i] {
				b.Append(int32(c.vals[i]))
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray()
	default:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		b.AppendValues(c.vals[:n], c.valid[:n])
		return b.NewArray()
	}
}

// floatColumn stores floating-point values, held as float64.
type floatColumn struct {
	dt    arrow.DataType
	vals  []float64
	valid []bool
}

func (c *floatColumn) Len() int { return len(c.vals) }

func (c *floatColumn) append(v float64) {
	c.vals = append(c.vals, v)
	c.valid = append(c.valid, true)
}

func (c *floatColumn) AppendNull() {
	c.vals = append(c.vals, 0)
	c.valid = append(c.valid, false)
}

func (c *floatColumn) truncate(n int) {
	c.vals = c.vals[:n]
	c.valid = c.valid[:n]
}

func (c *floatColumn) newArray(mem memory.Allocator, n int) arrow.Array {
	if c.dt.ID() == arrow.FLOAT32 {
		b := array.NewFloat32Builder(mem)
		defer b.Release()
		for i := range n {
			if c.valid[i] {
				b.Append(float32(c.vals[i]))
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray()
	}
	b := array.NewFloat64Builder(mem)
	defer b.Release()
	b.AppendValues(c.vals[:n], c.valid[:n])
	return b.NewArray()
}

// stringColumn stores text values. Field bytes are copied on append because
// they alias the read buffer, which the next fill reuses.
type stringColumn struct {
	vals  []string
	valid []bool
}

func (c *stringColumn) Len() int { return len(c.vals) }

func (c *stringColumn) append(v string) {
	c.vals = append(c.vals, v)
	c.valid = append(c.valid, true)
}

func (c *stringColumn) AppendNull() {
	c.vals = append(c.vals, "")
	c.valid = append(c.valid, false)
}

func (c *stringColumn) truncate(n int) {
	c.vals = c.vals[:n]
	c.valid = c.valid[:n]
}

func (c *stringColumn) newArray(mem memory.Allocator, n int) arrow.Array {
	b := array.NewStringBuilder(mem)
	defer b.Release()
	b.AppendValues(c.vals[:n], c.valid[:n])
	return b.NewArray()
}

// dateColumn stores calendar dates.
type dateColumn struct {
	vals  []arrow.Date32
	valid []bool
}

func (c *dateColumn) Len() int { return len(c.vals) }

func (c *dateColumn) append(v arrow.Date32) {
	c.vals = append(c.vals, v)
	c.valid = append(c.valid, true)
}

func (c *dateColumn) AppendNull() {
	c.vals = append(c.vals, 0)
	c.valid = append(c.valid, false)
}

func (c *dateColumn) truncate(n int) {
	c.vals = c.vals[:n]
	c.valid = c.valid[:n]
}

func (c *dateColumn) newArray(mem memory.Allocator, n int) arrow.Array {
	b := array.NewDate32Builder(mem)
	defer b.Release()
	b.AppendValues(c.vals[:n], c.valid[:n])
	return b.NewArray()
}

// timestampColumn stores instants at the unit of its arrow type.
type timestampColumn struct {
	dt    *arrow.TimestampType
	vals  []arrow.Timestamp
	valid []bool
}

func (c *timestampColumn) Len() int { return len(c.vals) }

func (c *timestampColumn) append(v arrow.Timestamp) {
	c.vals = append(c.vals, v)
	c.valid = append(c.valid, true)
}

func (c *timestampColumn) AppendNull() {
	c.vals = append(c.vals, 0)
	c.valid = append(c.valid, false)
}

func (c *timestampColumn) truncate(n int) {
	c.vals = c.vals[:n]
	c.valid = c.valid[:n]
}

func (c *timestampColumn) newArray(mem memory.Allocator, n int) arrow.Array {
	b := array.NewTimestampBuilder(mem, c.dt)
	defer b.Release()
	b.AppendValues(c.vals[:n], c.valid[:n])
	return b.NewArray()
}
