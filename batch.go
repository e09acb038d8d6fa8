package csvscan

import (
	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
)

// Batch is the columnar output container one fill cycle materializes rows
// into. It holds one column per non-nil source slot; path-derived columns are
// appended when the batch is finished. rows counts fully committed rows:
// columns may briefly run ahead of it mid-row, and truncate rewinds them.
type Batch struct {
	fields []arrow.Field // full output schema, path-derived columns included
	cols   []Column
	rows   int
}

// newBatch builds an empty batch for the target schema. numFields bounds the
// source field positions; the remaining slots are path-derived.
func newBatch(schema TargetSchema, numFields int) (*Batch, error) {
	b := &Batch{}
	for _, slot := range schema[:numFields] {
		if slot == nil {
			// The source field at this position is ignored.
			continue
		}
		col, err := newColumn(slot.Type)
		if err != nil {
			return nil, err
		}
		b.cols = append(b.cols, col)
		b.fields = append(b.fields, arrow.Field{Name: slot.Name, Type: slot.Type, Nullable: true})
	}
	for _, slot := range schema[numFields:] {
		if slot == nil {
			continue
		}
		b.fields = append(b.fields, arrow.Field{Name: slot.Name, Type: slot.Type, Nullable: true})
	}
	return b, nil
}

// NumRows returns the number of committed rows.
func (b *Batch) NumRows() int {
	return b.rows
}

// truncate rewinds every column to the last committed row, discarding the
// partial writes of a row that failed conversion midway.
func (b *Batch) truncate() {
	for _, col := range b.cols {
		col.truncate(b.rows)
	}
}

// reset empties the batch for reuse.
func (b *Batch) reset() {
	b.rows = 0
	b.truncate()
}

// finish freezes the committed rows into an arrow record, appending one
// constant string column per non-nil path-derived slot.
func (b *Batch) finish(mem memory.Allocator, pathSlots TargetSchema, pathValues []string) arrow.Record {
	arrays := make([]arrow.Array, 0, len(b.fields))
	for _, col := range b.cols {
		arrays = append(arrays, col.newArray(mem, b.rows))
	}
	for i, slot := range pathSlots {
		if slot == nil {
			continue
		}
		sb := array.NewStringBuilder(mem)
		for range b.rows {
			sb.Append(pathValues[i])
		}
		arrays = append(arrays, sb.NewArray())
		sb.Release()
	}

	schema := arrow.NewSchema(b.fields, nil)
	rec := array.NewRecord(schema, arrays, int64(b.rows))
	for _, a := range arrays {
		a.Release()
	}
	return rec
}
