package csvscan

import (
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"go.uber.org/zap"
)

// Scanner turns the byte streams of one or more file ranges into typed arrow
// record batches. It is single-threaded and pull-based: the caller drives it
// with repeated Next calls, each returning a batch, a retryable timeout, a
// fatal error, or io.EOF once every range is exhausted. All reader state is
// owned by the Scanner; only the ScanCounters may be shared with scanners
// working other ranges of the same job.
type Scanner struct {
	opts     Options
	schema   TargetSchema
	ranges   []ScanRange
	counters *ScanCounters
	mem      memory.Allocator

	numFields  int
	converters []converter // aligned with the non-nil source slots

	rangeIdx       int
	rdr            *reader
	srcClose       func() error
	pendingDiscard bool
	pendingHeader  int64

	reuse  *Batch
	row    tokenRow
	fields [][]byte

	// openSource is swapped out by tests to feed synthetic sources.
	openSource func(ScanRange) (Source, error)
}

// NewScanner validates the scan configuration and prepares a scanner.
// counters may be shared across scanners of one job; nil allocates a private
// set. Nothing is opened until the first Next or InferSchema call.
func NewScanner(schema TargetSchema, ranges []ScanRange, counters *ScanCounters, opts Options) (*Scanner, error) {
	opts = opts.withDefaults()
	if err := opts.Parse.validate(); err != nil {
		return nil, err
	}
	if counters == nil {
		counters = NewScanCounters()
	}

	s := &Scanner{
		opts:     opts,
		schema:   schema,
		ranges:   ranges,
		counters: counters,
		mem:      memory.DefaultAllocator,
		rangeIdx: -1,
		openSource: func(rng ScanRange) (Source, error) {
			return NewFileSource(rng.Path)
		},
	}

	if len(ranges) == 0 {
		return s, nil
	}

	first := ranges[0]
	for _, rng := range ranges {
		if len(rng.ColumnsFromPath) != len(first.ColumnsFromPath) {
			return nil, fmt.Errorf("%w: path column count of range mismatch", ErrInvalidRange)
		}
		if rng.NumFields != first.NumFields {
			return nil, fmt.Errorf("%w: source field count of range mismatch", ErrInvalidRange)
		}
		if rng.NumFields+len(rng.ColumnsFromPath) != len(schema) {
			return nil, fmt.Errorf("%w: slot count %d doesn't match %d source fields plus %d path columns",
				ErrInvalidRange, len(schema), rng.NumFields, len(rng.ColumnsFromPath))
		}
	}
	s.numFields = first.NumFields

	for i := s.numFields; i < len(schema); i++ {
		if schema[i] != nil && schema[i].Type.ID() != arrow.STRING {
			return nil, fmt.Errorf("%w: incorrect path column type '%s'", ErrInvalidRange, schema[i].Type)
		}
	}

	for i := range s.numFields {
		slot := schema[i]
		if slot == nil {
			// The i-th source field is ignored.
			continue
		}
		conv, err := converterFor(slot.Type)
		if err != nil {
			return nil, err
		}
		s.converters = append(s.converters, conv)
	}
	return s, nil
}

// initReader opens the next range's source when no reader is active, then
// works off any pending skip obligations: the partial first record of a
// split range and the configured header rows. Pending work survives
// timeouts, so a retried call resumes where it stopped.
func (s *Scanner) initReader() error {
	if s.rdr == nil {
		s.rangeIdx++
		if s.rangeIdx >= len(s.ranges) {
			return io.EOF
		}
		rng := s.ranges[s.rangeIdx]
		src, err := s.openSource(rng)
		if err != nil {
			return err
		}
		if rng.StartOffset > 0 {
			if err := src.Skip(rng.StartOffset); err != nil {
				s.closeSource(src)
				if errors.Is(err, ErrTimeout) {
					// Reopen this range on the next call.
					s.rangeIdx--
				}
				return err
			}
		}
		s.rdr = newReader(src, s.opts.Parse, s.opts.BufferSize, s.counters)
		if closer, ok := src.(interface{ Close() error }); ok {
			s.srcClose = closer.Close
		} else {
			s.srcClose = nil
		}
		if rng.SizeLimit > 0 && !compressed(rng.Path) {
			// Compressed ranges are never split, so no limit applies.
			s.rdr.setLimit(rng.SizeLimit)
		}
		s.pendingDiscard = rng.StartOffset > 0
		s.pendingHeader = s.opts.Parse.SkipHeader
	}

	if s.pendingDiscard {
		// The record beginning at the start offset is the tail of a record
		// owned by the previous range.
		if _, err := s.rdr.nextRecord(); err != nil {
			return err
		}
		s.pendingDiscard = false
	}
	for s.pendingHeader > 0 {
		if _, err := s.rdr.nextRecord(); err != nil {
			if errors.Is(err, io.EOF) {
				return newInsufficientRowsError(
					s.opts.Parse.SkipHeader, s.opts.Parse.SkipHeader-s.pendingHeader)
			}
			return err
		}
		s.pendingHeader--
	}
	return nil
}

// closeReader releases the active range's source.
func (s *Scanner) closeReader() {
	if s.srcClose != nil {
		_ = s.srcClose()
		s.srcClose = nil
	}
	s.rdr = nil
}

func (s *Scanner) closeSource(src Source) {
	if closer, ok := src.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}

// Close releases the scanner's current source, if any. Cancellation is
// expressed by simply not calling Next again.
func (s *Scanner) Close() error {
	s.closeReader()
	return nil
}

// Next produces the next record batch. It returns io.EOF when all ranges are
// exhausted, an error wrapping ErrTimeout when the source stalls before any
// row was materialized (retry the call later; progress is preserved), and a
// partial batch when the stall happens after rows were already committed.
// Fatal errors abort the scan. The caller owns the returned record and must
// Release it.
func (s *Scanner) Next() (arrow.Record, error) {
	for {
		if err := s.initReader(); err != nil {
			return nil, err
		}

		batch, err := s.takeBatch()
		if err != nil {
			return nil, err
		}

		ferr := s.fillBatch(batch)
		if ferr != nil {
			switch {
			case errors.Is(ferr, io.EOF):
				// Range exhausted with nothing materialized this cycle.
				s.closeReader()
			case errors.Is(ferr, ErrTimeout):
				if batch.rows == 0 {
					// Keep the empty batch and let the caller retry the
					// identical call: buffer contents are preserved.
					s.reuse = batch
					return nil, ferr
				}
				// Trade a smaller batch for forward progress; the retry
				// happens implicitly on the next call.
			default:
				return nil, ferr
			}
		}

		if batch.rows > 0 {
			return s.finishBatch(batch), nil
		}
		s.reuse = batch
	}
}

// takeBatch reuses the stashed empty batch or builds a fresh one.
func (s *Scanner) takeBatch() (*Batch, error) {
	if b := s.reuse; b != nil {
		s.reuse = nil
		b.reset()
		return b, nil
	}
	return newBatch(s.schema, s.numFields)
}

// finishBatch freezes the batch, appending this range's path columns.
func (s *Scanner) finishBatch(batch *Batch) arrow.Record {
	rng := s.ranges[s.rangeIdx]
	return batch.finish(s.mem, s.schema[s.numFields:], rng.ColumnsFromPath)
}

// nextFields pulls one row through whichever tokenizer the dialect selects
// and normalizes it to raw record bytes plus per-field byte spans. A row
// with zero fields is a blank line. All returned slices are only valid until
// the next call.
func (s *Scanner) nextFields() (rec []byte, fields [][]byte, err error) {
	if s.opts.Parse.tokenized() {
		if err := s.rdr.nextRow(&s.row); err != nil {
			return nil, nil, err
		}
		s.fields = s.fields[:0]
		for _, span := range s.row.fields {
			s.fields = append(s.fields, s.rdr.fieldBytes(span))
		}
		return s.rdr.rowBytes(&s.row), s.fields, nil
	}

	record, err := s.rdr.nextRecord()
	if err != nil {
		return nil, nil, err
	}
	if len(record) == 0 {
		return record, nil, nil
	}
	s.fields = splitFields(s.fields[:0], record, s.opts.Parse)
	return record, s.fields, nil
}

// fillBatch runs one fill cycle: rows are pulled, reconciled, validated, and
// converted until the batch is full or the range ends. It returns io.EOF
// only when the range ended with zero committed rows.
func (s *Scanner) fillBatch(batch *Batch) error {
	convOpts := convertOptions{invalidFieldAsNull: !s.opts.StrictMode}

	for batch.rows < s.opts.BatchRows {
		rec, fields, err := s.nextFields()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if len(fields) == 0 {
			// Always skip blank rows, without counting them as filtered.
			continue
		}

		if rejected, err := s.reconcileColumns(rec, len(fields)); err != nil {
			return err
		} else if rejected {
			continue
		}

		if !utf8.Valid(rec) {
			s.rejectRow(rec, "Invalid UTF-8 row")
			continue
		}

		fillStart := time.Now()
		hasError := false
		for j, k := 0, 0; j < s.numFields; j++ {
			slot := s.schema[j]
			if slot == nil {
				continue
			}
			col := batch.cols[k]
			if j >= len(fields) {
				// The target has more columns than the file; append null.
				col.AppendNull()
				k++
				continue
			}
			if !s.converters[k].convert(col, fields[j], convOpts) {
				batch.truncate()
				s.rejectRow(rec, valueError(j, fields[j], slot))
				hasError = true
				break
			}
			k++
		}
		s.counters.addFillTime(time.Since(fillStart))
		if !hasError {
			batch.rows++
		}
	}

	if batch.rows == 0 {
		return io.EOF
	}
	return nil
}

// reconcileColumns applies the purpose-keyed column-count policy. rejected
// means the row was dropped and counted; a non-nil error aborts the scan
// (query-read shortfall).
func (s *Scanner) reconcileColumns(rec []byte, numFields int) (rejected bool, err error) {
	if s.opts.FlexibleMapping {
		return false, nil
	}
	switch s.opts.Purpose {
	case PurposeLoad:
		// Strict ingestion filters rows whose field count is inconsistent
		// with the column list.
		if numFields != s.numFields {
			s.rejectRow(rec, columnCountError(s.numFields, numFields, s.opts.Parse))
			return true, nil
		}
	case PurposeInsertQuery:
		// More fields than the schema is normal; extras are ignored.
		if numFields < s.numFields {
			s.rejectRow(rec, columnCountError(s.numFields, numFields, s.opts.Parse))
			return true, nil
		}
	case PurposeReadQuery:
		// A query result set cannot silently drop rows.
		if numFields < s.numFields {
			return false, &DataQualityError{
				Expected: s.numFields,
				Actual:   numFields,
				Row:      string(rec),
				File:     s.rdr.filename(),
				Options:  s.opts.Parse,
			}
		}
	}
	return false, nil
}

// rejectRow counts a dropped row and reports it while below the cap. With
// LogRejected set, every rejection is additionally logged, past the cap.
func (s *Scanner) rejectRow(rec []byte, reason string) {
	if s.counters.filterRow() < maxReportedErrors {
		s.opts.Sink.RecordRejected(rec, s.rdr.filename(), reason)
	}
	if s.opts.LogRejected {
		s.opts.Logger.Warn("rejected record",
			zap.ByteString("row", rec),
			zap.String("file", s.rdr.filename()),
			zap.String("reason", reason),
		)
	}
}
