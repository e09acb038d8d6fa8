package csvscan

import (
	"errors"
	"fmt"

	"github.com/apache/arrow/go/v18/arrow"
	"go.uber.org/zap"
)

// Processing constants.
const (
	// DefaultBatchRows is the default number of rows per output batch.
	DefaultBatchRows = 4096
	// DefaultBufferSize is the default read buffer capacity in bytes. A
	// single record must fit in the buffer, so this is also the line limit.
	DefaultBufferSize = 1024 * 1024
	// DefaultSampleRows is the default number of rows sampled for schema
	// inference.
	DefaultSampleRows = 50
	// maxReportedErrors caps how many rejected rows are reported to the
	// error sink per job. Rows past the cap are still counted.
	maxReportedErrors = 50
)

// ParseOptions describes the delimited-text dialect of one scan. It is
// immutable once the scanner is constructed.
type ParseOptions struct {
	// ColumnDelimiter separates fields within a record. May be multi-byte
	// and is always matched as an exact byte sequence.
	ColumnDelimiter []byte
	// RowDelimiter separates records. May be multi-byte.
	RowDelimiter []byte
	// SkipHeader is the number of leading records to discard per range.
	SkipHeader int64
	// TrimSpace removes surrounding whitespace from unquoted fields.
	TrimSpace bool
	// Enclose is the quote byte, 0 when quoting is disabled.
	Enclose byte
	// Escape is the escape byte, 0 when escaping is disabled.
	Escape byte
}

// validate checks the structural invariants of the dialect.
func (o ParseOptions) validate() error {
	if len(o.ColumnDelimiter) == 0 {
		return errors.New("csvscan: column delimiter must not be empty")
	}
	if len(o.RowDelimiter) == 0 {
		return errors.New("csvscan: row delimiter must not be empty")
	}
	if o.SkipHeader < 0 {
		return errors.New("csvscan: skip_header must not be negative")
	}
	return nil
}

// tokenized reports whether the quote/escape-aware tokenizer is in effect.
// With both bytes disabled the plain delimiter split is used instead.
func (o ParseOptions) tokenized() bool {
	return o.Enclose != 0 || o.Escape != 0
}

// ScanPurpose selects the column-count reconciliation policy.
type ScanPurpose int

const (
	// PurposeLoad is strict ingestion: a row's field count must equal the
	// source field count exactly, otherwise the row is rejected.
	PurposeLoad ScanPurpose = iota
	// PurposeInsertQuery is insert-from-files: rows with fewer fields than
	// the schema are rejected, extra fields are ignored.
	PurposeInsertQuery
	// PurposeReadQuery is query-from-files: rows with fewer fields than the
	// schema abort the scan, extra fields are ignored.
	PurposeReadQuery
)

// String returns the purpose name.
func (p ScanPurpose) String() string {
	switch p {
	case PurposeLoad:
		return "load"
	case PurposeInsertQuery:
		return "insert_query"
	case PurposeReadQuery:
		return "read_query"
	default:
		return fmt.Sprintf("purpose(%d)", int(p))
	}
}

// ScanRange describes one file range of a scan. Ranges of the same job must
// agree on NumFields and the number of path-derived columns.
type ScanRange struct {
	// Path is the source file. Compression is detected from the extension.
	Path string
	// StartOffset is the byte offset the range begins at. A non-zero offset
	// means the first record found there is the tail of the previous range's
	// last record and is discarded.
	StartOffset int64
	// SizeLimit bounds how many bytes of records this range parses, 0 for
	// unbounded. Ignored for compressed files.
	SizeLimit int64
	// ColumnsFromPath are values for path-derived columns, in target schema
	// order after the source fields.
	ColumnsFromPath []string
	// NumFields is the number of fields each source record carries.
	NumFields int
}

// Slot describes one target column. A nil *Slot in a TargetSchema means the
// source field at that position is ignored.
type Slot struct {
	Name string
	Type arrow.DataType
}

// TargetSchema is the ordered slot list being filled: one entry per source
// field position, then one per path-derived column. Path-derived slots must
// be string-typed.
type TargetSchema []*Slot

// ErrorSink receives bounded per-row rejection reports.
type ErrorSink interface {
	// RecordRejected is called with the raw row, the source filename, and a
	// human-readable reason, at most maxReportedErrors times per job.
	RecordRejected(row []byte, filename, reason string)
}

// Options configures a Scanner beyond the parse dialect.
type Options struct {
	// Parse is the delimited-text dialect.
	Parse ParseOptions
	// Purpose selects the column-count reconciliation policy.
	Purpose ScanPurpose
	// StrictMode rejects rows on conversion failure instead of writing null.
	StrictMode bool
	// FlexibleMapping disables column-count reconciliation entirely.
	FlexibleMapping bool
	// BatchRows is the target row capacity of each output batch.
	BatchRows int
	// BufferSize is the read buffer capacity, bounding record length.
	BufferSize int
	// SampleRows bounds how many rows InferSchema examines.
	SampleRows int
	// LogRejected additionally logs every rejected row, past the reporting
	// cap, through Logger.
	LogRejected bool
	// Logger receives rejection logging. Defaults to a nop logger.
	Logger *zap.Logger
	// Sink receives bounded rejection reports. Defaults to a logger-backed
	// sink.
	Sink ErrorSink
}

// withDefaults fills unset options with their defaults.
func (o Options) withDefaults() Options {
	if o.BatchRows <= 0 {
		o.BatchRows = DefaultBatchRows
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.SampleRows <= 0 {
		o.SampleRows = DefaultSampleRows
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Sink == nil {
		o.Sink = &logSink{logger: o.Logger}
	}
	return o
}

// logSink reports rejected rows through a zap logger.
type logSink struct {
	logger *zap.Logger
}

// RecordRejected implements ErrorSink.
func (s *logSink) RecordRejected(row []byte, filename, reason string) {
	s.logger.Warn("rejected record",
		zap.ByteString("row", row),
		zap.String("file", filename),
		zap.String("reason", reason),
	)
}
