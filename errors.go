package csvscan

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Standard error values returned by the scanner. Callers are expected to
// distinguish them with errors.Is; everything else is fatal for the scan.
var (
	// ErrTimeout indicates the byte source timed out mid-read. The call that
	// observed it can be retried verbatim: buffer state is preserved.
	ErrTimeout = errors.New("csvscan: byte source timed out")

	// ErrLineLimit indicates a single record is longer than the read buffer,
	// even after reclaiming consumed bytes. Not retryable.
	ErrLineLimit = errors.New("csvscan: line length exceeds buffer limit")

	// ErrUnclosedQuote indicates the source ended inside a quoted field.
	ErrUnclosedQuote = errors.New("csvscan: unclosed quoted field at end of input")

	// ErrInvalidRange indicates scan range descriptors that disagree with
	// each other or with the target schema.
	ErrInvalidRange = errors.New("csvscan: invalid scan range configuration")

	// ErrUnsupportedType indicates a target slot type with no converter.
	ErrUnsupportedType = errors.New("csvscan: unsupported column type")
)

// DataQualityError is returned when a query-read scan encounters a row with
// fewer fields than the target schema. Unlike load scans, a query result set
// cannot silently drop rows, so the whole scan is aborted.
type DataQualityError struct {
	Expected int    // field count the schema requires
	Actual   int    // field count found in the row
	Row      string // offending row content
	File     string // source filename
	Options  ParseOptions
}

// Error returns a message with enough context to diagnose the row without
// re-reading the source file.
func (e *DataQualityError) Error() string {
	return fmt.Sprintf(
		"csvscan: schema column count: %d doesn't match source value column count: %d. "+
			"Column separator: %s, Row delimiter: %s, Row: '%s', File: %s. "+
			"Consider enabling flexible column mapping",
		e.Expected, e.Actual,
		printableBytes(e.Options.ColumnDelimiter), printableBytes(e.Options.RowDelimiter),
		e.Row, e.File)
}

// newLineLimitError wraps ErrLineLimit with the offending buffer capacity.
func newLineLimitError(capacity int) error {
	return fmt.Errorf("%w: %d bytes", ErrLineLimit, capacity)
}

// newInsufficientRowsError reports a skip-header count larger than the file.
// It wraps io.EOF so range advancement still treats it as end of stream.
func newInsufficientRowsError(skipHeader int64, got int64) error {
	return fmt.Errorf("csvscan: 'skip_header' is set to %d, but there are only %d rows in the file: %w",
		skipHeader, got, io.EOF)
}

// columnCountError builds the rejection message for a load or insert scan
// whose row field count disagrees with the target schema.
func columnCountError(expected, actual int, opts ParseOptions) string {
	return fmt.Sprintf(
		"Target column count: %d doesn't match source value column count: %d. "+
			"Column separator: %s, Row delimiter: %s",
		expected, actual,
		printableBytes(opts.ColumnDelimiter), printableBytes(opts.RowDelimiter))
}

// valueError builds the rejection message for a field that failed conversion.
func valueError(pos int, field []byte, slot *Slot) string {
	return fmt.Sprintf(
		"The field (name = %s, pos = %d) is out of range. Type: %s, Value length: %d, Value: %s",
		slot.Name, pos, slot.Type, len(field), string(field))
}

// printableBytes renders a byte sequence for error messages, escaping control
// and non-printable bytes to \n, \t, or 0xHH form.
func printableBytes(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('\'')
	for _, c := range b {
		switch {
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\t':
			sb.WriteString(`\t`)
		case c >= 0x20 && c < 0x7f:
			sb.WriteByte(c)
		default:
			fmt.Fprintf(&sb, "0x%02x", c)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}
