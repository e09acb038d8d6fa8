package csvscan

import (
	"bytes"
	"io"
	"time"
)

// reader produces raw records from a byte source through a fixed-capacity
// buffer. A record is one line with its trailing row delimiter stripped; the
// returned slice aliases the buffer and is only valid until the next call.
// The reader owns all of its state exclusively and must not be shared.
type reader struct {
	src      Source
	opts     ParseOptions
	buf      *buffer
	counters *ScanCounters

	// limit bounds how many record bytes this range parses, 0 for unbounded.
	limit       int64
	parsedBytes int64

	// searchFrom is the absolute offset the next delimiter search starts at,
	// so bytes are scanned once across repeated fills.
	searchFrom int

	// scratch receives unescaped field bytes in quote/escape mode. Reset per
	// row; escaped field spans index into it.
	scratch []byte
}

// newReader creates a reader over src with the given buffer capacity.
func newReader(src Source, opts ParseOptions, bufSize int, counters *ScanCounters) *reader {
	return &reader{
		src:      src,
		opts:     opts,
		buf:      newBuffer(bufSize),
		counters: counters,
	}
}

// setLimit bounds the number of record bytes this reader parses.
func (r *reader) setLimit(n int64) {
	r.limit = n
}

// filename identifies the underlying source in error messages.
func (r *reader) filename() string {
	return r.src.Filename()
}

// fill reads as many bytes as the source currently offers into free space.
// On a zero-byte read it synthesizes a missing trailing row delimiter if the
// residue does not already end with one and space allows; with an empty
// residue it reports io.EOF. The caller must guarantee free space.
func (r *reader) fill() error {
	r.counters.fileReads.Add(1)
	start := time.Now()
	n, err := r.src.Read(r.buf.writable())
	r.counters.addReadTime(time.Since(start))
	if n > 0 {
		r.buf.addLimit(n)
		r.counters.addBytesRead(int64(n))
	}
	if err != nil && err != io.EOF {
		return err
	}

	if n == 0 {
		avail := r.buf.available()
		d := r.opts.RowDelimiter
		if !bytes.HasSuffix(r.buf.window(), d) {
			// Reached the end of the source with no trailing record
			// delimiter, which is valid per the RFC; add it ourselves.
			if r.buf.free() < len(d) {
				return newLineLimitError(r.buf.capacity())
			}
			for _, c := range d {
				r.buf.appendByte(c)
			}
		}
		if avail == 0 {
			r.buf.skip(len(d))
			return io.EOF
		}
	}
	return nil
}

// nextRecord yields the next raw record. It searches the available window for
// the row delimiter, refilling as needed; a record longer than the buffer
// even after compaction fails with ErrLineLimit. At end of stream a non-empty
// remainder becomes the final record courtesy of the synthesized delimiter.
func (r *reader) nextRecord() ([]byte, error) {
	// Strictly greater: the record beginning exactly at the limit still
	// belongs to this range, because the next range discards it.
	if r.limit > 0 && r.parsedBytes > r.limit {
		return nil, io.EOF
	}
	d := r.opts.RowDelimiter
	for {
		if i := r.buf.find(d, r.searchFrom); i >= 0 {
			rec := r.buf.data[r.buf.pos:i]
			consumed := i + len(d) - r.buf.pos
			r.parsedBytes += int64(consumed)
			r.buf.skip(consumed)
			r.searchFrom = r.buf.pos
			return rec, nil
		}

		// Not found; rescan only fresh bytes, keeping enough overlap for a
		// delimiter straddling the fill boundary.
		r.searchFrom = r.buf.limit - (len(d) - 1)

		if r.buf.free() < len(d) {
			if r.buf.pos == 0 {
				if r.buf.free() == 0 {
					return nil, newLineLimitError(r.buf.capacity())
				}
			} else {
				r.searchFrom -= r.buf.compact()
				if r.searchFrom < 0 {
					r.searchFrom = 0
				}
			}
		}
		if err := r.fill(); err != nil {
			return nil, err
		}
	}
}

// splitFields splits a raw record into field spans by exact occurrences of
// the column delimiter, appending them to dst. Spans alias the record.
func splitFields(dst [][]byte, rec []byte, opts ParseOptions) [][]byte {
	delim := opts.ColumnDelimiter
	for {
		i := bytes.Index(rec, delim)
		field := rec
		if i >= 0 {
			field = rec[:i]
		}
		if opts.TrimSpace {
			field = bytes.TrimSpace(field)
		}
		dst = append(dst, field)
		if i < 0 {
			return dst
		}
		rec = rec[i+len(delim):]
	}
}
