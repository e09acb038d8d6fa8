package csvscan

import (
	"bytes"
	"io"
)

// fieldSpan locates one field of a tokenized row. Unescaped spans reference
// the reader's main buffer; escaped spans reference the unescape scratch
// area, because resolving escape sequences changes the byte length.
type fieldSpan struct {
	start   int
	length  int
	escaped bool
}

// tokenRow is one row produced by the quote/escape tokenizer. A row with
// zero fields is a blank line. Spans are valid until the next nextRow call.
type tokenRow struct {
	fields []fieldSpan
	// start and end bound the raw record bytes in the main buffer, trailing
	// row delimiter excluded.
	start, end int
}

// fieldBytes resolves a span against the buffer or the scratch area.
func (r *reader) fieldBytes(f fieldSpan) []byte {
	if f.escaped {
		return r.scratch[f.start : f.start+f.length]
	}
	return r.buf.data[f.start : f.start+f.length]
}

// rowBytes returns the raw record bytes of the last tokenized row.
func (r *reader) rowBytes(row *tokenRow) []byte {
	return r.buf.data[row.start:row.end]
}

// matchDelim reports whether delim occurs at absolute offset i. decided is
// false when the window ends in a strict prefix of delim, in which case more
// bytes are needed before the answer is known.
func (b *buffer) matchDelim(i int, delim []byte) (match, decided bool) {
	if b.limit-i < len(delim) {
		if bytes.HasPrefix(delim, b.data[i:b.limit]) {
			return false, false
		}
		return false, true
	}
	return bytes.Equal(b.data[i:i+len(delim)], delim), true
}

// nextRow tokenizes the next row directly from the buffer, honoring the
// enclose and escape bytes. It must work on the buffer rather than on a
// pre-extracted record because a quoted field may contain the row delimiter.
// Column and row delimiter bytes are literal content while quoted or
// escaped. A field containing at least one escape sequence is rewritten into
// the scratch area and flagged; all other fields are direct buffer spans.
func (r *reader) nextRow(row *tokenRow) error {
	if r.limit > 0 && r.parsedBytes > r.limit {
		return io.EOF
	}
	row.fields = row.fields[:0]
	r.scratch = r.scratch[:0]

	var (
		i         = r.buf.pos // scan position
		start     = r.buf.pos // field content start in the main buffer
		scStart   = 0         // field content start in the scratch area
		closedEnd = 0         // content end of a closed quoted field
		escaped   bool        // field bytes live in the scratch area
		quoted    bool        // field started with the enclose byte
		inQuote   bool
		afterEsc  bool
		closed    bool
	)
	row.start = r.buf.pos

	// endField records the field ending at the absolute offset end.
	endField := func(end int) {
		var span fieldSpan
		switch {
		case escaped:
			span = fieldSpan{start: scStart, length: len(r.scratch) - scStart, escaped: true}
		case quoted:
			if !closed {
				closedEnd = end
			}
			span = fieldSpan{start: start, length: closedEnd - start}
		default:
			span = fieldSpan{start: start, length: end - start}
		}
		if r.opts.TrimSpace && !quoted {
			span = r.trimSpan(span)
		}
		row.fields = append(row.fields, span)
	}

	// startField resets per-field state for the field beginning at offset at.
	startField := func(at int) {
		start = at
		scStart = len(r.scratch)
		escaped, quoted, inQuote, closed = false, false, false, false
	}

	for {
		if i == r.buf.limit {
			if err := r.refillRow(row, &i, &start, &closedEnd); err != nil {
				return err
			}
			continue
		}
		c := r.buf.data[i]

		if afterEsc {
			// The escaped byte is literal content.
			r.scratch = append(r.scratch, c)
			afterEsc = false
			i++
			continue
		}
		if r.opts.Escape != 0 && c == r.opts.Escape {
			if !escaped {
				// First escape in this field: move what we have so far into
				// the scratch area and continue writing there.
				r.scratch = append(r.scratch, r.buf.data[start:i]...)
				escaped = true
			}
			afterEsc = true
			i++
			continue
		}
		if inQuote {
			if c == r.opts.Enclose {
				inQuote = false
				closed = true
				closedEnd = i
			} else if escaped {
				r.scratch = append(r.scratch, c)
			}
			i++
			continue
		}
		if r.opts.Enclose != 0 && c == r.opts.Enclose && i == start && !escaped && !closed {
			// Opening quote at field start; content begins after it.
			quoted = true
			inQuote = true
			i++
			start = i
			continue
		}

		if c == r.opts.RowDelimiter[0] {
			match, decided := r.buf.matchDelim(i, r.opts.RowDelimiter)
			if !decided {
				if err := r.refillRow(row, &i, &start, &closedEnd); err != nil {
					return err
				}
				continue
			}
			if match {
				if len(row.fields) > 0 || i > start || quoted || escaped || closed {
					endField(i)
				}
				row.end = i
				consumed := i + len(r.opts.RowDelimiter) - r.buf.pos
				r.parsedBytes += int64(consumed)
				r.buf.skip(consumed)
				r.searchFrom = r.buf.pos
				return nil
			}
		}
		if c == r.opts.ColumnDelimiter[0] {
			match, decided := r.buf.matchDelim(i, r.opts.ColumnDelimiter)
			if !decided {
				if err := r.refillRow(row, &i, &start, &closedEnd); err != nil {
					return err
				}
				continue
			}
			if match {
				endField(i)
				i += len(r.opts.ColumnDelimiter)
				startField(i)
				continue
			}
		}

		// Plain content byte. Bytes between a closing quote and the next
		// delimiter carry no meaning and are dropped.
		if !closed && escaped {
			r.scratch = append(r.scratch, c)
		}
		i++
	}
}

// refillRow fills the buffer mid-row, compacting first when full and
// shifting every offset the caller holds into the window. A fill that makes
// no progress after end of stream means the row delimiter was swallowed by
// an unterminated quote.
func (r *reader) refillRow(row *tokenRow, offsets ...*int) error {
	if r.buf.free() == 0 {
		if r.buf.pos == 0 {
			return newLineLimitError(r.buf.capacity())
		}
		shift := r.buf.compact()
		for _, off := range offsets {
			*off -= shift
		}
		row.start -= shift
		for idx := range row.fields {
			if !row.fields[idx].escaped {
				row.fields[idx].start -= shift
			}
		}
		if r.searchFrom -= shift; r.searchFrom < r.buf.pos {
			r.searchFrom = r.buf.pos
		}
	}
	before := r.buf.limit
	if err := r.fill(); err != nil {
		return err
	}
	if r.buf.limit == before {
		return ErrUnclosedQuote
	}
	return nil
}

// trimSpan narrows a span to exclude surrounding ASCII whitespace.
func (r *reader) trimSpan(span fieldSpan) fieldSpan {
	b := r.fieldBytes(span)
	lead := 0
	for lead < len(b) && isSpace(b[lead]) {
		lead++
	}
	tail := len(b)
	for tail > lead && isSpace(b[tail-1]) {
		tail--
	}
	span.start += lead
	span.length = tail - lead
	return span
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\v' || c == '\f'
}
