package csvscan

import "bytes"

// buffer is a fixed-capacity byte window over the source stream. Bytes before
// pos are consumed and reclaimable, bytes in [pos, limit) are available, and
// [limit, cap) is free space for the next fill. pos <= limit <= cap always
// holds.
type buffer struct {
	data  []byte
	pos   int
	limit int
}

// newBuffer allocates a window with the given capacity.
func newBuffer(capacity int) *buffer {
	return &buffer{data: make([]byte, capacity)}
}

// capacity returns the total window size.
func (b *buffer) capacity() int {
	return len(b.data)
}

// available returns the number of unconsumed bytes.
func (b *buffer) available() int {
	return b.limit - b.pos
}

// free returns the number of bytes a fill may write.
func (b *buffer) free() int {
	return len(b.data) - b.limit
}

// writable returns the free region for a fill to write into; the caller
// reports how much was written via addLimit.
func (b *buffer) writable() []byte {
	return b.data[b.limit:]
}

// addLimit publishes n freshly written bytes.
func (b *buffer) addLimit(n int) {
	b.limit += n
}

// appendByte writes one byte into free space. The caller must have checked
// free() first.
func (b *buffer) appendByte(c byte) {
	b.data[b.limit] = c
	b.limit++
}

// skip consumes n available bytes.
func (b *buffer) skip(n int) {
	b.pos += n
}

// window returns the available bytes. The slice aliases the buffer and is
// invalidated by the next fill or compaction.
func (b *buffer) window() []byte {
	return b.data[b.pos:b.limit]
}

// find locates the next exact occurrence of delim at or after the absolute
// offset from, returning its absolute offset or -1. Multi-byte delimiters
// match only as the whole sequence.
func (b *buffer) find(delim []byte, from int) int {
	if from < b.pos {
		from = b.pos
	}
	if i := bytes.Index(b.data[from:b.limit], delim); i >= 0 {
		return from + i
	}
	return -1
}

// compact discards consumed bytes, moving the available window to the front.
// It returns the distance everything shifted so callers can adjust any
// offsets they hold into the window.
func (b *buffer) compact() int {
	shift := b.pos
	if shift == 0 {
		return 0
	}
	copy(b.data, b.data[b.pos:b.limit])
	b.limit -= shift
	b.pos = 0
	return shift
}
