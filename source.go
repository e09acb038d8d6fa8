package csvscan

import (
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compressed file extensions recognized by the file source.
const (
	extGZ   = ".gz"
	extBZ2  = ".bz2"
	extXZ   = ".xz"
	extZSTD = ".zst"
)

// Source is the sequential byte stream feeding a record reader. Read follows
// io.Reader semantics; end of source is io.EOF. A Source that can time out
// returns an error wrapping ErrTimeout, in which case the stream position is
// unchanged and the read may be retried.
type Source interface {
	io.Reader
	// Skip discards n bytes from the stream.
	Skip(n int64) error
	// Filename identifies the stream in error messages.
	Filename() string
}

// fileSource is a Source backed by a local file, with compression detected
// from the file extension: gzip, bzip2, xz, and zstandard are unwrapped
// transparently.
type fileSource struct {
	name    string
	file    *os.File
	reader  io.Reader
	closers []func() error
}

// NewFileSource opens path as a Source, wrapping it with the matching
// decompression reader when the extension calls for one.
func NewFileSource(path string) (Source, error) {
	file, err := os.Open(path) //nolint:gosec // scan ranges carry user-provided paths
	if err != nil {
		return nil, fmt.Errorf("csvscan: failed to open file: %w", err)
	}

	src := &fileSource{name: path, file: file, reader: file}
	src.closers = append(src.closers, file.Close)

	if err := src.wrapCompression(path); err != nil {
		_ = file.Close()
		return nil, err
	}
	return src, nil
}

// wrapCompression layers a decompression reader over the raw file when the
// path carries a known compressed extension.
func (s *fileSource) wrapCompression(path string) error {
	switch {
	case strings.HasSuffix(strings.ToLower(path), extGZ):
		gzReader, err := gzip.NewReader(s.file)
		if err != nil {
			return fmt.Errorf("csvscan: failed to create gzip reader: %w", err)
		}
		s.reader = gzReader
		s.closers = append(s.closers, gzReader.Close)

	case strings.HasSuffix(strings.ToLower(path), extBZ2):
		s.reader = bzip2.NewReader(s.file)

	case strings.HasSuffix(strings.ToLower(path), extXZ):
		xzReader, err := xz.NewReader(s.file)
		if err != nil {
			return fmt.Errorf("csvscan: failed to create xz reader: %w", err)
		}
		s.reader = xzReader

	case strings.HasSuffix(strings.ToLower(path), extZSTD):
		decoder, err := zstd.NewReader(s.file)
		if err != nil {
			return fmt.Errorf("csvscan: failed to create zstd reader: %w", err)
		}
		s.reader = decoder
		s.closers = append(s.closers, func() error { decoder.Close(); return nil })
	}
	return nil
}

// compressed reports whether path names a compressed file. Size limits do not
// apply to compressed ranges because raw offsets are meaningless after
// decompression.
func compressed(path string) bool {
	p := strings.ToLower(path)
	return strings.HasSuffix(p, extGZ) ||
		strings.HasSuffix(p, extBZ2) ||
		strings.HasSuffix(p, extXZ) ||
		strings.HasSuffix(p, extZSTD)
}

// Read implements io.Reader over the possibly decompressed stream.
func (s *fileSource) Read(p []byte) (int, error) {
	return s.reader.Read(p)
}

// Skip discards n bytes from the decompressed stream.
func (s *fileSource) Skip(n int64) error {
	if _, err := io.CopyN(io.Discard, s.reader, n); err != nil {
		return fmt.Errorf("csvscan: failed to skip %d bytes in %s: %w", n, s.name, err)
	}
	return nil
}

// Filename implements Source.
func (s *fileSource) Filename() string {
	return s.name
}

// Close releases the file and any decompression state.
func (s *fileSource) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
