package csvscan

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

func writePlain(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, content, 0o600))
}

func writeGzip(t *testing.T, path string, content []byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w := gzip.NewWriter(f)
	_, err = w.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

func writeZstd(t *testing.T, path string, content []byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := zstd.NewWriter(f)
	require.NoError(t, err)
	_, err = w.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

func writeXZ(t *testing.T, path string, content []byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := xz.NewWriter(f)
	require.NoError(t, err)
	_, err = w.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

func TestNewFileSource(t *testing.T) {
	t.Parallel()

	content := []byte("id,name\n1,alpha\n2,beta\n")

	tests := []struct {
		name  string
		file  string
		write func(*testing.T, string, []byte)
	}{
		{name: "plain", file: "data.csv", write: writePlain},
		{name: "gzip", file: "data.csv.gz", write: writeGzip},
		{name: "zstd", file: "data.csv.zst", write: writeZstd},
		{name: "xz", file: "data.csv.xz", write: writeXZ},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), tt.file)
			tt.write(t, path, content)

			src, err := NewFileSource(path)
			require.NoError(t, err)
			defer func() {
				closer, ok := src.(interface{ Close() error })
				require.True(t, ok)
				assert.NoError(t, closer.Close())
			}()

			got, err := io.ReadAll(src)
			require.NoError(t, err)
			assert.Equal(t, content, got)
			assert.Equal(t, path, src.Filename())
		})
	}
}

func TestFileSourceSkip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.csv.gz")
	writeGzip(t, path, []byte("skipped|kept"))

	src, err := NewFileSource(path)
	require.NoError(t, err)
	defer src.(interface{ Close() error }).Close()

	// Skip operates on the decompressed stream.
	require.NoError(t, src.Skip(8))
	got, err := io.ReadAll(src)
	require.NoError(t, err)
	assert.Equal(t, "kept", string(got))
}

func TestNewFileSourceMissing(t *testing.T) {
	t.Parallel()

	_, err := NewFileSource(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open file")
}

func TestCompressed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want bool
	}{
		{"data.csv", false},
		{"data.csv.gz", true},
		{"DATA.CSV.GZ", true},
		{"data.csv.bz2", true},
		{"data.csv.xz", true},
		{"data.csv.zst", true},
		{"data.gzip.csv", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, compressed(tt.path), "path %s", tt.path)
	}
}
