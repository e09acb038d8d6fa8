package csvscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptionsValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    ParseOptions
		wantErr bool
	}{
		{
			name:    "valid",
			opts:    ParseOptions{ColumnDelimiter: []byte(","), RowDelimiter: []byte("\n")},
			wantErr: false,
		},
		{
			name:    "empty column delimiter",
			opts:    ParseOptions{RowDelimiter: []byte("\n")},
			wantErr: true,
		},
		{
			name:    "empty row delimiter",
			opts:    ParseOptions{ColumnDelimiter: []byte(",")},
			wantErr: true,
		},
		{
			name:    "negative skip header",
			opts:    ParseOptions{ColumnDelimiter: []byte(","), RowDelimiter: []byte("\n"), SkipHeader: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.opts.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseOptionsTokenized(t *testing.T) {
	t.Parallel()

	assert.False(t, ParseOptions{}.tokenized())
	assert.True(t, ParseOptions{Enclose: '"'}.tokenized())
	assert.True(t, ParseOptions{Escape: '\\'}.tokenized())
}

func TestOptionsWithDefaults(t *testing.T) {
	t.Parallel()

	opts := Options{}.withDefaults()
	assert.Equal(t, DefaultBatchRows, opts.BatchRows)
	assert.Equal(t, DefaultBufferSize, opts.BufferSize)
	assert.Equal(t, DefaultSampleRows, opts.SampleRows)
	require.NotNil(t, opts.Logger)
	require.NotNil(t, opts.Sink)

	// Explicit values survive.
	opts = Options{BatchRows: 128, BufferSize: 4096, SampleRows: 10}.withDefaults()
	assert.Equal(t, 128, opts.BatchRows)
	assert.Equal(t, 4096, opts.BufferSize)
	assert.Equal(t, 10, opts.SampleRows)
}

func TestScanPurposeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "load", PurposeLoad.String())
	assert.Equal(t, "insert_query", PurposeInsertQuery.String())
	assert.Equal(t, "read_query", PurposeReadQuery.String())
	assert.Equal(t, "purpose(42)", ScanPurpose(42).String())
}
