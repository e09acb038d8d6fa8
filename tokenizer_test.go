package csvscan

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenizeAll drains a reader through the quote/escape tokenizer, resolving
// every span to a string. Blank lines come back as empty rows.
func tokenizeAll(t *testing.T, r *reader) [][]string {
	t.Helper()
	var rows [][]string
	var row tokenRow
	for {
		err := r.nextRow(&row)
		if errors.Is(err, io.EOF) {
			return rows
		}
		require.NoError(t, err)
		fields := make([]string, 0, len(row.fields))
		for _, span := range row.fields {
			fields = append(fields, string(r.fieldBytes(span)))
		}
		rows = append(rows, fields)
	}
}

func TestTokenizerNextRow(t *testing.T) {
	t.Parallel()

	quoted := ParseOptions{
		ColumnDelimiter: []byte(","),
		RowDelimiter:    []byte("\n"),
		Enclose:         '"',
		Escape:          '\\',
	}

	tests := []struct {
		name  string
		input string
		opts  ParseOptions
		want  [][]string
	}{
		{
			name:  "escaped delimiter inside quotes",
			input: "a,\"b\\,c\",d\n",
			opts:  quoted,
			want:  [][]string{{"a", "b,c", "d"}},
		},
		{
			name:  "quoted field spans a row delimiter",
			input: "\"a\nb\",c\n",
			opts:  quoted,
			want:  [][]string{{"a\nb", "c"}},
		},
		{
			name:  "bytes after a closing quote are dropped",
			input: "\"ab\"junk,c\n",
			opts:  quoted,
			want:  [][]string{{"ab", "c"}},
		},
		{
			name:  "quote not at field start is literal",
			input: "a\"b,c\n",
			opts:  quoted,
			want:  [][]string{{"a\"b", "c"}},
		},
		{
			name:  "escaped delimiter outside quotes",
			input: "a\\,b,c\n",
			opts:  quoted,
			want:  [][]string{{"a,b", "c"}},
		},
		{
			name:  "empty quoted field",
			input: "\"\",x\n",
			opts:  quoted,
			want:  [][]string{{"", "x"}},
		},
		{
			name:  "blank line between rows",
			input: "a\n\nb\n",
			opts:  quoted,
			want:  [][]string{{"a"}, {}, {"b"}},
		},
		{
			name:  "missing trailing delimiter",
			input: "a,b",
			opts:  quoted,
			want:  [][]string{{"a", "b"}},
		},
		{
			name:  "trim space leaves quoted content alone",
			input: "\"  a  \", b \n",
			opts: ParseOptions{
				ColumnDelimiter: []byte(","),
				RowDelimiter:    []byte("\n"),
				Enclose:         '"',
				TrimSpace:       true,
			},
			want: [][]string{{"  a  ", "b"}},
		},
		{
			name:  "multi-byte delimiters with quoting",
			input: "\"a||b\"||c\r\nd||e\r\n",
			opts: ParseOptions{
				ColumnDelimiter: []byte("||"),
				RowDelimiter:    []byte("\r\n"),
				Enclose:         '"',
			},
			want: [][]string{{"a||b", "c"}, {"d", "e"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newReader(stringSource(tt.input), tt.opts, 64, NewScanCounters())
			got := tokenizeAll(t, r)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenizerRefillMidRow(t *testing.T) {
	t.Parallel()

	opts := ParseOptions{
		ColumnDelimiter: []byte(","),
		RowDelimiter:    []byte("\n"),
		Enclose:         '"',
		Escape:          '\\',
	}

	t.Run("escaped field across fills", func(t *testing.T) {
		t.Parallel()

		// The escape sequence and its field straddle three fills.
		src := newChunkSource("chunks.csv",
			[]byte("aaaa\\"), []byte(",bbbb"), []byte(",cc\n"))
		r := newReader(src, opts, 64, NewScanCounters())

		got := tokenizeAll(t, r)
		assert.Equal(t, [][]string{{"aaaa,bbbb", "cc"}}, got)
	})

	t.Run("compaction shifts emitted spans", func(t *testing.T) {
		t.Parallel()

		// The second row fills the buffer after the first was consumed, so
		// the refill compacts with a field already emitted.
		r := newReader(stringSource("x\nlongfield,y\n"), opts, 12, NewScanCounters())

		got := tokenizeAll(t, r)
		assert.Equal(t, [][]string{{"x"}, {"longfield", "y"}}, got)
	})
}

func TestTokenizerUnclosedQuote(t *testing.T) {
	t.Parallel()

	opts := ParseOptions{
		ColumnDelimiter: []byte(","),
		RowDelimiter:    []byte("\n"),
		Enclose:         '"',
	}
	r := newReader(stringSource("\"abc"), opts, 64, NewScanCounters())

	var row tokenRow
	err := r.nextRow(&row)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnclosedQuote)
}

// The tokenizer and the plain delimiter split must agree whenever the input
// uses no quoting or escaping.
func TestTokenizerMatchesPlainSplit(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"a,b,c\nd,e,f\n",
		"one\ntwo\nthree",
		",,\n",
		"x\n\ny\n",
		"no delimiters at all",
	}

	for _, input := range inputs {
		plainOpts := ParseOptions{
			ColumnDelimiter: []byte(","),
			RowDelimiter:    []byte("\n"),
		}
		tokenOpts := plainOpts
		tokenOpts.Enclose = '"'

		plain := newReader(stringSource(input), plainOpts, 64, NewScanCounters())
		var want [][]string
		for {
			rec, err := plain.nextRecord()
			if errors.Is(err, io.EOF) {
				break
			}
			require.NoError(t, err)
			if len(rec) == 0 {
				want = append(want, []string{})
				continue
			}
			row := make([]string, 0, 4)
			for _, f := range splitFields(nil, rec, plainOpts) {
				row = append(row, string(f))
			}
			want = append(want, row)
		}

		token := newReader(stringSource(input), tokenOpts, 64, NewScanCounters())
		got := tokenizeAll(t, token)
		assert.Equal(t, want, got, "input %q", input)
	}
}
