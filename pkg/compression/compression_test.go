package compression

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sheet = "id,name\n1,\"Smith, J\"\n2,Doe\n"

func TestRoundTripEveryAlgorithm(t *testing.T) {
	for _, alg := range []Algorithm{None, Gzip, Zstd, LZ4, S2} {
		for _, level := range []Level{Fastest, Default, Best} {
			t.Run(string(alg), func(t *testing.T) {
				var buf bytes.Buffer
				w, err := NewWriter(&buf, alg, level)
				require.NoError(t, err)
				_, err = io.WriteString(w, sheet)
				require.NoError(t, err)
				require.NoError(t, w.Close())

				r, detected, err := NewReader(&buf)
				require.NoError(t, err)
				defer r.Close()
				assert.Equal(t, alg, detected)

				got, err := io.ReadAll(r)
				require.NoError(t, err)
				assert.Equal(t, sheet, string(got))
			})
		}
	}
}

func TestShortPlainInput(t *testing.T) {
	r, alg, err := NewReader(strings.NewReader("a"))
	require.NoError(t, err)
	assert.Equal(t, None, alg)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "a", string(got))
}

func TestExtensions(t *testing.T) {
	assert.Equal(t, Gzip, FromExtension("people.csv.GZ"))
	assert.Equal(t, Zstd, FromExtension("people.csv.zst"))
	assert.Equal(t, LZ4, FromExtension("people.csv.lz4"))
	assert.Equal(t, S2, FromExtension("people.csv.s2"))
	assert.Equal(t, None, FromExtension("people.xlsx"))

	assert.Equal(t, "people.csv", TrimExtension("people.csv.gz"))
	assert.Equal(t, "people.xlsx", TrimExtension("people.xlsx"))
}

func TestUnsupportedWriter(t *testing.T) {
	_, err := NewWriter(io.Discard, Algorithm("brotli"), Default)
	assert.Error(t, err)
}
