package json

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/cellbind/pkg/compression"
	"github.com/ajitpratap0/cellbind/pkg/config"
)

func TestRowsKeyedByHeader(t *testing.T) {
	var out bytes.Buffer
	d, err := NewJSONDestination(&out, config.NewOptions())
	require.NoError(t, err)

	require.NoError(t, d.WriteRow([]string{"Name", "", "Age"}))
	require.NoError(t, d.WriteRow([]string{"Ada", "x", "36", "extra"}))
	require.NoError(t, d.Close())

	assert.Equal(t, `{"1":"x","3":"extra","Age":"36","Name":"Ada"}`+"\n", out.String())
	assert.NoError(t, d.Close())
}

func TestHeaderless(t *testing.T) {
	opts := config.NewOptions()
	opts.HeaderCount = 0
	var out bytes.Buffer
	d, err := NewJSONDestination(&out, opts)
	require.NoError(t, err)

	require.NoError(t, d.WriteRow([]string{"a", "b"}))
	assert.Equal(t, 1, d.Rows())
	require.NoError(t, d.Flush())
	assert.Equal(t, `{"0":"a","1":"b"}`+"\n", out.String())
	require.NoError(t, d.Close())
}

func TestCreateCompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.jsonl.zst")
	d, err := Create(path, config.NewOptions(), nil)
	require.NoError(t, err)
	require.NoError(t, d.WriteRow([]string{"id"}))
	require.NoError(t, d.WriteRow([]string{"7"}))
	require.NoError(t, d.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rc, alg, err := compression.NewReader(f)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, compression.Zstd, alg)

	var got bytes.Buffer
	_, err = got.ReadFrom(rc)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"7"}`+"\n", got.String())
}
