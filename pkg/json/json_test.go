package json

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type line struct {
	Row   int               `json:"row"`
	Cells map[string]string `json:"cells"`
}

func TestLinesEncoder(t *testing.T) {
	var out bytes.Buffer
	enc := NewLinesEncoder(&out)

	require.NoError(t, enc.Encode(line{Row: 1, Cells: map[string]string{"b": "<x>", "a": "1"}}))
	require.NoError(t, enc.Encode(line{Row: 2}))
	assert.Equal(t, 2, enc.Count())
	assert.Empty(t, out.String())

	require.NoError(t, enc.Close())
	assert.NoError(t, enc.Close())

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `{"row":1,"cells":{"a":"1","b":"<x>"}}`, lines[0])

	var got line
	require.NoError(t, Unmarshal([]byte(lines[1]), &got))
	assert.Equal(t, 2, got.Row)
	assert.Nil(t, got.Cells)
}

func TestMarshal(t *testing.T) {
	data, err := Marshal(map[string]int{"z": 1, "a": 2})
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"z":1}`, string(data))
}
