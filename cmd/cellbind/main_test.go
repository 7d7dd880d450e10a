package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/cellbind/pkg/json"
	"github.com/ajitpratap0/cellbind/pkg/testutil"
)

const people = "Name,Age\nAda,36\n\nBob,41\n"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestLoadOptionsPrecedence(t *testing.T) {
	cfg := testutil.WriteFile(t, "options.yaml", "skip: 3\nlocale: de-DE\nlimit: 9\n")
	t.Setenv("CELLBIND_LIMIT", "5")

	v := viper.New()
	cmd := &cobra.Command{Use: "test"}
	bindOptionFlags(cmd, v)
	require.NoError(t, cmd.PersistentFlags().Parse([]string{"--config", cfg, "--skip", "1", "--delimiter", ";"}))

	opts, err := loadOptions(v)
	require.NoError(t, err)
	assert.Equal(t, 1, opts.Skip)
	assert.Equal(t, 5, opts.Limit)
	assert.Equal(t, "de-DE", opts.Locale)
	assert.Equal(t, ";", opts.FieldDelimiter)
	assert.Equal(t, 1, opts.HeaderCount)
}

func TestLoadOptionsRejectsInvalid(t *testing.T) {
	v := viper.New()
	cmd := &cobra.Command{Use: "test"}
	bindOptionFlags(cmd, v)
	require.NoError(t, cmd.PersistentFlags().Parse([]string{"--header-start=-1"}))

	_, err := loadOptions(v)
	assert.Error(t, err)
}

func TestConvertToJSONLines(t *testing.T) {
	input := testutil.WriteFile(t, "people.csv", people)

	out, err := execute(t, "convert", "--input", input)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	var first row
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, 1, first.Row)
	assert.Equal(t, map[string]string{"Name": "Ada", "Age": "36"}, first.Cells)

	var second row
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, 2, second.Row)
	assert.Equal(t, "Bob", second.Cells["Name"])
}

func TestConvertToCSVFile(t *testing.T) {
	input := testutil.WriteFile(t, "people.csv", people)
	output := filepath.Join(t.TempDir(), "out.csv")

	_, err := execute(t, "convert", "-i", input, "-o", output, "--limit", "1")
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "Age,Name\n36,Ada\n", string(data))
}

func TestConvertCompressedOutput(t *testing.T) {
	input := testutil.WriteFile(t, "people.csv", people)
	output := filepath.Join(t.TempDir(), "out.jsonl.gz")

	_, err := execute(t, "convert", "-i", input, "-o", output)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1f, 0x8b}, data[:2])
}

func TestConvertNeedsHeader(t *testing.T) {
	input := testutil.WriteFile(t, "people.csv", people)

	_, err := execute(t, "convert", "-i", input, "--header-count", "0")
	assert.Error(t, err)
}

func TestConvertUnknownExtension(t *testing.T) {
	input := testutil.WriteFile(t, "people.dat", people)

	_, err := execute(t, "convert", "-i", input)
	assert.Error(t, err)
}

func TestHeaders(t *testing.T) {
	input := testutil.WriteFile(t, "people.csv", people)

	out, err := execute(t, "headers", "-i", input)
	require.NoError(t, err)
	assert.Equal(t, "0\tCells[Name]\n1\tCells[Age]\n", out)
}

func TestList(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "- csv")
	assert.Contains(t, out, "- xlsx")
}
