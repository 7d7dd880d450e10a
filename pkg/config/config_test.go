package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/cellbind/pkg/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		ok     bool
	}{
		{"defaults", func(o *Options) {}, true},
		{"negative skip", func(o *Options) { o.Skip = -1 }, false},
		{"negative limit", func(o *Options) { o.Limit = -3 }, false},
		{"multi char delimiter", func(o *Options) { o.FieldDelimiter = ";;" }, false},
		{"quote delimiter", func(o *Options) { o.FieldDelimiter = `"` }, false},
		{"tab delimiter", func(o *Options) { o.FieldDelimiter = "\t" }, true},
		{"bad regex", func(o *Options) { o.DateRegex = "([0-9]" }, false},
		{"bad locale", func(o *Options) { o.Locale = "not a locale!" }, false},
		{"zero queue", func(o *Options) { o.QueueCapacity = 0 }, false},
		{"empty list delimiter", func(o *Options) { o.ListDelimiter = "" }, false},
		{"no header", func(o *Options) { o.HeaderCount = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewOptions()
			tt.modify(opts)
			err := opts.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
		})
	}
}

func TestHeaderRows(t *testing.T) {
	opts := NewOptions()
	opts.HeaderStart = 1
	opts.HeaderCount = 2
	opts.Skip = 1

	assert.False(t, opts.IsHeaderRow(0))
	assert.True(t, opts.IsHeaderRow(1))
	assert.True(t, opts.IsHeaderRow(2))
	assert.False(t, opts.IsHeaderRow(3))
	assert.Equal(t, 4, opts.FirstDataRow())
}

func TestLoadOptionsSubstitutesEnv(t *testing.T) {
	t.Setenv("CELLBIND_TEST_SHEET", "Employees")

	path := filepath.Join(t.TempDir(), "opts.yaml")
	content := "sheet_name: ${CELLBIND_TEST_SHEET}\ncase_insensitive: true\nlimit: 10\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	opts, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, "Employees", opts.SheetName)
	assert.True(t, opts.CaseInsensitive)
	assert.Equal(t, 10, opts.Limit)
	assert.Equal(t, ",", opts.ListDelimiter)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	opts := NewOptions()
	opts.FieldDelimiter = ";"
	require.NoError(t, Save(path, opts))

	loaded, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, opts, loaded)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadOptions(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
