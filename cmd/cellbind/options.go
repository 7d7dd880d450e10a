package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/cellbind/pkg/config"
	"github.com/ajitpratap0/cellbind/pkg/errors"
)

const envPrefix = "CELLBIND"

// optionFlags maps option keys onto flag names.
var optionFlags = []struct {
	key, flag, usage string
	kind             string
}{
	{"header_start", "header-start", "Index of the first header row", "int"},
	{"header_count", "header-count", "Number of header rows", "int"},
	{"skip", "skip", "Rows to skip after the header", "int"},
	{"limit", "limit", "Maximum number of records, 0 for all", "int"},
	{"field_delimiter", "delimiter", "CSV field delimiter", "string"},
	{"sheet_name", "sheet", "Sheet to read from a workbook", "string"},
	{"sheet_index", "sheet-index", "Position of the sheet among visible sheets", "int"},
	{"ignore_hidden_sheets", "ignore-hidden-sheets", "Skip hidden sheets when selecting by index", "bool"},
	{"transposed", "transposed", "Read a workbook sheet with headers down the first column", "bool"},
	{"locale", "locale", "Locale for numeric cells", "string"},
	{"case_insensitive", "case-insensitive", "Match headers ignoring case", "bool"},
	{"ignore_whitespaces", "ignore-whitespaces", "Match headers ignoring surrounding spaces", "bool"},
	{"trim_cell_value", "trim", "Trim cell text before casting", "bool"},
	{"prefer_null", "prefer-null", "Leave empty cells nil where possible", "bool"},
	{"date_pattern", "date-pattern", "Go layout of date cells", "string"},
	{"list_delimiter", "list-delimiter", "Separator of list cells", "string"},
	{"queue_capacity", "queue-capacity", "Records buffered between reader and writer", "int"},
}

func bindOptionFlags(cmd *cobra.Command, v *viper.Viper) {
	flags := cmd.PersistentFlags()
	flags.String("config", "", "Path to a YAML options file")
	_ = v.BindPFlag("config", flags.Lookup("config"))

	for _, f := range optionFlags {
		switch f.kind {
		case "int":
			flags.Int(f.flag, 0, f.usage)
		case "bool":
			flags.Bool(f.flag, false, f.usage)
		default:
			flags.String(f.flag, "", f.usage)
		}
		_ = v.BindPFlag(f.key, flags.Lookup(f.flag))
	}

	v.SetEnvPrefix(envPrefix)
	for _, f := range optionFlags {
		_ = v.BindEnv(f.key)
	}
	_ = v.BindEnv("config")
}

// loadOptions starts from the defaults, applies the YAML file named by
// --config and then every option set by environment or flag.
func loadOptions(v *viper.Viper) (*config.Options, error) {
	opts := config.NewOptions()
	if path := v.GetString("config"); path != "" {
		loaded, err := config.LoadOptions(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load options file")
		}
		opts = loaded
	}

	overlay := viper.New()
	for _, f := range optionFlags {
		if v.IsSet(f.key) {
			overlay.Set(f.key, v.Get(f.key))
		}
	}
	if err := overlay.Unmarshal(opts); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid option value")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}
