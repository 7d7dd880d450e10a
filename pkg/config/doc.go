// Package config provides the options that drive a cellbind pass.
//
// A single Options structure controls row layout (header block, skip and
// limit), casting (null preference, date patterns, locale, list delimiter),
// header matching (case and whitespace folding, mandatory names), source
// selection (CSV delimiter, spreadsheet sheet) and engine behavior (queue
// capacity, strict constructor mapping).
//
// Example usage:
//
//	opts := config.NewOptions()
//	opts.HeaderStart = 1
//	opts.PreferNull = true
//
//	if err := opts.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
// Options can also be loaded from YAML with ${ENV} substitution:
//
//	opts, err := config.LoadOptions("cellbind.yaml")
package config
