// Package cellbind binds the cells of CSV files and spreadsheets to typed Go
// records.
//
// A record type declares its columns with `cell` struct tags: a header name,
// a fixed column index, a nested range of columns, a repeating list window,
// or a bucket for unknown columns. Reading a file resolves the header rows
// into a column map, casts every data cell to its field type and assembles
// one record per data row, either directly or through a registered
// constructor.
//
// # Packages
//
//   - pkg/binding: record declarations parsed from struct tags
//   - pkg/caster: text to value conversion, locale and date aware
//   - pkg/csvline: quote-aware CSV line splitting and header detection
//   - pkg/resolver: column resolution and per-row accumulation
//   - pkg/assembler: record construction, including constructor probing
//   - pkg/bind: the Reader API, with ReadAll, ForEach and streaming
//   - pkg/writer: the reverse direction, records back to CSV, XLSX or JSON lines
//   - pkg/connector: file sources and destinations
//
// # Quick Start
//
//	type Employee struct {
//		ID     int               `cell:"#0"`
//		Name   string            `cell:"Name,mandatory"`
//		Skills []string          `cell:"Skills"`
//		Extra  map[string]string `cell:",unknown"`
//	}
//
//	reg := connector.NewRegistry(logger)
//	src, err := reg.CreateSource("csv", "employees.csv", opts)
//	if err != nil {
//		return err
//	}
//	defer src.Close()
//
//	reader, err := bind.NewReader[Employee](opts)
//	for rec, err := range reader.All(ctx, src) {
//		...
//	}
//
// The cellbind command exposes the same engine for converting files and
// inspecting their resolved headers.
package cellbind
