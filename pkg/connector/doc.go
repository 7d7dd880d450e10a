// Package connector moves rows of cell text in and out of files.
//
// # Architecture Overview
//
// The connector package is organized into several sub-packages:
//
//   - core: Defines Row, the pull Source, the push CellSource with its
//     CellHandler, and Destination. Any Source can be turned into a
//     CellSource with core.Push.
//
//   - sources: CSV (BOM aware, compressed input sniffed automatically) and
//     XLSX (sheet chosen by name or index, hidden sheets optionally skipped).
//
//   - destinations: CSV, XLSX and JSON lines writers for rows produced by
//     the writer package.
//
//   - registry: Maps format names and file extensions onto connector
//     factories. NewRegistry in this package returns one with the built-in
//     formats.
//
// # Example Usage
//
//	reg := connector.NewRegistry(logger)
//	format, err := reg.FormatOf("people.csv.gz")
//	src, err := reg.CreateSource(format, "people.csv.gz", opts)
//	defer src.Close()
//
//	for {
//		row, err := src.Next(ctx)
//		if err == io.EOF {
//			break
//		}
//		...
//	}
package connector
