package connector

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/cellbind/pkg/config"
	"github.com/ajitpratap0/cellbind/pkg/connector/core"
	csvdest "github.com/ajitpratap0/cellbind/pkg/connector/destinations/csv"
	jsondest "github.com/ajitpratap0/cellbind/pkg/connector/destinations/json"
	xlsxdest "github.com/ajitpratap0/cellbind/pkg/connector/destinations/xlsx"
	"github.com/ajitpratap0/cellbind/pkg/connector/registry"
	csvsource "github.com/ajitpratap0/cellbind/pkg/connector/sources/csv"
	xlsxsource "github.com/ajitpratap0/cellbind/pkg/connector/sources/xlsx"
)

// Format names of the built-in connectors.
const (
	FormatCSV   = "csv"
	FormatXLSX  = "xlsx"
	FormatJSONL = "jsonl"
)

// NewRegistry returns a registry holding the CSV and XLSX connectors, the
// JSON lines destination and their usual file extensions.
func NewRegistry(logger *zap.Logger) *registry.Registry {
	r := registry.NewRegistry(logger)

	_ = r.RegisterSource(FormatCSV, func(path string, opts *config.Options, logger *zap.Logger) (registry.SheetSource, error) {
		return csvsource.Open(path, opts, logger)
	})
	_ = r.RegisterSource(FormatXLSX, func(path string, opts *config.Options, logger *zap.Logger) (registry.SheetSource, error) {
		return xlsxsource.Open(path, opts, logger)
	})
	_ = r.RegisterDestination(FormatCSV, func(path string, opts *config.Options, logger *zap.Logger) (core.Destination, error) {
		return csvdest.Create(path, opts, logger)
	})
	_ = r.RegisterDestination(FormatXLSX, func(path string, opts *config.Options, logger *zap.Logger) (core.Destination, error) {
		return xlsxdest.Create(path, opts, logger)
	})
	_ = r.RegisterDestination(FormatJSONL, func(path string, opts *config.Options, logger *zap.Logger) (core.Destination, error) {
		return jsondest.Create(path, opts, logger)
	})

	for _, ext := range []string{".csv", ".tsv", ".txt"} {
		r.RegisterExtension(ext, FormatCSV)
	}
	for _, ext := range []string{".xlsx", ".xlsm"} {
		r.RegisterExtension(ext, FormatXLSX)
	}
	for _, ext := range []string{".jsonl", ".ndjson"} {
		r.RegisterExtension(ext, FormatJSONL)
	}
	return r
}
