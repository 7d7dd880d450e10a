package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/cellbind/pkg/bind"
	"github.com/ajitpratap0/cellbind/pkg/compression"
	"github.com/ajitpratap0/cellbind/pkg/config"
	"github.com/ajitpratap0/cellbind/pkg/connector"
	"github.com/ajitpratap0/cellbind/pkg/connector/core"
	csvdest "github.com/ajitpratap0/cellbind/pkg/connector/destinations/csv"
	"github.com/ajitpratap0/cellbind/pkg/connector/registry"
	"github.com/ajitpratap0/cellbind/pkg/errors"
	"github.com/ajitpratap0/cellbind/pkg/json"
	"github.com/ajitpratap0/cellbind/pkg/logger"
	"github.com/ajitpratap0/cellbind/pkg/observability"
	"github.com/ajitpratap0/cellbind/pkg/writer"
)

// row is the record shape used by the CLI: every column lands in Cells
// under its header text.
type row struct {
	Row   int               `cell:",row" json:"row"`
	Cells map[string]string `cell:",unknown" json:"cells"`
}

// targetJSONL writes one JSON object per record.
const targetJSONL = "jsonl"

type convertFlags struct {
	input  string
	output string
	format string
	to     string
	trace  bool
}

func newConvertCmd(v *viper.Viper) *cobra.Command {
	var f convertFlags

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a CSV or XLSX file into JSON lines, CSV or XLSX",
		Long: `Convert reads every data row of the input and writes it as a record.

JSON lines output keeps the row number and the cells keyed by header text.
CSV and XLSX output write the cells again, with columns sorted by header.

Example:
  cellbind convert --input orders.csv.gz --output orders.jsonl
  cellbind convert --input book.xlsx --sheet Q3 --to csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, v, f)
		},
	}

	cmd.Flags().StringVarP(&f.input, "input", "i", "", "Input file (required)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "-", "Output file, - for standard output")
	cmd.Flags().StringVar(&f.format, "format", "", "Input format (csv, xlsx); detected from the extension when empty")
	cmd.Flags().StringVar(&f.to, "to", "", "Output format (jsonl, csv, xlsx); detected from the output extension when empty")
	cmd.Flags().BoolVar(&f.trace, "trace", false, "Export trace spans to standard error")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runConvert(cmd *cobra.Command, v *viper.Viper, f convertFlags) error {
	opts, err := loadOptions(v)
	if err != nil {
		return err
	}
	if opts.HeaderCount == 0 {
		return errors.New(errors.ErrorTypeConfig, "convert keys cells by header text and needs header_count of at least 1")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.ContextWith(ctx, logger.InputKey, f.input)
	log := logger.WithContext(ctx).With(zap.String("component", "cellbind-cli"))

	if f.trace {
		cfg := observability.DefaultConfig()
		cfg.Tracing.ExporterType = "stdout"
		cfg.Tracing.Writer = cmd.ErrOrStderr()
		shutdown, err := observability.Initialize(cfg)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize tracing")
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	reg := connector.NewRegistry(log)
	src, err := openSource(reg, f.input, f.format, opts)
	if err != nil {
		return err
	}
	defer src.Close()

	readerOpts := []bind.Option{bind.WithLogger(log)}
	if named, ok := src.(interface{ SheetName() string }); ok {
		ctx = logger.ContextWith(ctx, logger.SheetKey, named.SheetName())
		log = logger.WithContext(ctx).With(zap.String("component", "cellbind-cli"))
		readerOpts = []bind.Option{bind.WithLogger(log), bind.WithSheet(named.SheetName())}
	}
	reader, err := bind.NewReader[row](opts, readerOpts...)
	if err != nil {
		return err
	}

	target := outputFormat(reg, f.output, f.to)
	ol := observability.NewOperationLogger(ctx, log, "convert")
	ol.LogStart("converting", zap.String("output", f.output), zap.String("to", target))
	progress := observability.NewRecordProgress(ol)

	if target == targetJSONL {
		err = writeJSONLines(ctx, cmd.OutOrStdout(), f.output, reader, src, progress)
	} else {
		err = writeTable(ctx, cmd.OutOrStdout(), reg, target, f.output, opts, reader, src, progress, log)
	}
	if err != nil {
		ol.LogError("conversion failed", err)
		return err
	}
	progress.LogFinal()
	return nil
}

func openSource(reg *registry.Registry, path, format string, opts *config.Options) (registry.SheetSource, error) {
	if format == "" {
		var err error
		if format, err = reg.FormatOf(path); err != nil {
			return nil, err
		}
	}
	return reg.CreateSource(format, path, opts)
}

func outputFormat(reg *registry.Registry, output, to string) string {
	if to != "" {
		return strings.ToLower(to)
	}
	if output == "-" {
		return targetJSONL
	}
	ext := strings.ToLower(filepath.Ext(compression.TrimExtension(output)))
	if ext == ".jsonl" || ext == ".json" || ext == ".ndjson" {
		return targetJSONL
	}
	if format, err := reg.FormatOf(output); err == nil {
		return format
	}
	return targetJSONL
}

func writeJSONLines(ctx context.Context, stdout io.Writer, output string, reader *bind.Reader[row],
	src core.CellSource, progress *observability.RecordProgress) error {
	out, closeOut, err := openOutput(stdout, output)
	if err != nil {
		return err
	}

	enc := json.NewLinesEncoder(out)
	for rec, err := range reader.All(ctx, src) {
		if err != nil {
			_ = enc.Close()
			_ = closeOut()
			return err
		}
		if err := enc.Encode(rec); err != nil {
			_ = enc.Close()
			_ = closeOut()
			return errors.Wrap(err, errors.ErrorTypeData, "failed to encode record")
		}
		progress.RecordProcessed(1)
	}
	if err := enc.Close(); err != nil {
		_ = closeOut()
		return errors.Wrap(err, errors.ErrorTypeSource, "failed to write output")
	}
	return closeOut()
}

// openOutput opens output for writing, compressing it when its extension
// names a codec. The returned function closes the codec and the file.
func openOutput(stdout io.Writer, output string) (io.Writer, func() error, error) {
	if output == "-" {
		return stdout, func() error { return nil }, nil
	}
	file, err := os.Create(output)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeSource, "failed to create output file")
	}
	w, err := compression.NewWriter(file, compression.FromExtension(output), compression.Default)
	if err != nil {
		_ = file.Close()
		return nil, nil, err
	}
	return w, func() error {
		if err := w.Close(); err != nil {
			_ = file.Close()
			return errors.Wrap(err, errors.ErrorTypeSource, "failed to finish compressed output")
		}
		return file.Close()
	}, nil
}

func writeTable(ctx context.Context, stdout io.Writer, reg *registry.Registry, target, output string,
	opts *config.Options, reader *bind.Reader[row], src core.CellSource,
	progress *observability.RecordProgress, log *zap.Logger) error {
	records, err := reader.ReadAll(ctx, src)
	if err != nil {
		return err
	}
	progress.RecordProcessed(len(records))

	var dest core.Destination
	switch {
	case output == "-" && target == connector.FormatCSV:
		dest, err = csvdest.NewCSVDestination(stdout, opts)
	case output == "-":
		return errors.Newf(errors.ErrorTypeConfig, "%s output needs a file, set --output", target)
	default:
		dest, err = reg.CreateDestination(target, output, opts)
	}
	if err != nil {
		return err
	}

	w, err := writer.New[row](dest, opts, writer.WithLogger(log))
	if err != nil {
		_ = dest.Close()
		return err
	}
	if err := w.Write(records); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
