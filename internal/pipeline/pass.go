package pipeline

import (
	"context"
	stderrors "errors"
	"io"

	"go.uber.org/zap"

	"github.com/ajitpratap0/cellbind/pkg/assembler"
	"github.com/ajitpratap0/cellbind/pkg/binding"
	"github.com/ajitpratap0/cellbind/pkg/caster"
	"github.com/ajitpratap0/cellbind/pkg/config"
	"github.com/ajitpratap0/cellbind/pkg/connector/core"
	"github.com/ajitpratap0/cellbind/pkg/csvline"
	"github.com/ajitpratap0/cellbind/pkg/resolver"
)

// Config holds the collaborators of a pass.
type Config struct {
	Declaration *binding.Declaration
	Options     *config.Options
	Caster      *caster.Caster
	Assembler   *assembler.Assembler
	// Sheet is reported in cast error locations
	Sheet string
	// Mode labels pass metrics, such as "sync" or "stream"
	Mode string
}

// Pass classifies rows, resolves their cells and emits one record per
// non-blank data row. It implements core.CellHandler for push sources;
// pull sources are driven through RunPull. A Pass is single-use and not
// safe for concurrent use.
type Pass struct {
	decl       *binding.Declaration
	classifier *csvline.Classifier
	resolver   *resolver.Resolver
	assembler  *assembler.Assembler
	logger     *zap.Logger
	metrics    *PassMetrics
	emit       Emit

	kind  csvline.RowKind
	acc   *resolver.Accumulator
	blank bool

	ended bool
	err   error
}

// New creates a pass. emit receives every assembled record.
func New(cfg Config, logger *zap.Logger, emit Emit) *Pass {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Mode == "" {
		cfg.Mode = "sync"
	}
	r := resolver.New(cfg.Declaration, cfg.Options, cfg.Caster, logger)
	r.SetSheet(cfg.Sheet)

	return &Pass{
		decl:       cfg.Declaration,
		classifier: csvline.NewClassifier(cfg.Options),
		resolver:   r,
		assembler:  cfg.Assembler,
		logger:     logger.With(zap.String("target", cfg.Declaration.Type.String()), zap.String("mode", cfg.Mode)),
		metrics:    NewPassMetrics(cfg.Mode),
		emit:       emit,
	}
}

// Columns returns the frozen column map, or nil before the header is
// finalized.
func (p *Pass) Columns() resolver.ColumnMap {
	return p.resolver.Columns()
}

// Stats returns the pass counters.
func (p *Pass) Stats() Stats {
	return p.metrics.Snapshot()
}

// Err returns the error that ended the pass, or nil.
func (p *Pass) Err() error {
	return p.err
}

// StartRow implements core.CellHandler.
func (p *Pass) StartRow(ctx context.Context, row int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	kind := p.classifier.Classify(row)
	if kind == csvline.RowDone {
		return core.ErrStop
	}
	if kind == csvline.RowData && !p.resolver.Finalized() {
		// header rows were absent or never closed
		if err := p.finalize(); err != nil {
			return err
		}
	}

	p.kind = kind
	p.metrics.RecordRow(kind)
	if kind == csvline.RowData {
		p.acc = resolver.NewAccumulator(p.decl, row)
		p.blank = true
	}
	return nil
}

// Cell implements core.CellHandler.
func (p *Pass) Cell(row, col int, text string) error {
	switch p.kind {
	case csvline.RowHeader:
		p.resolver.RegisterHeader(col, text)
	case csvline.RowData:
		if text != "" {
			p.blank = false
		}
		p.resolver.ResolveCell(row, col, text, p.acc)
	}
	return nil
}

// EndRow implements core.CellHandler.
func (p *Pass) EndRow(row int) error {
	switch p.kind {
	case csvline.RowHeader:
		if row == p.classifier.LastHeaderRow() {
			return p.finalize()
		}
	case csvline.RowData:
		acc := p.acc
		p.acc = nil
		if p.blank {
			p.metrics.RecordBlank()
			return nil
		}

		rec, err := p.assembler.Assemble(acc)
		if err != nil {
			p.logger.Error("failed to assemble record", zap.Int("row", row), zap.Error(err))
			return err
		}
		p.classifier.Accept()
		if err := p.emit(rec); err != nil {
			return err
		}
		p.metrics.RecordEmitted()

		if lim := p.classifier.Limit; lim > 0 && p.classifier.Emitted() >= lim {
			return core.ErrStop
		}
	}
	return nil
}

// EndStream implements core.CellHandler. A clean end finalizes a header
// that no data row followed, so missing mandatory headers are still
// reported.
func (p *Pass) EndStream(err error) {
	if p.ended {
		return
	}
	p.ended = true

	if stderrors.Is(err, core.ErrStop) {
		err = nil
	}
	if err == nil && !p.resolver.Finalized() {
		err = p.finalize()
	}
	p.err = err
	p.metrics.Stop()

	stats := p.metrics.Snapshot()
	if err != nil {
		p.logger.Warn("pass ended with error",
			zap.Int64("rows", stats.RowsRead),
			zap.Int64("records", stats.RecordsEmitted),
			zap.Error(err))
		return
	}
	p.logger.Debug("pass completed",
		zap.Int64("rows", stats.RowsRead),
		zap.Int64("records", stats.RecordsEmitted),
		zap.Duration("duration", stats.Duration))
}

// RunPull drives the pass from a pull source until it is exhausted, the
// limit is reached or an error occurs.
func (p *Pass) RunPull(ctx context.Context, src core.Source) error {
	p.EndStream(p.pull(ctx, src))
	return p.err
}

func (p *Pass) pull(ctx context.Context, src core.Source) error {
	for {
		row, err := src.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := core.ScanRow(ctx, p, row); err != nil {
			return err
		}
	}
}

// RunPush drives the pass from a push source.
func (p *Pass) RunPush(ctx context.Context, src core.CellSource) error {
	err := src.Scan(ctx, p)
	if !p.ended {
		p.EndStream(err)
	}
	if p.err == nil && err != nil && !stderrors.Is(err, core.ErrStop) {
		p.err = err
	}
	return p.err
}

func (p *Pass) finalize() error {
	cols, err := p.resolver.FinalizeHeader()
	if err != nil {
		return err
	}
	p.logger.Debug("header finalized", zap.Int("columns", len(cols)))
	return nil
}
