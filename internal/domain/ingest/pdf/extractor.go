// Package pdf extracts statement rows from PDF files through an ordered chain
// of strategies. The first strategy that returns rows without failing wins;
// the rest are skipped.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/nagarjunveerapu/runway/internal/domain/ingest/model"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/sniffer"
)

// Strategy is one way of reading rows out of a PDF.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, path string) (*Extraction, error)
}

// Extraction is the output of a single strategy run.
type Extraction struct {
	Rows []model.PDFRow
	// Preamble holds the first page's lines above the transactions.
	Preamble []string
}

// Result is the outcome of the whole chain.
type Result struct {
	Rows     []model.PDFRow
	Strategy string
	Attempts []model.StrategyAttempt
	Metadata model.StatementMetadata
	// Preamble is the winning strategy's header text, one line per row.
	Preamble [][]string
}

// Records returns the rows as raw records for the normalizer.
func (r *Result) Records() []model.RawRecord {
	out := make([]model.RawRecord, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row
	}
	return out
}

// Config selects the optional strategies and their limits.
type Config struct {
	EnableHeavyTable bool
	EnableOCR        bool
	StrategyTimeout  time.Duration
	OCRCommand       string
	OCRDPI           float64
}

// Observer is told about every strategy attempt.
type Observer func(strategy string, rows int, err error, elapsed time.Duration)

// Extractor runs the strategy chain.
type Extractor struct {
	strategies []Strategy
	timeout    time.Duration
	logger     *slog.Logger
	observer   Observer
}

// NewExtractor builds the default chain: text-line, table-grid, then the
// MuPDF table reader and OCR when enabled.
func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	return newChain(cfg, DefaultMinAmountTokens, logger)
}

// NewCardExtractor builds the chain for credit-card statements, whose
// lines carry a single amount and no running balance.
func NewCardExtractor(cfg Config, logger *slog.Logger) *Extractor {
	return newChain(cfg, 1, logger)
}

func newChain(cfg Config, minAmountTokens int, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}

	strategies := []Strategy{
		NewTextLineStrategy(OpenNative, logger).WithMinAmountTokens(minAmountTokens),
		NewTableGridStrategy(OpenNative, logger),
	}
	if cfg.EnableHeavyTable {
		strategies = append(strategies, NewHeavyTableStrategy(OpenFitz, logger).WithMinAmountTokens(minAmountTokens))
	}
	if cfg.EnableOCR {
		strategies = append(strategies, NewOCRStrategy(
			OpenFitzRenderer,
			NewTesseractRecognizer(cfg.OCRCommand),
			cfg.OCRDPI,
			logger,
		).WithMinAmountTokens(minAmountTokens))
	}

	return NewExtractorWithStrategies(strategies, cfg.StrategyTimeout, logger)
}

// NewExtractorWithStrategies runs the given strategies in order. A zero
// timeout leaves strategies unbounded.
func NewExtractorWithStrategies(strategies []Strategy, timeout time.Duration, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{strategies: strategies, timeout: timeout, logger: logger}
}

// WithObserver registers a callback for strategy attempts.
func (e *Extractor) WithObserver(o Observer) *Extractor {
	e.observer = o
	return e
}

// Strategies returns the chain's strategy names in order.
func (e *Extractor) Strategies() []string {
	names := make([]string, len(e.strategies))
	for i, s := range e.strategies {
		names[i] = s.Name()
	}
	return names
}

// Extract runs the chain on path. It fails with *model.ExtractionError when
// every strategy failed or came back empty.
func (e *Extractor) Extract(ctx context.Context, path string) (*Result, error) {
	attempts := make([]model.StrategyAttempt, 0, len(e.strategies))

	for _, s := range e.strategies {
		start := time.Now()
		ext, err := e.run(ctx, s, path)
		elapsed := time.Since(start)

		attempt := model.StrategyAttempt{Strategy: s.Name()}
		rows := 0
		if err != nil {
			attempt.Err = err.Error()
			e.logger.Warn("extraction strategy failed",
				"file", fileName(path),
				"strategy", s.Name(),
				"elapsed", elapsed,
				slog.Any("error", err),
			)
		} else {
			rows = len(ext.Rows)
			attempt.Rows = rows
		}
		attempts = append(attempts, attempt)

		if e.observer != nil {
			e.observer(s.Name(), rows, err, elapsed)
		}

		if err == nil && rows > 0 {
			e.logger.Info("extraction succeeded",
				"file", fileName(path),
				"strategy", s.Name(),
				"rows", rows,
				"elapsed", elapsed,
			)
			preamble := preambleRows(ext.Preamble)
			return &Result{
				Rows:     ext.Rows,
				Strategy: s.Name(),
				Attempts: attempts,
				Metadata: sniffer.MetadataFromRows(preamble),
				Preamble: preamble,
			}, nil
		}

		// the caller gave up; a strategy timeout only moves us along
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, &model.ExtractionError{File: fileName(path), Attempts: attempts}
}

// run executes one strategy under the per-strategy timeout. A strategy that
// does not honour cancellation is abandoned when the deadline passes.
func (e *Extractor) run(ctx context.Context, s Strategy, path string) (*Extraction, error) {
	sctx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	type outcome struct {
		ext *Extraction
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		ext, err := s.Extract(sctx, path)
		if err == nil && ext == nil {
			err = errors.New("strategy returned no result")
		}
		done <- outcome{ext: ext, err: err}
	}()

	select {
	case o := <-done:
		return o.ext, o.err
	case <-sctx.Done():
		return nil, fmt.Errorf("%s: %w", s.Name(), sctx.Err())
	}
}

func preambleRows(lines []string) [][]string {
	rows := make([][]string, len(lines))
	for i, l := range lines {
		rows[i] = []string{l}
	}
	return rows
}

func fileName(path string) string {
	return filepath.Base(path)
}
