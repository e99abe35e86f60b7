package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Inbox subdirectories for handled statements.
const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

var statementExts = []string{".pdf", ".csv", ".txt", ".tsv", ".xlsx", ".xlsm"}

// Processor is the part of Pipeline the inbox needs.
type Processor interface {
	Process(ctx context.Context, in Input) (*Result, error)
}

// SweepReport summarises one pass over the inbox.
type SweepReport struct {
	Processed []*Result
	Failed    map[string]error
}

// Inbox imports statements dropped into a directory. Each file runs through
// its own pipeline call and is then moved to processed/ or failed/.
type Inbox struct {
	dir       string
	bankName  string
	workers   int
	processor Processor
	logger    *slog.Logger
	// Results receives every successful result when set.
	Results func(*Result)
}

// NewInbox creates an inbox over dir running up to workers files at once.
func NewInbox(dir string, processor Processor, workers int, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{dir: dir, processor: processor, workers: max(1, workers), logger: logger}
}

// WithBankName declares the bank for every file in the inbox.
func (b *Inbox) WithBankName(name string) *Inbox {
	b.bankName = name
	return b
}

// Pending lists statement files waiting in the inbox, sorted by name.
func (b *Inbox) Pending() ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("read inbox %s: %w", b.dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if slices.Contains(statementExts, strings.ToLower(filepath.Ext(e.Name()))) {
			files = append(files, filepath.Join(b.dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

// Sweep processes every pending file. A failing file never stops the others;
// only inbox-level problems (unreadable directory, failed moves) are
// returned as errors.
func (b *Inbox) Sweep(ctx context.Context) (*SweepReport, error) {
	files, err := b.Pending()
	if err != nil {
		return nil, err
	}

	for _, sub := range []string{ProcessedDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(b.dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", sub, err)
		}
	}

	report := &SweepReport{Failed: make(map[string]error)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for _, path := range files {
		g.Go(func() error {
			res, procErr := b.processor.Process(gctx, Input{Path: path, BankName: b.bankName})

			// cancellation leaves the file for the next sweep
			if procErr != nil && errors.Is(procErr, context.Canceled) {
				return nil
			}

			dest := ProcessedDir
			if procErr != nil {
				dest = FailedDir
			}
			if err := moveInto(path, filepath.Join(b.dir, dest)); err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if procErr != nil {
				report.Failed[filepath.Base(path)] = procErr
				b.logger.Warn("statement moved to failed", "file", filepath.Base(path), slog.Any("error", procErr))
				return nil
			}
			report.Processed = append(report.Processed, res)
			if b.Results != nil {
				b.Results(res)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	if len(files) > 0 {
		b.logger.Info("inbox sweep finished",
			"dir", b.dir,
			"processed", len(report.Processed),
			"failed", len(report.Failed),
		)
	}
	return report, nil
}

func moveInto(path, dir string) error {
	dest := filepath.Join(dir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		return fmt.Errorf("move %s: %w", filepath.Base(path), err)
	}
	return nil
}
