// Command ingest imports bank and credit-card statements (PDF, CSV, Excel)
// into canonical, deduplicated transactions. It runs once over the given
// files or, with -watch, sweeps an inbox directory on a schedule.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/nagarjunveerapu/runway/internal/domain/ingest/service"
	"github.com/nagarjunveerapu/runway/pkg/config"
	"github.com/nagarjunveerapu/runway/pkg/cron"
	"github.com/nagarjunveerapu/runway/pkg/logger"
)

var (
	bankName = flag.String("bank", "", "Declared bank name or card profile (e.g. icici_credit_card)")
	format   = flag.String("format", FormatJSON, "Output format: json or csv")
	outPath  = flag.String("out", "", "Output file (default: stdout)")
	watchDir = flag.String("watch", "", "Inbox directory to sweep on WATCH_SCHEDULE")
	quiet    = flag.Bool("quiet", false, "Suppress the per-file summary")
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `ingest - bank and credit card statement importer

Usage:
  ingest [flags] FILE...
  ingest -watch DIR [flags]

Flags:
`)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *watchDir == "" && flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if *format != FormatJSON && *format != FormatCSV {
		fmt.Fprintf(os.Stderr, "Error: unknown -format %q\n", *format)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *watchDir != "" {
		cfg.Watch.Dir = *watchDir
	}

	log := logger.Setup(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	deps, err := InitDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	// the metrics server stops once the import work returns
	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(workCtx)
	if deps.Metrics != nil {
		g.Go(func() error {
			return deps.Metrics.Serve(gctx, cfg.Observability.MetricsPort, log)
		})
	}

	g.Go(func() error {
		defer cancel()
		if cfg.Watch.Dir != "" {
			return watch(gctx, deps, cfg.Watch)
		}
		return importFiles(gctx, deps, flag.Args())
	})

	return g.Wait()
}

// importFiles processes each file in order and writes all results at the end.
// A failing file is reported and the rest still run.
func importFiles(ctx context.Context, deps *Dependencies, paths []string) error {
	var results []*service.Result
	var failed int

	for _, path := range paths {
		res, err := deps.Pipeline.Process(ctx, service.Input{Path: path, BankName: *bankName})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			printFailure(os.Stderr, filepath.Base(path), err)
			failed++
			continue
		}
		if !*quiet {
			printSummary(os.Stderr, res)
		}
		results = append(results, res)
	}

	if err := emit(results, false); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}

// watch sweeps the inbox once at startup and then on the schedule until ctx
// is cancelled.
func watch(ctx context.Context, deps *Dependencies, cfg config.WatchConfig) error {
	inbox := service.NewInbox(cfg.Dir, deps.Pipeline, cfg.Workers, deps.Logger).WithBankName(*bankName)
	if !*quiet {
		inbox.Results = func(res *service.Result) { printSummary(os.Stderr, res) }
	}

	sweep := func(ctx context.Context) error {
		report, err := inbox.Sweep(ctx)
		if err != nil {
			return err
		}
		for file, ferr := range report.Failed {
			printFailure(os.Stderr, file, ferr)
		}
		if len(report.Processed) > 0 {
			return emit(report.Processed, true)
		}
		return nil
	}

	scheduler := cron.NewScheduler(0, deps.Logger)
	if err := scheduler.Add("inbox-sweep", cfg.Schedule, sweep); err != nil {
		return err
	}

	deps.Logger.Info("watching inbox", "dir", cfg.Dir, "schedule", cfg.Schedule, "workers", cfg.Workers)
	scheduler.RunNow("inbox-sweep", sweep)
	scheduler.Start()

	<-ctx.Done()
	scheduler.Stop()
	return nil
}

// emit writes results to -out or to stdout. Watch mode appends each sweep.
func emit(results []*service.Result, appendOut bool) error {
	var w io.Writer = os.Stdout
	if *outPath != "" {
		flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		if appendOut {
			flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		}
		f, err := os.OpenFile(*outPath, flags, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open output: %w", err)
		}
		defer f.Close()
		w = f
	}
	return writeTransactions(w, *format, results)
}
