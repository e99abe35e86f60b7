// Package service runs a statement file through the ingestion pipeline:
// parse, normalize, enrich, deduplicate and optionally persist. A Pipeline
// holds no per-file state, so one instance can serve concurrent calls.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nagarjunveerapu/runway/internal/domain/ingest/creditcard"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/dedup"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/model"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/normalizer"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/parser"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/pdf"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/sniffer"
	"github.com/nagarjunveerapu/runway/pkg/metrics"
)

// Enrichment thresholds.
const (
	MinMerchantConfidence = 60
	MinCategoryConfidence = 0.5
)

const tracerName = "github.com/nagarjunveerapu/runway/internal/domain/ingest/service"

// MerchantNormalizer canonicalizes a raw merchant name with a 0-100
// confidence.
type MerchantNormalizer interface {
	Normalize(rawName string) (string, int)
}

// CategoryPredictor predicts a category with a 0-1 confidence.
type CategoryPredictor interface {
	Predict(text string) (string, float64)
}

// Persistence stores imported transactions and reports how many were new.
type Persistence interface {
	InsertBatch(ctx context.Context, userID uuid.UUID, accountNumber string, txns []model.Transaction) (int, error)
}

// Config selects the PDF strategies and the duplicate rules.
type Config struct {
	PDF   pdf.Config
	Dedup dedup.Config
}

// Input names one statement file. BankName is the declared bank or a card
// profile key such as "icici_credit_card"; it may be empty.
type Input struct {
	Path     string
	BankName string
}

// Result is the outcome of one pipeline run.
type Result struct {
	File   string       `json:"file"`
	Source model.Source `json:"source"`
	// Found is the number of records handed to the normalizer.
	Found        int                     `json:"found"`
	Normalized   int                     `json:"normalized"`
	Dropped      []model.RecordError     `json:"dropped,omitempty"`
	RowErrors    []model.RowError        `json:"row_errors,omitempty"`
	Imported     int                     `json:"imported"`
	Transactions []model.Transaction     `json:"transactions"`
	Stats        dedup.Stats             `json:"stats"`
	Metadata     model.StatementMetadata `json:"metadata"`
	// Strategy and Attempts are set for PDF files.
	Strategy       string                  `json:"strategy,omitempty"`
	Attempts       []model.StrategyAttempt `json:"attempts,omitempty"`
	AmbiguousTypes int                     `json:"ambiguous_types"`
	EMIGroups      int                     `json:"emi_groups,omitempty"`
	EMIAbsorbed    int                     `json:"emi_absorbed,omitempty"`
	Inserted       int                     `json:"inserted"`
	Elapsed        time.Duration           `json:"elapsed"`
}

// Pipeline wires the parsers, the normalizer and the detector together.
type Pipeline struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	csv      *parser.Parser
	pdf      *pdf.Extractor
	cardPDF  *pdf.Extractor
	detector *dedup.Detector

	merchants  MerchantNormalizer
	categories CategoryPredictor
	store      Persistence
	userID     uuid.UUID
	metrics    *metrics.Metrics
}

// NewPipeline creates a pipeline with the default PDF strategy chains.
func NewPipeline(cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
		csv:      parser.NewParser(logger),
		pdf:      pdf.NewExtractor(cfg.PDF, logger),
		cardPDF:  pdf.NewCardExtractor(cfg.PDF, logger),
		detector: dedup.NewDetector(cfg.Dedup, logger),
	}
}

// WithExtractors replaces the bank and card PDF chains.
func (p *Pipeline) WithExtractors(bank, card *pdf.Extractor) *Pipeline {
	p.pdf, p.cardPDF = bank, card
	return p
}

// WithMerchantNormalizer fills merchant_canonical on confident matches.
func (p *Pipeline) WithMerchantNormalizer(m MerchantNormalizer) *Pipeline {
	p.merchants = m
	return p
}

// WithCategoryPredictor fills empty categories on confident predictions.
func (p *Pipeline) WithCategoryPredictor(c CategoryPredictor) *Pipeline {
	p.categories = c
	return p
}

// WithPersistence stores imported transactions for userID.
func (p *Pipeline) WithPersistence(store Persistence, userID uuid.UUID) *Pipeline {
	p.store, p.userID = store, userID
	return p
}

// WithMetrics records pipeline and strategy metrics on m.
func (p *Pipeline) WithMetrics(m *metrics.Metrics) *Pipeline {
	p.metrics = m
	if m != nil {
		p.pdf.WithObserver(m.ObserveStrategy)
		p.cardPDF.WithObserver(m.ObserveStrategy)
	}
	return p
}

// parsed is the parser-independent outcome of the parse stage.
type parsed struct {
	records     []model.RawRecord
	metadata    model.StatementMetadata
	dialect     sniffer.Dialect
	source      model.Source
	strategy    string
	attempts    []model.StrategyAttempt
	rowErrors   []model.RowError
	emiGroups   int
	emiAbsorbed int
}

// Process runs one statement file through the pipeline. Structural failures
// (no PDF strategy produced rows, unresolvable CSV header, unsupported file
// type) fail the run; per-row and per-record problems are reported in the
// result.
func (p *Pipeline) Process(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()
	name := filepath.Base(in.Path)

	ctx, span := p.tracer.Start(ctx, "ingest.Process", trace.WithAttributes(
		attribute.String("file", name),
		attribute.String("bank", in.BankName),
	))
	defer span.End()

	result, err := p.process(ctx, in, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.metrics.ObservePipeline("error", time.Since(start))
		p.logger.Warn("statement import failed", "file", name, slog.Any("error", err))
		return nil, err
	}

	result.Elapsed = time.Since(start)
	p.metrics.ObservePipeline("success", result.Elapsed)
	span.SetAttributes(
		attribute.Int("found", result.Found),
		attribute.Int("imported", result.Imported),
	)

	p.logger.Info("statement imported",
		"file", name,
		"source", result.Source,
		"strategy", result.Strategy,
		"found", result.Found,
		"normalized", result.Normalized,
		"dropped", len(result.Dropped),
		"imported", result.Imported,
		"inserted", result.Inserted,
		"elapsed", result.Elapsed,
	)
	return result, nil
}

func (p *Pipeline) process(ctx context.Context, in Input, name string) (*Result, error) {
	profile, isCard := creditcard.LookupProfile(in.BankName)

	pr, err := p.parse(ctx, in, name, profile, isCard)
	if err != nil {
		return nil, err
	}

	bankName := in.BankName
	if isCard || bankName == "" {
		bankName = firstNonEmpty(pr.metadata.BankName, profile.Bank)
	}
	pr.metadata.Merge(model.StatementMetadata{BankName: bankName})

	result := &Result{
		File:        name,
		Source:      pr.source,
		Found:       len(pr.records),
		RowErrors:   pr.rowErrors,
		Metadata:    pr.metadata,
		Strategy:    pr.strategy,
		Attempts:    pr.attempts,
		EMIGroups:   pr.emiGroups,
		EMIAbsorbed: pr.emiAbsorbed,
	}

	_, nspan := p.tracer.Start(ctx, "ingest.normalize")
	report := normalizer.New(p.logger).
		WithEuropeanAmounts(pr.dialect.IsEuropean).
		WithDateFormat(pr.dialect.DateFormat).
		Normalize(pr.records, bankName)
	nspan.SetAttributes(attribute.Int("normalized", len(report.Transactions)), attribute.Int("dropped", len(report.Failures)))
	nspan.End()

	result.Normalized = len(report.Transactions)
	result.Dropped = report.Failures
	result.AmbiguousTypes = report.Ambiguous
	p.metrics.RecordNormalized(string(pr.source), len(report.Transactions), len(report.Failures))

	txns := p.enrich(report.Transactions)

	_, dspan := p.tracer.Start(ctx, "ingest.dedup")
	txns, result.Stats = p.detector.Detect(txns)
	dspan.SetAttributes(attribute.Int("flagged", result.Stats.Flagged), attribute.Int("merged", result.Stats.Merged))
	dspan.End()
	p.metrics.RecordDuplicates(result.Stats.Flagged, result.Stats.Merged)

	result.Transactions = txns
	result.Imported = result.Stats.Unique

	if p.store != nil {
		pctx, pspan := p.tracer.Start(ctx, "ingest.persist")
		inserted, err := p.store.InsertBatch(pctx, p.userID, pr.metadata.AccountNumber, txns)
		if err != nil {
			pspan.RecordError(err)
			pspan.End()
			return nil, fmt.Errorf("persist %s: %w", name, err)
		}
		pspan.End()
		result.Inserted = inserted
	}

	return result, nil
}

func (p *Pipeline) parse(ctx context.Context, in Input, name string, profile creditcard.Profile, isCard bool) (*parsed, error) {
	ctx, span := p.tracer.Start(ctx, "ingest.parse")
	defer span.End()

	switch strings.ToLower(filepath.Ext(in.Path)) {
	case ".pdf":
		return p.parsePDF(ctx, in.Path, profile, isCard)
	case ".csv", ".txt", ".tsv", ".xlsx", ".xlsm":
		return p.parseTable(in.Path, name, profile, isCard)
	}
	return nil, fmt.Errorf("%s: %w", name, model.ErrUnsupportedFile)
}

// parseTable routes a delimited or spreadsheet statement to the card parser
// when the bank is a card profile or the header block shows a masked card.
func (p *Pipeline) parseTable(path, name string, profile creditcard.Profile, isCard bool) (*parsed, error) {
	table, source, err := parser.LoadTable(path)
	if err != nil {
		return nil, err
	}

	if isCard || creditcard.MaskedCard(table.Preamble()) {
		res, err := creditcard.NewParser(p.logger).WithProfile(profile).ParseTable(table, name, source)
		if err != nil {
			return nil, err
		}
		return &parsed{
			records:     res.Records(),
			metadata:    res.Metadata,
			dialect:     res.Dialect,
			source:      source,
			rowErrors:   res.Errors,
			emiGroups:   res.EMIGroups,
			emiAbsorbed: res.EMIAbsorbed,
		}, nil
	}

	res, err := p.csv.ParseTable(table, name, source)
	if err != nil {
		return nil, err
	}
	return &parsed{
		records:   res.Records,
		metadata:  res.Metadata,
		dialect:   res.Dialect,
		source:    source,
		rowErrors: res.Errors,
	}, nil
}

func (p *Pipeline) parsePDF(ctx context.Context, path string, profile creditcard.Profile, isCard bool) (*parsed, error) {
	extractor := p.pdf
	if isCard {
		extractor = p.cardPDF
	}

	res, err := extractor.Extract(ctx, path)
	if err != nil {
		return nil, err
	}

	out := &parsed{
		records:  res.Records(),
		metadata: res.Metadata,
		source:   model.SourcePDF,
		strategy: res.Strategy,
		attempts: res.Attempts,
	}

	if !isCard && !creditcard.MaskedCard(res.Preamble) {
		return out, nil
	}

	cons, err := creditcard.Consolidate(creditcard.FromPDFRows(res.Rows))
	if err != nil {
		return nil, fmt.Errorf("consolidate %s: %w", filepath.Base(path), err)
	}
	records := make([]model.RawRecord, len(cons.Rows))
	for i, r := range cons.Rows {
		records[i] = r
	}

	meta := creditcard.CardMetadata(res.Preamble)
	meta.Merge(res.Metadata)
	meta.AccountType = "Credit Card"
	if meta.BankName == "" {
		meta.BankName = profile.Bank
	}

	out.records = records
	out.metadata = meta
	out.emiGroups = cons.Groups
	out.emiAbsorbed = cons.Absorbed
	return out, nil
}

// enrich fills merchant_canonical and category from the injected
// collaborators. Consolidated EMI rows keep their category.
func (p *Pipeline) enrich(txns []model.Transaction) []model.Transaction {
	if p.merchants == nil && p.categories == nil {
		return txns
	}

	for i := range txns {
		t := &txns[i]

		if p.merchants != nil {
			if raw := firstNonEmpty(t.MerchantRaw, t.CleanDescription); raw != "" {
				if name, conf := p.merchants.Normalize(raw); name != "" && conf >= MinMerchantConfidence {
					t.MerchantCanonical = name
				}
			}
		}

		if p.categories != nil && t.Category == "" {
			text := strings.TrimSpace(t.MerchantCanonical + " " + t.DescriptionRaw)
			if category, conf := p.categories.Predict(text); category != "" && conf >= MinCategoryConfidence {
				t.Category = category
			}
		}
	}
	return txns
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
