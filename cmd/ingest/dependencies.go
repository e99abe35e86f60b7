package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nagarjunveerapu/runway/internal/domain/categorization"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/dedup"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/normalizer"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/pdf"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/repository"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/service"
	"github.com/nagarjunveerapu/runway/pkg/config"
	"github.com/nagarjunveerapu/runway/pkg/db"
	"github.com/nagarjunveerapu/runway/pkg/metrics"
)

// Dependencies holds everything the command wires together.
type Dependencies struct {
	Config  *config.Config
	DB      *db.DB
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// Repositories, set only when persistence is enabled
	TransactionRepo *repository.PostgresRepository
	RuleRepo        *categorization.Repository
	OverrideStore   *normalizer.OverrideStore

	Merchants *normalizer.MerchantSanitizer
	Predictor *categorization.Predictor
	Pipeline  *service.Pipeline

	userID uuid.UUID
}

// InitDependencies initializes all command dependencies.
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Observability.MetricsEnabled {
		deps.Metrics = metrics.New()
	}

	if cfg.Persistence.Enabled {
		userID, err := uuid.Parse(cfg.Persistence.UserID)
		if err != nil {
			return nil, fmt.Errorf("invalid PERSIST_USER_ID: %w", err)
		}
		deps.userID = userID

		if err := deps.initDatabase(); err != nil {
			deps.Close()
			return nil, fmt.Errorf("failed to init database: %w", err)
		}
		deps.initRepositories()
	}

	if err := deps.initServices(ctx); err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	logger.Info("all dependencies initialized successfully",
		"persistence", cfg.Persistence.Enabled,
		"metrics", cfg.Observability.MetricsEnabled,
	)
	return deps, nil
}

// initDatabase connects to PostgreSQL and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}
	d.DB = database

	if err := database.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (d *Dependencies) initRepositories() {
	d.TransactionRepo = repository.NewPostgresRepository(d.DB.Pool)
	d.RuleRepo = categorization.NewRepository(d.DB.Pool)
	d.OverrideStore = normalizer.NewOverrideStore(d.DB.Pool)
}

// initServices builds the enrichment collaborators and the pipeline. With
// persistence on, the user's category rules and merchant overrides are
// loaded before the first file.
func (d *Dependencies) initServices(ctx context.Context) error {
	d.Merchants = normalizer.NewMerchantSanitizer()
	d.Predictor = categorization.NewPredictor(d.Logger)

	if d.DB != nil {
		if err := d.Predictor.Load(ctx, d.RuleRepo, d.userID); err != nil {
			return err
		}
		overrides, err := d.OverrideStore.GetOverridesForUser(ctx, d.userID)
		if err != nil {
			return fmt.Errorf("failed to load merchant overrides: %w", err)
		}
		d.Merchants.WithOverrides(overrides)
	}

	cfg := d.Config
	d.Pipeline = service.NewPipeline(service.Config{
		PDF: pdf.Config{
			EnableHeavyTable: cfg.PDF.EnableHeavyTable,
			EnableOCR:        cfg.PDF.EnableOCR,
			StrategyTimeout:  cfg.PDF.StrategyTimeout,
			OCRCommand:       cfg.PDF.OCRCommand,
			OCRDPI:           cfg.PDF.OCRDPI,
		},
		Dedup: dedup.Config{
			TimeWindowDays:  cfg.Dedup.TimeWindowDays,
			AmountTolerance: cfg.Dedup.AmountTolerance,
			FuzzyThreshold:  cfg.Dedup.FuzzyThreshold,
			MergeDuplicates: cfg.Dedup.MergeDuplicates,
			LookBack:        cfg.Dedup.LookBack,
		},
	}, d.Logger).
		WithMerchantNormalizer(d.Merchants).
		WithCategoryPredictor(d.Predictor).
		WithMetrics(d.Metrics)

	if d.TransactionRepo != nil {
		d.Pipeline.WithPersistence(d.TransactionRepo, d.userID)
	}
	return nil
}

// Close releases the database pool.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
