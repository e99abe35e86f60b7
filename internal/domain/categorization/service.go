package categorization

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
)

// RuleStore loads user-defined rules. *Repository implements it.
type RuleStore interface {
	ListRules(ctx context.Context, userID uuid.UUID) ([]Rule, error)
}

// Predictor assigns categories from the built-in keyword set plus any rules
// loaded for a user. It is safe for concurrent use.
type Predictor struct {
	engine *Engine
	logger *slog.Logger
}

// NewPredictor creates a predictor with the built-in keywords loaded.
func NewPredictor(logger *slog.Logger) *Predictor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Predictor{engine: NewEngine(DefaultRules()), logger: logger}
}

// Load rebuilds the keyword set from the built-in rules and the user's rules.
func (p *Predictor) Load(ctx context.Context, store RuleStore, userID uuid.UUID) error {
	userRules, err := store.ListRules(ctx, userID)
	if err != nil {
		return fmt.Errorf("load category rules: %w", err)
	}
	p.engine.Build(slices.Concat(DefaultRules(), userRules))
	p.logger.Info("category rules loaded",
		"user_id", userID,
		"user_rules", len(userRules),
		"keywords", p.engine.PatternCount(),
	)
	return nil
}

// Predict returns a category and a confidence between 0 and 1. An empty
// category with zero confidence means nothing matched.
func (p *Predictor) Predict(text string) (string, float64) {
	m := p.engine.Match(text)
	if m == nil {
		return "", 0
	}
	return m.Category, m.Confidence()
}
