package categorization

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nagarjunveerapu/runway/pkg/db"
)

// Repository handles database operations for user category rules
type Repository struct {
	db db.DBTX
}

// NewRepository creates a new categorization repository
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// ListRules fetches a user's keyword rules, highest priority first
func (r *Repository) ListRules(ctx context.Context, userID uuid.UUID) ([]Rule, error) {
	query := `
		SELECT id, user_id, keyword, category, priority
		FROM category_rules
		WHERE user_id = $1
		ORDER BY priority DESC, created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query category rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var rule Rule
		if err := rows.Scan(&rule.ID, &rule.UserID, &rule.Keyword, &rule.Category, &rule.Priority); err != nil {
			return nil, fmt.Errorf("scan category rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// SaveRule creates a rule or updates the category of an existing keyword
func (r *Repository) SaveRule(ctx context.Context, rule *Rule) error {
	if rule.UserID == nil {
		return errors.New("category rule needs a user")
	}

	query := `
		INSERT INTO category_rules (user_id, keyword, category, priority)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, keyword) DO UPDATE SET
			category = EXCLUDED.category,
			priority = EXCLUDED.priority
		RETURNING id
	`

	keyword := strings.ToUpper(strings.TrimSpace(rule.Keyword))
	if err := r.db.QueryRow(ctx, query, *rule.UserID, keyword, rule.Category, rule.Priority).Scan(&rule.ID); err != nil {
		return fmt.Errorf("save category rule: %w", err)
	}
	rule.Keyword = keyword
	return nil
}

// FindRuleByKeyword returns nil when the user has no rule for keyword
func (r *Repository) FindRuleByKeyword(ctx context.Context, userID uuid.UUID, keyword string) (*Rule, error) {
	query := `
		SELECT id, user_id, keyword, category, priority
		FROM category_rules
		WHERE user_id = $1 AND keyword = $2
	`

	var rule Rule
	err := r.db.QueryRow(ctx, query, userID, strings.ToUpper(strings.TrimSpace(keyword))).
		Scan(&rule.ID, &rule.UserID, &rule.Keyword, &rule.Category, &rule.Priority)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category rule: %w", err)
	}
	return &rule, nil
}
