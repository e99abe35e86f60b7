package normalizer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nagarjunveerapu/runway/pkg/db"
)

// Override match types.
const (
	MatchExact    = "exact"
	MatchContains = "contains"
	MatchRegex    = "regex"
)

// MerchantOverride represents a user's correction for a merchant
type MerchantOverride struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	MatchPattern string    `json:"match_pattern"`
	MatchType    string    `json:"match_type"` // "exact", "contains", "regex"
	MerchantName string    `json:"merchant_name"`
	Category     *string   `json:"category,omitempty"`
	MatchCount   int       `json:"match_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OverrideStore manages user merchant overrides in the database
type OverrideStore struct {
	db db.DBTX
}

// NewOverrideStore creates a new override store
func NewOverrideStore(conn db.DBTX) *OverrideStore {
	return &OverrideStore{db: conn}
}

// SaveOverride creates or updates a user's merchant override
func (s *OverrideStore) SaveOverride(ctx context.Context, override MerchantOverride) (*MerchantOverride, error) {
	query := `
		INSERT INTO merchant_overrides (
			user_id, match_pattern, match_type, merchant_name, category
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, match_pattern) DO UPDATE SET
			match_type = EXCLUDED.match_type,
			merchant_name = EXCLUDED.merchant_name,
			category = EXCLUDED.category,
			updated_at = now()
		RETURNING id, user_id, match_pattern, match_type, merchant_name, category,
			match_count, created_at, updated_at
	`

	var result MerchantOverride
	err := s.db.QueryRow(ctx, query,
		override.UserID,
		override.MatchPattern,
		override.MatchType,
		override.MerchantName,
		override.Category,
	).Scan(
		&result.ID, &result.UserID, &result.MatchPattern, &result.MatchType,
		&result.MerchantName, &result.Category,
		&result.MatchCount, &result.CreatedAt, &result.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("save merchant override: %w", err)
	}
	return &result, nil
}

// GetOverridesForUser returns all overrides for a user, most used first
func (s *OverrideStore) GetOverridesForUser(ctx context.Context, userID uuid.UUID) ([]MerchantOverride, error) {
	query := `
		SELECT id, user_id, match_pattern, match_type, merchant_name, category,
			match_count, created_at, updated_at
		FROM merchant_overrides
		WHERE user_id = $1
		ORDER BY match_count DESC, updated_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query merchant overrides: %w", err)
	}
	defer rows.Close()

	var overrides []MerchantOverride
	for rows.Next() {
		var o MerchantOverride
		err := rows.Scan(
			&o.ID, &o.UserID, &o.MatchPattern, &o.MatchType,
			&o.MerchantName, &o.Category,
			&o.MatchCount, &o.CreatedAt, &o.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan merchant override: %w", err)
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// DeleteOverride removes an override
func (s *OverrideStore) DeleteOverride(ctx context.Context, userID, overrideID uuid.UUID) error {
	query := `DELETE FROM merchant_overrides WHERE id = $1 AND user_id = $2`
	result, err := s.db.Exec(ctx, query, overrideID, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
