// Package repository persists canonical transactions to PostgreSQL.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/nagarjunveerapu/runway/internal/domain/ingest/model"
	"github.com/nagarjunveerapu/runway/pkg/db"
)

// Replays of a statement line already stored for the account are skipped.
const insertTransaction = `
	INSERT INTO transactions (
		id, user_id, account_number, date, amount, type,
		description_raw, clean_description, merchant_raw, merchant_canonical,
		category, balance, source, bank_name, duplicate_count, metadata
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	ON CONFLICT (user_id, account_number, date, amount, description_raw, balance) DO NOTHING
`

// PostgresRepository stores transactions with pgx.
type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository creates a repository on conn.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// InsertBatch writes txns in one database transaction and returns how many
// rows were new. Flagged duplicates are not stored.
func (r *PostgresRepository) InsertBatch(ctx context.Context, userID uuid.UUID, accountNumber string, txns []model.Transaction) (int, error) {
	if len(txns) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	inserted := 0
	for _, t := range txns {
		if t.IsDuplicate {
			continue
		}

		metadata, err := encodeMetadata(t.Metadata)
		if err != nil {
			_ = tx.Rollback(ctx)
			return 0, fmt.Errorf("encode metadata of %s: %w", t.ID, err)
		}

		tag, err := tx.Exec(ctx, insertTransaction,
			t.ID, userID, accountNumber, t.Date, t.Amount, string(t.Type),
			t.DescriptionRaw, t.CleanDescription, t.MerchantRaw, t.MerchantCanonical,
			t.Category, t.Balance, string(t.Source), t.BankName, t.DuplicateCount, metadata,
		)
		if err != nil {
			_ = tx.Rollback(ctx)
			return 0, fmt.Errorf("failed to insert transaction %s: %w", t.ID, err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transactions: %w", err)
	}
	return inserted, nil
}

func encodeMetadata(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}
