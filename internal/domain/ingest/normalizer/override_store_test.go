package normalizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var overrideColumns = []string{
	"id", "user_id", "match_pattern", "match_type", "merchant_name",
	"category", "match_count", "created_at", "updated_at",
}

// ============================================================================
// Integration Tests with Mock Database
// ============================================================================

func TestOverrideStore_SaveOverride(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	overrideID := uuid.New()
	now := time.Now()
	category := "Food & Dining"

	mock.ExpectQuery(`INSERT INTO merchant_overrides`).
		WithArgs(userID, "CHAI POINT", MatchContains, "Chai Point", &category).
		WillReturnRows(pgxmock.NewRows(overrideColumns).AddRow(
			overrideID, userID, "CHAI POINT", MatchContains, "Chai Point",
			&category, 0, now, now,
		))

	store := NewOverrideStore(mock)
	saved, err := store.SaveOverride(context.Background(), MerchantOverride{
		UserID:       userID,
		MatchPattern: "CHAI POINT",
		MatchType:    MatchContains,
		MerchantName: "Chai Point",
		Category:     &category,
	})

	require.NoError(t, err)
	assert.Equal(t, overrideID, saved.ID)
	assert.Equal(t, "Chai Point", saved.MerchantName)
	require.NotNil(t, saved.Category)
	assert.Equal(t, category, *saved.Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverrideStore_SaveOverride_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	category := "Shopping"
	mock.ExpectQuery(`INSERT INTO merchant_overrides`).
		WithArgs(userID, "DMART", MatchExact, "DMart", &category).
		WillReturnError(errors.New("connection reset"))

	_, err = NewOverrideStore(mock).SaveOverride(context.Background(), MerchantOverride{
		UserID: userID, MatchPattern: "DMART", MatchType: MatchExact, MerchantName: "DMart", Category: &category,
	})
	assert.ErrorContains(t, err, "save merchant override")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverrideStore_GetOverridesForUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	now := time.Now()
	category := "Groceries"

	mock.ExpectQuery(`SELECT id, user_id, match_pattern`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(overrideColumns).AddRow(
			uuid.New(), userID, "BIGBASKET", MatchContains, "BigBasket",
			&category, 5, now, now,
		).AddRow(
			uuid.New(), userID, "corner cafe", MatchExact, "Corner Cafe",
			nil, 3, now, now,
		))

	overrides, err := NewOverrideStore(mock).GetOverridesForUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, overrides, 2)
	assert.Equal(t, "BigBasket", overrides[0].MerchantName)
	assert.Equal(t, 5, overrides[0].MatchCount)
	assert.Nil(t, overrides[1].Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverrideStore_DeleteOverride(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	overrideID := uuid.New()

	mock.ExpectExec(`DELETE FROM merchant_overrides`).
		WithArgs(overrideID, userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err = NewOverrideStore(mock).DeleteOverride(context.Background(), userID, overrideID)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverrideStore_DeleteOverride_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	overrideID := uuid.New()

	mock.ExpectExec(`DELETE FROM merchant_overrides`).
		WithArgs(overrideID, userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err = NewOverrideStore(mock).DeleteOverride(context.Background(), userID, overrideID)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ============================================================================
// Override application
// ============================================================================

func TestOverrideApplication_LoadedOverridesFeedSanitizer(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT id, user_id, match_pattern`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(overrideColumns).AddRow(
			uuid.New(), userID, "SWIGGY", MatchContains, "Swiggy Office Lunch",
			nil, 1, now, now,
		))

	overrides, err := NewOverrideStore(mock).GetOverridesForUser(context.Background(), userID)
	require.NoError(t, err)

	name, confidence := NewMerchantSanitizer().WithOverrides(overrides).Normalize("UPI/412345678901/SWIGGY LTD/swiggy@icici")
	assert.Equal(t, "Swiggy Office Lunch", name)
	assert.Equal(t, ConfidenceOverride, confidence)
}
