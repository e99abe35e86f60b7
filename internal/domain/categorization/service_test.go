package categorization

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ruleColumns = []string{"id", "user_id", "keyword", "category", "priority"}

type stubStore struct {
	rules []Rule
	err   error
}

func (s stubStore) ListRules(context.Context, uuid.UUID) ([]Rule, error) {
	return s.rules, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ============================================================================
// Predictor
// ============================================================================

func TestPredictor_Predict(t *testing.T) {
	p := NewPredictor(testLogger())

	category, confidence := p.Predict("POS ZOMATO ONLINE ORDER")
	assert.Equal(t, FoodDining, category)
	assert.GreaterOrEqual(t, confidence, 0.5)

	category, confidence = p.Predict("TRANSFER TO SELF")
	assert.Empty(t, category)
	assert.Zero(t, confidence)
}

func TestPredictor_LoadUserRules(t *testing.T) {
	userID := uuid.New()
	p := NewPredictor(testLogger())

	err := p.Load(context.Background(), stubStore{rules: []Rule{
		{ID: uuid.New(), UserID: &userID, Keyword: "RENT TO LANDLORD", Category: "Housing"},
		{ID: uuid.New(), UserID: &userID, Keyword: "ZOMATO", Category: "Work Meals"},
	}}, userID)
	require.NoError(t, err)

	category, confidence := p.Predict("IMPS/RENT TO LANDLORD/OCT")
	assert.Equal(t, "Housing", category)
	assert.InDelta(t, 0.95, confidence, 1e-9)

	category, _ = p.Predict("ZOMATO ORDER 5521")
	assert.Equal(t, "Work Meals", category)

	// built-ins survive a reload
	category, _ = p.Predict("NETFLIX SUBSCRIPTION")
	assert.Equal(t, Entertainment, category)
}

func TestPredictor_LoadError(t *testing.T) {
	p := NewPredictor(testLogger())
	boom := errors.New("connection refused")

	err := p.Load(context.Background(), stubStore{err: boom}, uuid.New())
	require.ErrorIs(t, err, boom)

	category, _ := p.Predict("NETFLIX")
	assert.Equal(t, Entertainment, category)
}

// ============================================================================
// Repository with Mock Database
// ============================================================================

func TestRepository_ListRules(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	ruleID := uuid.New()

	mock.ExpectQuery(`SELECT id, user_id, keyword, category, priority\s+FROM category_rules`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(ruleColumns).
			AddRow(ruleID, &userID, "CHAI POINT", FoodDining, 5))

	rules, err := NewRepository(mock).ListRules(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, ruleID, rules[0].ID)
	assert.Equal(t, "CHAI POINT", rules[0].Keyword)
	assert.Equal(t, 5, rules[0].Priority)
	require.NotNil(t, rules[0].UserID)
	assert.Equal(t, userID, *rules[0].UserID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SaveRule(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	ruleID := uuid.New()

	mock.ExpectQuery(`INSERT INTO category_rules`).
		WithArgs(userID, "CHAI POINT", FoodDining, 5).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(ruleID))

	rule := &Rule{UserID: &userID, Keyword: " chai point ", Category: FoodDining, Priority: 5}
	require.NoError(t, NewRepository(mock).SaveRule(context.Background(), rule))
	assert.Equal(t, ruleID, rule.ID)
	assert.Equal(t, "CHAI POINT", rule.Keyword)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SaveRuleNeedsUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	err = NewRepository(mock).SaveRule(context.Background(), &Rule{Keyword: "X", Category: Shopping})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindRuleByKeyword(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()

	mock.ExpectQuery(`FROM category_rules\s+WHERE user_id = \$1 AND keyword = \$2`).
		WithArgs(userID, "UNKNOWN").
		WillReturnError(pgx.ErrNoRows)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rule, err := NewRepository(mock).FindRuleByKeyword(ctx, userID, "unknown")
	require.NoError(t, err)
	assert.Nil(t, rule)

	assert.NoError(t, mock.ExpectationsWereMet())
}
