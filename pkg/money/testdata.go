package money

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// StatementLine is a generated bank statement line.
type StatementLine struct {
	Date        time.Time
	Description string
	Merchant    string
	Amount      *Money
	Credit      bool
}

// TestDataGenerator produces realistic statement data for tests and
// benchmarks.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator uses a random seed.
func NewTestDataGenerator() *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(0)}
}

// NewTestDataGeneratorWithSeed is reproducible across runs.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(seed)}
}

var (
	merchants = []string{
		"SWIGGY", "ZOMATO", "AMAZON PAY", "FLIPKART", "BIGBASKET", "UBER INDIA", "OLA CABS",
		"BOOKMYSHOW", "IRCTC", "RELIANCE FRESH", "DMART", "NETFLIX", "AIRTEL", "JIO RECHARGE",
	}
	rails = []string{"UPI", "POS", "NEFT", "IMPS"}
)

// Merchant returns a merchant name seen on Indian statements.
func (g *TestDataGenerator) Merchant() string {
	return merchants[g.faker.IntRange(0, len(merchants)-1)]
}

// Amount returns an INR amount between min and max rupees.
func (g *TestDataGenerator) Amount(minRupees, maxRupees int64) *Money {
	paise := g.faker.Int64()
	if paise < 0 {
		paise = -paise
	}
	span := (maxRupees - minRupees) * 100
	if span <= 0 {
		return New(minRupees*100, INR)
	}
	return New(minRupees*100+paise%span, INR)
}

// Line generates one debit or credit line dated within days of start.
func (g *TestDataGenerator) Line(start time.Time, days int) StatementLine {
	merchant := g.Merchant()
	rail := rails[g.faker.IntRange(0, len(rails)-1)]
	return StatementLine{
		Date:        start.AddDate(0, 0, g.faker.IntRange(0, days)),
		Description: fmt.Sprintf("%s/%d/%s", rail, g.faker.Number(100000000, 999999999), merchant),
		Merchant:    merchant,
		Amount:      g.Amount(10, 25000),
		Credit:      g.faker.Number(1, 10) == 1,
	}
}

// Lines generates count lines spread over days.
func (g *TestDataGenerator) Lines(start time.Time, days, count int) []StatementLine {
	out := make([]StatementLine, count)
	for i := range out {
		out[i] = g.Line(start, days)
	}
	return out
}
