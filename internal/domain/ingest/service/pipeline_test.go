package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nagarjunveerapu/runway/internal/domain/categorization"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/dedup"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/model"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/pdf"
	"github.com/nagarjunveerapu/runway/pkg/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// the SWIGGY line is replayed with a later balance
const savingsStatement = `HDFC BANK Ltd.
Statement of account
Account Number,,123456789012 ( INR ) - JOHN DOE
Account Type,Savings
Statement From,01/10/2025,To,31/10/2025
Txn Date,Particulars,Withdrawal Amt,Deposit Amt,Balance
01/10/2025,UPI/412345678901/SWIGGY LTD/swiggy@icici,250.00,,44750.00
01/10/2025,UPI/412345678901/SWIGGY LTD/swiggy@icici,250.00,,44500.00
02/10/2025,NEFT-HDFC0001234-ACME CORP SALARY,,"85,000.00","1,29,500.00"
,  continued narration line,,,
03/10/2025,ATM WDL MG ROAD,2000.00,,127500.00
`

const cardStatement = `Accountno:,0000XXXXXXXX1234
Customer Name:,MR RAHUL VERMA
Statement Period:,16/09/2025 To 15/10/2025
Transaction Details:
Date,Sr.No.,Transaction Details,Reward Point Header,Intl.Amount,Amount(in Rs),BillingAmountSign
01/10/2025,1,AMAZON PAY INDIA,12,,999.00,
03/10/2025,2,PAYMENT RECEIVED - THANK YOU,0,,"15,000.00",CR
15/10/2025,3,IGST-CI@18% <2/6> ABC,0,,22.50,
15/10/2025,4,EMI PRINCIPAL <2/6> ABC,0,,5000.00,
15/10/2025,5,INTEREST AMORTIZATION <2/6> ABC,0,,250.00,
15/10/2025,6,CGST-CI@9% <2/6> ABC,0,,22.50,
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type stubMerchants struct{}

func (stubMerchants) Normalize(raw string) (string, int) {
	if strings.Contains(strings.ToUpper(raw), "SWIGGY") {
		return "Swiggy", 92
	}
	return "Unknown", 10
}

type fixedCategory struct{ category string }

func (f fixedCategory) Predict(string) (string, float64) { return f.category, 1 }

type recordingStore struct {
	userID  uuid.UUID
	account string
	txns    []model.Transaction
	err     error
}

func (s *recordingStore) InsertBatch(_ context.Context, userID uuid.UUID, account string, txns []model.Transaction) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.userID, s.account, s.txns = userID, account, txns
	return len(txns), nil
}

type fakeStrategy struct {
	name string
	ext  *pdf.Extraction
	err  error
}

func (f fakeStrategy) Name() string { return f.name }

func (f fakeStrategy) Extract(context.Context, string) (*pdf.Extraction, error) {
	return f.ext, f.err
}

func newPipeline() *Pipeline {
	return NewPipeline(Config{Dedup: dedup.DefaultConfig()}, testLogger())
}

func byDescription(txns []model.Transaction, prefix string) *model.Transaction {
	for i := range txns {
		if strings.HasPrefix(txns[i].DescriptionRaw, prefix) {
			return &txns[i]
		}
	}
	return nil
}

// ============================================================================
// Delimited statements
// ============================================================================

func TestProcess_BankCSV(t *testing.T) {
	path := writeFile(t, "oct.csv", savingsStatement)
	store := &recordingStore{}
	userID := uuid.New()

	p := newPipeline().
		WithMerchantNormalizer(stubMerchants{}).
		WithCategoryPredictor(categorization.NewPredictor(testLogger())).
		WithPersistence(store, userID).
		WithMetrics(metrics.New())

	res, err := p.Process(context.Background(), Input{Path: path})
	require.NoError(t, err)

	assert.Equal(t, "oct.csv", res.File)
	assert.Equal(t, model.SourceCSV, res.Source)
	assert.Equal(t, 4, res.Found)
	assert.Equal(t, 4, res.Normalized)
	assert.Empty(t, res.Dropped)
	assert.Equal(t, 3, res.Imported)
	assert.Equal(t, 1, res.Stats.Merged)
	assert.Equal(t, 3, res.Inserted)
	assert.Empty(t, res.Strategy)

	assert.Equal(t, "123456789012", res.Metadata.AccountNumber)
	assert.Equal(t, "HDFC Bank", res.Metadata.BankName)

	require.Len(t, res.Transactions, 3)
	swiggy := byDescription(res.Transactions, "UPI/")
	require.NotNil(t, swiggy)
	assert.Equal(t, 1, swiggy.DuplicateCount)
	assert.Equal(t, "Swiggy", swiggy.MerchantCanonical)
	assert.Equal(t, categorization.FoodDining, swiggy.Category)
	assert.Equal(t, "HDFC Bank", swiggy.BankName)

	atm := byDescription(res.Transactions, "ATM")
	require.NotNil(t, atm)
	assert.Empty(t, atm.MerchantCanonical, "low-confidence merchant is not applied")
	assert.Equal(t, categorization.Cash, atm.Category)

	salary := byDescription(res.Transactions, "NEFT")
	require.NotNil(t, salary)
	assert.Equal(t, model.Credit, salary.Type)
	assert.Equal(t, categorization.Income, salary.Category)
	assert.Equal(t, "NEFT-HDFC0001234-ACME CORP SALARY continued narration line", salary.DescriptionRaw)

	assert.Equal(t, userID, store.userID)
	assert.Equal(t, "123456789012", store.account)
	assert.Len(t, store.txns, 3)
}

func TestProcess_SignedAmountColumn(t *testing.T) {
	path := writeFile(t, "export.csv", `Date,Description,Amount
2025-10-01,SALARY OCT,25000.00
2025-10-02,SWIGGY,-430.00
`)

	res, err := newPipeline().Process(context.Background(), Input{Path: path})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)
	assert.Zero(t, res.AmbiguousTypes)

	salary := byDescription(res.Transactions, "SALARY")
	require.NotNil(t, salary)
	assert.Equal(t, model.Credit, salary.Type)
	assert.Equal(t, 25000.0, salary.Amount)
	assert.False(t, salary.TypeInferred)

	swiggy := byDescription(res.Transactions, "SWIGGY")
	require.NotNil(t, swiggy)
	assert.Equal(t, model.Debit, swiggy.Type)
	assert.Equal(t, 430.0, swiggy.Amount)
}

func TestProcess_DeclaredBankWins(t *testing.T) {
	path := writeFile(t, "oct.csv", savingsStatement)

	res, err := newPipeline().Process(context.Background(), Input{Path: path, BankName: "My Bank"})
	require.NoError(t, err)
	for _, txn := range res.Transactions {
		assert.Equal(t, "My Bank", txn.BankName)
	}
}

func TestProcess_CardCSV(t *testing.T) {
	for _, bank := range []string{"icici_credit_card", ""} {
		t.Run("bank="+bank, func(t *testing.T) {
			path := writeFile(t, "card.csv", cardStatement)

			p := newPipeline().WithCategoryPredictor(fixedCategory{"Shopping"})
			res, err := p.Process(context.Background(), Input{Path: path, BankName: bank})
			require.NoError(t, err)

			assert.Equal(t, 1, res.EMIGroups)
			assert.Equal(t, 4, res.EMIAbsorbed)
			assert.Equal(t, 3, res.Found)
			assert.Equal(t, 3, res.Imported)
			assert.Equal(t, "1234", res.Metadata.CardLast4Digits)
			assert.Equal(t, "Credit Card", res.Metadata.AccountType)

			emi := byDescription(res.Transactions, "EMI <2/6>")
			require.NotNil(t, emi)
			assert.Equal(t, 5295.0, emi.Amount)
			assert.Equal(t, model.CategoryEMI, emi.Category)
			assert.Equal(t, true, emi.Metadata["consolidated"])

			amazon := byDescription(res.Transactions, "AMAZON")
			require.NotNil(t, amazon)
			assert.Equal(t, "Shopping", amazon.Category)
		})
	}
}

func TestProcess_CardProfileSetsBank(t *testing.T) {
	path := writeFile(t, "card.csv", cardStatement)

	res, err := newPipeline().Process(context.Background(), Input{Path: path, BankName: "icici_credit_card"})
	require.NoError(t, err)
	assert.Equal(t, "ICICI Bank", res.Metadata.BankName)
	for _, txn := range res.Transactions {
		assert.Equal(t, "ICICI Bank", txn.BankName)
	}
}

// ============================================================================
// PDF statements
// ============================================================================

func TestProcess_PDFFallsBackAcrossStrategies(t *testing.T) {
	path := writeFile(t, "oct.pdf", "%PDF-1.4")

	bank := pdf.NewExtractorWithStrategies([]pdf.Strategy{
		fakeStrategy{name: pdf.StrategyTextLine, ext: &pdf.Extraction{}},
		fakeStrategy{name: pdf.StrategyTableGrid, ext: &pdf.Extraction{
			Rows: []model.PDFRow{
				{Date: "01/10/2025", Description: "UPI/412345678901/ZOMATO/zomato@hdfc", Amount: "1,250.00", Type: model.Debit, Balance: "45,000.50", Page: 1, Strategy: pdf.StrategyTableGrid},
				{Date: "02/10/2025", Description: "NEFT SALARY ACME", Amount: "85,000.00", Type: model.Credit, Balance: "1,30,000.50", Page: 1, Strategy: pdf.StrategyTableGrid},
				{Date: "31/02/2025", Description: "BROKEN DATE", Amount: "10.00", Type: model.Debit, Page: 2, Strategy: pdf.StrategyTableGrid},
			},
			Preamble: []string{"Account No : 50100123456789"},
		}},
	}, time.Second, testLogger())
	card := pdf.NewExtractorWithStrategies([]pdf.Strategy{
		fakeStrategy{name: pdf.StrategyTextLine, err: errors.New("card chain used for a bank statement")},
	}, time.Second, testLogger())

	p := newPipeline().WithExtractors(bank, card)
	res, err := p.Process(context.Background(), Input{Path: path, BankName: "HDFC Bank"})
	require.NoError(t, err)

	assert.Equal(t, model.SourcePDF, res.Source)
	assert.Equal(t, pdf.StrategyTableGrid, res.Strategy)
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, 3, res.Found)
	assert.Equal(t, 2, res.Normalized)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, "date", res.Dropped[0].Field)
	assert.Equal(t, "50100123456789", res.Metadata.AccountNumber)
	assert.Equal(t, 2, res.Imported)
}

func TestProcess_CardPDF(t *testing.T) {
	path := writeFile(t, "card.pdf", "%PDF-1.4")

	rows := []model.PDFRow{
		{Date: "01/10/2025", Description: "AMAZON PAY INDIA", Amount: "999.00"},
		{Date: "15/10/2025", Description: "EMI PRINCIPAL <2/6> ABC", Amount: "5000.00"},
		{Date: "15/10/2025", Description: "INTEREST AMORTIZATION <2/6> ABC", Amount: "250.00"},
		{Date: "15/10/2025", Description: "IGST-CI@18% <2/6> ABC", Amount: "22.50"},
	}
	bank := pdf.NewExtractorWithStrategies([]pdf.Strategy{
		fakeStrategy{name: pdf.StrategyTextLine, err: errors.New("bank chain used for a card statement")},
	}, time.Second, testLogger())
	card := pdf.NewExtractorWithStrategies([]pdf.Strategy{
		fakeStrategy{name: pdf.StrategyTextLine, ext: &pdf.Extraction{
			Rows:     rows,
			Preamble: []string{"Card No: 4375 51XX XXXX 1234"},
		}},
	}, time.Second, testLogger())

	p := newPipeline().WithExtractors(bank, card)
	res, err := p.Process(context.Background(), Input{Path: path, BankName: "hdfc_credit_card"})
	require.NoError(t, err)

	assert.Equal(t, pdf.StrategyTextLine, res.Strategy)
	assert.Equal(t, 1, res.EMIGroups)
	assert.Equal(t, 3, res.EMIAbsorbed)
	assert.Equal(t, 2, res.Found)
	assert.Equal(t, "1234", res.Metadata.CardLast4Digits)
	assert.Equal(t, "Credit Card", res.Metadata.AccountType)
	assert.Equal(t, "HDFC Bank", res.Metadata.BankName)

	emi := byDescription(res.Transactions, "EMI <2/6>")
	require.NotNil(t, emi)
	assert.Equal(t, 5272.5, emi.Amount)
	assert.Equal(t, model.SourcePDF, emi.Source)
}

// ============================================================================
// Failures
// ============================================================================

func TestProcess_Failures(t *testing.T) {
	t.Run("unsupported extension", func(t *testing.T) {
		path := writeFile(t, "notes.docx", "hello")
		_, err := newPipeline().Process(context.Background(), Input{Path: path})
		assert.ErrorIs(t, err, model.ErrUnsupportedFile)
	})

	t.Run("no usable header", func(t *testing.T) {
		path := writeFile(t, "junk.csv", "hello,world\nfoo,bar\n")
		_, err := newPipeline().Process(context.Background(), Input{Path: path})
		assert.ErrorIs(t, err, model.ErrMalformedInput)
	})

	t.Run("every strategy exhausted", func(t *testing.T) {
		path := writeFile(t, "scan.pdf", "%PDF-1.4")
		empty := pdf.NewExtractorWithStrategies([]pdf.Strategy{
			fakeStrategy{name: pdf.StrategyTextLine, ext: &pdf.Extraction{}},
			fakeStrategy{name: pdf.StrategyTableGrid, err: errors.New("no ruling lines")},
		}, time.Second, testLogger())

		_, err := newPipeline().WithExtractors(empty, empty).Process(context.Background(), Input{Path: path})
		require.ErrorIs(t, err, model.ErrExtractionExhausted)

		var exErr *model.ExtractionError
		require.ErrorAs(t, err, &exErr)
		assert.Equal(t, []string{pdf.StrategyTextLine, pdf.StrategyTableGrid}, exErr.AttemptedStrategies())
	})

	t.Run("persistence failure", func(t *testing.T) {
		path := writeFile(t, "oct.csv", savingsStatement)
		boom := errors.New("connection reset")

		_, err := newPipeline().
			WithPersistence(&recordingStore{err: boom}, uuid.New()).
			Process(context.Background(), Input{Path: path})
		assert.ErrorIs(t, err, boom)
	})
}
