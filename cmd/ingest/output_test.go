package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nagarjunveerapu/runway/internal/domain/ingest/dedup"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/model"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/service"
)

func sampleResult() *service.Result {
	balance := 44750.0
	anchor := uuid.MustParse("7d1f8a52-3c4e-4f0b-9a61-2b8e5d0c9f13")
	return &service.Result{
		File:     "oct.csv",
		Source:   model.SourceCSV,
		Found:    2,
		Imported: 1,
		Metadata: model.StatementMetadata{BankName: "HDFC Bank", AccountNumber: "123456789012"},
		Stats:    dedup.Stats{Total: 2, Flagged: 1, Unique: 1, DuplicateRate: 0.5},
		Transactions: []model.Transaction{
			{
				ID:                anchor,
				Date:              "2025-10-01",
				Amount:            250,
				Type:              model.Debit,
				DescriptionRaw:    "UPI/SWIGGY LTD",
				MerchantCanonical: "Swiggy",
				Category:          "Food & Dining",
				Balance:           &balance,
				Source:            model.SourceCSV,
				BankName:          "HDFC Bank",
				DuplicateCount:    1,
			},
			{
				ID:             uuid.MustParse("0b6c2f7e-81d4-4a3a-bf55-9e0d7c1a2b34"),
				Date:           "2025-10-01",
				Amount:         250,
				Type:           model.Debit,
				DescriptionRaw: "UPI/SWIGGY",
				Source:         model.SourceCSV,
				IsDuplicate:    true,
				DuplicateOf:    &anchor,
			},
		},
	}
}

func TestWriteTransactions_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTransactions(&buf, FormatCSV, []*service.Result{sampleResult()}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "transaction_id,date,amount,type,"))
	assert.Contains(t, lines[1], "2025-10-01,250.00,debit,UPI/SWIGGY LTD")
	assert.Contains(t, lines[1], "44750.00")
	assert.Contains(t, lines[2], "true,0,7d1f8a52-3c4e-4f0b-9a61-2b8e5d0c9f13")
}

func TestWriteTransactions_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTransactions(&buf, FormatJSON, []*service.Result{sampleResult()}))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "oct.csv", decoded[0]["file"])
	assert.Len(t, decoded[0]["transactions"], 2)
}

func TestWriteTransactions_UnknownFormat(t *testing.T) {
	err := writeTransactions(&bytes.Buffer{}, "xml", nil)
	assert.Error(t, err)
}

func TestPrintSummary(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	printSummary(&buf, sampleResult())
	printFailure(&buf, "scan.pdf", errors.New("all extraction strategies exhausted"))

	out := buf.String()
	assert.Contains(t, out, "oct.csv\n")
	assert.Contains(t, out, "account:    HDFC Bank 123456789012")
	assert.Contains(t, out, "imported:   1")
	assert.Contains(t, out, "duplicates: 0 merged, 1 flagged (50.0%)")
	assert.Contains(t, out, "scan.pdf: all extraction strategies exhausted")
}
