// Package model defines the records that flow through statement ingestion:
// parser-specific raw rows, the canonical transaction, and statement metadata.
package model

import (
	"github.com/google/uuid"
)

// DateLayout is the canonical ISO-8601 date layout for transactions.
const DateLayout = "2006-01-02"

// CategoryEMI is assigned to consolidated credit-card installments.
const CategoryEMI = "EMI & Loans"

// TxnType is the direction of money movement.
type TxnType string

const (
	Debit  TxnType = "debit"
	Credit TxnType = "credit"
)

// Valid reports whether t is one of the canonical types.
func (t TxnType) Valid() bool {
	return t == Debit || t == Credit
}

// Source identifies where a canonical transaction came from.
type Source string

const (
	SourceManual Source = "manual"
	SourcePDF    Source = "pdf"
	SourceCSV    Source = "csv"
	SourceExcel  Source = "excel"
	SourceAA     Source = "aa"
	SourceAPI    Source = "api"
)

// Transaction is the canonical transaction every parser output converges to.
// Amount is always a magnitude; the sign lives in Type.
type Transaction struct {
	ID                uuid.UUID      `json:"transaction_id"`
	Date              string         `json:"date"`
	Amount            float64        `json:"amount"`
	Type              TxnType        `json:"type"`
	DescriptionRaw    string         `json:"description_raw"`
	CleanDescription  string         `json:"clean_description"`
	MerchantRaw       string         `json:"merchant_raw,omitempty"`
	MerchantCanonical string         `json:"merchant_canonical,omitempty"`
	Category          string         `json:"category,omitempty"`
	Balance           *float64       `json:"balance,omitempty"`
	Source            Source         `json:"source"`
	BankName          string         `json:"bank_name,omitempty"`
	IsDuplicate       bool           `json:"is_duplicate"`
	DuplicateCount    int            `json:"duplicate_count"`
	DuplicateOf       *uuid.UUID     `json:"duplicate_of,omitempty"`
	TypeInferred      bool           `json:"type_inferred,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// SetMeta sets a metadata key, allocating the map on first use.
func (t *Transaction) SetMeta(key string, value any) {
	if t.Metadata == nil {
		t.Metadata = make(map[string]any)
	}
	t.Metadata[key] = value
}

// StatementMetadata describes the account a statement belongs to.
type StatementMetadata struct {
	AccountNumber     string `json:"account_number,omitempty"`
	AccountHolderName string `json:"account_holder_name,omitempty"`
	BankName          string `json:"bank_name,omitempty"`
	AccountType       string `json:"account_type,omitempty"`
	CardLast4Digits   string `json:"card_last_4_digits,omitempty"`
	BillingPeriod     string `json:"billing_period,omitempty"`
}

// Merge fills empty fields of m from other.
func (m *StatementMetadata) Merge(other StatementMetadata) {
	if m.AccountNumber == "" {
		m.AccountNumber = other.AccountNumber
	}
	if m.AccountHolderName == "" {
		m.AccountHolderName = other.AccountHolderName
	}
	if m.BankName == "" {
		m.BankName = other.BankName
	}
	if m.AccountType == "" {
		m.AccountType = other.AccountType
	}
	if m.CardLast4Digits == "" {
		m.CardLast4Digits = other.CardLast4Digits
	}
	if m.BillingPeriod == "" {
		m.BillingPeriod = other.BillingPeriod
	}
}
