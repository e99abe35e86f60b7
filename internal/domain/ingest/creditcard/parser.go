// Package creditcard parses credit-card statements. It reads the same
// delimited and spreadsheet layouts as the flexible parser, adds card
// metadata and folds multi-row EMI installments into single transactions.
package creditcard

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/nagarjunveerapu/runway/internal/domain/ingest/model"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/normalizer"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/parser"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/sniffer"
)

// Profile describes a card issuer's statement export.
type Profile struct {
	Name string
	Bank string
}

var profiles = map[string]Profile{
	"icici_credit_card": {Name: "icici_credit_card", Bank: "ICICI Bank"},
	"hdfc_credit_card":  {Name: "hdfc_credit_card", Bank: "HDFC Bank"},
	"sbi_card":          {Name: "sbi_card", Bank: "State Bank of India"},
	"axis_credit_card":  {Name: "axis_credit_card", Bank: "Axis Bank"},
	"amex":              {Name: "amex", Bank: "American Express"},
}

// LookupProfile finds a card profile by its declared bank name.
func LookupProfile(name string) (Profile, bool) {
	p, ok := profiles[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// ParseResult contains the results of parsing one card statement.
type ParseResult struct {
	Rows     []model.CreditCardRow
	Metadata model.StatementMetadata
	Errors   []model.RowError
	Columns  sniffer.ColumnMap
	Dialect  sniffer.Dialect

	TotalRows int
	// EMIGroups and EMIAbsorbed describe the consolidation pass.
	EMIGroups   int
	EMIAbsorbed int
}

// Records returns the rows as raw records for the normalizer.
func (r *ParseResult) Records() []model.RawRecord {
	out := make([]model.RawRecord, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row
	}
	return out
}

// Parser parses credit-card statements.
type Parser struct {
	logger  *slog.Logger
	profile Profile
}

// NewParser creates a card statement parser.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// WithProfile sets the issuer profile used when the file names no bank.
func (p *Parser) WithProfile(profile Profile) *Parser {
	p.profile = profile
	return p
}

// ParseFile reads a .csv or .xlsx card statement from disk.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	table, source, err := parser.LoadTable(path)
	if err != nil {
		return nil, err
	}
	return p.ParseTable(table, filepath.Base(path), source)
}

// Parse parses delimited card statement bytes.
func (p *Parser) Parse(data []byte, name string) (*ParseResult, error) {
	table, err := sniffer.Sniff(data)
	if err != nil {
		return nil, &model.MalformedInputError{File: name, Reason: err.Error()}
	}
	return p.ParseTable(table, name, model.SourceCSV)
}

// ParseTable walks the ledger rows of a sniffed card statement and
// consolidates EMI installments.
func (p *Parser) ParseTable(table *sniffer.Table, name string, source model.Source) (*ParseResult, error) {
	cols := resolveCardColumns(table.Headers)
	if !cols.Viable() || !cols.HasAmount() {
		missing := cols.Missing()
		if !cols.HasAmount() {
			missing = append(missing, "amount")
		}
		return nil, &model.MalformedInputError{
			File:   name,
			Reason: fmt.Sprintf("missing required columns %v in header %q", missing, table.Headers),
		}
	}

	dataRows := table.DataRows()
	dialect := sniffer.ProbeDialect(dataRows, []int{cols.Amount, cols.Debit, cols.Credit}, cols.Date)

	result := &ParseResult{
		Metadata: StatementMetadata(table),
		Columns:  cols,
		Dialect:  dialect,
	}
	if result.Metadata.BankName == "" {
		result.Metadata.BankName = p.profile.Bank
	}

	ledger := make([]model.CreditCardRow, 0, len(dataRows))
	for i, row := range dataRows {
		rowNum := table.HeaderIndex + i + 2
		result.TotalRows++

		rows, rowErr := parseRow(row, cols, dialect.IsEuropean, rowNum)
		if rowErr != nil {
			result.Errors = append(result.Errors, *rowErr)
			p.logger.Debug("skipping card row",
				"file", name,
				"row", rowErr.Row,
				"column", rowErr.Column,
				"reason", rowErr.Message,
			)
			continue
		}
		for _, r := range rows {
			r.File, r.Source = name, source
			ledger = append(ledger, r)
		}
	}

	consolidated, err := Consolidate(ledger)
	if err != nil {
		return nil, fmt.Errorf("consolidate %s: %w", name, err)
	}
	result.Rows = consolidated.Rows
	result.EMIGroups = consolidated.Groups
	result.EMIAbsorbed = consolidated.Absorbed

	p.logger.Info("parsed card statement",
		"file", name,
		"card", result.Metadata.CardLast4Digits,
		"rows", result.TotalRows,
		"records", len(result.Rows),
		"emi_groups", result.EMIGroups,
		"emi_absorbed", result.EMIAbsorbed,
		"errors", len(result.Errors),
	)
	return result, nil
}

// FromPDFRows converts rows extracted from a PDF card statement so they can
// go through the same consolidation.
func FromPDFRows(rows []model.PDFRow) []model.CreditCardRow {
	out := make([]model.CreditCardRow, 0, len(rows))
	for i, r := range rows {
		amount, typ := cardAmount(r.Amount, r.Type, false)
		out = append(out, model.CreditCardRow{
			Date:        r.Date,
			Description: r.Description,
			Amount:      amount,
			Type:        typ,
			Row:         i + 1,
			File:        r.File,
			Source:      model.SourcePDF,
		})
	}
	return out
}

// resolveCardColumns extends the generic resolution with the compact sign
// headers card exports use ("BillingAmountSign", "CR/DR").
func resolveCardColumns(headers []string) sniffer.ColumnMap {
	cols := sniffer.ResolveColumns(headers)
	if cols.Type >= 0 {
		return cols
	}
	for i, h := range headers {
		compact := strings.ToLower(strings.NewReplacer(" ", "", "/", "", "_", "", "-", "").Replace(h))
		if i == cols.Amount || i == cols.Description || i == cols.Date {
			continue
		}
		if strings.HasSuffix(compact, "sign") || compact == "crdr" || compact == "drcr" {
			cols.Type = i
			break
		}
	}
	return cols
}

func parseRow(row []string, cols sniffer.ColumnMap, european bool, rowNum int) ([]model.CreditCardRow, *model.RowError) {
	date := sniffer.Cell(row, cols.Date)
	if date == "" {
		return nil, nil
	}
	if !normalizer.LooksLikeDate(date) {
		return nil, &model.RowError{Row: rowNum, Column: "date", Message: "invalid date", RawData: date}
	}
	desc := sniffer.Cell(row, cols.Description)
	if desc == "" {
		return nil, &model.RowError{Row: rowNum, Column: "description", Message: "missing description"}
	}

	legs, err := sniffer.ReadLegs(row, cols, european)
	if err != nil {
		rowErr := &model.RowError{Row: rowNum, Column: "amount", Message: err.Error()}
		var ae *sniffer.AmountError
		if errors.As(err, &ae) {
			rowErr.Column, rowErr.Message, rowErr.RawData = ae.Column, ae.Err.Error(), ae.Value
		}
		return nil, rowErr
	}

	out := make([]model.CreditCardRow, 0, len(legs))
	for _, leg := range legs {
		amount, typ := cardAmount(leg.Amount, leg.Type, european)
		out = append(out, model.CreditCardRow{
			Date:        date,
			Description: desc,
			Amount:      amount,
			Type:        typ,
			Row:         rowNum,
		})
	}
	return out, nil
}

// cardAmount reduces a leg to a magnitude and resolves its direction from
// the sign cell, a Cr/Dr marker or the sign of the amount. Anything else
// stays empty for the normalizer to decide.
func cardAmount(raw string, hint model.TxnType, european bool) (string, model.TxnType) {
	typ := hint
	if !typ.Valid() {
		typ = normalizer.TypeFromKeyword(string(hint))
	}
	d, err := normalizer.ParseAmount(raw, european)
	if err != nil {
		return raw, typ
	}
	if typ == "" {
		typ = normalizer.SuffixType(raw)
	}
	if typ == "" && d.IsNegative() {
		typ = model.Debit
	}
	return normalizer.Money(d), typ
}
