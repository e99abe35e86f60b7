package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/gocarina/gocsv"

	"github.com/nagarjunveerapu/runway/internal/domain/ingest/model"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/service"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// exportRow is the flat CSV shape of a transaction.
type exportRow struct {
	ID                string `csv:"transaction_id"`
	Date              string `csv:"date"`
	Amount            string `csv:"amount"`
	Type              string `csv:"type"`
	DescriptionRaw    string `csv:"description_raw"`
	CleanDescription  string `csv:"clean_description"`
	MerchantCanonical string `csv:"merchant_canonical"`
	Category          string `csv:"category"`
	Balance           string `csv:"balance"`
	Source            string `csv:"source"`
	BankName          string `csv:"bank_name"`
	IsDuplicate       bool   `csv:"is_duplicate"`
	DuplicateCount    int    `csv:"duplicate_count"`
	DuplicateOf       string `csv:"duplicate_of"`
}

func toExportRow(t model.Transaction) exportRow {
	row := exportRow{
		ID:                t.ID.String(),
		Date:              t.Date,
		Amount:            strconv.FormatFloat(t.Amount, 'f', 2, 64),
		Type:              string(t.Type),
		DescriptionRaw:    t.DescriptionRaw,
		CleanDescription:  t.CleanDescription,
		MerchantCanonical: t.MerchantCanonical,
		Category:          t.Category,
		Source:            string(t.Source),
		BankName:          t.BankName,
		IsDuplicate:       t.IsDuplicate,
		DuplicateCount:    t.DuplicateCount,
	}
	if t.Balance != nil {
		row.Balance = strconv.FormatFloat(*t.Balance, 'f', 2, 64)
	}
	if t.DuplicateOf != nil {
		row.DuplicateOf = t.DuplicateOf.String()
	}
	return row
}

// writeTransactions renders imported transactions. JSON output carries the
// whole result set; CSV output is one row per transaction.
func writeTransactions(w io.Writer, format string, results []*service.Result) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
		return nil

	case FormatCSV:
		rows := []exportRow{}
		for _, r := range results {
			for _, t := range r.Transactions {
				rows = append(rows, toExportRow(t))
			}
		}
		if err := gocsv.Marshal(&rows, w); err != nil {
			return fmt.Errorf("failed to write csv: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown output format %q", format)
}

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	okColor     = color.New(color.FgGreen)
	warnColor   = color.New(color.FgYellow)
	errColor    = color.New(color.FgRed, color.Bold)
)

// printSummary writes a human-readable line block per file.
func printSummary(w io.Writer, res *service.Result) {
	headerColor.Fprintf(w, "%s\n", res.File)

	source := string(res.Source)
	if res.Strategy != "" {
		source += " via " + res.Strategy
	}
	fmt.Fprintf(w, "  source:     %s\n", source)
	if m := res.Metadata; m.BankName != "" || m.AccountNumber != "" {
		fmt.Fprintf(w, "  account:    %s %s\n", m.BankName, m.AccountNumber)
	}
	fmt.Fprintf(w, "  found:      %d\n", res.Found)
	okColor.Fprintf(w, "  imported:   %d\n", res.Imported)

	if res.Stats.Merged > 0 || res.Stats.Flagged > 0 {
		warnColor.Fprintf(w, "  duplicates: %d merged, %d flagged (%.1f%%)\n",
			res.Stats.Merged, res.Stats.Flagged, res.Stats.DuplicateRate*100)
	}
	if res.EMIGroups > 0 {
		fmt.Fprintf(w, "  emi:        %d groups from %d lines\n", res.EMIGroups, res.EMIAbsorbed)
	}
	if n := len(res.Dropped) + len(res.RowErrors); n > 0 {
		warnColor.Fprintf(w, "  skipped:    %d\n", n)
	}
	if res.AmbiguousTypes > 0 {
		warnColor.Fprintf(w, "  inferred:   %d debit/credit guesses\n", res.AmbiguousTypes)
	}
	if res.Inserted > 0 {
		fmt.Fprintf(w, "  inserted:   %d\n", res.Inserted)
	}
}

func printFailure(w io.Writer, file string, err error) {
	errColor.Fprintf(w, "%s: %v\n", file, err)
}
