// Package parser turns delimited and spreadsheet statements into raw rows.
// Layout detection lives in the sniffer package; this package walks the data
// rows beneath the detected header and decides amount and direction per row.
package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nagarjunveerapu/runway/internal/domain/ingest/model"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/normalizer"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/sniffer"
)

// ParseResult contains the results of parsing one statement file
type ParseResult struct {
	Records     []model.RawRecord
	Metadata    model.StatementMetadata
	Errors      []model.RowError
	Dialect     sniffer.Dialect
	Columns     sniffer.ColumnMap
	Encoding    string
	Signed      bool
	TotalRows   int
	ParsedRows  int
	SkippedRows int
	// MergedRows counts wrapped narration rows folded into the row above.
	MergedRows  int
}

// Parser is the flexible statement parser for CSV and Excel exports
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// ParseFile reads a .csv, .txt or .xlsx statement from disk.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	table, source, err := LoadTable(path)
	if err != nil {
		return nil, err
	}
	return p.ParseTable(table, filepath.Base(path), source)
}

// Parse parses delimited statement bytes. name is used for provenance only.
func (p *Parser) Parse(data []byte, name string) (*ParseResult, error) {
	table, err := sniffer.Sniff(data)
	if err != nil {
		return nil, malformed(name, err)
	}
	return p.ParseTable(table, name, model.SourceCSV)
}

// LoadTable reads a statement file into a sniffed table, choosing the reader
// by extension. Structural failures are returned as *model.MalformedInputError.
func LoadTable(path string) (*sniffer.Table, model.Source, error) {
	name := filepath.Base(path)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		f, err := os.Open(path)
		if err != nil {
			return nil, "", fmt.Errorf("open %s: %w", name, err)
		}
		defer f.Close()

		table, err := excelTable(f)
		if err != nil {
			return nil, "", malformed(name, err)
		}
		return table, model.SourceExcel, nil

	case ".csv", ".txt", ".tsv", "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", name, err)
		}
		table, err := sniffer.Sniff(data)
		if err != nil {
			return nil, "", malformed(name, err)
		}
		return table, model.SourceCSV, nil
	}

	return nil, "", fmt.Errorf("%s: %w", name, model.ErrUnsupportedFile)
}

// ParseTable resolves columns and walks the data rows of a sniffed table.
func (p *Parser) ParseTable(table *sniffer.Table, name string, source model.Source) (*ParseResult, error) {
	cols := sniffer.ResolveColumns(table.Headers)
	if !cols.Viable() {
		return nil, &model.MalformedInputError{
			File:   name,
			Reason: fmt.Sprintf("missing required columns %v in header %q", cols.Missing(), table.Headers),
		}
	}

	dataRows := table.DataRows()
	dialect := sniffer.ProbeDialect(dataRows, []int{cols.Amount, cols.Debit, cols.Credit}, cols.Date)

	result := &ParseResult{
		Records:     make([]model.RawRecord, 0, len(dataRows)),
		Metadata:    sniffer.ExtractMetadata(table),
		Dialect:     dialect,
		Columns:     cols,
		Encoding:    table.Encoding,
	}

	rp := rowParser{cols: cols, european: dialect.IsEuropean, file: name, source: source}

	continues := false // the previous row produced records
	for i, row := range dataRows {
		rowNum := table.HeaderIndex + i + 2 // 1-indexed, after header
		result.TotalRows++

		records, parseErr := rp.parse(row, rowNum)
		if parseErr != nil {
			continues = false
			result.Errors = append(result.Errors, *parseErr)
			p.logger.Debug("skipping row",
				"file", name,
				"row", parseErr.Row,
				"column", parseErr.Column,
				"reason", parseErr.Message,
			)
			continue
		}
		if len(records) == 0 {
			if continues && cols.Continuation(row) {
				appendNarration(result.Records, sniffer.Cell(row, cols.Description))
				result.MergedRows++
				continue
			}
			result.SkippedRows++
			continues = false
			continue
		}

		result.Records = append(result.Records, records...)
		result.ParsedRows++
		continues = true
	}

	if signedAmounts(result.Records, cols, dialect.IsEuropean) {
		result.Signed = true
		for i, rec := range result.Records {
			if row, ok := rec.(model.CSVRow); ok && row.Type == "" {
				row.Signed = true
				result.Records[i] = row
			}
		}
	}

	p.logger.Info("parsed statement",
		"file", name,
		"source", source,
		"encoding", table.Encoding,
		"header_row", table.HeaderIndex+1,
		"rows", result.TotalRows,
		"records", len(result.Records),
		"errors", len(result.Errors),
		"signed", result.Signed,
	)

	return result, nil
}

type rowParser struct {
	cols     sniffer.ColumnMap
	european bool
	file     string
	source   model.Source
}

// parse converts one data row. Rows without a date yield no records; the
// caller decides whether they continue the previous narration.
func (rp rowParser) parse(row []string, rowNum int) ([]model.RawRecord, *model.RowError) {
	date := sniffer.Cell(row, rp.cols.Date)
	if date == "" {
		return nil, nil
	}
	if !normalizer.LooksLikeDate(date) {
		return nil, &model.RowError{Row: rowNum, Column: "date", Message: "invalid date", RawData: date}
	}

	desc := sniffer.Cell(row, rp.cols.Description)
	if desc == "" {
		return nil, &model.RowError{Row: rowNum, Column: "description", Message: "missing description"}
	}

	base := model.CSVRow{
		Date:        date,
		Description: desc,
		Balance:     sniffer.Cell(row, rp.cols.Balance),
		Reference:   sniffer.Cell(row, rp.cols.Reference),
		Row:         rowNum,
		File:        rp.file,
		Source:      rp.source,
	}

	legs, err := sniffer.ReadLegs(row, rp.cols, rp.european)
	if err != nil {
		rowErr := &model.RowError{Row: rowNum, Column: "amount", Message: err.Error()}
		var ae *sniffer.AmountError
		if errors.As(err, &ae) {
			rowErr.Column, rowErr.Message, rowErr.RawData = ae.Column, ae.Err.Error(), ae.Value
		}
		return nil, rowErr
	}

	records := make([]model.RawRecord, 0, len(legs))
	for _, leg := range legs {
		rec := base
		rec.Amount, rec.Type = leg.Amount, leg.Type
		if len(legs) > 1 {
			// one line carrying both directions becomes two legs
			rec.SplitLeg = string(leg.Type)
		}
		records = append(records, rec)
	}
	return records, nil
}

// appendNarration extends the description of the last statement line. Both
// legs of a split line share that line's narration.
func appendNarration(records []model.RawRecord, text string) {
	last, ok := records[len(records)-1].(model.CSVRow)
	if !ok {
		return
	}
	for i := len(records) - 1; i >= 0; i-- {
		row, ok := records[i].(model.CSVRow)
		if !ok || row.Row != last.Row {
			break
		}
		row.Description = strings.Join(strings.Fields(row.Description+" "+text), " ")
		records[i] = row
	}
}

// signedAmounts reports whether a statement with a single amount column
// encodes direction in the sign, i.e. at least one amount is negative.
func signedAmounts(records []model.RawRecord, cols sniffer.ColumnMap, european bool) bool {
	if cols.Debit >= 0 || cols.Credit >= 0 {
		return false
	}
	for _, rec := range records {
		row, ok := rec.(model.CSVRow)
		if !ok {
			continue
		}
		if v, err := normalizer.ParseAmount(row.Amount, european); err == nil && v.IsNegative() {
			return true
		}
	}
	return false
}

func malformed(name string, err error) error {
	switch {
	case errors.Is(err, sniffer.ErrNoHeadersFound):
		return &model.MalformedInputError{File: name, Reason: "no header row found in the first 20 rows"}
	case errors.Is(err, sniffer.ErrEmptyFile):
		return &model.MalformedInputError{File: name, Reason: "file is empty"}
	}
	return &model.MalformedInputError{File: name, Reason: err.Error()}
}
