// Package sniffer provides automatic detection of delimited statement layouts.
// It decodes the file, finds the header row beneath any metadata preamble,
// resolves column roles and extracts account metadata.
package sniffer

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"unicode"

	"github.com/nagarjunveerapu/runway/internal/domain/ingest/normalizer"
)

const (
	// HeaderSearchRows is how many leading rows are scored for a header.
	HeaderSearchRows = 20
	// MinHeaderScore is the number of keyword cells a header row needs.
	MinHeaderScore = 3
	// LegendRows is the size of the trailing block scanned for metadata.
	LegendRows = 10

	maxHeaderCellLen = 40
)

var (
	ErrEmptyFile      = errors.New("file is empty")
	ErrNoHeadersFound = errors.New("could not find data headers")
)

// headerKeywords are matched against the word tokens of a header cell.
var headerKeywords = map[string]bool{
	"date": true, "dt": true, "txn": true, "transaction": true, "value": true, "posting": true,
	"narration": true, "particulars": true, "description": true, "details": true, "remarks": true, "merchant": true,
	"amount": true, "amt": true, "withdrawal": true, "withdrawals": true, "deposit": true, "deposits": true,
	"debit": true, "credit": true, "dr": true, "cr": true, "balance": true, "bal": true,
	"chq": true, "cheque": true, "ref": true, "type": true, "sign": true,
}

// Table is a decoded statement grid with its detected header.
type Table struct {
	Encoding    string
	Delimiter   rune
	Rows        [][]string
	HeaderIndex int
	Headers     []string
}

// Preamble returns the rows above the header.
func (t *Table) Preamble() [][]string {
	return t.Rows[:t.HeaderIndex]
}

// DataRows returns the rows below the header.
func (t *Table) DataRows() [][]string {
	return t.Rows[t.HeaderIndex+1:]
}

// Legend returns up to LegendRows trailing rows below the header.
func (t *Table) Legend() [][]string {
	data := t.DataRows()
	if len(data) > LegendRows {
		return data[len(data)-LegendRows:]
	}
	return data
}

// Sniff decodes delimited statement bytes and locates the header row.
func Sniff(data []byte) (*Table, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	text, enc := Decode(data)
	lines := strings.Split(text, "\n")
	delimiter := DetectDelimiter(lines)

	rows := ReadRows(text, delimiter)
	table, err := FromRows(rows)
	if err != nil {
		return nil, err
	}
	table.Encoding = enc
	table.Delimiter = delimiter
	return table, nil
}

// FromRows locates the header in an already split grid, e.g. a spreadsheet.
func FromRows(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	idx, err := FindHeaderRow(rows)
	if err != nil {
		return nil, err
	}

	headers := make([]string, len(rows[idx]))
	for i, h := range rows[idx] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	return &Table{
		Rows:        rows,
		HeaderIndex: idx,
		Headers:     headers,
	}, nil
}

// ReadRows splits text into trimmed records. Malformed lines are skipped.
func ReadRows(text string, delimiter rune) [][]string {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // Allow variable fields

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		rows = append(rows, record)
	}
	return rows
}

// FindHeaderRow returns the index of the first row among the leading
// HeaderSearchRows whose keyword score reaches MinHeaderScore.
func FindHeaderRow(rows [][]string) (int, error) {
	for i, row := range rows {
		if i >= HeaderSearchRows {
			break
		}
		if HeaderScore(row) >= MinHeaderScore {
			return i, nil
		}
	}
	return 0, ErrNoHeadersFound
}

// HeaderScore counts the cells of row that look like column titles.
func HeaderScore(row []string) int {
	score := 0
	for _, cell := range row {
		cell = strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff"))
		if cell == "" || len(cell) > maxHeaderCellLen {
			continue
		}
		if normalizer.LooksLikeDate(cell) {
			continue
		}
		if _, err := normalizer.ParseAmount(cell, false); err == nil {
			continue
		}
		for _, tok := range tokens(cell) {
			if headerKeywords[tok] {
				score++
				break
			}
		}
	}
	return score
}

// DetectDelimiter picks the candidate with the highest per-line count over
// the leading lines. Ties go to the earlier candidate.
func DetectDelimiter(lines []string) rune {
	delimiters := []rune{';', '\t', ',', '|'}
	best := ','
	bestCount := 0
	for _, d := range delimiters {
		for i, line := range lines {
			if i >= HeaderSearchRows {
				break
			}
			if count := strings.Count(line, string(d)); count > bestCount {
				bestCount = count
				best = d
			}
		}
	}
	return best
}

func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
