package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nagarjunveerapu/runway/internal/domain/ingest/sniffer"
)

// excelTable reads the statement sheet of a workbook. The sheet goes
// through the same header, metadata and column detection as a CSV file.
func excelTable(reader io.Reader) (*sniffer.Table, error) {
	rows, err := readExcelRows(reader)
	if err != nil {
		return nil, err
	}
	table, err := sniffer.FromRows(rows)
	if err != nil {
		return nil, err
	}
	table.Encoding = "xlsx"
	return table, nil
}

// readExcelRows returns the cell grid of the statement sheet.
func readExcelRows(reader io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName := findStatementSheet(f)
	if sheetName == "" {
		return nil, fmt.Errorf("no suitable sheet found")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
	}

	for _, row := range rows {
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
	}
	return rows, nil
}

// findStatementSheet prefers sheets named like a statement, else the first one.
func findStatementSheet(f *excelize.File) string {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}

	preferredNames := []string{
		"transactions", "statement", "account statement",
		"transaction details", "sheet1",
	}

	for _, preferred := range preferredNames {
		for _, sheet := range sheets {
			if strings.EqualFold(strings.TrimSpace(sheet), preferred) {
				return sheet
			}
		}
	}

	return sheets[0]
}
