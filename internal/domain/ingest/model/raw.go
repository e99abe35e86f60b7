package model

// RawRecord is a parser-specific row before normalization. It is a closed
// union: PDFRow, CSVRow and CreditCardRow are the only implementations.
type RawRecord interface {
	isRawRecord()
	// RawDate returns the unparsed date token.
	RawDate() string
}

// PDFRow is a row recovered by one of the PDF extraction strategies.
type PDFRow struct {
	Date        string
	Description string
	Amount      string // magnitude, or signed when Type is empty
	Type        TxnType
	Balance     string
	Page        int
	Strategy    string
	File        string
}

func (PDFRow) isRawRecord()      {}
func (r PDFRow) RawDate() string { return r.Date }

// CSVRow is a row from a delimited text or spreadsheet statement.
type CSVRow struct {
	Date        string
	Description string
	Amount      string // magnitude, or signed when Type is empty
	Type        TxnType
	Balance     string
	Reference   string
	Row         int
	File        string
	Source      Source // SourceCSV or SourceExcel
	SplitLeg    string // "debit" or "credit" when one statement line carried both
	// Signed is set when the statement's single amount column holds negative
	// values, so a positive amount without a type hint is a credit.
	Signed      bool
}

func (CSVRow) isRawRecord()      {}
func (r CSVRow) RawDate() string { return r.Date }

// EMIComponent is one absorbed ledger line of a consolidated installment.
type EMIComponent struct {
	Row         int    `json:"row"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Kind        string `json:"kind"` // "emi" or "charge"
}

// CreditCardRow is a row from a credit-card statement. Consolidated rows
// carry the breakdown of the ledger lines they absorbed.
type CreditCardRow struct {
	Date         string
	Description  string
	Amount       string // magnitude
	Type         TxnType
	Category     string
	Row          int
	File         string
	Source       Source
	Consolidated bool
	Breakdown    []EMIComponent
}

func (CreditCardRow) isRawRecord()      {}
func (r CreditCardRow) RawDate() string { return r.Date }
