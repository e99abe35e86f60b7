package normalizer

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nagarjunveerapu/runway/internal/domain/ingest/model"
)

var (
	debitTokens  = map[string]bool{"debit": true, "dr": true, "withdrawal": true, "withdraw": true, "payment": true, "paid": true}
	creditTokens = map[string]bool{"credit": true, "cr": true, "deposit": true}
)

// TypeFromKeyword maps a type hint ("Dr", "CREDIT", "Withdrawal") to a
// transaction type. Hints that name both or neither direction return "".
func TypeFromKeyword(hint string) model.TxnType {
	words := strings.FieldsFunc(strings.ToLower(hint), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	var debit, credit bool
	for _, w := range words {
		debit = debit || debitTokens[w]
		credit = credit || creditTokens[w]
	}
	switch {
	case debit && !credit:
		return model.Debit
	case credit && !debit:
		return model.Credit
	}
	return ""
}

// Report is the outcome of one normalization pass.
type Report struct {
	Transactions []model.Transaction
	Failures     []model.RecordError
	// Ambiguous counts records whose type defaulted to debit.
	Ambiguous int
}

// Normalizer converts raw records of any source into canonical transactions.
// It never fails as a whole: records that cannot be normalized are dropped
// and reported.
type Normalizer struct {
	logger     *slog.Logger
	isEuropean bool
	dateFormat string
	newID      func() uuid.UUID
}

// New creates a normalizer with Indian/American amount grouping and
// flexible date detection.
func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger, newID: uuid.New}
}

// WithEuropeanAmounts switches amount parsing to 1.234,56 grouping.
func (n *Normalizer) WithEuropeanAmounts(european bool) *Normalizer {
	n.isEuropean = european
	return n
}

// WithDateFormat sets a preferred date layout in DD-MM-YYYY notation.
func (n *Normalizer) WithDateFormat(format string) *Normalizer {
	n.dateFormat = format
	return n
}

// Normalize converts records in order. bankName is stamped on every output.
func (n *Normalizer) Normalize(records []model.RawRecord, bankName string) *Report {
	report := &Report{
		Transactions: make([]model.Transaction, 0, len(records)),
	}

	for i, rec := range records {
		txn, recErr := n.normalizeOne(rec)
		if recErr != nil {
			recErr.Index = i
			report.Failures = append(report.Failures, *recErr)
			n.logger.Warn("dropping record",
				"index", i,
				"field", recErr.Field,
				"reason", recErr.Reason,
				"value", recErr.Value,
			)
			continue
		}
		txn.BankName = bankName
		if txn.TypeInferred {
			report.Ambiguous++
		}
		report.Transactions = append(report.Transactions, txn)
	}

	if len(report.Failures) > 0 {
		n.logger.Info("normalization finished with drops",
			"normalized", len(report.Transactions),
			"dropped", len(report.Failures),
		)
	}
	return report
}

// fields is the common shape every raw variant is flattened to.
type fields struct {
	date        string
	description string
	amount      string
	txnType     model.TxnType
	balance     string
	source      model.Source
	category    string
	signed      bool
	meta        map[string]any
}

func flatten(rec model.RawRecord) (fields, error) {
	switch r := rec.(type) {
	case model.PDFRow:
		return fields{
			date: r.Date, description: r.Description, amount: r.Amount, txnType: r.Type,
			balance: r.Balance, source: model.SourcePDF,
			meta: map[string]any{"file": r.File, "page": r.Page, "strategy": r.Strategy},
		}, nil
	case model.CSVRow:
		src := r.Source
		if src == "" {
			src = model.SourceCSV
		}
		meta := map[string]any{"file": r.File, "row": r.Row}
		if r.Reference != "" {
			meta["reference"] = r.Reference
		}
		if r.SplitLeg != "" {
			meta["split_leg"] = r.SplitLeg
		}
		return fields{
			date: r.Date, description: r.Description, amount: r.Amount, txnType: r.Type,
			balance: r.Balance, source: src, signed: r.Signed, meta: meta,
		}, nil
	case model.CreditCardRow:
		src := r.Source
		if src == "" {
			src = model.SourceCSV
		}
		meta := map[string]any{"file": r.File, "row": r.Row}
		if r.Consolidated {
			meta["consolidated"] = true
			meta["breakdown"] = r.Breakdown
		}
		return fields{
			date: r.Date, description: r.Description, amount: r.Amount, txnType: r.Type,
			source: src, category: r.Category, meta: meta,
		}, nil
	}
	return fields{}, fmt.Errorf("unsupported record %T", rec)
}

func (n *Normalizer) normalizeOne(rec model.RawRecord) (model.Transaction, *model.RecordError) {
	f, err := flatten(rec)
	if err != nil {
		return model.Transaction{}, &model.RecordError{Field: "record", Reason: err.Error()}
	}

	date, err := ParseFlexibleDate(f.date, n.dateFormat, time.UTC)
	if err != nil {
		return model.Transaction{}, &model.RecordError{Field: "date", Reason: err.Error(), Value: f.date}
	}

	amount, err := ParseAmount(f.amount, n.isEuropean)
	if err != nil {
		return model.Transaction{}, &model.RecordError{Field: "amount", Reason: err.Error(), Value: f.amount}
	}

	txnType, inferred := resolveType(f.txnType, f.amount, amount, f.signed, f.description)

	description := strings.TrimSpace(f.description)
	txn := model.Transaction{
		ID:               n.newID(),
		Date:             date.Format(model.DateLayout),
		Amount:           amount.Abs().Round(2).InexactFloat64(),
		Type:             txnType,
		DescriptionRaw:   description,
		CleanDescription: CleanDescription(description),
		MerchantRaw:      ExtractMerchant(description),
		Category:         f.category,
		Source:           f.source,
		TypeInferred:     inferred,
		Metadata:         f.meta,
	}
	if inferred {
		txn.SetMeta("type_inferred", true)
	}

	if strings.TrimSpace(f.balance) != "" {
		if bal, err := ParseAmount(f.balance, n.isEuropean); err == nil {
			v := bal.Round(2).InexactFloat64()
			txn.Balance = &v
		} else {
			n.logger.Debug("ignoring unparseable balance", "value", f.balance)
		}
	}

	return txn, nil
}

// resolveType decides the direction of a record. signed marks a column whose
// sign carries direction. The second return value is true when nothing
// determined it and debit was assumed.
func resolveType(declared model.TxnType, rawAmount string, amount decimal.Decimal, signed bool, description string) (model.TxnType, bool) {
	if declared.Valid() {
		return declared, false
	}
	if t := TypeFromKeyword(string(declared)); t != "" {
		return t, false
	}
	if t := SuffixType(rawAmount); t != "" {
		return t, false
	}
	if amount.IsNegative() {
		return model.Debit, false
	}
	if signed && amount.IsPositive() {
		return model.Credit, false
	}
	if t := TypeFromKeyword(description); t != "" {
		return t, false
	}
	return model.Debit, true
}
