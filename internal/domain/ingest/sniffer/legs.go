package sniffer

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nagarjunveerapu/runway/internal/domain/ingest/model"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/normalizer"
)

var (
	ErrNoAmount      = errors.New("no amount found")
	ErrMissingAmount = errors.New("missing amount")
)

// Leg is one amount and direction read from a statement row. Type is empty
// when only a signed amount (and maybe a raw hint) was available.
type Leg struct {
	Amount string
	Type   model.TxnType
}

// AmountError names the column whose value could not be read.
type AmountError struct {
	Column string
	Value  string
	Err    error
}

func (e *AmountError) Error() string { return e.Column + ": " + e.Err.Error() }

func (e *AmountError) Unwrap() error { return e.Err }

// ReadLegs derives amount and direction from split debit/credit columns or a
// single signed amount column. A row with both debit and credit non-zero
// yields two legs, debit first.
func ReadLegs(row []string, cols ColumnMap, european bool) ([]Leg, error) {
	if cols.Debit >= 0 || cols.Credit >= 0 {
		debit, err := legValue(Cell(row, cols.Debit), european)
		if err != nil {
			return nil, &AmountError{Column: "debit", Value: Cell(row, cols.Debit), Err: err}
		}
		credit, err := legValue(Cell(row, cols.Credit), european)
		if err != nil {
			return nil, &AmountError{Column: "credit", Value: Cell(row, cols.Credit), Err: err}
		}

		var legs []Leg
		if !debit.IsZero() {
			legs = append(legs, Leg{Amount: normalizer.Money(debit), Type: model.Debit})
		}
		if !credit.IsZero() {
			legs = append(legs, Leg{Amount: normalizer.Money(credit), Type: model.Credit})
		}
		if len(legs) > 0 {
			return legs, nil
		}
		if cols.Amount < 0 {
			return nil, &AmountError{Column: "amount", Err: ErrNoAmount}
		}
	}

	amount := Cell(row, cols.Amount)
	if amount == "" {
		return nil, &AmountError{Column: "amount", Err: ErrMissingAmount}
	}
	if _, err := normalizer.ParseAmount(amount, european); err != nil {
		return nil, &AmountError{Column: "amount", Value: amount, Err: err}
	}
	return []Leg{{Amount: amount, Type: model.TxnType(Cell(row, cols.Type))}}, nil
}

// legValue parses a debit or credit cell. Blank and dash placeholders are zero.
func legValue(raw string, european bool) (decimal.Decimal, error) {
	if raw == "" || strings.Trim(raw, "-") == "" {
		return decimal.Zero, nil
	}
	return normalizer.ParseAmount(raw, european)
}
