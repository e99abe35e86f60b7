package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExtractionExhausted means every PDF strategy failed or returned no rows.
	ErrExtractionExhausted = errors.New("all extraction strategies exhausted")
	// ErrMalformedInput means no usable header or column set was found.
	ErrMalformedInput = errors.New("malformed statement input")
	// ErrUnsupportedFile means no parser handles the file type.
	ErrUnsupportedFile = errors.New("unsupported statement file")
)

// StrategyAttempt records the outcome of one extraction strategy.
type StrategyAttempt struct {
	Strategy string `json:"strategy"`
	Rows     int    `json:"rows"`
	Err      string `json:"error,omitempty"`
}

// ExtractionError is returned when no strategy produced rows.
type ExtractionError struct {
	File     string
	Attempts []StrategyAttempt
}

func (e *ExtractionError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", a.Strategy, a.Err))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: no rows", a.Strategy))
	}
	return fmt.Sprintf("%s: %s [%s]", e.File, ErrExtractionExhausted, strings.Join(parts, "; "))
}

func (e *ExtractionError) Unwrap() error { return ErrExtractionExhausted }

// AttemptedStrategies returns the strategy names in the order they were tried.
func (e *ExtractionError) AttemptedStrategies() []string {
	names := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		names[i] = a.Strategy
	}
	return names
}

// MalformedInputError is returned when a delimited statement has no
// resolvable header or required columns.
type MalformedInputError struct {
	File   string
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.File, ErrMalformedInput, e.Reason)
}

func (e *MalformedInputError) Unwrap() error { return ErrMalformedInput }

// RowError is a non-fatal, row-level parse failure.
type RowError struct {
	Row     int
	Column  string
	Message string
	RawData string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d, column %s: %s", e.Row, e.Column, e.Message)
}

// RecordError is a non-fatal failure to normalize a single raw record.
type RecordError struct {
	Index  int
	Field  string
	Reason string
	Value  string
}

func (e RecordError) Error() string {
	return fmt.Sprintf("record %d: %s: %s (%q)", e.Index, e.Field, e.Reason, e.Value)
}
