package importer

import (
	"fmt"

	"github.com/cleared-dev/sui/internal/accounts"
)

// Lookup failures are defined next to the tables that produce them.
type (
	UnknownAccountError  = accounts.UnknownAccountError
	UnknownCategoryError = accounts.UnknownCategoryError
)

// UnsupportedTransactionTypeError reports a type code outside the known set.
type UnsupportedTransactionTypeError struct {
	Type string
}

func (e *UnsupportedTransactionTypeError) Error() string {
	return fmt.Sprintf("unsupported transaction type %q", e.Type)
}

// DateParseError reports a date cell no supported layout accepts.
type DateParseError struct {
	Value string
	Err   error
}

func (e *DateParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("parsing date %q", e.Value)
	}
	return fmt.Sprintf("parsing date %q: %v", e.Value, e.Err)
}

func (e *DateParseError) Unwrap() error { return e.Err }

// AmountParseError reports a missing or non-numeric amount cell.
type AmountParseError struct {
	Value string
	Err   error
}

func (e *AmountParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("parsing amount %q", e.Value)
	}
	return fmt.Sprintf("parsing amount %q: %v", e.Value, e.Err)
}

func (e *AmountParseError) Unwrap() error { return e.Err }

// RowError locates a failure at a row of an export file.
type RowError struct {
	File string
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s: row %d: %v", e.File, e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }
