package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Source locates the CSV row a transaction was extracted from.
type Source struct {
	File string
	Line int // 1-based, counted from the first data row
}

func (s Source) String() string {
	return fmt.Sprintf("%s:%d", s.File, s.Line)
}

// Transaction is a dated double-entry event built from one export row.
// Empty Payee or Narration means the row had no value.
type Transaction struct {
	Source    Source
	Date      time.Time
	Flag      Flag
	Payee     string
	Narration string
	Postings  []Posting
}

// Totals sums posting units per currency.
func (t Transaction) Totals() map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, p := range t.Postings {
		totals[p.Units.Currency] = totals[p.Units.Currency].Add(p.Units.Number)
	}
	return totals
}

// Balanced reports whether the postings net to zero in every currency.
func (t Transaction) Balanced() bool {
	for _, total := range t.Totals() {
		if !total.IsZero() {
			return false
		}
	}
	return true
}

// HasWarning reports whether any posting is flagged for manual review.
func (t Transaction) HasWarning() bool {
	for _, p := range t.Postings {
		if p.Flag == FlagWarning {
			return true
		}
	}
	return false
}
