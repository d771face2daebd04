package journal

import (
	"fmt"

	"github.com/cleared-dev/sui/internal/model"
)

// ValidationError describes a transaction that breaks double-entry rules.
// Warning is set for postings deliberately left for manual fixing.
type ValidationError struct {
	Source      model.Source
	Description string
	Warning     bool
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Source, e.Description)
}

// Validate checks that every transaction has at least two postings and nets
// to zero in each currency. Transactions carrying a warning-flagged posting
// produce a Warning entry instead of a balance error.
func Validate(txns []model.Transaction) []ValidationError {
	var errs []ValidationError

	for _, txn := range txns {
		if len(txn.Postings) < 2 {
			errs = append(errs, ValidationError{
				Source:      txn.Source,
				Description: fmt.Sprintf("expected at least 2 postings, got %d", len(txn.Postings)),
			})
			continue
		}

		if txn.HasWarning() {
			for _, p := range txn.Postings {
				if p.Flag == model.FlagWarning {
					errs = append(errs, ValidationError{
						Source:      txn.Source,
						Description: fmt.Sprintf("%s needs a manual amount in %s", p.Account, p.Units.Currency),
						Warning:     true,
					})
				}
			}
			continue
		}

		for currency, total := range txn.Totals() {
			if !total.IsZero() {
				errs = append(errs, ValidationError{
					Source:      txn.Source,
					Description: fmt.Sprintf("postings sum to %s %s", total.StringFixed(2), currency),
				})
			}
		}
	}
	return errs
}

// Failures returns the entries that are not warnings.
func Failures(errs []ValidationError) []ValidationError {
	var out []ValidationError
	for _, e := range errs {
		if !e.Warning {
			out = append(out, e)
		}
	}
	return out
}
