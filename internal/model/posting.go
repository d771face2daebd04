package model

import (
	"github.com/shopspring/decimal"
)

// Flag marks a transaction or posting for review.
type Flag string

const (
	FlagNone    Flag = ""
	FlagOkay    Flag = "*"
	FlagWarning Flag = "!" // amount needs manual fixing
)

// Amount is an exact quantity of a single currency.
type Amount struct {
	Number   decimal.Decimal
	Currency string
}

// NewAmount returns an Amount of number in currency.
func NewAmount(number decimal.Decimal, currency string) Amount {
	return Amount{Number: number, Currency: currency}
}

// Neg returns the amount with its sign flipped.
func (a Amount) Neg() Amount {
	return Amount{Number: a.Number.Neg(), Currency: a.Currency}
}

// IsZero reports whether the amount has zero magnitude.
func (a Amount) IsZero() bool {
	return a.Number.IsZero()
}

// String renders "-100.00 CNY".
func (a Amount) String() string {
	return a.Number.StringFixed(2) + " " + a.Currency
}

// Posting is one leg of a transaction.
type Posting struct {
	Account string
	Units   Amount
	Flag    Flag
}
