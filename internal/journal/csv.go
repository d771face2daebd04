package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cleared-dev/sui/internal/model"
)

// Header is the CSV header written by WriteTransactions.
const Header = "date,flag,payee,narration,account,amount,currency,posting_flag,source,line"

const (
	numFields     = 10
	dateFormat    = "2006-01-02"
	colDate       = 0
	colFlag       = 1
	colPayee      = 2
	colNarration  = 3
	colAccount    = 4
	colAmount     = 5
	colCurrency   = 6
	colPostFlag   = 7
	colSource     = 8
	colSourceLine = 9
)

// WriteTransactions writes one CSV row per posting, header first.
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, txn := range txns {
		for _, row := range MarshalTransaction(txn) {
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing transaction %d: %w", i, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalTransaction converts a transaction to one row per posting.
func MarshalTransaction(txn model.Transaction) [][]string {
	rows := make([][]string, 0, len(txn.Postings))
	for _, p := range txn.Postings {
		row := make([]string, numFields)
		row[colDate] = txn.Date.Format(dateFormat)
		row[colFlag] = string(txn.Flag)
		row[colPayee] = txn.Payee
		row[colNarration] = txn.Narration
		row[colAccount] = p.Account
		row[colAmount] = p.Units.Number.StringFixed(2)
		row[colCurrency] = p.Units.Currency
		row[colPostFlag] = string(p.Flag)
		row[colSource] = txn.Source.File
		row[colSourceLine] = strconv.Itoa(txn.Source.Line)
		rows = append(rows, row)
	}
	return rows
}
