package importer

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/sui/internal/accounts"
	"github.com/cleared-dev/sui/internal/model"
)

// TxnType is a sui.com transaction-type code.
type TxnType string

const (
	TypeExpense              TxnType = "支出"
	TypeIncome               TxnType = "收入"
	TypeTransfer             TxnType = "转账"
	TypeAssetAdjustment      TxnType = "余额变更"
	TypeLiabilityAdjustment  TxnType = "负债变更"
	TypeReceivableAdjustment TxnType = "债权变更"
)

// ParseTxnType validates a raw type cell.
func ParseTxnType(s string) (TxnType, error) {
	t := TxnType(strings.TrimSpace(s))
	switch t {
	case TypeExpense, TypeIncome, TypeTransfer,
		TypeAssetAdjustment, TypeLiabilityAdjustment, TypeReceivableAdjustment:
		return t, nil
	}
	return "", &UnsupportedTransactionTypeError{Type: s}
}

// Tables resolves sui.com names to ledger accounts.
type Tables interface {
	Account(name string) (account, currency string, err error)
	Category(name string) (string, error)
	Adjustments() accounts.Adjustments
}

// SuiOptions configures a SuiImporter.
type SuiOptions struct {
	Columns  ColumnConfig // nil means DefaultColumns
	Dialect  Dialect
	Encoding string
	Debug    bool // log every raw row
	Logger   *zerolog.Logger
}

// SuiImporter converts sui.com (随手记) CSV exports into transactions.
// It holds no per-file state and may be shared between goroutines.
type SuiImporter struct {
	tables Tables
	opts   SuiOptions
	log    zerolog.Logger
}

// NewSuiImporter creates an importer over the given lookup tables.
func NewSuiImporter(tables Tables, opts SuiOptions) *SuiImporter {
	if opts.Columns == nil {
		opts.Columns = DefaultColumns()
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &SuiImporter{tables: tables, opts: opts, log: log}
}

// Name returns the registry key.
func (s *SuiImporter) Name() string { return "sui" }

// Open opens path with the configured dialect and encoding.
func (s *SuiImporter) Open(path string) (*FileSource, error) {
	return OpenFile(path, s.opts.Dialect, s.opts.Encoding)
}

// Identify reports whether path is a CSV file whose columns this importer
// can resolve.
func (s *SuiImporter) Identify(path string) (bool, error) {
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return false, nil
	}
	src, err := s.Open(path)
	if err != nil {
		return false, err
	}
	defer src.Close()

	head, err := src.Head()
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	cols, _, err := ResolveColumns(s.opts.Columns, head)
	if err != nil {
		return false, nil
	}
	_, ok := cols[ColType]
	return ok, nil
}

// Extract converts every row of src into a transaction and returns them
// oldest first. existing is accepted for incremental-import callers and is
// not consulted. Any bad row aborts the whole extraction.
func (s *SuiImporter) Extract(src RowSource, existing []model.Transaction) ([]model.Transaction, error) {
	head, err := src.Head()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cols, hasHeader, err := ResolveColumns(s.opts.Columns, head)
	if err != nil {
		return nil, fmt.Errorf("%s: resolving columns: %w", src.Name(), err)
	}

	base := 0
	if hasHeader {
		rec, err := src.Read()
		if err != nil {
			return nil, err
		}
		base = rec.Row
	}

	m := &rowMapper{cols: cols, tables: s.tables}
	var txns []model.Transaction
	for {
		rec, err := src.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if isBlank(rec.Fields) || strings.HasPrefix(rec.Fields[0], "#") {
			continue
		}

		line := rec.Row - base
		if s.opts.Debug {
			s.log.Debug().Str("file", src.Name()).Int("row", line).Strs("fields", rec.Fields).Msg("row")
		}

		txn, err := m.transaction(rec.Fields)
		if err != nil {
			return nil, &RowError{File: src.Name(), Line: line, Err: err}
		}
		txn.Source = model.Source{File: src.Name(), Line: line}
		txns = append(txns, txn)
	}

	// Exports list newest first.
	slices.Reverse(txns)
	return txns, nil
}

func isBlank(fields []string) bool {
	return len(fields) == 0 || (len(fields) == 1 && fields[0] == "")
}

// rowMapper holds the column mapping resolved for a single Extract call.
type rowMapper struct {
	cols   ColumnIndex
	tables Tables
}

func (m *rowMapper) transaction(row []string) (model.Transaction, error) {
	raw, _ := m.cols.Get(row, ColType)
	typ, err := ParseTxnType(raw)
	if err != nil {
		return model.Transaction{}, err
	}
	date, err := m.date(row)
	if err != nil {
		return model.Transaction{}, err
	}

	txn := model.Transaction{
		Date:      date,
		Flag:      model.FlagOkay,
		Payee:     m.text(row, ColPayee),
		Narration: m.text(row, ColNarration),
	}
	txn.Postings, err = m.postings(typ, row)
	if err != nil {
		return model.Transaction{}, err
	}
	return txn, nil
}

func (m *rowMapper) postings(typ TxnType, row []string) ([]model.Posting, error) {
	amount, err := m.amount(row)
	if err != nil {
		return nil, err
	}
	account, currency, err := m.account(row, ColAccount1)
	if err != nil {
		return nil, err
	}
	units := model.NewAmount(amount, currency)
	adj := m.tables.Adjustments()

	switch typ {
	case TypeExpense:
		category, err := m.category(row)
		if err != nil {
			return nil, err
		}
		return pair(account, units.Neg(), category, units), nil

	case TypeIncome:
		category, err := m.category(row)
		if err != nil {
			return nil, err
		}
		return pair(account, units, category, units.Neg()), nil

	case TypeTransfer:
		to, toCurrency, err := m.account(row, ColAccount2)
		if err != nil {
			return nil, err
		}
		from := model.Posting{Account: account, Units: units.Neg()}
		if toCurrency == currency {
			return []model.Posting{from, {Account: to, Units: units}}, nil
		}
		// The converted amount is not in the export.
		return []model.Posting{from, {
			Account: to,
			Units:   model.NewAmount(decimal.Zero, toCurrency),
			Flag:    model.FlagWarning,
		}}, nil

	case TypeAssetAdjustment:
		return pair(account, units, adj.Asset, units.Neg()), nil

	case TypeReceivableAdjustment:
		return pair(account, units, adj.Receivable, units.Neg()), nil

	case TypeLiabilityAdjustment:
		return pair(account, units.Neg(), adj.Liability, units), nil
	}
	return nil, &UnsupportedTransactionTypeError{Type: string(typ)}
}

func pair(a string, ua model.Amount, b string, ub model.Amount) []model.Posting {
	return []model.Posting{{Account: a, Units: ua}, {Account: b, Units: ub}}
}

func (m *rowMapper) date(row []string) (time.Time, error) {
	raw, ok := m.cols.Get(row, ColDate)
	if !ok || strings.TrimSpace(raw) == "" {
		return time.Time{}, &DateParseError{Value: raw}
	}
	t, err := dateparse.ParseIn(strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, &DateParseError{Value: raw, Err: err}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// text returns the trimmed cell, or "" when absent or blank.
func (m *rowMapper) text(row []string, col Col) string {
	raw, _ := m.cols.Get(row, col)
	return strings.TrimSpace(raw)
}

func (m *rowMapper) amount(row []string) (decimal.Decimal, error) {
	raw, _ := m.cols.Get(row, ColAmount)
	return parseAmount(raw)
}

func parseAmount(raw string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return decimal.Decimal{}, &AmountParseError{Value: raw}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, &AmountParseError{Value: raw, Err: err}
	}
	return d, nil
}

func (m *rowMapper) account(row []string, col Col) (string, string, error) {
	raw, _ := m.cols.Get(row, col)
	return m.tables.Account(raw)
}

func (m *rowMapper) category(row []string) (string, error) {
	raw, _ := m.cols.Get(row, ColCategory)
	return m.tables.Category(raw)
}
