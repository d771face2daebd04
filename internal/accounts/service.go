package accounts

import (
	"fmt"
	"sort"
)

// UnknownAccountError reports a sui.com account name missing from the
// account or currency table.
type UnknownAccountError struct {
	Name string
}

func (e *UnknownAccountError) Error() string {
	return fmt.Sprintf("unknown account %q", e.Name)
}

// UnknownCategoryError reports a sui.com category missing from the category table.
type UnknownCategoryError struct {
	Name string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown category %q", e.Name)
}

// Adjustments holds the fixed counter-party accounts for balance adjustments.
type Adjustments struct {
	Asset      string
	Liability  string
	Receivable string
}

// Service provides read-only lookup over the sui.com mapping tables.
type Service struct {
	accounts    map[string]string
	currencies  map[string]string
	categories  map[string]string
	adjustments Adjustments
}

// NewService creates a Service. The maps are copied; later changes by the
// caller are not observed.
func NewService(accounts, currencies, categories map[string]string, adj Adjustments) *Service {
	return &Service{
		accounts:    clone(accounts),
		currencies:  clone(currencies),
		categories:  clone(categories),
		adjustments: adj,
	}
}

func clone(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Account returns the ledger account and currency for a sui.com account name.
func (s *Service) Account(name string) (string, string, error) {
	account, ok := s.accounts[name]
	if !ok {
		return "", "", &UnknownAccountError{Name: name}
	}
	currency, ok := s.currencies[name]
	if !ok {
		return "", "", &UnknownAccountError{Name: name}
	}
	return account, currency, nil
}

// Category returns the ledger account for a sui.com category.
func (s *Service) Category(name string) (string, error) {
	account, ok := s.categories[name]
	if !ok {
		return "", &UnknownCategoryError{Name: name}
	}
	return account, nil
}

// Adjustments returns the fixed adjustment accounts.
func (s *Service) Adjustments() Adjustments {
	return s.adjustments
}

// Validate checks the tables for configuration mistakes: missing adjustment
// accounts and names present in only one of the account/currency tables.
func (s *Service) Validate() []error {
	var errs []error

	if s.adjustments.Asset == "" {
		errs = append(errs, fmt.Errorf("asset adjustment account not set"))
	}
	if s.adjustments.Liability == "" {
		errs = append(errs, fmt.Errorf("liability adjustment account not set"))
	}
	if s.adjustments.Receivable == "" {
		errs = append(errs, fmt.Errorf("receivable adjustment account not set"))
	}

	for _, name := range sortedKeys(s.accounts) {
		if _, ok := s.currencies[name]; !ok {
			errs = append(errs, fmt.Errorf("account %q has no currency", name))
		}
	}
	for _, name := range sortedKeys(s.currencies) {
		if _, ok := s.accounts[name]; !ok {
			errs = append(errs, fmt.Errorf("currency for %q has no account", name))
		}
	}
	return errs
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
