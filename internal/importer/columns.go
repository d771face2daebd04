package importer

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Col is a logical column of a sui.com export.
type Col string

const (
	ColType      Col = "type"
	ColDate      Col = "date"
	ColCategory  Col = "category"
	ColAccount1  Col = "account1"
	ColAccount2  Col = "account2"
	ColAmount    Col = "amount"
	ColPayee     Col = "payee"
	ColNarration Col = "narration"
)

// ErrNoHeader is returned when columns are configured by header name but the
// file has no header row.
var ErrNoHeader = errors.New("columns configured by name but no header row found")

// Column selects a physical column by header name or zero-based index.
type Column struct {
	Header  string
	Index   int
	IsIndex bool
}

// Named selects the column whose header cell is h.
func Named(h string) Column { return Column{Header: h} }

// At selects the column at zero-based index i.
func At(i int) Column { return Column{Index: i, IsIndex: true} }

func (c Column) String() string {
	if c.IsIndex {
		return fmt.Sprintf("#%d", c.Index)
	}
	return c.Header
}

// UnmarshalYAML accepts either an integer index or a header name.
func (c *Column) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: column must be a header name or an index", node.Line)
	}
	if node.Tag == "!!int" {
		var i int
		if err := node.Decode(&i); err != nil {
			return err
		}
		if i < 0 {
			return fmt.Errorf("line %d: negative column index %d", node.Line, i)
		}
		*c = At(i)
		return nil
	}
	*c = Named(node.Value)
	return nil
}

// MarshalYAML writes indices as integers and names as strings.
func (c Column) MarshalYAML() (any, error) {
	if c.IsIndex {
		return c.Index, nil
	}
	return c.Header, nil
}

// ColumnConfig binds logical columns to physical ones. Unlisted columns are absent.
type ColumnConfig map[Col]Column

// DefaultColumns returns the header names used by sui.com exports.
func DefaultColumns() ColumnConfig {
	return ColumnConfig{
		ColType:      Named("交易类型"),
		ColDate:      Named("日期"),
		ColCategory:  Named("子分类"),
		ColAccount1:  Named("账户1"),
		ColAccount2:  Named("账户2"),
		ColAmount:    Named("金额"),
		ColPayee:     Named("商家"),
		ColNarration: Named("备注"),
	}
}

// ColumnIndex is a resolved column → row position mapping for one file.
type ColumnIndex map[Col]int

// Get returns the raw cell for col, or false if the column is absent in
// this file or the row is too short.
func (ci ColumnIndex) Get(row []string, col Col) (string, bool) {
	i, ok := ci[col]
	if !ok || i >= len(row) {
		return "", false
	}
	return row[i], true
}

// ResolveColumns maps cfg onto a file whose first record is head. It reports
// whether head is a header row that must be skipped.
func ResolveColumns(cfg ColumnConfig, head []string) (ColumnIndex, bool, error) {
	positions := make(map[string]int, len(head))
	for i, cell := range head {
		name := strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff"))
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	named := false
	hasHeader := false
	for _, c := range cfg {
		if c.IsIndex {
			continue
		}
		named = true
		if _, ok := positions[c.Header]; ok {
			hasHeader = true
		}
	}

	if !named {
		hasHeader = amountLooksLikeHeader(cfg, head)
	} else if !hasHeader {
		return nil, false, fmt.Errorf("%w (expected one of %s)", ErrNoHeader, strings.Join(headerNames(cfg), ", "))
	}

	idx := make(ColumnIndex, len(cfg))
	for col, c := range cfg {
		if c.IsIndex {
			idx[col] = c.Index
			continue
		}
		if i, ok := positions[c.Header]; ok {
			idx[col] = i
		}
	}
	return idx, hasHeader, nil
}

// amountLooksLikeHeader decides header presence for index-only configs: a
// data row always carries a number in the amount column.
func amountLooksLikeHeader(cfg ColumnConfig, head []string) bool {
	c, ok := cfg[ColAmount]
	if !ok || c.Index >= len(head) {
		return false
	}
	_, err := parseAmount(head[c.Index])
	return err != nil
}

func headerNames(cfg ColumnConfig) []string {
	var names []string
	for _, c := range cfg {
		if !c.IsIndex {
			names = append(names, c.Header)
		}
	}
	sort.Strings(names)
	return names
}
