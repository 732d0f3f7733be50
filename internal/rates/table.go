// Package rates owns the process-wide exchange-rate table.
//
// Rates are expressed as units of a currency per one unit of the pivot currency,
// the shape returned by the upstream /latest/<pivot> endpoint. The pivot always
// maps to exactly one.
package rates

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// Getter resolves a currency code to its rate.
type Getter interface {
	Get(code string) (decimal.Decimal, bool)
}

// Table is an immutable rate snapshot.
type Table struct {
	pivot     string
	values    map[string]decimal.Decimal
	updatedAt time.Time
	source    string
}

// NewTable copies values into a new snapshot and pins the pivot to one.
func NewTable(pivot string, values map[string]decimal.Decimal, source string, updatedAt time.Time) *Table {
	copied := make(map[string]decimal.Decimal, len(values)+1)
	for code, rate := range values {
		copied[code] = rate
	}
	copied[pivot] = decimal.NewFromInt(1)
	return &Table{pivot: pivot, values: copied, source: source, updatedAt: updatedAt}
}

// Get returns the rate for a currency code.
func (t *Table) Get(code string) (decimal.Decimal, bool) {
	if t == nil {
		return decimal.Decimal{}, false
	}
	rate, ok := t.values[code]
	return rate, ok
}

// Pivot returns the reference currency.
func (t *Table) Pivot() string { return t.pivot }

// Source names where the snapshot came from ("default" or the upstream URL).
func (t *Table) Source() string { return t.source }

// UpdatedAt is when the snapshot was adopted.
func (t *Table) UpdatedAt() time.Time { return t.updatedAt }

// Len reports the number of currencies.
func (t *Table) Len() int { return len(t.values) }

// Values returns a copy of the rate map.
func (t *Table) Values() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(t.values))
	for code, rate := range t.values {
		out[code] = rate
	}
	return out
}

// Codes returns the currency codes in lexical order.
func (t *Table) Codes() []string {
	codes := make([]string, 0, len(t.values))
	for code := range t.values {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Store holds the current table. Readers never lock; writers replace the whole
// snapshot.
type Store struct {
	current atomic.Pointer[Table]
}

// NewStore constructs a store seeded with initial.
func NewStore(initial *Table) *Store {
	s := &Store{}
	s.current.Store(initial)
	return s
}

// Snapshot returns the table in effect. Callers should use one snapshot for a
// whole computation.
func (s *Store) Snapshot() *Table {
	return s.current.Load()
}

// Get reads a rate from the current snapshot.
func (s *Store) Get(code string) (decimal.Decimal, bool) {
	return s.Snapshot().Get(code)
}

// Replace swaps in a new table.
func (s *Store) Replace(t *Table) {
	s.current.Store(t)
}

var (
	_ Getter = (*Table)(nil)
	_ Getter = (*Store)(nil)
)
