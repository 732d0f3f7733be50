package rates

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceDefault marks the built-in table.
const SourceDefault = "default"

const defaultPivot = "ILS"

// units per one ILS
var defaultValues = map[string]string{
	"ILS": "1",
	"USD": "0.2667",
	"EUR": "0.2469",
	"GBP": "0.2105",
	"THB": "10",
	"JPY": "40",
}

// Default returns the static fallback table rebased onto pivot. If pivot is not
// part of the built-in set only the pivot itself is known.
func Default(pivot string) *Table {
	base := make(map[string]decimal.Decimal, len(defaultValues))
	for code, raw := range defaultValues {
		base[code] = decimal.RequireFromString(raw)
	}

	if pivot == defaultPivot {
		return NewTable(pivot, base, SourceDefault, time.Time{})
	}

	pivotRate, ok := base[pivot]
	if !ok {
		return NewTable(pivot, nil, SourceDefault, time.Time{})
	}

	rebased := make(map[string]decimal.Decimal, len(base))
	for code, rate := range base {
		rebased[code] = rate.DivRound(pivotRate, 8)
	}
	return NewTable(pivot, rebased, SourceDefault, time.Time{})
}
