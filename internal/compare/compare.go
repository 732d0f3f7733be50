// Package compare converts a product's per-country shelf prices into the origin
// currency and derives the savings against the origin shelf price.
package compare

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"globalprice/internal/catalog"
	"globalprice/internal/rates"
)

var (
	// ErrUnknownCountry is returned when the origin code is not in the catalog.
	ErrUnknownCountry = errors.New("unknown country")
	// ErrNoComparablePrice is returned when the origin shelf price or rate is unavailable.
	ErrNoComparablePrice = errors.New("no comparable price")
)

var hundred = decimal.NewFromInt(100)

// Record is one destination compared against the origin.
type Record struct {
	Country        catalog.Country     `json:"country"`
	ShelfPrice     decimal.Decimal     `json:"price"`
	ConvertedPrice decimal.NullDecimal `json:"convertedPrice"`
	Savings        decimal.NullDecimal `json:"savings"`
	SavingsPercent decimal.NullDecimal `json:"savingsPercent"`
}

// Converted reports whether the derived fields are available.
func (r Record) Converted() bool {
	return r.ConvertedPrice.Valid
}

// Result is a product priced from the point of view of one origin country.
type Result struct {
	catalog.Product
	Origin         string          `json:"origin"`
	OriginCurrency string          `json:"originCurrency"`
	CurrencySymbol string          `json:"currencySymbol"`
	OriginPrice    decimal.Decimal `json:"originPrice"`
	Comparisons    []Record        `json:"comparisons"`
}

// Compare prices product for every destination in its price map other than
// origin. Destinations unknown to the catalog are skipped; destinations whose
// currency has no rate are kept with null conversion fields. The result is
// ordered by country code.
func Compare(product catalog.Product, origin string, countries catalog.CountryLookup, table rates.Getter) (Result, error) {
	originCountry, ok := countries.Country(origin)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownCountry, origin)
	}
	originPrice, ok := product.Prices[origin]
	if !ok {
		return Result{}, fmt.Errorf("%w: product %s has no shelf price in %s", ErrNoComparablePrice, product.ID, origin)
	}
	originRate, ok := table.Get(originCountry.Currency)
	if !ok || !originRate.IsPositive() {
		return Result{}, fmt.Errorf("%w: no rate for origin currency %s", ErrNoComparablePrice, originCountry.Currency)
	}

	result := Result{
		Product:        product,
		Origin:         origin,
		OriginCurrency: originCountry.Currency,
		CurrencySymbol: originCountry.Symbol,
		OriginPrice:    originPrice,
		Comparisons:    make([]Record, 0, len(product.Prices)),
	}

	for _, code := range catalog.CountryCodes(product.Prices) {
		if code == origin {
			continue
		}
		dest, ok := countries.Country(code)
		if !ok {
			continue
		}

		record := Record{Country: dest, ShelfPrice: product.Prices[code]}
		localRate, ok := table.Get(dest.Currency)
		if ok && localRate.IsPositive() && !originPrice.IsZero() {
			converted := Convert(record.ShelfPrice, localRate, originRate)
			savings := originPrice.Sub(converted).Round(0)
			percent := savings.Div(originPrice).Mul(hundred).Round(0)

			record.ConvertedPrice = decimal.NewNullDecimal(converted)
			record.Savings = decimal.NewNullDecimal(savings)
			record.SavingsPercent = decimal.NewNullDecimal(percent)
		}
		result.Comparisons = append(result.Comparisons, record)
	}

	return result, nil
}

// Convert turns a local shelf price into origin currency units, rounded to the
// nearest whole unit (half away from zero).
func Convert(shelf, localRate, originRate decimal.Decimal) decimal.Decimal {
	return shelf.Div(localRate).Mul(originRate).Round(0)
}

// SortBySavings orders records by savings, largest first. Records without a
// conversion go last; ties fall back to country code.
func SortBySavings(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Savings.Valid != b.Savings.Valid {
			return a.Savings.Valid
		}
		if a.Savings.Valid && !a.Savings.Decimal.Equal(b.Savings.Decimal) {
			return a.Savings.Decimal.GreaterThan(b.Savings.Decimal)
		}
		return a.Country.Code < b.Country.Code
	})
}

// Best returns the destination with the largest savings, if any was converted.
func Best(records []Record) (Record, bool) {
	var best Record
	found := false
	for _, r := range records {
		if !r.Savings.Valid {
			continue
		}
		if !found || r.Savings.Decimal.GreaterThan(best.Savings.Decimal) {
			best, found = r, true
		}
	}
	return best, found
}
