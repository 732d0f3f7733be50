package fetcher

import (
	"context"

	"github.com/shopspring/decimal"
)

// RateFetcher retrieves exchange rates relative to a pivot currency, expressed as
// units of each currency per one pivot unit.
type RateFetcher interface {
	FetchRates(ctx context.Context, pivot string) (map[string]decimal.Decimal, error)
}

// ProductHit is a single live search result priced in the searched market.
type ProductHit struct {
	ID       string
	Title    string
	Category string
	Photo    string
	Price    decimal.Decimal
}

// ProductSearcher queries a live product search API.
type ProductSearcher interface {
	SearchProducts(ctx context.Context, query string) ([]ProductHit, error)
}
