package search

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"globalprice/internal/catalog"
	"globalprice/internal/fetcher"
)

// marketFactors estimate a market's shelf price from the US price. Live search
// only reads one storefront; querying every market per hit is too costly for the
// upstream quota.
var marketFactors = map[string]decimal.Decimal{
	"DE": decimal.RequireFromString("0.95"),
	"UK": decimal.RequireFromString("0.85"),
	"JP": decimal.NewFromInt(110),
	"IL": decimal.RequireFromString("4.5"),
	"TH": decimal.NewFromInt(35),
}

// ExternalProvider adapts a live product searcher.
type ExternalProvider struct {
	searcher fetcher.ProductSearcher
	timeout  time.Duration
}

// NewExternalProvider wraps searcher; every call is bounded by timeout.
func NewExternalProvider(searcher fetcher.ProductSearcher, timeout time.Duration) *ExternalProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ExternalProvider{searcher: searcher, timeout: timeout}
}

// Name implements Provider.
func (p *ExternalProvider) Name() string { return "external" }

// Search implements Provider.
func (p *ExternalProvider) Search(ctx context.Context, query string) ([]catalog.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	hits, err := p.searcher.SearchProducts(ctx, query)
	if err != nil {
		return nil, err
	}

	products := make([]catalog.Product, 0, len(hits))
	for _, hit := range hits {
		products = append(products, catalog.Product{
			ID:       hit.ID,
			Name:     hit.Title,
			Category: hit.Category,
			Image:    hit.Photo,
			Prices:   estimatePrices(hit.Price),
		})
	}
	return products, nil
}

func estimatePrices(us decimal.Decimal) map[string]decimal.Decimal {
	prices := map[string]decimal.Decimal{"US": us}
	for code, factor := range marketFactors {
		prices[code] = us.Mul(factor).Round(0)
	}
	return prices
}

var _ Provider = (*ExternalProvider)(nil)
