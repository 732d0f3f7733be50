package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"globalprice/internal/catalog"
	"globalprice/internal/compare"
	"globalprice/internal/rates"
)

// ErrNotFound is returned when a product id does not resolve.
var ErrNotFound = errors.New("product not found")

// Service prices products for an origin country.
type Service struct {
	catalog  *catalog.Catalog
	primary  *CatalogProvider
	provider Provider
	rates    *rates.Store
	logger   zerolog.Logger
}

// NewService builds the lookup service. secondary may be nil; when set it is
// tried before the catalog for text searches.
func NewService(c *catalog.Catalog, rateStore *rates.Store, secondary Provider, logger zerolog.Logger) *Service {
	primary := NewCatalogProvider(c)
	var provider Provider = primary
	if secondary != nil {
		provider = Fallback(logger, secondary, primary)
	}
	return &Service{
		catalog:  c,
		primary:  primary,
		provider: provider,
		rates:    rateStore,
		logger:   logger.With().Str("component", "search").Logger(),
	}
}

// Countries lists the tracked countries.
func (s *Service) Countries() []catalog.Country {
	return s.catalog.Countries()
}

// Search returns priced results for query. Products that cannot be priced for
// origin are left out. An unknown origin is an error.
func (s *Service) Search(ctx context.Context, query, origin string) ([]compare.Result, error) {
	if _, ok := s.catalog.Country(origin); !ok {
		return nil, fmt.Errorf("%w: %s", compare.ErrUnknownCountry, origin)
	}
	if query == "" {
		return []compare.Result{}, nil
	}

	products, err := s.provider.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	table := s.rates.Snapshot()
	results := make([]compare.Result, 0, len(products))
	for _, p := range products {
		res, err := compare.Compare(p, origin, s.catalog, table)
		if err != nil {
			s.logger.Debug().Err(err).Str("product", p.ID).Str("origin", origin).Msg("product left out of results")
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

// Get prices a single catalog product. Live search results have no stable
// identity, so only the catalog is consulted.
func (s *Service) Get(_ context.Context, id, origin string) (compare.Result, error) {
	product, ok := s.primary.Lookup(id)
	if !ok {
		return compare.Result{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return compare.Compare(product, origin, s.catalog, s.rates.Snapshot())
}

// Product returns the raw catalog record.
func (s *Service) Product(id string) (catalog.Product, bool) {
	return s.catalog.Product(id)
}

// Deals lists products in the destination's affinity categories.
func (s *Service) Deals(destination string) catalog.Deals {
	return s.catalog.DealsFor(destination)
}

// Rates exposes the current rate snapshot.
func (s *Service) Rates() *rates.Table {
	return s.rates.Snapshot()
}
