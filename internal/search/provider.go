// Package search resolves queries and ids to products and prices them with the
// comparison engine.
package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"globalprice/internal/catalog"
)

// Provider supplies products for a text query.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]catalog.Product, error)
}

// CatalogProvider serves the static catalog. It never fails.
type CatalogProvider struct {
	catalog *catalog.Catalog
}

// NewCatalogProvider wraps a catalog.
func NewCatalogProvider(c *catalog.Catalog) *CatalogProvider {
	return &CatalogProvider{catalog: c}
}

// Name implements Provider.
func (p *CatalogProvider) Name() string { return "catalog" }

// Search implements Provider with a case-insensitive substring match on name.
func (p *CatalogProvider) Search(_ context.Context, query string) ([]catalog.Product, error) {
	return p.catalog.Match(query), nil
}

// Lookup resolves a product by id.
func (p *CatalogProvider) Lookup(id string) (catalog.Product, bool) {
	return p.catalog.Product(id)
}

// FallbackProvider tries its providers in order and returns the first non-empty
// result that came back without error.
type FallbackProvider struct {
	providers []Provider
	logger    zerolog.Logger
}

// Fallback builds an ordered-fallback combinator.
func Fallback(logger zerolog.Logger, providers ...Provider) *FallbackProvider {
	return &FallbackProvider{
		providers: providers,
		logger:    logger.With().Str("component", "search_fallback").Logger(),
	}
}

// Name implements Provider.
func (f *FallbackProvider) Name() string { return "fallback" }

// Search implements Provider. Failures are logged, never returned, unless every
// provider failed.
func (f *FallbackProvider) Search(ctx context.Context, query string) ([]catalog.Product, error) {
	var errs []error
	for _, p := range f.providers {
		products, err := p.Search(ctx, query)
		if err != nil {
			f.logger.Warn().Err(err).Str("provider", p.Name()).Str("query", query).Msg("provider failed, falling back")
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		if len(products) == 0 {
			f.logger.Debug().Str("provider", p.Name()).Str("query", query).Msg("provider returned nothing, falling back")
			continue
		}
		return products, nil
	}
	if len(errs) == len(f.providers) && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, nil
}

var (
	_ Provider = (*CatalogProvider)(nil)
	_ Provider = (*FallbackProvider)(nil)
)
