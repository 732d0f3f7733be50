package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"globalprice/internal/catalog"
	"globalprice/internal/compare"
	"globalprice/internal/fetcher"
	"globalprice/internal/rates"
)

type stubProvider struct {
	name     string
	products []catalog.Product
	err      error
	calls    int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Search(ctx context.Context, query string) ([]catalog.Product, error) {
	s.calls++
	return s.products, s.err
}

type stubSearcher struct {
	hits []fetcher.ProductHit
	err  error
	wait time.Duration
}

func (s *stubSearcher) SearchProducts(ctx context.Context, query string) ([]fetcher.ProductHit, error) {
	if s.wait > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.wait):
		}
	}
	return s.hits, s.err
}

func newService(secondary Provider) *Service {
	return NewService(catalog.Default(), rates.NewStore(rates.Default("ILS")), secondary, zerolog.Nop())
}

func TestSearchCatalogOnly(t *testing.T) {
	svc := newService(nil)

	results, err := svc.Search(context.Background(), "iphone", "IL")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p2", results[0].ID)
	assert.Len(t, results[0].Comparisons, 5)

	empty, err := svc.Search(context.Background(), "", "IL")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSearchUnknownOrigin(t *testing.T) {
	_, err := newService(nil).Search(context.Background(), "iphone", "FR")
	assert.ErrorIs(t, err, compare.ErrUnknownCountry)
}

func TestSearchPrefersSecondary(t *testing.T) {
	live := &stubProvider{name: "live", products: []catalog.Product{{
		ID:     "B1",
		Name:   "Live iPhone",
		Prices: map[string]decimal.Decimal{"US": decimal.NewFromInt(800), "IL": decimal.NewFromInt(3600)},
	}}}
	svc := newService(live)

	results, err := svc.Search(context.Background(), "iphone", "IL")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "B1", results[0].ID)
}

func TestSearchFallsBackOnFailureOrEmpty(t *testing.T) {
	for name, live := range map[string]*stubProvider{
		"failure": {name: "live", err: errors.New("quota exceeded")},
		"empty":   {name: "live"},
	} {
		t.Run(name, func(t *testing.T) {
			svc := newService(live)
			results, err := svc.Search(context.Background(), "iphone", "IL")
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, "p2", results[0].ID)
			assert.Equal(t, 1, live.calls)
		})
	}
}

func TestFallbackAllFailing(t *testing.T) {
	f := Fallback(zerolog.Nop(),
		&stubProvider{name: "a", err: errors.New("a down")},
		&stubProvider{name: "b", err: errors.New("b down")},
	)
	_, err := f.Search(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a down")
	assert.Contains(t, err.Error(), "b down")
}

func TestGetUsesCatalogOnly(t *testing.T) {
	live := &stubProvider{name: "live", products: []catalog.Product{{ID: "B1"}}}
	svc := newService(live)

	res, err := svc.Get(context.Background(), "p1", "IL")
	require.NoError(t, err)
	assert.True(t, res.OriginPrice.Equal(decimal.NewFromInt(150)))

	_, err = svc.Get(context.Background(), "B1", "IL")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, live.calls)

	_, err = svc.Get(context.Background(), "p1", "FR")
	assert.ErrorIs(t, err, compare.ErrUnknownCountry)
}

func TestMissingRateAfterRefreshYieldsNullRecords(t *testing.T) {
	store := rates.NewStore(rates.Default("ILS"))
	svc := NewService(catalog.Default(), store, nil, zerolog.Nop())

	// an upstream table without THB replaces the defaults
	store.Replace(rates.NewTable("ILS", map[string]decimal.Decimal{
		"USD": decimal.RequireFromString("0.27"),
		"EUR": decimal.RequireFromString("0.25"),
		"GBP": decimal.RequireFromString("0.21"),
		"JPY": decimal.RequireFromString("40"),
	}, "upstream", time.Now()))

	res, err := svc.Get(context.Background(), "p1", "IL")
	require.NoError(t, err)
	for _, rec := range res.Comparisons {
		if rec.Country.Code == "TH" {
			assert.False(t, rec.Converted())
			assert.True(t, rec.ShelfPrice.Equal(decimal.NewFromInt(1200)))
		} else {
			assert.True(t, rec.Converted(), rec.Country.Code)
		}
	}
}

func TestExternalProviderEstimatesMarkets(t *testing.T) {
	searcher := &stubSearcher{hits: []fetcher.ProductHit{{ID: "B1", Title: "Thing", Category: "General", Price: decimal.NewFromInt(100)}}}
	p := NewExternalProvider(searcher, time.Second)

	products, err := p.Search(context.Background(), "thing")
	require.NoError(t, err)
	require.Len(t, products, 1)

	got := products[0].Prices
	assert.True(t, got["US"].Equal(decimal.NewFromInt(100)))
	assert.True(t, got["DE"].Equal(decimal.NewFromInt(95)))
	assert.True(t, got["UK"].Equal(decimal.NewFromInt(85)))
	assert.True(t, got["JP"].Equal(decimal.NewFromInt(11000)))
	assert.True(t, got["IL"].Equal(decimal.NewFromInt(450)))
	assert.True(t, got["TH"].Equal(decimal.NewFromInt(3500)))
}

func TestExternalProviderTimeoutFallsBack(t *testing.T) {
	searcher := &stubSearcher{wait: time.Second}
	svc := newService(NewExternalProvider(searcher, 20*time.Millisecond))

	start := time.Now()
	results, err := svc.Search(context.Background(), "labubu", "IL")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	require.Len(t, results, 1)
	assert.Equal(t, "p1", results[0].ID)
}

func TestDealsAndCountries(t *testing.T) {
	svc := newService(nil)
	assert.Len(t, svc.Countries(), 6)
	deals := svc.Deals("JP")
	assert.Contains(t, deals.Categories, "Anime Figures")
	assert.NotEmpty(t, deals.Products)
}
