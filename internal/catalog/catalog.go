// Package catalog holds the read-only country and product reference data.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Country is a tracked market.
type Country struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Symbol   string `json:"symbol"`
	Region   string `json:"region"`
}

// Product is a catalog item with its shelf price per country, in local currency.
type Product struct {
	ID       string                     `json:"id"`
	Name     string                     `json:"name"`
	Category string                     `json:"category"`
	Image    string                     `json:"image"`
	Prices   map[string]decimal.Decimal `json:"prices"`
}

// CountryLookup resolves a country code.
type CountryLookup interface {
	Country(code string) (Country, bool)
}

// Catalog is an immutable index over countries, products and deal categories.
// It is safe for concurrent use.
type Catalog struct {
	countries   []Country
	byCode      map[string]Country
	products    []Product
	byID        map[string]Product
	dealsByCode map[string][]string
}

// New validates and indexes the given data. Slices and maps are copied.
func New(countries []Country, products []Product, deals map[string][]string) (*Catalog, error) {
	c := &Catalog{
		byCode:      make(map[string]Country, len(countries)),
		byID:        make(map[string]Product, len(products)),
		dealsByCode: make(map[string][]string, len(deals)),
	}

	for _, country := range countries {
		if country.Code == "" {
			return nil, fmt.Errorf("catalog: country without code")
		}
		if _, err := currency.ParseISO(country.Currency); err != nil {
			return nil, fmt.Errorf("catalog: country %s: invalid currency %q: %w", country.Code, country.Currency, err)
		}
		if _, dup := c.byCode[country.Code]; dup {
			return nil, fmt.Errorf("catalog: duplicate country %s", country.Code)
		}
		c.byCode[country.Code] = country
		c.countries = append(c.countries, country)
	}

	for _, product := range products {
		if product.ID == "" {
			return nil, fmt.Errorf("catalog: product without id")
		}
		if _, dup := c.byID[product.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate product %s", product.ID)
		}
		prices := make(map[string]decimal.Decimal, len(product.Prices))
		for code, price := range product.Prices {
			if !price.IsPositive() {
				return nil, fmt.Errorf("catalog: product %s: non-positive price for %s", product.ID, code)
			}
			prices[code] = price
		}
		product.Prices = prices
		c.byID[product.ID] = product
		c.products = append(c.products, product)
	}

	for code, categories := range deals {
		c.dealsByCode[code] = append([]string(nil), categories...)
	}

	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultCountries(), defaultProducts(), defaultDeals())
	if err != nil {
		panic("invalid built-in catalog: " + err.Error())
	}
	return c
}

// Countries lists all countries in catalog order.
func (c *Catalog) Countries() []Country {
	return append([]Country(nil), c.countries...)
}

// Country resolves a country by code.
func (c *Catalog) Country(code string) (Country, bool) {
	country, ok := c.byCode[code]
	return country, ok
}

// Products lists all products in catalog order.
func (c *Catalog) Products() []Product {
	return append([]Product(nil), c.products...)
}

// Product resolves a product by id.
func (c *Catalog) Product(id string) (Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Match returns the products whose name contains query, case-insensitively.
// An empty query matches nothing.
func (c *Catalog) Match(query string) []Product {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	var out []Product
	for _, p := range c.products {
		if strings.Contains(strings.ToLower(p.Name), query) {
			out = append(out, p)
		}
	}
	return out
}

// DealCategories returns the categories a country is known to be cheap for.
func (c *Catalog) DealCategories(code string) []string {
	return append([]string{}, c.dealsByCode[code]...)
}

// Deal is a product projected onto a destination's shelf price.
type Deal struct {
	Product
	PriceInDestination decimal.NullDecimal `json:"priceInDestination"`
}

// Deals is the listDeals projection for one destination.
type Deals struct {
	Categories []string `json:"categories"`
	Products   []Deal   `json:"products"`
}

// DealsFor filters products by the destination's affinity categories. A category
// matches when either string contains the other, so "Clothing (Brands)" covers
// "Clothing".
func (c *Catalog) DealsFor(code string) Deals {
	categories := c.DealCategories(code)
	deals := Deals{Categories: categories, Products: []Deal{}}
	for _, p := range c.products {
		if !matchesAny(p.Category, categories) {
			continue
		}
		deal := Deal{Product: p}
		if price, ok := p.Prices[code]; ok {
			deal.PriceInDestination = decimal.NewNullDecimal(price)
		}
		deals.Products = append(deals.Products, deal)
	}
	return deals
}

func matchesAny(category string, candidates []string) bool {
	for _, cand := range candidates {
		if strings.Contains(cand, category) || strings.Contains(category, cand) {
			return true
		}
	}
	return false
}

// CountryCodes returns the sorted country codes present in a price map.
func CountryCodes(prices map[string]decimal.Decimal) []string {
	codes := make([]string, 0, len(prices))
	for code := range prices {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

var _ CountryLookup = (*Catalog)(nil)
