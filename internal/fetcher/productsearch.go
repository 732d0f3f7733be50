package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const (
	searchPath     = "/search"
	maxSearchBody  = 4 << 20
	maxTitleLength = 50
)

// ProductSearchOptions parameterise the RapidAPI product search fetcher.
type ProductSearchOptions struct {
	BaseURL string
	APIKey  string
	APIHost string
	Country string
	Timeout time.Duration
}

// ProductSearch queries the "real-time Amazon data" API on RapidAPI.
type ProductSearch struct {
	opts    ProductSearchOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewProductSearch constructs a live search fetcher.
func NewProductSearch(opts ProductSearchOptions, logger zerolog.Logger) *ProductSearch {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if opts.Country == "" {
		opts.Country = "US"
	}
	if opts.APIHost == "" {
		opts.APIHost = "real-time-amazon-data.p.rapidapi.com"
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://" + opts.APIHost
	}

	return &ProductSearch{
		opts:    opts,
		logger:  logger.With().Str("component", "search_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// SearchProducts runs a search and returns the hits that carry a price.
func (p *ProductSearch) SearchProducts(ctx context.Context, query string) ([]ProductHit, error) {
	if p.opts.APIKey == "" {
		return nil, errors.New("search api key not configured")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("country", p.opts.Country)
	params.Set("page", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+searchPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-RapidAPI-Key", p.opts.APIKey)
	req.Header.Set("X-RapidAPI-Host", p.opts.APIHost)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBody))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError("product search api", resp.StatusCode, payload)
	}
	if !gjson.ValidBytes(payload) {
		return nil, errors.New("product search api returned invalid json")
	}

	products := gjson.GetBytes(payload, "data.products")
	if !products.Exists() {
		return nil, fmt.Errorf("product search api response has no data.products")
	}

	hits := make([]ProductHit, 0, len(products.Array()))
	products.ForEach(func(_, item gjson.Result) bool {
		price, ok := parseShelfPrice(item.Get("product_price").String())
		if !ok {
			return true
		}
		category := item.Get("product_category").String()
		if category == "" {
			category = "General"
		}
		hits = append(hits, ProductHit{
			ID:       item.Get("asin").String(),
			Title:    truncateTitle(item.Get("product_title").String()),
			Category: category,
			Photo:    item.Get("product_photo").String(),
			Price:    price,
		})
		return true
	})

	p.logger.Debug().Str("query", query).Int("hits", len(hits)).Msg("live search completed")
	return hits, nil
}

// parseShelfPrice accepts strings like "$1,299.99".
func parseShelfPrice(raw string) (decimal.Decimal, bool) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	price, err := decimal.NewFromString(cleaned)
	if err != nil || !price.IsPositive() {
		return decimal.Decimal{}, false
	}
	return price, true
}

func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= maxTitleLength {
		return title
	}
	return string(runes[:maxTitleLength]) + "..."
}

var _ ProductSearcher = (*ProductSearch)(nil)
