package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const maxRatesBody = 1 << 20

// ExchangeRateOptions parameterise the exchange-rate fetcher.
type ExchangeRateOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// ExchangeRateAPI fetches rates from an exchangerate-api compatible endpoint
// (GET {base}/latest/{pivot}).
type ExchangeRateAPI struct {
	opts    ExchangeRateOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewExchangeRateAPI constructs a rate fetcher.
func NewExchangeRateAPI(opts ExchangeRateOptions, logger zerolog.Logger) *ExchangeRateAPI {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.exchangerate-api.com/v4"
	}

	return &ExchangeRateAPI{
		opts:    opts,
		logger:  logger.With().Str("component", "rate_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Endpoint returns the URL queried for pivot.
func (e *ExchangeRateAPI) Endpoint(pivot string) string {
	return e.baseURL + "/latest/" + url.PathEscape(pivot)
}

// FetchRates retrieves the rate table for pivot.
func (e *ExchangeRateAPI) FetchRates(ctx context.Context, pivot string) (map[string]decimal.Decimal, error) {
	if pivot == "" {
		return nil, errors.New("pivot currency required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.Endpoint(pivot), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(e.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "globalprice/1.0")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxRatesBody))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError("exchange rate api", resp.StatusCode, payload)
	}

	var body ratesResponse
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}

	if body.Base != "" && !strings.EqualFold(body.Base, pivot) {
		return nil, fmt.Errorf("rates returned for base %s, want %s", body.Base, pivot)
	}
	if len(body.Rates) == 0 {
		return nil, errors.New("rates response carried no rates")
	}

	out := make(map[string]decimal.Decimal, len(body.Rates))
	for code, raw := range body.Rates {
		rate, err := decimal.NewFromString(raw.String())
		if err != nil {
			return nil, fmt.Errorf("parse rate %s: %w", code, err)
		}
		out[strings.ToUpper(code)] = rate
	}

	e.logger.Debug().Str("pivot", pivot).Int("currencies", len(out)).Msg("rates fetched")
	return out, nil
}

type ratesResponse struct {
	Base  string                 `json:"base"`
	Rates map[string]json.Number `json:"rates"`
}

type errorResponse struct {
	Result    string `json:"result"`
	ErrorType string `json:"error-type"`
	Message   string `json:"message"`
}

func parseHTTPError(api string, status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("%s error (%d): %s", api, status, apiErr.Message)
		}
		if apiErr.ErrorType != "" {
			return fmt.Errorf("%s error (%d): %s", api, status, apiErr.ErrorType)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("%s error (%d): %s", api, status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("%s error (%d)", api, status)
}

var _ RateFetcher = (*ExchangeRateAPI)(nil)
