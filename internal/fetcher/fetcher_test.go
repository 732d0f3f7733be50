package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestExchangeRateFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/latest/ILS" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"ILS","rates":{"ILS":1,"USD":0.2667,"jpy":40.12}}`))
	}))
	defer srv.Close()

	f := NewExchangeRateAPI(ExchangeRateOptions{BaseURL: srv.URL + "/", Timeout: time.Second}, noopLogger())
	got, err := f.FetchRates(context.Background(), "ILS")
	if err != nil {
		t.Fatalf("successful response should not fail: %v", err)
	}
	if !got["USD"].Equal(decimal.RequireFromString("0.2667")) {
		t.Fatalf("USD rate = %s", got["USD"])
	}
	if !got["JPY"].Equal(decimal.RequireFromString("40.12")) {
		t.Fatalf("currency codes should be upper-cased, got %v", got)
	}
}

func TestExchangeRateFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result":"error","error-type":"unsupported-code"}`))
	}))
	defer srv.Close()

	f := NewExchangeRateAPI(ExchangeRateOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	_, err := f.FetchRates(context.Background(), "XXX")
	if err == nil || !strings.Contains(err.Error(), "unsupported-code") {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestExchangeRateFetchRejectsGarbage(t *testing.T) {
	cases := map[string]string{
		"wrong base": `{"base":"USD","rates":{"USD":1}}`,
		"no rates":   `{"base":"ILS","rates":{}}`,
		"not json":   `<html>`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			f := NewExchangeRateAPI(ExchangeRateOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
			if _, err := f.FetchRates(context.Background(), "ILS"); err == nil {
				t.Fatal("garbled response should fail")
			}
		})
	}
}

func TestExchangeRateFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	f := NewExchangeRateAPI(ExchangeRateOptions{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, noopLogger())
	if _, err := f.FetchRates(context.Background(), "ILS"); err == nil {
		t.Fatal("timeout should surface as an error")
	}
}

func TestProductSearchMissingKey(t *testing.T) {
	p := NewProductSearch(ProductSearchOptions{}, noopLogger())
	if _, err := p.SearchProducts(context.Background(), "iphone"); err == nil {
		t.Fatal("missing api key should fail")
	}
}

func TestProductSearchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-RapidAPI-Key") != "key" {
			t.Fatalf("api key header missing")
		}
		if r.URL.Query().Get("query") != "switch" || r.URL.Query().Get("country") != "US" {
			t.Fatalf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"data":{"products":[
			{"asin":"B1","product_title":"Nintendo Switch OLED Model with White Joy-Con Controllers and Dock","product_price":"$1,349.99","product_photo":"img"},
			{"asin":"B2","product_title":"No price","product_price":null},
			{"asin":"B3","product_title":"Case","product_price":"$19","product_category":"Accessories"}
		]}}`))
	}))
	defer srv.Close()

	p := NewProductSearch(ProductSearchOptions{BaseURL: srv.URL, APIKey: "key", Timeout: time.Second}, noopLogger())
	hits, err := p.SearchProducts(context.Background(), "switch")
	if err != nil {
		t.Fatalf("search should succeed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 priced hits, got %d", len(hits))
	}
	if !hits[0].Price.Equal(decimal.RequireFromString("1349.99")) {
		t.Fatalf("price = %s", hits[0].Price)
	}
	if !strings.HasSuffix(hits[0].Title, "...") || len([]rune(hits[0].Title)) != maxTitleLength+3 {
		t.Fatalf("long titles should be truncated: %q", hits[0].Title)
	}
	if hits[0].Category != "General" || hits[1].Category != "Accessories" {
		t.Fatalf("unexpected categories %q %q", hits[0].Category, hits[1].Category)
	}
}

func TestProductSearchMissingProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"OK"}`))
	}))
	defer srv.Close()

	p := NewProductSearch(ProductSearchOptions{BaseURL: srv.URL, APIKey: "key", Timeout: time.Second}, noopLogger())
	if _, err := p.SearchProducts(context.Background(), "x"); err == nil {
		t.Fatal("missing data.products should fail")
	}
}
