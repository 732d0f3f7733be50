package compare

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"globalprice/internal/catalog"
	"globalprice/internal/rates"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func prices(kv ...any) map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{}
	for i := 0; i < len(kv); i += 2 {
		out[kv[i].(string)] = dec(kv[i+1].(string))
	}
	return out
}

func table(pivot string, values map[string]decimal.Decimal) *rates.Table {
	return rates.NewTable(pivot, values, "test", time.Time{})
}

func TestCompareLiteralFormula(t *testing.T) {
	cat := catalog.Default()
	product := catalog.Product{ID: "x", Prices: prices("IL", "150", "US", "40")}
	rt := table("ILS", prices("ILS", "1", "USD", "3.75"))

	res, err := Compare(product, "IL", cat, rt)
	require.NoError(t, err)
	require.Len(t, res.Comparisons, 1)

	us := res.Comparisons[0]
	assert.Equal(t, "US", us.Country.Code)
	assert.True(t, us.ShelfPrice.Equal(dec("40")))
	// 40 / 3.75 * 1 = 10.67
	assert.True(t, us.ConvertedPrice.Decimal.Equal(dec("11")), us.ConvertedPrice.Decimal.String())
	assert.True(t, us.Savings.Decimal.Equal(dec("139")))
	// 139 / 150 * 100 = 92.67
	assert.True(t, us.SavingsPercent.Decimal.Equal(dec("93")))

	assert.True(t, res.OriginPrice.Equal(dec("150")))
	assert.Equal(t, "₪", res.CurrencySymbol)
	assert.Equal(t, "ILS", res.OriginCurrency)
}

func TestCompareNeverIncludesOrigin(t *testing.T) {
	cat := catalog.Default()
	rt := rates.Default("ILS")
	for _, product := range cat.Products() {
		for origin := range product.Prices {
			res, err := Compare(product, origin, cat, rt)
			require.NoError(t, err)
			assert.Len(t, res.Comparisons, len(product.Prices)-1)
			for _, rec := range res.Comparisons {
				assert.NotEqual(t, origin, rec.Country.Code)
			}
		}
	}
}

func TestCompareSavingsExactlyOriginMinusConverted(t *testing.T) {
	cat := catalog.Default()
	rt := rates.Default("ILS")
	for _, product := range cat.Products() {
		res, err := Compare(product, "US", cat, rt)
		require.NoError(t, err)
		usd, _ := rt.Get("USD")
		for _, rec := range res.Comparisons {
			require.True(t, rec.Converted())
			local, _ := rt.Get(rec.Country.Currency)
			want := rec.ShelfPrice.Div(local).Mul(usd).Round(0)
			assert.True(t, want.Equal(rec.ConvertedPrice.Decimal))
			assert.True(t, res.OriginPrice.Sub(rec.ConvertedPrice.Decimal).Equal(rec.Savings.Decimal))
		}
	}
}

func TestCompareMissingDestinationRateKeepsRecord(t *testing.T) {
	cat := catalog.Default()
	product := catalog.Product{ID: "x", Prices: prices("IL", "150", "US", "40", "TH", "1200")}
	rt := table("ILS", prices("USD", "0.2667"))

	res, err := Compare(product, "IL", cat, rt)
	require.NoError(t, err)
	require.Len(t, res.Comparisons, 2)

	th := res.Comparisons[0]
	assert.Equal(t, "TH", th.Country.Code)
	assert.False(t, th.ConvertedPrice.Valid)
	assert.False(t, th.Savings.Valid)
	assert.False(t, th.SavingsPercent.Valid)
	assert.True(t, th.ShelfPrice.Equal(dec("1200")))

	assert.True(t, res.Comparisons[1].Converted())
}

func TestCompareSkipsUnknownDestination(t *testing.T) {
	cat := catalog.Default()
	product := catalog.Product{ID: "x", Prices: prices("IL", "150", "FR", "30", "US", "40")}

	res, err := Compare(product, "IL", cat, rates.Default("ILS"))
	require.NoError(t, err)
	require.Len(t, res.Comparisons, 1)
	assert.Equal(t, "US", res.Comparisons[0].Country.Code)
}

func TestCompareOriginFailures(t *testing.T) {
	cat := catalog.Default()
	product := catalog.Product{ID: "x", Prices: prices("US", "40", "DE", "35")}

	_, err := Compare(product, "FR", cat, rates.Default("ILS"))
	assert.ErrorIs(t, err, ErrUnknownCountry)

	_, err = Compare(product, "IL", cat, rates.Default("ILS"))
	assert.ErrorIs(t, err, ErrNoComparablePrice)

	_, err = Compare(product, "US", cat, table("ILS", prices("EUR", "0.25")))
	assert.ErrorIs(t, err, ErrNoComparablePrice)
}

func TestCompareZeroOriginPriceIsUnavailable(t *testing.T) {
	cat := catalog.Default()
	product := catalog.Product{ID: "x", Prices: map[string]decimal.Decimal{"IL": decimal.Zero, "US": dec("40")}}

	res, err := Compare(product, "IL", cat, rates.Default("ILS"))
	require.NoError(t, err)
	require.Len(t, res.Comparisons, 1)
	assert.False(t, res.Comparisons[0].Converted())
}

func TestCompareNegativeSavingsNotClamped(t *testing.T) {
	cat := catalog.Default()
	product := catalog.Product{ID: "x", Prices: prices("IL", "100", "US", "40")}
	rt := table("ILS", prices("USD", "0.25"))

	res, err := Compare(product, "IL", cat, rt)
	require.NoError(t, err)
	us := res.Comparisons[0]
	assert.True(t, us.ConvertedPrice.Decimal.Equal(dec("160")))
	assert.True(t, us.Savings.Decimal.Equal(dec("-60")))
	assert.True(t, us.SavingsPercent.Decimal.Equal(dec("-60")))
}

func TestConvertRoundsHalfAwayFromZero(t *testing.T) {
	assert.True(t, Convert(dec("5"), dec("2"), dec("1")).Equal(dec("3")))
	assert.True(t, Convert(dec("7"), dec("2"), dec("1")).Equal(dec("4")))
	assert.True(t, Convert(dec("10"), dec("4"), dec("1")).Equal(dec("3")))
}

func TestSortBySavingsAndBest(t *testing.T) {
	rec := func(code string, savings *int64) Record {
		r := Record{Country: catalog.Country{Code: code}}
		if savings != nil {
			r.Savings = decimal.NewNullDecimal(decimal.NewFromInt(*savings))
		}
		return r
	}
	ten, minus, big := int64(10), int64(-5), int64(40)
	records := []Record{rec("US", &ten), rec("TH", nil), rec("JP", &big), rec("DE", &minus), rec("AA", nil)}

	best, ok := Best(records)
	require.True(t, ok)
	assert.Equal(t, "JP", best.Country.Code)

	SortBySavings(records)
	codes := make([]string, len(records))
	for i, r := range records {
		codes[i] = r.Country.Code
	}
	assert.Equal(t, []string{"JP", "US", "DE", "AA", "TH"}, codes)

	_, ok = Best([]Record{rec("TH", nil)})
	assert.False(t, ok)
}

func TestResultJSONShape(t *testing.T) {
	decimal.MarshalJSONWithoutQuotes = true
	t.Cleanup(func() { decimal.MarshalJSONWithoutQuotes = false })

	cat := catalog.Default()
	product := catalog.Product{ID: "x", Name: "Thing", Prices: prices("IL", "150", "US", "40", "TH", "1200")}
	res, err := Compare(product, "IL", cat, table("ILS", prices("USD", "0.2667")))
	require.NoError(t, err)

	raw, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "x", decoded["id"])
	assert.Equal(t, float64(150), decoded["originPrice"])

	comparisons := decoded["comparisons"].([]any)
	th := comparisons[0].(map[string]any)
	assert.Nil(t, th["convertedPrice"])
	assert.Nil(t, th["savings"])
	us := comparisons[1].(map[string]any)
	assert.Equal(t, float64(150), us["convertedPrice"])
}
