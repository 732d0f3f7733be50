package rates

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	values map[string]decimal.Decimal
	err    error
	calls  int
}

func (s *stubFetcher) FetchRates(ctx context.Context, pivot string) (map[string]decimal.Decimal, error) {
	s.calls++
	return s.values, s.err
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNewTableForcesPivot(t *testing.T) {
	table := NewTable("ILS", map[string]decimal.Decimal{"ILS": dec("3"), "USD": dec("0.27")}, "test", time.Time{})

	rate, ok := table.Get("ILS")
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))

	_, ok = table.Get("THB")
	assert.False(t, ok)
	assert.Equal(t, []string{"ILS", "USD"}, table.Codes())
}

func TestNewTableCopiesInput(t *testing.T) {
	in := map[string]decimal.Decimal{"USD": dec("0.27")}
	table := NewTable("ILS", in, "test", time.Time{})
	in["USD"] = dec("99")

	rate, _ := table.Get("USD")
	assert.True(t, rate.Equal(dec("0.27")))
}

func TestDefaultRebase(t *testing.T) {
	ils := Default("ILS")
	assert.Equal(t, SourceDefault, ils.Source())
	usd, ok := ils.Get("USD")
	require.True(t, ok)
	assert.True(t, usd.Equal(dec("0.2667")))

	rebased := Default("USD")
	one, _ := rebased.Get("USD")
	assert.True(t, one.Equal(decimal.NewFromInt(1)))
	thb, _ := rebased.Get("THB")
	assert.True(t, thb.Equal(dec("10").DivRound(dec("0.2667"), 8)))

	unknown := Default("CHF")
	assert.Equal(t, 1, unknown.Len())
}

func newTestRefresher(f *stubFetcher) (*Refresher, *Store) {
	store := NewStore(Default("ILS"))
	r := NewRefresher(store, f, RefresherOptions{Pivot: "ILS", Interval: time.Hour, Timeout: time.Second, Source: "stub"}, zerolog.Nop())
	return r, store
}

func TestRefreshAdoptsWholeTable(t *testing.T) {
	f := &stubFetcher{values: map[string]decimal.Decimal{"USD": dec("0.25"), "EUR": dec("0.23")}}
	r, store := newTestRefresher(f)

	require.NoError(t, r.Refresh(context.Background()))

	snap := store.Snapshot()
	assert.Equal(t, "stub", snap.Source())
	assert.False(t, snap.UpdatedAt().IsZero())
	pivot, _ := snap.Get("ILS")
	assert.True(t, pivot.Equal(decimal.NewFromInt(1)), "pivot is forced even when upstream omits it")

	// the upstream table replaces the default one entirely
	_, ok := snap.Get("THB")
	assert.False(t, ok)
}

func TestRefreshFailureKeepsPreviousTable(t *testing.T) {
	f := &stubFetcher{err: errors.New("boom")}
	r, store := newTestRefresher(f)
	before := store.Snapshot()

	assert.Error(t, r.Refresh(context.Background()))
	assert.Same(t, before, store.Snapshot())
}

func TestRefreshRejectsPartialGarbage(t *testing.T) {
	cases := map[string]map[string]decimal.Decimal{
		"empty":         {},
		"zero rate":     {"USD": decimal.Zero},
		"negative rate": {"USD": dec("-1")},
		"bad code":      {"USD": dec("0.27"), "BITCOIN": dec("0.00001")},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			r, store := newTestRefresher(&stubFetcher{values: values})
			before := store.Snapshot()

			err := r.Refresh(context.Background())
			assert.ErrorIs(t, err, ErrInvalidResponse)
			assert.Same(t, before, store.Snapshot())
		})
	}
}

func TestRefreshSkipsUnknownWellFormedCodes(t *testing.T) {
	f := &stubFetcher{values: map[string]decimal.Decimal{"USD": dec("0.27"), "QQQ": dec("1.8")}}
	r, store := newTestRefresher(f)

	require.NoError(t, r.Refresh(context.Background()))
	_, ok := store.Get("QQQ")
	assert.False(t, ok)
	_, ok = store.Get("USD")
	assert.True(t, ok)
}

func TestRefreshDue(t *testing.T) {
	f := &stubFetcher{err: errors.New("down")}
	r, _ := newTestRefresher(f)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	assert.True(t, r.Due(now), "never attempted")
	_ = r.Refresh(context.Background())
	assert.False(t, r.Due(now.Add(59*time.Minute)), "failed attempts also wait for the interval")
	assert.True(t, r.Due(now.Add(time.Hour)))
}

func TestStoreConcurrentReadersSeeWholeTables(t *testing.T) {
	a := NewTable("ILS", map[string]decimal.Decimal{"USD": dec("1"), "EUR": dec("1")}, "a", time.Time{})
	b := NewTable("ILS", map[string]decimal.Decimal{"USD": dec("2"), "EUR": dec("2")}, "b", time.Time{})
	store := NewStore(a)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				store.Replace(b)
			} else {
				store.Replace(a)
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		snap := store.Snapshot()
		usd, _ := snap.Get("USD")
		eur, _ := snap.Get("EUR")
		require.True(t, usd.Equal(eur), "snapshot mixed two tables")
	}
	close(stop)
	wg.Wait()
}
