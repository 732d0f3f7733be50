package rates

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"globalprice/internal/fetcher"
)

// ErrInvalidResponse is returned when an upstream table is rejected as a whole.
var ErrInvalidResponse = errors.New("rates: invalid upstream table")

// RefresherOptions tune the refresh policy.
type RefresherOptions struct {
	Pivot    string
	Interval time.Duration
	Timeout  time.Duration
	Source   string
}

// Refresher pulls a fresh table from upstream and adopts it only when the
// whole response is usable.
type Refresher struct {
	store   *Store
	fetcher fetcher.RateFetcher
	opts    RefresherOptions
	logger  zerolog.Logger
	now     func() time.Time

	mu          sync.Mutex
	lastAttempt time.Time
}

// NewRefresher wires a fetcher to a store.
func NewRefresher(store *Store, f fetcher.RateFetcher, opts RefresherOptions, logger zerolog.Logger) *Refresher {
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Refresher{
		store:   store,
		fetcher: f,
		opts:    opts,
		logger:  logger.With().Str("component", "rate_refresher").Logger(),
		now:     time.Now,
	}
}

// Due reports whether the refresh interval elapsed since the last attempt.
func (r *Refresher) Due(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastAttempt.IsZero() || now.Sub(r.lastAttempt) >= r.opts.Interval
}

// Refresh fetches and, on success, swaps the table. Failures leave the current
// table in effect; the error is logged and returned for the caller's accounting.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	r.lastAttempt = r.now()
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	values, err := r.fetcher.FetchRates(ctx, r.opts.Pivot)
	if err != nil {
		r.logger.Error().Err(err).Str("pivot", r.opts.Pivot).Msg("rate refresh failed; keeping previous table")
		return fmt.Errorf("fetch rates: %w", err)
	}

	usable, skipped, err := validate(values)
	if err != nil {
		r.logger.Error().Err(err).Str("pivot", r.opts.Pivot).Msg("rate refresh rejected; keeping previous table")
		return err
	}
	if len(skipped) > 0 {
		r.logger.Debug().Strs("skipped", skipped).Msg("ignoring currencies unknown to ISO 4217")
	}

	table := NewTable(r.opts.Pivot, usable, r.opts.Source, r.now().UTC())
	r.store.Replace(table)

	r.logger.Info().Str("pivot", r.opts.Pivot).Int("currencies", table.Len()).Msg("exchange rates updated")
	return nil
}

// validate rejects the whole table when any entry is malformed. Well-formed codes
// that ISO 4217 does not know (upstream carries a few territory currencies) are
// dropped instead.
func validate(values map[string]decimal.Decimal) (map[string]decimal.Decimal, []string, error) {
	if len(values) == 0 {
		return nil, nil, fmt.Errorf("%w: empty", ErrInvalidResponse)
	}
	usable := make(map[string]decimal.Decimal, len(values))
	var skipped []string
	for code, rate := range values {
		if !wellFormed(code) {
			return nil, nil, fmt.Errorf("%w: malformed currency code %q", ErrInvalidResponse, code)
		}
		if !rate.IsPositive() {
			return nil, nil, fmt.Errorf("%w: non-positive rate for %s", ErrInvalidResponse, code)
		}
		if _, err := currency.ParseISO(code); err != nil {
			skipped = append(skipped, code)
			continue
		}
		usable[code] = rate
	}
	if len(usable) == 0 {
		return nil, nil, fmt.Errorf("%w: no recognised currencies", ErrInvalidResponse)
	}
	sort.Strings(skipped)
	return usable, skipped, nil
}

func wellFormed(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
