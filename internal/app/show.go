package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"globalprice/internal/compare"
)

// Compare prints a savings table for every product matching the query.
func (a *App) Compare(ctx context.Context, opts CompareOptions) error {
	svc := a.newService(nil, nil)
	if opts.Refresh {
		// failures keep the default table; the refresher already logged them
		_ = svc.RefreshRates(ctx)
	}

	origin := a.origin(opts.Origin)
	results, err := svc.Search().Search(ctx, opts.Query, origin)
	if err != nil {
		return err
	}
	return writeComparison(os.Stdout, results)
}

func writeComparison(out io.Writer, results []compare.Result) error {
	if len(results) == 0 {
		fmt.Fprintln(out, "no products found")
		return nil
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(writer)
		}
		fmt.Fprintf(writer, "%s [%s]\thome: %s%s (%s)\n",
			sanitizeInline(res.Name), res.ID, res.CurrencySymbol, res.OriginPrice.String(), res.Origin)
		fmt.Fprintln(writer, "Country\tShelf\tConverted\tSavings\tSavings%")

		records := append([]compare.Record(nil), res.Comparisons...)
		compare.SortBySavings(records)
		for _, rec := range records {
			fmt.Fprintf(writer, "%s\t%s%s\t%s\t%s\t%s\n",
				rec.Country.Code,
				rec.Country.Symbol,
				rec.ShelfPrice.String(),
				formatNull(rec.ConvertedPrice, res.CurrencySymbol),
				formatNull(rec.Savings, res.CurrencySymbol),
				formatPercent(rec.SavingsPercent),
			)
		}
	}
	return writer.Flush()
}

// Alerts lists stored alerts.
func (a *App) Alerts(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := a.newService(store, nil)
	alerts, err := svc.ListAlerts(ctx)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts stored")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Created (UTC)\tID\tProduct\tTarget\tContact")
	for _, alert := range alerts {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s %s\t%s\n",
			alert.CreatedAt.UTC().Format(time.RFC3339),
			alert.ID,
			alert.ProductID,
			alert.TargetPrice.String(),
			a.Config.Rates.Pivot,
			sanitizeInline(alert.Contact),
		)
	}
	return writer.Flush()
}

// Check runs one alert pass against freshly refreshed rates.
func (a *App) Check(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := a.newService(store, nil)
	defer svc.Close()
	_ = svc.RefreshRates(ctx)

	ran, err := svc.CheckAlerts(ctx)
	if err != nil {
		return err
	}
	if !ran {
		return errors.New("another alert check holds the lock; try again later")
	}
	return nil
}

// Rates prints the rate table, optionally refreshed from upstream first.
func (a *App) Rates(ctx context.Context, opts RatesOptions) error {
	svc := a.newService(nil, nil)
	if opts.Refresh {
		if err := svc.RefreshRates(ctx); err != nil {
			return err
		}
	}

	table := svc.Search().Rates()
	fmt.Fprintf(os.Stdout, "pivot %s, source %s", table.Pivot(), table.Source())
	if !table.UpdatedAt().IsZero() {
		fmt.Fprintf(os.Stdout, ", updated %s", table.UpdatedAt().UTC().Format(time.RFC3339))
	}
	fmt.Fprintln(os.Stdout)

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Currency\tPer 1 "+table.Pivot())
	for _, code := range table.Codes() {
		rate, _ := table.Get(code)
		fmt.Fprintf(writer, "%s\t%s\n", code, rate.String())
	}
	return writer.Flush()
}

func (a *App) origin(flag string) string {
	origin := strings.ToUpper(strings.TrimSpace(flag))
	if origin == "" {
		return a.Config.App.HomeCountry
	}
	return origin
}

func formatNull(d decimal.NullDecimal, symbol string) string {
	if !d.Valid {
		return "n/a"
	}
	return symbol + d.Decimal.String()
}

func formatPercent(d decimal.NullDecimal) string {
	if !d.Valid {
		return "n/a"
	}
	return d.Decimal.String() + "%"
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
