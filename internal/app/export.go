package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"globalprice/internal/compare"
)

// Export writes the comparison for a query as CSV and/or a PNG bar chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.Query == "" {
		return errors.New("--query must be provided")
	}

	svc := a.newService(nil, nil)
	if opts.Refresh {
		_ = svc.RefreshRates(ctx)
	}

	results, err := svc.Search().Search(ctx, opts.Query, a.origin(opts.Origin))
	if err != nil {
		return err
	}
	if len(results) == 0 {
		a.Logger.Info().Str("query", opts.Query).Msg("no products matched; nothing exported")
		return nil
	}

	if opts.CSVPath != "" {
		if err := writeComparisonCSV(opts.CSVPath, results); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.CSVPath).Int("products", len(results)).Msg("csv exported")
	}

	if opts.PNGPath != "" {
		if len(results) > 1 {
			a.Logger.Info().Str("product", results[0].ID).Int("matched", len(results)).Msg("chart shows the first match only")
		}
		if err := writeComparisonPNG(opts.PNGPath, results[0], a.Config.Export.Width, a.Config.Export.Height); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.PNGPath).Msg("chart exported")
	}

	return nil
}

func writeComparisonCSV(path string, results []compare.Result) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"product_id", "name", "origin", "origin_price", "country", "currency", "shelf_price", "converted_price", "savings", "savings_pct"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, res := range results {
		for _, rec := range res.Comparisons {
			record := []string{
				res.ID,
				res.Name,
				res.Origin,
				res.OriginPrice.String(),
				rec.Country.Code,
				rec.Country.Currency,
				rec.ShelfPrice.String(),
				nullString(rec.ConvertedPrice),
				nullString(rec.Savings),
				nullString(rec.SavingsPercent),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeComparisonPNG(path string, res compare.Result, width, height int) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}

	bars := []chart.Value{{
		Label: res.Origin + " (home)",
		Value: res.OriginPrice.InexactFloat64(),
	}}
	for _, rec := range res.Comparisons {
		if !rec.ConvertedPrice.Valid {
			continue
		}
		bars = append(bars, chart.Value{
			Label: rec.Country.Code,
			Value: rec.ConvertedPrice.Decimal.InexactFloat64(),
		})
	}

	graph := chart.BarChart{
		Title:  fmt.Sprintf("%s in %s", res.Name, res.OriginCurrency),
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		BarWidth: 60,
		Bars:     bars,
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
