package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"globalprice/internal/alerting"
)

// SimulateAlert delivers a notification for a catalog product through the
// configured channels without touching stored alerts.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alerting channel configured")
	}
	defer alerting.Close(notifier)

	lookups := a.newLookups()
	result, err := lookups.Get(ctx, opts.ProductID, a.Config.App.HomeCountry)
	if err != nil {
		return err
	}

	note := alerting.Notification{
		AlertID:        "simulated",
		ProductID:      result.ID,
		ProductName:    result.Name,
		Contact:        opts.Contact,
		CurrentPrice:   result.OriginPrice,
		TargetPrice:    result.OriginPrice,
		CurrencySymbol: result.CurrencySymbol,
		TriggeredAt:    time.Now().UTC(),
	}

	timeout := a.Config.Alerting.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := notifier.Notify(ctx, note); err != nil {
		return fmt.Errorf("simulate alert: %w", err)
	}
	a.Logger.Info().Str("product_id", result.ID).Msg("simulated alert delivered")
	return nil
}
