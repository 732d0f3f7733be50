package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"globalprice/internal/alerting"
	"globalprice/internal/api"
	"globalprice/internal/catalog"
	"globalprice/internal/config"
	"globalprice/internal/fetcher"
	"globalprice/internal/rates"
	"globalprice/internal/scheduler"
	"globalprice/internal/search"
	"globalprice/internal/service"
	"globalprice/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	catalog *catalog.Catalog
	rates   *rates.Store
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{
		Config:  cfg,
		Logger:  logger.With().Str("component", "app").Logger(),
		catalog: catalog.Default(),
		rates:   rates.NewStore(rates.Default(cfg.Rates.Pivot)),
	}
}

func (a *App) newRefresher() *rates.Refresher {
	upstream := fetcher.NewExchangeRateAPI(fetcher.ExchangeRateOptions{
		BaseURL:   a.Config.Rates.BaseURL,
		Timeout:   a.Config.Rates.RequestTimeout,
		UserAgent: a.Config.Rates.UserAgent,
	}, a.Logger)

	return rates.NewRefresher(a.rates, upstream, rates.RefresherOptions{
		Pivot:    a.Config.Rates.Pivot,
		Interval: a.Config.Rates.RefreshInterval,
		Timeout:  a.Config.Rates.RequestTimeout,
		Source:   upstream.Endpoint(a.Config.Rates.Pivot),
	}, a.Logger)
}

func (a *App) newLookups() *search.Service {
	var secondary search.Provider
	if a.Config.Search.Enabled {
		cfg := a.Config.Search
		searcher := fetcher.NewProductSearch(fetcher.ProductSearchOptions{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			APIHost: cfg.APIHost,
			Country: cfg.Country,
			Timeout: cfg.RequestTimeout,
		}, a.Logger)
		secondary = search.NewExternalProvider(searcher, cfg.RequestTimeout)
	}
	return search.NewService(a.catalog, a.rates, secondary, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	cfg := a.Config.Alerting
	var channels alerting.Multi
	for _, name := range cfg.Channels {
		switch name {
		case "log":
			channels = append(channels, alerting.NewLogNotifier(a.Logger))
		case "telegram":
			if !cfg.Telegram.Enabled {
				a.Logger.Warn().Msg("telegram channel listed but alerting.telegram.enabled is false")
				continue
			}
			channels = append(channels, alerting.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.APIBase, cfg.Timeout, a.Logger))
		case "email":
			if !cfg.Email.Enabled {
				a.Logger.Warn().Msg("email channel listed but alerting.email.enabled is false")
				continue
			}
			channels = append(channels, alerting.NewEmailNotifier(alerting.EmailOptions{
				Host:     cfg.Email.Host,
				Port:     cfg.Email.Port,
				Username: cfg.Email.Username,
				Password: cfg.Email.Password,
				From:     cfg.Email.From,
			}, a.Logger))
		default:
			a.Logger.Warn().Str("channel", name).Msg("unknown alerting channel ignored")
		}
	}
	if len(channels) == 0 {
		return nil
	}
	return channels
}

func (a *App) openStore(ctx context.Context) (storage.Store, func(), error) {
	store, err := storage.Open(ctx, a.Config.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s storage: %w", a.Config.Storage.Driver, err)
	}
	return store, store.Close, nil
}

// newService assembles the service graph; sched may be nil for one-shot commands.
func (a *App) newService(store storage.Store, sched *scheduler.Scheduler) *service.Service {
	a.checkPivot()

	lookups := a.newLookups()
	refresher := a.newRefresher()

	lockKey := int64(0)
	if a.Config.Storage.Driver == config.DriverPostgres {
		lockKey = a.Config.Storage.AdvisoryLockKey
	}
	worker := service.NewWorker(store, lookups, a.newNotifier(), service.WorkerOptions{
		Origin:        a.Config.App.HomeCountry,
		LockKey:       lockKey,
		NotifyTimeout: a.Config.Alerting.Timeout,
	}, a.Logger)

	return service.New(sched, lookups, store, refresher, worker, a.Logger)
}

// checkPivot warns when alert targets and the rate pivot would disagree on currency.
func (a *App) checkPivot() {
	home, ok := a.catalog.Country(a.Config.App.HomeCountry)
	if !ok {
		a.Logger.Warn().Str("home_country", a.Config.App.HomeCountry).Msg("home country is not in the catalog")
		return
	}
	if home.Currency != a.Config.Rates.Pivot {
		a.Logger.Warn().
			Str("home_currency", home.Currency).
			Str("pivot", a.Config.Rates.Pivot).
			Msg("home country currency differs from the rate pivot")
	}
}

// Run executes the HTTP API and the background scheduler until interrupted.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	sched, err := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
		RunOnStart:   a.Config.Scheduler.RunOnStart,
	}, a.Logger)
	if err != nil {
		return err
	}

	svc := a.newService(store, sched)
	defer func() {
		if err := svc.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("close notifiers")
		}
	}()
	server := api.New(svc, api.Options{
		Addr:            a.Config.HTTP.Addr,
		StaticDir:       a.Config.HTTP.StaticDir,
		HomeCountry:     a.Config.App.HomeCountry,
		ReadTimeout:     a.Config.HTTP.ReadTimeout,
		WriteTimeout:    a.Config.HTTP.WriteTimeout,
		ShutdownTimeout: a.Config.HTTP.ShutdownTimeout,
		RateLimit:       a.Config.HTTP.RateLimit,
		RateBurst:       a.Config.HTTP.RateBurst,
	}, a.Logger)

	a.Logger.Info().
		Str("storage", a.Config.Storage.Driver).
		Str("home_country", a.Config.App.HomeCountry).
		Bool("live_search", a.Config.Search.Enabled).
		Msg("starting globalprice")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		return svc.Run(gctx)
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("globalprice stopped")
	return nil
}

// CompareOptions configure the compare command.
type CompareOptions struct {
	Query   string
	Origin  string
	Refresh bool
}

// ExportOptions hold parameters for exporting a comparison.
type ExportOptions struct {
	Query   string
	Origin  string
	PNGPath string
	CSVPath string
	Refresh bool
}

// RatesOptions configure the rates command.
type RatesOptions struct {
	Refresh bool
}

// SimulateOptions configure a dry-run alert delivery.
type SimulateOptions struct {
	ProductID string
	Contact   string
}
