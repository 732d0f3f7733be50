package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"globalprice/internal/catalog"
	"globalprice/internal/scheduler"
	"globalprice/internal/search"
	"globalprice/internal/storage"
)

// ErrInvalidAlert marks alert requests rejected before they reach the store.
var ErrInvalidAlert = errors.New("invalid alert")

// ErrInvalidFavorite marks favorite requests without a product id.
var ErrInvalidFavorite = errors.New("invalid favorite")

// RateRefresher keeps the rate table current.
type RateRefresher interface {
	Due(now time.Time) bool
	Refresh(ctx context.Context) error
}

// AlertRequest is the input of CreateAlert.
type AlertRequest struct {
	ProductID   string `validate:"required"`
	Contact     string `validate:"required,email"`
	TargetPrice decimal.Decimal
}

// Service wires lookups, persistence, the rate refresher and the alert worker.
type Service struct {
	scheduler *scheduler.Scheduler
	search    *search.Service
	store     storage.Store
	refresher RateRefresher
	worker    *Worker
	validate  *validator.Validate
	logger    zerolog.Logger
}

// New constructs the application service. sched and refresher may be nil for
// one-shot CLI use.
func New(sched *scheduler.Scheduler, lookups *search.Service, store storage.Store, refresher RateRefresher, worker *Worker, logger zerolog.Logger) *Service {
	return &Service{
		scheduler: sched,
		search:    lookups,
		store:     store,
		refresher: refresher,
		worker:    worker,
		validate:  validator.New(),
		logger:    logger.With().Str("component", "service").Logger(),
	}
}

// Search exposes the lookup service.
func (s *Service) Search() *search.Service {
	return s.search
}

// Run begins the periodic refresh/check loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.Tick)
}

// Tick refreshes rates when due and runs an alert pass concurrently. The two
// share only ctx, so a failed pass never cancels an in-flight refresh.
func (s *Service) Tick(ctx context.Context, at time.Time) error {
	var g errgroup.Group

	if s.refresher != nil && s.refresher.Due(at) {
		g.Go(func() error {
			// the refresher already fell back to the previous table and logged
			_ = s.refresher.Refresh(ctx)
			return nil
		})
	}

	if s.worker != nil {
		g.Go(func() error {
			_, err := s.worker.Check(ctx)
			return err
		})
	}

	return g.Wait()
}

// Close releases the alert worker's notifiers.
func (s *Service) Close() error {
	if s.worker == nil {
		return nil
	}
	return s.worker.Close()
}

// RefreshRates forces a rate refresh.
func (s *Service) RefreshRates(ctx context.Context) error {
	if s.refresher == nil {
		return fmt.Errorf("rate refresher not configured")
	}
	return s.refresher.Refresh(ctx)
}

// CheckAlerts triggers one alert pass; ran is false when a pass was already running.
func (s *Service) CheckAlerts(ctx context.Context) (bool, error) {
	if s.worker == nil {
		return false, fmt.Errorf("alert worker not configured")
	}
	return s.worker.Check(ctx)
}

// CreateAlert validates and stores a price alert. The target is in the pivot currency.
func (s *Service) CreateAlert(ctx context.Context, req AlertRequest) (storage.Alert, error) {
	req.ProductID = strings.TrimSpace(req.ProductID)
	req.Contact = strings.TrimSpace(req.Contact)

	if err := s.validate.Struct(req); err != nil {
		return storage.Alert{}, fmt.Errorf("%w: %s", ErrInvalidAlert, describeValidation(err))
	}
	if !req.TargetPrice.IsPositive() {
		return storage.Alert{}, fmt.Errorf("%w: target price must be positive", ErrInvalidAlert)
	}

	alert, err := s.store.InsertAlert(ctx, storage.Alert{
		ProductID:   req.ProductID,
		Contact:     req.Contact,
		TargetPrice: req.TargetPrice,
	})
	if err != nil {
		return storage.Alert{}, fmt.Errorf("create alert: %w", err)
	}
	s.logger.Info().Str("alert_id", alert.ID).Str("product_id", alert.ProductID).Msg("alert created")
	return alert, nil
}

// ListAlerts returns stored alerts, oldest first.
func (s *Service) ListAlerts(ctx context.Context) ([]storage.Alert, error) {
	return s.store.ListAlerts(ctx)
}

// DeleteAlert removes an alert without firing it.
func (s *Service) DeleteAlert(ctx context.Context, id string) error {
	return s.store.DeleteAlert(ctx, id)
}

// Favorites resolves bookmarked ids to catalog products. Ids no longer in the
// catalog are skipped.
func (s *Service) Favorites(ctx context.Context) ([]catalog.Product, error) {
	favs, err := s.store.ListFavorites(ctx)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	products := make([]catalog.Product, 0, len(favs))
	for _, f := range favs {
		if p, ok := s.search.Product(f.ProductID); ok {
			products = append(products, p)
		}
	}
	return products, nil
}

// AddFavorite bookmarks a product id. Ids outside the catalog are stored and
// skipped by Favorites until they resolve.
func (s *Service) AddFavorite(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: product id is required", ErrInvalidFavorite)
	}
	return s.store.AddFavorite(ctx, id)
}

// RemoveFavorite drops a bookmark.
func (s *Service) RemoveFavorite(ctx context.Context, id string) error {
	return s.store.RemoveFavorite(ctx, id)
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be an email address", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
