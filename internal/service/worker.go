package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"globalprice/internal/alerting"
	"globalprice/internal/compare"
	"globalprice/internal/storage"
)

// deleteTimeout bounds removal of a fired alert once its pass context is gone.
const deleteTimeout = 5 * time.Second

// ProductLookup prices a single product for an origin country.
type ProductLookup interface {
	Get(ctx context.Context, id, origin string) (compare.Result, error)
}

// WorkerOptions tune the alert worker.
type WorkerOptions struct {
	// Origin is the country whose shelf price is compared against alert targets.
	Origin        string
	LockKey       int64
	NotifyTimeout time.Duration
}

// CheckStats summarises one evaluation pass.
type CheckStats struct {
	Loaded    int
	Triggered int
	Kept      int
	Failed    int
}

// Worker re-evaluates stored alerts and fires the ones whose target is reached.
// At most one pass runs at a time per process; a trigger that arrives while a
// pass is in flight is dropped.
type Worker struct {
	store    storage.AlertStore
	lookup   ProductLookup
	notifier alerting.Notifier
	locker   storage.AdvisoryLocker
	opts     WorkerOptions
	inflight *semaphore.Weighted
	logger   zerolog.Logger
	now      func() time.Time
}

// NewWorker constructs the alert worker. When store also implements
// storage.AdvisoryLocker and a lock key is set, passes are serialised across
// processes as well.
func NewWorker(store storage.AlertStore, lookup ProductLookup, notifier alerting.Notifier, opts WorkerOptions, logger zerolog.Logger) *Worker {
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 10 * time.Second
	}

	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Worker{
		store:    store,
		lookup:   lookup,
		notifier: notifier,
		locker:   locker,
		opts:     opts,
		inflight: semaphore.NewWeighted(1),
		logger:   logger.With().Str("component", "alert_worker").Logger(),
		now:      time.Now,
	}
}

// Check runs one evaluation pass. ran is false when another pass already
// holds the worker (here or, with an advisory lock, in another process).
func (w *Worker) Check(ctx context.Context) (bool, error) {
	if !w.inflight.TryAcquire(1) {
		w.logger.Debug().Msg("check already in progress, trigger dropped")
		return false, nil
	}
	defer w.inflight.Release(1)

	unlock, proceed, err := w.acquireLock(ctx)
	if err != nil {
		return false, err
	}
	if !proceed {
		w.logger.Debug().Msg("skip check because advisory lock held elsewhere")
		return false, nil
	}
	if unlock != nil {
		defer unlock()
	}

	stats, err := w.evaluate(ctx)
	if err != nil {
		return true, err
	}
	if stats.Loaded > 0 {
		w.logger.Info().
			Int("loaded", stats.Loaded).
			Int("triggered", stats.Triggered).
			Int("kept", stats.Kept).
			Int("failed", stats.Failed).
			Msg("alert check finished")
	}
	return true, nil
}

func (w *Worker) evaluate(ctx context.Context) (CheckStats, error) {
	var stats CheckStats

	alerts, err := w.store.ListAlerts(ctx)
	if err != nil {
		return stats, fmt.Errorf("load alerts: %w", err)
	}
	stats.Loaded = len(alerts)

	for _, alert := range alerts {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		fired, err := w.evaluateOne(ctx, alert)
		switch {
		case err != nil:
			stats.Failed++
			w.logger.Warn().Err(err).
				Str("alert_id", alert.ID).
				Str("product_id", alert.ProductID).
				Msg("alert kept after failed evaluation")
		case fired:
			stats.Triggered++
		default:
			stats.Kept++
		}
	}
	return stats, nil
}

func (w *Worker) evaluateOne(ctx context.Context, alert storage.Alert) (bool, error) {
	result, err := w.lookup.Get(ctx, alert.ProductID, w.opts.Origin)
	if err != nil {
		return false, fmt.Errorf("lookup product: %w", err)
	}

	current := result.OriginPrice
	if current.GreaterThan(alert.TargetPrice) {
		return false, nil
	}

	w.notify(ctx, alerting.Notification{
		AlertID:        alert.ID,
		ProductID:      alert.ProductID,
		ProductName:    result.Name,
		Contact:        alert.Contact,
		CurrentPrice:   current,
		TargetPrice:    alert.TargetPrice,
		CurrencySymbol: result.CurrencySymbol,
		TriggeredAt:    w.now().UTC(),
	})

	// A sent notification commits the trigger; cancelling the pass must not keep
	// the alert around to fire again.
	deleteCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deleteTimeout)
	defer cancel()
	if err := w.store.DeleteAlert(deleteCtx, alert.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return false, fmt.Errorf("delete triggered alert: %w", err)
	}
	return true, nil
}

// notify delivers without retry; a failure is logged and never blocks deletion.
func (w *Worker) notify(ctx context.Context, note alerting.Notification) {
	if w.notifier == nil {
		return
	}
	notifyCtx, cancel := context.WithTimeout(ctx, w.opts.NotifyTimeout)
	defer cancel()
	if err := w.notifier.Notify(notifyCtx, note); err != nil {
		w.logger.Error().Err(err).Str("alert_id", note.AlertID).Msg("failed to dispatch alert")
	}
}

// Close waits for notification work still running after its pass ended.
func (w *Worker) Close() error {
	return alerting.Close(w.notifier)
}

func (w *Worker) acquireLock(ctx context.Context) (func(), bool, error) {
	if w.opts.LockKey == 0 || w.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := w.locker.TryAdvisoryLock(ctx, w.opts.LockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
