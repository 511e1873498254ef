package warmer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/maltedev/offer-pricer/internal/models"
)

// Pricer is implemented by *pricing.Service.
type Pricer interface {
	Price(ctx context.Context, listing string) (models.DerivedPrice, error)
	Listings() []string
}

// Warmer periodically prices every listing so user requests land on a
// populated cache bucket.
type Warmer struct {
	pricer   Pricer
	interval time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	sched gocron.Scheduler
}

func New(pricer Pricer, interval time.Duration, logger *slog.Logger) *Warmer {
	return &Warmer{
		pricer:   pricer,
		interval: interval,
		logger:   logger.With("component", "warmer"),
	}
}

// Start schedules the job and stops it when ctx is canceled. A zero
// interval leaves the warmer disabled.
func (w *Warmer) Start(ctx context.Context) error {
	if w.interval <= 0 {
		w.logger.Info("cache warmer disabled")
		return nil
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	w.mu.Lock()
	w.sched = scheduler
	w.mu.Unlock()

	job := func(jobCtx context.Context) {
		w.warmOnce(jobCtx, uuid.NewString())
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(job),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule warmer: %w", err)
	}

	scheduler.Start()
	w.logger.Info("cache warmer started", "interval", w.interval)

	go func() {
		<-ctx.Done()
		if sdErr := w.Shutdown(); sdErr != nil {
			w.logger.Error("warmer shutdown error", "error", sdErr)
		}
	}()
	return nil
}

func (w *Warmer) Shutdown() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sched == nil {
		return nil
	}
	err := w.sched.Shutdown()
	w.sched = nil
	return err
}

// warmOnce prices every listing in turn and returns how many succeeded.
func (w *Warmer) warmOnce(ctx context.Context, runID string) int {
	ok := 0
	for _, listing := range w.pricer.Listings() {
		if ctx.Err() != nil {
			break
		}

		price, err := w.pricer.Price(ctx, listing)
		if err != nil {
			w.logger.Warn("warm-up failed", "run_id", runID, "listing", listing, "error", err)
			continue
		}
		ok++
		w.logger.Debug("warmed", "run_id", runID, "listing", listing, "price", price.Value)
	}

	w.logger.Info("warm-up run finished", "run_id", runID, "warmed", ok)
	return ok
}
