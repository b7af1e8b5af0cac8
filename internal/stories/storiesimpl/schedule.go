package storiesimpl

import (
	"context"
	"fmt"

	"github.com/go-co-op/gocron/v2"
)

// ScheduleRefresh starts the periodic snapshot refresh plus the expiry sweep
// that drops stories aging out between fetches. Both jobs stop when ctx is
// cancelled.
func (i *Impl) ScheduleRefresh(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create refresh scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(i.cfg.Refresh.Interval),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				i.logger.Info("Context cancelled, stopping story refresh schedule")
				return
			}
			refreshCtx, cancel := context.WithTimeout(ctx, i.cfg.Backend.Timeout)
			defer cancel()

			// Refresh already logs and keeps the old snapshot on failure.
			_ = i.Refresh(refreshCtx)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule story refresh: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(i.cfg.Refresh.SweepInterval),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				return
			}
			i.sweepExpired()
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule expiry sweep: %w", err)
	}

	scheduler.Start()
	i.initialRefresh(ctx)

	go func() {
		<-ctx.Done()
		i.logger.Info("Stopping story refresh scheduler")
		if err := scheduler.Shutdown(); err != nil {
			i.logger.Error("Failed to shut down refresh scheduler", "error", err)
		}
	}()

	return nil
}
