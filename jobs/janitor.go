package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/krishkalaria12/decor-serve/logger"
	"go.uber.org/zap"
)

// UploadCleaner removes uploads that were started but never completed.
type UploadCleaner interface {
	CleanupAbandonedUploads(ctx context.Context, maxAge time.Duration) (int, error)
}

// Janitor periodically deletes abandoned uploads.
type Janitor struct {
	scheduler gocron.Scheduler
	cleaner   UploadCleaner
	interval  time.Duration
	maxAge    time.Duration
}

func NewJanitor(cleaner UploadCleaner, interval, maxAge time.Duration) (*Janitor, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	j := &Janitor{
		scheduler: scheduler,
		cleaner:   cleaner,
		interval:  interval,
		maxAge:    maxAge,
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(j.sweep, context.Background()),
		gocron.WithName("abandoned-upload-cleanup"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("register cleanup job: %w", err)
	}

	return j, nil
}

func (j *Janitor) sweep(ctx context.Context) {
	removed, err := j.cleaner.CleanupAbandonedUploads(ctx, j.maxAge)
	if err != nil {
		logger.Log.Error("Abandoned upload cleanup failed", zap.Int("removed", removed), zap.Error(err))
		return
	}
	if removed > 0 {
		logger.Log.Info("Removed abandoned uploads", zap.Int("removed", removed))
	}
}

func (j *Janitor) Start() {
	logger.Log.Info("Starting janitor", zap.Duration("interval", j.interval), zap.Duration("max_age", j.maxAge))
	j.scheduler.Start()
}

func (j *Janitor) Stop() error {
	logger.Log.Info("Stopping janitor")
	return j.scheduler.Shutdown()
}
