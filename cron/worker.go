package cron

import (
	"context"
	"time"

	"tutorbook/services/notification"
	"tutorbook/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// CompletionSweeper is the part of the booking service the sweep needs.
type CompletionSweeper interface {
	CompleteDue(ctx context.Context) (int, error)
}

// Worker consumes booking events and runs the periodic completion sweep.
type Worker struct {
	srv       *asynq.Server
	scheduler *asynq.Scheduler
	logger    *zap.Logger
}

func NewMux(dispatcher *notification.PushDispatcher, sweeper CompletionSweeper, logger *zap.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeBookingEvent, handleBookingEvent(dispatcher, logger))
	mux.HandleFunc(tasks.TypeCompletionSweep, handleCompletionSweep(sweeper, logger))
	return mux
}

// StartWorker runs the asynq server and registers the sweep with the
// scheduler. Both run in the background until Shutdown.
func StartWorker(redisOpts asynq.RedisClientOpt, sweepSpec string, mux *asynq.ServeMux, logger *zap.Logger) (*Worker, error) {
	srv := asynq.NewServer(redisOpts, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			tasks.QueueNotifications: 6,
			tasks.QueueMaintenance:   3,
			"default":                1,
		},
		Logger: logger.Sugar(),
	})

	scheduler := asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{Location: time.UTC, Logger: logger.Sugar()})
	task, opts := tasks.NewCompletionSweepTask()
	entryID, err := scheduler.Register(sweepSpec, task, opts...)
	if err != nil {
		return nil, err
	}
	logger.Info("completion sweep registered", zap.String("entryID", entryID), zap.String("spec", sweepSpec))

	go func() {
		const maxAttempts = 5
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			err := srv.Run(mux)
			if err == nil {
				return
			}
			logger.Error("worker failed to start", zap.Int("attempt", attempt), zap.Error(err))
			if attempt == maxAttempts {
				logger.Error("worker gave up after max attempts")
				return
			}
			time.Sleep(time.Duration(attempt*2) * time.Second)
		}
	}()
	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error("scheduler stopped", zap.Error(err))
		}
	}()

	return &Worker{srv: srv, scheduler: scheduler, logger: logger}, nil
}

func (w *Worker) Shutdown() {
	w.scheduler.Shutdown()
	w.srv.Shutdown()
	w.logger.Info("worker stopped")
}

// RunLocalSweep drives the sweep from a ticker when no queue is available.
func RunLocalSweep(ctx context.Context, every time.Duration, sweeper CompletionSweeper, logger *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sweeper.CompleteDue(ctx); err != nil {
				logger.Warn("completion sweep failed", zap.Error(err))
			}
		}
	}
}

func handleBookingEvent(dispatcher *notification.PushDispatcher, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		ev, err := tasks.ParseBookingEvent(task)
		if err != nil {
			logger.Error("dropping malformed booking event", zap.Error(err))
			return asynq.SkipRetry
		}
		if err := dispatcher.Deliver(ctx, ev); err != nil {
			logger.Warn("push delivery failed",
				zap.String("type", string(ev.Type)),
				zap.String("bookingID", ev.BookingID),
				zap.Error(err))
			return err
		}
		return nil
	}
}

func handleCompletionSweep(sweeper CompletionSweeper, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		n, err := sweeper.CompleteDue(ctx)
		if err != nil {
			return err
		}
		logger.Debug("completion sweep ran", zap.Int("completed", n))
		return nil
	}
}
