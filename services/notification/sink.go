package notification

import (
	"context"

	"tutorbook/models"
	"tutorbook/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// NotificationSink receives booking events after their transition committed.
// Delivery is best effort and never fails the caller.
type NotificationSink interface {
	Emit(ctx context.Context, ev models.BookingEvent)
}

// QueueSink hands events to the background worker through asynq.
type QueueSink struct {
	Client *asynq.Client
	Logger *zap.Logger
}

func (s *QueueSink) Emit(ctx context.Context, ev models.BookingEvent) {
	task, opts, err := tasks.NewBookingEventTask(ev)
	if err != nil {
		s.Logger.Error("failed to build notification task", zap.String("bookingID", ev.BookingID), zap.Error(err))
		return
	}
	info, err := s.Client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		s.Logger.Warn("failed to enqueue notification",
			zap.String("type", string(ev.Type)),
			zap.String("bookingID", ev.BookingID),
			zap.Error(err))
		return
	}
	s.Logger.Debug("notification enqueued", zap.String("taskID", info.ID), zap.String("type", string(ev.Type)))
}

// DirectSink delivers in-process. Used when no queue is configured.
type DirectSink struct {
	Dispatcher *PushDispatcher
	Logger     *zap.Logger
}

func (s *DirectSink) Emit(_ context.Context, ev models.BookingEvent) {
	go func() {
		if err := s.Dispatcher.Deliver(context.Background(), ev); err != nil {
			s.Logger.Warn("notification delivery failed", zap.String("bookingID", ev.BookingID), zap.Error(err))
		}
	}()
}
