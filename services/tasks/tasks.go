package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"tutorbook/models"

	"github.com/hibiken/asynq"
)

const (
	TypeBookingEvent    = "booking:event"
	TypeCompletionSweep = "booking:complete_due"

	QueueNotifications = "notifications"
	QueueMaintenance   = "maintenance"
)

func NewBookingEventTask(ev models.BookingEvent) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeBookingEvent, b)
	opts := []asynq.Option{
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(5),
		asynq.Timeout(30 * time.Second),
	}
	return task, opts, nil
}

func ParseBookingEvent(t *asynq.Task) (models.BookingEvent, error) {
	var ev models.BookingEvent
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		return ev, fmt.Errorf("invalid booking event payload: %w", err)
	}
	return ev, nil
}

// NewCompletionSweepTask has no payload; the handler uses its own clock.
func NewCompletionSweepTask() (*asynq.Task, []asynq.Option) {
	task := asynq.NewTask(TypeCompletionSweep, nil)
	opts := []asynq.Option{
		asynq.Queue(QueueMaintenance),
		asynq.MaxRetry(1),
		asynq.Unique(time.Minute),
	}
	return task, opts
}
