package notification

import (
	"context"
	"errors"
	"fmt"

	"tutorbook/database/repository"
	userRepo "tutorbook/database/repository/user"
	"tutorbook/models"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// PushDispatcher sends booking events to the recipient's device via FCM.
type PushDispatcher struct {
	Devices   userRepo.DeviceRepository
	Messaging *messaging.Client
	Logger    *zap.Logger
}

func (d *PushDispatcher) Deliver(ctx context.Context, ev models.BookingEvent) error {
	if d.Messaging == nil {
		d.Logger.Info("push disabled, event dropped",
			zap.String("type", string(ev.Type)),
			zap.String("recipient", ev.RecipientUserID))
		return nil
	}

	token, err := d.Devices.GetFCMToken(ctx, ev.RecipientUserID)
	if errors.Is(err, repository.ErrNotFound) {
		// No device registered; nothing to retry.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load device for %s: %w", ev.RecipientUserID, err)
	}

	data := map[string]string{
		"type":      string(ev.Type),
		"bookingId": ev.BookingID,
	}
	for k, v := range ev.Data {
		data[k] = v
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: ev.Title,
			Body:  ev.Body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "bookings",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}

	id, err := d.Messaging.Send(ctx, msg)
	if err != nil {
		if messaging.IsUnregistered(err) {
			d.Logger.Info("device token unregistered", zap.String("userID", ev.RecipientUserID))
			return nil
		}
		return fmt.Errorf("failed to send push: %w", err)
	}
	d.Logger.Debug("push sent", zap.String("messageID", id), zap.String("type", string(ev.Type)))
	return nil
}
