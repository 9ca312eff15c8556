package schedulerRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tutorbook/database"
	"tutorbook/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const txTimeout = 15 * time.Second

// errNoTransition aborts a transaction whose conditional update matched nothing.
var errNoTransition = errors.New("no matching booking in expected status")

func (repo *MongoSchedulerRepo) CreateBooking(ctx context.Context, in CreateBookingInput) (*CreateBookingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	b := in.Booking
	var entry *models.PaymentLedgerEntry

	txnFn := func(sc mongo.SessionContext) error {
		b.SeatHeld = false
		if _, err := repo.reserveSeat(sc, b.Bucket(), in.Capacity, b.CreatedAt); err != nil {
			return err
		}
		b.SeatHeld = true

		isFirst, err := repo.recordRelation(sc, b)
		if err != nil {
			return err
		}
		entry = newLedgerEntry(uuid.NewString(), b, in.Fees(isFirst))

		if _, err := repo.bookingColl.InsertOne(sc, b); err != nil {
			if database.IsDuplicateKey(err) {
				return ErrDuplicateBooking
			}
			return fmt.Errorf("insert booking failed: %w", err)
		}
		if _, err := repo.ledgerColl.InsertOne(sc, entry); err != nil {
			return fmt.Errorf("insert ledger entry failed: %w", err)
		}
		return nil
	}

	if err := database.RunInTransaction(ctx, repo.client, txnFn); err != nil {
		b.SeatHeld = false
		return nil, err
	}
	return &CreateBookingResult{Booking: b, Entry: entry}, nil
}

// recordRelation upserts the (student, tutor) relation and reports whether
// this call created it.
func (repo *MongoSchedulerRepo) recordRelation(ctx context.Context, b *models.Booking) (bool, error) {
	filter := bson.M{"studentId": b.StudentID, "tutorId": b.TutorID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"firstBookingId":   b.ID,
			"firstBookingDate": b.CreatedAt,
			"createdAt":        b.CreatedAt,
		},
		"$inc": bson.M{"totalBookings": 1, "totalSpent": b.Price},
		"$set": bson.M{"updatedAt": b.CreatedAt},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before)

	var before models.StudentTutorRelation
	err := repo.relationColl.FindOneAndUpdate(ctx, filter, update, opts).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to record student/tutor relation: %w", err)
	}
	return false, nil
}

func (repo *MongoSchedulerRepo) ConfirmBooking(ctx context.Context, id string, m MeetingUpdate, at time.Time) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	var out models.Booking
	err := database.RunInTransaction(ctx, repo.client, func(sc mongo.SessionContext) error {
		set := bson.M{
			"status":          models.BookingConfirmed,
			"confirmedAt":     at,
			"updatedAt":       at,
			"meetingLink":     m.Link,
			"externalEventId": m.EventID,
			"meetingStatus":   m.Status,
		}
		err := repo.bookingColl.FindOneAndUpdate(sc,
			bson.M{"id": id, "status": models.BookingPending},
			bson.M{"$set": set},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&out)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return errNoTransition
		}
		if err != nil {
			return fmt.Errorf("failed to confirm booking: %w", err)
		}

		_, err = repo.ledgerColl.UpdateOne(sc,
			bson.M{"bookingId": id, "status": models.LedgerPending},
			bson.M{"$set": bson.M{"status": models.LedgerCompleted, "completedAt": at, "updatedAt": at}})
		if err != nil {
			return fmt.Errorf("failed to finalize ledger entry: %w", err)
		}
		return nil
	})
	if errors.Is(err, errNoTransition) {
		return repo.statusChanged(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("confirm transaction failed: %w", err)
	}
	return &out, nil
}

func (repo *MongoSchedulerRepo) CancelBooking(ctx context.Context, id string, by models.Role, at time.Time) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	err := database.RunInTransaction(ctx, repo.client, func(sc mongo.SessionContext) error {
		var before models.Booking
		err := repo.bookingColl.FindOneAndUpdate(sc,
			bson.M{"id": id, "status": bson.M{"$in": bson.A{models.BookingPending, models.BookingConfirmed}}},
			bson.M{
				"$set": bson.M{
					"status":      models.BookingCancelled,
					"cancelledBy": by,
					"cancelledAt": at,
					"updatedAt":   at,
					"seatHeld":    false,
				},
				"$unset": bson.M{"activeKey": ""},
			},
		).Decode(&before)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return errNoTransition
		}
		if err != nil {
			return fmt.Errorf("failed to cancel booking: %w", err)
		}

		if before.SeatHeld {
			if err := repo.releaseBucket(sc, before.Bucket(), at); err != nil {
				return err
			}
		}
		if before.PaymentStatus == models.PaymentPaid {
			if _, err := repo.bookingColl.UpdateOne(sc, bson.M{"id": id},
				bson.M{"$set": bson.M{"paymentStatus": models.PaymentRefunded}}); err != nil {
				return fmt.Errorf("failed to mark refund: %w", err)
			}
		}
		return repo.voidLedger(sc, id, at)
	})
	if errors.Is(err, errNoTransition) {
		return repo.statusChanged(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("cancel transaction failed: %w", err)
	}
	return repo.GetBooking(ctx, id)
}

func (repo *MongoSchedulerRepo) voidLedger(ctx context.Context, bookingID string, at time.Time) error {
	for _, from := range []models.LedgerStatus{models.LedgerPending, models.LedgerCompleted} {
		to, _ := voidedLedgerStatus(from)
		if _, err := repo.ledgerColl.UpdateOne(ctx,
			bson.M{"bookingId": bookingID, "status": from},
			bson.M{"$set": bson.M{"status": to, "updatedAt": at}}); err != nil {
			return fmt.Errorf("failed to void ledger entry: %w", err)
		}
	}
	return nil
}

