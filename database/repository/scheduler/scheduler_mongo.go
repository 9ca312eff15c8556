package schedulerRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tutorbook/database"
	"tutorbook/database/repository"
	"tutorbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSchedulerRepo implements SchedulerRepository using MongoDB.
type MongoSchedulerRepo struct {
	client       *mongo.Client
	bookingColl  *mongo.Collection
	bucketColl   *mongo.Collection
	relationColl *mongo.Collection
	ledgerColl   *mongo.Collection
}

// NewMongoSchedulerRepo constructs a new instance of MongoSchedulerRepo.
func NewMongoSchedulerRepo() SchedulerRepository {
	db := database.Database()
	return &MongoSchedulerRepo{
		client:       db.Client(),
		bookingColl:  db.Collection("bookings"),
		bucketColl:   db.Collection("capacity_buckets"),
		relationColl: db.Collection("student_tutor_relations"),
		ledgerColl:   db.Collection("payment_ledger"),
	}
}

func (repo *MongoSchedulerRepo) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	var b models.Booking
	if err := repo.bookingColl.FindOne(ctx, bson.M{"id": id}).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching booking %s: %w", id, err)
	}
	return &b, nil
}

func (repo *MongoSchedulerRepo) ListBookings(ctx context.Context, f BookingFilter) ([]models.Booking, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	filter := bson.M{}
	if f.StudentID != "" {
		filter["studentId"] = f.StudentID
	}
	if f.TutorID != "" {
		filter["tutorId"] = f.TutorID
	}
	if len(f.Status) > 0 {
		filter["status"] = bson.M{"$in": f.Status}
	}
	if !f.EndsBefore.IsZero() {
		filter["endsAt"] = bson.M{"$lte": f.EndsBefore}
	}

	opts := options.Find().SetSort(bson.D{{Key: "scheduledAt", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	cursor, err := repo.bookingColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing bookings: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.Booking{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding bookings: %w", err)
	}
	return out, nil
}

func (repo *MongoSchedulerRepo) FindSharedArtifact(ctx context.Context, tutorID string, scheduledAt time.Time, durationMinutes int, excludeID string) (*models.Booking, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	// Served by the tutor_slot_status_event index.
	filter := bson.M{
		"tutorId":         tutorID,
		"scheduledAt":     scheduledAt.UTC(),
		"durationMinutes": durationMinutes,
		"status":          models.BookingConfirmed,
		"externalEventId": bson.M{"$ne": nil},
		"sessionType":     models.SessionGroup,
		"id":              bson.M{"$ne": excludeID},
	}
	var b models.Booking
	if err := repo.bookingColl.FindOne(ctx, filter).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("error looking up shared event: %w", err)
	}
	return &b, nil
}

func (repo *MongoSchedulerRepo) CountArtifactHolders(ctx context.Context, eventID, excludeID string) (int64, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	n, err := repo.bookingColl.CountDocuments(ctx, bson.M{
		"externalEventId": eventID,
		"status":          models.BookingConfirmed,
		"id":              bson.M{"$ne": excludeID},
	})
	if err != nil {
		return 0, fmt.Errorf("error counting event holders: %w", err)
	}
	return n, nil
}

func (repo *MongoSchedulerRepo) CompleteBooking(ctx context.Context, id string, at time.Time) (*models.Booking, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{"status": models.BookingCompleted, "completedAt": at, "updatedAt": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var b models.Booking
	err := repo.bookingColl.FindOneAndUpdate(ctx, bson.M{"id": id, "status": models.BookingConfirmed}, update, opts).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repo.statusChanged(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to complete booking: %w", err)
	}
	return &b, nil
}

func (repo *MongoSchedulerRepo) SetMeetingLink(ctx context.Context, id, link string) (*models.Booking, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{"meetingLink": link, "updatedAt": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var b models.Booking
	err := repo.bookingColl.FindOneAndUpdate(ctx, bson.M{"id": id, "status": models.BookingConfirmed}, update, opts).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repo.statusChanged(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set meeting link: %w", err)
	}
	return &b, nil
}

func (repo *MongoSchedulerRepo) SetPaymentStatus(ctx context.Context, bookingID string, status models.PaymentStatus) error {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	res, err := repo.bookingColl.UpdateOne(ctx, bson.M{"id": bookingID},
		bson.M{"$set": bson.M{"paymentStatus": status, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("failed to set payment status: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// statusChanged explains why a conditional transition matched nothing.
func (repo *MongoSchedulerRepo) statusChanged(ctx context.Context, id string) (*models.Booking, error) {
	current, err := repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	return current, ErrStatusChanged
}
