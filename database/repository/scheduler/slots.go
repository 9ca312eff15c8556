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

// reserveSeat creates the bucket on first use with the given capacity, then
// takes one seat with a conditional increment. Capacity is frozen by the
// first reservation.
func (repo *MongoSchedulerRepo) reserveSeat(ctx context.Context, key models.BucketKey, capacity int, at time.Time) (*models.CapacityBucket, error) {
	k := key.String()
	seed := bson.M{"$setOnInsert": bson.M{
		"key":             k,
		"tutorId":         key.TutorID,
		"scheduledAt":     key.ScheduledAt.UTC(),
		"durationMinutes": key.DurationMinutes,
		"sessionType":     key.SessionType,
		"capacity":        capacity,
		"reservedCount":   0,
		"updatedAt":       at,
	}}
	if _, err := repo.bucketColl.UpdateOne(ctx, bson.M{"key": k}, seed, options.Update().SetUpsert(true)); err != nil && !database.IsDuplicateKey(err) {
		return nil, fmt.Errorf("failed to seed capacity bucket: %w", err)
	}

	filter := bson.M{
		"key":   k,
		"$expr": bson.M{"$lt": bson.A{"$reservedCount", "$capacity"}},
	}
	update := bson.M{
		"$inc": bson.M{"reservedCount": 1},
		"$set": bson.M{"updatedAt": at},
	}
	var bucket models.CapacityBucket
	err := repo.bucketColl.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&bucket)
	if errors.Is(err, mongo.ErrNoDocuments) {
		var full models.CapacityBucket
		if err := repo.bucketColl.FindOne(ctx, bson.M{"key": k}).Decode(&full); err != nil {
			return nil, fmt.Errorf("failed to read capacity bucket: %w", err)
		}
		return nil, capacityError(full.Capacity)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reserve seat: %w", err)
	}
	return &bucket, nil
}

func (repo *MongoSchedulerRepo) releaseBucket(ctx context.Context, key models.BucketKey, at time.Time) error {
	_, err := repo.bucketColl.UpdateOne(ctx,
		bson.M{"key": key.String(), "reservedCount": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"reservedCount": -1}, "$set": bson.M{"updatedAt": at}})
	if err != nil {
		return fmt.Errorf("failed to release seat: %w", err)
	}
	return nil
}

func (repo *MongoSchedulerRepo) ReserveSeat(ctx context.Context, key models.BucketKey, capacity int) (*models.CapacityBucket, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()
	return repo.reserveSeat(ctx, key, capacity, time.Now().UTC())
}

func (repo *MongoSchedulerRepo) ReleaseSeat(ctx context.Context, bookingID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*repository.OpTimeout)
	defer cancel()

	released := false
	err := database.RunInTransaction(ctx, repo.client, func(sc mongo.SessionContext) error {
		released = false
		now := time.Now().UTC()
		var before models.Booking
		err := repo.bookingColl.FindOneAndUpdate(sc,
			bson.M{"id": bookingID, "seatHeld": true},
			bson.M{"$set": bson.M{"seatHeld": false, "updatedAt": now}},
		).Decode(&before)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to clear seat flag: %w", err)
		}
		if err := repo.releaseBucket(sc, before.Bucket(), now); err != nil {
			return err
		}
		released = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("release seat transaction failed: %w", err)
	}
	return released, nil
}

func (repo *MongoSchedulerRepo) GetBucket(ctx context.Context, key models.BucketKey) (*models.CapacityBucket, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	var bucket models.CapacityBucket
	if err := repo.bucketColl.FindOne(ctx, bson.M{"key": key.String()}).Decode(&bucket); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching capacity bucket: %w", err)
	}
	return &bucket, nil
}
