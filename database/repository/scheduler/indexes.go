package schedulerRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the booking invariants depend on.
func EnsureIndexes(ctx context.Context, repo SchedulerRepository) error {
	r, ok := repo.(*MongoSchedulerRepo)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	plan := []struct {
		coll    *mongo.Collection
		indexes []mongo.IndexModel
	}{
		{r.bookingColl, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("unique_id"),
			},
			// Duplicate guard; cancelled bookings drop their key.
			{
				Keys:    bson.D{{Key: "activeKey", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true).SetName("unique_active_key"),
			},
			// Group event reuse lookup
			{
				Keys: bson.D{
					{Key: "tutorId", Value: 1},
					{Key: "scheduledAt", Value: 1},
					{Key: "durationMinutes", Value: 1},
					{Key: "status", Value: 1},
					{Key: "externalEventId", Value: 1},
				},
				Options: options.Index().SetName("tutor_slot_status_event"),
			},
			{
				Keys:    bson.D{{Key: "externalEventId", Value: 1}, {Key: "status", Value: 1}},
				Options: options.Index().SetName("event_status_idx"),
			},
			{
				Keys:    bson.D{{Key: "studentId", Value: 1}, {Key: "scheduledAt", Value: -1}},
				Options: options.Index().SetName("student_scheduled_idx"),
			},
			{
				Keys:    bson.D{{Key: "status", Value: 1}, {Key: "endsAt", Value: 1}},
				Options: options.Index().SetName("status_ends_idx"),
			},
		}},
		{r.bucketColl, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "key", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("unique_bucket_key"),
			},
		}},
		{r.relationColl, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "studentId", Value: 1}, {Key: "tutorId", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("unique_student_tutor"),
			},
		}},
		{r.ledgerColl, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "bookingId", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("unique_booking"),
			},
			{
				Keys:    bson.D{{Key: "tutorId", Value: 1}, {Key: "status", Value: 1}},
				Options: options.Index().SetName("tutor_status_idx"),
			},
			{
				Keys:    bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}},
				Options: options.Index().SetName("status_created_idx"),
			},
		}},
	}

	for _, p := range plan {
		if _, err := p.coll.Indexes().CreateMany(ctx, p.indexes); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", p.coll.Name(), err)
		}
	}
	return nil
}
