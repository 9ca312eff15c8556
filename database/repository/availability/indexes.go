package availabilityRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the unique keys the availability invariants rely on.
func EnsureIndexes(ctx context.Context, repo AvailabilityRepository) error {
	r, ok := repo.(*mongoAvailabilityRepo)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := r.templates.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tutorId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_tutor"),
		},
	}); err != nil {
		return fmt.Errorf("failed to create template indexes: %w", err)
	}

	if _, err := r.blocked.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		// One block per tutor per date
		{
			Keys:    bson.D{{Key: "tutorId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("tutor_date_unique"),
		},
	}); err != nil {
		return fmt.Errorf("failed to create blocked date indexes: %w", err)
	}
	return nil
}
