package userRepo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tutorbook/database"
	"tutorbook/database/repository"
	"tutorbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DeviceRepository maps users to their push token.
type DeviceRepository interface {
	Upsert(ctx context.Context, d models.Device) error
	// GetFCMToken returns repository.ErrNotFound when the user registered no device.
	GetFCMToken(ctx context.Context, userID string) (string, error)
}

type MongoDeviceRepo struct {
	coll *mongo.Collection
}

func NewMongoDeviceRepo() DeviceRepository {
	return &MongoDeviceRepo{coll: database.Database().Collection("devices")}
}

func (r *MongoDeviceRepo) Upsert(ctx context.Context, d models.Device) error {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()
	d.UpdatedAt = time.Now().UTC()
	_, err := r.coll.ReplaceOne(ctx, bson.M{"userId": d.UserID}, d, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store device: %w", err)
	}
	return nil
}

func (r *MongoDeviceRepo) GetFCMToken(ctx context.Context, userID string) (string, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()
	var d models.Device
	if err := r.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("error fetching device: %w", err)
	}
	if d.FCMToken == "" {
		return "", repository.ErrNotFound
	}
	return d.FCMToken, nil
}

// EnsureIndexes keeps one device document per user.
func EnsureIndexes(ctx context.Context, repo DeviceRepository) error {
	r, ok := repo.(*MongoDeviceRepo)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create device indexes: %w", err)
	}
	return nil
}

type MemoryDeviceRepo struct {
	mu      sync.Mutex
	devices map[string]models.Device
}

func NewMemoryDeviceRepo() *MemoryDeviceRepo {
	return &MemoryDeviceRepo{devices: make(map[string]models.Device)}
}

func (r *MemoryDeviceRepo) Upsert(_ context.Context, d models.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.UpdatedAt = time.Now().UTC()
	r.devices[d.UserID] = d
	return nil
}

func (r *MemoryDeviceRepo) GetFCMToken(_ context.Context, userID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[userID]
	if !ok || d.FCMToken == "" {
		return "", repository.ErrNotFound
	}
	return d.FCMToken, nil
}
