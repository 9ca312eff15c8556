package settingsRepo

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

// SettingsRepository reads and updates the platform settings singleton.
type SettingsRepository interface {
	// Get returns defaults when nothing was stored yet.
	Get(ctx context.Context) (models.PlatformSettings, error)
	Update(ctx context.Context, req models.UpdateSettingsRequest) (models.PlatformSettings, error)
}

const singletonID = "platform"

type mongoSettingsRepo struct {
	coll *mongo.Collection
}

func NewMongoSettingsRepo() SettingsRepository {
	return &mongoSettingsRepo{coll: database.Database().Collection("platform_settings")}
}

func (r *mongoSettingsRepo) Get(ctx context.Context) (models.PlatformSettings, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	s := models.DefaultPlatformSettings()
	err := r.coll.FindOne(ctx, bson.M{"id": singletonID}).Decode(&s)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return s, fmt.Errorf("error fetching platform settings: %w", err)
	}
	return s, nil
}

func (r *mongoSettingsRepo) Update(ctx context.Context, req models.UpdateSettingsRequest) (models.PlatformSettings, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	defaults := models.DefaultPlatformSettings()
	set := bson.M{"updatedAt": time.Now().UTC()}
	onInsert := bson.M{
		"commissionRate":          defaults.CommissionRate,
		"studentFeeRate":          defaults.StudentFeeRate,
		"minimumWithdrawalAmount": defaults.MinimumWithdrawalAmount,
		"inrToUsdRate":            defaults.InrToUsdRate,
	}
	apply := func(field string, v *float64) {
		if v != nil {
			set[field] = *v
			delete(onInsert, field)
		}
	}
	apply("commissionRate", req.CommissionRate)
	apply("studentFeeRate", req.StudentFeeRate)
	apply("minimumWithdrawalAmount", req.MinimumWithdrawalAmount)
	apply("inrToUsdRate", req.InrToUsdRate)

	update := bson.M{"$set": set}
	if len(onInsert) > 0 {
		update["$setOnInsert"] = onInsert
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var s models.PlatformSettings
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"id": singletonID}, update, opts).Decode(&s); err != nil {
		return s, fmt.Errorf("failed to update platform settings: %w", err)
	}
	return s, nil
}

type memorySettingsRepo struct {
	mu sync.Mutex
	s  models.PlatformSettings
}

func NewMemorySettingsRepo() SettingsRepository {
	return &memorySettingsRepo{s: models.DefaultPlatformSettings()}
}

func (r *memorySettingsRepo) Get(context.Context) (models.PlatformSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.s, nil
}

func (r *memorySettingsRepo) Update(_ context.Context, req models.UpdateSettingsRequest) (models.PlatformSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.CommissionRate != nil {
		r.s.CommissionRate = *req.CommissionRate
	}
	if req.StudentFeeRate != nil {
		r.s.StudentFeeRate = *req.StudentFeeRate
	}
	if req.MinimumWithdrawalAmount != nil {
		r.s.MinimumWithdrawalAmount = *req.MinimumWithdrawalAmount
	}
	if req.InrToUsdRate != nil {
		r.s.InrToUsdRate = *req.InrToUsdRate
	}
	r.s.UpdatedAt = time.Now().UTC()
	return r.s, nil
}
