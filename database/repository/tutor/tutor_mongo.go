package tutorRepo

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

type MongoTutorRepo struct {
	coll *mongo.Collection
}

func NewMongoTutorRepo() TutorRepository {
	return &MongoTutorRepo{coll: database.Database().Collection("tutors")}
}

func (r *MongoTutorRepo) Create(ctx context.Context, t *models.TutorProfile) error {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()
	if _, err := r.coll.InsertOne(ctx, t); err != nil {
		if database.IsDuplicateKey(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create tutor: %w", err)
	}
	return nil
}

func (r *MongoTutorRepo) findOne(ctx context.Context, filter bson.M) (*models.TutorProfile, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()
	var t models.TutorProfile
	if err := r.coll.FindOne(ctx, filter).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching tutor: %w", err)
	}
	return &t, nil
}

func (r *MongoTutorRepo) GetByID(ctx context.Context, id string) (*models.TutorProfile, error) {
	return r.findOne(ctx, bson.M{"id": id})
}

func (r *MongoTutorRepo) GetByUserID(ctx context.Context, userID string) (*models.TutorProfile, error) {
	return r.findOne(ctx, bson.M{"userId": userID})
}

func (r *MongoTutorRepo) UpdateProfile(ctx context.Context, id string, req models.UpsertTutorRequest) (*models.TutorProfile, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	set := bson.M{
		"fullName":        req.FullName,
		"email":           req.Email,
		"hourlyRate":      req.HourlyRate,
		"groupHourlyRate": req.GroupHourlyRate,
		"offersPrivate":   req.OffersPrivate,
		"offersGroup":     req.OffersGroup,
		"updatedAt":       time.Now().UTC(),
	}
	if req.Currency != "" {
		set["currency"] = req.Currency
	}
	var t models.TutorProfile
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update tutor: %w", err)
	}
	return &t, nil
}

func (r *MongoTutorRepo) SetAvatar(ctx context.Context, id, url, publicID string) error {
	return r.updateFields(ctx, id, bson.M{"avatarUrl": url, "avatarPublicId": publicID})
}

func (r *MongoTutorRepo) GetCalendarCredential(ctx context.Context, tutorID string) (*models.CalendarCredential, error) {
	t, err := r.GetByID(ctx, tutorID)
	if err != nil {
		return nil, err
	}
	return &t.Calendar, nil
}

func (r *MongoTutorRepo) SaveCalendarCredential(ctx context.Context, tutorID string, cred models.CalendarCredential) error {
	return r.updateFields(ctx, tutorID, bson.M{"calendar": cred})
}

func (r *MongoTutorRepo) ClearCalendarCredential(ctx context.Context, tutorID string) error {
	return r.updateFields(ctx, tutorID, bson.M{"calendar": models.CalendarCredential{UpdatedAt: time.Now().UTC()}})
}

func (r *MongoTutorRepo) updateFields(ctx context.Context, id string, set bson.M) error {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()
	set["updatedAt"] = time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update tutor %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
