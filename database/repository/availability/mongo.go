package availabilityRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tutorbook/database"
	"tutorbook/database/repository"
	"tutorbook/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoAvailabilityRepo struct {
	templates *mongo.Collection
	blocked   *mongo.Collection
}

// NewMongoAvailabilityRepo returns an AvailabilityRepository backed by MongoDB.
func NewMongoAvailabilityRepo() AvailabilityRepository {
	db := database.Database()
	return &mongoAvailabilityRepo{
		templates: db.Collection("availability_templates"),
		blocked:   db.Collection("blocked_dates"),
	}
}

func (r *mongoAvailabilityRepo) GetTemplate(ctx context.Context, tutorID string) (*models.AvailabilityTemplate, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	var tpl models.AvailabilityTemplate
	if err := r.templates.FindOne(ctx, bson.M{"tutorId": tutorID}).Decode(&tpl); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching template for tutor %s: %w", tutorID, err)
	}
	return &tpl, nil
}

func (r *mongoAvailabilityRepo) GetOrCreateTemplate(ctx context.Context, tutorID string) (*models.AvailabilityTemplate, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	fresh := models.NewAvailabilityTemplate(uuid.NewString(), tutorID, time.Now().UTC())
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var tpl models.AvailabilityTemplate
	err := r.templates.FindOneAndUpdate(ctx, bson.M{"tutorId": tutorID}, bson.M{"$setOnInsert": fresh}, opts).Decode(&tpl)
	if database.IsDuplicateKey(err) {
		// Lost the insert race; the winner's document is there now.
		err = r.templates.FindOne(ctx, bson.M{"tutorId": tutorID}).Decode(&tpl)
	}
	if err != nil {
		return nil, fmt.Errorf("error loading template for tutor %s: %w", tutorID, err)
	}
	return &tpl, nil
}

func scheduleField(kind models.SessionKind) string {
	if kind == models.SessionGroup {
		return "groupSchedule"
	}
	return "privateSchedule"
}

func (r *mongoAvailabilityRepo) ReplaceSchedule(ctx context.Context, tutorID string, kind models.SessionKind, schedule models.WeeklySchedule, expectedVersion int) (*models.AvailabilityTemplate, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	filter := bson.M{"tutorId": tutorID, "version": expectedVersion}
	update := bson.M{
		"$set": bson.M{scheduleField(kind): schedule, "updatedAt": time.Now().UTC()},
		"$inc": bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var tpl models.AvailabilityTemplate
	if err := r.templates.FindOneAndUpdate(ctx, filter, update, opts).Decode(&tpl); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrVersionConflict
		}
		return nil, fmt.Errorf("failed to replace %s schedule: %w", kind, err)
	}
	return &tpl, nil
}

func (r *mongoAvailabilityRepo) UpdateSettings(ctx context.Context, tutorID string, u models.AvailabilitySettingsUpdate) (*models.AvailabilityTemplate, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	set := bson.M{"updatedAt": time.Now().UTC()}
	if u.Timezone != nil {
		set["timezone"] = *u.Timezone
	}
	if u.SessionDurationMinutes != nil {
		set["sessionDurationMinutes"] = *u.SessionDurationMinutes
	}
	if u.BufferMinutes != nil {
		set["bufferMinutes"] = *u.BufferMinutes
	}
	if u.AdvanceBookingDays != nil {
		set["advanceBookingDays"] = *u.AdvanceBookingDays
	}
	if u.MinNoticeHours != nil {
		set["minNoticeHours"] = *u.MinNoticeHours
	}
	if u.IsAcceptingStudents != nil {
		set["isAcceptingStudents"] = *u.IsAcceptingStudents
	}
	if u.GroupSessionCapacity != nil {
		set["groupSessionCapacity"] = *u.GroupSessionCapacity
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var tpl models.AvailabilityTemplate
	err := r.templates.FindOneAndUpdate(ctx, bson.M{"tutorId": tutorID}, bson.M{"$set": set, "$inc": bson.M{"version": 1}}, opts).Decode(&tpl)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update availability settings: %w", err)
	}
	return &tpl, nil
}

func (r *mongoAvailabilityRepo) AddBlockedDate(ctx context.Context, b *models.BlockedDate) error {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	if _, err := r.blocked.InsertOne(ctx, b); err != nil {
		if database.IsDuplicateKey(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to insert blocked date: %w", err)
	}
	return nil
}

func (r *mongoAvailabilityRepo) DeleteBlockedDate(ctx context.Context, tutorID, id string) error {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	res, err := r.blocked.DeleteOne(ctx, bson.M{"id": id, "tutorId": tutorID})
	if err != nil {
		return fmt.Errorf("failed to delete blocked date: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoAvailabilityRepo) ListBlockedDates(ctx context.Context, tutorID, from, to string) ([]models.BlockedDate, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	filter := bson.M{"tutorId": tutorID}
	dateRange := bson.M{}
	if from != "" {
		dateRange["$gte"] = from
	}
	if to != "" {
		dateRange["$lte"] = to
	}
	if len(dateRange) > 0 {
		filter["date"] = dateRange
	}

	cursor, err := r.blocked.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("error fetching blocked dates: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.BlockedDate{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding blocked dates: %w", err)
	}
	return out, nil
}

func (r *mongoAvailabilityRepo) IsDateBlocked(ctx context.Context, tutorID, date string) (bool, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	n, err := r.blocked.CountDocuments(ctx, bson.M{"tutorId": tutorID, "date": date}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("error checking blocked date: %w", err)
	}
	return n > 0, nil
}
