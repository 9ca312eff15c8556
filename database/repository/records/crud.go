package recordsRepo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"tutorbook/database"
	"tutorbook/database/repository"
	"tutorbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoWithdrawalRepo struct {
	coll *mongo.Collection
}

// NewMongoWithdrawalRepo returns a WithdrawalRepository backed by MongoDB.
func NewMongoWithdrawalRepo() WithdrawalRepository {
	return &mongoWithdrawalRepo{coll: database.Database().Collection("withdrawals")}
}

func (r *mongoWithdrawalRepo) Create(ctx context.Context, w *models.Withdrawal) error {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()
	if _, err := r.coll.InsertOne(ctx, w); err != nil {
		return fmt.Errorf("failed to create withdrawal: %w", err)
	}
	return nil
}

func (r *mongoWithdrawalRepo) Get(ctx context.Context, id string) (*models.Withdrawal, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()
	var w models.Withdrawal
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&w)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading withdrawal: %w", err)
	}
	return &w, nil
}

func (r *mongoWithdrawalRepo) ListByTutor(ctx context.Context, tutorID string, statuses ...models.WithdrawalStatus) ([]models.Withdrawal, error) {
	return r.find(ctx, bson.M{"tutorId": tutorID}, statuses)
}

func (r *mongoWithdrawalRepo) List(ctx context.Context, statuses ...models.WithdrawalStatus) ([]models.Withdrawal, error) {
	return r.find(ctx, bson.M{}, statuses)
}

func (r *mongoWithdrawalRepo) find(ctx context.Context, filter bson.M, statuses []models.WithdrawalStatus) ([]models.Withdrawal, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("error listing withdrawals: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.Withdrawal{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding withdrawals: %w", err)
	}
	return out, nil
}

func (r *mongoWithdrawalRepo) UpdateStatus(ctx context.Context, id string, from []models.WithdrawalStatus, d WithdrawalDecision) (*models.Withdrawal, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	set := bson.M{
		"status":      d.Status,
		"processedBy": d.ProcessedBy,
		"processedAt": d.At,
		"updatedAt":   d.At,
	}
	if d.AdminNotes != "" {
		set["adminNotes"] = d.AdminNotes
	}
	if d.TransactionID != "" {
		set["transactionId"] = d.TransactionID
	}

	var updated models.Withdrawal
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"id": id, "status": bson.M{"$in": from}},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		n, countErr := r.coll.CountDocuments(ctx, bson.M{"id": id})
		if countErr != nil {
			return nil, fmt.Errorf("error checking withdrawal: %w", countErr)
		}
		if n == 0 {
			return nil, repository.ErrNotFound
		}
		return nil, repository.ErrVersionConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update withdrawal: %w", err)
	}
	return &updated, nil
}

// EnsureIndexes indexes withdrawals by tutor and status.
func EnsureIndexes(ctx context.Context, repo WithdrawalRepository) error {
	r, ok := repo.(*mongoWithdrawalRepo)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tutorId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create withdrawal indexes: %w", err)
	}
	return nil
}

type memoryWithdrawalRepo struct {
	mu   sync.Mutex
	rows []models.Withdrawal
}

func NewMemoryWithdrawalRepo() WithdrawalRepository {
	return &memoryWithdrawalRepo{}
}

func (r *memoryWithdrawalRepo) Create(_ context.Context, w *models.Withdrawal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *w)
	return nil
}

func (r *memoryWithdrawalRepo) Get(_ context.Context, id string) (*models.Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.rows {
		if w.ID == id {
			return &w, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryWithdrawalRepo) ListByTutor(_ context.Context, tutorID string, statuses ...models.WithdrawalStatus) ([]models.Withdrawal, error) {
	return r.filter(tutorID, statuses), nil
}

func (r *memoryWithdrawalRepo) List(_ context.Context, statuses ...models.WithdrawalStatus) ([]models.Withdrawal, error) {
	return r.filter("", statuses), nil
}

func (r *memoryWithdrawalRepo) UpdateStatus(_ context.Context, id string, from []models.WithdrawalStatus, d WithdrawalDecision) (*models.Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		w := &r.rows[i]
		if w.ID != id {
			continue
		}
		if !hasStatus(from, w.Status) {
			return nil, repository.ErrVersionConflict
		}
		at := d.At
		w.Status = d.Status
		w.ProcessedBy = d.ProcessedBy
		w.ProcessedAt = &at
		w.UpdatedAt = at
		if d.AdminNotes != "" {
			w.AdminNotes = d.AdminNotes
		}
		if d.TransactionID != "" {
			w.TransactionID = d.TransactionID
		}
		out := *w
		return &out, nil
	}
	return nil, repository.ErrNotFound
}

// filter matches every tutor when tutorID is empty.
func (r *memoryWithdrawalRepo) filter(tutorID string, statuses []models.WithdrawalStatus) []models.Withdrawal {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Withdrawal{}
	for _, w := range r.rows {
		if tutorID != "" && w.TutorID != tutorID {
			continue
		}
		if len(statuses) > 0 && !hasStatus(statuses, w.Status) {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func hasStatus(set []models.WithdrawalStatus, s models.WithdrawalStatus) bool {
	for _, x := range set {
		if x == s {
			return true
		}
	}
	return false
}
