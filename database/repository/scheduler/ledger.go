package schedulerRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tutorbook/database/repository"
	"tutorbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (repo *MongoSchedulerRepo) GetLedgerEntry(ctx context.Context, bookingID string) (*models.PaymentLedgerEntry, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	var e models.PaymentLedgerEntry
	if err := repo.ledgerColl.FindOne(ctx, bson.M{"bookingId": bookingID}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching ledger entry: %w", err)
	}
	return &e, nil
}

func (repo *MongoSchedulerRepo) ListLedgerEntries(ctx context.Context, f models.LedgerFilter) ([]models.PaymentLedgerEntry, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	filter := bson.M{}
	if f.TutorID != "" {
		filter["tutorId"] = f.TutorID
	}
	if len(f.Status) > 0 {
		filter["status"] = bson.M{"$in": f.Status}
	}
	if !f.Since.IsZero() {
		filter["createdAt"] = bson.M{"$gte": f.Since}
	}

	cursor, err := repo.ledgerColl.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("error listing ledger entries: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.PaymentLedgerEntry{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding ledger entries: %w", err)
	}
	return out, nil
}

func (repo *MongoSchedulerRepo) TransitionLedger(ctx context.Context, bookingID string, from []models.LedgerStatus, to models.LedgerStatus, at time.Time) (*models.PaymentLedgerEntry, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	set := bson.M{"status": to, "updatedAt": at}
	if to == models.LedgerCompleted {
		set["completedAt"] = at
	}
	var e models.PaymentLedgerEntry
	err := repo.ledgerColl.FindOneAndUpdate(ctx,
		bson.M{"bookingId": bookingID, "status": bson.M{"$in": from}},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		current, getErr := repo.GetLedgerEntry(ctx, bookingID)
		if getErr != nil {
			return nil, getErr
		}
		return current, ErrStatusChanged
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update ledger status: %w", err)
	}
	return &e, nil
}

func (repo *MongoSchedulerRepo) SetGatewayOrder(ctx context.Context, bookingID, orderID string) error {
	return repo.setLedgerField(ctx, bookingID, "gatewayOrderId", orderID)
}

func (repo *MongoSchedulerRepo) SetGatewayPayment(ctx context.Context, bookingID, paymentID string) error {
	return repo.setLedgerField(ctx, bookingID, "gatewayPaymentId", paymentID)
}

func (repo *MongoSchedulerRepo) setLedgerField(ctx context.Context, bookingID, field, value string) error {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	res, err := repo.ledgerColl.UpdateOne(ctx, bson.M{"bookingId": bookingID},
		bson.M{"$set": bson.M{field: value, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", field, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (repo *MongoSchedulerRepo) GetRelation(ctx context.Context, studentID, tutorID string) (*models.StudentTutorRelation, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	var rel models.StudentTutorRelation
	if err := repo.relationColl.FindOne(ctx, bson.M{"studentId": studentID, "tutorId": tutorID}).Decode(&rel); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching relation: %w", err)
	}
	return &rel, nil
}
