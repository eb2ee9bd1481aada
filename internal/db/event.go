package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kepfinance/kep-vault/internal/db/model"
)

func (db *Database) SaveOperationEvent(
	ctx context.Context, eventDoc *model.OperationEventDocument,
) error {
	_, err := db.client.Database(db.dbName).
		Collection(model.OperationEventCollection).
		InsertOne(ctx, eventDoc)
	if err != nil {
		var writeErr mongo.WriteException
		if errors.As(err, &writeErr) {
			for _, e := range writeErr.WriteErrors {
				if mongo.IsDuplicateKeyError(e) {
					return &DuplicateKeyError{
						Key:     eventDoc.EventID,
						Message: "operation event already recorded",
					}
				}
			}
		}
		return err
	}
	return nil
}

func (db *Database) GetOperationEventByID(
	ctx context.Context, eventID string,
) (*model.OperationEventDocument, error) {
	res := db.client.Database(db.dbName).
		Collection(model.OperationEventCollection).
		FindOne(ctx, bson.M{"_id": eventID})

	var doc model.OperationEventDocument
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     eventID,
				Message: "operation event not found",
			}
		}
		return nil, err
	}
	return &doc, nil
}

// GetRecentOperationEvents returns up to limit events, newest first.
func (db *Database) GetRecentOperationEvents(
	ctx context.Context, limit int64,
) ([]model.OperationEventDocument, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cursor, err := db.client.Database(db.dbName).
		Collection(model.OperationEventCollection).
		Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []model.OperationEventDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (db *Database) SaveVaultSnapshot(
	ctx context.Context, snapshotDoc *model.VaultSnapshotDocument,
) error {
	_, err := db.client.Database(db.dbName).
		Collection(model.VaultSnapshotCollection).
		InsertOne(ctx, snapshotDoc)
	return err
}

func (db *Database) GetLatestVaultSnapshot(
	ctx context.Context,
) (*model.VaultSnapshotDocument, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	res := db.client.Database(db.dbName).
		Collection(model.VaultSnapshotCollection).
		FindOne(ctx, bson.M{}, opts)

	var doc model.VaultSnapshotDocument
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{Message: "no vault snapshot recorded"}
		}
		return nil, err
	}
	return &doc, nil
}
