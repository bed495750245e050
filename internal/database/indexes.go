package database

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateIndexes creates all necessary indexes for the collections
func CreateIndexes(ctx context.Context, db *MongoDB) error {
	slog.Info("Creating MongoDB indexes")

	if err := createMonitoringRequestIndexes(ctx, db); err != nil {
		return err
	}

	if err := createCheckHistoryIndexes(ctx, db); err != nil {
		return err
	}

	slog.Info("Successfully created all MongoDB indexes")
	return nil
}

func createMonitoringRequestIndexes(ctx context.Context, db *MongoDB) error {
	collection := db.GetCollection(CollectionMonitoringRequests)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "request_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_request_id_unique"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_status"),
		},
		{
			Keys: bson.D{
				{Key: "owner_id", Value: 1},
				{Key: "created_at", Value: 1},
			},
			Options: options.Index().SetName("idx_owner_id_created_at"),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "expires_at", Value: 1},
			},
			Options: options.Index().SetName("idx_status_expires_at"),
		},
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := collection.Indexes().CreateMany(ctxTimeout, indexes)
	if err != nil {
		return err
	}

	slog.Info("Created monitoring_requests indexes")
	return nil
}

func createCheckHistoryIndexes(ctx context.Context, db *MongoDB) error {
	collection := db.GetCollection(CollectionCheckHistory)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "request_id", Value: 1},
				{Key: "checked_at", Value: -1},
			},
			Options: options.Index().SetName("idx_request_id_checked_at"),
		},
		{
			Keys:    bson.D{{Key: "correlation_id", Value: 1}},
			Options: options.Index().SetName("idx_correlation_id"),
		},
		{
			Keys:    bson.D{{Key: "checked_at", Value: -1}},
			Options: options.Index().SetName("idx_checked_at"),
		},
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := collection.Indexes().CreateMany(ctxTimeout, indexes)
	if err != nil {
		return err
	}

	slog.Info("Created check_history indexes")
	return nil
}
