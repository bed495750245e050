package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dimaa-b/baruch-studyrooms/internal/model"
)

// CheckRepository handles the per-request check audit trail
type CheckRepository struct {
	collection *mongo.Collection
}

// NewCheckRepository creates a new check repository
func NewCheckRepository(db *MongoDB) *CheckRepository {
	return &CheckRepository{
		collection: db.GetCollection(CollectionCheckHistory),
	}
}

// Create appends one check record
func (r *CheckRepository) Create(ctx context.Context, record *model.CheckRecord) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if record.ID.IsZero() {
		record.ID = primitive.NewObjectID()
	}

	_, err := r.collection.InsertOne(ctxTimeout, record)
	if err != nil {
		return fmt.Errorf("failed to create check record: %w", err)
	}

	return nil
}

// ListByRequest retrieves the check history for one request, newest first,
// with pagination.
func (r *CheckRepository) ListByRequest(ctx context.Context, requestID string, page, limit int) ([]model.CheckRecord, int64, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"request_id": requestID}

	total, err := r.collection.CountDocuments(ctxTimeout, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count check records: %w", err)
	}

	skip := (page - 1) * limit
	opts := options.Find().
		SetSkip(int64(skip)).
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "checked_at", Value: -1}})

	cursor, err := r.collection.Find(ctxTimeout, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list check records: %w", err)
	}
	defer cursor.Close(ctxTimeout)

	var records []model.CheckRecord
	if err := cursor.All(ctxTimeout, &records); err != nil {
		return nil, 0, fmt.Errorf("failed to decode check records: %w", err)
	}

	return records, total, nil
}
