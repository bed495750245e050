package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dimaa-b/baruch-studyrooms/internal/model"
)

var (
	// ErrNotFound is returned when no request matches the given id
	ErrNotFound = errors.New("monitoring request not found")
	// ErrNotActive is returned by Transition when the request exists but is
	// no longer active: some other invocation reached a terminal state
	// first. Callers treat it as "lost the race", never as corruption.
	ErrNotActive = errors.New("monitoring request is not active")
)

// RequestRepository handles monitoring request persistence. All status
// transitions go through conditional updates on status "active", which is
// what makes concurrent checks safe without any lock collection.
type RequestRepository struct {
	collection *mongo.Collection
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *MongoDB) *RequestRepository {
	return &RequestRepository{
		collection: db.GetCollection(CollectionMonitoringRequests),
	}
}

// Create inserts a new monitoring request
func (r *RequestRepository) Create(ctx context.Context, req *model.MonitoringRequest) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}

	_, err := r.collection.InsertOne(ctxTimeout, req)
	if err != nil {
		return fmt.Errorf("failed to create monitoring request: %w", err)
	}

	return nil
}

// GetByID retrieves a monitoring request by its request id
func (r *RequestRepository) GetByID(ctx context.Context, requestID string) (*model.MonitoringRequest, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var req model.MonitoringRequest
	err := r.collection.FindOne(ctxTimeout, bson.M{"request_id": requestID}).Decode(&req)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get monitoring request: %w", err)
	}

	return &req, nil
}

// List retrieves monitoring requests in creation order, optionally filtered
// by owner and status.
func (r *RequestRepository) List(ctx context.Context, ownerID string, status model.Status) ([]model.MonitoringRequest, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if ownerID != "" {
		filter["owner_id"] = ownerID
	}
	if status != "" {
		filter["status"] = status
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := r.collection.Find(ctxTimeout, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitoring requests: %w", err)
	}
	defer cursor.Close(ctxTimeout)

	var requests []model.MonitoringRequest
	if err := cursor.All(ctxTimeout, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode monitoring requests: %w", err)
	}

	return requests, nil
}

// ListActive retrieves all requests still eligible for checking
func (r *RequestRepository) ListActive(ctx context.Context) ([]model.MonitoringRequest, error) {
	return r.List(ctx, "", model.StatusActive)
}

// RecordCheck stamps the check bookkeeping fields on an active request.
// A request that went terminal between read and write is left untouched.
func (r *RequestRepository) RecordCheck(ctx context.Context, requestID string, checkedAt time.Time) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{"last_checked_at": checkedAt},
		"$inc": bson.M{"check_count": 1},
	}

	filter := bson.M{"request_id": requestID, "status": model.StatusActive}
	_, err := r.collection.UpdateOne(ctxTimeout, filter, update)
	if err != nil {
		return fmt.Errorf("failed to record check: %w", err)
	}

	return nil
}

// Transition moves an active request into a terminal state. The filter
// matches only status "active", so of any number of concurrent callers at
// most one succeeds; the rest get ErrNotActive.
func (r *RequestRepository) Transition(ctx context.Context, requestID string, to model.Status, set bson.M) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if set == nil {
		set = bson.M{}
	}
	set["status"] = to

	filter := bson.M{"request_id": requestID, "status": model.StatusActive}
	result, err := r.collection.UpdateOne(ctxTimeout, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to transition monitoring request: %w", err)
	}

	if result.ModifiedCount == 0 {
		return ErrNotActive
	}

	return nil
}

// Complete marks a request booked, storing the booking details
func (r *RequestRepository) Complete(ctx context.Context, requestID string, details *model.SuccessDetails) error {
	return r.Transition(ctx, requestID, model.StatusCompleted, bson.M{"success_details": details})
}

// Stop marks a request stopped by its owner
func (r *RequestRepository) Stop(ctx context.Context, requestID string) error {
	return r.Transition(ctx, requestID, model.StatusStopped, nil)
}

// Expire marks a request expired
func (r *RequestRepository) Expire(ctx context.Context, requestID string) error {
	return r.Transition(ctx, requestID, model.StatusExpired, nil)
}

// Fail marks a request permanently failed with a diagnostic message
func (r *RequestRepository) Fail(ctx context.Context, requestID, message string) error {
	return r.Transition(ctx, requestID, model.StatusError, bson.M{"error_message": message})
}
