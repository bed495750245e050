package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dimaa-b/baruch-studyrooms/internal/database"
	"github.com/dimaa-b/baruch-studyrooms/internal/model"
)

// ErrValidation wraps intake validation failures so handlers can map them
// to a 400 without inspecting validator internals.
var ErrValidation = errors.New("validation failed")

// CreateRequestInput is the intake payload for a new monitoring request
type CreateRequestInput struct {
	OwnerID        string `json:"owner_id" validate:"omitempty,max=128"`
	Email          string `json:"email" validate:"required,email"`
	FirstName      string `json:"first_name" validate:"required,max=64"`
	LastName       string `json:"last_name" validate:"required,max=64"`
	TargetDate     string `json:"target_date" validate:"required,datetime=2006-01-02"`
	WindowStart    string `json:"window_start" validate:"required,datetime=15:04"`
	WindowEnd      string `json:"window_end" validate:"required,datetime=15:04"`
	DurationHours  int    `json:"duration_hours" validate:"required,min=1,max=2"`
	RoomPreference int    `json:"room_preference" validate:"omitempty,min=1"`
}

// StopResult reports what stopping a request actually did
type StopResult struct {
	Request *model.MonitoringRequest
	// AlreadyTerminal is set when the request had reached a terminal state
	// before the stop arrived; the stored status is left untouched.
	AlreadyTerminal bool
}

// RequestStorage is the slice of the request repository the lifecycle
// service needs.
type RequestStorage interface {
	Create(ctx context.Context, req *model.MonitoringRequest) error
	GetByID(ctx context.Context, requestID string) (*model.MonitoringRequest, error)
	List(ctx context.Context, ownerID string, status model.Status) ([]model.MonitoringRequest, error)
	ListActive(ctx context.Context) ([]model.MonitoringRequest, error)
	Stop(ctx context.Context, requestID string) error
}

// RequestService owns the monitoring request lifecycle outside of checks:
// intake, lookup, listing, and owner-driven stops.
type RequestService struct {
	repo     RequestStorage
	validate *validator.Validate
	logger   *slog.Logger
}

// NewRequestService creates a new request service
func NewRequestService(repo RequestStorage, logger *slog.Logger) *RequestService {
	return &RequestService{
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// Create validates the intake payload and persists a new active request
func (s *RequestService) Create(ctx context.Context, input CreateRequestInput) (*model.MonitoringRequest, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	now := time.Now()
	req := &model.MonitoringRequest{
		RequestID:      model.NewRequestID(input.TargetDate, input.WindowStart, input.WindowEnd, now),
		OwnerID:        input.OwnerID,
		Email:          input.Email,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		TargetDate:     input.TargetDate,
		WindowStart:    input.WindowStart,
		WindowEnd:      input.WindowEnd,
		DurationHours:  input.DurationHours,
		RoomPreference: input.RoomPreference,
		Status:         model.StatusActive,
		CreatedAt:      now,
	}

	windowStart, windowEnd, err := req.WindowTimes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if windowEnd.Sub(windowStart) < time.Duration(input.DurationHours)*time.Hour {
		return nil, fmt.Errorf("%w: window is shorter than the requested duration", ErrValidation)
	}

	expiresAt, err := model.ExpiryFor(input.TargetDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !expiresAt.After(now) {
		return nil, fmt.Errorf("%w: target date is in the past", ErrValidation)
	}
	req.ExpiresAt = expiresAt

	if err := s.repo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("monitoring request created",
		"request_id", req.RequestID,
		"target_date", req.TargetDate,
		"window", req.WindowStart+"-"+req.WindowEnd,
		"duration_hours", req.DurationHours,
	)

	return req, nil
}

// Get retrieves one request by id
func (s *RequestService) Get(ctx context.Context, requestID string) (*model.MonitoringRequest, error) {
	return s.repo.GetByID(ctx, requestID)
}

// List retrieves requests, optionally scoped to an owner and status.
// Unscoped listings come back sanitized: the engine never leaks contact
// details to callers who did not create the request.
func (s *RequestService) List(ctx context.Context, ownerID string, status model.Status) ([]model.MonitoringRequest, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	requests, err := s.repo.List(ctx, ownerID, status)
	if err != nil {
		return nil, err
	}

	if ownerID == "" {
		for i := range requests {
			requests[i] = requests[i].Sanitized()
		}
	}
	return requests, nil
}

// ListActive retrieves every request still eligible for checking
func (s *RequestService) ListActive(ctx context.Context) ([]model.MonitoringRequest, error) {
	return s.repo.ListActive(ctx)
}

// Stop transitions an active request to stopped. Stopping a request that
// already reached a terminal state is reported, not treated as an error.
func (s *RequestService) Stop(ctx context.Context, requestID string) (StopResult, error) {
	err := s.repo.Stop(ctx, requestID)
	if err == nil {
		req, getErr := s.repo.GetByID(ctx, requestID)
		if getErr != nil {
			return StopResult{}, getErr
		}
		s.logger.Info("monitoring request stopped", "request_id", requestID)
		return StopResult{Request: req}, nil
	}

	if !errors.Is(err, database.ErrNotActive) {
		return StopResult{}, err
	}

	// Distinguish "already terminal" from "never existed".
	req, getErr := s.repo.GetByID(ctx, requestID)
	if getErr != nil {
		return StopResult{}, getErr
	}
	return StopResult{Request: req, AlreadyTerminal: true}, nil
}
