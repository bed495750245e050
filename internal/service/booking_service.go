package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dimaa-b/baruch-studyrooms/internal/booking"
	"github.com/dimaa-b/baruch-studyrooms/internal/matcher"
	"github.com/dimaa-b/baruch-studyrooms/internal/model"
)

// DirectBookInput books a specific room at a specific start time
type DirectBookInput struct {
	Email         string `json:"email" validate:"required,email"`
	FirstName     string `json:"first_name" validate:"required,max=64"`
	LastName      string `json:"last_name" validate:"required,max=64"`
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	RoomID        int    `json:"room_id" validate:"required,min=1"`
	StartTime     string `json:"start_time" validate:"required,datetime=15:04"`
	DurationHours int    `json:"duration_hours" validate:"required,min=1,max=2"`
}

// BookOnceInput books the first free slot run in a window, without creating
// a monitoring request.
type BookOnceInput struct {
	Email          string `json:"email" validate:"required,email"`
	FirstName      string `json:"first_name" validate:"required,max=64"`
	LastName       string `json:"last_name" validate:"required,max=64"`
	Date           string `json:"date" validate:"required,datetime=2006-01-02"`
	WindowStart    string `json:"window_start" validate:"required,datetime=15:04"`
	WindowEnd      string `json:"window_end" validate:"required,datetime=15:04"`
	DurationHours  int    `json:"duration_hours" validate:"required,min=1,max=2"`
	RoomPreference int    `json:"room_preference" validate:"omitempty,min=1"`
}

// BookOnceResult reports one book-once pass. Available is false when the
// window held no bookable run; Attempt is only meaningful when it is true.
type BookOnceResult struct {
	Available bool
	Attempt   booking.Attempt
}

// BookingService handles one-shot bookings that bypass the monitoring
// lifecycle entirely: no stored request, no scheduler involvement.
type BookingService struct {
	fetcher  AvailabilityFetcher
	booker   Booker
	validate *validator.Validate
	logger   *slog.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(fetcher AvailabilityFetcher, booker Booker, logger *slog.Logger) *BookingService {
	return &BookingService{
		fetcher:  fetcher,
		booker:   booker,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// Book attempts to book the requested room at the requested start time.
// A slot that is gone by the time availability is fetched comes back as a
// slot_taken attempt, never an error.
func (s *BookingService) Book(ctx context.Context, input DirectBookInput) (booking.Attempt, error) {
	if err := s.validate.Struct(input); err != nil {
		return booking.Attempt{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	start, err := time.ParseInLocation(model.DateFormat+" "+model.ClockFormat, input.Date+" "+input.StartTime, time.Local)
	if err != nil {
		return booking.Attempt{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	end := start.Add(time.Duration(input.DurationHours) * time.Hour)

	// An ephemeral request whose window exactly bounds the wanted run; the
	// matcher then only succeeds on the exact room and start time asked for.
	req := &model.MonitoringRequest{
		RequestID:      "direct_" + uuid.New().String(),
		Email:          input.Email,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		TargetDate:     input.Date,
		WindowStart:    input.StartTime,
		WindowEnd:      end.Format(model.ClockFormat),
		DurationHours:  input.DurationHours,
		RoomPreference: input.RoomID,
	}

	return s.attempt(ctx, req)
}

// BookOnce checks the window once and books the first matching run. The
// monitoring state machine's equivalent of a single check, minus the
// stored request.
func (s *BookingService) BookOnce(ctx context.Context, input BookOnceInput) (BookOnceResult, error) {
	if err := s.validate.Struct(input); err != nil {
		return BookOnceResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	req := &model.MonitoringRequest{
		RequestID:      "direct_" + uuid.New().String(),
		Email:          input.Email,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		TargetDate:     input.Date,
		WindowStart:    input.WindowStart,
		WindowEnd:      input.WindowEnd,
		DurationHours:  input.DurationHours,
		RoomPreference: input.RoomPreference,
	}

	windowStart, windowEnd, err := req.WindowTimes()
	if err != nil {
		return BookOnceResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if windowEnd.Sub(windowStart) < time.Duration(input.DurationHours)*time.Hour {
		return BookOnceResult{}, fmt.Errorf("%w: window is shorter than the requested duration", ErrValidation)
	}

	attempt, err := s.attempt(ctx, req)
	if err != nil {
		return BookOnceResult{}, err
	}
	if attempt.Outcome == booking.OutcomeSlotTaken && attempt.Details == nil && attempt.Reason == noRunReason {
		return BookOnceResult{Available: false}, nil
	}
	return BookOnceResult{Available: true, Attempt: attempt}, nil
}

const noRunReason = "no bookable run in the requested window"

func (s *BookingService) attempt(ctx context.Context, req *model.MonitoringRequest) (booking.Attempt, error) {
	availability, err := s.fetcher.FetchAvailability(ctx, req.TargetDate)
	if err != nil {
		return booking.Attempt{}, err
	}

	match, err := matcher.Match(availability, req)
	if err != nil {
		return booking.Attempt{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !match.Found {
		return booking.Attempt{Outcome: booking.OutcomeSlotTaken, Reason: noRunReason}, nil
	}

	s.logger.Info("direct booking attempt",
		"request_id", req.RequestID,
		"room_id", match.RoomID,
		"date", req.TargetDate,
		"window", req.WindowStart+"-"+req.WindowEnd,
	)

	return s.booker.Book(ctx, req, match)
}
