package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dimaa-b/baruch-studyrooms/internal/booking"
	"github.com/dimaa-b/baruch-studyrooms/internal/matcher"
	"github.com/dimaa-b/baruch-studyrooms/internal/model"
)

func directBookInput() DirectBookInput {
	return DirectBookInput{
		Email:         "ada@example.edu",
		FirstName:     "Ada",
		LastName:      "Lovelace",
		Date:          "2026-09-04",
		RoomID:        111,
		StartTime:     "10:00",
		DurationHours: 1,
	}
}

func bookOnceInput() BookOnceInput {
	return BookOnceInput{
		Email:         "ada@example.edu",
		FirstName:     "Ada",
		LastName:      "Lovelace",
		Date:          "2026-09-04",
		WindowStart:   "09:00",
		WindowEnd:     "12:00",
		DurationHours: 1,
	}
}

func TestDirectBook_BooksRequestedSlot(t *testing.T) {
	fetcher := &fakeFetcher{
		fetchFunc: func(ctx context.Context, date string) (model.Availability, error) {
			return openSlots(), nil
		},
	}
	var bookedFor *model.MonitoringRequest
	booker := &fakeBooker{
		bookFunc: func(ctx context.Context, req *model.MonitoringRequest, match matcher.MatchResult) (booking.Attempt, error) {
			bookedFor = req
			if match.RoomID != 111 {
				t.Errorf("expected room 111 in match, got %d", match.RoomID)
			}
			return booking.Attempt{
				Outcome: booking.OutcomeBooked,
				Details: &model.SuccessDetails{BookingID: "b1", RoomID: match.RoomID, BookedAt: time.Now()},
			}, nil
		},
	}
	svc := NewBookingService(fetcher, booker, slog.Default())

	attempt, err := svc.Book(context.Background(), directBookInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempt.Outcome != booking.OutcomeBooked {
		t.Fatalf("expected booked, got %q (%s)", attempt.Outcome, attempt.Reason)
	}
	if attempt.Details == nil || attempt.Details.BookingID != "b1" {
		t.Errorf("expected booking details to pass through, got %+v", attempt.Details)
	}
	if bookedFor == nil || bookedFor.Email != "ada@example.edu" {
		t.Errorf("expected contact details on the ephemeral request, got %+v", bookedFor)
	}
}

func TestDirectBook_SlotGone(t *testing.T) {
	fetcher := &fakeFetcher{
		fetchFunc: func(ctx context.Context, date string) (model.Availability, error) {
			return model.Availability{}, nil
		},
	}
	booker := &fakeBooker{
		bookFunc: func(ctx context.Context, req *model.MonitoringRequest, match matcher.MatchResult) (booking.Attempt, error) {
			t.Fatal("booker must not be called when the slot is gone")
			return booking.Attempt{}, nil
		},
	}
	svc := NewBookingService(fetcher, booker, slog.Default())

	attempt, err := svc.Book(context.Background(), directBookInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempt.Outcome != booking.OutcomeSlotTaken {
		t.Errorf("expected slot_taken, got %q", attempt.Outcome)
	}
}

func TestDirectBook_WrongStartTimeDoesNotMatch(t *testing.T) {
	fetcher := &fakeFetcher{
		fetchFunc: func(ctx context.Context, date string) (model.Availability, error) {
			return openSlots(), nil
		},
	}
	booker := &fakeBooker{
		bookFunc: func(ctx context.Context, req *model.MonitoringRequest, match matcher.MatchResult) (booking.Attempt, error) {
			t.Fatal("booker must not be called for a mismatched start time")
			return booking.Attempt{}, nil
		},
	}
	svc := NewBookingService(fetcher, booker, slog.Default())

	input := directBookInput()
	input.StartTime = "11:00"
	attempt, err := svc.Book(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempt.Outcome != booking.OutcomeSlotTaken {
		t.Errorf("expected slot_taken, got %q", attempt.Outcome)
	}
}

func TestDirectBook_ValidationFailure(t *testing.T) {
	svc := NewBookingService(nil, nil, slog.Default())

	input := directBookInput()
	input.Email = "not-an-email"
	if _, err := svc.Book(context.Background(), input); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBookOnce_BooksFirstRunInWindow(t *testing.T) {
	fetcher := &fakeFetcher{
		fetchFunc: func(ctx context.Context, date string) (model.Availability, error) {
			return openSlots(), nil
		},
	}
	booker := &fakeBooker{
		bookFunc: func(ctx context.Context, req *model.MonitoringRequest, match matcher.MatchResult) (booking.Attempt, error) {
			return booking.Attempt{
				Outcome: booking.OutcomeBooked,
				Details: &model.SuccessDetails{BookingID: "b2", RoomID: match.RoomID, BookedAt: time.Now()},
			}, nil
		},
	}
	svc := NewBookingService(fetcher, booker, slog.Default())

	result, err := svc.BookOnce(context.Background(), bookOnceInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Available {
		t.Fatal("expected an available run")
	}
	if result.Attempt.Outcome != booking.OutcomeBooked {
		t.Errorf("expected booked, got %q", result.Attempt.Outcome)
	}
}

func TestBookOnce_NothingAvailable(t *testing.T) {
	fetcher := &fakeFetcher{
		fetchFunc: func(ctx context.Context, date string) (model.Availability, error) {
			return model.Availability{}, nil
		},
	}
	svc := NewBookingService(fetcher, nil, slog.Default())

	result, err := svc.BookOnce(context.Background(), bookOnceInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Available {
		t.Error("expected no availability")
	}
}

func TestBookOnce_WindowShorterThanDuration(t *testing.T) {
	svc := NewBookingService(nil, nil, slog.Default())

	input := bookOnceInput()
	input.WindowEnd = "09:30"
	input.DurationHours = 1
	if _, err := svc.BookOnce(context.Background(), input); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
