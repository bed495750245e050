package booking

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/dimaa-b/baruch-studyrooms/internal/libcal"
	"github.com/dimaa-b/baruch-studyrooms/internal/matcher"
	"github.com/dimaa-b/baruch-studyrooms/internal/model"
)

type mockSubmitter struct {
	submitFunc func(ctx context.Context, req libcal.BookingRequest) (libcal.BookingOutcome, error)
}

func (m *mockSubmitter) SubmitBooking(ctx context.Context, req libcal.BookingRequest) (libcal.BookingOutcome, error) {
	return m.submitFunc(ctx, req)
}

func testMatch() matcher.MatchResult {
	start := time.Date(2026, 9, 4, 10, 0, 0, 0, time.Local)
	return matcher.MatchResult{
		Found:  true,
		RoomID: 111,
		Slots: []model.AvailabilitySlot{{
			RoomID:      111,
			Start:       start,
			End:         start.Add(time.Hour),
			Checksum:    "cs",
			IsAvailable: true,
		}},
	}
}

func testReq() *model.MonitoringRequest {
	return &model.MonitoringRequest{
		RequestID:  "2026-09-04_10:00-12:00_1",
		TargetDate: "2026-09-04",
		Email:      "ada@example.edu",
		FirstName:  "Ada",
		LastName:   "Lovelace",
	}
}

func TestBook_PendingEmailIsSuccess(t *testing.T) {
	submitter := &mockSubmitter{
		submitFunc: func(ctx context.Context, req libcal.BookingRequest) (libcal.BookingOutcome, error) {
			if req.Email != "ada@example.edu" {
				t.Errorf("contact email not forwarded, got %q", req.Email)
			}
			return libcal.BookingOutcome{Kind: libcal.OutcomePendingEmail, BookingID: "abc"}, nil
		},
	}

	o := NewOrchestrator(submitter, slog.Default())
	attempt, err := o.Book(context.Background(), testReq(), testMatch())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempt.Outcome != OutcomeBooked {
		t.Fatalf("expected booked, got %v", attempt.Outcome)
	}
	if attempt.Details == nil || attempt.Details.BookingID != "abc" {
		t.Fatalf("missing success details: %+v", attempt.Details)
	}
	if attempt.Details.RoomID != 111 || len(attempt.Details.Slots) != 1 {
		t.Errorf("details do not reflect the match: %+v", attempt.Details)
	}
}

func TestBook_SlotTakenKeepsMonitoring(t *testing.T) {
	submitter := &mockSubmitter{
		submitFunc: func(ctx context.Context, req libcal.BookingRequest) (libcal.BookingOutcome, error) {
			return libcal.BookingOutcome{Kind: libcal.OutcomeRejected, SlotTaken: true, Reason: "hold refused"}, nil
		},
	}

	o := NewOrchestrator(submitter, slog.Default())
	attempt, err := o.Book(context.Background(), testReq(), testMatch())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempt.Outcome != OutcomeSlotTaken {
		t.Fatalf("expected slot_taken, got %v", attempt.Outcome)
	}
}

func TestBook_UnreachableIsTransient(t *testing.T) {
	submitter := &mockSubmitter{
		submitFunc: func(ctx context.Context, req libcal.BookingRequest) (libcal.BookingOutcome, error) {
			return libcal.BookingOutcome{}, fmt.Errorf("%w: dial tcp: timeout", libcal.ErrUpstreamUnreachable)
		},
	}

	o := NewOrchestrator(submitter, slog.Default())
	attempt, err := o.Book(context.Background(), testReq(), testMatch())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempt.Outcome != OutcomeTransient {
		t.Fatalf("expected transient, got %v", attempt.Outcome)
	}
}

func TestBook_FormatDriftIsPermanent(t *testing.T) {
	submitter := &mockSubmitter{
		submitFunc: func(ctx context.Context, req libcal.BookingRequest) (libcal.BookingOutcome, error) {
			return libcal.BookingOutcome{}, &libcal.FormatError{Reason: "booking form response is not JSON"}
		},
	}

	o := NewOrchestrator(submitter, slog.Default())
	attempt, err := o.Book(context.Background(), testReq(), testMatch())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempt.Outcome != OutcomePermanent {
		t.Fatalf("expected permanent, got %v", attempt.Outcome)
	}
}

func TestBook_PlainRejectionIsPermanent(t *testing.T) {
	submitter := &mockSubmitter{
		submitFunc: func(ctx context.Context, req libcal.BookingRequest) (libcal.BookingOutcome, error) {
			return libcal.BookingOutcome{Kind: libcal.OutcomeRejected, Reason: "booking limit reached"}, nil
		},
	}

	o := NewOrchestrator(submitter, slog.Default())
	attempt, err := o.Book(context.Background(), testReq(), testMatch())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempt.Outcome != OutcomePermanent {
		t.Fatalf("expected permanent, got %v", attempt.Outcome)
	}
	if attempt.Reason != "booking limit reached" {
		t.Errorf("reason not carried through: %q", attempt.Reason)
	}
}
