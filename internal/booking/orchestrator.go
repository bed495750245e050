// Package booking turns a matched slot run into a booking attempt and
// classifies the result into the small set of outcomes the check runner's
// state machine acts on.
package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dimaa-b/baruch-studyrooms/internal/libcal"
	"github.com/dimaa-b/baruch-studyrooms/internal/matcher"
	"github.com/dimaa-b/baruch-studyrooms/internal/model"
)

// AttemptOutcome classifies a booking attempt for the state machine
type AttemptOutcome string

const (
	// OutcomeBooked means the upstream accepted the booking. Confirmation
	// may still arrive by email, but the room is held.
	OutcomeBooked AttemptOutcome = "booked"
	// OutcomeSlotTaken means another party claimed the slot between the
	// availability fetch and the booking attempt. Monitoring continues.
	OutcomeSlotTaken AttemptOutcome = "slot_taken"
	// OutcomeTransient covers network failures and timeouts; the next
	// scheduled check retries from scratch.
	OutcomeTransient AttemptOutcome = "transient"
	// OutcomePermanent covers rejections and response-shape drift that a
	// retry will not fix.
	OutcomePermanent AttemptOutcome = "permanent"
)

// Attempt is the classified result of one booking sequence
type Attempt struct {
	Outcome AttemptOutcome
	Details *model.SuccessDetails
	Reason  string
}

// Submitter is the slice of the upstream client the orchestrator needs
type Submitter interface {
	SubmitBooking(ctx context.Context, req libcal.BookingRequest) (libcal.BookingOutcome, error)
}

// Orchestrator drives booking attempts against the upstream
type Orchestrator struct {
	client Submitter
	logger *slog.Logger
}

func NewOrchestrator(client Submitter, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{client: client, logger: logger}
}

// Book submits the matched slots for the request and classifies the result.
// The error return is reserved for programming errors; upstream trouble is
// folded into the Attempt so the caller has a single switch to write.
func (o *Orchestrator) Book(ctx context.Context, req *model.MonitoringRequest, match matcher.MatchResult) (Attempt, error) {
	outcome, err := o.client.SubmitBooking(ctx, libcal.BookingRequest{
		RoomID:    match.RoomID,
		Date:      req.TargetDate,
		Slots:     match.Slots,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		if errors.Is(err, libcal.ErrUpstreamUnreachable) {
			o.logger.Warn("booking attempt hit unreachable upstream",
				"request_id", req.RequestID, "room_id", match.RoomID, "error", err)
			return Attempt{Outcome: OutcomeTransient, Reason: err.Error()}, nil
		}
		if libcal.IsFormatError(err) {
			o.logger.Error("booking sequence broke on upstream response shape",
				"request_id", req.RequestID, "room_id", match.RoomID, "error", err)
			return Attempt{Outcome: OutcomePermanent, Reason: err.Error()}, nil
		}
		return Attempt{}, err
	}

	switch outcome.Kind {
	case libcal.OutcomeConfirmed, libcal.OutcomePendingEmail:
		slots := make([]model.BookedSlot, len(match.Slots))
		for i, s := range match.Slots {
			slots[i] = model.BookedSlot{Start: s.Start, End: s.End}
		}
		o.logger.Info("booking succeeded",
			"request_id", req.RequestID, "room_id", match.RoomID, "booking_id", outcome.BookingID)
		return Attempt{
			Outcome: OutcomeBooked,
			Details: &model.SuccessDetails{
				BookingID: outcome.BookingID,
				RoomID:    match.RoomID,
				Slots:     slots,
				BookedAt:  time.Now(),
			},
		}, nil
	case libcal.OutcomeRejected:
		if outcome.SlotTaken {
			o.logger.Info("slot claimed by another party before booking completed",
				"request_id", req.RequestID, "room_id", match.RoomID, "reason", outcome.Reason)
			return Attempt{Outcome: OutcomeSlotTaken, Reason: outcome.Reason}, nil
		}
		o.logger.Error("upstream rejected booking",
			"request_id", req.RequestID, "room_id", match.RoomID, "reason", outcome.Reason)
		return Attempt{Outcome: OutcomePermanent, Reason: outcome.Reason}, nil
	default:
		return Attempt{Outcome: OutcomePermanent, Reason: "unrecognized booking outcome"}, nil
	}
}
