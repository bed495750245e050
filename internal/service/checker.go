package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/dimaa-b/baruch-studyrooms/internal/booking"
	"github.com/dimaa-b/baruch-studyrooms/internal/database"
	"github.com/dimaa-b/baruch-studyrooms/internal/libcal"
	"github.com/dimaa-b/baruch-studyrooms/internal/matcher"
	"github.com/dimaa-b/baruch-studyrooms/internal/model"
	"github.com/dimaa-b/baruch-studyrooms/internal/worker"
)

// RequestStore is the slice of the request repository the checker needs.
// Narrowed to an interface so checker tests can run against an in-memory
// fake.
type RequestStore interface {
	GetByID(ctx context.Context, requestID string) (*model.MonitoringRequest, error)
	ListActive(ctx context.Context) ([]model.MonitoringRequest, error)
	RecordCheck(ctx context.Context, requestID string, checkedAt time.Time) error
	Transition(ctx context.Context, requestID string, to model.Status, set bson.M) error
}

// AvailabilityFetcher retrieves one day's availability snapshot
type AvailabilityFetcher interface {
	FetchAvailability(ctx context.Context, date string) (model.Availability, error)
}

// Booker attempts a booking for a matched slot run
type Booker interface {
	Book(ctx context.Context, req *model.MonitoringRequest, match matcher.MatchResult) (booking.Attempt, error)
}

// CheckRecorder persists check audit records
type CheckRecorder interface {
	Create(ctx context.Context, record *model.CheckRecord) error
}

// Notifier publishes terminal-state events. Notification failures never
// influence the state machine.
type Notifier interface {
	RequestTerminal(ctx context.Context, req *model.MonitoringRequest, outcome string)
}

// Checker runs check invocations: fetch availability, match, attempt a
// booking, and drive the request's status transition. Each invocation is
// stateless; all coordination lives in the store's conditional updates, so
// any number of checkers (across processes) can run the same request
// concurrently and at most one completes it.
type Checker struct {
	store    RequestStore
	checks   CheckRecorder
	upstream AvailabilityFetcher
	booker   Booker
	notifier Notifier
	logger   *slog.Logger

	// batchMu serializes batch runs so each drains only its own results
	// from the shared pool.
	batchMu sync.Mutex
}

// NewChecker creates a new checker
func NewChecker(store RequestStore, checks CheckRecorder, upstream AvailabilityFetcher, booker Booker, notifier Notifier, logger *slog.Logger) *Checker {
	return &Checker{
		store:    store,
		checks:   checks,
		upstream: upstream,
		booker:   booker,
		notifier: notifier,
		logger:   logger,
	}
}

// Check runs one check invocation for one request. The returned record
// describes what happened; the error return is reserved for storage
// failures — upstream trouble is absorbed into the record and the request
// stays active for the next scheduled pass.
func (c *Checker) Check(ctx context.Context, requestID, correlationID string) (*model.CheckRecord, error) {
	started := time.Now()
	log := c.logger.With("request_id", requestID, "correlation_id", correlationID)

	req, err := c.store.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	record := &model.CheckRecord{
		RequestID:     requestID,
		CorrelationID: correlationID,
		CheckedAt:     started,
	}
	finish := func(outcome string, status model.Status, message string) *model.CheckRecord {
		record.Outcome = outcome
		record.StatusAfter = status
		record.Message = message
		record.DurationMs = time.Since(started).Milliseconds()
		if err := c.checks.Create(ctx, record); err != nil {
			log.Error("failed to persist check record", "error", err)
		}
		return record
	}

	if req.Status.Terminal() {
		log.Debug("check skipped, request already terminal", "status", req.Status)
		return finish(model.CheckOutcomeNotActive, req.Status, ""), nil
	}

	if req.Expired(started) {
		return c.expire(ctx, req, log, finish), nil
	}

	if err := c.store.RecordCheck(ctx, requestID, started); err != nil {
		return nil, err
	}

	availability, err := c.upstream.FetchAvailability(ctx, req.TargetDate)
	if err != nil {
		// Both failure modes leave the request active: a later pass gets a
		// fresh snapshot either way, and schema drift is alarmed through
		// logs rather than by killing every open request.
		if libcal.IsFormatError(err) {
			log.Error("availability response shape drifted", "error", err)
			return finish(model.CheckOutcomeUpstreamDrift, model.StatusActive, err.Error()), nil
		}
		log.Warn("availability fetch failed", "error", err)
		return finish(model.CheckOutcomeUpstreamTimeout, model.StatusActive, err.Error()), nil
	}

	match, err := matcher.Match(availability, req)
	if err != nil {
		if ferr := c.fail(ctx, req, log, err.Error()); ferr != nil {
			return nil, ferr
		}
		return finish(model.CheckOutcomePermanent, model.StatusError, err.Error()), nil
	}
	if !match.Found {
		log.Debug("no matching slots in window")
		return finish(model.CheckOutcomeNoMatch, model.StatusActive, ""), nil
	}
	record.Matched = true

	attempt, err := c.booker.Book(ctx, req, match)
	if err != nil {
		return nil, err
	}

	switch attempt.Outcome {
	case booking.OutcomeBooked:
		record.Booked = true
		set := bson.M{"success_details": attempt.Details}
		if err := c.store.Transition(ctx, requestID, model.StatusCompleted, set); err != nil {
			if errors.Is(err, database.ErrNotActive) {
				// The booking stands at the upstream but another invocation
				// moved the request first. With conditional transitions this
				// means a concurrent stop or expiry, not a double booking —
				// surface it loudly either way.
				log.Warn("booking succeeded but request was no longer active",
					"booking_id", attempt.Details.BookingID, "room_id", attempt.Details.RoomID)
				return finish(model.CheckOutcomeBooked, c.currentStatus(ctx, requestID), "booked after concurrent transition"), nil
			}
			return nil, err
		}
		req.Status = model.StatusCompleted
		req.SuccessDetails = attempt.Details
		c.notifyTerminal(ctx, req, model.CheckOutcomeBooked)
		return finish(model.CheckOutcomeBooked, model.StatusCompleted, ""), nil

	case booking.OutcomeSlotTaken:
		return finish(model.CheckOutcomeRaceLost, model.StatusActive, attempt.Reason), nil

	case booking.OutcomeTransient:
		return finish(model.CheckOutcomeTransient, model.StatusActive, attempt.Reason), nil

	default:
		if err := c.fail(ctx, req, log, attempt.Reason); err != nil {
			return nil, err
		}
		return finish(model.CheckOutcomePermanent, model.StatusError, attempt.Reason), nil
	}
}

// expire transitions a past-window request to expired. Losing the
// conditional update to a concurrent invocation is fine; the request ends
// terminal either way.
func (c *Checker) expire(ctx context.Context, req *model.MonitoringRequest, log *slog.Logger,
	finish func(string, model.Status, string) *model.CheckRecord) *model.CheckRecord {

	err := c.store.Transition(ctx, req.RequestID, model.StatusExpired, nil)
	switch {
	case err == nil:
		log.Info("monitoring request expired", "target_date", req.TargetDate)
		req.Status = model.StatusExpired
		c.notifyTerminal(ctx, req, model.CheckOutcomeExpired)
		return finish(model.CheckOutcomeExpired, model.StatusExpired, "")
	case errors.Is(err, database.ErrNotActive):
		return finish(model.CheckOutcomeNotActive, c.currentStatus(ctx, req.RequestID), "")
	default:
		log.Error("failed to expire request", "error", err)
		return finish(model.CheckOutcomeExpired, req.Status, err.Error())
	}
}

// currentStatus re-reads a request's status after losing a conditional
// update, for accurate audit records. Falls back to empty on read failure.
func (c *Checker) currentStatus(ctx context.Context, requestID string) model.Status {
	current, err := c.store.GetByID(ctx, requestID)
	if err != nil {
		return ""
	}
	return current.Status
}

// fail transitions a request to the error state with a diagnostic message
func (c *Checker) fail(ctx context.Context, req *model.MonitoringRequest, log *slog.Logger, message string) error {
	err := c.store.Transition(ctx, req.RequestID, model.StatusError, bson.M{"error_message": message})
	if errors.Is(err, database.ErrNotActive) {
		return nil
	}
	if err != nil {
		return err
	}
	log.Error("monitoring request failed permanently", "reason", message)
	req.Status = model.StatusError
	req.ErrorMessage = message
	c.notifyTerminal(ctx, req, model.CheckOutcomePermanent)
	return nil
}

func (c *Checker) notifyTerminal(ctx context.Context, req *model.MonitoringRequest, outcome string) {
	if c.notifier == nil {
		return
	}
	c.notifier.RequestTerminal(ctx, req, outcome)
}

// CheckAll runs one check invocation for every active request through the
// worker pool and reports per-request outcomes. Requests are independent;
// one request's failure never blocks the rest of the batch.
func (c *Checker) CheckAll(ctx context.Context, pool *worker.WorkerPool, correlationID string) ([]worker.Result, error) {
	c.batchMu.Lock()
	defer c.batchMu.Unlock()

	active, err := c.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, nil
	}

	c.logger.Info("checking active monitoring requests",
		"count", len(active), "correlation_id", correlationID)

	// Submission and draining must interleave: the jobs and results
	// channels are both bounded, so a batch larger than their combined
	// capacity wedges Submit if nothing reads results until submission
	// finishes.
	submitted := make(chan int, 1)
	go func() {
		n := 0
		for _, req := range active {
			job := worker.Job{
				RequestID:     req.RequestID,
				CorrelationID: correlationID,
				Context:       ctx,
			}
			if err := pool.Submit(job); err != nil {
				c.logger.Error("job submission failed",
					"request_id", req.RequestID,
					"correlation_id", correlationID,
					"error", err,
				)
				break
			}
			n++
		}
		submitted <- n
	}()

	results := make([]worker.Result, 0, len(active))
	pending := len(active)
	for len(results) < pending {
		select {
		case res := <-pool.GetResults():
			results = append(results, res)
		case n := <-submitted:
			pending = n
			submitted = nil
		case <-ctx.Done():
			return results, ctx.Err()
		}
	}
	return results, nil
}
