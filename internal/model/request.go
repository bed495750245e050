package model

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status represents the lifecycle state of a monitoring request
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusStopped   Status = "stopped"
	StatusExpired   Status = "expired"
	StatusError     Status = "error"
)

// Terminal reports whether the status is a terminal state. Terminal requests
// are never transitioned again; concurrent checks must treat them as no-ops.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusStopped, StatusExpired, StatusError:
		return true
	}
	return false
}

// Valid reports whether the status is one of the known lifecycle states
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusStopped, StatusExpired, StatusError:
		return true
	}
	return false
}

// DateFormat is the calendar-date layout used throughout the engine and by
// the upstream platform.
const DateFormat = "2006-01-02"

// ClockFormat is the wall-clock layout for window bounds (24h, minute
// precision), matching the upstream's slot grid granularity.
const ClockFormat = "15:04"

// BookedSlot is one slot captured in the success details of a completed
// request. Times are upstream-local timestamps.
type BookedSlot struct {
	Start time.Time `json:"start" bson:"start"`
	End   time.Time `json:"end" bson:"end"`
}

// SuccessDetails records the outcome of a successful booking. Populated only
// when the request status is "completed".
type SuccessDetails struct {
	BookingID string       `json:"booking_id" bson:"booking_id"`
	RoomID    int          `json:"room_id" bson:"room_id"`
	Slots     []BookedSlot `json:"slots" bson:"slots"`
	BookedAt  time.Time    `json:"booked_at" bson:"booked_at"`
}

// MonitoringRequest is the persisted watch-and-auto-book intent of one user.
// It is created as "active" and mutated exclusively through conditional
// status transitions; terminal requests are kept for audit.
type MonitoringRequest struct {
	ID             primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	RequestID      string             `json:"request_id" bson:"request_id"`
	OwnerID        string             `json:"owner_id,omitempty" bson:"owner_id,omitempty"`
	Email          string             `json:"email" bson:"email"`
	FirstName      string             `json:"first_name" bson:"first_name"`
	LastName       string             `json:"last_name" bson:"last_name"`
	TargetDate     string             `json:"target_date" bson:"target_date"`
	WindowStart    string             `json:"window_start" bson:"window_start"`
	WindowEnd      string             `json:"window_end" bson:"window_end"`
	DurationHours  int                `json:"duration_hours" bson:"duration_hours"`
	RoomPreference int                `json:"room_preference,omitempty" bson:"room_preference,omitempty"`
	Status         Status             `json:"status" bson:"status"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	ExpiresAt      time.Time          `json:"expires_at" bson:"expires_at"`
	LastCheckedAt  time.Time          `json:"last_checked_at,omitempty" bson:"last_checked_at,omitempty"`
	CheckCount     int                `json:"check_count" bson:"check_count"`
	SuccessDetails *SuccessDetails    `json:"success_details,omitempty" bson:"success_details,omitempty"`
	ErrorMessage   string             `json:"error_message,omitempty" bson:"error_message,omitempty"`
}

// NewRequestID builds a unique request identifier. The creation timestamp
// component keeps IDs unique under concurrent creation for the same window.
func NewRequestID(targetDate, windowStart, windowEnd string, now time.Time) string {
	return fmt.Sprintf("%s_%s-%s_%d", targetDate, windowStart, windowEnd, now.UnixNano())
}

// WindowTimes resolves the request's window bounds to concrete timestamps on
// the target date, in the upstream's local time.
func (r *MonitoringRequest) WindowTimes() (start, end time.Time, err error) {
	start, err = time.ParseInLocation(DateFormat+" "+ClockFormat, r.TargetDate+" "+r.WindowStart, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window start: %w", err)
	}
	end, err = time.ParseInLocation(DateFormat+" "+ClockFormat, r.TargetDate+" "+r.WindowEnd, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window end: %w", err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, errors.New("window end must be after window start")
	}
	return start, end, nil
}

// ExpiryFor derives the expiration instant for a target date: the end of
// that calendar day, after which the request is no longer actionable.
func ExpiryFor(targetDate string) (time.Time, error) {
	day, err := time.ParseInLocation(DateFormat, targetDate, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid target date: %w", err)
	}
	return day.AddDate(0, 0, 1), nil
}

// Expired reports whether the request's window has passed
func (r *MonitoringRequest) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Sanitized returns a copy stripped of contact fields, for listings exposed
// without an owner scope.
func (r *MonitoringRequest) Sanitized() MonitoringRequest {
	out := *r
	out.OwnerID = ""
	out.Email = ""
	out.FirstName = ""
	out.LastName = ""
	out.SuccessDetails = nil
	out.ErrorMessage = ""
	return out
}
