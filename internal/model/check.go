package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CheckRecord is the audit trail entry for one check invocation of one
// monitoring request.
type CheckRecord struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RequestID     string             `json:"request_id" bson:"request_id"`
	CorrelationID string             `json:"correlation_id" bson:"correlation_id"`
	CheckedAt     time.Time          `json:"checked_at" bson:"checked_at"`
	DurationMs    int64              `json:"duration_ms" bson:"duration_ms"`
	Matched       bool               `json:"matched" bson:"matched"`
	Booked        bool               `json:"booked" bson:"booked"`
	Outcome       string             `json:"outcome" bson:"outcome"`
	StatusAfter   Status             `json:"status_after" bson:"status_after"`
	Message       string             `json:"message,omitempty" bson:"message,omitempty"`
}

// Check outcome labels recorded in the audit trail
const (
	CheckOutcomeNoMatch         = "no_match"
	CheckOutcomeBooked          = "booked"
	CheckOutcomeRaceLost        = "race_lost"
	CheckOutcomeTransient       = "transient_failure"
	CheckOutcomePermanent       = "permanent_failure"
	CheckOutcomeExpired         = "expired"
	CheckOutcomeNotActive       = "not_active"
	CheckOutcomeUpstreamDrift   = "upstream_format_drift"
	CheckOutcomeUpstreamTimeout = "upstream_unreachable"
)
