package notify

import (
	"time"

	"github.com/dimaa-b/baruch-studyrooms/internal/model"
)

// Event types published when a monitoring request reaches a terminal state
const (
	EventCompleted = "monitoring.completed"
	EventExpired   = "monitoring.expired"
	EventFailed    = "monitoring.failed"
	EventStopped   = "monitoring.stopped"
)

// Event is the terminal-state notification payload, delivered both to the
// configured webhook and to the event topic. Contact fields stay out of it.
type Event struct {
	Type          string                `json:"type"`
	RequestID     string                `json:"request_id"`
	Status        model.Status          `json:"status"`
	Outcome       string                `json:"outcome"`
	TargetDate    string                `json:"target_date"`
	WindowStart   string                `json:"window_start"`
	WindowEnd     string                `json:"window_end"`
	DurationHours int                   `json:"duration_hours"`
	Success       *model.SuccessDetails `json:"success,omitempty"`
	ErrorMessage  string                `json:"error_message,omitempty"`
	Timestamp     time.Time             `json:"timestamp"`
}

// NewEvent builds the notification payload for a terminal request
func NewEvent(req *model.MonitoringRequest, outcome string) Event {
	e := Event{
		RequestID:     req.RequestID,
		Status:        req.Status,
		Outcome:       outcome,
		TargetDate:    req.TargetDate,
		WindowStart:   req.WindowStart,
		WindowEnd:     req.WindowEnd,
		DurationHours: req.DurationHours,
		ErrorMessage:  req.ErrorMessage,
		Timestamp:     time.Now().UTC(),
	}

	switch req.Status {
	case model.StatusCompleted:
		e.Type = EventCompleted
		e.Success = req.SuccessDetails
	case model.StatusExpired:
		e.Type = EventExpired
	case model.StatusStopped:
		e.Type = EventStopped
	default:
		e.Type = EventFailed
	}
	return e
}
