package libcal

import (
	"fmt"
	"strconv"

	"github.com/dimaa-b/baruch-studyrooms/internal/model"
)

// gridSlot is one entry of the upstream availability grid. A className field
// on a slot marks it as booked or otherwise unavailable.
type gridSlot struct {
	ItemID    int    `json:"itemId"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Checksum  string `json:"checksum"`
	ClassName string `json:"className"`
}

// gridResponse is the availability grid payload
type gridResponse struct {
	Slots []gridSlot `json:"slots"`
}

// pendingBooking is the provisional hold returned by the booking/add step.
// The upstream echoes an open-ended set of fields that must all be replayed
// on the follow-up calls, so the document is kept loosely typed and the
// fields the client itself needs are extracted defensively.
type pendingBooking map[string]any

func (pb pendingBooking) stringField(key string) (string, bool) {
	v, ok := pb[key]
	if !ok {
		return "", false
	}
	return formValue(v), true
}

// optionChecksum returns the checksum the upstream issued for extending the
// hold to the n-th following slot.
func (pb pendingBooking) optionChecksum(n int) (string, bool) {
	raw, ok := pb["optionChecksums"]
	if !ok {
		return "", false
	}
	list, ok := raw.([]any)
	if !ok || n >= len(list) {
		return "", false
	}
	s, ok := list[n].(string)
	return s, ok
}

// formValue renders a decoded JSON value the way the upstream's own form
// encoder would. Numbers arrive as float64 and must not pick up an exponent
// or trailing zeros.
func formValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// BookingRequest carries everything needed to claim a matched run of slots:
// the slots in order with their verbatim checksums, plus the contact fields
// the upstream's booking form requires.
type BookingRequest struct {
	RoomID    int
	Date      string
	Slots     []model.AvailabilitySlot
	FirstName string
	LastName  string
	Email     string
}

// OutcomeKind classifies the terminal result of a booking attempt
type OutcomeKind int

const (
	// OutcomeConfirmed means the upstream confirmed the booking outright
	OutcomeConfirmed OutcomeKind = iota
	// OutcomePendingEmail means the upstream holds the room and will confirm
	// via its own email round-trip
	OutcomePendingEmail
	// OutcomeRejected means the upstream refused the booking
	OutcomeRejected
)

// BookingOutcome is the result of the multi-step booking sequence. Network
// and format failures are returned as errors, not outcomes.
type BookingOutcome struct {
	Kind      OutcomeKind
	BookingID string
	Reason    string
	// SlotTaken is set on rejection when the upstream indicates the slot was
	// claimed by someone else — an expected race loss, not an error.
	SlotTaken bool
}
