package model

import "time"

// AvailabilitySlot is one bookable unit for one room on the upstream grid.
// Slots are ephemeral: fetched fresh per check and never persisted. The
// checksum is an opaque upstream token tied to this exact slot instance; it
// must be echoed back verbatim to book the slot and becomes invalid as soon
// as the slot changes upstream.
type AvailabilitySlot struct {
	RoomID      int       `json:"room_id"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Checksum    string    `json:"-"`
	IsAvailable bool      `json:"is_available"`
}

// Availability maps room IDs to their slot sequences for one calendar date,
// each sequence ordered by start time.
type Availability map[int][]AvailabilitySlot
