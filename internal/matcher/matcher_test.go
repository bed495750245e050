package matcher

import (
	"testing"
	"time"

	"github.com/dimaa-b/baruch-studyrooms/internal/model"
)

func slotAt(roomID, hour int, available bool) model.AvailabilitySlot {
	start := time.Date(2026, 9, 4, hour, 0, 0, 0, time.Local)
	return model.AvailabilitySlot{
		RoomID:      roomID,
		Start:       start,
		End:         start.Add(time.Hour),
		Checksum:    "cs",
		IsAvailable: available,
	}
}

func testRequest(durationHours int, windowStart, windowEnd string) *model.MonitoringRequest {
	return &model.MonitoringRequest{
		RequestID:     "2026-09-04_" + windowStart + "-" + windowEnd + "_1",
		TargetDate:    "2026-09-04",
		WindowStart:   windowStart,
		WindowEnd:     windowEnd,
		DurationHours: durationHours,
		Status:        model.StatusActive,
	}
}

func TestMatch_PicksLowestRoomID(t *testing.T) {
	availability := model.Availability{
		200: {slotAt(200, 10, true), slotAt(200, 11, true)},
		100: {slotAt(100, 10, true), slotAt(100, 11, true)},
	}

	result, err := Match(availability, testRequest(2, "09:00", "13:00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Found {
		t.Fatal("expected a match")
	}
	if result.RoomID != 100 {
		t.Errorf("expected room 100, got %d", result.RoomID)
	}
	if len(result.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(result.Slots))
	}
	if result.Slots[0].Checksum != "cs" {
		t.Error("checksum was not carried through from the snapshot")
	}
}

func TestMatch_Deterministic(t *testing.T) {
	availability := model.Availability{
		300: {slotAt(300, 10, true)},
		100: {slotAt(100, 10, true)},
		200: {slotAt(200, 10, true)},
	}
	req := testRequest(1, "10:00", "12:00")

	for i := 0; i < 10; i++ {
		result, err := Match(availability, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.RoomID != 100 {
			t.Fatalf("iteration %d: expected room 100, got %d", i, result.RoomID)
		}
	}
}

func TestMatch_RequiresContiguousRun(t *testing.T) {
	// Room 100 has 10:00 and 12:00 free with 11:00 taken; room 200 has a
	// clean two hour run later in the window.
	availability := model.Availability{
		100: {slotAt(100, 10, true), slotAt(100, 11, false), slotAt(100, 12, true)},
		200: {slotAt(200, 11, true), slotAt(200, 12, true)},
	}

	result, err := Match(availability, testRequest(2, "10:00", "14:00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Found {
		t.Fatal("expected a match")
	}
	if result.RoomID != 200 {
		t.Errorf("expected room 200, got %d", result.RoomID)
	}
	if !result.Slots[1].End.Equal(time.Date(2026, 9, 4, 13, 0, 0, 0, time.Local)) {
		t.Errorf("unexpected run end: %v", result.Slots[1].End)
	}
}

func TestMatch_RespectsWindowBounds(t *testing.T) {
	availability := model.Availability{
		100: {slotAt(100, 8, true), slotAt(100, 9, true), slotAt(100, 14, true)},
	}

	// Both free runs fall outside [10:00, 13:00).
	result, err := Match(availability, testRequest(1, "10:00", "13:00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Found {
		t.Errorf("expected no match, got room %d", result.RoomID)
	}
}

func TestMatch_WindowEndIsExclusiveBound(t *testing.T) {
	availability := model.Availability{
		100: {slotAt(100, 11, true)},
	}

	// A slot ending exactly at the window end fits.
	result, err := Match(availability, testRequest(1, "11:00", "12:00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Found {
		t.Fatal("slot ending at window end should match")
	}

	// One that runs past it does not.
	result, err = Match(availability, testRequest(1, "11:00", "11:30"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Found {
		t.Fatal("slot running past window end should not match")
	}
}

func TestMatch_RoomPreference(t *testing.T) {
	availability := model.Availability{
		100: {slotAt(100, 10, true)},
		200: {slotAt(200, 10, true)},
	}

	req := testRequest(1, "09:00", "12:00")
	req.RoomPreference = 200

	result, err := Match(availability, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Found || result.RoomID != 200 {
		t.Errorf("expected preferred room 200, got found=%v room=%d", result.Found, result.RoomID)
	}

	req.RoomPreference = 300
	result, err = Match(availability, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Found {
		t.Error("expected no match when preferred room has no availability")
	}
}

func TestMatch_SkipsUnavailableSlots(t *testing.T) {
	availability := model.Availability{
		100: {slotAt(100, 10, false), slotAt(100, 11, false)},
	}

	result, err := Match(availability, testRequest(1, "09:00", "13:00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Found {
		t.Error("expected no match when every slot is unavailable")
	}
}

func TestMatch_EmptyAvailability(t *testing.T) {
	result, err := Match(model.Availability{}, testRequest(1, "09:00", "13:00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Found {
		t.Error("expected no match on empty snapshot")
	}
}
