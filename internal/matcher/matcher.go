// Package matcher decides, given one availability snapshot and one
// monitoring request, which slots (if any) satisfy the request. It is a
// pure function of its inputs: same snapshot, same request, same answer.
package matcher

import (
	"sort"
	"time"

	"github.com/dimaa-b/baruch-studyrooms/internal/model"
)

// MatchResult describes the outcome of a matching pass
type MatchResult struct {
	Found  bool
	RoomID int
	// Slots are the matched slots in chronological order, carrying the
	// checksums from the snapshot verbatim.
	Slots []model.AvailabilitySlot
}

// Match scans the availability snapshot for the first room, in ascending
// room-id order, holding a contiguous run of available slots that covers
// the requested duration inside the request's time window. Rooms outside
// the request's room preference are skipped entirely.
func Match(availability model.Availability, req *model.MonitoringRequest) (MatchResult, error) {
	windowStart, windowEnd, err := req.WindowTimes()
	if err != nil {
		return MatchResult{}, err
	}

	roomIDs := make([]int, 0, len(availability))
	for id := range availability {
		if req.RoomPreference != 0 && id != req.RoomPreference {
			continue
		}
		roomIDs = append(roomIDs, id)
	}
	sort.Ints(roomIDs)

	for _, id := range roomIDs {
		if run := findRun(availability[id], req.DurationHours, windowStart, windowEnd); run != nil {
			return MatchResult{Found: true, RoomID: id, Slots: run}, nil
		}
	}
	return MatchResult{}, nil
}

// findRun returns the earliest contiguous run of length available slots
// whose span lies within [windowStart, windowEnd], or nil.
func findRun(slots []model.AvailabilitySlot, length int, windowStart, windowEnd time.Time) []model.AvailabilitySlot {
	if length <= 0 || len(slots) < length {
		return nil
	}

	for i := 0; i+length <= len(slots); i++ {
		run := slots[i : i+length]
		if run[0].Start.Before(windowStart) {
			continue
		}
		if run[length-1].End.After(windowEnd) {
			// Slots are time-ordered, so every later run ends later too.
			return nil
		}
		if contiguous(run) {
			return run
		}
	}
	return nil
}

func contiguous(run []model.AvailabilitySlot) bool {
	for i, s := range run {
		if !s.IsAvailable {
			return false
		}
		if i > 0 && !run[i-1].End.Equal(s.Start) {
			return false
		}
	}
	return true
}
