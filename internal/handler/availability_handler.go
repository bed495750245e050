package handler

import (
	"net/http"
	"sort"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/dimaa-b/baruch-studyrooms/internal/libcal"
	"github.com/dimaa-b/baruch-studyrooms/internal/model"
	"github.com/dimaa-b/baruch-studyrooms/internal/service"
)

// AvailabilityHandler exposes raw availability snapshots, mostly for
// clients that want to show the grid before creating a monitoring request.
type AvailabilityHandler struct {
	upstream service.AvailabilityFetcher
}

// NewAvailabilityHandler creates a new availability handler
func NewAvailabilityHandler(upstream service.AvailabilityFetcher) *AvailabilityHandler {
	return &AvailabilityHandler{upstream: upstream}
}

// RoomAvailability is one room's slots in an availability response
type RoomAvailability struct {
	RoomID int                      `json:"room_id"`
	Slots  []model.AvailabilitySlot `json:"slots"`
}

// AvailabilityResponse represents the availability response
type AvailabilityResponse struct {
	Date  string             `json:"date"`
	Rooms []RoomAvailability `json:"rooms"`
}

// Get handles GET /api/v1/availability?date=YYYY-MM-DD
func (h *AvailabilityHandler) Get(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format(model.DateFormat)
	}
	if _, err := time.Parse(model.DateFormat, date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be formatted as YYYY-MM-DD")
		return
	}

	availability, err := h.upstream.FetchAvailability(r.Context(), date)
	if err != nil {
		if libcal.IsFormatError(err) {
			writeError(w, http.StatusBadGateway, "upstream response format changed: "+err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "upstream unavailable: "+err.Error())
		return
	}

	response := AvailabilityResponse{Date: date, Rooms: make([]RoomAvailability, 0, len(availability))}
	for roomID, slots := range availability {
		response.Rooms = append(response.Rooms, RoomAvailability{RoomID: roomID, Slots: slots})
	}
	sort.Slice(response.Rooms, func(i, j int) bool {
		return response.Rooms[i].RoomID < response.Rooms[j].RoomID
	})

	writeJSON(w, http.StatusOK, response)
}
