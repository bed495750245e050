package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/dimaa-b/baruch-studyrooms/internal/booking"
	"github.com/dimaa-b/baruch-studyrooms/internal/model"
	"github.com/dimaa-b/baruch-studyrooms/internal/service"
)

// BookingHandler exposes one-shot bookings that skip the monitoring
// lifecycle: book a known slot directly, or sweep a window once.
type BookingHandler struct {
	service *service.BookingService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(service *service.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// BookResponse represents the direct booking response
type BookResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Details *model.SuccessDetails `json:"details,omitempty"`
}

// BookOnceResponse represents the book-once response
type BookOnceResponse struct {
	Success   bool                  `json:"success"`
	Available bool                  `json:"available"`
	Message   string                `json:"message"`
	Details   *model.SuccessDetails `json:"details,omitempty"`
}

// Book handles POST /api/v1/book
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input service.DirectBookInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	attempt, err := h.service.Book(r.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	switch attempt.Outcome {
	case booking.OutcomeBooked:
		writeJSON(w, http.StatusOK, BookResponse{
			Success: true,
			Message: "Booking is pending, check your email",
			Details: attempt.Details,
		})
	case booking.OutcomeSlotTaken:
		writeError(w, http.StatusConflict, "Slot is no longer available")
	default:
		writeError(w, http.StatusBadGateway, attempt.Reason)
	}
}

// BookOnce handles POST /api/v1/book/once
func (h *BookingHandler) BookOnce(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input service.BookOnceInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.service.BookOnce(r.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if !result.Available {
		writeJSON(w, http.StatusOK, BookOnceResponse{
			Success:   false,
			Available: false,
			Message:   "No bookable slots in the requested window",
		})
		return
	}

	switch result.Attempt.Outcome {
	case booking.OutcomeBooked:
		writeJSON(w, http.StatusOK, BookOnceResponse{
			Success:   true,
			Available: true,
			Message:   "Booking is pending, check your email",
			Details:   result.Attempt.Details,
		})
	case booking.OutcomeSlotTaken:
		writeError(w, http.StatusConflict, "Slot was claimed before the booking completed")
	default:
		writeError(w, http.StatusBadGateway, result.Attempt.Reason)
	}
}
