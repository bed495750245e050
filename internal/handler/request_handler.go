package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/dimaa-b/baruch-studyrooms/internal/database"
	"github.com/dimaa-b/baruch-studyrooms/internal/model"
	"github.com/dimaa-b/baruch-studyrooms/internal/service"
)

// RequestHandler handles monitoring request lifecycle endpoints
type RequestHandler struct {
	service *service.RequestService
}

// NewRequestHandler creates a new request handler
func NewRequestHandler(service *service.RequestService) *RequestHandler {
	return &RequestHandler{service: service}
}

// CreateResponse represents the create response
type CreateResponse struct {
	Request *model.MonitoringRequest `json:"request"`
	Message string                   `json:"message"`
}

// ListResponse represents the list response
type ListResponse struct {
	Total    int                       `json:"total"`
	Requests []model.MonitoringRequest `json:"requests"`
}

// StopResponse represents the stop response
type StopResponse struct {
	Request         *model.MonitoringRequest `json:"request"`
	AlreadyTerminal bool                     `json:"already_terminal"`
	Message         string                   `json:"message"`
}

// Create handles POST /api/v1/monitoring
func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input service.CreateRequestInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req, err := h.service.Create(r.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, CreateResponse{
		Request: req,
		Message: "Monitoring request created successfully",
	})
}

// Get handles GET /api/v1/monitoring/:id
func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	req, err := h.service.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, req)
}

// List handles GET /api/v1/monitoring
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ownerID := r.URL.Query().Get("owner_id")
	status := model.Status(r.URL.Query().Get("status"))

	requests, err := h.service.List(r.Context(), ownerID, status)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ListResponse{
		Total:    len(requests),
		Requests: requests,
	})
}

// ListActive handles GET /api/v1/monitoring/active
func (h *RequestHandler) ListActive(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requests, err := h.service.ListActive(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ListResponse{
		Total:    len(requests),
		Requests: requests,
	})
}

// Stop handles POST /api/v1/monitoring/:id/stop
func (h *RequestHandler) Stop(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	result, err := h.service.Stop(r.Context(), ps.ByName("id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	message := "Monitoring request stopped"
	if result.AlreadyTerminal {
		message = "Monitoring request already reached a terminal state"
	}

	writeJSON(w, http.StatusOK, StopResponse{
		Request:         result.Request,
		AlreadyTerminal: result.AlreadyTerminal,
		Message:         message,
	})
}
