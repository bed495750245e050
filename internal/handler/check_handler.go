package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"github.com/dimaa-b/baruch-studyrooms/internal/database"
	"github.com/dimaa-b/baruch-studyrooms/internal/model"
	"github.com/dimaa-b/baruch-studyrooms/internal/service"
	"github.com/dimaa-b/baruch-studyrooms/internal/worker"
	"github.com/dimaa-b/baruch-studyrooms/pkg/middleware"
)

// CheckHandler exposes check invocations over HTTP, for external cron
// drivers and manual triggering.
type CheckHandler struct {
	checker   *service.Checker
	checkRepo *database.CheckRepository
	pool      *worker.WorkerPool
}

// NewCheckHandler creates a new check handler
func NewCheckHandler(checker *service.Checker, checkRepo *database.CheckRepository, pool *worker.WorkerPool) *CheckHandler {
	return &CheckHandler{checker: checker, checkRepo: checkRepo, pool: pool}
}

// CheckAllResponse summarizes one batch sweep
type CheckAllResponse struct {
	Checked int                 `json:"checked"`
	Booked  int                 `json:"booked"`
	Failed  int                 `json:"failed"`
	Records []model.CheckRecord `json:"records"`
}

// HistoryResponse represents the check history response
type HistoryResponse struct {
	Total   int64               `json:"total"`
	Page    int                 `json:"page"`
	Limit   int                 `json:"limit"`
	Records []model.CheckRecord `json:"records"`
}

// Check handles POST /api/v1/monitoring/:id/check
func (h *CheckHandler) Check(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	correlationID := middleware.GetCorrelationID(r.Context())
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	record, err := h.checker.Check(r.Context(), ps.ByName("id"), correlationID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// CheckAll handles POST /api/v1/monitoring/check-all
func (h *CheckHandler) CheckAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	correlationID := middleware.GetCorrelationID(r.Context())
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	results, err := h.checker.CheckAll(r.Context(), h.pool, correlationID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response := CheckAllResponse{Records: make([]model.CheckRecord, 0, len(results))}
	for _, res := range results {
		response.Checked++
		if res.Error != nil {
			response.Failed++
			continue
		}
		if res.Record != nil {
			if res.Record.Booked {
				response.Booked++
			}
			response.Records = append(response.Records, *res.Record)
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// History handles GET /api/v1/monitoring/:id/checks
func (h *CheckHandler) History(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	page := parseQueryInt(r, "page", 1)
	limit := parseQueryInt(r, "limit", 20)
	if limit > 100 {
		limit = 100
	}
	if page < 1 {
		page = 1
	}

	records, total, err := h.checkRepo.ListByRequest(r.Context(), ps.ByName("id"), page, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Records: records,
	})
}
