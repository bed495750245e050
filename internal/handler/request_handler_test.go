package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/dimaa-b/baruch-studyrooms/internal/database"
	"github.com/dimaa-b/baruch-studyrooms/internal/model"
	"github.com/dimaa-b/baruch-studyrooms/internal/service"
)

type stubStorage struct {
	created *model.MonitoringRequest
	byID    map[string]*model.MonitoringRequest
	stopErr error
}

func (s *stubStorage) Create(_ context.Context, req *model.MonitoringRequest) error {
	s.created = req
	return nil
}

func (s *stubStorage) GetByID(_ context.Context, requestID string) (*model.MonitoringRequest, error) {
	if r, ok := s.byID[requestID]; ok {
		return r, nil
	}
	return nil, database.ErrNotFound
}

func (s *stubStorage) List(_ context.Context, _ string, _ model.Status) ([]model.MonitoringRequest, error) {
	var out []model.MonitoringRequest
	for _, r := range s.byID {
		out = append(out, *r)
	}
	return out, nil
}

func (s *stubStorage) ListActive(_ context.Context) ([]model.MonitoringRequest, error) {
	return nil, nil
}

func (s *stubStorage) Stop(_ context.Context, _ string) error {
	return s.stopErr
}

func newTestHandler(storage *stubStorage) *RequestHandler {
	return NewRequestHandler(service.NewRequestService(storage, slog.Default()))
}

func TestCreate_ValidRequest(t *testing.T) {
	storage := &stubStorage{}
	h := newTestHandler(storage)

	targetDate := time.Now().AddDate(0, 0, 3).Format(model.DateFormat)
	body := `{
		"email": "ada@example.edu",
		"first_name": "Ada",
		"last_name": "Lovelace",
		"target_date": "` + targetDate + `",
		"window_start": "10:00",
		"window_end": "14:00",
		"duration_hours": 2
	}`

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/monitoring", strings.NewReader(body))
	h.Create(w, r, nil)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if storage.created == nil {
		t.Fatal("request was not persisted")
	}

	var resp CreateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Request.Status != model.StatusActive {
		t.Errorf("expected active status in response, got %q", resp.Request.Status)
	}
}

func TestCreate_ValidationFailure(t *testing.T) {
	h := newTestHandler(&stubStorage{})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/monitoring",
		strings.NewReader(`{"email":"nope","first_name":"Ada"}`))
	h.Create(w, r, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreate_MalformedBody(t *testing.T) {
	h := newTestHandler(&stubStorage{})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/monitoring", strings.NewReader(`{broken`))
	h.Create(w, r, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGet_NotFound(t *testing.T) {
	h := newTestHandler(&stubStorage{byID: map[string]*model.MonitoringRequest{}})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/monitoring/missing", nil)
	h.Get(w, r, httprouter.Params{{Key: "id", Value: "missing"}})

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGet_Found(t *testing.T) {
	req := &model.MonitoringRequest{RequestID: "2026-09-04_10:00-12:00_1", Status: model.StatusActive}
	h := newTestHandler(&stubStorage{byID: map[string]*model.MonitoringRequest{req.RequestID: req}})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/monitoring/"+req.RequestID, nil)
	h.Get(w, r, httprouter.Params{{Key: "id", Value: req.RequestID}})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var got model.MonitoringRequest
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.RequestID != req.RequestID {
		t.Errorf("unexpected request id %q", got.RequestID)
	}
}

func TestStop_AlreadyTerminal(t *testing.T) {
	req := &model.MonitoringRequest{RequestID: "2026-09-04_10:00-12:00_1", Status: model.StatusCompleted}
	h := newTestHandler(&stubStorage{
		byID:    map[string]*model.MonitoringRequest{req.RequestID: req},
		stopErr: database.ErrNotActive,
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/monitoring/"+req.RequestID+"/stop", nil)
	h.Stop(w, r, httprouter.Params{{Key: "id", Value: req.RequestID}})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp StopResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.AlreadyTerminal {
		t.Error("expected already_terminal to be set")
	}
	if resp.Request.Status != model.StatusCompleted {
		t.Errorf("terminal status must be reported unchanged, got %q", resp.Request.Status)
	}
}
