package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dimaa-b/baruch-studyrooms/internal/model"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialDelayMs: 1, MaxDelayMs: 5, Multiplier: 2.0}
}

func completedEvent() Event {
	return NewEvent(&model.MonitoringRequest{
		RequestID:  "2026-09-04_10:00-12:00_1",
		Status:     model.StatusCompleted,
		TargetDate: "2026-09-04",
		SuccessDetails: &model.SuccessDetails{
			BookingID: "abc",
			RoomID:    111,
		},
	}, model.CheckOutcomeBooked)
}

func TestSend_DeliversEventPayload(t *testing.T) {
	var received Event
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("expected json content type, got %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewWebhookDispatcher(server.URL, 5*time.Second, fastRetry())
	if err := d.Send(context.Background(), completedEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if received.Type != EventCompleted {
		t.Errorf("expected %s event, got %q", EventCompleted, received.Type)
	}
	if received.Success == nil || received.Success.BookingID != "abc" {
		t.Errorf("success details missing from payload: %+v", received.Success)
	}
}

func TestSend_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewWebhookDispatcher(server.URL, 5*time.Second, fastRetry())
	if err := d.Send(context.Background(), completedEvent()); err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestSend_NoRetryOnClientError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	d := NewWebhookDispatcher(server.URL, 5*time.Second, fastRetry())
	if err := d.Send(context.Background(), completedEvent()); err == nil {
		t.Fatal("expected delivery failure")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("client errors must not be retried, got %d attempts", got)
	}
}

func TestRetryStrategy_Backoff(t *testing.T) {
	rs := NewRetryStrategy(RetryConfig{MaxAttempts: 5, InitialDelayMs: 100, MaxDelayMs: 350, Multiplier: 2.0})

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 350 * time.Millisecond}, // capped
		{4, 350 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := rs.CalculateDelay(tc.attempt); got != tc.want {
			t.Errorf("attempt %d: expected %v, got %v", tc.attempt, tc.want, got)
		}
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker()

	for i := 0; i < 5; i++ {
		if !cb.CanAttempt() {
			t.Fatalf("breaker opened early at failure %d", i)
		}
		cb.RecordFailure()
	}

	if cb.CanAttempt() {
		t.Error("breaker must be open after the failure threshold")
	}
	if cb.GetStateName() != "open" {
		t.Errorf("expected open state, got %q", cb.GetStateName())
	}

	cb.Reset()
	if !cb.CanAttempt() {
		t.Error("reset breaker must allow attempts")
	}
}
