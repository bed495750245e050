package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// WebhookDispatcher delivers terminal-state events to a configured webhook
// with exponential-backoff retries behind a circuit breaker.
type WebhookDispatcher struct {
	url            string
	httpClient     *http.Client
	retry          *RetryStrategy
	circuitBreaker *CircuitBreaker
}

// NewWebhookDispatcher creates a new webhook dispatcher
func NewWebhookDispatcher(url string, timeout time.Duration, retry RetryConfig) *WebhookDispatcher {
	return &WebhookDispatcher{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry:          NewRetryStrategy(retry),
		circuitBreaker: NewCircuitBreaker(),
	}
}

// Send delivers one event with retry logic
func (d *WebhookDispatcher) Send(ctx context.Context, event Event) error {
	if !d.circuitBreaker.CanAttempt() {
		slog.Warn("Circuit breaker is open, skipping webhook delivery",
			"request_id", event.RequestID,
			"circuit_state", d.circuitBreaker.GetStateName(),
		)
		return fmt.Errorf("circuit breaker is open")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	for attempt := 1; attempt <= d.retry.GetMaxAttempts(); attempt++ {
		statusCode, err := d.deliver(ctx, payload)

		if err == nil && statusCode >= 200 && statusCode < 300 {
			slog.Info("Webhook delivered",
				"request_id", event.RequestID,
				"event_type", event.Type,
				"attempt", attempt,
				"status_code", statusCode,
			)
			d.circuitBreaker.RecordSuccess()
			return nil
		}

		if !d.retry.ShouldRetry(attempt, statusCode, err) {
			slog.Error("Webhook delivery failed, no retry",
				"request_id", event.RequestID,
				"attempt", attempt,
				"status_code", statusCode,
				"error", err,
			)
			d.circuitBreaker.RecordFailure()
			return fmt.Errorf("webhook delivery failed after %d attempts", attempt)
		}

		if attempt < d.retry.GetMaxAttempts() {
			delay := d.retry.CalculateDelay(attempt)
			slog.Warn("Webhook delivery failed, retrying",
				"request_id", event.RequestID,
				"attempt", attempt,
				"next_retry_ms", delay.Milliseconds(),
				"error", err,
			)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	d.circuitBreaker.RecordFailure()
	return fmt.Errorf("webhook delivery failed after %d attempts", d.retry.GetMaxAttempts())
}

// deliver performs a single delivery attempt
func (d *WebhookDispatcher) deliver(ctx context.Context, payload []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewBuffer(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Drain a bounded amount so the connection can be reused
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// CircuitBreakerState returns the current circuit breaker state
func (d *WebhookDispatcher) CircuitBreakerState() string {
	return d.circuitBreaker.GetStateName()
}
