// Command checker drives check sweeps from outside the server process,
// for deployments that disable the in-process scheduler and run checks
// from cron or a one-shot job.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/dimaa-b/baruch-studyrooms/internal/config"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "base URL of the monitoring service")
	interval := flag.Duration("interval", 0, "sweep interval; 0 runs a single sweep and exits")
	timeout := flag.Duration("timeout", 2*time.Minute, "per-sweep HTTP timeout")
	perRequest := flag.Bool("per-request", false, "list active requests and check them one by one instead of posting check-all")
	flag.Parse()

	cfg := config.Load()
	config.InitLogger(cfg)

	client := &http.Client{Timeout: *timeout}
	base := strings.TrimRight(*serverURL, "/")

	sweep := sweepAll
	if *perRequest {
		sweep = sweepPerRequest
	}

	if *interval <= 0 {
		if err := sweep(context.Background(), client, base); err != nil {
			slog.Error("Sweep failed", "error", err)
			os.Exit(1)
		}
		return
	}

	slog.Info("Starting periodic sweeps", "server", base, "interval", *interval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	if err := sweep(ctx, client, base); err != nil {
		slog.Error("Sweep failed", "error", err)
	}

	for {
		select {
		case <-ticker.C:
			if err := sweep(ctx, client, base); err != nil {
				slog.Error("Sweep failed", "error", err)
			}
		case <-ctx.Done():
			slog.Info("Shutting down")
			return
		}
	}
}

type sweepSummary struct {
	Checked int `json:"checked"`
	Booked  int `json:"booked"`
	Failed  int `json:"failed"`
}

// sweepAll triggers one check-all pass on the server
func sweepAll(ctx context.Context, client *http.Client, base string) error {
	correlationID := uuid.New().String()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/v1/monitoring/check-all", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Correlation-ID", correlationID)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("check-all request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("check-all returned status %d: %s", resp.StatusCode, body)
	}

	var summary sweepSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return fmt.Errorf("decode check-all response: %w", err)
	}

	slog.Info("Sweep completed",
		"correlation_id", correlationID,
		"checked", summary.Checked,
		"booked", summary.Booked,
		"failed", summary.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

type activeList struct {
	Requests []struct {
		RequestID string `json:"request_id"`
	} `json:"requests"`
}

type checkRecord struct {
	Outcome string `json:"outcome"`
}

// sweepPerRequest lists active requests and checks each through the
// per-request endpoint. Slower than check-all but keeps the server's
// worker pool out of the picture, which is handy when a single stuck
// request needs isolating.
func sweepPerRequest(ctx context.Context, client *http.Client, base string) error {
	correlationID := uuid.New().String()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/v1/monitoring/active", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Correlation-ID", correlationID)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("list active requests failed: %w", err)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("list active returned status %d: %s", resp.StatusCode, body)
	}

	var active activeList
	if err := json.Unmarshal(body, &active); err != nil {
		return fmt.Errorf("decode active list: %w", err)
	}

	var booked, failed int
	for _, r := range active.Requests {
		outcome, err := checkOne(ctx, client, base, r.RequestID, correlationID)
		switch {
		case err != nil:
			failed++
			slog.Error("Check failed", "request_id", r.RequestID, "error", err)
		case outcome == "booked":
			booked++
		case outcome == "permanent_failure":
			failed++
		}
	}

	slog.Info("Sweep completed",
		"correlation_id", correlationID,
		"checked", len(active.Requests),
		"booked", booked,
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func checkOne(ctx context.Context, client *http.Client, base, requestID, correlationID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		base+"/api/v1/monitoring/"+requestID+"/check", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Correlation-ID", correlationID)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("check request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("check returned status %d: %s", resp.StatusCode, body)
	}

	var record checkRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return "", fmt.Errorf("decode check record: %w", err)
	}
	return record.Outcome, nil
}
