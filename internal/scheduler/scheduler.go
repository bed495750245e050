// Package scheduler drives periodic check sweeps over all active
// monitoring requests. It is one possible driver of the check runner, not
// its owner: every sweep goes through the same boundary the HTTP API and
// the external cron binary use, so deployments can disable it and bring
// their own scheduling.
package scheduler

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/dimaa-b/baruch-studyrooms/internal/config"
	"github.com/dimaa-b/baruch-studyrooms/internal/service"
	"github.com/dimaa-b/baruch-studyrooms/internal/worker"
)

// Scheduler runs check sweeps on a cron schedule
type Scheduler struct {
	cfg      *config.Config
	checker  *service.Checker
	pool     *worker.WorkerPool
	schedule cron.Schedule
	podID    string
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a new scheduler instance. The cron spec is parsed
// eagerly so a bad configuration fails at startup, not at first tick.
func NewScheduler(cfg *config.Config, checker *service.Checker, pool *worker.WorkerPool) (*Scheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cfg.SchedulerCronSpec)
	if err != nil {
		return nil, err
	}

	podID, err := os.Hostname()
	if err != nil {
		podID = uuid.New().String()
		slog.Warn("Failed to get hostname, using UUID as pod ID", "pod_id", podID)
	}

	return &Scheduler{
		cfg:      cfg,
		checker:  checker,
		pool:     pool,
		schedule: schedule,
		podID:    podID,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins the scheduler loop
func (s *Scheduler) Start(ctx context.Context) {
	if !s.cfg.SchedulerEnabled {
		slog.Info("Scheduler is disabled by configuration")
		return
	}

	slog.Info("Starting scheduler",
		"pod_id", s.podID,
		"cron_spec", s.cfg.SchedulerCronSpec,
	)

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop(ctx context.Context) {
	if !s.cfg.SchedulerEnabled {
		return
	}

	slog.Info("Stopping scheduler", "pod_id", s.podID)

	close(s.stopChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("All scheduled sweeps completed")
	case <-ctx.Done():
		slog.Warn("Timeout waiting for scheduled sweeps to complete")
	}

	slog.Info("Scheduler stopped", "pod_id", s.podID)
}

// run is the main scheduler loop
func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	// Sweep immediately on start so a fresh deployment does not wait a full
	// schedule interval before looking at open requests.
	s.sweep(ctx)

	for {
		now := time.Now()
		next := s.schedule.Next(now)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-timer.C:
			s.sweep(ctx)
		case <-s.stopChan:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			slog.Info("Scheduler context done", "pod_id", s.podID)
			return
		}
	}
}

// sweep runs one check pass over all active requests
func (s *Scheduler) sweep(ctx context.Context) {
	correlationID := uuid.New().String()
	start := time.Now()

	slog.Info("Scheduler sweep starting",
		"pod_id", s.podID,
		"correlation_id", correlationID,
	)

	results, err := s.checker.CheckAll(ctx, s.pool, correlationID)
	if err != nil {
		slog.Error("Scheduler sweep failed",
			"pod_id", s.podID,
			"correlation_id", correlationID,
			"error", err,
		)
		return
	}

	var booked, failed int
	for _, res := range results {
		if res.Error != nil {
			failed++
			continue
		}
		if res.Record != nil && res.Record.Booked {
			booked++
		}
	}

	slog.Info("Scheduler sweep completed",
		"pod_id", s.podID,
		"correlation_id", correlationID,
		"checked", len(results),
		"booked", booked,
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
