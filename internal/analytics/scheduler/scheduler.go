// Package scheduler triggers the periodic analytics passes. Each entry fires
// at a fixed local time, enumerates the active tenants, and enqueues one job
// per tenant; the worker's queue consumer does the actual work, so a crashed
// pass is retried by the queue rather than the scheduler.
//
// Department aggregation is scheduled after the productivity recompute's
// time. Nothing enforces that ordering at runtime: a late productivity run
// leaves department numbers stale until the next cycle.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/taskflow/taskflow-backend/pkg/clock"
	"github.com/taskflow/taskflow-backend/pkg/config"
	"github.com/taskflow/taskflow-backend/pkg/database"
	"github.com/taskflow/taskflow-backend/pkg/logger"
	"github.com/taskflow/taskflow-backend/pkg/messaging"
)

// activeTenant is one row of public.tenants the scheduler fans out over.
type activeTenant struct {
	ID         string `db:"id"`
	SchemaName string `db:"schema_name"`
}

// Scheduler runs the daily analytics schedule across all active tenants.
type Scheduler struct {
	cron   *cron.Cron
	db     *database.DB
	queue  messaging.Enqueuer
	cfg    *config.SchedulerConfig
	clock  clock.Clock
	logger *logger.Logger
}

// New creates a scheduler from the configured cron expressions
func New(cfg *config.SchedulerConfig, db *database.DB, queue messaging.Enqueuer, clk clock.Clock, log *logger.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load scheduler timezone %q: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		db:     db,
		queue:  queue,
		cfg:    cfg,
		clock:  clk,
		logger: log.WithComponent("scheduler"),
	}, nil
}

// Start registers the schedule and starts the cron loop
func (s *Scheduler) Start(ctx context.Context) error {
	entries := []struct {
		name string
		spec string
		run  func(ctx context.Context, t activeTenant) error
	}{
		{"daily-productivity", s.cfg.DailyProductivity, s.enqueueProductivity},
		{"department-analytics", s.cfg.DepartmentAnalytics, s.enqueueDepartments},
		{"project-analytics", s.cfg.ProjectAnalytics, s.enqueueProjectSweep},
		{"delay-analysis", s.cfg.DelayAnalysis, s.enqueueDelaySweep},
		{"overdue-notifications", s.cfg.OverdueNotifications, s.enqueueOverdueNotify},
		{"daily-summary", s.cfg.DailySummary, s.enqueueDailySummary},
	}

	for _, entry := range entries {
		entry := entry
		_, err := s.cron.AddFunc(entry.spec, func() {
			s.runForAllTenants(ctx, entry.name, entry.run)
		})
		if err != nil {
			return fmt.Errorf("schedule %s (%q): %w", entry.name, entry.spec, err)
		}
	}

	s.cron.Start()
	s.logger.Info().Str("timezone", s.cfg.Timezone).Msg("analytics scheduler started")

	return nil
}

// Stop stops the cron loop and waits for running entries to finish
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info().Msg("analytics scheduler stopped")
}

// runForAllTenants fans one scheduled pass out over every active tenant.
// A tenant failing to enqueue does not block the others.
func (s *Scheduler) runForAllTenants(ctx context.Context, name string, run func(ctx context.Context, t activeTenant) error) {
	start := time.Now()

	tenants, err := s.listActiveTenants(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("pass", name).Msg("failed to list active tenants")
		return
	}

	failed := 0
	for _, t := range tenants {
		if err := run(ctx, t); err != nil {
			failed++
			s.logger.Error().Err(err).
				Str("pass", name).
				Str("tenant_id", t.ID).
				Msg("failed to enqueue scheduled job")
		}
	}

	s.logger.Info().
		Str("pass", name).
		Int("tenants", len(tenants)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("scheduled pass dispatched")
}

// listActiveTenants reads public.tenants, which needs no tenant context
func (s *Scheduler) listActiveTenants(ctx context.Context) ([]activeTenant, error) {
	var tenants []activeTenant
	query := `SELECT id, schema_name FROM public.tenants WHERE is_active = TRUE`
	if err := s.db.DB.SelectContext(ctx, &tenants, query); err != nil {
		return nil, err
	}
	return tenants, nil
}

func (s *Scheduler) enqueueProductivity(ctx context.Context, t activeTenant) error {
	return s.queue.Enqueue(ctx, messaging.JobProductivityRecompute, messaging.ProductivityRecomputeJob{
		Date:         s.clock.Today(),
		TenantID:     t.ID,
		TenantSchema: t.SchemaName,
	})
}

func (s *Scheduler) enqueueDepartments(ctx context.Context, t activeTenant) error {
	return s.queue.Enqueue(ctx, messaging.JobDepartmentAggregate, messaging.DepartmentAggregateJob{
		Date:         s.clock.Today(),
		TenantID:     t.ID,
		TenantSchema: t.SchemaName,
	})
}

func (s *Scheduler) enqueueProjectSweep(ctx context.Context, t activeTenant) error {
	// Empty project ID means a full sweep.
	return s.queue.Enqueue(ctx, messaging.JobProjectRecompute, messaging.ProjectRecomputeJob{
		TenantID:     t.ID,
		TenantSchema: t.SchemaName,
	})
}

func (s *Scheduler) enqueueDelaySweep(ctx context.Context, t activeTenant) error {
	return s.queue.Enqueue(ctx, messaging.JobDelaySweep, messaging.DelaySweepJob{
		TenantID:     t.ID,
		TenantSchema: t.SchemaName,
	})
}

func (s *Scheduler) enqueueOverdueNotify(ctx context.Context, t activeTenant) error {
	return s.queue.Enqueue(ctx, messaging.JobOverdueNotify, messaging.OverdueNotifyJob{
		TenantID:     t.ID,
		TenantSchema: t.SchemaName,
	})
}

func (s *Scheduler) enqueueDailySummary(ctx context.Context, t activeTenant) error {
	return s.queue.Enqueue(ctx, messaging.JobDailySummary, messaging.DailySummaryJob{
		Date:         s.clock.Today(),
		TenantID:     t.ID,
		TenantSchema: t.SchemaName,
	})
}
