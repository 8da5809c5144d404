// Package consumers runs the analytics worker's job consumer. Jobs are
// delivered at least once; every handler is idempotent, so a redelivered job
// rewrites the same rollup rows.
package consumers

import (
	"context"
	"fmt"

	"github.com/taskflow/taskflow-backend/internal/analytics/service"
	"github.com/taskflow/taskflow-backend/internal/notify"
	taskrepo "github.com/taskflow/taskflow-backend/internal/task/repository"
	"github.com/taskflow/taskflow-backend/pkg/clock"
	"github.com/taskflow/taskflow-backend/pkg/logger"
	"github.com/taskflow/taskflow-backend/pkg/messaging"
	"github.com/taskflow/taskflow-backend/pkg/tenant"
)

// JobConsumer executes analytics and notification jobs from the work queue.
type JobConsumer struct {
	consumer  *messaging.Consumer
	analytics *service.AnalyticsService
	employees *taskrepo.EmployeeRepository
	sender    notify.Sender
	clock     clock.Clock
	logger    *logger.Logger
}

// NewJobConsumer creates a new job consumer
func NewJobConsumer(
	rmq *messaging.RabbitMQ,
	analytics *service.AnalyticsService,
	employees *taskrepo.EmployeeRepository,
	sender notify.Sender,
	clk clock.Clock,
	log *logger.Logger,
) (*JobConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "analytics-worker", log)
	if err != nil {
		return nil, err
	}

	// One binding per job type keeps unrelated jobs off this queue.
	jobTypes := []string{
		messaging.JobNotificationSend,
		messaging.JobProductivityRecompute,
		messaging.JobDepartmentAggregate,
		messaging.JobProjectRecompute,
		messaging.JobDelaySweep,
		messaging.JobOverdueNotify,
		messaging.JobDailySummary,
		messaging.JobPerformanceReport,
	}
	for _, jobType := range jobTypes {
		if err := consumer.Subscribe(messaging.ExchangeJobs, jobType); err != nil {
			return nil, err
		}
	}

	c := &JobConsumer{
		consumer:  consumer,
		analytics: analytics,
		employees: employees,
		sender:    sender,
		clock:     clk,
		logger:    log.WithComponent("job-consumer"),
	}

	consumer.RegisterHandler(messaging.JobNotificationSend, c.handleNotification)
	consumer.RegisterHandler(messaging.JobProductivityRecompute, c.handleProductivityRecompute)
	consumer.RegisterHandler(messaging.JobDepartmentAggregate, c.handleDepartmentAggregate)
	consumer.RegisterHandler(messaging.JobProjectRecompute, c.handleProjectRecompute)
	consumer.RegisterHandler(messaging.JobDelaySweep, c.handleDelaySweep)
	consumer.RegisterHandler(messaging.JobOverdueNotify, c.handleOverdueNotify)
	consumer.RegisterHandler(messaging.JobDailySummary, c.handleDailySummary)
	consumer.RegisterHandler(messaging.JobPerformanceReport, c.handlePerformanceReport)

	return c, nil
}

// Start starts consuming jobs
func (c *JobConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// tenantContext rebuilds a tenant context from a job's tenant fields
func tenantContext(ctx context.Context, tenantID, tenantSchema string) (context.Context, error) {
	if tenantID == "" || tenantSchema == "" {
		return nil, fmt.Errorf("job missing tenant fields")
	}
	return tenant.WithTenantContext(ctx, tenantID, "", tenantSchema), nil
}

func (c *JobConsumer) handleNotification(ctx context.Context, event *messaging.Event) error {
	var job messaging.NotificationJob
	if err := event.UnmarshalData(&job); err != nil {
		return err
	}

	ctx, err := tenantContext(ctx, job.TenantID, job.TenantSchema)
	if err != nil {
		return err
	}

	recipient, err := c.employees.GetByID(ctx, job.RecipientID)
	if err != nil {
		return fmt.Errorf("look up notification recipient: %w", err)
	}
	if !recipient.IsActive {
		c.logger.Info().
			Str("recipient_id", job.RecipientID).
			Msg("dropping notification for deactivated employee")
		return nil
	}

	return c.sender.Send(ctx, recipient.Email, job.Subject, job.Body)
}

func (c *JobConsumer) handleProductivityRecompute(ctx context.Context, event *messaging.Event) error {
	var job messaging.ProductivityRecomputeJob
	if err := event.UnmarshalData(&job); err != nil {
		return err
	}

	ctx, err := tenantContext(ctx, job.TenantID, job.TenantSchema)
	if err != nil {
		return err
	}

	day := job.Date
	if day.IsZero() {
		day = c.clock.Today()
	}

	if job.EmployeeID != "" {
		return c.analytics.RecomputeEmployeeProductivity(ctx, job.EmployeeID, day)
	}
	return c.analytics.RecomputeDailyProductivity(ctx, day)
}

func (c *JobConsumer) handleDepartmentAggregate(ctx context.Context, event *messaging.Event) error {
	var job messaging.DepartmentAggregateJob
	if err := event.UnmarshalData(&job); err != nil {
		return err
	}

	ctx, err := tenantContext(ctx, job.TenantID, job.TenantSchema)
	if err != nil {
		return err
	}

	day := job.Date
	if day.IsZero() {
		day = c.clock.Today()
	}

	if job.Department != "" {
		return c.analytics.AggregateDepartment(ctx, job.Department, day)
	}
	return c.analytics.AggregateDepartments(ctx, day)
}

func (c *JobConsumer) handleProjectRecompute(ctx context.Context, event *messaging.Event) error {
	var job messaging.ProjectRecomputeJob
	if err := event.UnmarshalData(&job); err != nil {
		return err
	}

	ctx, err := tenantContext(ctx, job.TenantID, job.TenantSchema)
	if err != nil {
		return err
	}

	if job.ProjectID == "" {
		return c.analytics.RecomputeAllProjects(ctx)
	}
	return c.analytics.RecomputeProject(ctx, job.ProjectID)
}

func (c *JobConsumer) handleDelaySweep(ctx context.Context, event *messaging.Event) error {
	var job messaging.DelaySweepJob
	if err := event.UnmarshalData(&job); err != nil {
		return err
	}

	ctx, err := tenantContext(ctx, job.TenantID, job.TenantSchema)
	if err != nil {
		return err
	}

	if job.TaskID != "" {
		return c.analytics.AnalyzeTaskDelay(ctx, job.TaskID)
	}
	return c.analytics.AnalyzeDelays(ctx)
}

func (c *JobConsumer) handleOverdueNotify(ctx context.Context, event *messaging.Event) error {
	var job messaging.OverdueNotifyJob
	if err := event.UnmarshalData(&job); err != nil {
		return err
	}

	ctx, err := tenantContext(ctx, job.TenantID, job.TenantSchema)
	if err != nil {
		return err
	}

	return c.analytics.NotifyOverdue(ctx)
}

func (c *JobConsumer) handleDailySummary(ctx context.Context, event *messaging.Event) error {
	var job messaging.DailySummaryJob
	if err := event.UnmarshalData(&job); err != nil {
		return err
	}

	ctx, err := tenantContext(ctx, job.TenantID, job.TenantSchema)
	if err != nil {
		return err
	}

	day := job.Date
	if day.IsZero() {
		day = c.clock.Today()
	}

	return c.analytics.SendDailySummaries(ctx, day)
}

func (c *JobConsumer) handlePerformanceReport(ctx context.Context, event *messaging.Event) error {
	var job messaging.PerformanceReportJob
	if err := event.UnmarshalData(&job); err != nil {
		return err
	}

	ctx, err := tenantContext(ctx, job.TenantID, job.TenantSchema)
	if err != nil {
		return err
	}

	start := job.PeriodStart
	end := job.PeriodEnd
	if end.IsZero() {
		end = c.clock.Today()
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -7)
	}

	_, err = c.analytics.GenerateReport(ctx, job.ReportType, start, end, job.RequestedBy)
	return err
}
