package messaging

import (
	"context"
	"time"
)

// Job types routed through the taskflow.jobs exchange. Each job is delivered
// at least once; handlers must be idempotent.
const (
	JobNotificationSend      = "notification.send"
	JobProductivityRecompute = "analytics.productivity.recompute"
	JobDepartmentAggregate   = "analytics.department.aggregate"
	JobProjectRecompute      = "analytics.project.recompute"
	JobDelaySweep            = "analytics.delay.sweep"
	JobOverdueNotify         = "analytics.overdue.notify"
	JobDailySummary          = "analytics.summary.daily"
	JobPerformanceReport     = "analytics.report.generate"
)

// Enqueuer enqueues background jobs. Satisfied by Publisher; services and
// tests depend on this interface rather than a live broker.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType string, payload interface{}) error
}

// NotificationJob asks the worker to deliver a notification to an employee.
type NotificationJob struct {
	Kind        string `json:"kind"` // task_assigned, status_changed, task_overdue, task_delayed, daily_summary
	RecipientID string `json:"recipient_id"`
	TaskID      string `json:"task_id,omitempty"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`

	TenantID     string `json:"tenant_id"`
	TenantSchema string `json:"tenant_schema"`
}

// ProductivityRecomputeJob asks the worker to recompute productivity and
// workload rollups for a given date. An empty EmployeeID means all active
// employees.
type ProductivityRecomputeJob struct {
	EmployeeID string    `json:"employee_id,omitempty"`
	Date       time.Time `json:"date"`

	TenantID     string `json:"tenant_id"`
	TenantSchema string `json:"tenant_schema"`
}

// DepartmentAggregateJob asks the worker to aggregate one department's
// analytics for a given date. An empty Department means all departments.
type DepartmentAggregateJob struct {
	Department string    `json:"department,omitempty"`
	Date       time.Time `json:"date"`

	TenantID     string `json:"tenant_id"`
	TenantSchema string `json:"tenant_schema"`
}

// ProjectRecomputeJob asks the worker to recompute one project's analytics
// snapshot.
type ProjectRecomputeJob struct {
	ProjectID string `json:"project_id"`

	TenantID     string `json:"tenant_id"`
	TenantSchema string `json:"tenant_schema"`
}

// DelaySweepJob asks the worker to scan completed tasks and record delay
// analysis for those finished past their due date. A non-empty TaskID limits
// the sweep to a single task.
type DelaySweepJob struct {
	TaskID string `json:"task_id,omitempty"`

	TenantID     string `json:"tenant_id"`
	TenantSchema string `json:"tenant_schema"`
}

// OverdueNotifyJob asks the worker to remind assignees about open tasks past
// their due date.
type OverdueNotifyJob struct {
	TenantID     string `json:"tenant_id"`
	TenantSchema string `json:"tenant_schema"`
}

// DailySummaryJob asks the worker to mail every active employee a summary of
// the day's productivity and their current workload.
type DailySummaryJob struct {
	Date time.Time `json:"date"`

	TenantID     string `json:"tenant_id"`
	TenantSchema string `json:"tenant_schema"`
}

// PerformanceReportJob asks the worker to generate a performance report
// snapshot for a period.
type PerformanceReportJob struct {
	ReportType  string    `json:"report_type"` // DAILY, WEEKLY, MONTHLY, QUARTERLY, YEARLY
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	RequestedBy string    `json:"requested_by"`

	TenantID     string `json:"tenant_id"`
	TenantSchema string `json:"tenant_schema"`
}
