package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/taskflow/taskflow-backend/pkg/database"
	"github.com/taskflow/taskflow-backend/pkg/tenant"
)

// EmployeeDayMetrics holds the source numbers for one employee's daily
// productivity row. TasksAssigned counts every task ever assigned to the
// employee while TasksCompleted only counts completions on the target day.
type EmployeeDayMetrics struct {
	TasksAssigned  int     `db:"tasks_assigned"`
	TasksCompleted int     `db:"tasks_completed"`
	HoursLogged    float64 `db:"hours_logged"`
}

// EmployeeWorkloadMetrics holds the source numbers for an employee's
// workload snapshot, taken over their TODO/IN_PROGRESS tasks.
type EmployeeWorkloadMetrics struct {
	ActiveTasksCount    int     `db:"active_tasks_count"`
	TotalEstimatedHours float64 `db:"total_estimated_hours"`
	OverdueTasksCount   int     `db:"overdue_tasks_count"`
}

// ProjectTaskMetrics holds the source aggregates for a project rollup.
// AverageDurationHours is the mean completed_at - created_at over completed
// tasks, in hours, 0 when no task has both timestamps.
type ProjectTaskMetrics struct {
	TotalTasks           int     `db:"total_tasks"`
	CompletedTasks       int     `db:"completed_tasks"`
	TotalHoursEstimated  float64 `db:"total_hours_estimated"`
	TotalHoursActual     float64 `db:"total_hours_actual"`
	AverageDurationHours float64 `db:"average_duration_hours"`
}

// DelayCandidate is a completed task that has not been delay-analyzed yet.
type DelayCandidate struct {
	TaskID      string     `db:"task_id"`
	Title       string     `db:"title"`
	AssignedTo  *string    `db:"assigned_to"`
	CreatedAt   time.Time  `db:"created_at"`
	DueDate     *time.Time `db:"due_date"`
	CompletedAt time.Time  `db:"completed_at"`
}

// StatusCount pairs a task status with its count.
type StatusCount struct {
	Status string `db:"status"`
	Count  int    `db:"count"`
}

// MetricsRepository provides the aggregate source queries the analytics
// recomputes are derived from. It only reads the task-service tables.
type MetricsRepository struct {
	db *database.DB
}

// NewMetricsRepository creates a new metrics repository
func NewMetricsRepository(db *database.DB) *MetricsRepository {
	return &MetricsRepository{db: db}
}

// EmployeeDay returns the productivity source numbers for one employee and
// day: cumulative assigned count, completions on the day, hours logged on
// the day.
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *MetricsRepository) EmployeeDay(ctx context.Context, userID string, day time.Time) (*EmployeeDayMetrics, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var m EmployeeDayMetrics

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT
				(SELECT COUNT(*) FROM tasks WHERE assigned_to = $1) AS tasks_assigned,
				(SELECT COUNT(*) FROM tasks
					WHERE assigned_to = $1 AND status = 'COMPLETED'
					AND completed_at >= $2 AND completed_at < $2 + INTERVAL '1 day') AS tasks_completed,
				(SELECT COALESCE(SUM(hours), 0) FROM time_logs
					WHERE user_id = $1 AND log_date = $2) AS hours_logged
		`
		return r.db.GetContext(ctx, &m, query, userID, day)
	})

	if err != nil {
		return nil, err
	}

	return &m, nil
}

// EmployeeWorkload returns the workload source numbers for one employee:
// open task count, their estimated-hour sum, and how many are overdue
// relative to now.
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *MetricsRepository) EmployeeWorkload(ctx context.Context, userID string, now time.Time) (*EmployeeWorkloadMetrics, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var m EmployeeWorkloadMetrics

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT
				COUNT(*) AS active_tasks_count,
				COALESCE(SUM(estimated_hours), 0) AS total_estimated_hours,
				COUNT(*) FILTER (WHERE due_date IS NOT NULL AND due_date < $2) AS overdue_tasks_count
			FROM tasks
			WHERE assigned_to = $1 AND status IN ('TODO', 'IN_PROGRESS')
		`
		return r.db.GetContext(ctx, &m, query, userID, now)
	})

	if err != nil {
		return nil, err
	}

	return &m, nil
}

// ProjectTasks returns the source aggregates for a project rollup
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *MetricsRepository) ProjectTasks(ctx context.Context, projectID string) (*ProjectTaskMetrics, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var m ProjectTaskMetrics

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT
				COUNT(*) AS total_tasks,
				COUNT(*) FILTER (WHERE status = 'COMPLETED') AS completed_tasks,
				COALESCE(SUM(estimated_hours), 0) AS total_hours_estimated,
				COALESCE(SUM(actual_hours), 0) AS total_hours_actual,
				COALESCE(AVG(EXTRACT(EPOCH FROM (completed_at - created_at)) / 3600)
					FILTER (WHERE status = 'COMPLETED' AND completed_at IS NOT NULL), 0) AS average_duration_hours
			FROM tasks
			WHERE project_id = $1
		`
		return r.db.GetContext(ctx, &m, query, projectID)
	})

	if err != nil {
		return nil, err
	}

	return &m, nil
}

// ListDelayCandidates returns completed tasks with no delay analysis row yet
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *MetricsRepository) ListDelayCandidates(ctx context.Context) ([]*DelayCandidate, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []*DelayCandidate

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT t.id AS task_id, t.title, t.assigned_to, t.created_at, t.due_date, t.completed_at
			FROM tasks t
			LEFT JOIN delay_analysis d ON d.task_id = t.id
			WHERE t.status = 'COMPLETED' AND t.completed_at IS NOT NULL AND d.task_id IS NULL
		`
		return r.db.SelectContext(ctx, &candidates, query)
	})

	if err != nil {
		return nil, err
	}

	return candidates, nil
}

// DelayCandidate returns one completed task with no delay analysis row yet.
// A nil result means the task is not a candidate: not completed, already
// analyzed, or unknown.
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *MetricsRepository) DelayCandidate(ctx context.Context, taskID string) (*DelayCandidate, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var candidate DelayCandidate

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT t.id AS task_id, t.title, t.assigned_to, t.created_at, t.due_date, t.completed_at
			FROM tasks t
			LEFT JOIN delay_analysis d ON d.task_id = t.id
			WHERE t.id = $1 AND t.status = 'COMPLETED' AND t.completed_at IS NOT NULL AND d.task_id IS NULL
		`
		return r.db.GetContext(ctx, &candidate, query, taskID)
	})

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &candidate, nil
}

// CountTasksByStatus returns task counts grouped by status
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *MetricsRepository) CountTasksByStatus(ctx context.Context) ([]*StatusCount, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var counts []*StatusCount

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT status, COUNT(*) AS count
			FROM tasks
			GROUP BY status
		`
		return r.db.SelectContext(ctx, &counts, query)
	})

	if err != nil {
		return nil, err
	}

	return counts, nil
}

// CountCompletedBetween returns how many tasks completed inside a date range
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *MetricsRepository) CountCompletedBetween(ctx context.Context, start, end time.Time) (int, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return 0, err
	}

	var count int

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT COUNT(*)
			FROM tasks
			WHERE status = 'COMPLETED' AND completed_at >= $1 AND completed_at < $2 + INTERVAL '1 day'
		`
		return r.db.GetContext(ctx, &count, query, start, end)
	})

	if err != nil {
		return 0, err
	}

	return count, nil
}

// SumHoursBetween returns total hours logged inside a date range
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *MetricsRepository) SumHoursBetween(ctx context.Context, start, end time.Time) (float64, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return 0, err
	}

	var hours float64

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT COALESCE(SUM(hours), 0)
			FROM time_logs
			WHERE log_date BETWEEN $1 AND $2
		`
		return r.db.GetContext(ctx, &hours, query, start, end)
	})

	if err != nil {
		return 0, err
	}

	return hours, nil
}
