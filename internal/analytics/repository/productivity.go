// Package repository holds the analytics rollup stores and the source metric
// queries they are computed from. All rollup writes are atomic upserts keyed
// by a uniqueness constraint so concurrent recomputes never duplicate rows.
package repository

import (
	"context"
	"time"

	"github.com/taskflow/taskflow-backend/pkg/database"
	"github.com/taskflow/taskflow-backend/pkg/tenant"
)

// EmployeeProductivity is the per-employee, per-day productivity rollup.
// tasks_assigned is cumulative while tasks_completed is scoped to the day.
type EmployeeProductivity struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	Day             time.Time `db:"day" json:"day"`
	TasksCompleted  int       `db:"tasks_completed" json:"tasks_completed"`
	TasksAssigned   int       `db:"tasks_assigned" json:"tasks_assigned"`
	HoursLogged     float64   `db:"hours_logged" json:"hours_logged"`
	EfficiencyScore float64   `db:"efficiency_score" json:"efficiency_score"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// WorkloadDistribution is the per-employee, per-day workload snapshot.
type WorkloadDistribution struct {
	ID                  string    `db:"id" json:"id"`
	UserID              string    `db:"user_id" json:"user_id"`
	Day                 time.Time `db:"day" json:"day"`
	ActiveTasksCount    int       `db:"active_tasks_count" json:"active_tasks_count"`
	TotalEstimatedHours float64   `db:"total_estimated_hours" json:"total_estimated_hours"`
	OverdueTasksCount   int       `db:"overdue_tasks_count" json:"overdue_tasks_count"`
	WorkloadScore       float64   `db:"workload_score" json:"workload_score"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// DepartmentProductivityRow is a productivity row joined with the employee's
// department, used by the department aggregation.
type DepartmentProductivityRow struct {
	Department      string  `db:"department"`
	TasksAssigned   int     `db:"tasks_assigned"`
	TasksCompleted  int     `db:"tasks_completed"`
	HoursLogged     float64 `db:"hours_logged"`
	EfficiencyScore float64 `db:"efficiency_score"`
}

// ProductivityRepository handles productivity and workload rollups
type ProductivityRepository struct {
	db *database.DB
}

// NewProductivityRepository creates a new productivity repository
func NewProductivityRepository(db *database.DB) *ProductivityRepository {
	return &ProductivityRepository{db: db}
}

// UpsertProductivity writes a productivity row for (user, day) atomically
// TENANT-ISOLATED: Writes only in the tenant's schema
func (r *ProductivityRepository) UpsertProductivity(ctx context.Context, row *EmployeeProductivity) error {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			INSERT INTO employee_productivity (user_id, day, tasks_completed, tasks_assigned, hours_logged, efficiency_score)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (user_id, day) DO UPDATE SET
				tasks_completed = EXCLUDED.tasks_completed,
				tasks_assigned = EXCLUDED.tasks_assigned,
				hours_logged = EXCLUDED.hours_logged,
				efficiency_score = EXCLUDED.efficiency_score
		`
		_, err := r.db.ExecContext(ctx, query,
			row.UserID, row.Day, row.TasksCompleted, row.TasksAssigned,
			row.HoursLogged, row.EfficiencyScore,
		)
		return err
	})
}

// UpsertWorkload writes a workload row for (user, day) atomically
// TENANT-ISOLATED: Writes only in the tenant's schema
func (r *ProductivityRepository) UpsertWorkload(ctx context.Context, row *WorkloadDistribution) error {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			INSERT INTO workload_distribution (user_id, day, active_tasks_count, total_estimated_hours, overdue_tasks_count, workload_score)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (user_id, day) DO UPDATE SET
				active_tasks_count = EXCLUDED.active_tasks_count,
				total_estimated_hours = EXCLUDED.total_estimated_hours,
				overdue_tasks_count = EXCLUDED.overdue_tasks_count,
				workload_score = EXCLUDED.workload_score
		`
		_, err := r.db.ExecContext(ctx, query,
			row.UserID, row.Day, row.ActiveTasksCount, row.TotalEstimatedHours,
			row.OverdueTasksCount, row.WorkloadScore,
		)
		return err
	})
}

// ListProductivityByUser returns a user's productivity rows for a date range
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *ProductivityRepository) ListProductivityByUser(ctx context.Context, userID string, from, to time.Time) ([]*EmployeeProductivity, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var rows []*EmployeeProductivity

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT id, user_id, day, tasks_completed, tasks_assigned, hours_logged, efficiency_score, created_at
			FROM employee_productivity
			WHERE user_id = $1 AND day BETWEEN $2 AND $3
			ORDER BY day DESC
		`
		return r.db.SelectContext(ctx, &rows, query, userID, from, to)
	})

	if err != nil {
		return nil, err
	}

	return rows, nil
}

// ListWorkloadByUser returns a user's workload rows for a date range
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *ProductivityRepository) ListWorkloadByUser(ctx context.Context, userID string, from, to time.Time) ([]*WorkloadDistribution, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var rows []*WorkloadDistribution

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT id, user_id, day, active_tasks_count, total_estimated_hours, overdue_tasks_count, workload_score, created_at
			FROM workload_distribution
			WHERE user_id = $1 AND day BETWEEN $2 AND $3
			ORDER BY day DESC
		`
		return r.db.SelectContext(ctx, &rows, query, userID, from, to)
	})

	if err != nil {
		return nil, err
	}

	return rows, nil
}

// ListByDateWithDepartment returns productivity rows for a day joined with
// the department of each active employee. Employees without a department are
// excluded.
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *ProductivityRepository) ListByDateWithDepartment(ctx context.Context, day time.Time) ([]*DepartmentProductivityRow, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var rows []*DepartmentProductivityRow

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT e.department, ep.tasks_assigned, ep.tasks_completed, ep.hours_logged, ep.efficiency_score
			FROM employee_productivity ep
			JOIN employees e ON e.user_id = ep.user_id
			WHERE ep.day = $1 AND e.is_active = TRUE AND e.department IS NOT NULL
		`
		return r.db.SelectContext(ctx, &rows, query, day)
	})

	if err != nil {
		return nil, err
	}

	return rows, nil
}
