package repository

import (
	"context"
	"time"

	"github.com/taskflow/taskflow-backend/pkg/database"
	"github.com/taskflow/taskflow-backend/pkg/tenant"
)

// DepartmentAnalytics is the per-department, per-day rollup derived from the
// day's productivity rows.
type DepartmentAnalytics struct {
	ID                string    `db:"id" json:"id"`
	Department        string    `db:"department" json:"department"`
	Day               time.Time `db:"day" json:"day"`
	TotalEmployees    int       `db:"total_employees" json:"total_employees"`
	ActiveTasks       int       `db:"active_tasks" json:"active_tasks"`
	CompletedTasks    int       `db:"completed_tasks" json:"completed_tasks"`
	TotalHoursLogged  float64   `db:"total_hours_logged" json:"total_hours_logged"`
	AverageEfficiency float64   `db:"average_efficiency" json:"average_efficiency"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// DepartmentHeadcount pairs a department with its active employee count.
type DepartmentHeadcount struct {
	Department string `db:"department"`
	Count      int    `db:"count"`
}

// DepartmentRepository handles department rollups
type DepartmentRepository struct {
	db *database.DB
}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository(db *database.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// Upsert writes a department row for (department, day) atomically
// TENANT-ISOLATED: Writes only in the tenant's schema
func (r *DepartmentRepository) Upsert(ctx context.Context, row *DepartmentAnalytics) error {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			INSERT INTO department_analytics (department, day, total_employees, active_tasks, completed_tasks, total_hours_logged, average_efficiency)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (department, day) DO UPDATE SET
				total_employees = EXCLUDED.total_employees,
				active_tasks = EXCLUDED.active_tasks,
				completed_tasks = EXCLUDED.completed_tasks,
				total_hours_logged = EXCLUDED.total_hours_logged,
				average_efficiency = EXCLUDED.average_efficiency
		`
		_, err := r.db.ExecContext(ctx, query,
			row.Department, row.Day, row.TotalEmployees, row.ActiveTasks,
			row.CompletedTasks, row.TotalHoursLogged, row.AverageEfficiency,
		)
		return err
	})
}

// ListByDate returns all department rows for a day
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *DepartmentRepository) ListByDate(ctx context.Context, day time.Time) ([]*DepartmentAnalytics, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var rows []*DepartmentAnalytics

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT id, department, day, total_employees, active_tasks, completed_tasks, total_hours_logged, average_efficiency, created_at
			FROM department_analytics
			WHERE day = $1
			ORDER BY department
		`
		return r.db.SelectContext(ctx, &rows, query, day)
	})

	if err != nil {
		return nil, err
	}

	return rows, nil
}

// ActiveHeadcounts returns the active employee count per non-null department
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *DepartmentRepository) ActiveHeadcounts(ctx context.Context) ([]*DepartmentHeadcount, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var rows []*DepartmentHeadcount

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT department, COUNT(*) AS count
			FROM employees
			WHERE is_active = TRUE AND department IS NOT NULL
			GROUP BY department
		`
		return r.db.SelectContext(ctx, &rows, query)
	})

	if err != nil {
		return nil, err
	}

	return rows, nil
}
