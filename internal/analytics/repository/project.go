package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/taskflow/taskflow-backend/pkg/database"
	"github.com/taskflow/taskflow-backend/pkg/errors"
	"github.com/taskflow/taskflow-backend/pkg/tenant"
)

// ProjectAnalytics is the per-project rollup. One row per project,
// overwritten in place on every recompute.
type ProjectAnalytics struct {
	ProjectID            string    `db:"project_id" json:"project_id"`
	TotalTasks           int       `db:"total_tasks" json:"total_tasks"`
	CompletedTasks       int       `db:"completed_tasks" json:"completed_tasks"`
	CompletionPercentage float64   `db:"completion_percentage" json:"completion_percentage"`
	TotalHoursEstimated  float64   `db:"total_hours_estimated" json:"total_hours_estimated"`
	TotalHoursActual     float64   `db:"total_hours_actual" json:"total_hours_actual"`
	AverageTaskDuration  float64   `db:"average_task_duration" json:"average_task_duration"`
	LastUpdated          time.Time `db:"last_updated" json:"last_updated"`
}

// ProjectAnalyticsRepository handles the project rollup store
type ProjectAnalyticsRepository struct {
	db *database.DB
}

// NewProjectAnalyticsRepository creates a new project analytics repository
func NewProjectAnalyticsRepository(db *database.DB) *ProjectAnalyticsRepository {
	return &ProjectAnalyticsRepository{db: db}
}

// Upsert overwrites the project's rollup row atomically
// TENANT-ISOLATED: Writes only in the tenant's schema
func (r *ProjectAnalyticsRepository) Upsert(ctx context.Context, row *ProjectAnalytics) error {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			INSERT INTO project_analytics (project_id, total_tasks, completed_tasks, completion_percentage, total_hours_estimated, total_hours_actual, average_task_duration, last_updated)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			ON CONFLICT (project_id) DO UPDATE SET
				total_tasks = EXCLUDED.total_tasks,
				completed_tasks = EXCLUDED.completed_tasks,
				completion_percentage = EXCLUDED.completion_percentage,
				total_hours_estimated = EXCLUDED.total_hours_estimated,
				total_hours_actual = EXCLUDED.total_hours_actual,
				average_task_duration = EXCLUDED.average_task_duration,
				last_updated = NOW()
		`
		_, err := r.db.ExecContext(ctx, query,
			row.ProjectID, row.TotalTasks, row.CompletedTasks, row.CompletionPercentage,
			row.TotalHoursEstimated, row.TotalHoursActual, row.AverageTaskDuration,
		)
		return err
	})
}

// GetByProject returns the rollup row for a project
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *ProjectAnalyticsRepository) GetByProject(ctx context.Context, projectID string) (*ProjectAnalytics, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var row ProjectAnalytics

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT project_id, total_tasks, completed_tasks, completion_percentage, total_hours_estimated, total_hours_actual, average_task_duration, last_updated
			FROM project_analytics
			WHERE project_id = $1
		`
		return r.db.GetContext(ctx, &row, query, projectID)
	})

	if err == sql.ErrNoRows {
		return nil, errors.NotFound("project analytics")
	}
	if err != nil {
		return nil, err
	}

	return &row, nil
}
