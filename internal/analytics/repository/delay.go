package repository

import (
	"context"
	"time"

	"github.com/taskflow/taskflow-backend/pkg/database"
	"github.com/taskflow/taskflow-backend/pkg/tenant"
)

// DelayAnalysis records, once per completed task, how far it ran past its
// planned duration. Duration fields are hours. PlannedDuration and
// DelayPercentage are null for tasks without a due date.
type DelayAnalysis struct {
	ID              string    `db:"id" json:"id"`
	TaskID          string    `db:"task_id" json:"task_id"`
	PlannedDuration *float64  `db:"planned_duration" json:"planned_duration,omitempty"`
	ActualDuration  float64   `db:"actual_duration" json:"actual_duration"`
	DelayHours      float64   `db:"delay_hours" json:"delay_hours"`
	DelayPercentage *float64  `db:"delay_percentage" json:"delay_percentage,omitempty"`
	AnalyzedAt      time.Time `db:"analyzed_at" json:"analyzed_at"`
}

// DelayRepository handles the insert-once delay analysis store
type DelayRepository struct {
	db *database.DB
}

// NewDelayRepository creates a new delay repository
func NewDelayRepository(db *database.DB) *DelayRepository {
	return &DelayRepository{db: db}
}

// InsertOnce inserts a delay row unless the task already has one. Returns
// true when a row was written, false when the task was already analyzed.
// TENANT-ISOLATED: Writes only in the tenant's schema
func (r *DelayRepository) InsertOnce(ctx context.Context, row *DelayAnalysis) (bool, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return false, err
	}

	var inserted bool

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			INSERT INTO delay_analysis (task_id, planned_duration, actual_duration, delay_hours, delay_percentage, analyzed_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT (task_id) DO NOTHING
		`
		result, err := r.db.ExecContext(ctx, query,
			row.TaskID, row.PlannedDuration, row.ActualDuration,
			row.DelayHours, row.DelayPercentage,
		)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		inserted = affected > 0
		return nil
	})

	if err != nil {
		return false, err
	}

	return inserted, nil
}

// List returns all delay rows, newest analysis first
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *DelayRepository) List(ctx context.Context) ([]*DelayAnalysis, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var rows []*DelayAnalysis

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT id, task_id, planned_duration, actual_duration, delay_hours, delay_percentage, analyzed_at
			FROM delay_analysis
			ORDER BY analyzed_at DESC
		`
		return r.db.SelectContext(ctx, &rows, query)
	})

	if err != nil {
		return nil, err
	}

	return rows, nil
}
