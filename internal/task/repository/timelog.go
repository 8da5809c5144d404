package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taskflow/taskflow-backend/pkg/database"
	"github.com/taskflow/taskflow-backend/pkg/tenant"
)

// TimeLog records hours worked against a task on a date. Append-only.
type TimeLog struct {
	ID        string    `db:"id" json:"id"`
	TaskID    string    `db:"task_id" json:"task_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Hours     float64   `db:"hours" json:"hours"`
	LogDate   time.Time `db:"log_date" json:"log_date"`
	Note      string    `db:"note" json:"note"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Joined fields (populated by specific queries)
	UserName  *string `db:"user_name" json:"user_name,omitempty"`
	TaskTitle *string `db:"task_title" json:"task_title,omitempty"`
}

// TimeLogRepository handles time log persistence
type TimeLogRepository struct {
	db *database.DB
}

// NewTimeLogRepository creates a new time log repository
func NewTimeLogRepository(db *database.DB) *TimeLogRepository {
	return &TimeLogRepository{db: db}
}

// Create creates a new time log
// TENANT-ISOLATED: Inserts into the tenant's schema
func (r *TimeLogRepository) Create(ctx context.Context, log *TimeLog) error {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return err
	}

	if log.ID == "" {
		log.ID = uuid.New().String()
	}

	return r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			INSERT INTO time_logs (id, task_id, user_id, hours, log_date, note)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at
		`
		return r.db.QueryRowxContext(ctx, query,
			log.ID, log.TaskID, log.UserID, log.Hours, log.LogDate, log.Note,
		).Scan(&log.CreatedAt)
	})
}

// ListByTask gets time logs for a task, newest first
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *TimeLogRepository) ListByTask(ctx context.Context, taskID string) ([]*TimeLog, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var logs []*TimeLog

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT tl.id, tl.task_id, tl.user_id, tl.hours, tl.log_date, tl.note, tl.created_at,
			       e.full_name AS user_name
			FROM time_logs tl
			LEFT JOIN employees e ON tl.user_id = e.user_id
			WHERE tl.task_id = $1
			ORDER BY tl.log_date DESC, tl.created_at DESC
		`
		return r.db.SelectContext(ctx, &logs, query, taskID)
	})

	if err != nil {
		return nil, err
	}

	return logs, nil
}

// ListByUser gets a user's time logs in a date range, newest first
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *TimeLogRepository) ListByUser(ctx context.Context, userID string, from, to time.Time) ([]*TimeLog, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var logs []*TimeLog

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT tl.id, tl.task_id, tl.user_id, tl.hours, tl.log_date, tl.note, tl.created_at,
			       t.title AS task_title
			FROM time_logs tl
			LEFT JOIN tasks t ON tl.task_id = t.id
			WHERE tl.user_id = $1 AND tl.log_date BETWEEN $2 AND $3
			ORDER BY tl.log_date DESC, tl.created_at DESC
		`
		return r.db.SelectContext(ctx, &logs, query, userID, from, to)
	})

	if err != nil {
		return nil, err
	}

	return logs, nil
}
