package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taskflow/taskflow-backend/pkg/database"
	"github.com/taskflow/taskflow-backend/pkg/tenant"
)

// Task history actions
const (
	ActionCreated         = "CREATED"
	ActionUpdated         = "UPDATED"
	ActionAssigned        = "ASSIGNED"
	ActionStatusChanged   = "STATUS_CHANGED"
	ActionPriorityChanged = "PRIORITY_CHANGED"
	ActionCompleted       = "COMPLETED"
	ActionCancelled       = "CANCELLED"
)

// TaskHistory is an append-only audit record of a task mutation. Rows are
// never updated or deleted.
type TaskHistory struct {
	ID          string    `db:"id" json:"id"`
	TaskID      string    `db:"task_id" json:"task_id"`
	UserID      *string   `db:"user_id" json:"user_id,omitempty"`
	Action      string    `db:"action" json:"action"`
	OldValue    *string   `db:"old_value" json:"old_value,omitempty"`
	NewValue    *string   `db:"new_value" json:"new_value,omitempty"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	// Joined fields (populated by specific queries)
	UserName *string `db:"user_name" json:"user_name,omitempty"`
}

// HistoryRepository handles the task audit trail
type HistoryRepository struct {
	db *database.DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *database.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append appends a history entry
// TENANT-ISOLATED: Inserts into the tenant's schema
func (r *HistoryRepository) Append(ctx context.Context, entry *TaskHistory) error {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return err
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	return r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			INSERT INTO task_history (id, task_id, user_id, action, old_value, new_value, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at
		`
		return r.db.QueryRowxContext(ctx, query,
			entry.ID, entry.TaskID, entry.UserID, entry.Action,
			entry.OldValue, entry.NewValue, entry.Description,
		).Scan(&entry.CreatedAt)
	})
}

// ListByTask gets a task's history, newest first
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *HistoryRepository) ListByTask(ctx context.Context, taskID string) ([]*TaskHistory, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var entries []*TaskHistory

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT h.id, h.task_id, h.user_id, h.action, h.old_value, h.new_value,
			       h.description, h.created_at,
			       e.full_name AS user_name
			FROM task_history h
			LEFT JOIN employees e ON h.user_id = e.user_id
			WHERE h.task_id = $1
			ORDER BY h.created_at DESC
		`
		return r.db.SelectContext(ctx, &entries, query, taskID)
	})

	if err != nil {
		return nil, err
	}

	return entries, nil
}
