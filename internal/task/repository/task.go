package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taskflow/taskflow-backend/pkg/database"
	"github.com/taskflow/taskflow-backend/pkg/errors"
	"github.com/taskflow/taskflow-backend/pkg/tenant"
)

// Task statuses
const (
	StatusTodo       = "TODO"
	StatusInProgress = "IN_PROGRESS"
	StatusReview     = "REVIEW"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
)

// Task priorities
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// Task represents a unit of work, optionally attached to a project and
// assigned to an employee.
//
// Invariant: CompletedAt is non-null iff Status == COMPLETED. The service
// layer maintains this on every write.
type Task struct {
	ID             string     `db:"id" json:"id"`
	Title          string     `db:"title" json:"title"`
	Description    string     `db:"description" json:"description"`
	ProjectID      *string    `db:"project_id" json:"project_id,omitempty"`
	AssignedTo     *string    `db:"assigned_to" json:"assigned_to,omitempty"`
	CreatedBy      string     `db:"created_by" json:"created_by"`
	Priority       string     `db:"priority" json:"priority"`
	Status         string     `db:"status" json:"status"`
	EstimatedHours float64    `db:"estimated_hours" json:"estimated_hours"`
	ActualHours    float64    `db:"actual_hours" json:"actual_hours"`
	DueDate        *time.Time `db:"due_date" json:"due_date,omitempty"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`

	// Joined fields (populated by specific queries)
	AssigneeName *string `db:"assignee_name" json:"assignee_name,omitempty"`
	ProjectName  *string `db:"project_name" json:"project_name,omitempty"`
}

// TaskFilter narrows task listings
type TaskFilter struct {
	Status     string
	Priority   string
	AssignedTo string
	ProjectID  string
}

// TaskRepository handles task persistence
type TaskRepository struct {
	db *database.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *database.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create creates a new task
// TENANT-ISOLATED: Inserts into the tenant's schema
func (r *TaskRepository) Create(ctx context.Context, task *Task) error {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return err
	}

	if task.ID == "" {
		task.ID = uuid.New().String()
	}

	return r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			INSERT INTO tasks (
				id, title, description, project_id, assigned_to, created_by,
				priority, status, estimated_hours, actual_hours, due_date, completed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING created_at, updated_at
		`
		return r.db.QueryRowxContext(ctx, query,
			task.ID, task.Title, task.Description, task.ProjectID, task.AssignedTo, task.CreatedBy,
			task.Priority, task.Status, task.EstimatedHours, task.ActualHours, task.DueDate, task.CompletedAt,
		).Scan(&task.CreatedAt, &task.UpdatedAt)
	})
}

// GetByID gets a task by ID
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*Task, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var task Task

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT t.id, t.title, t.description, t.project_id, t.assigned_to, t.created_by,
			       t.priority, t.status, t.estimated_hours, t.actual_hours, t.due_date,
			       t.completed_at, t.created_at, t.updated_at,
			       e.full_name AS assignee_name, p.name AS project_name
			FROM tasks t
			LEFT JOIN employees e ON t.assigned_to = e.user_id
			LEFT JOIN projects p ON t.project_id = p.id
			WHERE t.id = $1
		`
		return r.db.GetContext(ctx, &task, query, id)
	})

	if err == sql.ErrNoRows {
		return nil, errors.NotFound("task")
	}
	if err != nil {
		return nil, err
	}

	return &task, nil
}

// List gets tasks matching the filter, newest first
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *TaskRepository) List(ctx context.Context, filter TaskFilter) ([]*Task, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", len(args)))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		conditions = append(conditions, fmt.Sprintf("t.priority = $%d", len(args)))
	}
	if filter.AssignedTo != "" {
		args = append(args, filter.AssignedTo)
		conditions = append(conditions, fmt.Sprintf("t.assigned_to = $%d", len(args)))
	}
	if filter.ProjectID != "" {
		args = append(args, filter.ProjectID)
		conditions = append(conditions, fmt.Sprintf("t.project_id = $%d", len(args)))
	}

	var tasks []*Task

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := fmt.Sprintf(`
			SELECT t.id, t.title, t.description, t.project_id, t.assigned_to, t.created_by,
			       t.priority, t.status, t.estimated_hours, t.actual_hours, t.due_date,
			       t.completed_at, t.created_at, t.updated_at,
			       e.full_name AS assignee_name, p.name AS project_name
			FROM tasks t
			LEFT JOIN employees e ON t.assigned_to = e.user_id
			LEFT JOIN projects p ON t.project_id = p.id
			WHERE %s
			ORDER BY t.created_at DESC
		`, strings.Join(conditions, " AND "))
		return r.db.SelectContext(ctx, &tasks, query, args...)
	})

	if err != nil {
		return nil, err
	}

	return tasks, nil
}

// Update updates a task
// TENANT-ISOLATED: Updates only in the tenant's schema
func (r *TaskRepository) Update(ctx context.Context, task *Task) error {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			UPDATE tasks SET
				title = $2, description = $3, project_id = $4, assigned_to = $5,
				priority = $6, status = $7, estimated_hours = $8, actual_hours = $9,
				due_date = $10, completed_at = $11, updated_at = NOW()
			WHERE id = $1
		`
		result, err := r.db.ExecContext(ctx, query,
			task.ID, task.Title, task.Description, task.ProjectID, task.AssignedTo,
			task.Priority, task.Status, task.EstimatedHours, task.ActualHours,
			task.DueDate, task.CompletedAt,
		)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("task")
		}

		return nil
	})
}

// Delete deletes a task
// TENANT-ISOLATED: Deletes only in the tenant's schema
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("task")
		}

		return nil
	})
}

// ListOverdue gets TODO/IN_PROGRESS tasks with an assignee whose due date is
// before the given instant
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *TaskRepository) ListOverdue(ctx context.Context, now time.Time) ([]*Task, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var tasks []*Task

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT t.id, t.title, t.description, t.project_id, t.assigned_to, t.created_by,
			       t.priority, t.status, t.estimated_hours, t.actual_hours, t.due_date,
			       t.completed_at, t.created_at, t.updated_at,
			       e.full_name AS assignee_name
			FROM tasks t
			LEFT JOIN employees e ON t.assigned_to = e.user_id
			WHERE t.status IN ('TODO', 'IN_PROGRESS')
			  AND t.assigned_to IS NOT NULL
			  AND t.due_date IS NOT NULL
			  AND t.due_date < $1
			ORDER BY t.due_date
		`
		return r.db.SelectContext(ctx, &tasks, query, now)
	})

	if err != nil {
		return nil, err
	}

	return tasks, nil
}
