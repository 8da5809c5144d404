package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/taskflow/taskflow-backend/pkg/database"
	"github.com/taskflow/taskflow-backend/pkg/errors"
	"github.com/taskflow/taskflow-backend/pkg/tenant"
)

// TaskComment is a discussion entry on a task
type TaskComment struct {
	ID        string    `db:"id" json:"id"`
	TaskID    string    `db:"task_id" json:"task_id"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// Joined fields (populated by specific queries)
	AuthorName *string `db:"author_name" json:"author_name,omitempty"`
}

// CommentRepository handles task comment persistence
type CommentRepository struct {
	db *database.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *database.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create creates a new comment
// TENANT-ISOLATED: Inserts into the tenant's schema
func (r *CommentRepository) Create(ctx context.Context, comment *TaskComment) error {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return err
	}

	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}

	return r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			INSERT INTO task_comments (id, task_id, author_id, content)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at, updated_at
		`
		return r.db.QueryRowxContext(ctx, query,
			comment.ID, comment.TaskID, comment.AuthorID, comment.Content,
		).Scan(&comment.CreatedAt, &comment.UpdatedAt)
	})
}

// GetByID gets a comment by ID
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *CommentRepository) GetByID(ctx context.Context, id string) (*TaskComment, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var comment TaskComment

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT id, task_id, author_id, content, created_at, updated_at
			FROM task_comments
			WHERE id = $1
		`
		return r.db.GetContext(ctx, &comment, query, id)
	})

	if err == sql.ErrNoRows {
		return nil, errors.NotFound("comment")
	}
	if err != nil {
		return nil, err
	}

	return &comment, nil
}

// ListByTask gets comments for a task, oldest first
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *CommentRepository) ListByTask(ctx context.Context, taskID string) ([]*TaskComment, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var comments []*TaskComment

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT c.id, c.task_id, c.author_id, c.content, c.created_at, c.updated_at,
			       e.full_name AS author_name
			FROM task_comments c
			LEFT JOIN employees e ON c.author_id = e.user_id
			WHERE c.task_id = $1
			ORDER BY c.created_at
		`
		return r.db.SelectContext(ctx, &comments, query, taskID)
	})

	if err != nil {
		return nil, err
	}

	return comments, nil
}

// Delete deletes a comment
// TENANT-ISOLATED: Deletes only in the tenant's schema
func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		result, err := r.db.ExecContext(ctx, `DELETE FROM task_comments WHERE id = $1`, id)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("comment")
		}

		return nil
	})
}
