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

// Project groups tasks under a shared deadline
type Project struct {
	ID          string     `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Description string     `db:"description" json:"description"`
	StartDate   *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate     *time.Time `db:"end_date" json:"end_date,omitempty"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	CreatedBy   string     `db:"created_by" json:"created_by"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// ProjectRepository handles project persistence
type ProjectRepository struct {
	db *database.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *database.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create creates a new project
// TENANT-ISOLATED: Inserts into the tenant's schema
func (r *ProjectRepository) Create(ctx context.Context, project *Project) error {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return err
	}

	if project.ID == "" {
		project.ID = uuid.New().String()
	}

	return r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			INSERT INTO projects (id, name, description, start_date, end_date, is_active, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at, updated_at
		`
		return r.db.QueryRowxContext(ctx, query,
			project.ID, project.Name, project.Description, project.StartDate,
			project.EndDate, project.IsActive, project.CreatedBy,
		).Scan(&project.CreatedAt, &project.UpdatedAt)
	})
}

// GetByID gets a project by ID
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*Project, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var project Project

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT id, name, description, start_date, end_date, is_active,
			       created_by, created_at, updated_at
			FROM projects
			WHERE id = $1
		`
		return r.db.GetContext(ctx, &project, query, id)
	})

	if err == sql.ErrNoRows {
		return nil, errors.NotFound("project")
	}
	if err != nil {
		return nil, err
	}

	return &project, nil
}

// List gets all projects, newest first
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *ProjectRepository) List(ctx context.Context) ([]*Project, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var projects []*Project

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT id, name, description, start_date, end_date, is_active,
			       created_by, created_at, updated_at
			FROM projects
			ORDER BY created_at DESC
		`
		return r.db.SelectContext(ctx, &projects, query)
	})

	if err != nil {
		return nil, err
	}

	return projects, nil
}

// ListIDs gets every project ID. Used by the periodic analytics sweep.
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *ProjectRepository) ListIDs(ctx context.Context) ([]string, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var ids []string

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &ids, `SELECT id FROM projects ORDER BY created_at`)
	})

	if err != nil {
		return nil, err
	}

	return ids, nil
}

// Update updates a project
// TENANT-ISOLATED: Updates only in the tenant's schema
func (r *ProjectRepository) Update(ctx context.Context, project *Project) error {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			UPDATE projects SET
				name = $2, description = $3, start_date = $4, end_date = $5,
				is_active = $6, updated_at = NOW()
			WHERE id = $1
		`
		result, err := r.db.ExecContext(ctx, query,
			project.ID, project.Name, project.Description, project.StartDate,
			project.EndDate, project.IsActive,
		)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("project")
		}

		return nil
	})
}

// Delete deletes a project
// TENANT-ISOLATED: Deletes only in the tenant's schema
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("project")
		}

		return nil
	})
}
