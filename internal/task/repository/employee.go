package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/taskflow/taskflow-backend/pkg/database"
	"github.com/taskflow/taskflow-backend/pkg/errors"
	"github.com/taskflow/taskflow-backend/pkg/tenant"
)

// Employee is a directory entry synced from the identity service's user
// events. It is the source of "active employees" for the analytics pipeline
// and the recipient lookup for notifications.
type Employee struct {
	UserID     string    `db:"user_id" json:"user_id"`
	FullName   string    `db:"full_name" json:"full_name"`
	Email      string    `db:"email" json:"email"`
	Role       string    `db:"role" json:"role"`
	Department *string   `db:"department" json:"department,omitempty"`
	Position   string    `db:"position" json:"position"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// EmployeeRepository handles the event-synced employee directory
type EmployeeRepository struct {
	db *database.DB
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *database.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// Upsert inserts or refreshes a directory entry. Events can arrive out of
// order or more than once, so the write is a single atomic upsert.
// TENANT-ISOLATED: Writes only in the tenant's schema
func (r *EmployeeRepository) Upsert(ctx context.Context, emp *Employee) error {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			INSERT INTO employees (user_id, full_name, email, role, department, position, is_active, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			ON CONFLICT (user_id) DO UPDATE SET
				full_name = EXCLUDED.full_name,
				email = EXCLUDED.email,
				role = EXCLUDED.role,
				department = EXCLUDED.department,
				position = EXCLUDED.position,
				is_active = EXCLUDED.is_active,
				updated_at = NOW()
		`
		_, err := r.db.ExecContext(ctx, query,
			emp.UserID, emp.FullName, emp.Email, emp.Role,
			emp.Department, emp.Position, emp.IsActive,
		)
		return err
	})
}

// GetByID gets a directory entry by user ID
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *EmployeeRepository) GetByID(ctx context.Context, userID string) (*Employee, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var emp Employee

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT user_id, full_name, email, role, department, position, is_active, updated_at
			FROM employees
			WHERE user_id = $1
		`
		return r.db.GetContext(ctx, &emp, query, userID)
	})

	if err == sql.ErrNoRows {
		return nil, errors.NotFound("employee")
	}
	if err != nil {
		return nil, err
	}

	return &emp, nil
}

// ListActive gets all active directory entries
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *EmployeeRepository) ListActive(ctx context.Context) ([]*Employee, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var emps []*Employee

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT user_id, full_name, email, role, department, position, is_active, updated_at
			FROM employees
			WHERE is_active = TRUE
			ORDER BY full_name
		`
		return r.db.SelectContext(ctx, &emps, query)
	})

	if err != nil {
		return nil, err
	}

	return emps, nil
}

// Deactivate marks a directory entry inactive. Deletion events keep the row
// so historical attribution joins still resolve.
// TENANT-ISOLATED: Writes only in the tenant's schema
func (r *EmployeeRepository) Deactivate(ctx context.Context, userID string) error {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx,
			`UPDATE employees SET is_active = FALSE, updated_at = NOW() WHERE user_id = $1`,
			userID,
		)
		return err
	})
}
