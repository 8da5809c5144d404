package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/taskflow/taskflow-backend/pkg/database"
	"github.com/taskflow/taskflow-backend/pkg/tenant"
)

// SkillRating is a manager's 1-5 rating of one employee skill. A rater keeps
// one row per (employee, skill); rating again overwrites it.
type SkillRating struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	SkillName string    `db:"skill_name" json:"skill_name"`
	Rating    int       `db:"rating" json:"rating"`
	RatedBy   *string   `db:"rated_by" json:"rated_by,omitempty"`
	Comments  *string   `db:"comments" json:"comments,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SkillRatingFilter narrows skill rating listings.
type SkillRatingFilter struct {
	UserID    string
	SkillName string
}

// SkillRatingRepository handles employee skill ratings
type SkillRatingRepository struct {
	db *database.DB
}

// NewSkillRatingRepository creates a new skill rating repository
func NewSkillRatingRepository(db *database.DB) *SkillRatingRepository {
	return &SkillRatingRepository{db: db}
}

// Upsert writes a rating, overwriting the rater's previous rating for the
// same employee and skill
// TENANT-ISOLATED: Writes only in the tenant's schema
func (r *SkillRatingRepository) Upsert(ctx context.Context, rating *SkillRating) error {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			INSERT INTO employee_skill_ratings (user_id, skill_name, rating, rated_by, comments)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id, skill_name, rated_by) DO UPDATE SET
				rating = EXCLUDED.rating,
				comments = EXCLUDED.comments,
				updated_at = NOW()
			RETURNING id, created_at, updated_at
		`
		return r.db.QueryRowxContext(ctx, query,
			rating.UserID, rating.SkillName, rating.Rating, rating.RatedBy, rating.Comments,
		).Scan(&rating.ID, &rating.CreatedAt, &rating.UpdatedAt)
	})
}

// List returns skill ratings, optionally filtered by employee and skill
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *SkillRatingRepository) List(ctx context.Context, filter SkillRatingFilter) ([]*SkillRating, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.SkillName != "" {
		args = append(args, filter.SkillName)
		conditions = append(conditions, fmt.Sprintf("skill_name = $%d", len(args)))
	}

	var ratings []*SkillRating

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := fmt.Sprintf(`
			SELECT id, user_id, skill_name, rating, rated_by, comments, created_at, updated_at
			FROM employee_skill_ratings
			WHERE %s
			ORDER BY user_id, skill_name
		`, strings.Join(conditions, " AND "))
		return r.db.SelectContext(ctx, &ratings, query, args...)
	})

	if err != nil {
		return nil, err
	}

	return ratings, nil
}
