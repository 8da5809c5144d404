package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/taskflow/taskflow-backend/pkg/database"
	"github.com/taskflow/taskflow-backend/pkg/errors"
	"github.com/taskflow/taskflow-backend/pkg/tenant"
)

// Report types
const (
	ReportDaily     = "DAILY"
	ReportWeekly    = "WEEKLY"
	ReportMonthly   = "MONTHLY"
	ReportQuarterly = "QUARTERLY"
	ReportYearly    = "YEARLY"
)

// PerformanceReport is an immutable summary snapshot for a date range.
type PerformanceReport struct {
	ID          string          `db:"id" json:"id"`
	ReportType  string          `db:"report_type" json:"report_type"`
	StartDate   time.Time       `db:"start_date" json:"start_date"`
	EndDate     time.Time       `db:"end_date" json:"end_date"`
	GeneratedBy *string         `db:"generated_by" json:"generated_by,omitempty"`
	Summary     json.RawMessage `db:"summary" json:"summary"`
	IsGenerated bool            `db:"is_generated" json:"is_generated"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// ReportRepository handles performance report snapshots
type ReportRepository struct {
	db *database.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *database.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create persists a report snapshot
// TENANT-ISOLATED: Writes only in the tenant's schema
func (r *ReportRepository) Create(ctx context.Context, report *PerformanceReport) error {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			INSERT INTO performance_reports (report_type, start_date, end_date, generated_by, summary, is_generated)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at
		`
		return r.db.QueryRowxContext(ctx, query,
			report.ReportType, report.StartDate, report.EndDate,
			report.GeneratedBy, report.Summary, report.IsGenerated,
		).Scan(&report.ID, &report.CreatedAt)
	})
}

// GetByID returns a report by ID
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*PerformanceReport, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var report PerformanceReport

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT id, report_type, start_date, end_date, generated_by, summary, is_generated, created_at
			FROM performance_reports
			WHERE id = $1
		`
		return r.db.GetContext(ctx, &report, query, id)
	})

	if err == sql.ErrNoRows {
		return nil, errors.NotFound("report")
	}
	if err != nil {
		return nil, err
	}

	return &report, nil
}

// List returns all reports, newest first
// TENANT-ISOLATED: Queries only the tenant's schema
func (r *ReportRepository) List(ctx context.Context) ([]*PerformanceReport, error) {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	var reports []*PerformanceReport

	err = r.db.WithTenantSchema(ctx, tenantSchema, func(ctx context.Context) error {
		query := `
			SELECT id, report_type, start_date, end_date, generated_by, summary, is_generated, created_at
			FROM performance_reports
			ORDER BY created_at DESC
		`
		return r.db.SelectContext(ctx, &reports, query)
	})

	if err != nil {
		return nil, err
	}

	return reports, nil
}
