// Package service implements the analytics recompute pipeline. Every
// procedure is idempotent: rollups are written with atomic upserts, so
// re-running a recompute over unchanged source data rewrites identical rows.
package service

import (
	"context"
	"time"

	"github.com/taskflow/taskflow-backend/internal/analytics/repository"
	taskrepo "github.com/taskflow/taskflow-backend/internal/task/repository"
	"github.com/taskflow/taskflow-backend/pkg/clock"
	"github.com/taskflow/taskflow-backend/pkg/errors"
	"github.com/taskflow/taskflow-backend/pkg/logger"
	"github.com/taskflow/taskflow-backend/pkg/messaging"
	"github.com/taskflow/taskflow-backend/pkg/tenant"
)

// MetricsSource provides the aggregate queries recomputes are derived from.
type MetricsSource interface {
	EmployeeDay(ctx context.Context, userID string, day time.Time) (*repository.EmployeeDayMetrics, error)
	EmployeeWorkload(ctx context.Context, userID string, now time.Time) (*repository.EmployeeWorkloadMetrics, error)
	ProjectTasks(ctx context.Context, projectID string) (*repository.ProjectTaskMetrics, error)
	ListDelayCandidates(ctx context.Context) ([]*repository.DelayCandidate, error)
	DelayCandidate(ctx context.Context, taskID string) (*repository.DelayCandidate, error)
	CountTasksByStatus(ctx context.Context) ([]*repository.StatusCount, error)
	CountCompletedBetween(ctx context.Context, start, end time.Time) (int, error)
	SumHoursBetween(ctx context.Context, start, end time.Time) (float64, error)
}

// ProductivityStore holds productivity and workload rollups.
type ProductivityStore interface {
	UpsertProductivity(ctx context.Context, row *repository.EmployeeProductivity) error
	UpsertWorkload(ctx context.Context, row *repository.WorkloadDistribution) error
	ListByDateWithDepartment(ctx context.Context, day time.Time) ([]*repository.DepartmentProductivityRow, error)
	ListProductivityByUser(ctx context.Context, userID string, from, to time.Time) ([]*repository.EmployeeProductivity, error)
	ListWorkloadByUser(ctx context.Context, userID string, from, to time.Time) ([]*repository.WorkloadDistribution, error)
}

// DepartmentStore holds department rollups.
type DepartmentStore interface {
	Upsert(ctx context.Context, row *repository.DepartmentAnalytics) error
	ActiveHeadcounts(ctx context.Context) ([]*repository.DepartmentHeadcount, error)
	ListByDate(ctx context.Context, day time.Time) ([]*repository.DepartmentAnalytics, error)
}

// ProjectAnalyticsStore holds the per-project rollup.
type ProjectAnalyticsStore interface {
	Upsert(ctx context.Context, row *repository.ProjectAnalytics) error
	GetByProject(ctx context.Context, projectID string) (*repository.ProjectAnalytics, error)
}

// DelayStore holds the insert-once delay analyses.
type DelayStore interface {
	InsertOnce(ctx context.Context, row *repository.DelayAnalysis) (bool, error)
	List(ctx context.Context) ([]*repository.DelayAnalysis, error)
}

// ReportStore holds performance report snapshots.
type ReportStore interface {
	Create(ctx context.Context, report *repository.PerformanceReport) error
	GetByID(ctx context.Context, id string) (*repository.PerformanceReport, error)
	List(ctx context.Context) ([]*repository.PerformanceReport, error)
}

// SkillStore holds employee skill ratings.
type SkillStore interface {
	Upsert(ctx context.Context, rating *repository.SkillRating) error
	List(ctx context.Context, filter repository.SkillRatingFilter) ([]*repository.SkillRating, error)
}

// Directory lists the active employees the pipeline iterates over.
type Directory interface {
	ListActive(ctx context.Context) ([]*taskrepo.Employee, error)
}

// ProjectLister enumerates project IDs for the full sweep.
type ProjectLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// OverdueLister returns open assigned tasks past their due date.
type OverdueLister interface {
	ListOverdue(ctx context.Context, now time.Time) ([]*taskrepo.Task, error)
}

// AnalyticsService runs the rollup recomputes and serves their read path.
type AnalyticsService struct {
	metrics      MetricsSource
	productivity ProductivityStore
	departments  DepartmentStore
	projects     ProjectAnalyticsStore
	delays       DelayStore
	reports      ReportStore
	skills       SkillStore
	directory    Directory
	projectIDs   ProjectLister
	overdue      OverdueLister
	queue        messaging.Enqueuer
	clock        clock.Clock
	logger       *logger.Logger
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(
	metrics MetricsSource,
	productivity ProductivityStore,
	departments DepartmentStore,
	projects ProjectAnalyticsStore,
	delays DelayStore,
	reports ReportStore,
	skills SkillStore,
	directory Directory,
	projectIDs ProjectLister,
	overdue OverdueLister,
	queue messaging.Enqueuer,
	clk clock.Clock,
	log *logger.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		metrics:      metrics,
		productivity: productivity,
		departments:  departments,
		projects:     projects,
		delays:       delays,
		reports:      reports,
		skills:       skills,
		directory:    directory,
		projectIDs:   projectIDs,
		overdue:      overdue,
		queue:        queue,
		clock:        clk,
		logger:       log.WithComponent("analytics-service"),
	}
}

// ProductivityForUser returns a user's productivity rows for a date range
func (s *AnalyticsService) ProductivityForUser(ctx context.Context, userID string, from, to time.Time) ([]*repository.EmployeeProductivity, error) {
	return s.productivity.ListProductivityByUser(ctx, userID, from, to)
}

// WorkloadForUser returns a user's workload rows for a date range
func (s *AnalyticsService) WorkloadForUser(ctx context.Context, userID string, from, to time.Time) ([]*repository.WorkloadDistribution, error) {
	return s.productivity.ListWorkloadByUser(ctx, userID, from, to)
}

// DepartmentsForDate returns department rollups for a day
func (s *AnalyticsService) DepartmentsForDate(ctx context.Context, day time.Time) ([]*repository.DepartmentAnalytics, error) {
	return s.departments.ListByDate(ctx, day)
}

// ProjectAnalytics returns the rollup row for a project
func (s *AnalyticsService) ProjectAnalytics(ctx context.Context, projectID string) (*repository.ProjectAnalytics, error) {
	return s.projects.GetByProject(ctx, projectID)
}

// DelayAnalyses returns all recorded delay analyses
func (s *AnalyticsService) DelayAnalyses(ctx context.Context) ([]*repository.DelayAnalysis, error) {
	return s.delays.List(ctx)
}

// Reports returns all report snapshots
func (s *AnalyticsService) Reports(ctx context.Context) ([]*repository.PerformanceReport, error) {
	return s.reports.List(ctx)
}

// Report returns one report snapshot
func (s *AnalyticsService) Report(ctx context.Context, id string) (*repository.PerformanceReport, error) {
	return s.reports.GetByID(ctx, id)
}

// RateSkill records a rating of an employee skill. A rater's repeated rating
// of the same employee and skill overwrites the previous one.
func (s *AnalyticsService) RateSkill(ctx context.Context, rating *repository.SkillRating) error {
	if rating.Rating < 1 || rating.Rating > 5 {
		return errors.Validation(map[string]string{"rating": "must be between 1 and 5"})
	}
	return s.skills.Upsert(ctx, rating)
}

// SkillRatings returns skill ratings matching the filter
func (s *AnalyticsService) SkillRatings(ctx context.Context, filter repository.SkillRatingFilter) ([]*repository.SkillRating, error) {
	return s.skills.List(ctx, filter)
}

// enqueueNotification hands a notification to the work queue. Failures are
// logged, not propagated: notification delivery never fails a recompute.
func (s *AnalyticsService) enqueueNotification(ctx context.Context, job messaging.NotificationJob) {
	if job.TenantID == "" {
		if id, err := tenant.TenantID(ctx); err == nil {
			job.TenantID = id
		}
	}
	if job.TenantSchema == "" {
		if schema, err := tenant.TenantSchema(ctx); err == nil {
			job.TenantSchema = schema
		}
	}

	if err := s.queue.Enqueue(ctx, messaging.JobNotificationSend, job); err != nil {
		s.logger.Error().Err(err).
			Str("recipient_id", job.RecipientID).
			Str("kind", job.Kind).
			Msg("failed to enqueue notification")
	}
}
