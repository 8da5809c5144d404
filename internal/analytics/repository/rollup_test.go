package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflow/taskflow-backend/pkg/tenant"
	"github.com/taskflow/taskflow-backend/pkg/testutil"
)

const testSchema = "tenant_acme"

func tenantCtx() context.Context {
	return tenant.WithTenantContext(context.Background(), "tenant-1", "acme", testSchema)
}

func TestUpsertProductivityConflictOnUserAndDay(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectTenantExec(testSchema, "ON CONFLICT (user_id, day) DO UPDATE", sqlmock.NewResult(1, 1))

	repo := NewProductivityRepository(mockDB.DB)
	err := repo.UpsertProductivity(tenantCtx(), &EmployeeProductivity{
		UserID:          "user-1",
		Day:             time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		TasksCompleted:  5,
		TasksAssigned:   12,
		HoursLogged:     10,
		EfficiencyScore: 50,
	})

	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}

func TestDelayInsertOnceReportsInsertion(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectTenantExec(testSchema, "ON CONFLICT (task_id) DO NOTHING", sqlmock.NewResult(1, 1))

	repo := NewDelayRepository(mockDB.DB)
	planned := 48.0
	pct := 100.0
	inserted, err := repo.InsertOnce(tenantCtx(), &DelayAnalysis{
		TaskID:          "task-1",
		PlannedDuration: &planned,
		ActualDuration:  96,
		DelayHours:      48,
		DelayPercentage: &pct,
	})

	require.NoError(t, err)
	assert.True(t, inserted)
	mockDB.ExpectationsWereMet(t)
}

func TestDelayInsertOnceSkipsAnalyzedTask(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	// Conflict: no row written
	mockDB.ExpectTenantExec(testSchema, "ON CONFLICT (task_id) DO NOTHING", sqlmock.NewResult(0, 0))

	repo := NewDelayRepository(mockDB.DB)
	inserted, err := repo.InsertOnce(tenantCtx(), &DelayAnalysis{TaskID: "task-1"})

	require.NoError(t, err)
	assert.False(t, inserted)
	mockDB.ExpectationsWereMet(t)
}

func TestProjectAnalyticsUpsertOverwritesInPlace(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectTenantExec(testSchema, "ON CONFLICT (project_id) DO UPDATE", sqlmock.NewResult(1, 1))

	repo := NewProjectAnalyticsRepository(mockDB.DB)
	err := repo.Upsert(tenantCtx(), &ProjectAnalytics{
		ProjectID:            "project-1",
		TotalTasks:           8,
		CompletedTasks:       2,
		CompletionPercentage: 25,
	})

	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}

func TestSkillRatingUpsertConflictOnRater(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	now := time.Now()
	rows := testutil.MockRows("id", "created_at", "updated_at").
		AddRow("rating-1", now, now)
	mockDB.ExpectTenantQuery(testSchema, "ON CONFLICT (user_id, skill_name, rated_by) DO UPDATE", rows)

	rater := "manager-1"
	rating := &SkillRating{
		UserID:    "user-1",
		SkillName: "Go",
		Rating:    4,
		RatedBy:   &rater,
	}

	repo := NewSkillRatingRepository(mockDB.DB)
	require.NoError(t, repo.Upsert(tenantCtx(), rating))

	assert.Equal(t, "rating-1", rating.ID)
	mockDB.ExpectationsWereMet(t)
}

func TestDelayCandidateNilWhenAlreadyAnalyzed(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectTenantBegin(testSchema)
	mockDB.ExpectQuery("d.task_id IS NULL").WillReturnError(sql.ErrNoRows)
	mockDB.ExpectTenantRollback()

	repo := NewMetricsRepository(mockDB.DB)
	candidate, err := repo.DelayCandidate(tenantCtx(), "task-1")

	require.NoError(t, err)
	assert.Nil(t, candidate)
	mockDB.ExpectationsWereMet(t)
}

func TestEmployeeDayZeroCase(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	rows := testutil.MockRows("tasks_assigned", "tasks_completed", "hours_logged").
		AddRow(0, 0, 0.0)
	mockDB.ExpectTenantQuery(testSchema, "SELECT", rows)

	repo := NewMetricsRepository(mockDB.DB)
	m, err := repo.EmployeeDay(tenantCtx(), "user-1", time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Zero(t, m.TasksAssigned)
	assert.Zero(t, m.TasksCompleted)
	assert.Zero(t, m.HoursLogged)
	mockDB.ExpectationsWereMet(t)
}
