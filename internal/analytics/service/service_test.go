package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflow/taskflow-backend/internal/analytics/repository"
	taskrepo "github.com/taskflow/taskflow-backend/internal/task/repository"
	"github.com/taskflow/taskflow-backend/pkg/clock"
	"github.com/taskflow/taskflow-backend/pkg/messaging"
	"github.com/taskflow/taskflow-backend/pkg/testutil"
)

type fakeMetrics struct {
	employeeDays    map[string]*repository.EmployeeDayMetrics
	workloads       map[string]*repository.EmployeeWorkloadMetrics
	projectTasks    map[string]*repository.ProjectTaskMetrics
	delayCandidates []*repository.DelayCandidate
	statusCounts    []*repository.StatusCount
	completed       int
	hours           float64
}

func (f *fakeMetrics) EmployeeDay(_ context.Context, userID string, _ time.Time) (*repository.EmployeeDayMetrics, error) {
	if m, ok := f.employeeDays[userID]; ok {
		return m, nil
	}
	return &repository.EmployeeDayMetrics{}, nil
}

func (f *fakeMetrics) EmployeeWorkload(_ context.Context, userID string, _ time.Time) (*repository.EmployeeWorkloadMetrics, error) {
	if m, ok := f.workloads[userID]; ok {
		return m, nil
	}
	return &repository.EmployeeWorkloadMetrics{}, nil
}

func (f *fakeMetrics) ProjectTasks(_ context.Context, projectID string) (*repository.ProjectTaskMetrics, error) {
	if m, ok := f.projectTasks[projectID]; ok {
		return m, nil
	}
	return &repository.ProjectTaskMetrics{}, nil
}

func (f *fakeMetrics) ListDelayCandidates(_ context.Context) ([]*repository.DelayCandidate, error) {
	return f.delayCandidates, nil
}

func (f *fakeMetrics) DelayCandidate(_ context.Context, taskID string) (*repository.DelayCandidate, error) {
	for _, c := range f.delayCandidates {
		if c.TaskID == taskID {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeMetrics) CountTasksByStatus(_ context.Context) ([]*repository.StatusCount, error) {
	return f.statusCounts, nil
}

func (f *fakeMetrics) CountCompletedBetween(_ context.Context, _, _ time.Time) (int, error) {
	return f.completed, nil
}

func (f *fakeMetrics) SumHoursBetween(_ context.Context, _, _ time.Time) (float64, error) {
	return f.hours, nil
}

type fakeProductivityStore struct {
	productivity map[string]repository.EmployeeProductivity
	workload     map[string]repository.WorkloadDistribution
	byDept       []*repository.DepartmentProductivityRow
}

func newFakeProductivityStore() *fakeProductivityStore {
	return &fakeProductivityStore{
		productivity: make(map[string]repository.EmployeeProductivity),
		workload:     make(map[string]repository.WorkloadDistribution),
	}
}

func rollupKey(userID string, day time.Time) string {
	return userID + "|" + day.Format("2006-01-02")
}

func (f *fakeProductivityStore) UpsertProductivity(_ context.Context, row *repository.EmployeeProductivity) error {
	f.productivity[rollupKey(row.UserID, row.Day)] = *row
	return nil
}

func (f *fakeProductivityStore) UpsertWorkload(_ context.Context, row *repository.WorkloadDistribution) error {
	f.workload[rollupKey(row.UserID, row.Day)] = *row
	return nil
}

func (f *fakeProductivityStore) ListByDateWithDepartment(_ context.Context, _ time.Time) ([]*repository.DepartmentProductivityRow, error) {
	return f.byDept, nil
}

func (f *fakeProductivityStore) ListProductivityByUser(_ context.Context, userID string, from, to time.Time) ([]*repository.EmployeeProductivity, error) {
	var out []*repository.EmployeeProductivity
	for key := range f.productivity {
		row := f.productivity[key]
		if row.UserID == userID && !row.Day.Before(from) && !row.Day.After(to) {
			out = append(out, &row)
		}
	}
	return out, nil
}

func (f *fakeProductivityStore) ListWorkloadByUser(_ context.Context, _ string, _, _ time.Time) ([]*repository.WorkloadDistribution, error) {
	return nil, nil
}

type fakeDepartmentStore struct {
	headcounts []*repository.DepartmentHeadcount
	upserted   map[string]repository.DepartmentAnalytics
}

func newFakeDepartmentStore(headcounts ...*repository.DepartmentHeadcount) *fakeDepartmentStore {
	return &fakeDepartmentStore{
		headcounts: headcounts,
		upserted:   make(map[string]repository.DepartmentAnalytics),
	}
}

func (f *fakeDepartmentStore) Upsert(_ context.Context, row *repository.DepartmentAnalytics) error {
	f.upserted[row.Department] = *row
	return nil
}

func (f *fakeDepartmentStore) ActiveHeadcounts(_ context.Context) ([]*repository.DepartmentHeadcount, error) {
	return f.headcounts, nil
}

func (f *fakeDepartmentStore) ListByDate(_ context.Context, _ time.Time) ([]*repository.DepartmentAnalytics, error) {
	return nil, nil
}

type fakeProjectAnalyticsStore struct {
	upserted map[string]repository.ProjectAnalytics
}

func (f *fakeProjectAnalyticsStore) Upsert(_ context.Context, row *repository.ProjectAnalytics) error {
	if f.upserted == nil {
		f.upserted = make(map[string]repository.ProjectAnalytics)
	}
	f.upserted[row.ProjectID] = *row
	return nil
}

func (f *fakeProjectAnalyticsStore) GetByProject(_ context.Context, projectID string) (*repository.ProjectAnalytics, error) {
	row := f.upserted[projectID]
	return &row, nil
}

type fakeDelayStore struct {
	rows map[string]repository.DelayAnalysis
}

func newFakeDelayStore() *fakeDelayStore {
	return &fakeDelayStore{rows: make(map[string]repository.DelayAnalysis)}
}

func (f *fakeDelayStore) InsertOnce(_ context.Context, row *repository.DelayAnalysis) (bool, error) {
	if _, exists := f.rows[row.TaskID]; exists {
		return false, nil
	}
	f.rows[row.TaskID] = *row
	return true, nil
}

func (f *fakeDelayStore) List(_ context.Context) ([]*repository.DelayAnalysis, error) {
	var out []*repository.DelayAnalysis
	for id := range f.rows {
		row := f.rows[id]
		out = append(out, &row)
	}
	return out, nil
}

type fakeReportStore struct {
	created []*repository.PerformanceReport
}

func (f *fakeReportStore) Create(_ context.Context, report *repository.PerformanceReport) error {
	report.ID = "report-1"
	report.CreatedAt = time.Now()
	f.created = append(f.created, report)
	return nil
}

func (f *fakeReportStore) GetByID(_ context.Context, _ string) (*repository.PerformanceReport, error) {
	return nil, nil
}

func (f *fakeReportStore) List(_ context.Context) ([]*repository.PerformanceReport, error) {
	return f.created, nil
}

type fakeSkillStore struct {
	ratings map[string]repository.SkillRating
}

func newFakeSkillStore() *fakeSkillStore {
	return &fakeSkillStore{ratings: make(map[string]repository.SkillRating)}
}

func skillKey(r *repository.SkillRating) string {
	rater := ""
	if r.RatedBy != nil {
		rater = *r.RatedBy
	}
	return r.UserID + "|" + r.SkillName + "|" + rater
}

func (f *fakeSkillStore) Upsert(_ context.Context, rating *repository.SkillRating) error {
	f.ratings[skillKey(rating)] = *rating
	return nil
}

func (f *fakeSkillStore) List(_ context.Context, filter repository.SkillRatingFilter) ([]*repository.SkillRating, error) {
	var out []*repository.SkillRating
	for key := range f.ratings {
		row := f.ratings[key]
		if filter.UserID != "" && row.UserID != filter.UserID {
			continue
		}
		if filter.SkillName != "" && row.SkillName != filter.SkillName {
			continue
		}
		out = append(out, &row)
	}
	return out, nil
}

type fakeDirectory struct {
	employees []*taskrepo.Employee
}

func (f *fakeDirectory) ListActive(_ context.Context) ([]*taskrepo.Employee, error) {
	return f.employees, nil
}

type fakeProjectLister struct {
	ids []string
}

func (f *fakeProjectLister) ListIDs(_ context.Context) ([]string, error) {
	return f.ids, nil
}

type fakeOverdueLister struct {
	tasks []*taskrepo.Task
}

func (f *fakeOverdueLister) ListOverdue(_ context.Context, _ time.Time) ([]*taskrepo.Task, error) {
	return f.tasks, nil
}

type analyticsFixture struct {
	svc          *AnalyticsService
	metrics      *fakeMetrics
	productivity *fakeProductivityStore
	departments  *fakeDepartmentStore
	projects     *fakeProjectAnalyticsStore
	delays       *fakeDelayStore
	reports      *fakeReportStore
	skills       *fakeSkillStore
	directory    *fakeDirectory
	projectIDs   *fakeProjectLister
	overdue      *fakeOverdueLister
	queue        *testutil.MockPublisher
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newFixture() *analyticsFixture {
	f := &analyticsFixture{
		metrics: &fakeMetrics{
			employeeDays: make(map[string]*repository.EmployeeDayMetrics),
			workloads:    make(map[string]*repository.EmployeeWorkloadMetrics),
			projectTasks: make(map[string]*repository.ProjectTaskMetrics),
		},
		productivity: newFakeProductivityStore(),
		departments:  newFakeDepartmentStore(),
		projects:     &fakeProjectAnalyticsStore{},
		delays:       newFakeDelayStore(),
		reports:      &fakeReportStore{},
		skills:       newFakeSkillStore(),
		directory:    &fakeDirectory{},
		projectIDs:   &fakeProjectLister{},
		overdue:      &fakeOverdueLister{},
		queue:        &testutil.MockPublisher{},
	}
	f.svc = NewAnalyticsService(
		f.metrics, f.productivity, f.departments, f.projects, f.delays,
		f.reports, f.skills, f.directory, f.projectIDs, f.overdue, f.queue,
		clock.Fixed(testNow), testutil.NewLogger(),
	)
	return f
}

func employee(userID string, department string) *taskrepo.Employee {
	var dept *string
	if department != "" {
		dept = &department
	}
	return &taskrepo.Employee{
		UserID:     userID,
		FullName:   "Employee " + userID,
		Email:      userID + "@example.com",
		Role:       "EMPLOYEE",
		Department: dept,
		IsActive:   true,
	}
}

func TestEfficiencyFiveCompletedTenHours(t *testing.T) {
	f := newFixture()
	f.directory.employees = []*taskrepo.Employee{employee("user-a", "Engineering")}
	f.metrics.employeeDays["user-a"] = &repository.EmployeeDayMetrics{
		TasksAssigned:  12,
		TasksCompleted: 5,
		HoursLogged:    10,
	}

	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.svc.RecomputeDailyProductivity(context.Background(), day))

	row, ok := f.productivity.productivity[rollupKey("user-a", day)]
	require.True(t, ok)
	assert.Equal(t, 50.00, row.EfficiencyScore)
	assert.Equal(t, 5, row.TasksCompleted)
	assert.Equal(t, 12, row.TasksAssigned)
}

func TestEfficiencyZeroWhenNoHoursLogged(t *testing.T) {
	f := newFixture()
	f.directory.employees = []*taskrepo.Employee{employee("user-a", "")}
	f.metrics.employeeDays["user-a"] = &repository.EmployeeDayMetrics{
		TasksAssigned:  3,
		TasksCompleted: 2,
		HoursLogged:    0,
	}

	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.svc.RecomputeDailyProductivity(context.Background(), day))

	row := f.productivity.productivity[rollupKey("user-a", day)]
	assert.Equal(t, 0.0, row.EfficiencyScore)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	f := newFixture()
	f.directory.employees = []*taskrepo.Employee{employee("user-a", "Engineering")}
	f.metrics.employeeDays["user-a"] = &repository.EmployeeDayMetrics{
		TasksAssigned:  7,
		TasksCompleted: 3,
		HoursLogged:    6.5,
	}
	f.metrics.workloads["user-a"] = &repository.EmployeeWorkloadMetrics{
		ActiveTasksCount:    4,
		TotalEstimatedHours: 5,
		OverdueTasksCount:   1,
	}

	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.svc.RecomputeDailyProductivity(context.Background(), day))
	first := f.productivity.productivity[rollupKey("user-a", day)]
	firstWorkload := f.productivity.workload[rollupKey("user-a", day)]

	require.NoError(t, f.svc.RecomputeDailyProductivity(context.Background(), day))
	assert.Equal(t, first, f.productivity.productivity[rollupKey("user-a", day)])
	assert.Equal(t, firstWorkload, f.productivity.workload[rollupKey("user-a", day)])
	assert.Len(t, f.productivity.productivity, 1)
	assert.Len(t, f.productivity.workload, 1)
}

func TestWorkloadScoreClampedToHundred(t *testing.T) {
	f := newFixture()
	f.directory.employees = []*taskrepo.Employee{employee("user-a", "")}
	f.metrics.workloads["user-a"] = &repository.EmployeeWorkloadMetrics{
		ActiveTasksCount:    30,
		TotalEstimatedHours: 5000,
	}

	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.svc.RecomputeDailyProductivity(context.Background(), day))

	row := f.productivity.workload[rollupKey("user-a", day)]
	assert.Equal(t, 100.0, row.WorkloadScore)
}

func TestWorkloadScoreZeroWhenNoEstimatedHours(t *testing.T) {
	f := newFixture()
	f.directory.employees = []*taskrepo.Employee{employee("user-a", "")}
	f.metrics.workloads["user-a"] = &repository.EmployeeWorkloadMetrics{
		ActiveTasksCount: 2,
	}

	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.svc.RecomputeDailyProductivity(context.Background(), day))

	row := f.productivity.workload[rollupKey("user-a", day)]
	assert.Equal(t, 0.0, row.WorkloadScore)
}

func TestAggregateDepartmentsSumsRows(t *testing.T) {
	f := newFixture()
	f.departments.headcounts = []*repository.DepartmentHeadcount{
		{Department: "Engineering", Count: 2},
	}
	f.productivity.byDept = []*repository.DepartmentProductivityRow{
		{Department: "Engineering", TasksAssigned: 10, TasksCompleted: 4, HoursLogged: 8, EfficiencyScore: 50},
		{Department: "Engineering", TasksAssigned: 6, TasksCompleted: 2, HoursLogged: 4, EfficiencyScore: 50},
	}

	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.svc.AggregateDepartments(context.Background(), day))

	row, ok := f.departments.upserted["Engineering"]
	require.True(t, ok)
	assert.Equal(t, 2, row.TotalEmployees)
	assert.Equal(t, 10, row.ActiveTasks) // (10-4) + (6-2)
	assert.Equal(t, 6, row.CompletedTasks)
	assert.Equal(t, 12.0, row.TotalHoursLogged)
	assert.Equal(t, 50.0, row.AverageEfficiency)
}

func TestAggregateDepartmentsEmptyDepartmentZeroEfficiency(t *testing.T) {
	f := newFixture()
	f.departments.headcounts = []*repository.DepartmentHeadcount{
		{Department: "Support", Count: 3},
	}

	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.svc.AggregateDepartments(context.Background(), day))

	row, ok := f.departments.upserted["Support"]
	require.True(t, ok)
	assert.Equal(t, 0.0, row.AverageEfficiency)
	assert.Equal(t, 0, row.ActiveTasks)
	assert.Equal(t, 3, row.TotalEmployees)
}

func TestRecomputeProjectZeroTasks(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.svc.RecomputeProject(context.Background(), "project-1"))

	row := f.projects.upserted["project-1"]
	assert.Equal(t, 0, row.TotalTasks)
	assert.Equal(t, 0.0, row.CompletionPercentage)
	assert.Equal(t, 0.0, row.AverageTaskDuration)
}

func TestRecomputeProjectCompletionPercentage(t *testing.T) {
	f := newFixture()
	f.metrics.projectTasks["project-1"] = &repository.ProjectTaskMetrics{
		TotalTasks:           8,
		CompletedTasks:       2,
		TotalHoursEstimated:  40,
		TotalHoursActual:     25,
		AverageDurationHours: 30.5,
	}

	require.NoError(t, f.svc.RecomputeProject(context.Background(), "project-1"))

	row := f.projects.upserted["project-1"]
	assert.Equal(t, 25.0, row.CompletionPercentage)
	assert.Equal(t, 30.5, row.AverageTaskDuration)
}

func TestRecomputeAllProjectsSweep(t *testing.T) {
	f := newFixture()
	f.projectIDs.ids = []string{"project-1", "project-2"}

	require.NoError(t, f.svc.RecomputeAllProjects(context.Background()))

	assert.Len(t, f.projects.upserted, 2)
}

func TestDelayAnalysisOverrunScenario(t *testing.T) {
	f := newFixture()
	assignee := "user-b"
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	due := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	completed := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	f.metrics.delayCandidates = []*repository.DelayCandidate{
		{TaskID: "task-1", Title: "Ship release", AssignedTo: &assignee, CreatedAt: created, DueDate: &due, CompletedAt: completed},
	}

	require.NoError(t, f.svc.AnalyzeDelays(context.Background()))

	row, ok := f.delays.rows["task-1"]
	require.True(t, ok)
	require.NotNil(t, row.PlannedDuration)
	require.NotNil(t, row.DelayPercentage)
	assert.Equal(t, 48.0, *row.PlannedDuration)
	assert.Equal(t, 96.0, row.ActualDuration)
	assert.Equal(t, 48.0, row.DelayHours)
	assert.Equal(t, 100.0, *row.DelayPercentage)

	payload := f.queue.AssertJobEnqueued(t, messaging.JobNotificationSend)
	job, ok := payload.(messaging.NotificationJob)
	require.True(t, ok)
	assert.Equal(t, "user-b", job.RecipientID)
	assert.Equal(t, "task_delayed", job.Kind)
}

func TestDelayAnalysisSecondRunIsNoop(t *testing.T) {
	f := newFixture()
	assignee := "user-b"
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	due := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	completed := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	f.metrics.delayCandidates = []*repository.DelayCandidate{
		{TaskID: "task-1", Title: "Ship release", AssignedTo: &assignee, CreatedAt: created, DueDate: &due, CompletedAt: completed},
	}

	require.NoError(t, f.svc.AnalyzeDelays(context.Background()))
	require.NoError(t, f.svc.AnalyzeDelays(context.Background()))

	assert.Len(t, f.delays.rows, 1)
	assert.Len(t, f.queue.JobsOfType(messaging.JobNotificationSend), 1)
}

func TestDelayAnalysisNoDueDate(t *testing.T) {
	f := newFixture()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	completed := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	f.metrics.delayCandidates = []*repository.DelayCandidate{
		{TaskID: "task-1", Title: "Untimed work", CreatedAt: created, CompletedAt: completed},
	}

	require.NoError(t, f.svc.AnalyzeDelays(context.Background()))

	row, ok := f.delays.rows["task-1"]
	require.True(t, ok)
	assert.Nil(t, row.PlannedDuration)
	assert.Nil(t, row.DelayPercentage)
	assert.Equal(t, 24.0, row.ActualDuration)
	assert.Empty(t, f.queue.JobsOfType(messaging.JobNotificationSend))
}

func TestDelayAnalysisOnTimeNoNotification(t *testing.T) {
	f := newFixture()
	assignee := "user-b"
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	due := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	completed := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	f.metrics.delayCandidates = []*repository.DelayCandidate{
		{TaskID: "task-1", Title: "Early finish", AssignedTo: &assignee, CreatedAt: created, DueDate: &due, CompletedAt: completed},
	}

	require.NoError(t, f.svc.AnalyzeDelays(context.Background()))

	row := f.delays.rows["task-1"]
	assert.Equal(t, 0.0, row.DelayHours)
	require.NotNil(t, row.DelayPercentage)
	assert.Equal(t, 0.0, *row.DelayPercentage)
	assert.Empty(t, f.queue.JobsOfType(messaging.JobNotificationSend))
}

func TestNotifyOverdueEnqueuesPerAssignedTask(t *testing.T) {
	f := newFixture()
	assignee := "user-c"
	due := testNow.Add(-48 * time.Hour)
	f.overdue.tasks = []*taskrepo.Task{
		{ID: "task-1", Title: "Late task", AssignedTo: &assignee, DueDate: &due},
		{ID: "task-2", Title: "Unassigned late task", DueDate: &due},
	}

	require.NoError(t, f.svc.NotifyOverdue(context.Background()))

	jobs := f.queue.JobsOfType(messaging.JobNotificationSend)
	require.Len(t, jobs, 1)
	job := jobs[0].Payload.(messaging.NotificationJob)
	assert.Equal(t, "user-c", job.RecipientID)
	assert.Equal(t, "task_overdue", job.Kind)
}

func TestGenerateReportSnapshot(t *testing.T) {
	f := newFixture()
	f.metrics.statusCounts = []*repository.StatusCount{
		{Status: "TODO", Count: 4},
		{Status: "COMPLETED", Count: 6},
	}
	f.metrics.completed = 6
	f.metrics.hours = 32.5
	f.directory.employees = []*taskrepo.Employee{employee("user-a", ""), employee("user-b", "")}

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	report, err := f.svc.GenerateReport(context.Background(), repository.ReportWeekly, start, end, "user-a")
	require.NoError(t, err)

	assert.Equal(t, repository.ReportWeekly, report.ReportType)
	assert.True(t, report.IsGenerated)
	assert.JSONEq(t, `{
		"tasks_by_status": {"TODO": 4, "COMPLETED": 6},
		"completed_in_period": 6,
		"hours_logged": 32.5,
		"active_employees": 2
	}`, string(report.Summary))
}

func TestGenerateReportRejectsInvalidType(t *testing.T) {
	f := newFixture()

	_, err := f.svc.GenerateReport(context.Background(), "HOURLY", testNow, testNow, "")
	assert.Error(t, err)
}

func TestRecomputeEmployeeScopedToOneUser(t *testing.T) {
	f := newFixture()
	f.directory.employees = []*taskrepo.Employee{employee("user-a", ""), employee("user-b", "")}
	f.metrics.employeeDays["user-a"] = &repository.EmployeeDayMetrics{TasksCompleted: 2, HoursLogged: 4}
	f.metrics.employeeDays["user-b"] = &repository.EmployeeDayMetrics{TasksCompleted: 9, HoursLogged: 9}

	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.svc.RecomputeEmployeeProductivity(context.Background(), "user-a", day))

	require.Len(t, f.productivity.productivity, 1)
	row, ok := f.productivity.productivity[rollupKey("user-a", day)]
	require.True(t, ok)
	assert.Equal(t, 50.0, row.EfficiencyScore)
}

func TestAggregateDepartmentScopedWritesOneRow(t *testing.T) {
	f := newFixture()
	f.departments.headcounts = []*repository.DepartmentHeadcount{
		{Department: "Engineering", Count: 2},
		{Department: "Support", Count: 3},
	}
	f.productivity.byDept = []*repository.DepartmentProductivityRow{
		{Department: "Engineering", TasksAssigned: 4, TasksCompleted: 1, HoursLogged: 2, EfficiencyScore: 50},
		{Department: "Support", TasksAssigned: 8, TasksCompleted: 2, HoursLogged: 5, EfficiencyScore: 40},
	}

	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.svc.AggregateDepartment(context.Background(), "Support", day))

	require.Len(t, f.departments.upserted, 1)
	row, ok := f.departments.upserted["Support"]
	require.True(t, ok)
	assert.Equal(t, 6, row.ActiveTasks)
	assert.Equal(t, 40.0, row.AverageEfficiency)
}

func TestAnalyzeTaskDelayScopedToOneTask(t *testing.T) {
	f := newFixture()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	due := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	completed := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	f.metrics.delayCandidates = []*repository.DelayCandidate{
		{TaskID: "task-1", Title: "Ship release", CreatedAt: created, DueDate: &due, CompletedAt: completed},
		{TaskID: "task-2", Title: "Other work", CreatedAt: created, CompletedAt: completed},
	}

	require.NoError(t, f.svc.AnalyzeTaskDelay(context.Background(), "task-1"))

	require.Len(t, f.delays.rows, 1)
	row, ok := f.delays.rows["task-1"]
	require.True(t, ok)
	require.NotNil(t, row.DelayPercentage)
	assert.Equal(t, 100.0, *row.DelayPercentage)
}

func TestAnalyzeTaskDelayNonCandidateIsNoop(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.svc.AnalyzeTaskDelay(context.Background(), "task-unknown"))

	assert.Empty(t, f.delays.rows)
	assert.Empty(t, f.queue.EnqueuedJobs)
}

func TestDailySummaryEnqueuesPerEmployee(t *testing.T) {
	f := newFixture()
	f.directory.employees = []*taskrepo.Employee{employee("user-a", ""), employee("user-b", "")}
	f.metrics.workloads["user-a"] = &repository.EmployeeWorkloadMetrics{
		ActiveTasksCount:  3,
		OverdueTasksCount: 1,
	}

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.productivity.UpsertProductivity(context.Background(), &repository.EmployeeProductivity{
		UserID:          "user-a",
		Day:             day,
		TasksCompleted:  5,
		TasksAssigned:   12,
		HoursLogged:     10,
		EfficiencyScore: 50,
	}))

	require.NoError(t, f.svc.SendDailySummaries(context.Background(), day))

	jobs := f.queue.JobsOfType(messaging.JobNotificationSend)
	require.Len(t, jobs, 2)

	byRecipient := make(map[string]messaging.NotificationJob)
	for _, j := range jobs {
		job := j.Payload.(messaging.NotificationJob)
		assert.Equal(t, "daily_summary", job.Kind)
		byRecipient[job.RecipientID] = job
	}

	withData := byRecipient["user-a"]
	assert.Contains(t, withData.Subject, "2026-03-10")
	assert.Contains(t, withData.Body, "Tasks completed: 5")
	assert.Contains(t, withData.Body, "Pending tasks: 3")
	assert.Contains(t, withData.Body, "Overdue tasks: 1")

	withoutData := byRecipient["user-b"]
	assert.Contains(t, withoutData.Body, "No productivity data recorded for today.")
}

func TestRateSkillRejectsOutOfRange(t *testing.T) {
	f := newFixture()

	err := f.svc.RateSkill(context.Background(), &repository.SkillRating{
		UserID:    "user-a",
		SkillName: "Go",
		Rating:    6,
	})
	assert.Error(t, err)
	assert.Empty(t, f.skills.ratings)
}

func TestRateSkillSameRaterOverwrites(t *testing.T) {
	f := newFixture()
	rater := "manager-1"

	require.NoError(t, f.svc.RateSkill(context.Background(), &repository.SkillRating{
		UserID: "user-a", SkillName: "Go", Rating: 3, RatedBy: &rater,
	}))
	require.NoError(t, f.svc.RateSkill(context.Background(), &repository.SkillRating{
		UserID: "user-a", SkillName: "Go", Rating: 5, RatedBy: &rater,
	}))

	ratings, err := f.svc.SkillRatings(context.Background(), repository.SkillRatingFilter{UserID: "user-a"})
	require.NoError(t, err)
	require.Len(t, ratings, 1)
	assert.Equal(t, 5, ratings[0].Rating)
}
