package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskflow/taskflow-backend/internal/task/repository"
	"github.com/taskflow/taskflow-backend/pkg/actor"
	"github.com/taskflow/taskflow-backend/pkg/errors"
	"github.com/taskflow/taskflow-backend/pkg/messaging"
	"github.com/taskflow/taskflow-backend/pkg/tenant"
	"github.com/taskflow/taskflow-backend/pkg/testutil"
)

type fakeHistory struct {
	entries []*repository.TaskHistory
	err     error
}

func (f *fakeHistory) Append(ctx context.Context, entry *repository.TaskHistory) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

type fakeDirectory struct {
	employees map[string]*repository.Employee
}

func (f *fakeDirectory) GetByID(ctx context.Context, userID string) (*repository.Employee, error) {
	if emp, ok := f.employees[userID]; ok {
		return emp, nil
	}
	return nil, errors.NotFound("employee")
}

func testContext() context.Context {
	ctx := tenant.WithTenantContext(context.Background(), "tenant-1", "acme", "tenant_acme")
	return actor.WithActor(ctx, &actor.Actor{
		ID:        "manager-1",
		FirstName: "Mina",
		LastName:  "Okafor",
		Email:     "mina@example.com",
		Role:      "MANAGER",
	})
}

func newTestRouter(history *fakeHistory, directory *fakeDirectory, queue *testutil.MockPublisher) *Router {
	if directory == nil {
		directory = &fakeDirectory{}
	}
	return NewRouter(history, directory, queue, queue, testutil.NewLogger())
}

func strPtr(s string) *string { return &s }

func TestTaskCreatedNotifiesAssignee(t *testing.T) {
	history := &fakeHistory{}
	queue := testutil.NewMockPublisher()
	router := newTestRouter(history, nil, queue)

	projectID := "project-1"
	task := &repository.Task{
		ID:         "task-1",
		Title:      "Write onboarding docs",
		ProjectID:  &projectID,
		AssignedTo: strPtr("employee-1"),
		CreatedBy:  "manager-1",
		Status:     repository.StatusTodo,
		Priority:   repository.PriorityMedium,
	}

	router.TaskCreated(testContext(), task)

	require.Len(t, history.entries, 1)
	assert.Equal(t, repository.ActionCreated, history.entries[0].Action)
	require.NotNil(t, history.entries[0].UserID)
	assert.Equal(t, "manager-1", *history.entries[0].UserID)

	payload := queue.AssertJobEnqueued(t, messaging.JobNotificationSend)
	job, ok := payload.(messaging.NotificationJob)
	require.True(t, ok)
	assert.Equal(t, "employee-1", job.RecipientID)
	assert.Equal(t, "tenant_acme", job.TenantSchema)

	recompute := queue.AssertJobEnqueued(t, messaging.JobProjectRecompute)
	assert.Equal(t, "project-1", recompute.(messaging.ProjectRecomputeJob).ProjectID)

	queue.AssertEventPublished(t, messaging.EventTaskCreated)
}

func TestTaskCreatedSelfAssignedSkipsNotification(t *testing.T) {
	history := &fakeHistory{}
	queue := testutil.NewMockPublisher()
	router := newTestRouter(history, nil, queue)

	task := &repository.Task{
		ID:         "task-1",
		Title:      "Self-assigned chore",
		AssignedTo: strPtr("manager-1"),
		CreatedBy:  "manager-1",
		Status:     repository.StatusTodo,
	}

	router.TaskCreated(testContext(), task)

	require.Len(t, history.entries, 1)
	assert.Empty(t, queue.JobsOfType(messaging.JobNotificationSend))
	assert.Empty(t, queue.JobsOfType(messaging.JobProjectRecompute), "no project, no recompute")
}

func TestTaskUpdatedReassignment(t *testing.T) {
	history := &fakeHistory{}
	directory := &fakeDirectory{employees: map[string]*repository.Employee{
		"user-b": {UserID: "user-b", FullName: "Bea Lindgren", Email: "bea@example.com"},
	}}
	queue := testutil.NewMockPublisher()
	router := newTestRouter(history, directory, queue)

	old := &repository.Task{ID: "task-1", Title: "Ship v2", AssignedTo: strPtr("user-a"), Status: repository.StatusInProgress, Priority: repository.PriorityHigh}
	updated := &repository.Task{ID: "task-1", Title: "Ship v2", AssignedTo: strPtr("user-b"), Status: repository.StatusInProgress, Priority: repository.PriorityHigh}

	router.TaskUpdated(testContext(), old, updated)

	// Exactly one ASSIGNED row and exactly one notification, to the new assignee.
	require.Len(t, history.entries, 1)
	assert.Equal(t, repository.ActionAssigned, history.entries[0].Action)
	require.NotNil(t, history.entries[0].NewValue)
	assert.Equal(t, "Bea Lindgren", *history.entries[0].NewValue)

	notifications := queue.JobsOfType(messaging.JobNotificationSend)
	require.Len(t, notifications, 1)
	assert.Equal(t, "user-b", notifications[0].Payload.(messaging.NotificationJob).RecipientID)
}

func TestTaskUpdatedUnassignment(t *testing.T) {
	history := &fakeHistory{}
	queue := testutil.NewMockPublisher()
	router := newTestRouter(history, nil, queue)

	old := &repository.Task{ID: "task-1", Title: "Ship v2", AssignedTo: strPtr("user-a"), Status: repository.StatusTodo}
	updated := &repository.Task{ID: "task-1", Title: "Ship v2", AssignedTo: nil, Status: repository.StatusTodo}

	router.TaskUpdated(testContext(), old, updated)

	require.Len(t, history.entries, 1)
	assert.Equal(t, repository.ActionAssigned, history.entries[0].Action)
	assert.Equal(t, "Unassigned", *history.entries[0].NewValue)
	assert.Empty(t, queue.JobsOfType(messaging.JobNotificationSend))
}

func TestTaskUpdatedStatusChange(t *testing.T) {
	history := &fakeHistory{}
	queue := testutil.NewMockPublisher()
	router := newTestRouter(history, nil, queue)

	projectID := "project-1"
	old := &repository.Task{ID: "task-1", Title: "Ship v2", ProjectID: &projectID, AssignedTo: strPtr("user-a"), Status: repository.StatusTodo}
	updated := &repository.Task{ID: "task-1", Title: "Ship v2", ProjectID: &projectID, AssignedTo: strPtr("user-a"), Status: repository.StatusInProgress}

	router.TaskUpdated(testContext(), old, updated)

	require.Len(t, history.entries, 1)
	entry := history.entries[0]
	assert.Equal(t, repository.ActionStatusChanged, entry.Action)
	assert.Equal(t, repository.StatusTodo, *entry.OldValue)
	assert.Equal(t, repository.StatusInProgress, *entry.NewValue)

	notifications := queue.JobsOfType(messaging.JobNotificationSend)
	require.Len(t, notifications, 1)
	assert.Equal(t, "user-a", notifications[0].Payload.(messaging.NotificationJob).RecipientID)

	// Project recompute runs regardless of which field changed.
	queue.AssertJobEnqueued(t, messaging.JobProjectRecompute)
	queue.AssertEventPublished(t, messaging.EventTaskStatusChanged)
}

func TestTaskUpdatedPriorityChange(t *testing.T) {
	history := &fakeHistory{}
	queue := testutil.NewMockPublisher()
	router := newTestRouter(history, nil, queue)

	old := &repository.Task{ID: "task-1", Title: "Ship v2", Status: repository.StatusTodo, Priority: repository.PriorityLow}
	updated := &repository.Task{ID: "task-1", Title: "Ship v2", Status: repository.StatusTodo, Priority: repository.PriorityUrgent}

	router.TaskUpdated(testContext(), old, updated)

	require.Len(t, history.entries, 1)
	assert.Equal(t, repository.ActionPriorityChanged, history.entries[0].Action)
	assert.Empty(t, queue.JobsOfType(messaging.JobNotificationSend))
}

func TestTaskUpdatedNoChanges(t *testing.T) {
	history := &fakeHistory{}
	queue := testutil.NewMockPublisher()
	router := newTestRouter(history, nil, queue)

	task := &repository.Task{ID: "task-1", Title: "Ship v2", Status: repository.StatusTodo, Priority: repository.PriorityLow}

	router.TaskUpdated(testContext(), task, task)

	assert.Empty(t, history.entries)
	assert.Empty(t, queue.EnqueuedJobs)
}

func TestHistoryFailureDoesNotPropagate(t *testing.T) {
	history := &fakeHistory{err: errors.Internal("history store unavailable")}
	queue := testutil.NewMockPublisher()
	router := newTestRouter(history, nil, queue)

	task := &repository.Task{ID: "task-1", Title: "Flaky audit", AssignedTo: strPtr("user-a"), CreatedBy: "manager-1", Status: repository.StatusTodo}

	// Must not panic; notification still goes out.
	router.TaskCreated(testContext(), task)
	queue.AssertJobEnqueued(t, messaging.JobNotificationSend)
}

func TestTaskDeletedAppendsTerminalEntry(t *testing.T) {
	history := &fakeHistory{}
	queue := testutil.NewMockPublisher()
	router := newTestRouter(history, nil, queue)

	task := &repository.Task{ID: "task-1", Title: "Obsolete task", Status: repository.StatusCancelled}

	router.TaskDeleted(testContext(), task)

	require.Len(t, history.entries, 1)
	assert.Equal(t, repository.ActionUpdated, history.entries[0].Action)
	assert.Contains(t, history.entries[0].Description, "deleted")
	assert.Empty(t, queue.EnqueuedJobs)
}

func TestTimeLogCreatedEnqueuesProductivityRecompute(t *testing.T) {
	history := &fakeHistory{}
	queue := testutil.NewMockPublisher()
	router := newTestRouter(history, nil, queue)

	logDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	router.TimeLogCreated(testContext(), &repository.TimeLog{
		ID:      "log-1",
		TaskID:  "task-1",
		UserID:  "user-a",
		Hours:   2.5,
		LogDate: logDate,
	})

	payload := queue.AssertJobEnqueued(t, messaging.JobProductivityRecompute)
	job := payload.(messaging.ProductivityRecomputeJob)
	assert.Equal(t, "user-a", job.EmployeeID, "recompute is scoped to the logging employee")
	assert.True(t, job.Date.Equal(logDate))
	assert.Equal(t, "tenant_acme", job.TenantSchema)
	queue.AssertEventPublished(t, messaging.EventTaskTimeLogged)
}

func TestTaskCompletionEnqueuesDelayAnalysis(t *testing.T) {
	history := &fakeHistory{}
	queue := testutil.NewMockPublisher()
	router := newTestRouter(history, nil, queue)

	old := &repository.Task{ID: "task-1", Title: "Ship v2", AssignedTo: strPtr("user-a"), Status: repository.StatusReview}
	updated := &repository.Task{ID: "task-1", Title: "Ship v2", AssignedTo: strPtr("user-a"), Status: repository.StatusCompleted}

	router.TaskUpdated(testContext(), old, updated)

	payload := queue.AssertJobEnqueued(t, messaging.JobDelaySweep)
	job := payload.(messaging.DelaySweepJob)
	assert.Equal(t, "task-1", job.TaskID)
	assert.Equal(t, "tenant_acme", job.TenantSchema)
}

func TestNonCompletionStatusChangeSkipsDelayAnalysis(t *testing.T) {
	history := &fakeHistory{}
	queue := testutil.NewMockPublisher()
	router := newTestRouter(history, nil, queue)

	old := &repository.Task{ID: "task-1", Title: "Ship v2", Status: repository.StatusTodo}
	updated := &repository.Task{ID: "task-1", Title: "Ship v2", Status: repository.StatusInProgress}

	router.TaskUpdated(testContext(), old, updated)

	assert.Empty(t, queue.JobsOfType(messaging.JobDelaySweep))
}
