package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskflow/taskflow-backend/internal/task/repository"
	"github.com/taskflow/taskflow-backend/pkg/clock"
	"github.com/taskflow/taskflow-backend/pkg/errors"
	"github.com/taskflow/taskflow-backend/pkg/testutil"
)

type fakeTaskStore struct {
	tasks   map[string]*repository.Task
	nextID  int
	deleted []string
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[string]*repository.Task)}
}

func (f *fakeTaskStore) Create(ctx context.Context, task *repository.Task) error {
	if task.ID == "" {
		f.nextID++
		task.ID = "task-" + string(rune('0'+f.nextID))
	}
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	copied := *task
	f.tasks[task.ID] = &copied
	return nil
}

func (f *fakeTaskStore) GetByID(ctx context.Context, id string) (*repository.Task, error) {
	task, ok := f.tasks[id]
	if !ok {
		return nil, errors.NotFound("task")
	}
	copied := *task
	return &copied, nil
}

func (f *fakeTaskStore) List(ctx context.Context, filter repository.TaskFilter) ([]*repository.Task, error) {
	var out []*repository.Task
	for _, t := range f.tasks {
		copied := *t
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeTaskStore) Update(ctx context.Context, task *repository.Task) error {
	if _, ok := f.tasks[task.ID]; !ok {
		return errors.NotFound("task")
	}
	copied := *task
	f.tasks[task.ID] = &copied
	return nil
}

func (f *fakeTaskStore) Delete(ctx context.Context, id string) error {
	if _, ok := f.tasks[id]; !ok {
		return errors.NotFound("task")
	}
	delete(f.tasks, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type routedMutation struct {
	kind string
	old  *repository.Task
	new  *repository.Task
}

type fakeRouter struct {
	mutations []routedMutation
}

func (f *fakeRouter) TaskCreated(ctx context.Context, task *repository.Task) {
	f.mutations = append(f.mutations, routedMutation{kind: "created", new: task})
}

func (f *fakeRouter) TaskUpdated(ctx context.Context, old, updated *repository.Task) {
	f.mutations = append(f.mutations, routedMutation{kind: "updated", old: old, new: updated})
}

func (f *fakeRouter) TaskDeleted(ctx context.Context, task *repository.Task) {
	f.mutations = append(f.mutations, routedMutation{kind: "deleted", new: task})
}

var testInstant = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func newTaskServiceForTest() (*TaskService, *fakeTaskStore, *fakeRouter) {
	store := newFakeTaskStore()
	router := &fakeRouter{}
	svc := NewTaskService(store, nil, router, clock.Fixed(testInstant), testutil.NewLogger())
	return svc, store, router
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc, _, router := newTaskServiceForTest()

	task, err := svc.Create(context.Background(), "manager-1", CreateTaskInput{Title: "Plan sprint"})
	require.NoError(t, err)

	assert.Equal(t, repository.StatusTodo, task.Status)
	assert.Equal(t, repository.PriorityMedium, task.Priority)
	assert.Nil(t, task.CompletedAt)
	require.Len(t, router.mutations, 1)
	assert.Equal(t, "created", router.mutations[0].kind)
}

func TestCompletedAtSetOnCompletion(t *testing.T) {
	svc, _, _ := newTaskServiceForTest()

	task, err := svc.Create(context.Background(), "manager-1", CreateTaskInput{Title: "Close books"})
	require.NoError(t, err)

	status := repository.StatusCompleted
	updated, err := svc.Update(context.Background(), task.ID, UpdateTaskInput{Status: &status})
	require.NoError(t, err)

	require.NotNil(t, updated.CompletedAt)
	assert.True(t, updated.CompletedAt.Equal(testInstant))
}

func TestCompletedAtPreservedOnRepeatedSaves(t *testing.T) {
	svc, _, _ := newTaskServiceForTest()

	task, err := svc.Create(context.Background(), "manager-1", CreateTaskInput{Title: "Close books", Status: repository.StatusCompleted})
	require.NoError(t, err)
	require.NotNil(t, task.CompletedAt)
	first := *task.CompletedAt

	title := "Close books (Q1)"
	updated, err := svc.Update(context.Background(), task.ID, UpdateTaskInput{Title: &title})
	require.NoError(t, err)

	require.NotNil(t, updated.CompletedAt)
	assert.True(t, updated.CompletedAt.Equal(first))
}

func TestCompletedAtClearedOnReopen(t *testing.T) {
	svc, _, _ := newTaskServiceForTest()

	task, err := svc.Create(context.Background(), "manager-1", CreateTaskInput{Title: "Close books", Status: repository.StatusCompleted})
	require.NoError(t, err)
	require.NotNil(t, task.CompletedAt)

	status := repository.StatusInProgress
	updated, err := svc.Update(context.Background(), task.ID, UpdateTaskInput{Status: &status})
	require.NoError(t, err)

	assert.Nil(t, updated.CompletedAt)
}

func TestUpdatePassesPriorSnapshotToRouter(t *testing.T) {
	svc, _, router := newTaskServiceForTest()

	task, err := svc.Create(context.Background(), "manager-1", CreateTaskInput{Title: "Ship v2"})
	require.NoError(t, err)

	assignee := "123e4567-e89b-12d3-a456-426614174000"
	_, err = svc.Update(context.Background(), task.ID, UpdateTaskInput{AssignedTo: &assignee})
	require.NoError(t, err)

	require.Len(t, router.mutations, 2)
	update := router.mutations[1]
	assert.Equal(t, "updated", update.kind)
	assert.Nil(t, update.old.AssignedTo)
	require.NotNil(t, update.new.AssignedTo)
	assert.Equal(t, assignee, *update.new.AssignedTo)
}

func TestClearAssignee(t *testing.T) {
	svc, _, _ := newTaskServiceForTest()

	assignee := "123e4567-e89b-12d3-a456-426614174000"
	task, err := svc.Create(context.Background(), "manager-1", CreateTaskInput{Title: "Ship v2", AssignedTo: &assignee})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), task.ID, UpdateTaskInput{ClearAssignee: true})
	require.NoError(t, err)
	assert.Nil(t, updated.AssignedTo)
}

func TestDeleteRoutesTerminalEvent(t *testing.T) {
	svc, store, router := newTaskServiceForTest()

	task, err := svc.Create(context.Background(), "manager-1", CreateTaskInput{Title: "Obsolete"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), task.ID))
	assert.Equal(t, []string{task.ID}, store.deleted)
	assert.Equal(t, "deleted", router.mutations[len(router.mutations)-1].kind)
}

func TestUpdateRejectsInvalidDate(t *testing.T) {
	svc, _, _ := newTaskServiceForTest()

	task, err := svc.Create(context.Background(), "manager-1", CreateTaskInput{Title: "Dated"})
	require.NoError(t, err)

	bad := "next tuesday"
	_, err = svc.Update(context.Background(), task.ID, UpdateTaskInput{DueDate: &bad})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
}
