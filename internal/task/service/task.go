package service

import (
	"context"
	"time"

	"github.com/taskflow/taskflow-backend/internal/task/repository"
	"github.com/taskflow/taskflow-backend/pkg/clock"
	"github.com/taskflow/taskflow-backend/pkg/errors"
	"github.com/taskflow/taskflow-backend/pkg/logger"
)

// TaskStore is the persistence surface the task service needs.
// Satisfied by repository.TaskRepository.
type TaskStore interface {
	Create(ctx context.Context, task *repository.Task) error
	GetByID(ctx context.Context, id string) (*repository.Task, error)
	List(ctx context.Context, filter repository.TaskFilter) ([]*repository.Task, error)
	Update(ctx context.Context, task *repository.Task) error
	Delete(ctx context.Context, id string) error
}

// HistoryLister reads the audit trail. Satisfied by repository.HistoryRepository.
type HistoryLister interface {
	ListByTask(ctx context.Context, taskID string) ([]*repository.TaskHistory, error)
}

// MutationRouter receives lifecycle callbacks with old/new snapshots.
// Satisfied by events.Router.
type MutationRouter interface {
	TaskCreated(ctx context.Context, task *repository.Task)
	TaskUpdated(ctx context.Context, old, updated *repository.Task)
	TaskDeleted(ctx context.Context, task *repository.Task)
}

// TaskService owns task mutations. Every write goes through here so the
// completed_at invariant holds and the mutation router always sees the prior
// snapshot.
type TaskService struct {
	tasks   TaskStore
	history HistoryLister
	router  MutationRouter
	clock   clock.Clock
	logger  *logger.Logger
}

// NewTaskService creates a new task service
func NewTaskService(tasks TaskStore, history HistoryLister, router MutationRouter, clk clock.Clock, log *logger.Logger) *TaskService {
	return &TaskService{
		tasks:   tasks,
		history: history,
		router:  router,
		clock:   clk,
		logger:  log.WithComponent("task-service"),
	}
}

// CreateTaskInput carries a task creation request
type CreateTaskInput struct {
	Title          string   `json:"title" validate:"required,min=1,max=255"`
	Description    string   `json:"description"`
	ProjectID      *string  `json:"project_id,omitempty" validate:"omitempty,uuid"`
	AssignedTo     *string  `json:"assigned_to,omitempty" validate:"omitempty,uuid"`
	Priority       string   `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Status         string   `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS REVIEW COMPLETED CANCELLED"`
	EstimatedHours float64  `json:"estimated_hours" validate:"gte=0"`
	DueDate        *string  `json:"due_date,omitempty"`
}

// UpdateTaskInput carries a partial task update. Nil fields are left as-is.
type UpdateTaskInput struct {
	Title          *string  `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description    *string  `json:"description,omitempty"`
	ProjectID      *string  `json:"project_id,omitempty" validate:"omitempty,uuid"`
	AssignedTo     *string  `json:"assigned_to,omitempty" validate:"omitempty,uuid"`
	ClearAssignee  bool     `json:"clear_assignee,omitempty"`
	Priority       *string  `json:"priority,omitempty" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Status         *string  `json:"status,omitempty" validate:"omitempty,oneof=TODO IN_PROGRESS REVIEW COMPLETED CANCELLED"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty" validate:"omitempty,gte=0"`
	ActualHours    *float64 `json:"actual_hours,omitempty" validate:"omitempty,gte=0"`
	DueDate        *string  `json:"due_date,omitempty"`
	ClearDueDate   bool     `json:"clear_due_date,omitempty"`
}

// Create creates a task and routes the creation event
func (s *TaskService) Create(ctx context.Context, createdBy string, input CreateTaskInput) (*repository.Task, error) {
	task := &repository.Task{
		Title:          input.Title,
		Description:    input.Description,
		ProjectID:      input.ProjectID,
		AssignedTo:     input.AssignedTo,
		CreatedBy:      createdBy,
		Priority:       input.Priority,
		Status:         input.Status,
		EstimatedHours: input.EstimatedHours,
	}

	if task.Priority == "" {
		task.Priority = repository.PriorityMedium
	}
	if task.Status == "" {
		task.Status = repository.StatusTodo
	}

	if input.DueDate != nil {
		due, err := parseDate(*input.DueDate)
		if err != nil {
			return nil, err
		}
		task.DueDate = &due
	}

	s.applyCompletionTimestamp(task)

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	s.router.TaskCreated(ctx, task)

	return task, nil
}

// Get gets a task by ID
func (s *TaskService) Get(ctx context.Context, id string) (*repository.Task, error) {
	return s.tasks.GetByID(ctx, id)
}

// List lists tasks matching the filter
func (s *TaskService) List(ctx context.Context, filter repository.TaskFilter) ([]*repository.Task, error) {
	return s.tasks.List(ctx, filter)
}

// Update applies a partial update, maintains the completed_at invariant, and
// routes the mutation with prior and new snapshots.
func (s *TaskService) Update(ctx context.Context, id string, input UpdateTaskInput) (*repository.Task, error) {
	old, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *old

	if input.Title != nil {
		updated.Title = *input.Title
	}
	if input.Description != nil {
		updated.Description = *input.Description
	}
	if input.ProjectID != nil {
		updated.ProjectID = input.ProjectID
	}
	if input.ClearAssignee {
		updated.AssignedTo = nil
	} else if input.AssignedTo != nil {
		updated.AssignedTo = input.AssignedTo
	}
	if input.Priority != nil {
		updated.Priority = *input.Priority
	}
	if input.Status != nil {
		updated.Status = *input.Status
	}
	if input.EstimatedHours != nil {
		updated.EstimatedHours = *input.EstimatedHours
	}
	if input.ActualHours != nil {
		updated.ActualHours = *input.ActualHours
	}
	if input.ClearDueDate {
		updated.DueDate = nil
	} else if input.DueDate != nil {
		due, err := parseDate(*input.DueDate)
		if err != nil {
			return nil, err
		}
		updated.DueDate = &due
	}

	s.applyCompletionTimestamp(&updated)

	if err := s.tasks.Update(ctx, &updated); err != nil {
		return nil, err
	}

	s.router.TaskUpdated(ctx, old, &updated)

	return &updated, nil
}

// Delete deletes a task and routes the terminal event
func (s *TaskService) Delete(ctx context.Context, id string) error {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}

	s.router.TaskDeleted(ctx, task)

	return nil
}

// History lists a task's audit trail, newest first
func (s *TaskService) History(ctx context.Context, taskID string) ([]*repository.TaskHistory, error) {
	if _, err := s.tasks.GetByID(ctx, taskID); err != nil {
		return nil, err
	}
	return s.history.ListByTask(ctx, taskID)
}

// applyCompletionTimestamp enforces: completed_at is set iff status is
// COMPLETED. The timestamp is only stamped on the transition, so repeated
// saves of a completed task keep the original completion time.
func (s *TaskService) applyCompletionTimestamp(task *repository.Task) {
	if task.Status == repository.StatusCompleted {
		if task.CompletedAt == nil {
			now := s.clock.Now()
			task.CompletedAt = &now
		}
		return
	}
	task.CompletedAt = nil
}

// parseDate accepts RFC 3339 timestamps and bare dates
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, errors.BadRequest("invalid date: " + value)
	}
	return t, nil
}
