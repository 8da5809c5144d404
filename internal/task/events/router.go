// Package events implements the mutation event router: it turns task
// lifecycle changes into audit history rows, background notification jobs,
// and analytics recompute jobs.
//
// The router is called synchronously by the task service with explicit old
// and new snapshots. All side effects are best-effort: history appends and
// enqueue failures are logged and never fail the triggering mutation.
package events

import (
	"context"
	"fmt"

	"github.com/taskflow/taskflow-backend/internal/task/repository"
	"github.com/taskflow/taskflow-backend/pkg/actor"
	"github.com/taskflow/taskflow-backend/pkg/logger"
	"github.com/taskflow/taskflow-backend/pkg/messaging"
	"github.com/taskflow/taskflow-backend/pkg/tenant"
)

// HistoryStore appends audit rows. Satisfied by repository.HistoryRepository.
type HistoryStore interface {
	Append(ctx context.Context, entry *repository.TaskHistory) error
}

// Directory resolves employee directory entries for assignee names and
// notification recipients. Satisfied by repository.EmployeeRepository.
type Directory interface {
	GetByID(ctx context.Context, userID string) (*repository.Employee, error)
}

// EventPublisher publishes lifecycle events for downstream consumers.
// Satisfied by messaging.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// Router reacts to task mutations
type Router struct {
	history   HistoryStore
	directory Directory
	queue     messaging.Enqueuer
	publisher EventPublisher
	logger    *logger.Logger
}

// NewRouter creates a new mutation event router
func NewRouter(history HistoryStore, directory Directory, queue messaging.Enqueuer, publisher EventPublisher, log *logger.Logger) *Router {
	return &Router{
		history:   history,
		directory: directory,
		queue:     queue,
		publisher: publisher,
		logger:    log.WithComponent("event-router"),
	}
}

// TaskCreated handles a freshly created task: CREATED history, a notification
// to the assignee when someone else created the task, and a project analytics
// recompute when the task belongs to a project.
func (r *Router) TaskCreated(ctx context.Context, task *repository.Task) {
	r.appendHistory(ctx, &repository.TaskHistory{
		TaskID:      task.ID,
		UserID:      actingUserID(ctx),
		Action:      repository.ActionCreated,
		Description: fmt.Sprintf("Task %q created", task.Title),
	})

	if task.AssignedTo != nil && *task.AssignedTo != task.CreatedBy {
		r.notifyAssignee(ctx, task, *task.AssignedTo,
			"task_assigned",
			fmt.Sprintf("New task assigned: %s", task.Title),
			fmt.Sprintf("You have been assigned the task %q.", task.Title),
		)
	}

	r.enqueueProjectRecompute(ctx, task)
	r.publishEvent(ctx, messaging.EventTaskCreated, taskCreatedPayload(ctx, task))
}

// TaskUpdated diffs the prior snapshot against the new state and emits
// history rows and notifications for the fields that changed. The project
// analytics recompute is enqueued regardless of which fields changed.
func (r *Router) TaskUpdated(ctx context.Context, old, updated *repository.Task) {
	if old.Status != updated.Status {
		r.statusChanged(ctx, old, updated)
	}

	if !sameAssignee(old.AssignedTo, updated.AssignedTo) {
		r.assigneeChanged(ctx, old, updated)
	}

	if old.Priority != updated.Priority {
		oldVal, newVal := old.Priority, updated.Priority
		r.appendHistory(ctx, &repository.TaskHistory{
			TaskID:      updated.ID,
			UserID:      actingUserID(ctx),
			Action:      repository.ActionPriorityChanged,
			OldValue:    &oldVal,
			NewValue:    &newVal,
			Description: fmt.Sprintf("Priority changed from %s to %s", oldVal, newVal),
		})
	}

	r.enqueueProjectRecompute(ctx, updated)
}

// TaskDeleted appends the terminal history entry. No further propagation.
func (r *Router) TaskDeleted(ctx context.Context, task *repository.Task) {
	r.appendHistory(ctx, &repository.TaskHistory{
		TaskID:      task.ID,
		UserID:      actingUserID(ctx),
		Action:      repository.ActionUpdated,
		Description: fmt.Sprintf("Task %q deleted", task.Title),
	})

	r.publishEvent(ctx, messaging.EventTaskDeleted, taskDeletedPayload(ctx, task))
}

// TimeLogCreated enqueues a productivity recompute for the log's date, scoped
// to the logging employee. The nightly full pass converges every other
// employee, so scoping here avoids a full-directory recompute on every log.
func (r *Router) TimeLogCreated(ctx context.Context, log *repository.TimeLog) {
	tenantID, _ := tenant.TenantID(ctx)
	schema, _ := tenant.TenantSchema(ctx)

	if err := r.queue.Enqueue(ctx, messaging.JobProductivityRecompute, messaging.ProductivityRecomputeJob{
		EmployeeID:   log.UserID,
		Date:         log.LogDate,
		TenantID:     tenantID,
		TenantSchema: schema,
	}); err != nil {
		r.logger.Error().Err(err).
			Str("time_log_id", log.ID).
			Msg("failed to enqueue productivity recompute")
	}

	r.publishEvent(ctx, messaging.EventTaskTimeLogged, messaging.TaskTimeLoggedEvent{
		TimeLogID:    log.ID,
		TaskID:       log.TaskID,
		EmployeeID:   log.UserID,
		Hours:        log.Hours,
		LogDate:      log.LogDate,
		TenantID:     tenantID,
		TenantSchema: schema,
	})
}

func (r *Router) statusChanged(ctx context.Context, old, updated *repository.Task) {
	oldVal, newVal := old.Status, updated.Status
	r.appendHistory(ctx, &repository.TaskHistory{
		TaskID:      updated.ID,
		UserID:      actingUserID(ctx),
		Action:      repository.ActionStatusChanged,
		OldValue:    &oldVal,
		NewValue:    &newVal,
		Description: fmt.Sprintf("Status changed from %s to %s", oldVal, newVal),
	})

	if updated.AssignedTo != nil {
		r.notifyAssignee(ctx, updated, *updated.AssignedTo,
			"status_changed",
			fmt.Sprintf("Task status updated: %s", updated.Title),
			fmt.Sprintf("The task %q moved from %s to %s.", updated.Title, oldVal, newVal),
		)
	}

	tenantID, _ := tenant.TenantID(ctx)
	schema, _ := tenant.TenantSchema(ctx)

	if updated.Status == repository.StatusCompleted {
		// Record the delay figures right away instead of waiting for the
		// nightly sweep. Insert-once semantics make the sweep a no-op for
		// tasks analyzed here.
		if err := r.queue.Enqueue(ctx, messaging.JobDelaySweep, messaging.DelaySweepJob{
			TaskID:       updated.ID,
			TenantID:     tenantID,
			TenantSchema: schema,
		}); err != nil {
			r.logger.Error().Err(err).
				Str("task_id", updated.ID).
				Msg("failed to enqueue delay analysis")
		}
	}

	r.publishEvent(ctx, messaging.EventTaskStatusChanged, messaging.TaskStatusChangedEvent{
		TaskID:       updated.ID,
		ProjectID:    stringOrEmpty(updated.ProjectID),
		OldStatus:    oldVal,
		NewStatus:    newVal,
		AssignedTo:   updated.AssignedTo,
		ChangedBy:    stringOrEmpty(actingUserID(ctx)),
		TenantID:     tenantID,
		TenantSchema: schema,
	})
}

func (r *Router) assigneeChanged(ctx context.Context, old, updated *repository.Task) {
	newValue := "Unassigned"
	if updated.AssignedTo != nil {
		newValue = r.assigneeName(ctx, *updated.AssignedTo)
	}

	r.appendHistory(ctx, &repository.TaskHistory{
		TaskID:      updated.ID,
		UserID:      actingUserID(ctx),
		Action:      repository.ActionAssigned,
		NewValue:    &newValue,
		Description: fmt.Sprintf("Task assigned to %s", newValue),
	})

	if updated.AssignedTo != nil {
		r.notifyAssignee(ctx, updated, *updated.AssignedTo,
			"task_assigned",
			fmt.Sprintf("Task assigned to you: %s", updated.Title),
			fmt.Sprintf("You have been assigned the task %q.", updated.Title),
		)
	}

	tenantID, _ := tenant.TenantID(ctx)
	schema, _ := tenant.TenantSchema(ctx)
	r.publishEvent(ctx, messaging.EventTaskAssigneeChanged, messaging.TaskAssigneeChangedEvent{
		TaskID:        updated.ID,
		ProjectID:     stringOrEmpty(updated.ProjectID),
		OldAssignedTo: old.AssignedTo,
		NewAssignedTo: updated.AssignedTo,
		ChangedBy:     stringOrEmpty(actingUserID(ctx)),
		TenantID:      tenantID,
		TenantSchema:  schema,
	})
}

// appendHistory writes an audit row. Failures are logged, never propagated:
// the audit trail must not block the mutation that triggered it.
func (r *Router) appendHistory(ctx context.Context, entry *repository.TaskHistory) {
	if err := r.history.Append(ctx, entry); err != nil {
		r.logger.Error().Err(err).
			Str("task_id", entry.TaskID).
			Str("action", entry.Action).
			Msg("failed to append task history")
	}
}

func (r *Router) notifyAssignee(ctx context.Context, task *repository.Task, recipientID, kind, subject, body string) {
	tenantID, _ := tenant.TenantID(ctx)
	schema, _ := tenant.TenantSchema(ctx)

	if err := r.queue.Enqueue(ctx, messaging.JobNotificationSend, messaging.NotificationJob{
		Kind:         kind,
		RecipientID:  recipientID,
		TaskID:       task.ID,
		Subject:      subject,
		Body:         body,
		TenantID:     tenantID,
		TenantSchema: schema,
	}); err != nil {
		r.logger.Error().Err(err).
			Str("task_id", task.ID).
			Str("recipient_id", recipientID).
			Msg("failed to enqueue notification")
	}
}

func (r *Router) enqueueProjectRecompute(ctx context.Context, task *repository.Task) {
	if task.ProjectID == nil {
		return
	}

	tenantID, _ := tenant.TenantID(ctx)
	schema, _ := tenant.TenantSchema(ctx)

	if err := r.queue.Enqueue(ctx, messaging.JobProjectRecompute, messaging.ProjectRecomputeJob{
		ProjectID:    *task.ProjectID,
		TenantID:     tenantID,
		TenantSchema: schema,
	}); err != nil {
		r.logger.Error().Err(err).
			Str("project_id", *task.ProjectID).
			Msg("failed to enqueue project analytics recompute")
	}
}

func (r *Router) publishEvent(ctx context.Context, eventType string, payload interface{}) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, eventType, payload); err != nil {
		r.logger.Error().Err(err).
			Str("event_type", eventType).
			Msg("failed to publish lifecycle event")
	}
}

// assigneeName resolves a user ID to a display name, falling back to the raw
// ID when the directory has no entry yet.
func (r *Router) assigneeName(ctx context.Context, userID string) string {
	emp, err := r.directory.GetByID(ctx, userID)
	if err != nil || emp == nil {
		return userID
	}
	return emp.FullName
}

func taskCreatedPayload(ctx context.Context, task *repository.Task) messaging.TaskCreatedEvent {
	tenantID, _ := tenant.TenantID(ctx)
	schema, _ := tenant.TenantSchema(ctx)
	return messaging.TaskCreatedEvent{
		TaskID:       task.ID,
		ProjectID:    stringOrEmpty(task.ProjectID),
		Title:        task.Title,
		Status:       task.Status,
		Priority:     task.Priority,
		AssignedTo:   task.AssignedTo,
		CreatedBy:    task.CreatedBy,
		DueDate:      task.DueDate,
		TenantID:     tenantID,
		TenantSchema: schema,
	}
}

func taskDeletedPayload(ctx context.Context, task *repository.Task) messaging.TaskDeletedEvent {
	tenantID, _ := tenant.TenantID(ctx)
	schema, _ := tenant.TenantSchema(ctx)
	return messaging.TaskDeletedEvent{
		TaskID:       task.ID,
		ProjectID:    stringOrEmpty(task.ProjectID),
		DeletedBy:    stringOrEmpty(actingUserID(ctx)),
		TenantID:     tenantID,
		TenantSchema: schema,
	}
}

// actingUserID returns the acting user's ID, or nil for system mutations so
// the audit row stores NULL rather than failing on an unknown user.
func actingUserID(ctx context.Context) *string {
	a := actor.FromContext(ctx)
	if a == nil || a.IsSystem() {
		return nil
	}
	id := a.ID
	return &id
}

func sameAssignee(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
