package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Task lifecycle events
	EventTaskCreated         = "task.created"
	EventTaskUpdated         = "task.updated"
	EventTaskDeleted         = "task.deleted"
	EventTaskStatusChanged   = "task.status.changed"
	EventTaskAssigneeChanged = "task.assignee.changed"
	EventTaskCommentCreated  = "task.comment.created"
	EventTaskTimeLogged      = "task.time.logged"

	// Project events
	EventProjectCreated = "project.created"
	EventProjectUpdated = "project.updated"
	EventProjectDeleted = "project.deleted"

	// User events (consumed from the identity service for the employee directory)
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// Exchange names
const (
	ExchangeTaskEvents = "task.events"
	ExchangeUserEvents = "user.events"
	ExchangeJobs       = "taskflow.jobs"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Task Events

// TaskCreatedEvent is published when a task is created
type TaskCreatedEvent struct {
	TaskID     string     `json:"task_id"`
	ProjectID  string     `json:"project_id"`
	Title      string     `json:"title"`
	Status     string     `json:"status"`
	Priority   string     `json:"priority"`
	AssignedTo *string    `json:"assigned_to,omitempty"`
	CreatedBy  string     `json:"created_by"`
	DueDate    *time.Time `json:"due_date,omitempty"`

	TenantID     string `json:"tenant_id"`
	TenantSchema string `json:"tenant_schema"`
}

// TaskStatusChangedEvent is published when a task's status transitions
type TaskStatusChangedEvent struct {
	TaskID     string  `json:"task_id"`
	ProjectID  string  `json:"project_id"`
	OldStatus  string  `json:"old_status"`
	NewStatus  string  `json:"new_status"`
	AssignedTo *string `json:"assigned_to,omitempty"`
	ChangedBy  string  `json:"changed_by"`

	TenantID     string `json:"tenant_id"`
	TenantSchema string `json:"tenant_schema"`
}

// TaskAssigneeChangedEvent is published when a task is reassigned
type TaskAssigneeChangedEvent struct {
	TaskID        string  `json:"task_id"`
	ProjectID     string  `json:"project_id"`
	OldAssignedTo *string `json:"old_assigned_to,omitempty"`
	NewAssignedTo *string `json:"new_assigned_to,omitempty"`
	ChangedBy     string  `json:"changed_by"`

	TenantID     string `json:"tenant_id"`
	TenantSchema string `json:"tenant_schema"`
}

// TaskDeletedEvent is published when a task is deleted
type TaskDeletedEvent struct {
	TaskID    string `json:"task_id"`
	ProjectID string `json:"project_id"`
	DeletedBy string `json:"deleted_by"`

	TenantID     string `json:"tenant_id"`
	TenantSchema string `json:"tenant_schema"`
}

// TaskCommentCreatedEvent is published when a comment is added to a task
type TaskCommentCreatedEvent struct {
	CommentID string `json:"comment_id"`
	TaskID    string `json:"task_id"`
	AuthorID  string `json:"author_id"`

	TenantID     string `json:"tenant_id"`
	TenantSchema string `json:"tenant_schema"`
}

// TaskTimeLoggedEvent is published when hours are logged against a task
type TaskTimeLoggedEvent struct {
	TimeLogID  string    `json:"time_log_id"`
	TaskID     string    `json:"task_id"`
	EmployeeID string    `json:"employee_id"`
	Hours      float64   `json:"hours"`
	LogDate    time.Time `json:"log_date"`

	TenantID     string `json:"tenant_id"`
	TenantSchema string `json:"tenant_schema"`
}

// Project Events

// ProjectCreatedEvent is published when a project is created
type ProjectCreatedEvent struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	ManagerID string `json:"manager_id"`

	TenantID     string `json:"tenant_id"`
	TenantSchema string `json:"tenant_schema"`
}

// ProjectUpdatedEvent is published when a project is updated
type ProjectUpdatedEvent struct {
	ProjectID string         `json:"project_id"`
	Fields    map[string]any `json:"fields"`

	TenantID     string `json:"tenant_id"`
	TenantSchema string `json:"tenant_schema"`
}

// ProjectDeletedEvent is published when a project is deleted
type ProjectDeletedEvent struct {
	ProjectID string `json:"project_id"`

	TenantID     string `json:"tenant_id"`
	TenantSchema string `json:"tenant_schema"`
}

// User Events

// UserCreatedEvent mirrors the identity service's user creation payload
type UserCreatedEvent struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Role       string `json:"role"`
	Department string `json:"department"`

	TenantID     string `json:"tenant_id"`
	TenantSlug   string `json:"tenant_slug"`
	TenantSchema string `json:"tenant_schema"`
}

// UserUpdatedEvent mirrors the identity service's user update payload
type UserUpdatedEvent struct {
	UserID string         `json:"user_id"`
	Fields map[string]any `json:"fields"`

	TenantID     string `json:"tenant_id"`
	TenantSlug   string `json:"tenant_slug"`
	TenantSchema string `json:"tenant_schema"`
}

// UserDeletedEvent mirrors the identity service's user deletion payload
type UserDeletedEvent struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`

	TenantID     string `json:"tenant_id"`
	TenantSlug   string `json:"tenant_slug"`
	TenantSchema string `json:"tenant_schema"`
}
