// Package consumers wires RabbitMQ consumers that keep the task service's
// event-synced state current.
package consumers

import (
	"context"
	"strings"

	"github.com/taskflow/taskflow-backend/internal/task/repository"
	"github.com/taskflow/taskflow-backend/pkg/logger"
	"github.com/taskflow/taskflow-backend/pkg/messaging"
	"github.com/taskflow/taskflow-backend/pkg/tenant"
)

// UserEventConsumer maintains the tenant employee directory from the identity
// service's user events.
type UserEventConsumer struct {
	consumer     *messaging.Consumer
	employeeRepo *repository.EmployeeRepository
	logger       *logger.Logger
}

// NewUserEventConsumer creates a new user event consumer
func NewUserEventConsumer(
	rmq *messaging.RabbitMQ,
	employeeRepo *repository.EmployeeRepository,
	log *logger.Logger,
) (*UserEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "task-service.user-events", log)
	if err != nil {
		return nil, err
	}

	// Subscribe to user events
	if err := consumer.Subscribe(messaging.ExchangeUserEvents, "user.#"); err != nil {
		return nil, err
	}

	c := &UserEventConsumer{
		consumer:     consumer,
		employeeRepo: employeeRepo,
		logger:       log,
	}

	// Register handlers
	consumer.RegisterHandler(messaging.EventUserCreated, c.handleUserCreated)
	consumer.RegisterHandler(messaging.EventUserUpdated, c.handleUserUpdated)
	consumer.RegisterHandler(messaging.EventUserDeleted, c.handleUserDeleted)

	return c, nil
}

// Start starts consuming messages
func (c *UserEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *UserEventConsumer) handleUserCreated(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserCreatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("user_id", data.UserID).
		Msg("received user created event")

	// Create tenant context from event data
	ctx = tenant.WithTenantContext(ctx, data.TenantID, data.TenantSlug, data.TenantSchema)

	var department *string
	if data.Department != "" {
		department = &data.Department
	}

	return c.employeeRepo.Upsert(ctx, &repository.Employee{
		UserID:     data.UserID,
		FullName:   strings.TrimSpace(data.FirstName + " " + data.LastName),
		Email:      data.Email,
		Role:       data.Role,
		Department: department,
		IsActive:   true,
	})
}

func (c *UserEventConsumer) handleUserUpdated(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserUpdatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	ctx = tenant.WithTenantContext(ctx, data.TenantID, data.TenantSlug, data.TenantSchema)

	emp, err := c.employeeRepo.GetByID(ctx, data.UserID)
	if err != nil {
		// Out-of-order delivery: an update can arrive before the create.
		// Log and drop rather than failing the message forever.
		c.logger.Warn().
			Str("user_id", data.UserID).
			Msg("user updated event for unknown employee, skipping")
		return nil
	}

	applyUserFields(emp, data.Fields)

	return c.employeeRepo.Upsert(ctx, emp)
}

func (c *UserEventConsumer) handleUserDeleted(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserDeletedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("user_id", data.UserID).
		Msg("received user deleted event")

	ctx = tenant.WithTenantContext(ctx, data.TenantID, data.TenantSlug, data.TenantSchema)

	return c.employeeRepo.Deactivate(ctx, data.UserID)
}

// applyUserFields folds a sparse field map from the identity service into a
// directory entry
func applyUserFields(emp *repository.Employee, fields map[string]any) {
	for key, value := range fields {
		str, ok := value.(string)
		if !ok {
			continue
		}
		switch key {
		case "first_name":
			parts := strings.SplitN(emp.FullName, " ", 2)
			last := ""
			if len(parts) == 2 {
				last = parts[1]
			}
			emp.FullName = strings.TrimSpace(str + " " + last)
		case "last_name":
			parts := strings.SplitN(emp.FullName, " ", 2)
			emp.FullName = strings.TrimSpace(parts[0] + " " + str)
		case "full_name":
			emp.FullName = str
		case "email":
			emp.Email = str
		case "role":
			emp.Role = str
		case "department":
			if str == "" {
				emp.Department = nil
			} else {
				department := str
				emp.Department = &department
			}
		case "position":
			emp.Position = str
		}
	}

	if active, ok := fields["is_active"].(bool); ok {
		emp.IsActive = active
	}
}
