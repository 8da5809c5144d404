package service

import (
	"context"

	"github.com/taskflow/taskflow-backend/internal/task/repository"
	"github.com/taskflow/taskflow-backend/pkg/logger"
	"github.com/taskflow/taskflow-backend/pkg/messaging"
	"github.com/taskflow/taskflow-backend/pkg/tenant"
)

// ProjectStore is the persistence surface for projects.
// Satisfied by repository.ProjectRepository.
type ProjectStore interface {
	Create(ctx context.Context, project *repository.Project) error
	GetByID(ctx context.Context, id string) (*repository.Project, error)
	List(ctx context.Context) ([]*repository.Project, error)
	Update(ctx context.Context, project *repository.Project) error
	Delete(ctx context.Context, id string) error
}

// ProjectService owns project mutations
type ProjectService struct {
	projects ProjectStore
	queue    messaging.Enqueuer
	logger   *logger.Logger
}

// NewProjectService creates a new project service
func NewProjectService(projects ProjectStore, queue messaging.Enqueuer, log *logger.Logger) *ProjectService {
	return &ProjectService{
		projects: projects,
		queue:    queue,
		logger:   log.WithComponent("project-service"),
	}
}

// CreateProjectInput carries a project creation request
type CreateProjectInput struct {
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	Description string  `json:"description"`
	StartDate   *string `json:"start_date,omitempty"`
	EndDate     *string `json:"end_date,omitempty"`
}

// UpdateProjectInput carries a partial project update
type UpdateProjectInput struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description,omitempty"`
	StartDate   *string `json:"start_date,omitempty"`
	EndDate     *string `json:"end_date,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// Create creates a project
func (s *ProjectService) Create(ctx context.Context, createdBy string, input CreateProjectInput) (*repository.Project, error) {
	project := &repository.Project{
		Name:        input.Name,
		Description: input.Description,
		IsActive:    true,
		CreatedBy:   createdBy,
	}

	if input.StartDate != nil {
		start, err := parseDate(*input.StartDate)
		if err != nil {
			return nil, err
		}
		project.StartDate = &start
	}
	if input.EndDate != nil {
		end, err := parseDate(*input.EndDate)
		if err != nil {
			return nil, err
		}
		project.EndDate = &end
	}

	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}

	return project, nil
}

// Get gets a project by ID
func (s *ProjectService) Get(ctx context.Context, id string) (*repository.Project, error) {
	return s.projects.GetByID(ctx, id)
}

// List lists all projects
func (s *ProjectService) List(ctx context.Context) ([]*repository.Project, error) {
	return s.projects.List(ctx)
}

// Update applies a partial project update
func (s *ProjectService) Update(ctx context.Context, id string, input UpdateProjectInput) (*repository.Project, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		project.Name = *input.Name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	if input.StartDate != nil {
		start, err := parseDate(*input.StartDate)
		if err != nil {
			return nil, err
		}
		project.StartDate = &start
	}
	if input.EndDate != nil {
		end, err := parseDate(*input.EndDate)
		if err != nil {
			return nil, err
		}
		project.EndDate = &end
	}
	if input.IsActive != nil {
		project.IsActive = *input.IsActive
	}

	if err := s.projects.Update(ctx, project); err != nil {
		return nil, err
	}

	return project, nil
}

// Delete deletes a project
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	return s.projects.Delete(ctx, id)
}

// TriggerAnalyticsRecompute enqueues an on-demand analytics recompute for the
// project. The write happens in the background worker; callers get a
// fire-and-forget acknowledgement.
func (s *ProjectService) TriggerAnalyticsRecompute(ctx context.Context, projectID string) error {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return err
	}

	tenantID, _ := tenant.TenantID(ctx)
	schema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return err
	}

	return s.queue.Enqueue(ctx, messaging.JobProjectRecompute, messaging.ProjectRecomputeJob{
		ProjectID:    projectID,
		TenantID:     tenantID,
		TenantSchema: schema,
	})
}
