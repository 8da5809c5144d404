package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/taskflow/taskflow-backend/internal/task/service"
	"github.com/taskflow/taskflow-backend/pkg/actor"
	"github.com/taskflow/taskflow-backend/pkg/errors"
	"github.com/taskflow/taskflow-backend/pkg/httputil"
	"github.com/taskflow/taskflow-backend/pkg/logger"
)

// ProjectHandler handles project endpoints
type ProjectHandler struct {
	service *service.ProjectService
	logger  *logger.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(svc *service.ProjectService, log *logger.Logger) *ProjectHandler {
	return &ProjectHandler{
		service: svc,
		logger:  log,
	}
}

// List returns all projects
// GET /projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.List(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, projects)
}

// Get returns a single project
// GET /projects/{id}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	project, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, project)
}

// Create creates a project
// POST /projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.CreateProjectInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&input); err != nil {
		httputil.Error(w, err)
		return
	}

	user := actor.FromContext(r.Context())
	if user == nil {
		httputil.Error(w, errors.Unauthorized("user not authenticated"))
		return
	}

	project, err := h.service.Create(r.Context(), user.ID, input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, project)
}

// Update applies a partial update to a project
// PATCH /projects/{id}
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input service.UpdateProjectInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&input); err != nil {
		httputil.Error(w, err)
		return
	}

	project, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, project)
}

// Delete removes a project
// DELETE /projects/{id}
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// Recompute schedules an analytics recompute for a project
// POST /projects/{id}/recompute
func (h *ProjectHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.TriggerAnalyticsRecompute(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusAccepted, map[string]string{
		"status": "scheduled",
	})
}
