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

// CommentHandler handles task comment endpoints
type CommentHandler struct {
	service *service.CommentService
	logger  *logger.Logger
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(svc *service.CommentService, log *logger.Logger) *CommentHandler {
	return &CommentHandler{
		service: svc,
		logger:  log,
	}
}

// Create adds a comment to a task
// POST /tasks/{id}/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	var input service.CreateCommentInput
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

	comment, err := h.service.Create(r.Context(), taskID, user.ID, input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, comment)
}

// ListByTask returns comments for a task, oldest first
// GET /tasks/{id}/comments
func (h *CommentHandler) ListByTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	comments, err := h.service.ListByTask(r.Context(), taskID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, comments)
}

// Delete removes a comment. Only the author or a user with delete rights may do so.
// DELETE /comments/{id}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user := actor.FromContext(r.Context())
	if user == nil {
		httputil.Error(w, errors.Unauthorized("user not authenticated"))
		return
	}

	if err := h.service.Delete(r.Context(), id, user.ID, user.Role); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
