package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/taskflow/taskflow-backend/internal/task/service"
	"github.com/taskflow/taskflow-backend/pkg/actor"
	"github.com/taskflow/taskflow-backend/pkg/errors"
	"github.com/taskflow/taskflow-backend/pkg/httputil"
	"github.com/taskflow/taskflow-backend/pkg/logger"
)

// TimeLogHandler handles time log endpoints
type TimeLogHandler struct {
	service *service.TimeLogService
	logger  *logger.Logger
}

// NewTimeLogHandler creates a new time log handler
func NewTimeLogHandler(svc *service.TimeLogService, log *logger.Logger) *TimeLogHandler {
	return &TimeLogHandler{
		service: svc,
		logger:  log,
	}
}

// Create records hours against a task
// POST /tasks/{id}/time-logs
func (h *TimeLogHandler) Create(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	var input service.CreateTimeLogInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}
	input.TaskID = taskID
	if err := httputil.Validate(&input); err != nil {
		httputil.Error(w, err)
		return
	}

	user := actor.FromContext(r.Context())
	if user == nil {
		httputil.Error(w, errors.Unauthorized("user not authenticated"))
		return
	}

	entry, err := h.service.Create(r.Context(), user.ID, input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, entry)
}

// ListByTask returns all time logs for a task
// GET /tasks/{id}/time-logs
func (h *TimeLogHandler) ListByTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	entries, err := h.service.ListByTask(r.Context(), taskID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entries)
}

// ListMine returns the current user's time logs for a date range
// GET /time-logs?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *TimeLogHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user := actor.FromContext(r.Context())
	if user == nil {
		httputil.Error(w, errors.Unauthorized("user not authenticated"))
		return
	}

	// Default to the last 30 days
	from := time.Now().AddDate(0, 0, -30)
	to := time.Now()

	if startStr := r.URL.Query().Get("start"); startStr != "" {
		parsed, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			httputil.Error(w, errors.BadRequest("invalid start date format, expected YYYY-MM-DD"))
			return
		}
		from = parsed
	}
	if endStr := r.URL.Query().Get("end"); endStr != "" {
		parsed, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			httputil.Error(w, errors.BadRequest("invalid end date format, expected YYYY-MM-DD"))
			return
		}
		to = parsed
	}

	entries, err := h.service.ListByUser(r.Context(), user.ID, from, to)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entries)
}
