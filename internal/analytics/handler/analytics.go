package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/taskflow/taskflow-backend/internal/analytics/service"
	"github.com/taskflow/taskflow-backend/pkg/actor"
	"github.com/taskflow/taskflow-backend/pkg/clock"
	"github.com/taskflow/taskflow-backend/pkg/errors"
	"github.com/taskflow/taskflow-backend/pkg/httputil"
	"github.com/taskflow/taskflow-backend/pkg/logger"
	"github.com/taskflow/taskflow-backend/pkg/messaging"
	"github.com/taskflow/taskflow-backend/pkg/tenant"
)

// AnalyticsHandler serves the rollup read path and the on-demand recompute
// triggers. Triggers enqueue work and return 202; the worker does the rest.
type AnalyticsHandler struct {
	service *service.AnalyticsService
	queue   messaging.Enqueuer
	clock   clock.Clock
	logger  *logger.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(svc *service.AnalyticsService, queue messaging.Enqueuer, clk clock.Clock, log *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: svc,
		queue:   queue,
		clock:   clk,
		logger:  log,
	}
}

// parseDateRange reads start/end query params, defaulting to the last 30 days
func (h *AnalyticsHandler) parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	from := h.clock.Today().AddDate(0, 0, -30)
	to := h.clock.Today()

	if startStr := r.URL.Query().Get("start"); startStr != "" {
		parsed, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, errors.BadRequest("invalid start date format, expected YYYY-MM-DD")
		}
		from = parsed
	}
	if endStr := r.URL.Query().Get("end"); endStr != "" {
		parsed, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return time.Time{}, time.Time{}, errors.BadRequest("invalid end date format, expected YYYY-MM-DD")
		}
		to = parsed
	}

	return from, to, nil
}

// ProductivityByUser returns a user's productivity rows for a date range
// GET /analytics/productivity/{userId}?start=&end=
func (h *AnalyticsHandler) ProductivityByUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	from, to, err := h.parseDateRange(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	rows, err := h.service.ProductivityForUser(r.Context(), userID, from, to)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rows)
}

// WorkloadByUser returns a user's workload rows for a date range
// GET /analytics/workload/{userId}?start=&end=
func (h *AnalyticsHandler) WorkloadByUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	from, to, err := h.parseDateRange(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	rows, err := h.service.WorkloadForUser(r.Context(), userID, from, to)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rows)
}

// Departments returns department rollups for a date (defaults to today)
// GET /analytics/departments?date=YYYY-MM-DD
func (h *AnalyticsHandler) Departments(w http.ResponseWriter, r *http.Request) {
	day := h.clock.Today()
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			httputil.Error(w, errors.BadRequest("invalid date format, expected YYYY-MM-DD"))
			return
		}
		day = parsed
	}

	rows, err := h.service.DepartmentsForDate(r.Context(), day)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rows)
}

// ProjectAnalytics returns the rollup row for a project
// GET /analytics/projects/{id}
func (h *AnalyticsHandler) ProjectAnalytics(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")

	row, err := h.service.ProjectAnalytics(r.Context(), projectID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, row)
}

// DelayAnalyses returns all recorded delay analyses
// GET /analytics/delays
func (h *AnalyticsHandler) DelayAnalyses(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.DelayAnalyses(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rows)
}

// enqueue schedules a job carrying the request's tenant and responds 202
func (h *AnalyticsHandler) enqueue(w http.ResponseWriter, r *http.Request, jobType string, payload interface{}) {
	if err := h.queue.Enqueue(r.Context(), jobType, payload); err != nil {
		httputil.Error(w, errors.Internal("failed to schedule job"))
		return
	}

	httputil.JSON(w, http.StatusAccepted, map[string]string{
		"status": "scheduled",
	})
}

// tenantFields returns the request tenant's id and schema for job payloads
func tenantFields(r *http.Request) (string, string, error) {
	id, err := tenant.TenantID(r.Context())
	if err != nil {
		return "", "", err
	}
	schema, err := tenant.TenantSchema(r.Context())
	if err != nil {
		return "", "", err
	}
	return id, schema, nil
}

// TriggerProductivityRecompute schedules a daily productivity recompute
// POST /analytics/recompute/productivity?date=YYYY-MM-DD
func (h *AnalyticsHandler) TriggerProductivityRecompute(w http.ResponseWriter, r *http.Request) {
	tenantID, tenantSchema, err := tenantFields(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	day := h.clock.Today()
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			httputil.Error(w, errors.BadRequest("invalid date format, expected YYYY-MM-DD"))
			return
		}
		day = parsed
	}

	h.enqueue(w, r, messaging.JobProductivityRecompute, messaging.ProductivityRecomputeJob{
		Date:         day,
		TenantID:     tenantID,
		TenantSchema: tenantSchema,
	})
}

// TriggerDelaySweep schedules a delay analysis sweep
// POST /analytics/recompute/delays
func (h *AnalyticsHandler) TriggerDelaySweep(w http.ResponseWriter, r *http.Request) {
	tenantID, tenantSchema, err := tenantFields(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	h.enqueue(w, r, messaging.JobDelaySweep, messaging.DelaySweepJob{
		TenantID:     tenantID,
		TenantSchema: tenantSchema,
	})
}

// GenerateReportRequest is the request body for report generation.
type GenerateReportRequest struct {
	ReportType string `json:"report_type" validate:"required,oneof=DAILY WEEKLY MONTHLY QUARTERLY YEARLY"`
	StartDate  string `json:"start_date" validate:"required"`
	EndDate    string `json:"end_date" validate:"required"`
}

// GenerateReport schedules report generation
// POST /reports
func (h *AnalyticsHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	var req GenerateReportRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		httputil.Error(w, errors.BadRequest("invalid start_date format, expected YYYY-MM-DD"))
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		httputil.Error(w, errors.BadRequest("invalid end_date format, expected YYYY-MM-DD"))
		return
	}
	if end.Before(start) {
		httputil.Error(w, errors.BadRequest("end_date before start_date"))
		return
	}

	tenantID, tenantSchema, err := tenantFields(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	requestedBy := ""
	if user := actor.FromContext(r.Context()); user != nil {
		requestedBy = user.ID
	}

	h.enqueue(w, r, messaging.JobPerformanceReport, messaging.PerformanceReportJob{
		ReportType:   req.ReportType,
		PeriodStart:  start,
		PeriodEnd:    end,
		RequestedBy:  requestedBy,
		TenantID:     tenantID,
		TenantSchema: tenantSchema,
	})
}

// ListReports returns all report snapshots
// GET /reports
func (h *AnalyticsHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.service.Reports(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, reports)
}

// GetReport returns one report snapshot
// GET /reports/{id}
func (h *AnalyticsHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	report, err := h.service.Report(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}
