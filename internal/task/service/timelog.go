package service

import (
	"context"
	"time"

	"github.com/taskflow/taskflow-backend/internal/task/repository"
	"github.com/taskflow/taskflow-backend/pkg/clock"
	"github.com/taskflow/taskflow-backend/pkg/logger"
)

// TimeLogStore is the persistence surface for time logs.
// Satisfied by repository.TimeLogRepository.
type TimeLogStore interface {
	Create(ctx context.Context, log *repository.TimeLog) error
	ListByTask(ctx context.Context, taskID string) ([]*repository.TimeLog, error)
	ListByUser(ctx context.Context, userID string, from, to time.Time) ([]*repository.TimeLog, error)
}

// TimeLogRouter receives the time log creation callback.
// Satisfied by events.Router.
type TimeLogRouter interface {
	TimeLogCreated(ctx context.Context, log *repository.TimeLog)
}

// TimeLogService owns time log writes. Logs are append-only.
type TimeLogService struct {
	logs   TimeLogStore
	tasks  TaskStore
	router TimeLogRouter
	clock  clock.Clock
	logger *logger.Logger
}

// NewTimeLogService creates a new time log service
func NewTimeLogService(logs TimeLogStore, tasks TaskStore, router TimeLogRouter, clk clock.Clock, log *logger.Logger) *TimeLogService {
	return &TimeLogService{
		logs:   logs,
		tasks:  tasks,
		router: router,
		clock:  clk,
		logger: log.WithComponent("timelog-service"),
	}
}

// CreateTimeLogInput carries a time log creation request. Hours are bounded
// to a tenth of an hour up to a full day.
type CreateTimeLogInput struct {
	TaskID  string  `json:"task_id" validate:"required,uuid"`
	Hours   float64 `json:"hours" validate:"required,gte=0.1,lte=24"`
	LogDate *string `json:"log_date,omitempty"`
	Note    string  `json:"note"`
}

// Create appends a time log for the given user and routes the event
func (s *TimeLogService) Create(ctx context.Context, userID string, input CreateTimeLogInput) (*repository.TimeLog, error) {
	// The task must exist; this also surfaces NotFound before any write.
	if _, err := s.tasks.GetByID(ctx, input.TaskID); err != nil {
		return nil, err
	}

	logDate := s.clock.Today()
	if input.LogDate != nil {
		parsed, err := parseDate(*input.LogDate)
		if err != nil {
			return nil, err
		}
		logDate = parsed
	}

	entry := &repository.TimeLog{
		TaskID:  input.TaskID,
		UserID:  userID,
		Hours:   input.Hours,
		LogDate: logDate,
		Note:    input.Note,
	}

	if err := s.logs.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.router.TimeLogCreated(ctx, entry)

	return entry, nil
}

// ListByTask lists a task's time logs
func (s *TimeLogService) ListByTask(ctx context.Context, taskID string) ([]*repository.TimeLog, error) {
	return s.logs.ListByTask(ctx, taskID)
}

// ListByUser lists a user's time logs in a date range
func (s *TimeLogService) ListByUser(ctx context.Context, userID string, from, to time.Time) ([]*repository.TimeLog, error) {
	return s.logs.ListByUser(ctx, userID, from, to)
}
