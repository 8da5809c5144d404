package service

import (
	"context"
	"fmt"

	"github.com/taskflow/taskflow-backend/internal/analytics/repository"
	"github.com/taskflow/taskflow-backend/pkg/messaging"
)

// delayNotificationThreshold is the delay percentage above which the
// assignee is notified about the overrun.
const delayNotificationThreshold = 50.0

// AnalyzeDelays sweeps completed tasks that have no delay analysis yet and
// records one per task. The row is written at most once (insert-once store);
// a task already analyzed is skipped, so re-running the sweep is a no-op.
// When the recorded delay exceeds 50% of the planned duration, the assignee
// is notified.
func (s *AnalyticsService) AnalyzeDelays(ctx context.Context) error {
	candidates, err := s.metrics.ListDelayCandidates(ctx)
	if err != nil {
		return err
	}

	var firstErr error
	analyzed := 0
	for _, c := range candidates {
		inserted, err := s.analyzeCandidate(ctx, c)
		if err != nil {
			s.logger.Error().Err(err).
				Str("task_id", c.TaskID).
				Msg("failed to record delay analysis")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if inserted {
			analyzed++
		}
	}

	s.logger.Info().
		Int("candidates", len(candidates)).
		Int("analyzed", analyzed).
		Msg("delay analysis sweep finished")

	return firstErr
}

// AnalyzeTaskDelay records delay analysis for a single completed task. A task
// that is not a candidate (not completed, or already analyzed) is a no-op.
func (s *AnalyticsService) AnalyzeTaskDelay(ctx context.Context, taskID string) error {
	c, err := s.metrics.DelayCandidate(ctx, taskID)
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}

	_, err = s.analyzeCandidate(ctx, c)
	return err
}

// analyzeCandidate writes the delay row for one candidate and notifies the
// assignee on a large overrun. The insert-once store makes concurrent and
// repeated invocations converge on a single row and a single notification.
func (s *AnalyticsService) analyzeCandidate(ctx context.Context, c *repository.DelayCandidate) (bool, error) {
	row := buildDelayRow(c)

	inserted, err := s.delays.InsertOnce(ctx, row)
	if err != nil {
		return false, err
	}
	if !inserted {
		// Concurrent sweep got there first.
		return false, nil
	}

	if c.AssignedTo != nil && row.DelayPercentage != nil && *row.DelayPercentage > delayNotificationThreshold {
		s.enqueueNotification(ctx, messaging.NotificationJob{
			Kind:        "task_delayed",
			RecipientID: *c.AssignedTo,
			TaskID:      c.TaskID,
			Subject:     fmt.Sprintf("Task %q completed late", c.Title),
			Body: fmt.Sprintf(
				"Task %q took %.1f hours against a planned %.1f hours (%.1f%% over plan).",
				c.Title, row.ActualDuration, *row.PlannedDuration, *row.DelayPercentage,
			),
		})
	}

	return true, nil
}

// buildDelayRow derives the delay figures for one completed task. Duration
// fields are hours. Tasks without a due date get a row with nil planned
// duration and percentage so the sweep does not revisit them.
func buildDelayRow(c *repository.DelayCandidate) *repository.DelayAnalysis {
	row := &repository.DelayAnalysis{
		TaskID:         c.TaskID,
		ActualDuration: roundTo2(c.CompletedAt.Sub(c.CreatedAt).Hours()),
	}

	if c.DueDate == nil {
		return row
	}

	planned := roundTo2(c.DueDate.Sub(c.CreatedAt).Hours())
	row.PlannedDuration = &planned

	delay := row.ActualDuration - planned
	if delay < 0 {
		delay = 0
	}
	row.DelayHours = roundTo2(delay)

	if planned > 0 {
		pct := roundTo2(row.DelayHours / planned * 100)
		row.DelayPercentage = &pct
	}

	return row
}

// NotifyOverdue enqueues a reminder for every open assigned task past its
// due date.
func (s *AnalyticsService) NotifyOverdue(ctx context.Context) error {
	tasks, err := s.overdue.ListOverdue(ctx, s.clock.Now())
	if err != nil {
		return err
	}

	for _, task := range tasks {
		if task.AssignedTo == nil {
			continue
		}
		s.enqueueNotification(ctx, messaging.NotificationJob{
			Kind:        "task_overdue",
			RecipientID: *task.AssignedTo,
			TaskID:      task.ID,
			Subject:     fmt.Sprintf("Task %q is overdue", task.Title),
			Body:        fmt.Sprintf("Task %q passed its due date (%s) and is still open.", task.Title, task.DueDate.Format("2006-01-02")),
		})
	}

	s.logger.Info().Int("overdue", len(tasks)).Msg("overdue notification pass finished")

	return nil
}
