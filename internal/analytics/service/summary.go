package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/taskflow/taskflow-backend/pkg/messaging"
)

// SendDailySummaries enqueues one summary notification per active employee,
// covering the day's productivity rollup and the employee's current pending
// and overdue task counts. Employees without a productivity row for the day
// get a summary saying so rather than being skipped.
func (s *AnalyticsService) SendDailySummaries(ctx context.Context, day time.Time) error {
	day = dateOnly(day)

	employees, err := s.directory.ListActive(ctx)
	if err != nil {
		return err
	}

	var firstErr error
	for _, emp := range employees {
		if err := s.summarizeEmployee(ctx, emp.UserID, emp.FullName, day); err != nil {
			s.logger.Error().Err(err).
				Str("user_id", emp.UserID).
				Time("day", day).
				Msg("failed to build daily summary")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	s.logger.Info().
		Time("day", day).
		Int("employees", len(employees)).
		Msg("daily summary pass finished")

	return firstErr
}

func (s *AnalyticsService) summarizeEmployee(ctx context.Context, userID, fullName string, day time.Time) error {
	rows, err := s.productivity.ListProductivityByUser(ctx, userID, day, day)
	if err != nil {
		return err
	}

	productivity := "No productivity data recorded for today."
	if len(rows) > 0 {
		row := rows[0]
		productivity = fmt.Sprintf(
			"Today's summary:\n- Tasks completed: %d\n- Tasks assigned: %d\n- Hours logged: %.1f\n- Efficiency score: %.2f",
			row.TasksCompleted, row.TasksAssigned, row.HoursLogged, row.EfficiencyScore,
		)
	}

	workload, err := s.metrics.EmployeeWorkload(ctx, userID, s.clock.Now())
	if err != nil {
		return err
	}

	body := strings.Join([]string{
		fmt.Sprintf("Hello %s,", fullName),
		productivity,
		fmt.Sprintf("Current status:\n- Pending tasks: %d\n- Overdue tasks: %d", workload.ActiveTasksCount, workload.OverdueTasksCount),
		"Have a productive day!",
	}, "\n\n")

	s.enqueueNotification(ctx, messaging.NotificationJob{
		Kind:        "daily_summary",
		RecipientID: userID,
		Subject:     fmt.Sprintf("Daily Task Summary - %s", day.Format("2006-01-02")),
		Body:        body,
	})

	return nil
}
