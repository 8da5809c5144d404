package service

import (
	"context"
	"math"
	"time"

	"github.com/taskflow/taskflow-backend/internal/analytics/repository"
)

// RecomputeDailyProductivity rebuilds the productivity and workload rollups
// for every active employee on the target day. tasks_assigned stays
// cumulative while tasks_completed and hours_logged are scoped to the day.
// Each employee is processed independently; one failure does not abort the
// rest of the pass.
func (s *AnalyticsService) RecomputeDailyProductivity(ctx context.Context, day time.Time) error {
	day = dateOnly(day)
	now := s.clock.Now()

	employees, err := s.directory.ListActive(ctx)
	if err != nil {
		return err
	}

	var firstErr error
	for _, emp := range employees {
		if err := s.recomputeEmployee(ctx, emp.UserID, day, now); err != nil {
			s.logger.Error().Err(err).
				Str("user_id", emp.UserID).
				Time("day", day).
				Msg("failed to recompute employee productivity")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	s.logger.Info().
		Time("day", day).
		Int("employees", len(employees)).
		Msg("daily productivity recompute finished")

	return firstErr
}

// RecomputeEmployeeProductivity rebuilds one employee's productivity and
// workload rollups for the target day. The time-log trigger uses this scoped
// form; the nightly full pass keeps everyone else converged.
func (s *AnalyticsService) RecomputeEmployeeProductivity(ctx context.Context, userID string, day time.Time) error {
	return s.recomputeEmployee(ctx, userID, dateOnly(day), s.clock.Now())
}

func (s *AnalyticsService) recomputeEmployee(ctx context.Context, userID string, day, now time.Time) error {
	dayMetrics, err := s.metrics.EmployeeDay(ctx, userID, day)
	if err != nil {
		return err
	}

	efficiency := 0.0
	if dayMetrics.HoursLogged > 0 {
		efficiency = roundTo2(float64(dayMetrics.TasksCompleted) / dayMetrics.HoursLogged * 100)
	}

	if err := s.productivity.UpsertProductivity(ctx, &repository.EmployeeProductivity{
		UserID:          userID,
		Day:             day,
		TasksCompleted:  dayMetrics.TasksCompleted,
		TasksAssigned:   dayMetrics.TasksAssigned,
		HoursLogged:     dayMetrics.HoursLogged,
		EfficiencyScore: efficiency,
	}); err != nil {
		return err
	}

	workload, err := s.metrics.EmployeeWorkload(ctx, userID, now)
	if err != nil {
		return err
	}

	score := 0.0
	if workload.TotalEstimatedHours > 0 {
		score = math.Min(100, workload.TotalEstimatedHours/8*100)
	}

	return s.productivity.UpsertWorkload(ctx, &repository.WorkloadDistribution{
		UserID:              userID,
		Day:                 day,
		ActiveTasksCount:    workload.ActiveTasksCount,
		TotalEstimatedHours: workload.TotalEstimatedHours,
		OverdueTasksCount:   workload.OverdueTasksCount,
		WorkloadScore:       roundTo2(score),
	})
}

// AggregateDepartments rolls the day's productivity rows up per department.
// It must run after RecomputeDailyProductivity for the same day; stale rows
// only yield stale numbers until the next cycle, never an error.
func (s *AnalyticsService) AggregateDepartments(ctx context.Context, day time.Time) error {
	return s.aggregateDepartments(ctx, dateOnly(day), "")
}

// AggregateDepartment rolls the day's productivity rows up for a single
// department. A department with no active employees is skipped.
func (s *AnalyticsService) AggregateDepartment(ctx context.Context, department string, day time.Time) error {
	return s.aggregateDepartments(ctx, dateOnly(day), department)
}

func (s *AnalyticsService) aggregateDepartments(ctx context.Context, day time.Time, only string) error {
	headcounts, err := s.departments.ActiveHeadcounts(ctx)
	if err != nil {
		return err
	}

	rows, err := s.productivity.ListByDateWithDepartment(ctx, day)
	if err != nil {
		return err
	}

	type rollup struct {
		activeTasks    int
		completedTasks int
		hoursLogged    float64
		efficiencySum  float64
		rowCount       int
	}
	byDepartment := make(map[string]*rollup)
	for _, row := range rows {
		agg, ok := byDepartment[row.Department]
		if !ok {
			agg = &rollup{}
			byDepartment[row.Department] = agg
		}
		agg.activeTasks += row.TasksAssigned - row.TasksCompleted
		agg.completedTasks += row.TasksCompleted
		agg.hoursLogged += row.HoursLogged
		agg.efficiencySum += row.EfficiencyScore
		agg.rowCount++
	}

	var firstErr error
	for _, hc := range headcounts {
		if only != "" && hc.Department != only {
			continue
		}
		agg := byDepartment[hc.Department]
		if agg == nil {
			// No productivity rows for this department today; the zero case.
			agg = &rollup{}
		}

		avgEfficiency := 0.0
		if agg.rowCount > 0 {
			avgEfficiency = roundTo2(agg.efficiencySum / float64(agg.rowCount))
		}

		if err := s.departments.Upsert(ctx, &repository.DepartmentAnalytics{
			Department:        hc.Department,
			Day:               day,
			TotalEmployees:    hc.Count,
			ActiveTasks:       agg.activeTasks,
			CompletedTasks:    agg.completedTasks,
			TotalHoursLogged:  agg.hoursLogged,
			AverageEfficiency: avgEfficiency,
		}); err != nil {
			s.logger.Error().Err(err).
				Str("department", hc.Department).
				Time("day", day).
				Msg("failed to upsert department analytics")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// roundTo2 rounds to 2 decimal places
func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// dateOnly truncates a timestamp to its date in the same location
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
