package service

import (
	"context"

	"github.com/taskflow/taskflow-backend/internal/analytics/repository"
)

// RecomputeProject overwrites a project's analytics snapshot from its
// current tasks. A project with zero tasks yields the zero row, never an
// error.
func (s *AnalyticsService) RecomputeProject(ctx context.Context, projectID string) error {
	metrics, err := s.metrics.ProjectTasks(ctx, projectID)
	if err != nil {
		return err
	}

	completion := 0.0
	if metrics.TotalTasks > 0 {
		completion = roundTo2(float64(metrics.CompletedTasks) / float64(metrics.TotalTasks) * 100)
	}

	return s.projects.Upsert(ctx, &repository.ProjectAnalytics{
		ProjectID:            projectID,
		TotalTasks:           metrics.TotalTasks,
		CompletedTasks:       metrics.CompletedTasks,
		CompletionPercentage: completion,
		TotalHoursEstimated:  metrics.TotalHoursEstimated,
		TotalHoursActual:     metrics.TotalHoursActual,
		AverageTaskDuration:  roundTo2(metrics.AverageDurationHours),
	})
}

// RecomputeAllProjects runs the project recompute over every project. One
// project failing does not abort the sweep.
func (s *AnalyticsService) RecomputeAllProjects(ctx context.Context) error {
	ids, err := s.projectIDs.ListIDs(ctx)
	if err != nil {
		return err
	}

	var firstErr error
	for _, id := range ids {
		if err := s.RecomputeProject(ctx, id); err != nil {
			s.logger.Error().Err(err).
				Str("project_id", id).
				Msg("failed to recompute project analytics")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	s.logger.Info().Int("projects", len(ids)).Msg("project analytics sweep finished")

	return firstErr
}
