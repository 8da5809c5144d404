package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/taskflow/taskflow-backend/internal/analytics/repository"
	"github.com/taskflow/taskflow-backend/pkg/errors"
)

var validReportTypes = map[string]bool{
	repository.ReportDaily:     true,
	repository.ReportWeekly:    true,
	repository.ReportMonthly:   true,
	repository.ReportQuarterly: true,
	repository.ReportYearly:    true,
}

// reportSummary is the JSONB payload persisted with a report snapshot.
type reportSummary struct {
	TasksByStatus     map[string]int `json:"tasks_by_status"`
	CompletedInPeriod int            `json:"completed_in_period"`
	HoursLogged       float64        `json:"hours_logged"`
	ActiveEmployees   int            `json:"active_employees"`
}

// GenerateReport persists an immutable summary snapshot for a date range.
func (s *AnalyticsService) GenerateReport(ctx context.Context, reportType string, start, end time.Time, requestedBy string) (*repository.PerformanceReport, error) {
	if !validReportTypes[reportType] {
		return nil, errors.BadRequest("invalid report type")
	}
	if end.Before(start) {
		return nil, errors.BadRequest("end date before start date")
	}

	statusCounts, err := s.metrics.CountTasksByStatus(ctx)
	if err != nil {
		return nil, err
	}
	byStatus := make(map[string]int, len(statusCounts))
	for _, sc := range statusCounts {
		byStatus[sc.Status] = sc.Count
	}

	completed, err := s.metrics.CountCompletedBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	hours, err := s.metrics.SumHoursBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	employees, err := s.directory.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	summary, err := json.Marshal(reportSummary{
		TasksByStatus:     byStatus,
		CompletedInPeriod: completed,
		HoursLogged:       hours,
		ActiveEmployees:   len(employees),
	})
	if err != nil {
		return nil, err
	}

	var generatedBy *string
	if requestedBy != "" {
		generatedBy = &requestedBy
	}

	report := &repository.PerformanceReport{
		ReportType:  reportType,
		StartDate:   dateOnly(start),
		EndDate:     dateOnly(end),
		GeneratedBy: generatedBy,
		Summary:     summary,
		IsGenerated: true,
	}

	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("report_type", reportType).
		Str("report_id", report.ID).
		Msg("performance report generated")

	return report, nil
}
