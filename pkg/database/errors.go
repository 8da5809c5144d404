package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/taskflow/taskflow-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "status_valid"):
		return errors.Validation(map[string]string{
			"status": "must be one of: TODO, IN_PROGRESS, REVIEW, COMPLETED, CANCELLED",
		})

	case strings.Contains(constraint, "priority_valid"):
		return errors.Validation(map[string]string{
			"priority": "must be one of: LOW, MEDIUM, HIGH, URGENT",
		})

	case strings.Contains(constraint, "hours_positive"):
		return errors.Validation(map[string]string{
			"hours": "must be greater than zero",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "employee_productivity"):
		return "a productivity record already exists for this employee and date"
	case strings.Contains(constraint, "workload_distribution"):
		return "a workload record already exists for this employee and date"
	case strings.Contains(constraint, "delay_analysis"):
		return "a delay analysis record already exists for this task"
	case strings.Contains(constraint, "email"):
		return "an employee with this email already exists"
	default:
		return "a record with these values already exists"
	}
}
