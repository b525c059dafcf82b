package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/stockledger/stockledger-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
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

func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	switch constraint := pqErr.Constraint; {
	case strings.Contains(constraint, "movement_valid"):
		return errors.Validation(map[string]string{"movement": "must be one of: IN, OUT"})
	case strings.Contains(constraint, "status_valid"):
		return errors.Validation(map[string]string{"status": "must be one of: submitted, completed, rejected, cancelled"})
	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

func formatConstraintMessage(pqErr *pq.Error) string {
	switch constraint := pqErr.Constraint; {
	case strings.Contains(constraint, "branches_code"):
		return "a branch with this code already exists"
	case strings.Contains(constraint, "branches_name"):
		return "a branch with this name already exists"
	default:
		return "a record with these values already exists"
	}
}
