package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/reconciliation"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var configErr *schedule.ConfigurationError

	switch {
	// Auth errors
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrCompanyIDRequired):
		Forbidden(w, "No company associated with this token")
	case errors.Is(err, auth.ErrManagerAccessRequired):
		Forbidden(w, "Manager or owner role required")
	case errors.Is(err, auth.ErrSelfAccessOnly):
		Forbidden(w, "Employees may only access their own attendance")

	// Lookup errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, punch.ErrPunchNotFound):
		NotFound(w, "Punch not found")

	// Reconciliation errors
	case errors.As(err, &configErr):
		UnprocessableEntity(w, "CONFIGURATION_ERROR", configErr.Error())
	case errors.Is(err, schedule.ErrConfiguration):
		UnprocessableEntity(w, "CONFIGURATION_ERROR", "Schedule is not configured")
	case errors.Is(err, reconciliation.ErrDataUnavailable):
		slog.Error("attendance data unavailable", slog.Any("error", err))
		ServiceUnavailable(w, "DATA_UNAVAILABLE", "Attendance data is temporarily unavailable")

	// Default
	default:
		slog.Error("unhandled error", slog.Any("error", err))
		InternalServerError(w, "An unexpected error occurred")
	}
}
