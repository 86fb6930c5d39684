package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/handler/http/response"
)

// RequireManager requires manager or owner role
func RequireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		if !p.Role.CanManageAttendance() {
			response.HandleError(w, auth.ErrManagerAccessRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CanAccessEmployee reports whether p may read employeeID's attendance.
func (p Principal) CanAccessEmployee(employeeID string) bool {
	return p.Role.CanManageAttendance() || p.EmployeeID == employeeID
}
