package middleware

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/handler/http/response"
	"github.com/go-chi/jwtauth/v5"
)

// Principal is the caller identified by a verified access token.
type Principal struct {
	EmployeeID string
	CompanyID  string
	Role       employee.Role
}

type principalKey struct{}

// PrincipalFromContext returns the principal stored by AuthRequired.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// AuthRequired must run after jwtauth.Verifier. It accepts access tokens
// that carry a company and stores the caller as a Principal.
func AuthRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		tokenType, ok := claims["type"].(string)
		if !ok || tokenType != "access" {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		companyID, ok := claims["company_id"].(string)
		if !ok || companyID == "" {
			response.HandleError(w, auth.ErrCompanyIDRequired)
			return
		}

		employeeID, _ := claims["employee_id"].(string)
		role, _ := claims["role"].(string)

		ctx := WithPrincipal(r.Context(), Principal{
			EmployeeID: employeeID,
			CompanyID:  companyID,
			Role:       employee.Role(role),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
