package middleware

import (
	"net/http"

	"github.com/angelmondragon/saleminimum-backend/api/responses"
	"github.com/angelmondragon/saleminimum-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/saleminimum-backend/pkg/errors"
	"github.com/angelmondragon/saleminimum-backend/pkg/logger"
)

// RequireRole only lets through the listed roles.
func RequireRole(logg *logger.Logger, roles ...enums.UserRole) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[string(role)] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := allowed[RoleFromContext(r.Context())]; !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSalesEditor lets through roles allowed to change sales.
func RequireSalesEditor(logg *logger.Logger) func(http.Handler) http.Handler {
	editors := make([]enums.UserRole, 0, 2)
	for _, role := range enums.UserRoles() {
		if role.CanEditSales() {
			editors = append(editors, role)
		}
	}
	return RequireRole(logg, editors...)
}
