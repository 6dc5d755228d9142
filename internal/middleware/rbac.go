package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"erpcore/internal/metrics"
	"erpcore/internal/policy"
)

// RBAC enforces role-based access control at the route level. The
// services re-check object-level policy; this gate just keeps the wrong
// tier off the endpoint entirely.
func RBAC(allowedRoles ...policy.Role) echo.MiddlewareFunc {
	allowed := make(map[policy.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFromContext(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if _, ok := allowed[actor.Role]; !ok {
				metrics.PolicyDenialsTotal.WithLabelValues(string(actor.Role)).Inc()
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}
