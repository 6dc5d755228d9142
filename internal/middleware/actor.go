package middleware

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"erpcore/internal/auth"
	"erpcore/internal/policy"
)

const actorContextKey = "actor"

// Actor converts the JWT validated by echo-jwt into an explicit
// policy.Actor on the request context, rejecting blacklisted access
// tokens. Downstream code never reaches into raw claims.
func Actor(tokenStore auth.TokenStoreInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			claims, ok := token.Claims.(*auth.Claims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			if claims.ID != "" {
				denied, err := tokenStore.IsAccessTokenBlacklisted(c.Request().Context(), claims.ID)
				if err != nil {
					return err
				}
				if denied {
					return echo.NewHTTPError(http.StatusUnauthorized, "token revoked")
				}
			}

			c.Set(actorContextKey, policy.Actor{
				UserID: claims.UserID,
				Role:   policy.Role(claims.Role),
			})
			return next(c)
		}
	}
}

// ActorFromContext returns the authenticated actor set by Actor.
func ActorFromContext(c echo.Context) (policy.Actor, bool) {
	actor, ok := c.Get(actorContextKey).(policy.Actor)
	return actor, ok
}
