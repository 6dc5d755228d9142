package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo-contrib/echoprometheus"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"erpcore/internal/auth"
	"erpcore/internal/config"
	"erpcore/internal/handler"
	"erpcore/internal/logger"
	"erpcore/internal/middleware"
	"erpcore/internal/policy"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	tokenStore auth.TokenStoreInterface,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
) {
	e.HideBanner = true
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("erpcore"))

	e.Validator = &CustomValidator{validator: validator.New()}
	e.HTTPErrorHandler = NewHTTPErrorHandler(logger.Get())

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)

	// Secured routes (require a valid access token)
	secured := api.Group("", echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(cfg.JWTSecret),
		NewClaimsFunc: func(echo.Context) jwt.Claims {
			return new(auth.Claims)
		},
	}), middleware.Actor(tokenStore))

	secured.POST("/auth/logout", authHandler.Logout)

	secured.GET("/me", userHandler.Profile)
	secured.PUT("/me", userHandler.UpdateProfile)
	secured.GET("/stats", userHandler.Stats)
	secured.GET("/roles", userHandler.ListRoles)

	// User management; object-level policy is applied in the service.
	secured.POST("/users", userHandler.Create,
		middleware.RBAC(policy.RoleAdmin))
	secured.GET("/users", userHandler.List,
		middleware.RBAC(policy.RoleAdmin, policy.RoleManager))
	secured.GET("/users/:id", userHandler.Get)
	secured.PUT("/users/:id", userHandler.Update)
	secured.PATCH("/users/:id", userHandler.Update)
	secured.DELETE("/users/:id", userHandler.Delete)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
