package config

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	nestMiddleware "github.com/nestsocial/nest/backend/internal/middleware"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(nestMiddleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
}
