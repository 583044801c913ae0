package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nestsocial/nest/backend/internal/apperrors"
	"github.com/nestsocial/nest/backend/internal/validators"
	log "github.com/sirupsen/logrus"
)

// AuthMiddleware bundles the two authentication modes routes can ask for.
type AuthMiddleware struct {
	Required echo.MiddlewareFunc
	Optional echo.MiddlewareFunc
}

// httpError maps a domain error onto an echo.HTTPError. Internal details are logged,
// not returned.
func httpError(c echo.Context, err error) error {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"path":       c.Path(),
			"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		}).Error("Request failed")
		if status == http.StatusServiceUnavailable {
			return echo.NewHTTPError(status, "Service temporarily unavailable, please retry")
		}
		return echo.NewHTTPError(status, "Internal server error")
	}
	return echo.NewHTTPError(status, err.Error())
}

// bindAndValidate decodes the request body into req and runs the echo validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, validators.Message(err))
	}
	return nil
}
