package middleware

import (
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
)

// RequestLogger writes one logrus entry per request.
func RequestLogger() echo.MiddlewareFunc {
	return echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			entry := log.WithFields(log.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency,
				"request_id": v.RequestID,
			})
			if viewer := ViewerID(c); viewer != "" {
				entry = entry.WithField("viewer_id", viewer)
			}
			switch {
			case v.Error != nil && v.Status >= 500:
				entry.WithError(v.Error).Error("Request failed")
			case v.Error != nil:
				entry.WithError(v.Error).Info("Request rejected")
			default:
				entry.Info("Request handled")
			}
			return nil
		},
	})
}
