package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// ViewerKey is the echo context key holding the authenticated user id.
const ViewerKey = "viewerID"

var (
	errMissingHeader = errors.New("authorization header is missing")
	errBadScheme     = errors.New("authorization header must be in Bearer format")
)

// TokenVerifier turns a bearer token into the identity provider UID of its holder.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

// Verifiers accepts a token if any of its members does.
type Verifiers []TokenVerifier

func (vs Verifiers) VerifyToken(ctx context.Context, token string) (string, error) {
	var errs []error
	for _, v := range vs {
		uid, err := v.VerifyToken(ctx, token)
		if err == nil {
			return uid, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", errors.New("no token verifier configured")
	}
	return "", errors.Join(errs...)
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(v TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid, err := authenticate(c, v)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}
			c.Set(ViewerKey, uid)
			return next(c)
		}
	}
}

// OptionalAuth identifies the viewer when a token is present and falls back to an
// anonymous viewer otherwise. A token that fails verification is still rejected.
func OptionalAuth(v TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid, err := authenticate(c, v)
			switch {
			case errors.Is(err, errMissingHeader):
				return next(c)
			case err != nil:
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}
			c.Set(ViewerKey, uid)
			return next(c)
		}
	}
}

// ViewerID returns the authenticated user id, or "" for anonymous requests.
func ViewerID(c echo.Context) string {
	uid, _ := c.Get(ViewerKey).(string)
	return uid
}

func authenticate(c echo.Context, v TokenVerifier) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", errMissingHeader
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", errBadScheme
	}
	uid, err := v.VerifyToken(c.Request().Context(), token)
	if err != nil {
		log.WithError(err).WithField("path", c.Path()).Debug("Rejected bearer token")
		return "", errors.New("invalid or expired token")
	}
	return uid, nil
}
