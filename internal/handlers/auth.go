package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nestsocial/nest/backend/internal/identity"
	"github.com/nestsocial/nest/backend/internal/middleware"
)

// SessionSigner issues local bearer tokens.
type SessionSigner interface {
	Sign(userID, email string, ttl time.Duration) (string, error)
}

// AuthHandler exchanges identity provider tokens for local session tokens
type AuthHandler struct {
	provider middleware.TokenVerifier
	signer   SessionSigner
	profiles *identity.Resolver
	ttl      time.Duration
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(provider middleware.TokenVerifier, signer SessionSigner, profiles *identity.Resolver, ttl time.Duration) *AuthHandler {
	return &AuthHandler{provider: provider, signer: signer, profiles: profiles, ttl: ttl}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/auth/session", h.CreateSession)
}

// SessionRequest defines the request body for a session exchange
type SessionRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// CreateSession verifies an identity provider ID token and issues a local JWT
func (h *AuthHandler) CreateSession(c echo.Context) error {
	var req SessionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	uid, err := h.provider.VerifyToken(c.Request().Context(), req.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid ID token")
	}

	token, err := h.signer.Sign(uid, "", h.ttl)
	if err != nil {
		return httpError(c, err)
	}

	profile := h.profiles.Profile(c.Request().Context(), uid)
	return c.JSON(http.StatusOK, echo.Map{
		"token":      token,
		"expires_in": int(h.ttl.Seconds()),
		"user":       profile,
	})
}

