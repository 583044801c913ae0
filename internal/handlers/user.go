package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/nestsocial/nest/backend/internal/identity"
	"github.com/nestsocial/nest/backend/internal/middleware"
	"github.com/nestsocial/nest/backend/internal/models"
	"github.com/nestsocial/nest/backend/internal/repositories"
	"github.com/samber/lo"
)

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	userRepository repositories.UserRepository
	profiles       *identity.Resolver
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, profiles *identity.Resolver) *UserHandler {
	return &UserHandler{userRepository: userRepo, profiles: profiles}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group, auth AuthMiddleware) {
	g.GET("/profile", h.GetProfile, auth.Required)
	g.PUT("/profile", h.UpdateProfile, auth.Required)
	g.GET("/users/search", h.SearchUsers, auth.Optional)
	g.GET("/users/:id", h.GetUser, auth.Optional)
}

// GetUser resolves another user's public profile
func (h *UserHandler) GetUser(c echo.Context) error {
	profile, err := h.profiles.Lookup(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

// GetProfile resolves the authenticated user's profile, falling back to the placeholder
func (h *UserHandler) GetProfile(c echo.Context) error {
	return c.JSON(http.StatusOK, h.profiles.Profile(c.Request().Context(), middleware.ViewerID(c)))
}

// UpdateProfile creates or edits the caller's local profile; email and verification are kept
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req models.UpsertProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	viewerID := middleware.ViewerID(c)
	user := &models.User{
		ExternalID:  viewerID,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	}
	if err := h.userRepository.UpdateProfile(c.Request().Context(), user); err != nil {
		return httpError(c, err)
	}
	h.profiles.Invalidate(viewerID)
	return c.JSON(http.StatusOK, user.ToProfile())
}

// SearchUsers searches local profiles by username or display name
func (h *UserHandler) SearchUsers(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Search query 'q' is required")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 50 {
		limit = 10
	}

	users, err := h.userRepository.SearchUsers(c.Request().Context(), query, limit)
	if err != nil {
		return httpError(c, err)
	}
	profiles := lo.Map(users, func(u models.User, _ int) models.Profile { return u.ToProfile() })
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": profiles})
}
