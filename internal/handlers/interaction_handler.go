package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nestsocial/nest/backend/internal/middleware"
	"github.com/nestsocial/nest/backend/internal/models"
	"github.com/nestsocial/nest/backend/internal/services"
)

// InteractionHandler exposes likes and retweets
type InteractionHandler struct {
	ledger *services.InteractionLedger
}

// NewInteractionHandler creates a new InteractionHandler
func NewInteractionHandler(ledger *services.InteractionLedger) *InteractionHandler {
	return &InteractionHandler{ledger: ledger}
}

// RegisterInteractionRoutes registers like and retweet routes. POST toggles; PUT and
// DELETE converge on an explicit state and are safe to repeat.
func (h *InteractionHandler) RegisterInteractionRoutes(g *echo.Group, auth AuthMiddleware) {
	g.POST("/posts/:id/like", h.ToggleLike, auth.Required)
	g.PUT("/posts/:id/like", h.PutLike, auth.Required)
	g.DELETE("/posts/:id/like", h.Unlike, auth.Required)

	g.POST("/posts/:id/retweet", h.ToggleRetweet, auth.Required)
	g.PUT("/posts/:id/retweet", h.PutRetweet, auth.Required)
	g.DELETE("/posts/:id/retweet", h.Unretweet, auth.Required)

	g.GET("/posts/:id/interactions", h.Inspect, auth.Required)
}

func (h *InteractionHandler) ToggleLike(c echo.Context) error {
	res, err := h.ledger.ToggleLike(c.Request().Context(), c.Param("id"), middleware.ViewerID(c))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": res})
}

func (h *InteractionHandler) PutLike(c echo.Context) error {
	var req models.SetLikedRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return h.setLiked(c, *req.Liked)
}

func (h *InteractionHandler) Unlike(c echo.Context) error {
	return h.setLiked(c, false)
}

func (h *InteractionHandler) setLiked(c echo.Context, desired bool) error {
	res, err := h.ledger.SetLiked(c.Request().Context(), c.Param("id"), middleware.ViewerID(c), desired)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": res})
}

func (h *InteractionHandler) ToggleRetweet(c echo.Context) error {
	res, err := h.ledger.ToggleRetweet(c.Request().Context(), c.Param("id"), middleware.ViewerID(c))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": res})
}

func (h *InteractionHandler) PutRetweet(c echo.Context) error {
	var req models.SetRetweetedRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return h.setRetweeted(c, *req.Retweeted)
}

func (h *InteractionHandler) Unretweet(c echo.Context) error {
	return h.setRetweeted(c, false)
}

func (h *InteractionHandler) setRetweeted(c echo.Context, desired bool) error {
	res, err := h.ledger.SetRetweeted(c.Request().Context(), c.Param("id"), middleware.ViewerID(c), desired)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": res})
}

// Inspect returns the raw membership sets of a post
func (h *InteractionHandler) Inspect(c echo.Context) error {
	snap, err := h.ledger.Inspect(c.Request().Context(), c.Param("id"), middleware.ViewerID(c))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": snap})
}
