package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/nestsocial/nest/backend/internal/middleware"
	"github.com/nestsocial/nest/backend/internal/services"
)

// FeedHandler handles feed-related HTTP requests
type FeedHandler struct {
	feed *services.FeedAssembler
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(feed *services.FeedAssembler) *FeedHandler {
	return &FeedHandler{feed: feed}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group, auth AuthMiddleware) {
	g.GET("/feed", h.GetFeed, auth.Optional)
}

// GetFeed returns the most recent originals and retweets annotated for the viewer
func (h *FeedHandler) GetFeed(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	limit = h.feed.Limit(limit)

	feed, err := h.feed.Recent(c.Request().Context(), middleware.ViewerID(c), limit)
	if err != nil {
		return httpError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"posts": feed.Posts,
		},
		"meta": echo.Map{
			"has_more":       feed.HasMore,
			"total_returned": feed.TotalReturned,
			"limit":          limit,
		},
	})
}
