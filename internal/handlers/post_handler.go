package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nestsocial/nest/backend/internal/middleware"
	"github.com/nestsocial/nest/backend/internal/models"
	"github.com/nestsocial/nest/backend/internal/services"
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	posts *services.PostService
	feed  *services.FeedAssembler
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(posts *services.PostService, feed *services.FeedAssembler) *PostHandler {
	return &PostHandler{posts: posts, feed: feed}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group, auth AuthMiddleware) {
	g.POST("/posts", h.CreatePost, auth.Required)
	g.GET("/posts/:id", h.GetPost, auth.Optional)
	g.DELETE("/posts/:id", h.DeletePost, auth.Required)
}

// CreatePost creates an original post, a reply or a quote
func (h *PostHandler) CreatePost(c echo.Context) error {
	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	viewerID := middleware.ViewerID(c)
	post, err := h.posts.Create(c.Request().Context(), viewerID, req)
	if err != nil {
		return httpError(c, err)
	}

	item, err := h.feed.View(c.Request().Context(), post.ID, viewerID)
	if err != nil {
		// the post is stored; answer with the unannotated record
		return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": post})
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": item})
}

// GetPost retrieves a single post annotated for the viewer
func (h *PostHandler) GetPost(c echo.Context) error {
	item, err := h.feed.View(c.Request().Context(), c.Param("id"), middleware.ViewerID(c))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": item})
}

// DeletePost deletes one of the caller's own posts
func (h *PostHandler) DeletePost(c echo.Context) error {
	if err := h.posts.Delete(c.Request().Context(), c.Param("id"), middleware.ViewerID(c)); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
