package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/anonto42/yatube/backend/internal/middleware"
	"github.com/anonto42/yatube/backend/internal/models"
	"github.com/anonto42/yatube/backend/internal/services"
	"github.com/anonto42/yatube/backend/validators"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles comment submission
type CommentHandler struct {
	comments *services.CommentService
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group, loginRequired echo.MiddlewareFunc) {
	g.POST("/posts/:id/comment/", h.AddComment, loginRequired)
}

// AddComment stores a comment and always returns to the post page.
// Invalid comments are dropped without feedback.
func (h *CommentHandler) AddComment(c echo.Context) error {
	id, err := postID(c)
	if err != nil {
		return err
	}

	var req models.CommentRequest
	if err := c.Bind(&req); err != nil {
		slog.Debug("ignoring malformed comment form", "post_id", id, "error", err)
		req = models.CommentRequest{}
	}

	_, err = h.comments.Add(c.Request().Context(), middleware.CurrentUser(c), id, req)
	var fe validators.FieldErrors
	switch {
	case errors.As(err, &fe):
		slog.Debug("comment rejected", "post_id", id, "error", fe)
	case err != nil:
		return serviceError(err)
	}
	return c.Redirect(http.StatusFound, detailURL(id))
}
