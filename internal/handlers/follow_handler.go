package handlers

import (
	"net/http"

	"github.com/anonto42/yatube/backend/internal/middleware"
	"github.com/anonto42/yatube/backend/internal/render"
	"github.com/anonto42/yatube/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// FollowHandler handles the follow feed and follow/unfollow requests
type FollowHandler struct {
	follows *services.FollowService
	posts   *services.PostService
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(follows *services.FollowService, posts *services.PostService) *FollowHandler {
	return &FollowHandler{follows: follows, posts: posts}
}

// RegisterFollowRoutes registers follow-related routes. Follow and unfollow
// also answer GET so plain links keep working.
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group, loginRequired echo.MiddlewareFunc) {
	methods := []string{http.MethodGet, http.MethodPost}
	g.GET("/follow/", h.FollowIndex, loginRequired)
	g.Match(methods, "/profile/:username/follow/", h.ProfileFollow, loginRequired)
	g.Match(methods, "/profile/:username/unfollow/", h.ProfileUnfollow, loginRequired)
}

// FollowIndex lists posts by every author the current user follows.
func (h *FollowHandler) FollowIndex(c echo.Context) error {
	page, err := h.posts.Feed(c.Request().Context(), middleware.CurrentUser(c), c.QueryParam("page"))
	if err != nil {
		return serviceError(err)
	}
	return c.Render(http.StatusOK, render.FollowPage, render.FollowView{Base: base(c), Page: page})
}

// ProfileFollow subscribes the current user to an author.
func (h *FollowHandler) ProfileFollow(c echo.Context) error {
	username := c.Param("username")
	if err := h.follows.Follow(c.Request().Context(), middleware.CurrentUser(c), username); err != nil {
		return serviceError(err)
	}
	return c.Redirect(http.StatusFound, profileURL(username))
}

// ProfileUnfollow removes the current user's subscription to an author.
func (h *FollowHandler) ProfileUnfollow(c echo.Context) error {
	username := c.Param("username")
	if err := h.follows.Unfollow(c.Request().Context(), middleware.CurrentUser(c), username); err != nil {
		return serviceError(err)
	}
	return c.Redirect(http.StatusFound, profileURL(username))
}
