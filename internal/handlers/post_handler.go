package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/anonto42/yatube/backend/internal/middleware"
	"github.com/anonto42/yatube/backend/internal/models"
	"github.com/anonto42/yatube/backend/internal/render"
	"github.com/anonto42/yatube/backend/internal/services"
	"github.com/anonto42/yatube/backend/validators"
	"github.com/labstack/echo/v4"
)

// PostHandler serves post listings, post pages and the post forms.
type PostHandler struct {
	posts *services.PostService
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(posts *services.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

// RegisterPostRoutes registers post routes. indexCache wraps the index page only.
func (h *PostHandler) RegisterPostRoutes(g *echo.Group, loginRequired, indexCache echo.MiddlewareFunc) {
	g.GET("/", h.Index, indexCache)
	g.GET("/group/:slug/", h.GroupPosts)
	g.GET("/profile/:username/", h.Profile)
	g.GET("/posts/:id/", h.PostDetail)
	g.GET("/create/", h.PostCreateForm, loginRequired)
	g.POST("/create/", h.PostCreate, loginRequired)
	g.GET("/posts/:id/edit/", h.PostEditForm, loginRequired)
	g.POST("/posts/:id/edit/", h.PostEdit, loginRequired)
	g.POST("/posts/:id/delete/", h.PostDelete, loginRequired)
}

// Index lists every post, newest first.
func (h *PostHandler) Index(c echo.Context) error {
	page, err := h.posts.Index(c.Request().Context(), c.QueryParam("page"))
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, render.IndexPage, render.IndexView{Base: base(c), Page: page})
}

// GroupPosts lists the posts of one group.
func (h *PostHandler) GroupPosts(c echo.Context) error {
	group, page, err := h.posts.GroupPosts(c.Request().Context(), c.Param("slug"), c.QueryParam("page"))
	if err != nil {
		return serviceError(err)
	}
	return c.Render(http.StatusOK, render.GroupPage, render.GroupView{Base: base(c), Group: group, Page: page})
}

// Profile lists the posts of one author.
func (h *PostHandler) Profile(c echo.Context) error {
	profile, err := h.posts.Profile(c.Request().Context(), middleware.CurrentUser(c), c.Param("username"), c.QueryParam("page"))
	if err != nil {
		return serviceError(err)
	}
	return c.Render(http.StatusOK, render.ProfilePage, render.ProfileView{
		Base:           base(c),
		Author:         profile.Author,
		Page:           profile.Page,
		Following:      profile.Following,
		FollowersCount: profile.FollowersCount,
		FollowingCount: profile.FollowingCount,
	})
}

// PostDetail shows a post with its comments and the comment form.
func (h *PostHandler) PostDetail(c echo.Context) error {
	id, err := postID(c)
	if err != nil {
		return err
	}
	post, comments, err := h.posts.Detail(c.Request().Context(), id)
	if err != nil {
		return serviceError(err)
	}
	return c.Render(http.StatusOK, render.DetailPage, render.DetailView{Base: base(c), Post: post, Comments: comments})
}

// PostCreateForm shows an empty post form.
func (h *PostHandler) PostCreateForm(c echo.Context) error {
	return h.renderForm(c, http.StatusOK, render.PostFormView{})
}

// PostCreate stores a new post and redirects to the author's profile.
func (h *PostHandler) PostCreate(c echo.Context) error {
	user := middleware.CurrentUser(c)
	in, closeImage, err := bindPost(c)
	if err != nil {
		return err
	}
	defer closeImage()

	_, err = h.posts.Create(c.Request().Context(), user, in)
	var fe validators.FieldErrors
	if errors.As(err, &fe) {
		return h.renderForm(c, http.StatusOK, render.PostFormView{Form: in.PostRequest, Errors: fe})
	}
	if err != nil {
		return serviceError(err)
	}
	return c.Redirect(http.StatusFound, profileURL(user.Username))
}

// PostEditForm shows the post form filled from an existing post.
// Users other than the author are sent to the post page.
func (h *PostHandler) PostEditForm(c echo.Context) error {
	id, err := postID(c)
	if err != nil {
		return err
	}
	post, err := h.posts.Editable(c.Request().Context(), middleware.CurrentUser(c), id)
	if errors.Is(err, services.ErrForbidden) {
		return c.Redirect(http.StatusFound, detailURL(id))
	}
	if err != nil {
		return serviceError(err)
	}

	form := models.PostRequest{Text: post.Text}
	if post.GroupID != nil {
		form.Group = fmt.Sprint(*post.GroupID)
	}
	return h.renderForm(c, http.StatusOK, render.PostFormView{Form: form, Post: post, IsEdit: true})
}

// PostEdit updates a post in place and redirects to its page.
func (h *PostHandler) PostEdit(c echo.Context) error {
	id, err := postID(c)
	if err != nil {
		return err
	}
	in, closeImage, err := bindPost(c)
	if err != nil {
		return err
	}
	defer closeImage()

	ctx := c.Request().Context()
	_, err = h.posts.Update(ctx, middleware.CurrentUser(c), id, in)
	var fe validators.FieldErrors
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Redirect(http.StatusFound, detailURL(id))
	case errors.As(err, &fe):
		post, gErr := h.posts.Get(ctx, id)
		if gErr != nil {
			return serviceError(gErr)
		}
		return h.renderForm(c, http.StatusOK, render.PostFormView{Form: in.PostRequest, Errors: fe, Post: post, IsEdit: true})
	case err != nil:
		return serviceError(err)
	}
	return c.Redirect(http.StatusFound, detailURL(id))
}

// PostDelete removes a post owned by the current user.
func (h *PostHandler) PostDelete(c echo.Context) error {
	id, err := postID(c)
	if err != nil {
		return err
	}
	user := middleware.CurrentUser(c)
	_, err = h.posts.Delete(c.Request().Context(), user, id)
	if errors.Is(err, services.ErrForbidden) {
		return c.Redirect(http.StatusFound, detailURL(id))
	}
	if err != nil {
		return serviceError(err)
	}
	return c.Redirect(http.StatusFound, profileURL(user.Username))
}

func (h *PostHandler) renderForm(c echo.Context, code int, view render.PostFormView) error {
	groups, err := h.posts.Groups(c.Request().Context())
	if err != nil {
		return err
	}
	view.Base = base(c)
	view.Groups = groups
	return c.Render(code, render.PostFormPage, view)
}

// bindPost reads the post form and its optional image. The returned func
// closes the image and must always be called.
func bindPost(c echo.Context) (services.PostInput, func(), error) {
	var in services.PostInput
	if err := c.Bind(&in.PostRequest); err != nil {
		return in, func() {}, echo.NewHTTPError(http.StatusBadRequest, "Invalid form data")
	}
	image, err := uploadedImage(c)
	if err != nil {
		return in, func() {}, err
	}
	if image == nil {
		return in, func() {}, nil
	}
	in.Image = image
	return in, func() { image.Close() }, nil
}
