package handlers

import (
	"errors"
	"mime"
	"net/http"
	"path"

	"github.com/anonto42/yatube/backend/internal/media"
	"github.com/labstack/echo/v4"
)

// MediaHandler streams uploaded images.
type MediaHandler struct {
	store media.Store
}

func NewMediaHandler(store media.Store) *MediaHandler {
	return &MediaHandler{store: store}
}

func (h *MediaHandler) RegisterMediaRoutes(g *echo.Group) {
	g.GET("/media/*", h.Serve)
}

// Serve writes the stored file named by the rest of the path.
func (h *MediaHandler) Serve(c echo.Context) error {
	name := c.Param("*")
	f, err := h.store.Open(c.Request().Context(), name)
	if errors.Is(err, media.ErrNotFound) || errors.Is(err, media.ErrInvalidName) {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	if err != nil {
		return err
	}
	defer f.Close()

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=86400")
	return c.Stream(http.StatusOK, contentType, f)
}
