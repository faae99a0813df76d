// Package handlers serves the blog's HTML pages.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/anonto42/yatube/backend/internal/middleware"
	"github.com/anonto42/yatube/backend/internal/render"
	"github.com/anonto42/yatube/backend/internal/services"
	"github.com/labstack/echo/v4"
)

func profileURL(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}

func detailURL(id uint) string {
	return fmt.Sprintf("/posts/%d/", id)
}

// postID reads the :id path parameter. Anything but a positive integer is
// reported as not found, the same as an unknown post.
func postID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound)
	}
	return uint(id), nil
}

// serviceError maps service sentinels to HTTP errors.
func serviceError(err error) error {
	if errors.Is(err, services.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	return err
}

func base(c echo.Context) render.Base {
	return render.Base{User: middleware.CurrentUser(c)}
}

// uploadedImage opens the optional image file of a multipart form.
// It returns nil when no file was sent.
func uploadedImage(c echo.Context) (io.ReadCloser, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid upload")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	return f, nil
}

// safeNext keeps only local redirect targets.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return "/"
	}
	return next
}

// HTTPErrorHandler renders errors as the error page, or as JSON for API clients.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = http.StatusText(code)
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		}
	}
	if code >= http.StatusInternalServerError {
		slog.Error("request failed", "method", c.Request().Method, "uri", c.Request().RequestURI, "error", err)
	}

	var rErr error
	switch {
	case c.Request().Method == http.MethodHead:
		rErr = c.NoContent(code)
	case strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON):
		rErr = c.JSON(code, map[string]string{"message": msg})
	default:
		rErr = c.Render(code, render.ErrorPage, render.ErrorView{Base: base(c), Code: code, Message: msg})
		if rErr != nil {
			rErr = c.String(code, msg)
		}
	}
	if rErr != nil {
		slog.Error("failed to write error response", "error", rErr)
	}
}
