package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/anonto42/yatube/backend/internal/auth"
	"github.com/anonto42/yatube/backend/internal/models"
	"github.com/anonto42/yatube/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

const userKey = "user"

// LoginURL is where anonymous visitors are sent by LoginRequired.
const LoginURL = "/auth/login/"

// LoadUser resolves the session cookie to a user and stores it in the context.
// Missing, expired or stale sessions leave the request anonymous.
func LoadUser(sessions *auth.SessionManager, users repositories.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(auth.CookieName)
			if err != nil || cookie.Value == "" {
				return next(c)
			}
			claims, err := sessions.Parse(cookie.Value)
			if err != nil {
				return next(c)
			}
			user, err := users.GetUserByID(c.Request().Context(), claims.UserID)
			if err != nil {
				if !errors.Is(err, repositories.ErrNotFound) {
					slog.Error("failed to load session user", "user_id", claims.UserID, "error", err)
				}
				return next(c)
			}
			c.Set(userKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the signed-in user, or nil for anonymous requests.
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get(userKey).(*models.User)
	return user
}

// LoginRequired redirects anonymous requests to the login page with a next
// parameter pointing back at the requested path.
func LoginRequired() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentUser(c) != nil {
				return next(c)
			}
			return c.Redirect(http.StatusFound, LoginRedirect(c.Request().URL.RequestURI()))
		}
	}
}

// LoginRedirect builds the login URL for target, leaving slashes unescaped.
func LoginRedirect(target string) string {
	return LoginURL + "?next=" + strings.ReplaceAll(url.QueryEscape(target), "%2F", "/")
}
