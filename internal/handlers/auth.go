package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/anonto42/yatube/backend/internal/auth"
	"github.com/anonto42/yatube/backend/internal/middleware"
	"github.com/anonto42/yatube/backend/internal/models"
	"github.com/anonto42/yatube/backend/internal/render"
	"github.com/anonto42/yatube/backend/internal/services"
	"github.com/anonto42/yatube/backend/validators"
	"github.com/labstack/echo/v4"
)

const msgInvalidLogin = "Please enter a correct username and password."

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	accounts *services.AccountService
	sessions *auth.SessionManager
	firebase middleware.TokenVerifier
	secure   bool
}

// NewAuthHandler creates a new AuthHandler. firebase may be nil, in which
// case federated sign-in is not offered. secure marks the session cookie
// as HTTPS only.
func NewAuthHandler(accounts *services.AccountService, sessions *auth.SessionManager, firebase middleware.TokenVerifier, secure bool) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		sessions: sessions,
		firebase: firebase,
		secure:   secure,
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.GET("/signup/", h.SignupForm)
	g.POST("/signup/", h.Signup)
	g.GET("/login/", h.LoginForm)
	g.POST("/login/", h.Login)
	g.POST("/logout/", h.Logout)
	if h.firebase != nil {
		g.POST("/firebase/", h.FirebaseLogin, middleware.FirebaseToken(h.firebase))
	}
}

func (h *AuthHandler) SignupForm(c echo.Context) error {
	return c.Render(http.StatusOK, render.SignupPage, render.SignupView{Base: base(c)})
}

// Signup registers a local account, signs it in and redirects to the index.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.SignupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form data")
	}

	user, err := h.accounts.Signup(c.Request().Context(), req)
	var fe validators.FieldErrors
	if errors.As(err, &fe) {
		req.Password = ""
		return c.Render(http.StatusOK, render.SignupPage, render.SignupView{Base: base(c), Form: req, Errors: fe})
	}
	if err != nil {
		return err
	}

	if err := h.startSession(c, user); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) LoginForm(c echo.Context) error {
	return c.Render(http.StatusOK, render.LoginPage, render.LoginView{
		Base:            base(c),
		Next:            c.QueryParam("next"),
		FirebaseEnabled: h.firebase != nil,
	})
}

// Login checks credentials and redirects to next, or to the index.
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form data")
	}

	user, err := h.accounts.Login(c.Request().Context(), req)
	if errors.Is(err, services.ErrInvalidCredentials) {
		return c.Render(http.StatusOK, render.LoginPage, render.LoginView{
			Base:            base(c),
			Username:        req.Username,
			Next:            req.Next,
			Error:           msgInvalidLogin,
			FirebaseEnabled: h.firebase != nil,
		})
	}
	if err != nil {
		return err
	}

	if err := h.startSession(c, user); err != nil {
		return err
	}
	slog.Info("user logged in", "user_id", user.ID)
	return c.Redirect(http.StatusFound, safeNext(req.Next))
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, "/")
}

// FirebaseLogin signs in the owner of a verified Firebase ID token,
// creating a local account on first use.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	uid, email := middleware.FirebaseIdentity(c)
	if uid == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Firebase identity missing")
	}

	user, err := h.accounts.FederatedLogin(c.Request().Context(), uid, email)
	if err != nil {
		return err
	}
	if err := h.startSession(c, user); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, safeNext(c.FormValue("next")))
}

func (h *AuthHandler) startSession(c echo.Context, user *models.User) error {
	token, err := h.sessions.Issue(user)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
